package router

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"apartment_chat_service/internal/chat/app"
	"apartment_chat_service/internal/chat/domain"
	"apartment_chat_service/internal/chat/repository"
	"apartment_chat_service/pkg/chatclient"
	"apartment_chat_service/pkg/config"
	"apartment_chat_service/pkg/database"
	"apartment_chat_service/pkg/logger"
	testtool "apartment_chat_service/pkg/test_tool"
	"apartment_chat_service/pkg/token"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func init() {
	logger.SetNewNop()
}

var (
	admin    = domain.Identity{UserID: "admin-a", Role: domain.RoleAdmin, ApartmentID: "apt-1"}
	resident = domain.Identity{UserID: "resident-1", Role: domain.RoleUser, ApartmentID: "apt-1"}
)

type server struct {
	url   string
	app   *fiber.App
	rooms *app.RoomUseCase
}

// startServer the full route table on a random local port, in-memory store
func startServer(t *testing.T) *server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	dir := repository.NewMemoryDirectory(false)
	dir.AddAdmin(admin.UserID, "apt-1", "Alice")
	dir.AddResident(domain.Resident{UserID: resident.UserID, ApartmentID: "apt-1", Name: "Kim"})

	cfg := config.RoomConfig{}
	store := repository.NewMemoryStore()
	hub := app.NewHub()
	b := app.NewBroadcaster(hub, repository.NewLocalRelay())
	require.NoError(t, b.Start(ctx))

	events := repository.NewNopEventPublisher()
	reads := app.NewReadUseCase(store, store, b, events)
	rooms := app.NewRoomUseCase(store, store, dir, reads, events, cfg)
	messages := app.NewSendMessageUseCase(store, store, b, events, cfg)
	typing := app.NewTypingUseCase(dir, b)

	fiberApp := fiber.New(fiber.Config{DisableStartupMessage: true})
	RegisterRoutes(fiberApp, app.NewChatWebsocketHandler(hub, rooms, messages, reads, typing, cfg), app.NewChatHTTPHandler(rooms))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = fiberApp.Listener(ln) }()

	t.Cleanup(func() {
		cancel()
		_ = fiberApp.Shutdown()
	})
	return &server{url: "ws://" + ln.Addr().String() + "/ws", app: fiberApp, rooms: rooms}
}

func tokenFor(t *testing.T, id domain.Identity) string {
	t.Helper()
	tok, err := token.GenerateJWT(id.UserID, token.RoleType(id.Role), id.ApartmentID, "test")
	require.NoError(t, err)
	return tok
}

func dial(t *testing.T, s *server, id domain.Identity) *chatclient.Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := chatclient.Dial(ctx, s.url, tokenFor(t, id))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func waitFor(t *testing.T, c *chatclient.Client, event domain.Action) chatclient.Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ev, err := c.WaitFor(ctx, event)
	require.NoError(t, err, "waiting for %s", event)
	return ev
}

func TestRoutes_ConnectCheck(t *testing.T) {
	s := startServer(t)
	resp, err := s.app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "chat service start!", string(body))
}

func TestWebsocket_HandshakeNeedsToken(t *testing.T) {
	s := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := chatclient.Dial(ctx, s.url, "not-a-token")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")

	// 有 token 但不是 upgrade 請求
	req := httptest.NewRequest(fiber.MethodGet, "/ws", nil)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, admin))
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}

func TestWebsocket_ResidentMessageReachesIdleAdmin(t *testing.T) {
	s := startServer(t)
	room, err := s.rooms.GetMyRoom(context.Background(), resident)
	require.NoError(t, err)

	adm := dial(t, s, admin)
	// leave is acknowledged even when not joined; the ack proves the session is registered
	require.NoError(t, adm.Leave(room.ID))
	waitFor(t, adm, domain.LeaveRoomSuccess)

	res := dial(t, s, resident)
	require.NoError(t, res.Join(room.ID))
	waitFor(t, res, domain.JoinRoomSuccess)

	require.NoError(t, res.Send(room.ID, "  the elevator is broken  "))

	for _, c := range []*chatclient.Client{res, adm} {
		ev := waitFor(t, c, domain.NewMessage)
		msg, err := chatclient.Decode[domain.ChatMessage](ev)
		require.NoError(t, err)
		assert.Equal(t, "the elevator is broken", msg.Content)
		assert.Equal(t, room.ID, msg.RoomID)
		assert.Equal(t, int64(1), msg.Seq)
	}
}

func TestWebsocket_EscapedMessageUnderLimitDelivered(t *testing.T) {
	s := startServer(t)
	room, err := s.rooms.GetMyRoom(context.Background(), resident)
	require.NoError(t, err)

	res := dial(t, s, resident)
	require.NoError(t, res.Join(room.ID))
	waitFor(t, res, domain.JoinRoomSuccess)

	// encoding/json sends each '<' as \u003c, six bytes per rune on the wire
	content := strings.Repeat("<", 900)
	require.NoError(t, res.Send(room.ID, content))
	msg, err := chatclient.Decode[domain.ChatMessage](waitFor(t, res, domain.NewMessage))
	require.NoError(t, err)
	assert.Equal(t, content, msg.Content)
}

func TestWebsocket_OverLongMessageKeepsConnection(t *testing.T) {
	s := startServer(t)
	room, err := s.rooms.GetMyRoom(context.Background(), resident)
	require.NoError(t, err)

	res := dial(t, s, resident)
	require.NoError(t, res.Join(room.ID))
	waitFor(t, res, domain.JoinRoomSuccess)

	require.NoError(t, res.Send(room.ID, strings.Repeat("a", 6000)))
	payload, err := chatclient.Decode[domain.ErrorPayload](waitFor(t, res, domain.Error))
	require.NoError(t, err)
	assert.Contains(t, payload.Message, "too long")

	require.NoError(t, res.Send(room.ID, "still here"))
	msg, err := chatclient.Decode[domain.ChatMessage](waitFor(t, res, domain.NewMessage))
	require.NoError(t, err)
	assert.Equal(t, "still here", msg.Content)
	assert.Equal(t, int64(1), msg.Seq)
}

func TestWebsocket_JoinOtherRoomRefused(t *testing.T) {
	s := startServer(t)
	room, err := s.rooms.GetMyRoom(context.Background(), resident)
	require.NoError(t, err)

	stranger := domain.Identity{UserID: "admin-x", Role: domain.RoleAdmin, ApartmentID: "apt-2"}
	c := dial(t, s, stranger)
	require.NoError(t, c.Join(room.ID))

	ev := waitFor(t, c, domain.Error)
	payload, err := chatclient.Decode[domain.ErrorPayload](ev)
	require.NoError(t, err)
	assert.Contains(t, payload.Message, room.ID)

	require.NoError(t, c.Send(room.ID, "hi"))
	waitFor(t, c, domain.Error)
}

func TestWebsocket_CloseEndsReadLoop(t *testing.T) {
	s := startServer(t)
	c := dial(t, s, admin)
	require.NoError(t, c.Close())
	assert.Error(t, c.Err())
	assert.ErrorIs(t, c.Join("x"), chatclient.ErrClosed)
	_, ok := <-c.Events()
	assert.False(t, ok)
}

func TestHealthServer(t *testing.T) {
	grpcServer, hs := NewHealthServer()
	addr := testtool.StartGRPCServer(grpcServer)
	t.Cleanup(grpcServer.Stop)

	conn, err := database.CreateGRPCClient(addr, 3*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	client := healthpb.NewHealthClient(conn)

	status := func() healthpb.HealthCheckResponse_ServingStatus {
		resp, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: ChatServiceName})
		if err != nil {
			return healthpb.HealthCheckResponse_UNKNOWN
		}
		return resp.Status
	}
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, status(), "not serving until the first check")

	var failing atomic.Bool
	check := func(context.Context) error {
		if failing.Load() {
			return errors.New("mongo: no reachable servers")
		}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go WatchHealth(ctx, hs, 20*time.Millisecond, check)

	assert.Eventually(t, func() bool { return status() == healthpb.HealthCheckResponse_SERVING }, 2*time.Second, 10*time.Millisecond)

	failing.Store(true)
	assert.Eventually(t, func() bool { return status() == healthpb.HealthCheckResponse_NOT_SERVING }, 2*time.Second, 10*time.Millisecond)
}
