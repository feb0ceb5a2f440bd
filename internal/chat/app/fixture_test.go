package app

import (
	"context"
	"encoding/json"
	"testing"

	"apartment_chat_service/internal/chat/domain"
	"apartment_chat_service/internal/chat/repository"
	"apartment_chat_service/pkg/config"
	"apartment_chat_service/pkg/logger"

	"github.com/stretchr/testify/require"
)

func init() {
	logger.SetNewNop()
}

var (
	adminA   = domain.Identity{UserID: "admin-a", Role: domain.RoleAdmin, ApartmentID: "apt-1"}
	adminB   = domain.Identity{UserID: "admin-b", Role: domain.RoleAdmin, ApartmentID: "apt-1"}
	adminX   = domain.Identity{UserID: "admin-x", Role: domain.RoleAdmin, ApartmentID: "apt-2"}
	resident = domain.Identity{UserID: "resident-1", Role: domain.RoleUser, ApartmentID: "apt-1"}
	neighbor = domain.Identity{UserID: "resident-2", Role: domain.RoleUser, ApartmentID: "apt-1"}
)

// stack the whole chat service on the in-memory store, one gateway node
type stack struct {
	store       *repository.MemoryStore
	dir         *repository.MemoryDirectory
	hub         *Hub
	broadcaster *Broadcaster
	reads       *ReadUseCase
	rooms       *RoomUseCase
	messages    *SendMessageUseCase
	typing      *TypingUseCase
	ws          *ChatWebsocketHandler
	http        *ChatHTTPHandler
}

func newStack(t *testing.T, cfg config.RoomConfig) *stack {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	dir := repository.NewMemoryDirectory(false)
	dir.AddAdmin(adminA.UserID, "apt-1", "Alice")
	dir.AddAdmin(adminB.UserID, "apt-1", "Bob")
	dir.AddAdmin(adminX.UserID, "apt-2", "Xavier")
	dir.AddResident(domain.Resident{UserID: resident.UserID, ApartmentID: "apt-1", Name: "Kim"})
	dir.AddResident(domain.Resident{UserID: neighbor.UserID, ApartmentID: "apt-1", Name: "Lee"})

	store := repository.NewMemoryStore()
	hub := NewHub()
	b := NewBroadcaster(hub, repository.NewLocalRelay())
	require.NoError(t, b.Start(ctx))

	events := repository.NewNopEventPublisher()
	reads := NewReadUseCase(store, store, b, events)
	rooms := NewRoomUseCase(store, store, dir, reads, events, cfg)
	messages := NewSendMessageUseCase(store, store, b, events, cfg)
	typing := NewTypingUseCase(dir, b)

	return &stack{
		store:       store,
		dir:         dir,
		hub:         hub,
		broadcaster: b,
		reads:       reads,
		rooms:       rooms,
		messages:    messages,
		typing:      typing,
		ws:          NewChatWebsocketHandler(hub, rooms, messages, reads, typing, cfg),
		http:        NewChatHTTPHandler(rooms),
	}
}

// roomOf the resident's room, created on first call
func (s *stack) roomOf(t *testing.T, id domain.Identity) *domain.ChatRoom {
	t.Helper()
	room, err := s.rooms.GetMyRoom(context.Background(), id)
	require.NoError(t, err)
	return room
}

func (s *stack) connect(id domain.Identity) *Session {
	return s.hub.Register(id, 64)
}

// dispatch one client event on s
func (s *stack) dispatch(t *testing.T, sess *Session, event domain.Action, data domain.WSRequestData) {
	t.Helper()
	raw, err := json.Marshal(domain.WSRequest{Event: event, Data: data})
	require.NoError(t, err)
	s.ws.Dispatch(context.Background(), sess, raw)
}

// joined connect and join, ack consumed
func (s *stack) joined(t *testing.T, id domain.Identity, roomID string) *Session {
	t.Helper()
	sess := s.connect(id)
	s.dispatch(t, sess, domain.JoinRoom, domain.WSRequestData{RoomID: roomID})
	evs := drain(sess)
	require.Len(t, evs, 1)
	require.Equal(t, domain.JoinRoomSuccess, evs[0].Event)
	return sess
}

type rawEvent struct {
	Event domain.Action   `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// drain everything queued for the session without blocking
func drain(s *Session) []rawEvent {
	var out []rawEvent
	for {
		select {
		case frame, ok := <-s.Send():
			if !ok {
				return out
			}
			var ev rawEvent
			if err := json.Unmarshal(frame, &ev); err == nil {
				out = append(out, ev)
			}
		default:
			return out
		}
	}
}

func only(t *testing.T, s *Session, event domain.Action) []rawEvent {
	t.Helper()
	var out []rawEvent
	for _, ev := range drain(s) {
		if ev.Event == event {
			out = append(out, ev)
		}
	}
	return out
}

func decode[T any](t *testing.T, ev rawEvent) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(ev.Data, &v))
	return v
}
