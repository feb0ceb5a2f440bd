package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"apartment_chat_service/internal/chat/domain"
	"apartment_chat_service/pkg/config"
	"apartment_chat_service/pkg/logger"
	"apartment_chat_service/pkg/middlewares"
	"apartment_chat_service/pkg/token"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

// ChatWebsocketHandler 可包含所有需要的 UseCase
type ChatWebsocketHandler struct {
	hub       *Hub
	roomUC    *RoomUseCase
	messageUC *SendMessageUseCase
	readUC    *ReadUseCase
	typingUC  *TypingUseCase
	cfg       config.RoomConfig
}

// NewChatWebsocketHandler create ChatWebsocketHandler
func NewChatWebsocketHandler(
	hub *Hub,
	roomUC *RoomUseCase,
	messageUC *SendMessageUseCase,
	readUC *ReadUseCase,
	typingUC *TypingUseCase,
	cfg config.RoomConfig,
) *ChatWebsocketHandler {
	cfg.Defaults()
	return &ChatWebsocketHandler{
		hub:       hub,
		roomUC:    roomUC,
		messageUC: messageUC,
		readUC:    readUC,
		typingUC:  typingUC,
		cfg:       cfg,
	}
}

// IdentityFromClaims identity bound at the handshake
func IdentityFromClaims(c *token.Claims) domain.Identity {
	return domain.Identity{
		UserID:      c.UserID,
		Role:        domain.Role(c.Role),
		ApartmentID: c.ApartmentID,
	}
}

// HandleConnection 是 WebSocket 連線的進入點。JWTMiddleware 已在升級前驗證身分
func (h *ChatWebsocketHandler) HandleConnection(ctx context.Context, conn *websocket.Conn) {
	claims, ok := conn.Locals(middlewares.TokenClaims).(*token.Claims)
	if !ok || claims == nil {
		// 不應發生: 未驗證的請求不會升級
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "unauthenticated"),
			time.Now().Add(time.Second))
		conn.Close()
		return
	}

	s := h.hub.Register(IdentityFromClaims(claims), h.cfg.SendBuffer)
	log := logger.Log
	log.Info("websocket open", zap.String("conn_id", s.ID), zap.String("userID", s.Identity.UserID), zap.String("role", string(s.Identity.Role)))

	ctxClose, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go h.writeLoop(ctxClose, conn, s, done)

	defer func() {
		h.hub.Unregister(s)
		cancel()
		<-done
		conn.Close()
		log.Info("websocket close", zap.String("conn_id", s.ID), zap.String("userID", s.Identity.UserID))
	}()

	//client發出close
	//fiber會自動處理(在read msg 回傳err),故需要SetCloseHandler另外接出
	conn.SetCloseHandler(func(code int, text string) error {
		log.Debug("websocket close frame", zap.String("conn_id", s.ID), zap.Int("code", code))
		return nil
	})

	//server發出ping之後client連線正常會回pong, 延長讀取期限
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(2 * h.cfg.PingInterval))
	})

	conn.SetReadLimit(h.frameLimit())
	_ = conn.SetReadDeadline(time.Now().Add(2 * h.cfg.PingInterval))

	for {
		mt, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				log.Debug("Connection closed", zap.String("conn_id", s.ID))
			} else {
				//直接斷線 1006
				log.Warn("websocket read error", zap.String("conn_id", s.ID), zap.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(2 * h.cfg.PingInterval))
		if mt != websocket.TextMessage {
			h.sendError(s, "unsupported frame type")
			continue
		}
		h.Dispatch(ctxClose, s, message)
	}
}

// minFrameLimit transport guard floor; content length is judged after decoding
const minFrameLimit = 64 << 10

// frameLimit 超過就斷線(1009). A \uXXXX surrogate pair is 12 bytes for one rune, so any
// message inside MaxMessageLength fits and longer ones below the limit get a validation error.
func (h *ChatWebsocketHandler) frameLimit() int64 {
	limit := int64(12*h.cfg.MaxMessageLength + 1024)
	if limit < minFrameLimit {
		limit = minFrameLimit
	}
	return limit
}

// writeLoop 唯一寫入者: 佇列中的事件與定期 ping
func (h *ChatWebsocketHandler) writeLoop(ctx context.Context, conn *websocket.Conn, s *Session, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()

	failed := false
	stop := ctx.Done()
	for {
		select {
		case frame, ok := <-s.Send():
			if !ok {
				return
			}
			if failed {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				logger.Log.Warn("write message error", zap.String("conn_id", s.ID), zap.Error(err))
				failed = true
				// 讓讀取迴圈結束
				conn.Close()
			}
		case <-ticker.C:
			if failed {
				continue
			}
			if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(10*time.Second)); err != nil {
				logger.Log.Warn("Ping error", zap.String("conn_id", s.ID), zap.Error(err))
				failed = true
				conn.Close()
			}
		case <-stop:
			// drain until Unregister closes the queue
			stop = nil
			failed = true
		}
	}
}

// Dispatch handle one client event. Events of one connection are handled in order
// by the read loop; replies and errors go only to this connection.
func (h *ChatWebsocketHandler) Dispatch(ctx context.Context, s *Session, raw []byte) {
	var req domain.WSRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		h.sendError(s, "invalid event payload")
		return
	}
	roomID := req.Data.RoomID

	switch req.Event {
	case domain.JoinRoom:
		h.join(ctx, s, roomID)
		return
	case domain.LeaveRoom:
		// 未加入也回覆成功
		h.hub.Leave(s, roomID)
		h.send(s, domain.LeaveRoomSuccess, domain.RoomAck{RoomID: roomID})
		return
	case domain.SendMessage, domain.MarkAsRead, domain.Typing:
	default:
		h.sendError(s, fmt.Sprintf("unknown event: %s", req.Event))
		return
	}

	if !h.hub.IsJoined(s, roomID) {
		h.sendError(s, domain.ErrNotJoined.Error())
		return
	}

	var err error
	switch req.Event {
	case domain.SendMessage:
		_, err = h.messageUC.Execute(ctx, s.Identity, roomID, req.Data.Content)
	case domain.MarkAsRead:
		_, err = h.readUC.MarkAsRead(ctx, s.Identity, roomID, s.ID)
	case domain.Typing:
		h.typingUC.Execute(ctx, s.Identity, roomID, req.Data.IsTyping)
	}
	if err != nil {
		logger.Log.Error("websocket err ",
			zap.String("MemberID", s.Identity.UserID),
			zap.String("Action", string(req.Event)),
			zap.String("room_id", roomID),
			zap.Error(err),
		)
		h.sendError(s, clientMessage(err))
	}
}

func (h *ChatWebsocketHandler) join(ctx context.Context, s *Session, roomID string) {
	if _, err := h.roomUC.Authorize(ctx, s.Identity, roomID); err != nil {
		logger.Log.Warn("join refused",
			zap.String("MemberID", s.Identity.UserID),
			zap.String("room_id", roomID),
			zap.Error(err),
		)
		h.sendError(s, fmt.Sprintf("cannot join room %s: %s", roomID, joinReason(err)))
		return
	}
	h.hub.Join(s, roomID)
	h.send(s, domain.JoinRoomSuccess, domain.RoomAck{RoomID: roomID})
}

func joinReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid room id"
	case errors.Is(err, domain.ErrNotFound):
		return "room not found"
	case errors.Is(err, domain.ErrForbidden):
		return "not authorized"
	}
	return "internal error"
}

// clientMessage 只回傳可公開的錯誤內容
func clientMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrForbidden),
		errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrNotJoined):
		return err.Error()
	}
	return "internal error"
}

// send - 發送 JSON 給前端
func (h *ChatWebsocketHandler) send(s *Session, event domain.Action, data interface{}) {
	b, err := domain.Encode(event, data)
	if err != nil {
		logger.Log.Error("encode event", zap.String("event", string(event)), zap.Error(err))
		return
	}
	h.hub.SendTo(s, b)
}

func (h *ChatWebsocketHandler) sendError(s *Session, msg string) {
	h.send(s, domain.Error, domain.ErrorPayload{Message: msg})
}
