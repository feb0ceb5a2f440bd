package app

import (
	"sync"

	"apartment_chat_service/internal/chat/domain"
	"apartment_chat_service/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Session one authenticated connection. Identity is fixed for the lifetime of the
// connection; rooms is guarded by the hub lock.
type Session struct {
	ID       string
	Identity domain.Identity

	send   chan []byte
	rooms  map[string]struct{}
	closed bool
}

// Send outbound frames, closed when the session is unregistered
func (s *Session) Send() <-chan []byte {
	return s.send
}

// Hub 記錄線上連線與聊天室成員 (room -> connections)
type Hub struct {
	mu         sync.RWMutex
	sessions   map[string]*Session
	rooms      map[string]map[string]*Session
	apartments map[string]map[string]*Session
}

// NewHub create Hub
func NewHub() *Hub {
	return &Hub{
		sessions:   map[string]*Session{},
		rooms:      map[string]map[string]*Session{},
		apartments: map[string]map[string]*Session{},
	}
}

// Register add a connection, buffer is the outbound queue length
func (h *Hub) Register(id domain.Identity, buffer int) *Session {
	s := &Session{
		ID:       uuid.New().String(),
		Identity: id,
		send:     make(chan []byte, buffer),
		rooms:    map[string]struct{}{},
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[s.ID] = s
	apt := h.apartments[id.ApartmentID]
	if apt == nil {
		apt = map[string]*Session{}
		h.apartments[id.ApartmentID] = apt
	}
	apt[s.ID] = s
	return s
}

// Unregister drop the connection from every room and close its queue
func (h *Hub) Unregister(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s.closed {
		return
	}
	for roomID := range s.rooms {
		h.removeFromRoom(s, roomID)
	}
	delete(h.sessions, s.ID)
	if apt := h.apartments[s.Identity.ApartmentID]; apt != nil {
		delete(apt, s.ID)
		if len(apt) == 0 {
			delete(h.apartments, s.Identity.ApartmentID)
		}
	}
	s.closed = true
	close(s.send)
}

// Join add the connection to the room group
func (h *Hub) Join(s *Session, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s.closed {
		return
	}
	group := h.rooms[roomID]
	if group == nil {
		group = map[string]*Session{}
		h.rooms[roomID] = group
	}
	group[s.ID] = s
	s.rooms[roomID] = struct{}{}
}

// Leave remove the connection from the room group, reports whether it was joined
func (h *Hub) Leave(s *Session, roomID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := s.rooms[roomID]; !ok {
		return false
	}
	h.removeFromRoom(s, roomID)
	return true
}

func (h *Hub) removeFromRoom(s *Session, roomID string) {
	delete(s.rooms, roomID)
	if group := h.rooms[roomID]; group != nil {
		delete(group, s.ID)
		if len(group) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// IsJoined connection is in the room group
func (h *Hub) IsJoined(s *Session, roomID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := s.rooms[roomID]
	return ok
}

// Members connections joined to the room
func (h *Hub) Members(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// SendTo queue a frame for one connection
func (h *Hub) SendTo(s *Session, payload []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.offer(s, payload)
}

// Deliver evaluate a delivery against the local connections; returns how many were queued.
// Sends never block: a full queue drops the frame for that recipient only.
func (h *Hub) Deliver(d domain.Delivery) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for _, s := range h.recipients(d) {
		if h.offer(s, d.Payload) {
			sent++
		}
	}
	return sent
}

// recipients caller holds the read lock
func (h *Hub) recipients(d domain.Delivery) []*Session {
	group := h.rooms[d.RoomID]
	out := make([]*Session, 0, len(group))
	skip := func(s *Session) bool {
		return s.ID == d.ExcludeConnID || (d.ExcludeUserID != "" && s.Identity.UserID == d.ExcludeUserID)
	}

	for _, s := range group {
		if !skip(s) {
			out = append(out, s)
		}
	}

	if d.NotJoinedRole == "" {
		return out
	}
	for _, s := range h.apartments[d.ApartmentID] {
		if s.Identity.Role != d.NotJoinedRole || skip(s) {
			continue
		}
		if d.NotJoinedUserID != "" && s.Identity.UserID != d.NotJoinedUserID {
			continue
		}
		if _, joined := group[s.ID]; joined {
			continue
		}
		out = append(out, s)
	}
	return out
}

func (h *Hub) offer(s *Session, payload []byte) bool {
	if s.closed {
		return false
	}
	select {
	case s.send <- payload:
		return true
	default:
		logger.Log.Warn("send queue full, frame dropped",
			zap.String("conn_id", s.ID),
			zap.String("user_id", s.Identity.UserID),
		)
		return false
	}
}
