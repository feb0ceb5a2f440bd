package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"apartment_chat_service/internal/chat/domain"
)

// MemoryStore in-process rooms and messages, used for local runs and tests.
// One mutex serialises every write so seq and createdAt follow the same order.
type MemoryStore struct {
	mu       sync.RWMutex
	rooms    map[string]*domain.ChatRoom
	messages map[string][]domain.ChatMessage // roomID -> ascending seq
	now      func() time.Time
}

// NewMemoryStore create an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rooms:    map[string]*domain.ChatRoom{},
		messages: map[string][]domain.ChatMessage{},
		now:      time.Now,
	}
}

// CreateRoom create room
func (s *MemoryStore) CreateRoom(_ context.Context, room *domain.ChatRoom) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rooms {
		if r.ResidentID == room.ResidentID {
			return ErrRoomExists
		}
	}
	cp := *room
	s.rooms[room.ID] = &cp
	return nil
}

// FindByID find room by id
func (s *MemoryStore) FindByID(_ context.Context, roomID string) (*domain.ChatRoom, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[roomID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

// FindByResident find the room owned by a resident
func (s *MemoryStore) FindByResident(_ context.Context, residentID string) (*domain.ChatRoom, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.rooms {
		if r.ResidentID == residentID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

// ListByApartment most recently active first, rooms without messages last
func (s *MemoryStore) ListByApartment(_ context.Context, apartmentID string) ([]domain.ChatRoom, error) {
	s.mu.RLock()
	rooms := []domain.ChatRoom{}
	for _, r := range s.rooms {
		if r.ApartmentID == apartmentID {
			rooms = append(rooms, *r)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(rooms, func(i, j int) bool {
		a, b := rooms[i].LastMessageAt, rooms[j].LastMessageAt
		switch {
		case a != nil && b != nil && !a.Equal(*b):
			return a.After(*b)
		case a != nil && b == nil:
			return true
		case a == nil && b != nil:
			return false
		}
		return rooms[i].CreatedAt.After(rooms[j].CreatedAt)
	})
	return rooms, nil
}

// SetUnreadCounts overwrite the cached counters, for seeding fixtures and imports
func (s *MemoryStore) SetUnreadCounts(_ context.Context, roomID string, forAdmin, forResident int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[roomID]
	if !ok {
		return domain.ErrNotFound
	}
	r.UnreadCountForAdmin = forAdmin
	r.UnreadCountForResident = forResident
	r.UpdatedAt = s.now()
	return nil
}

// AppendMessage assign seq and a strictly increasing createdAt, then update the room caches
func (s *MemoryStore) AppendMessage(_ context.Context, msg *domain.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[msg.RoomID]
	if !ok {
		return domain.ErrNotFound
	}

	at := s.now()
	if r.LastMessageAt != nil && !at.After(*r.LastMessageAt) {
		at = r.LastMessageAt.Add(time.Millisecond)
	}
	r.MessageSeq++
	msg.Seq = r.MessageSeq
	msg.CreatedAt = at

	r.LastMessageAt = &at
	r.LastMessageContent = msg.Content
	r.UpdatedAt = at
	if msg.SenderRole == domain.RoleAdmin {
		r.UnreadCountForResident++
	} else {
		r.UnreadCountForAdmin++
	}

	s.messages[msg.RoomID] = append(s.messages[msg.RoomID], *msg)
	return nil
}

// MarkRead flip the role's read flag, returns how many changed. Both counters are
// recounted under the same lock AppendMessage takes.
func (s *MemoryStore) MarkRead(_ context.Context, roomID string, role domain.Role) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[roomID]
	if !ok {
		return 0, domain.ErrNotFound
	}

	var n, forAdmin, forResident int64
	msgs := s.messages[roomID]
	for i := range msgs {
		if !msgs[i].ReadBy(role) {
			if role == domain.RoleAdmin {
				msgs[i].IsReadByAdmin = true
			} else {
				msgs[i].IsReadByResident = true
			}
			n++
		}
		if !msgs[i].IsReadByAdmin {
			forAdmin++
		}
		if !msgs[i].IsReadByResident {
			forResident++
		}
	}
	r.UnreadCountForAdmin = forAdmin
	r.UnreadCountForResident = forResident
	if n > 0 {
		r.UpdatedAt = s.now()
	}
	return n, nil
}

// CountUnread messages the role has not read
func (s *MemoryStore) CountUnread(_ context.Context, roomID string, role domain.Role) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, m := range s.messages[roomID] {
		if !m.ReadBy(role) {
			n++
		}
	}
	return n, nil
}

// ListMessages newest first
func (s *MemoryStore) ListMessages(_ context.Context, roomID string, beforeSeq int64, offset, limit int) ([]domain.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.ChatMessage{}
	msgs := s.messages[roomID]
	skipped := 0
	for i := len(msgs) - 1; i >= 0 && len(out) < limit; i-- {
		if beforeSeq > 0 && msgs[i].Seq >= beforeSeq {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		out = append(out, msgs[i])
	}
	return out, nil
}

// CountMessages messages of the room, older than beforeSeq when set
func (s *MemoryStore) CountMessages(_ context.Context, roomID string, beforeSeq int64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if beforeSeq <= 0 {
		return int64(len(s.messages[roomID])), nil
	}
	var n int64
	for _, m := range s.messages[roomID] {
		if m.Seq < beforeSeq {
			n++
		}
	}
	return n, nil
}
