package app

import (
	"context"
	"sync"

	"apartment_chat_service/internal/chat/domain"

	"github.com/stretchr/testify/mock"
)

// MockRoomRepository Mock RoomRepository
type MockRoomRepository struct {
	mock.Mock
}

// CreateRoom moke create room
func (m *MockRoomRepository) CreateRoom(ctx context.Context, room *domain.ChatRoom) error {
	args := m.Called(ctx, room)
	return args.Error(0)
}

// FindByID moke find room by room id
func (m *MockRoomRepository) FindByID(ctx context.Context, roomID string) (*domain.ChatRoom, error) {
	args := m.Called(ctx, roomID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.ChatRoom), args.Error(1)
	}
	return nil, args.Error(1)
}

// FindByResident moke find room of a resident
func (m *MockRoomRepository) FindByResident(ctx context.Context, residentID string) (*domain.ChatRoom, error) {
	args := m.Called(ctx, residentID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.ChatRoom), args.Error(1)
	}
	return nil, args.Error(1)
}

// ListByApartment moke list rooms of an apartment
func (m *MockRoomRepository) ListByApartment(ctx context.Context, apartmentID string) ([]domain.ChatRoom, error) {
	args := m.Called(ctx, apartmentID)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.ChatRoom), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockMessageRepository Mock MessageRepository
type MockMessageRepository struct {
	mock.Mock
}

// AppendMessage moke insert msg
func (m *MockMessageRepository) AppendMessage(ctx context.Context, msg *domain.ChatMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// MarkRead moke flip read flags
func (m *MockMessageRepository) MarkRead(ctx context.Context, roomID string, role domain.Role) (int64, error) {
	args := m.Called(ctx, roomID, role)
	return args.Get(0).(int64), args.Error(1)
}

// CountUnread moke count unread of one side
func (m *MockMessageRepository) CountUnread(ctx context.Context, roomID string, role domain.Role) (int64, error) {
	args := m.Called(ctx, roomID, role)
	return args.Get(0).(int64), args.Error(1)
}

// ListMessages moke one page
func (m *MockMessageRepository) ListMessages(ctx context.Context, roomID string, beforeSeq int64, offset, limit int) ([]domain.ChatMessage, error) {
	args := m.Called(ctx, roomID, beforeSeq, offset, limit)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.ChatMessage), args.Error(1)
	}
	return nil, args.Error(1)
}

// CountMessages moke count
func (m *MockMessageRepository) CountMessages(ctx context.Context, roomID string, beforeSeq int64) (int64, error) {
	args := m.Called(ctx, roomID, beforeSeq)
	return args.Get(0).(int64), args.Error(1)
}

// MockDirectoryRepository Mock DirectoryRepository
type MockDirectoryRepository struct {
	mock.Mock
}

// IsApprovedAdmin moke admin predicate
func (m *MockDirectoryRepository) IsApprovedAdmin(ctx context.Context, userID, apartmentID string) (bool, error) {
	args := m.Called(ctx, userID, apartmentID)
	return args.Bool(0), args.Error(1)
}

// FindResident moke resident lookup
func (m *MockDirectoryRepository) FindResident(ctx context.Context, userID string) (*domain.Resident, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Resident), args.Error(1)
	}
	return nil, args.Error(1)
}

// DisplayName moke name lookup
func (m *MockDirectoryRepository) DisplayName(ctx context.Context, userID string) string {
	args := m.Called(ctx, userID)
	return args.String(0)
}

// MockEventPublisher Mock EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

// Publish moke publish event
func (m *MockEventPublisher) Publish(ctx context.Context, ev domain.ChatEvent) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

// Close moke close
func (m *MockEventPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockDeliveryRelay records published deliveries and hands them to the subscriber, like a
// relay that loops back to the publishing node
type MockDeliveryRelay struct {
	mu        sync.Mutex
	handler   func(domain.Delivery)
	published []domain.Delivery
	// Fail makes Publish return this error
	Fail error
}

// Publish moke publish delivery
func (m *MockDeliveryRelay) Publish(_ context.Context, d domain.Delivery) error {
	m.mu.Lock()
	if m.Fail != nil {
		m.mu.Unlock()
		return m.Fail
	}
	m.published = append(m.published, d)
	h := m.handler
	m.mu.Unlock()
	if h != nil {
		h(d)
	}
	return nil
}

// Subscribe moke subscribe
func (m *MockDeliveryRelay) Subscribe(_ context.Context, handler func(domain.Delivery)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = handler
	return nil
}

// Published deliveries seen so far
func (m *MockDeliveryRelay) Published() []domain.Delivery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Delivery(nil), m.published...)
}
