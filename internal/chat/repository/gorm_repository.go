package repository

import (
	"context"
	"errors"
	"time"

	"apartment_chat_service/internal/chat/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore rooms and messages in PostgreSQL. The room row lock taken by
// AppendMessage serialises writers of the same room.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore create a GormStore; the db should be opened with TranslateError
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// AutoMigrate create or update chat_rooms / chat_messages
func (s *GormStore) AutoMigrate() error {
	return s.db.AutoMigrate(&domain.ChatRoom{}, &domain.ChatMessage{})
}

// CreateRoom create room
func (s *GormStore) CreateRoom(ctx context.Context, room *domain.ChatRoom) error {
	err := s.db.WithContext(ctx).Create(room).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrRoomExists
	}
	return err
}

// FindByID find room by id
func (s *GormStore) FindByID(ctx context.Context, roomID string) (*domain.ChatRoom, error) {
	return s.first(ctx, "id = ?", roomID)
}

// FindByResident find the room owned by a resident
func (s *GormStore) FindByResident(ctx context.Context, residentID string) (*domain.ChatRoom, error) {
	return s.first(ctx, "resident_id = ?", residentID)
}

func (s *GormStore) first(ctx context.Context, query string, arg interface{}) (*domain.ChatRoom, error) {
	var room domain.ChatRoom
	err := s.db.WithContext(ctx).Where(query, arg).First(&room).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// ListByApartment most recently active first
func (s *GormStore) ListByApartment(ctx context.Context, apartmentID string) ([]domain.ChatRoom, error) {
	rooms := []domain.ChatRoom{}
	err := s.db.WithContext(ctx).
		Where("apartment_id = ?", apartmentID).
		Order("last_message_at DESC NULLS LAST, created_at DESC").
		Find(&rooms).Error
	return rooms, err
}

// AppendMessage SELECT ... FOR UPDATE on the room, then seq/createdAt/caches and the insert in one transaction
func (s *GormStore) AppendMessage(ctx context.Context, msg *domain.ChatMessage) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var room domain.ChatRoom
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", msg.RoomID).First(&room).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}

		at := time.Now().UTC()
		if room.LastMessageAt != nil && !at.After(*room.LastMessageAt) {
			at = room.LastMessageAt.Add(time.Millisecond)
		}
		msg.Seq = room.MessageSeq + 1
		msg.CreatedAt = at

		counter := "unread_count_for_admin"
		if msg.SenderRole == domain.RoleAdmin {
			counter = "unread_count_for_resident"
		}
		err = tx.Model(&domain.ChatRoom{}).Where("id = ?", room.ID).Updates(map[string]interface{}{
			"message_seq":          msg.Seq,
			"last_message_at":      at,
			"last_message_content": msg.Content,
			"updated_at":           at,
			counter:                gorm.Expr(counter + " + 1"),
		}).Error
		if err != nil {
			return err
		}
		return tx.Create(msg).Error
	})
}

// MarkRead flip the role's read flag and recount both counters, holding the room
// row lock AppendMessage takes so no append lands between the count and the write
func (s *GormStore) MarkRead(ctx context.Context, roomID string, role domain.Role) (int64, error) {
	var flipped int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var room domain.ChatRoom
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", roomID).First(&room).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}

		field := readField(role)
		res := tx.Model(&domain.ChatMessage{}).
			Where("room_id = ? AND "+field+" = ?", roomID, false).
			Update(field, true)
		if res.Error != nil {
			return res.Error
		}
		flipped = res.RowsAffected

		var forAdmin, forResident int64
		if err := countUnread(tx, roomID, domain.RoleAdmin, &forAdmin); err != nil {
			return err
		}
		if err := countUnread(tx, roomID, domain.RoleUser, &forResident); err != nil {
			return err
		}
		return tx.Model(&domain.ChatRoom{}).Where("id = ?", roomID).Updates(map[string]interface{}{
			"unread_count_for_admin":    forAdmin,
			"unread_count_for_resident": forResident,
			"updated_at":                time.Now().UTC(),
		}).Error
	})
	if err != nil {
		return 0, err
	}
	return flipped, nil
}

// CountUnread messages the role has not read
func (s *GormStore) CountUnread(ctx context.Context, roomID string, role domain.Role) (int64, error) {
	var n int64
	err := countUnread(s.db.WithContext(ctx), roomID, role, &n)
	return n, err
}

func countUnread(db *gorm.DB, roomID string, role domain.Role, n *int64) error {
	return db.Model(&domain.ChatMessage{}).
		Where("room_id = ? AND "+readField(role)+" = ?", roomID, false).
		Count(n).Error
}

// ListMessages newest first
func (s *GormStore) ListMessages(ctx context.Context, roomID string, beforeSeq int64, offset, limit int) ([]domain.ChatMessage, error) {
	msgs := []domain.ChatMessage{}
	err := s.messages(ctx, roomID, beforeSeq).
		Order("seq DESC").
		Offset(offset).
		Limit(limit).
		Find(&msgs).Error
	return msgs, err
}

// CountMessages messages of the room, older than beforeSeq when set
func (s *GormStore) CountMessages(ctx context.Context, roomID string, beforeSeq int64) (int64, error) {
	var n int64
	err := s.messages(ctx, roomID, beforeSeq).Model(&domain.ChatMessage{}).Count(&n).Error
	return n, err
}

func (s *GormStore) messages(ctx context.Context, roomID string, beforeSeq int64) *gorm.DB {
	q := s.db.WithContext(ctx).Where("room_id = ?", roomID)
	if beforeSeq > 0 {
		q = q.Where("seq < ?", beforeSeq)
	}
	return q
}
