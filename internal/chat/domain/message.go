package domain

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// ChatMessage one message of a room. Seq is assigned by the store on write and
// gives the authoritative order; the read flags only ever go from false to true.
type ChatMessage struct {
	ID               string    `bson:"_id" json:"id" gorm:"primaryKey"`
	RoomID           string    `bson:"room_id" json:"roomId" gorm:"uniqueIndex:idx_room_seq"`
	Seq              int64     `bson:"seq" json:"seq" gorm:"uniqueIndex:idx_room_seq"`
	SenderID         string    `bson:"sender_id" json:"senderId"`
	SenderRole       Role      `bson:"sender_role" json:"senderRole"`
	Content          string    `bson:"content" json:"content"`
	CreatedAt        time.Time `bson:"created_at" json:"createdAt"`
	IsReadByAdmin    bool      `bson:"is_read_by_admin" json:"isReadByAdmin"`
	IsReadByResident bool      `bson:"is_read_by_resident" json:"isReadByResident"`
}

// NewChatMessage a sender has always read its own message
func NewChatMessage(roomID string, sender Identity, content string, now time.Time) *ChatMessage {
	return &ChatMessage{
		ID:               uuid.New().String(),
		RoomID:           roomID,
		SenderID:         sender.UserID,
		SenderRole:       sender.Role,
		Content:          content,
		CreatedAt:        now,
		IsReadByAdmin:    sender.Role == RoleAdmin,
		IsReadByResident: sender.Role == RoleUser,
	}
}

// ReadBy read flag of the given role
func (m *ChatMessage) ReadBy(role Role) bool {
	if role == RoleAdmin {
		return m.IsReadByAdmin
	}
	return m.IsReadByResident
}

// PageQuery page is 1-based; a non-zero Cursor asks for messages with Seq below it
type PageQuery struct {
	Page     int
	PageSize int
	Cursor   int64
}

// Offset rows to skip in offset mode
func (q PageQuery) Offset() int {
	if q.Cursor > 0 || q.Page <= 1 {
		return 0
	}
	return (q.Page - 1) * q.PageSize
}

// Pagination page metadata
type Pagination struct {
	Page       int     `json:"page"`
	Limit      int     `json:"limit"`
	TotalCount int64   `json:"totalCount"`
	TotalPages int     `json:"totalPages"`
	HasNext    bool    `json:"hasNext"`
	NextCursor *string `json:"nextCursor"`
}

// MessagePage newest first
type MessagePage struct {
	Data       []ChatMessage `json:"data"`
	Pagination Pagination    `json:"pagination"`
}

// NewPagination build metadata; nextCursor is the seq of the oldest message on the page
func NewPagination(q PageQuery, total int64, hasNext bool, data []ChatMessage) Pagination {
	p := Pagination{
		Page:       q.Page,
		Limit:      q.PageSize,
		TotalCount: total,
		HasNext:    hasNext,
	}
	if q.PageSize > 0 {
		p.TotalPages = int((total + int64(q.PageSize) - 1) / int64(q.PageSize))
	}
	if hasNext && len(data) > 0 {
		c := strconv.FormatInt(data[len(data)-1].Seq, 10)
		p.NextCursor = &c
	}
	return p
}
