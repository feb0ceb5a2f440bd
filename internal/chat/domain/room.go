package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role chat party role
type Role string

const (
	// RoleAdmin apartment administrator
	RoleAdmin Role = "ADMIN"
	// RoleUser resident
	RoleUser Role = "USER"
)

// Valid role is one of the two chat parties
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// Opposite the other party of a room
func (r Role) Opposite() Role {
	if r == RoleAdmin {
		return RoleUser
	}
	return RoleAdmin
}

// RoomCollection mongo collection names
type RoomCollection string

const (
	// Rooms chat room collection
	Rooms RoomCollection = "chat_rooms"
	// Messages chat message collection
	Messages RoomCollection = "chat_messages"
)

// ChatRoom conversation between one resident and the administrators of the resident's apartment.
// LastMessage* and UnreadCount* are display caches, the message log is the source of truth.
type ChatRoom struct {
	ID                     string     `bson:"_id" json:"id" gorm:"primaryKey"`
	ApartmentID            string     `bson:"apartment_id" json:"apartmentId" gorm:"index"`
	ResidentID             string     `bson:"resident_id" json:"residentId" gorm:"uniqueIndex"`
	ResidentName           string     `bson:"resident_name,omitempty" json:"residentName,omitempty"`
	LastMessageContent     string     `bson:"last_message_content" json:"lastMessageContent"`
	LastMessageAt          *time.Time `bson:"last_message_at,omitempty" json:"lastMessageAt"`
	UnreadCountForAdmin    int64      `bson:"unread_count_for_admin" json:"unreadCountForAdmin"`
	UnreadCountForResident int64      `bson:"unread_count_for_resident" json:"unreadCountForResident"`
	MessageSeq             int64      `bson:"message_seq" json:"-"`
	CreatedAt              time.Time  `bson:"created_at" json:"createdAt"`
	UpdatedAt              time.Time  `bson:"updated_at" json:"updatedAt"`
}

// NewChatRoom build a room for a resident
func NewChatRoom(apartmentID, residentID, residentName string, now time.Time) *ChatRoom {
	return &ChatRoom{
		ID:           uuid.New().String(),
		ApartmentID:  apartmentID,
		ResidentID:   residentID,
		ResidentName: residentName,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// UnreadFor unread counter of the given side
func (r *ChatRoom) UnreadFor(role Role) int64 {
	if role == RoleAdmin {
		return r.UnreadCountForAdmin
	}
	return r.UnreadCountForResident
}

// RoomDetail room plus its newest page, returned when a party opens the room
type RoomDetail struct {
	Room     *ChatRoom    `json:"room"`
	Messages *MessagePage `json:"messages"`
}

// ValidRoomID room ids are uuids
func ValidRoomID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
