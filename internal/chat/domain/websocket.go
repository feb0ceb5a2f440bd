package domain

import (
	"encoding/json"
	"time"
)

// Action websocket event name
type Action string

// client -> server
const (
	// JoinRoom websocket action join_room
	JoinRoom Action = "join_room"
	// LeaveRoom websocket action leave_room
	LeaveRoom Action = "leave_room"
	// SendMessage websocket action send_message
	SendMessage Action = "send_message"
	// MarkAsRead websocket action mark_as_read
	MarkAsRead Action = "mark_as_read"
	// Typing websocket action typing
	Typing Action = "typing"
)

// server -> client
const (
	// JoinRoomSuccess join acknowledged
	JoinRoomSuccess Action = "join_room_success"
	// LeaveRoomSuccess leave acknowledged
	LeaveRoomSuccess Action = "leave_room_success"
	// NewMessage persisted message
	NewMessage Action = "new_message"
	// MessagesRead the other party read its incoming messages
	MessagesRead Action = "messages_read"
	// UserTyping typing presence
	UserTyping Action = "user_typing"
	// Error per-connection error
	Error Action = "error"
)

// WSRequest websocket Request
type WSRequest struct {
	Event Action        `json:"event"`
	Data  WSRequestData `json:"data"`
}

// WSRequestData union of the client event payloads
type WSRequestData struct {
	RoomID   string `json:"roomId"`
	Content  string `json:"content,omitempty"`
	IsTyping bool   `json:"isTyping,omitempty"`
}

// WSEvent websocket Response
type WSEvent struct {
	Event Action      `json:"event"`
	Data  interface{} `json:"data"`
}

// RoomAck join_room_success / leave_room_success payload
type RoomAck struct {
	RoomID string `json:"roomId"`
}

// MessagesReadPayload messages_read payload
type MessagesReadPayload struct {
	RoomID       string `json:"roomId"`
	ReaderRole   Role   `json:"readerRole"`
	UpdatedCount int64  `json:"updatedCount"`
}

// UserTypingPayload user_typing payload
type UserTypingPayload struct {
	RoomID   string `json:"roomId"`
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	IsTyping bool   `json:"isTyping"`
}

// ErrorPayload error payload
type ErrorPayload struct {
	Message string `json:"message"`
}

// Encode marshal an event for the wire
func Encode(event Action, data interface{}) ([]byte, error) {
	return json.Marshal(WSEvent{Event: event, Data: data})
}

// Delivery who should receive an encoded event. Every gateway node evaluates it
// against its own sessions, so it has to stay serialisable.
type Delivery struct {
	// RoomID everyone joined to the room
	RoomID string `json:"roomId,omitempty"`
	// ExcludeConnID skip this connection (the caller)
	ExcludeConnID string `json:"excludeConnId,omitempty"`
	// ExcludeUserID skip every connection of this user
	ExcludeUserID string `json:"excludeUserId,omitempty"`

	// ApartmentID + NotJoinedRole: sessions of that role in the apartment that are not
	// joined to RoomID. NotJoinedUserID narrows it to one user (the room's resident).
	ApartmentID     string `json:"apartmentId,omitempty"`
	NotJoinedRole   Role   `json:"notJoinedRole,omitempty"`
	NotJoinedUserID string `json:"notJoinedUserId,omitempty"`

	Payload json.RawMessage `json:"payload"`
}

// EventType chat event stream type
type EventType string

const (
	// EventMessageCreated a message was persisted
	EventMessageCreated EventType = "message_created"
	// EventMessagesRead a party read its incoming messages
	EventMessagesRead EventType = "messages_read"
	// EventRoomCreated a room was created
	EventRoomCreated EventType = "room_created"
)

// ChatEvent exported to the event stream for downstream consumers
type ChatEvent struct {
	Type         EventType    `json:"type"`
	RoomID       string       `json:"roomId"`
	ApartmentID  string       `json:"apartmentId"`
	Message      *ChatMessage `json:"message,omitempty"`
	ReaderRole   Role         `json:"readerRole,omitempty"`
	UpdatedCount int64        `json:"updatedCount,omitempty"`
	OccurredAt   time.Time    `json:"occurredAt"`
}
