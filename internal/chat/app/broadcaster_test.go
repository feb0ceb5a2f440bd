package app

import (
	"context"
	"errors"
	"testing"

	"apartment_chat_service/internal/chat/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcaster_ThroughRelay(t *testing.T) {
	hub := NewHub()
	relay := &MockDeliveryRelay{}
	b := NewBroadcaster(hub, relay)
	require.NoError(t, b.Start(context.Background()))

	s := hub.Register(adminA, 4)
	hub.Join(s, "room-1")

	b.Broadcast(context.Background(), domain.Delivery{RoomID: "room-1"}, domain.UserTyping, domain.UserTypingPayload{RoomID: "room-1", IsTyping: true})

	require.Len(t, relay.Published(), 1)
	evs := only(t, s, domain.UserTyping)
	require.Len(t, evs, 1)
	assert.True(t, decode[domain.UserTypingPayload](t, evs[0]).IsTyping)
}

func TestBroadcaster_RelayDownDeliversLocally(t *testing.T) {
	hub := NewHub()
	relay := &MockDeliveryRelay{Fail: errors.New("redis: connection refused")}
	b := NewBroadcaster(hub, relay)
	require.NoError(t, b.Start(context.Background()))

	s := hub.Register(adminA, 4)
	hub.Join(s, "room-1")

	b.Broadcast(context.Background(), domain.Delivery{RoomID: "room-1"}, domain.NewMessage, domain.ChatMessage{ID: "m1"})
	assert.Empty(t, relay.Published())
	assert.Len(t, only(t, s, domain.NewMessage), 1)
}

func TestBroadcaster_EncodeFailure(t *testing.T) {
	hub := NewHub()
	relay := &MockDeliveryRelay{}
	b := NewBroadcaster(hub, relay)

	b.Broadcast(context.Background(), domain.Delivery{RoomID: "room-1"}, domain.NewMessage, make(chan int))
	assert.Empty(t, relay.Published())
}
