package app

import (
	"context"

	"apartment_chat_service/internal/chat/domain"
	"apartment_chat_service/internal/chat/repository"
	"apartment_chat_service/pkg/logger"

	"go.uber.org/zap"
)

// Broadcaster routes deliveries through the relay so every gateway node fans out to
// its own connections
type Broadcaster struct {
	hub   *Hub
	relay repository.DeliveryRelay
}

// NewBroadcaster create Broadcaster
func NewBroadcaster(hub *Hub, relay repository.DeliveryRelay) *Broadcaster {
	return &Broadcaster{hub: hub, relay: relay}
}

// Start subscribe the local hub to the relay
func (b *Broadcaster) Start(ctx context.Context) error {
	return b.relay.Subscribe(ctx, func(d domain.Delivery) {
		b.hub.Deliver(d)
	})
}

// Broadcast encode the event and publish it; if the relay is down the local node still delivers
func (b *Broadcaster) Broadcast(ctx context.Context, d domain.Delivery, event domain.Action, data interface{}) {
	payload, err := domain.Encode(event, data)
	if err != nil {
		logger.Log.Error("encode event", zap.String("event", string(event)), zap.Error(err))
		return
	}
	d.Payload = payload
	if err := b.relay.Publish(ctx, d); err != nil {
		logger.Log.Warn("relay publish failed, delivering locally",
			zap.String("event", string(event)),
			zap.String("room_id", d.RoomID),
			zap.Error(err),
		)
		b.hub.Deliver(d)
	}
}
