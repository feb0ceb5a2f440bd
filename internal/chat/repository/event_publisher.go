package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"apartment_chat_service/internal/chat/domain"

	"github.com/segmentio/kafka-go"
	"github.com/streadway/amqp"
)

// EventPublisher export chat events to downstream consumers
type EventPublisher interface {
	Publish(ctx context.Context, ev domain.ChatEvent) error
	Close() error
}

// kafkaPublisher room id as key keeps one room's events in order on a partition
type kafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaEventPublisher create a kafka EventPublisher, writer must have its Topic set
func NewKafkaEventPublisher(writer *kafka.Writer) EventPublisher {
	return &kafkaPublisher{writer: writer}
}

func (p *kafkaPublisher) Publish(ctx context.Context, ev domain.ChatEvent) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.RoomID),
		Value: value,
		Time:  ev.OccurredAt,
	})
}

func (p *kafkaPublisher) Close() error {
	return p.writer.Close()
}

type rabbitPublisher struct {
	channel  *amqp.Channel
	exchange string
}

// NewRabbitEventPublisher create a rabbitmq EventPublisher on a topic exchange,
// routing key is the event type
func NewRabbitEventPublisher(ch *amqp.Channel, exchange string) (EventPublisher, error) {
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &rabbitPublisher{channel: ch, exchange: exchange}, nil
}

func (p *rabbitPublisher) Publish(_ context.Context, ev domain.ChatEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return p.channel.Publish(p.exchange, string(ev.Type), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    ev.OccurredAt,
		Body:         body,
	})
}

func (p *rabbitPublisher) Close() error {
	return p.channel.Close()
}

type nopPublisher struct{}

// NewNopEventPublisher events are dropped
func NewNopEventPublisher() EventPublisher { return nopPublisher{} }

func (nopPublisher) Publish(context.Context, domain.ChatEvent) error { return nil }
func (nopPublisher) Close() error                                    { return nil }

// NewChatEvent stamp an event
func NewChatEvent(t domain.EventType, room *domain.ChatRoom) domain.ChatEvent {
	return domain.ChatEvent{
		Type:        t,
		RoomID:      room.ID,
		ApartmentID: room.ApartmentID,
		OccurredAt:  time.Now().UTC(),
	}
}
