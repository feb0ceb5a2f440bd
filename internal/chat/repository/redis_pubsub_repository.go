package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"apartment_chat_service/internal/chat/domain"
	"apartment_chat_service/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// DeliveryRelay carries deliveries to every gateway node, the publishing node included
type DeliveryRelay interface {
	Publish(ctx context.Context, d domain.Delivery) error
	// Subscribe handler runs for each delivery until ctx is done
	Subscribe(ctx context.Context, handler func(domain.Delivery)) error
}

// RedisPubSub definition redis pub/sub relay
type RedisPubSub struct {
	client  *redis.Client
	channel string
}

// NewRedisPubSub create RedisPubSub on one channel
func NewRedisPubSub(client *redis.Client, channel string) *RedisPubSub {
	return &RedisPubSub{
		client:  client,
		channel: channel,
	}
}

// Publish 將 delivery 序列化後，發布到 channel
func (r *RedisPubSub) Publish(ctx context.Context, d domain.Delivery) error {
	data, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.channel, data).Err()
}

// Subscribe 訂閱 channel，收到 delivery 後呼叫 handler 處理
func (r *RedisPubSub) Subscribe(ctx context.Context, handler func(domain.Delivery)) error {
	sub := r.client.Subscribe(ctx, r.channel)
	// 確認訂閱成功再返回
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case m, ok := <-ch:
				if !ok {
					return
				}
				var d domain.Delivery
				if err := json.Unmarshal([]byte(m.Payload), &d); err != nil {
					logger.Log.Error("relay decode", zap.String("channel", r.channel), zap.Error(err))
					continue
				}
				handler(d)
			case <-ctx.Done():
				logger.Log.Info(fmt.Sprintf("%s , sub close", r.channel))
				return
			}
		}
	}()
	return nil
}

// LocalRelay single node relay, publish calls the subscriber directly
type LocalRelay struct {
	mu      sync.RWMutex
	handler func(domain.Delivery)
	gen     uint64
}

// NewLocalRelay create LocalRelay
func NewLocalRelay() *LocalRelay {
	return &LocalRelay{}
}

// Publish run the current subscriber on the caller's goroutine; without one the delivery is dropped
func (l *LocalRelay) Publish(_ context.Context, d domain.Delivery) error {
	l.mu.RLock()
	h := l.handler
	l.mu.RUnlock()
	if h != nil {
		h(d)
	}
	return nil
}

// Subscribe replace the subscriber; it is removed again once ctx is done
func (l *LocalRelay) Subscribe(ctx context.Context, handler func(domain.Delivery)) error {
	l.mu.Lock()
	l.gen++
	gen := l.gen
	l.handler = handler
	l.mu.Unlock()

	go func() {
		<-ctx.Done()
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.gen == gen {
			l.handler = nil
		}
	}()
	return nil
}
