package database

import (
	"context"
	"fmt"
	"time"

	"apartment_chat_service/pkg/logger"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// NewKafkaWriterWithRetry 嘗試連上任一 broker 確認連線後建立 Kafka Writer
func NewKafkaWriterWithRetry(k KafkaConnection) (*kafka.Writer, error) {
	var err error

	for attempt := 1; attempt <= k.RetryCount; attempt++ {
		if err = pingBrokers(k.Brokers); err == nil {
			logger.Log.Info("Kafka Writer 建立成功", zap.Int("attempt", attempt), zap.String("topic", k.Topic))
			return newKafkaWriter(k), nil
		}

		logger.Log.Warn("Kafka Writer 建立失敗",
			zap.Int("attempt", attempt),
			zap.Int("max", k.RetryCount),
			zap.Error(err),
		)
		time.Sleep(k.RetryInterval * time.Second)
	}

	return nil, fmt.Errorf("無法建立 Kafka Writer，經過 %d 次嘗試: %v", k.RetryCount, err)
}

// kafkaBatchTimeout WriteMessages 是同步的, 每次呼叫最多等這麼久才送出
const kafkaBatchTimeout = 10 * time.Millisecond

func newKafkaWriter(k KafkaConnection) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(k.Brokers...),
		Topic:                  k.Topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           kafkaBatchTimeout,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
}

func pingBrokers(brokers []string) error {
	if len(brokers) == 0 {
		return fmt.Errorf("no kafka brokers")
	}
	var err error
	for _, b := range brokers {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		var conn *kafka.Conn
		conn, err = kafka.DialContext(ctx, "tcp", b)
		cancel()
		if err == nil {
			return conn.Close()
		}
	}
	return err
}
