package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// DeadLetter - сообщение order events, которое не удалось обработать
type DeadLetter struct {
	OriginalTopic     string    `json:"original_topic"`
	OriginalPartition int       `json:"original_partition"`
	OriginalOffset    int64     `json:"original_offset"`
	OriginalKey       string    `json:"original_key"`
	OriginalValue     string    `json:"original_value"`
	Error             string    `json:"error"`
	FailedAt          time.Time `json:"failed_at"`
	EventID           string    `json:"event_id,omitempty"`
	OrderID           int64     `json:"order_id,omitempty"`
}

// DeadLetterPublisher пишет необработанные сообщения в отдельный топик
type DeadLetterPublisher struct {
	logger *zap.Logger
	writer MessageWriter
	topic  string
}

// NewDeadLetterPublisher создаёт publisher поверх kafka.Writer на брокеры brokers
func NewDeadLetterPublisher(logger *zap.Logger, brokers []string, topic string) *DeadLetterPublisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return NewDeadLetterPublisherWithWriter(logger, writer, topic)
}

// NewDeadLetterPublisherWithWriter создаёт publisher с произвольным writer (используется в тестах)
func NewDeadLetterPublisherWithWriter(logger *zap.Logger, writer MessageWriter, topic string) *DeadLetterPublisher {
	return &DeadLetterPublisher{logger: logger, writer: writer, topic: topic}
}

// Publish отправляет исходное сообщение вместе с причиной ошибки
func (p *DeadLetterPublisher) Publish(ctx context.Context, original kafka.Message, cause error, eventID string, orderID int64) error {
	letter := DeadLetter{
		OriginalTopic:     original.Topic,
		OriginalPartition: original.Partition,
		OriginalOffset:    original.Offset,
		OriginalKey:       string(original.Key),
		OriginalValue:     string(original.Value),
		Error:             cause.Error(),
		FailedAt:          time.Now().UTC(),
		EventID:           eventID,
		OrderID:           orderID,
	}
	payload, err := json.Marshal(letter)
	if err != nil {
		return fmt.Errorf("marshal dead letter: %w", err)
	}

	key := original.Key
	if orderID != 0 {
		key = []byte(strconv.FormatInt(orderID, 10))
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{Topic: p.topic, Key: key, Value: payload}); err != nil {
		return fmt.Errorf("write dead letter: %w", err)
	}

	p.logger.Warn("order event sent to dead letter topic",
		zap.String("topic", p.topic),
		zap.String("original_topic", original.Topic),
		zap.Int64("original_offset", original.Offset),
		zap.String("event_id", eventID),
		zap.String("error", cause.Error()),
	)
	return nil
}

// Close закрывает writer
func (p *DeadLetterPublisher) Close() error {
	return p.writer.Close()
}
