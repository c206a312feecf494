package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/Edward-Mann/book-store/internal/service"
)

// MessageReader - часть kafka.Reader, нужная consumer'у
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// OrderPlacedHandler обрабатывает событие оформленного заказа
type OrderPlacedHandler func(ctx context.Context, event service.OrderPlacedEvent) error

// OrderEventsConsumer читает события order.placed из Kafka.
// Offset коммитится только после успешной обработки (at-least-once).
type OrderEventsConsumer struct {
	logger    *zap.Logger
	reader    MessageReader
	handler   OrderPlacedHandler
	processed ProcessedEvents
	dedupTTL  time.Duration
	dlq       *DeadLetterPublisher
}

// NewOrderEventsConsumer создаёт consumer с kafka.Reader в группе groupID
func NewOrderEventsConsumer(logger *zap.Logger, brokers []string, groupID, topic string, handler OrderPlacedHandler) *OrderEventsConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		GroupID:  groupID,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})
	return NewOrderEventsConsumerWithReader(logger, reader, handler)
}

// NewOrderEventsConsumerWithReader создаёт consumer с произвольным reader (используется в тестах)
func NewOrderEventsConsumerWithReader(logger *zap.Logger, reader MessageReader, handler OrderPlacedHandler) *OrderEventsConsumer {
	return &OrderEventsConsumer{logger: logger, reader: reader, handler: handler}
}

// WithDeduplication включает пропуск уже обработанных event_id в течение ttl
func (c *OrderEventsConsumer) WithDeduplication(store ProcessedEvents, ttl time.Duration) *OrderEventsConsumer {
	c.processed = store
	c.dedupTTL = ttl
	return c
}

// WithDeadLetters отправляет битые и необработанные сообщения в DLQ вместо остановки consumer'а
func (c *OrderEventsConsumer) WithDeadLetters(p *DeadLetterPublisher) *OrderEventsConsumer {
	c.dlq = p
	return c
}

// Run читает сообщения до отмены ctx
func (c *OrderEventsConsumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("fetch message: %w", err)
		}

		if err := c.handle(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			// сообщение без коммита будет прочитано повторно после перезапуска
			return err
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("commit message: %w", err)
		}
	}
}

func (c *OrderEventsConsumer) handle(ctx context.Context, msg kafka.Message) error {
	var event service.OrderPlacedEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		// битое сообщение пропускаем, иначе consumer застрянет на нём
		c.logger.Error("skipping malformed order event",
			zap.Error(err),
			zap.String("topic", msg.Topic),
			zap.Int("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
		)
		if c.dlq != nil {
			return c.dlq.Publish(ctx, msg, err, "", 0)
		}
		return nil
	}
	if event.EventType != service.OrderPlacedEventType {
		c.logger.Debug("skipping unknown event type", zap.String("event_type", event.EventType))
		return nil
	}

	if c.processed != nil {
		done, err := c.processed.IsProcessed(ctx, event.EventID)
		if err != nil {
			return fmt.Errorf("check processed event: %w", err)
		}
		if done {
			c.logger.Debug("skipping duplicate order event", zap.String("event_id", event.EventID))
			return nil
		}
	}

	if err := c.handler(ctx, event); err != nil {
		c.logger.Error("order event handler failed",
			zap.Error(err),
			zap.String("event_id", event.EventID),
			zap.Int64("order_id", event.OrderID),
		)
		if c.dlq != nil {
			return c.dlq.Publish(ctx, msg, err, event.EventID, event.OrderID)
		}
		return errors.Join(errHandlerFailed, err)
	}

	if c.processed != nil {
		if err := c.processed.MarkProcessed(ctx, event.EventID, c.dedupTTL); err != nil {
			return fmt.Errorf("mark event processed: %w", err)
		}
	}
	return nil
}

var errHandlerFailed = errors.New("order event handler failed")

// Close закрывает Kafka reader
func (c *OrderEventsConsumer) Close() error {
	return c.reader.Close()
}
