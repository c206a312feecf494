package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/Edward-Mann/book-store/internal/repository"
	platformkafka "github.com/Edward-Mann/book-store/platform/kafka"
)

// MessageWriter - часть kafka.Writer, нужная dispatcher'у
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// OutboxDispatcher читает pending события из outbox и публикует их в Kafka.
// Событие помечается sent только после успешной записи в брокер, поэтому доставка at-least-once.
type OutboxDispatcher struct {
	logger     *zap.Logger
	repo       repository.OrderRepository
	writer     MessageWriter
	batchSize  int
	interval   time.Duration
	maxRetries int
	backoff    time.Duration
}

// NewOutboxDispatcher создаёт dispatcher c kafka.Writer на брокеры из конфигурации
func NewOutboxDispatcher(logger *zap.Logger, repo repository.OrderRepository, cfg platformkafka.Config) *OutboxDispatcher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{}, // события одного заказа попадают в одну партицию
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return NewOutboxDispatcherWithWriter(logger, repo, writer, cfg)
}

// NewOutboxDispatcherWithWriter создаёт dispatcher с произвольным writer (используется в тестах)
func NewOutboxDispatcherWithWriter(logger *zap.Logger, repo repository.OrderRepository, writer MessageWriter, cfg platformkafka.Config) *OutboxDispatcher {
	d := &OutboxDispatcher{
		logger:     logger,
		repo:       repo,
		writer:     writer,
		batchSize:  cfg.OutboxBatchSize,
		interval:   cfg.OutboxInterval,
		maxRetries: cfg.OutboxMaxRetries,
		backoff:    cfg.OutboxBackoff,
	}
	if d.batchSize <= 0 {
		d.batchSize = 50
	}
	if d.interval <= 0 {
		d.interval = 2 * time.Second
	}
	if d.maxRetries <= 0 {
		d.maxRetries = 1
	}
	return d
}

// Run обрабатывает outbox сразу и затем раз в interval, пока ctx не отменён
func (d *OutboxDispatcher) Run(ctx context.Context) error {
	d.logger.Info("outbox dispatcher started",
		zap.Int("batch_size", d.batchSize),
		zap.Duration("interval", d.interval),
		zap.Int("max_retries", d.maxRetries),
	)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		if _, err := d.DispatchBatch(ctx); err != nil && ctx.Err() == nil {
			d.logger.Error("outbox batch failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			d.logger.Info("outbox dispatcher stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// DispatchBatch публикует один батч pending событий и возвращает число опубликованных.
// Ошибка публикации отдельного события не прерывает батч.
func (d *OutboxDispatcher) DispatchBatch(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	events, err := d.repo.GetPendingOutboxEvents(ctx, d.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, fmt.Errorf("get pending outbox events: %w", err)
	}
	if len(events) == 0 {
		return 0, nil
	}
	d.logger.Debug("dispatching outbox batch", zap.Int("count", len(events)))

	sent := 0
	for _, event := range events {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		if err := d.dispatch(ctx, event); err != nil {
			if ctx.Err() != nil {
				return sent, ctx.Err()
			}
			d.logger.Error("outbox event not published",
				zap.Error(err),
				zap.String("event_id", event.EventID),
				zap.String("topic", event.Topic),
			)
			continue
		}
		sent++
	}
	return sent, nil
}

// dispatch публикует событие с повторами и линейным backoff.
// После исчерпания попыток событие фиксируется как failed (с текстом ошибки) и возвращается в pending.
func (d *OutboxDispatcher) dispatch(ctx context.Context, event repository.OutboxEvent) error {
	msg := kafka.Message{
		Topic: event.Topic,
		Key:   []byte(event.AggregateID),
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(event.EventID)},
		},
	}

	var lastErr error
	for attempt := 1; attempt <= d.maxRetries; attempt++ {
		if lastErr = d.writer.WriteMessages(ctx, msg); lastErr == nil {
			if err := d.repo.MarkOutboxEventSent(ctx, event.EventID); err != nil {
				return fmt.Errorf("mark outbox event sent: %w", err)
			}
			d.logger.Info("order event published",
				zap.String("event_id", event.EventID),
				zap.String("topic", event.Topic),
				zap.String("order_id", event.AggregateID),
				zap.Int("attempt", attempt),
			)
			return nil
		}

		d.logger.Warn("publish attempt failed",
			zap.Error(lastErr),
			zap.String("event_id", event.EventID),
			zap.Int("attempt", attempt),
			zap.Int("max_retries", d.maxRetries),
		)
		if attempt == d.maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d.backoff * time.Duration(attempt)):
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	reason := fmt.Sprintf("failed after %d attempts: %v", d.maxRetries, lastErr)
	if err := d.repo.MarkOutboxEventFailed(ctx, event.EventID, reason); err != nil {
		return fmt.Errorf("mark outbox event failed: %w", err)
	}
	// следующий цикл dispatcher'а попробует снова
	if err := d.repo.ResetOutboxEventPending(ctx, event.EventID); err != nil {
		d.logger.Error("failed to reset outbox event to pending", zap.Error(err), zap.String("event_id", event.EventID))
	}
	return fmt.Errorf("publish outbox event: %w", lastErr)
}

// Close закрывает Kafka writer
func (d *OutboxDispatcher) Close() error {
	d.logger.Info("closing outbox dispatcher")
	return d.writer.Close()
}
