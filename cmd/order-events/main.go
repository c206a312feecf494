// Package main - утилита, читающая события оформленных заказов из Kafka и пишущая их в лог.
//
// Конфигурация берётся из тех же переменных окружения, что и у сервиса
// (KAFKA_BROKERS, ORDER_EVENTS_TOPIC); группа consumer'а задаётся ORDER_EVENTS_GROUP,
// необязательный DLQ топик - ORDER_EVENTS_DLQ_TOPIC.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	eventkafka "github.com/Edward-Mann/book-store/internal/event/kafka"
	"github.com/Edward-Mann/book-store/internal/service"
	platformkafka "github.com/Edward-Mann/book-store/platform/kafka"
	platformlogging "github.com/Edward-Mann/book-store/platform/logging"
)

func main() {
	logger, err := platformlogging.New(platformlogging.Config{
		ServiceName: "order-events",
		Env:         "local",
		Level:       os.Getenv("LOG_LEVEL"),
		Format:      "console",
		AddCaller:   true,
	})
	if err != nil {
		os.Stderr.WriteString("Failed to initialize logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer platformlogging.Sync(logger)

	cfg, err := platformkafka.LoadEnv()
	if err != nil {
		logger.Fatal("failed to load kafka config", zap.Error(err))
	}
	groupID := os.Getenv("ORDER_EVENTS_GROUP")
	if groupID == "" {
		groupID = "bookstore-order-events-tail"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumer := eventkafka.NewOrderEventsConsumer(logger, cfg.Brokers, groupID, cfg.OrderEventsTopic,
		func(ctx context.Context, e service.OrderPlacedEvent) error {
			logger.Info("order placed",
				zap.String("event_id", e.EventID),
				zap.Int64("order_id", e.OrderID),
				zap.Int64("customer_id", e.CustomerID),
				zap.String("total_price", e.TotalPrice.StringFixed(2)),
				zap.Int("items", len(e.Items)),
				zap.Time("occurred_at", e.OccurredAt),
			)
			return nil
		}).WithDeduplication(eventkafka.NewMemoryProcessedEvents(), 24*time.Hour)
	if topic := os.Getenv("ORDER_EVENTS_DLQ_TOPIC"); topic != "" {
		dlq := eventkafka.NewDeadLetterPublisher(logger, cfg.Brokers, topic)
		defer dlq.Close()
		consumer.WithDeadLetters(dlq)
	}
	defer func() {
		if err := consumer.Close(); err != nil {
			logger.Error("failed to close kafka reader", zap.Error(err))
		}
	}()

	logger.Info("reading order events",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("topic", cfg.OrderEventsTopic),
		zap.String("group_id", groupID),
	)
	if err := consumer.Run(ctx); err != nil {
		logger.Error("consumer stopped with error", zap.Error(err))
		os.Exit(1)
	}
}
