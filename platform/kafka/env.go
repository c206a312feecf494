package kafka

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// LoadEnv загружает конфигурацию из переменных окружения (caarlos0/env теги)
func LoadEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse kafka env: %w", err)
	}
	return cfg, nil
}

// Validate проверяет конфигурацию только если Kafka включена
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if len(c.Brokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED=true")
	}
	if c.OrderEventsTopic == "" {
		return fmt.Errorf("ORDER_EVENTS_TOPIC is required when KAFKA_ENABLED=true")
	}
	if c.OutboxBatchSize <= 0 || c.OutboxMaxRetries <= 0 || c.OutboxInterval <= 0 {
		return fmt.Errorf("OUTBOX_BATCH_SIZE, OUTBOX_MAX_RETRIES and OUTBOX_INTERVAL must be positive")
	}
	return nil
}
