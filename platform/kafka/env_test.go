package kafka

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadEnv_Defaults(t *testing.T) {
	for _, key := range []string{"KAFKA_ENABLED", "KAFKA_BROKERS", "ORDER_EVENTS_TOPIC", "OUTBOX_INTERVAL"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	cfg, err := LoadEnv()
	require.NoError(t, err)
	require.False(t, cfg.Enabled)
	require.Equal(t, []string{"localhost:19092"}, cfg.Brokers)
	require.Equal(t, "bookstore.order.placed", cfg.OrderEventsTopic)
	require.Equal(t, 2*time.Second, cfg.OutboxInterval)
	require.NoError(t, cfg.Validate())
}

func TestLoadEnv_Overrides(t *testing.T) {
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")
	t.Setenv("OUTBOX_BATCH_SIZE", "10")

	cfg, err := LoadEnv()
	require.NoError(t, err)
	require.True(t, cfg.Enabled)
	require.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Brokers)
	require.Equal(t, 10, cfg.OutboxBatchSize)
	require.NoError(t, cfg.Validate())
}

func TestValidate_EnabledWithoutTopic(t *testing.T) {
	cfg := Config{Enabled: true, Brokers: []string{"kafka:9092"}, OutboxBatchSize: 1, OutboxMaxRetries: 1, OutboxInterval: time.Second}
	require.Error(t, cfg.Validate())
}
