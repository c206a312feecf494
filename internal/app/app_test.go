package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Edward-Mann/book-store/internal/config"
)

func memoryConfig() config.Config {
	return config.Config{
		AppEnv:            config.EnvLocal,
		HTTPAddr:          "127.0.0.1:0",
		ShutdownTimeout:   time.Second,
		StorageDriver:     config.StorageMemory,
		SessionStore:      config.SessionMemory,
		SessionTTL:        time.Minute,
		BcryptCost:        4,
		LogLevel:          "error",
		OTelSamplingRatio: 1,
		Admin: config.AdminConfig{
			Username: "admin",
			Password: "secret123",
			Email:    "admin@example.com",
		},
	}
}

func TestBuildAndRun_InMemory(t *testing.T) {
	a, err := Build(context.Background(), memoryConfig())
	require.NoError(t, err)
	require.Nil(t, a.dispatcher)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop after context cancel")
	}
}

func TestBuild_WithKafkaCreatesDispatcher(t *testing.T) {
	cfg := memoryConfig()
	cfg.Kafka.Enabled = true
	cfg.Kafka.Brokers = []string{"127.0.0.1:19092"}
	cfg.Kafka.OrderEventsTopic = "bookstore.order.placed"

	a, err := Build(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, a.dispatcher)
	require.NoError(t, a.shutdownMgr.Shutdown())
}
