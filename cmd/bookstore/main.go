package main

import (
	"context"
	"log"

	"github.com/Edward-Mann/book-store/internal/app"
	"github.com/Edward-Mann/book-store/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	// Build собирает граф зависимостей: хранилища, сервисы, HTTP роутер, outbox dispatcher
	application, err := app.Build(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to build app: %v", err)
	}

	// Run блокируется до SIGINT/SIGTERM и graceful shutdown
	if err := application.Run(ctx); err != nil {
		log.Fatalf("Service error: %v", err)
	}
}
