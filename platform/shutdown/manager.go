package shutdown

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
)

// Manager управляет graceful shutdown сервиса.
// Перехватывает SIGINT/SIGTERM и выполняет зарегистрированные функции в обратном порядке регистрации.
type Manager struct {
	timeout time.Duration
	logger  *zap.Logger
	mu      sync.Mutex
	funcs   []shutdownFunc
}

type shutdownFunc struct {
	name string
	fn   func(context.Context) error
}

// New создаёт новый Manager с указанным таймаутом на каждую функцию
func New(timeout time.Duration, logger *zap.Logger) *Manager {
	return &Manager{
		timeout: timeout,
		logger:  logger,
	}
}

// Add регистрирует shutdown функцию с указанным именем
func (m *Manager) Add(name string, fn func(context.Context) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.funcs = append(m.funcs, shutdownFunc{name: name, fn: fn})
}

// Wait блокируется до SIGINT/SIGTERM или отмены ctx, затем вызывает Shutdown
func (m *Manager) Wait(ctx context.Context) error {
	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	<-sigCtx.Done()
	m.logger.Info("Received shutdown signal, starting graceful shutdown")

	return m.Shutdown()
}

// Shutdown выполняет зарегистрированные функции LIFO.
// Ошибки не прерывают остановку: все они собираются и возвращаются одной multierror.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	funcs := make([]shutdownFunc, len(m.funcs))
	copy(funcs, m.funcs)
	m.funcs = nil
	m.mu.Unlock()

	var result *multierror.Error
	for i := len(funcs) - 1; i >= 0; i-- {
		f := funcs[i]

		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		start := time.Now()
		err := f.fn(ctx)
		cancel()

		if err != nil {
			m.logger.Error("Shutdown function failed",
				zap.String("name", f.name),
				zap.Error(err),
				zap.Duration("duration", time.Since(start)))
			result = multierror.Append(result, fmt.Errorf("%s: %w", f.name, err))
			continue
		}
		m.logger.Info("Shutdown function completed",
			zap.String("name", f.name),
			zap.Duration("duration", time.Since(start)))
	}

	m.logger.Info("Graceful shutdown completed")
	return result.ErrorOrNil()
}

// ShutdownHTTPServer возвращает shutdown функцию для http.Server
func ShutdownHTTPServer(srv interface {
	Shutdown(context.Context) error
}) func(context.Context) error {
	return func(ctx context.Context) error {
		return srv.Shutdown(ctx)
	}
}

// ClosePool возвращает shutdown функцию для закрытия connection pool
func ClosePool(pool interface {
	Close()
}) func(context.Context) error {
	return func(ctx context.Context) error {
		pool.Close()
		return nil
	}
}

// CloseCloser возвращает shutdown функцию для io.Closer (redis client, kafka writer)
func CloseCloser(c io.Closer) func(context.Context) error {
	return func(ctx context.Context) error {
		return c.Close()
	}
}

// CancelFunc возвращает shutdown функцию, отменяющую фоновые горутины и ждущую их завершения
func CancelFunc(cancel context.CancelFunc, done <-chan struct{}) func(context.Context) error {
	return func(ctx context.Context) error {
		cancel()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return fmt.Errorf("background worker did not stop in time")
		}
	}
}
