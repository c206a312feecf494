package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	httpapi "github.com/Edward-Mann/book-store/internal/api/http"
	"github.com/Edward-Mann/book-store/internal/config"
	eventkafka "github.com/Edward-Mann/book-store/internal/event/kafka"
	"github.com/Edward-Mann/book-store/internal/repository"
	"github.com/Edward-Mann/book-store/internal/repository/memory"
	"github.com/Edward-Mann/book-store/internal/repository/postgres"
	redisrepo "github.com/Edward-Mann/book-store/internal/repository/redis"
	"github.com/Edward-Mann/book-store/internal/service"
	platformlogging "github.com/Edward-Mann/book-store/platform/logging"
	platformobservability "github.com/Edward-Mann/book-store/platform/observability"
	platformshutdown "github.com/Edward-Mann/book-store/platform/shutdown"
)

const serviceName = "bookstore"

// App содержит все зависимости для запуска и корректного shutdown Book Store
type App struct {
	logger      *zap.Logger
	httpServer  *http.Server
	shutdownMgr *platformshutdown.Manager
	dispatcher  *eventkafka.OutboxDispatcher
	wg          sync.WaitGroup
}

// Build создаёт и настраивает все зависимости Book Store.
// При ошибке уже открытые ресурсы закрываются.
func Build(ctx context.Context, cfg config.Config) (_ *App, err error) {
	logger, err := platformlogging.New(platformlogging.Config{
		ServiceName: serviceName,
		Env:         string(cfg.AppEnv),
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
	})
	if err != nil {
		return nil, err
	}
	cfg.Log(logger)

	shutdownMgr := platformshutdown.New(cfg.ShutdownTimeout, logger)
	defer func() {
		if err != nil {
			_ = shutdownMgr.Shutdown()
		}
	}()

	otelShutdown, err := platformobservability.Init(ctx, platformobservability.Config{
		Enabled:               cfg.OTelEnabled,
		OTLPEndpoint:          cfg.OTelEndpoint,
		SamplingRatio:         cfg.OTelSamplingRatio,
		ServiceName:           serviceName,
		DeploymentEnvironment: string(cfg.AppEnv),
	})
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}
	shutdownMgr.Add("otel", otelShutdown)

	store, err := buildStore(ctx, cfg, logger, shutdownMgr)
	if err != nil {
		return nil, err
	}

	sessions, sessionsReady, err := buildSessions(ctx, cfg, logger, shutdownMgr)
	if err != nil {
		return nil, err
	}

	eventsTopic := ""
	if cfg.Kafka.Enabled {
		eventsTopic = cfg.Kafka.OrderEventsTopic
	}
	svc := httpapi.Services{
		Cart:      service.NewCartService(logger, store),
		Orders:    service.NewOrderService(logger, store, eventsTopic),
		Catalog:   service.NewCatalogService(logger, store),
		Customers: service.NewCustomerService(logger, store.Customers(), cfg.BcryptCost),
		Auth:      service.NewAuthService(logger, store.Customers(), sessions, cfg.SessionTTL),
	}

	if cfg.Admin.Username != "" {
		created, err := svc.Customers.EnsureAdmin(ctx, service.RegisterInput{
			Username: cfg.Admin.Username,
			Password: cfg.Admin.Password,
			Name:     cfg.Admin.Username,
			Email:    cfg.Admin.Email,
		})
		if err != nil {
			return nil, fmt.Errorf("bootstrap admin: %w", err)
		}
		logger.Info("bootstrap admin checked", zap.String("username", cfg.Admin.Username), zap.Bool("created", created))
	}

	readiness := func(ctx context.Context) error {
		if err := store.Ping(ctx); err != nil {
			return fmt.Errorf("storage: %w", err)
		}
		if sessionsReady != nil {
			if err := sessionsReady(ctx); err != nil {
				return fmt.Errorf("sessions: %w", err)
			}
		}
		return nil
	}

	handler := httpapi.NewHandler(logger, svc, cfg.SessionTTL, cfg.SecureCookie)
	router := httpapi.NewRouter(handler, svc.Auth, readiness, logger)

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var dispatcher *eventkafka.OutboxDispatcher
	if cfg.Kafka.Enabled {
		dispatcher = eventkafka.NewOutboxDispatcher(logger, store.Orders(), cfg.Kafka)
		shutdownMgr.Add("outbox_writer", platformshutdown.CloseCloser(dispatcher))
	}

	return &App{
		logger:      logger,
		httpServer:  httpServer,
		shutdownMgr: shutdownMgr,
		dispatcher:  dispatcher,
	}, nil
}

// buildStore открывает хранилище по STORAGE_DRIVER и регистрирует его закрытие
func buildStore(ctx context.Context, cfg config.Config, logger *zap.Logger, shutdownMgr *platformshutdown.Manager) (repository.Store, error) {
	if cfg.StorageDriver == config.StorageMemory {
		logger.Warn("using in-memory storage, data is lost on restart")
		return memory.NewStore(), nil
	}

	if cfg.RunMigrations {
		logger.Info("applying database migrations")
		if err := postgres.Migrate(ctx, cfg.PostgresDSN); err != nil {
			return nil, err
		}
	}

	logger.Info("connecting to PostgreSQL")
	pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	shutdownMgr.Add("postgres_pool", platformshutdown.ClosePool(pool))

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	logger.Info("PostgreSQL connection established")
	return postgres.NewStore(pool), nil
}

// buildSessions возвращает хранилище сессий и (для Redis) проверку готовности
func buildSessions(ctx context.Context, cfg config.Config, logger *zap.Logger, shutdownMgr *platformshutdown.Manager) (repository.SessionRepository, func(context.Context) error, error) {
	if cfg.SessionStore == config.SessionMemory {
		logger.Warn("using in-memory session store")
		return memory.NewSessionRepository(), nil, nil
	}

	logger.Info("connecting to Redis", zap.String("addr", cfg.RedisAddr))
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	shutdownMgr.Add("redis_client", platformshutdown.CloseCloser(client))

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	ready := func(ctx context.Context) error { return client.Ping(ctx).Err() }
	return redisrepo.NewSessionRepository(client, logger), ready, nil
}

// Run запускает сервис и блокируется до получения сигнала shutdown или отмены ctx
func (a *App) Run(ctx context.Context) error {
	defer platformlogging.Sync(a.logger)

	if a.dispatcher != nil {
		dispatchCtx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			defer close(done)
			_ = a.dispatcher.Run(dispatchCtx)
		}()
		a.shutdownMgr.Add("outbox_dispatcher", platformshutdown.CancelFunc(cancel, done))
	}

	a.logger.Info("starting Book Store", zap.String("addr", a.httpServer.Addr))
	a.logger.Info("health check available", zap.String("url", "http://"+a.httpServer.Addr+"/health"))

	serveErr := make(chan error, 1)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("HTTP server error", zap.Error(err))
			serveErr <- err
		}
	}()
	// HTTP сервер останавливается первым (LIFO)
	a.shutdownMgr.Add("http_server", platformshutdown.ShutdownHTTPServer(a.httpServer))

	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-serveErr:
			cancel()
		case <-waitCtx.Done():
		}
	}()

	err := a.shutdownMgr.Wait(waitCtx)
	a.wg.Wait()
	a.logger.Info("Book Store stopped")
	return err
}
