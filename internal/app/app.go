package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirinyoku/seat-market/internal/config"
	"github.com/kirinyoku/seat-market/internal/postgres"
	"github.com/kirinyoku/seat-market/internal/queue"
	"github.com/kirinyoku/seat-market/internal/redis"
	"github.com/kirinyoku/seat-market/internal/repository"
	"github.com/kirinyoku/seat-market/internal/repository/memory"
	postgresrepo "github.com/kirinyoku/seat-market/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/seat-market/internal/repository/redis"
	"github.com/kirinyoku/seat-market/internal/service"
	"github.com/kirinyoku/seat-market/internal/service/contracts"
	"github.com/kirinyoku/seat-market/internal/service/outbox"
	httpgin "github.com/kirinyoku/seat-market/internal/transport/http/gin"
	"golang.org/x/sync/errgroup"
)

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	httpServer *http.Server
	services   *service.Services
	pubsub     *redisrepo.EventsPubSub
	closers    []func()
}

func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx := context.Background()
	a := &App{cfg: cfg, logger: logger}

	// Initialize dependencies
	runner, err := a.newRunner(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	rdb, err := redis.New(ctx, redis.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}
	a.closers = append(a.closers, func() { _ = rdb.Close() })

	publisher := queue.NewPublisher(queue.Config{URL: cfg.RabbitMQ.URL, Queue: cfg.RabbitMQ.Queue})
	if err := publisher.Connect(); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize rabbitmq: %w", err)
	}
	a.closers = append(a.closers, func() { _ = publisher.Close() })

	// Initialize repositories
	cache := redisrepo.New(rdb)
	a.pubsub = redisrepo.NewEventsPubSub(rdb)
	limiter := redisrepo.NewSlidingWindowLimiter(rdb, "execute", cfg.RateLimit.Limit, cfg.RateLimit.Window)
	idempotencyStore := redisrepo.NewIdempotencyStore(rdb, cfg.Idempotency.TTL)

	// Initialize services
	a.services = service.NewServices(runner, cache, a.pubsub, limiter, publisher, logger, service.Config{
		Contracts: contracts.Config{
			ChainID:       cfg.Chain.ID,
			AddressPrefix: cfg.Chain.AddressPrefix,
			QueryTTL:      cfg.Cache.QueryTTL,
		},
		Outbox: outbox.Config{
			Interval:  cfg.Outbox.Interval,
			BatchSize: cfg.Outbox.BatchSize,
		},
	})

	// Initialize Gin router
	router := httpgin.NewRouter(a.services.Contracts, idempotencyStore, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return a, nil
}

func (a *App) newRunner(ctx context.Context) (repository.TxRunner, error) {
	if a.cfg.Store.Driver == config.StoreDriverMemory {
		a.logger.Warn("using in-memory store; state is lost on restart")
		return memory.New(), nil
	}

	pgxPool, err := postgres.New(ctx, postgres.Config{
		DSN:      a.cfg.Postgres.DSN(),
		MaxConns: a.cfg.Postgres.MaxConns,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}
	a.closers = append(a.closers, pgxPool.Close)

	store := postgresrepo.NewStore(pgxPool)
	if err := store.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to prepare schema: %w", err)
	}

	return store, nil
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()
	defer a.Close()

	g, gCtx := errgroup.WithContext(ctx)

	// Start HTTP server
	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	// Relay committed outbound messages to RabbitMQ
	g.Go(func() error {
		return a.services.Outbox.Run(gCtx)
	})

	// Log contract changes fanned out by every instance
	g.Go(func() error {
		err := a.pubsub.Subscribe(gCtx, func(ctx context.Context, ev redisrepo.ContractChanged) {
			a.logger.Debug("contract changed",
				"contract", ev.Contract,
				"height", ev.Height,
				"action", ev.Action,
				"events", len(ev.Events),
			)
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.httpServer.Shutdown(ctx)
	})

	return g.Wait()
}

// Close releases connections in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
