// Package app is the composition root. It only wires dependencies.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/maintenance-portal/internal/api/http"
	"github.com/spec-kit/maintenance-portal/internal/api/http/handlers"
	"github.com/spec-kit/maintenance-portal/internal/auth"
	"github.com/spec-kit/maintenance-portal/internal/config"
	"github.com/spec-kit/maintenance-portal/internal/events"
	"github.com/spec-kit/maintenance-portal/internal/mailer"
	"github.com/spec-kit/maintenance-portal/internal/observability"
	"github.com/spec-kit/maintenance-portal/internal/persistence"
	"github.com/spec-kit/maintenance-portal/internal/photo"
	"github.com/spec-kit/maintenance-portal/internal/repository"
	"github.com/spec-kit/maintenance-portal/internal/service"
	"github.com/spec-kit/maintenance-portal/internal/worker"
)

// Application holds composed dependencies.
type Application struct {
	Config    *config.Config
	Logger    *zap.Logger
	HTTP      *fiber.App
	Tickets   *service.TicketService
	Accounts  repository.AccountRepository
	Scheduler worker.Scheduler
	Pool      *worker.Pool

	pg    *persistence.Postgres
	redis *persistence.Redis
}

// Stores groups the connections and the record stores built on them.
type Stores struct {
	Postgres *persistence.Postgres
	Redis    *persistence.Redis
	Tickets  repository.TicketRepository
	Accounts repository.AccountRepository
}

// OpenStores connects the persistence layer, running migrations when enabled.
// Without a DSN the in-memory stores are returned.
func OpenStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Stores, error) {
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, err
	}
	redis := persistence.NewRedis(cfg.Redis, logger)

	stores := &Stores{Postgres: pg, Redis: redis}
	if pg.Enabled() {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
				stores.Close()
				return nil, fmt.Errorf("run migrations: %w", err)
			}
		}
		stores.Tickets = repository.NewTicketRepository(pg.PoolHandle())
		stores.Accounts = repository.NewAccountRepository(pg.PoolHandle())
	} else {
		logger.Warn("using in-memory stores; data is lost on restart")
		stores.Tickets = repository.NewMemoryTicketRepository()
		stores.Accounts = repository.NewMemoryAccountRepository()
	}
	stores.Accounts = repository.NewCachedAccountRepository(stores.Accounts, redis.Client, cfg.Redis.AccountCacheTTL, logger)
	return stores, nil
}

// Close releases connections.
func (s *Stores) Close() {
	s.Redis.Close()
	s.Postgres.Close()
}

// Bootstrap builds the application without starting anything.
func Bootstrap(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Application, error) {
	stores, err := OpenStores(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init stores: %w", err)
	}

	if !stores.Postgres.Enabled() && cfg.Accounts.SeedFile != "" {
		if err := seedAccounts(ctx, cfg, stores.Accounts, logger); err != nil {
			stores.Close()
			return nil, err
		}
	}

	archive, err := photo.NewDiskArchive(cfg.Photo.Dir, cfg.Photo.URLPrefix, cfg.Photo.MaxBytes)
	if err != nil {
		stores.Close()
		return nil, fmt.Errorf("init photo archive: %w", err)
	}

	pool, err := worker.NewPool(ctx, cfg.Worker.PoolSize, cfg.Worker.ShutdownTimeout(), logger)
	if err != nil {
		stores.Close()
		return nil, fmt.Errorf("init worker pool: %w", err)
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	notifications := service.NewNotificationService(service.NotificationDependencies{
		Dispatcher:      dispatcher,
		AccountRepo:     stores.Accounts,
		Sender:          mailer.New(cfg.Notification, logger),
		Executor:        pool,
		Metrics:         metrics,
		Logger:          logger,
		BaseURL:         cfg.App.PublicBaseURL,
		DeliveryTimeout: cfg.Notification.SendTimeout(),
	})
	worker.StartNotificationWorker(notifications)

	tickets := service.NewTicketService(service.TicketDependencies{
		TicketRepo:   stores.Tickets,
		PhotoArchive: archive,
		Dispatcher:   dispatcher,
		Logger:       logger,
		Location:     cfg.App.Location(),
	})

	scheduler, err := newScheduler(cfg, stores, tickets, logger)
	if err != nil {
		pool.Shutdown()
		stores.Close()
		return nil, err
	}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authService := service.NewAuthService(service.AuthDependencies{
		AccountRepo:  stores.Accounts,
		TokenManager: tokens,
	})

	httpApp := httptransport.NewApp(httptransport.ServerOptions{
		AppName:        cfg.App.Name,
		BodyLimit:      bodyLimit(cfg.Photo.MaxBytes),
		RequestTimeout: cfg.App.RequestTimeout(),
	}, logger, metrics, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": stores.Postgres,
			"redis":    stores.Redis,
		}),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(tickets),
		Actions:        handlers.NewActionsHandler(tickets),
		Metrics:        handlers.NewMetricsHandler(metrics, pool.Stats),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, stores.Accounts),
		PhotoDir:       archive.Root(),
		PhotoURLPrefix: cfg.Photo.URLPrefix,
	})

	return &Application{
		Config:    cfg,
		Logger:    logger,
		HTTP:      httpApp,
		Tickets:   tickets,
		Accounts:  stores.Accounts,
		Scheduler: scheduler,
		Pool:      pool,
		pg:        stores.Postgres,
		redis:     stores.Redis,
	}, nil
}

func newScheduler(cfg *config.Config, stores *Stores, tickets *service.TicketService, logger *zap.Logger) (worker.Scheduler, error) {
	if !cfg.Overdue.Enabled {
		logger.Info("overdue reminders disabled")
		return nil, nil
	}
	if stores.Postgres.Enabled() {
		s, err := worker.NewRiverScheduler(stores.Postgres.PoolHandle(), tickets, cfg.Overdue.Interval, cfg.Worker.RiverMaxWorkers, logger)
		if err != nil {
			return nil, fmt.Errorf("init river scheduler: %w", err)
		}
		return s, nil
	}
	return worker.NewTickerScheduler(tickets, cfg.Overdue.Interval, logger), nil
}

// Photos arrive base64 encoded inside JSON, so allow a handful per request.
func bodyLimit(photoMax int) int {
	const minLimit = 4 << 20
	limit := photoMax * 4 / 3 * 5
	if limit < minLimit {
		return minLimit
	}
	return limit
}

func seedAccounts(ctx context.Context, cfg *config.Config, repo repository.AccountRepository, logger *zap.Logger) error {
	f, err := os.Open(cfg.Accounts.SeedFile)
	if err != nil {
		return fmt.Errorf("open account seed file: %w", err)
	}
	defer f.Close()

	accounts, err := service.ParseAccountFile(f)
	if err != nil {
		return fmt.Errorf("parse account seed file: %w", err)
	}
	n, err := service.ImportAccounts(ctx, repo, accounts, cfg.Auth.BcryptCost)
	if err != nil {
		return fmt.Errorf("seed accounts: %w", err)
	}
	logger.Info("accounts seeded", zap.Int("count", n), zap.String("file", cfg.Accounts.SeedFile))
	return nil
}

// Start launches the scheduler. The HTTP listener is started by the caller.
func (a *Application) Start(ctx context.Context) error {
	if a.Scheduler == nil {
		return nil
	}
	return a.Scheduler.Start(ctx)
}

// Shutdown stops HTTP intake first, then the scheduler, then drains the pool.
func (a *Application) Shutdown(ctx context.Context) error {
	var errs []error
	if err := a.HTTP.ShutdownWithContext(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if a.Scheduler != nil {
		if err := a.Scheduler.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("scheduler stop: %w", err))
		}
	}
	a.Pool.Shutdown()
	a.redis.Close()
	a.pg.Close()
	return errors.Join(errs...)
}
