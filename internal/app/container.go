// Package app assembles the store, services and background jobs from configuration.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/sac-service/internal/auth"
	"github.com/spec-kit/sac-service/internal/config"
	"github.com/spec-kit/sac-service/internal/domain"
	"github.com/spec-kit/sac-service/internal/events"
	"github.com/spec-kit/sac-service/internal/observability"
	"github.com/spec-kit/sac-service/internal/persistence"
	"github.com/spec-kit/sac-service/internal/remotesync"
	"github.com/spec-kit/sac-service/internal/repository"
	"github.com/spec-kit/sac-service/internal/repository/boltstore"
	"github.com/spec-kit/sac-service/internal/repository/memory"
	"github.com/spec-kit/sac-service/internal/seed"
	"github.com/spec-kit/sac-service/internal/service"
	"github.com/spec-kit/sac-service/internal/worker"
)

// Container holds every long-lived dependency of the process.
type Container struct {
	Config  config.Config
	Logger  *zap.Logger
	Metrics *observability.Metrics
	Clock   domain.Clock

	Postgres *persistence.Postgres
	Redis    *persistence.Redis
	Bolt     *persistence.Bolt

	Repos      repository.Repositories
	Dispatcher events.Dispatcher
	Syncer     *remotesync.Syncer
	Processor  *remotesync.Processor
	Refresher  *worker.Refresher

	Agents    *service.AgentService
	Cases     *service.CaseService
	Dashboard *service.DashboardService
	Auth      *service.AuthService
	Sync      *service.SyncService
}

// New opens the configured backend and wires the services. Close releases
// whatever was opened, also on partial failure.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (c *Container, err error) {
	c = &Container{
		Config:     cfg,
		Logger:     logger,
		Metrics:    observability.NewMetrics(),
		Clock:      domain.RealClock{},
		Dispatcher: events.NewInMemoryDispatcher(),
	}
	defer func() {
		if err != nil {
			c.Close()
			c = nil
		}
	}()

	if err := c.openStore(ctx); err != nil {
		return c, err
	}

	c.Redis = persistence.NewRedis(cfg.Redis, logger)
	if c.Redis.Enabled() {
		c.Repos.PasswordResets = repository.NewRedisPasswordResetRepository(c.Redis.Client, cfg.Auth.PasswordResetTTL())
	}

	if err := c.wireSync(); err != nil {
		return c, err
	}

	c.Agents = service.NewAgentService(service.AgentDependencies{
		AgentRepo: c.Repos.Agents,
		CaseRepo:  c.Repos.Cases,
		Clock:     c.Clock,
		Logger:    logger,
	})
	c.Cases = service.NewCaseService(service.CaseDependencies{
		CaseRepo:     c.Repos.Cases,
		CategoryRepo: c.Repos.Categories,
		Agents:       c.Agents,
		Dispatcher:   c.Dispatcher,
		Clock:        c.Clock,
		Logger:       logger,
	})
	c.Dashboard = service.NewDashboardService(service.DashboardDependencies{
		Cases:        c.Cases,
		Agents:       c.Agents,
		CategoryRepo: c.Repos.Categories,
		Clock:        c.Clock,
		Location:     cfg.App.Location(),
	})
	c.Auth = service.NewAuthService(cfg, service.AuthDependencies{
		UserRepo:          c.Repos.Users,
		PasswordResetRepo: c.Repos.PasswordResets,
		Syncer:            c.Syncer,
		Dispatcher:        c.Dispatcher,
		Clock:             c.Clock,
		Logger:            logger,
	})
	c.Sync = service.NewSyncService(c.Dispatcher, c.Syncer, logger)
	worker.StartSyncWorker(c.Sync)
	if c.Refresher, err = worker.NewRefresher(c.Dashboard, logger, cfg.Dashboard.RefreshInterval); err != nil {
		return c, err
	}

	if cfg.Store.SeedOnStart {
		if _, err := c.Seed(ctx); err != nil {
			return c, err
		}
	}
	return c, nil
}

func (c *Container) openStore(ctx context.Context) error {
	cfg := c.Config
	switch cfg.Store.Backend {
	case config.StoreMemory:
		c.Repos = memory.New()
	case config.StoreBolt:
		if err := c.openBolt(); err != nil {
			return err
		}
		store, err := boltstore.New(c.Bolt.DB)
		if err != nil {
			return fmt.Errorf("init bolt store: %w", err)
		}
		c.Repos = store.Repositories()
	case config.StorePostgres:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, c.Logger)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		c.Postgres = pg
		pool := pg.PoolHandle()
		if pool == nil {
			return errors.New("postgres backend selected but POSTGRES_DSN is empty")
		}
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pool, cfg.Postgres.MigrationsDir, c.Logger); err != nil {
				return fmt.Errorf("run migrations: %w", err)
			}
		}
		c.Repos = repository.Repositories{
			Cases:          repository.NewCaseRepository(pool),
			Agents:         repository.NewAgentRepository(pool),
			Categories:     repository.NewCategoryRepository(pool),
			Users:          repository.NewUserRepository(pool),
			PasswordResets: repository.NewPasswordResetRepository(pool),
		}
	default:
		return fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
	c.Logger.Info("store ready", zap.String("backend", cfg.Store.Backend))
	return nil
}

func (c *Container) openBolt() error {
	if c.Bolt != nil {
		return nil
	}
	db, err := persistence.OpenBolt(c.Config.Store.BoltPath, c.Logger)
	if err != nil {
		return fmt.Errorf("open bolt: %w", err)
	}
	c.Bolt = db
	return nil
}

func (c *Container) wireSync() error {
	cfg := c.Config.Sync
	if !cfg.Enabled() {
		c.Syncer = remotesync.NewSyncer(nil, nil, c.Metrics, c.Logger, cfg.Timeout)
		c.Logger.Info("SYNC_WEBHOOK_URL not provided; remote sync disabled")
		return nil
	}

	client := remotesync.NewWebhookClient(cfg.WebhookURL, cfg.Timeout)
	var outbox *remotesync.Outbox
	if cfg.OutboxEnabled {
		if err := c.openBolt(); err != nil {
			return err
		}
		var err error
		if outbox, err = remotesync.NewOutbox(c.Bolt.DB); err != nil {
			return fmt.Errorf("init outbox: %w", err)
		}
		c.Processor, err = remotesync.NewProcessor(outbox, client, c.Metrics, c.Logger, remotesync.ProcessorConfig{
			Interval:   cfg.RetryInterval,
			MaxRetries: cfg.MaxRetries,
		})
		if err != nil {
			return err
		}
	}
	c.Syncer = remotesync.NewSyncer(client, outbox, c.Metrics, c.Logger, cfg.Timeout)
	return nil
}

// Seed loads the embedded mock data into an empty case store and reports
// whether it wrote anything.
func (c *Container) Seed(ctx context.Context) (bool, error) {
	data, err := seed.Default()
	if err != nil {
		return false, err
	}
	seeder := seed.NewSeeder(c.Repos, auth.Hasher(c.Config.Auth.BcryptCost), c.Clock, c.Logger)
	return seeder.SeedIfEmpty(ctx, data)
}

// StartJobs launches the cron jobs.
func (c *Container) StartJobs() {
	c.Processor.Start()
	c.Refresher.Start()
}

// Shutdown stops cron jobs, waits for in-flight webhook calls and closes stores.
func (c *Container) Shutdown(ctx context.Context) {
	c.Refresher.Stop(ctx)
	c.Processor.Stop(ctx)
	c.Syncer.Wait()
	c.Close()
}

// Close releases store handles.
func (c *Container) Close() {
	if c == nil {
		return
	}
	c.Redis.Close()
	c.Postgres.Close()
	if err := c.Bolt.Close(); err != nil {
		c.Logger.Warn("close bolt", zap.Error(err))
	}
}
