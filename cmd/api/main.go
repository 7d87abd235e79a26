package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/sac-service/internal/api/http"
	"github.com/spec-kit/sac-service/internal/api/http/handlers"
	bootstrap "github.com/spec-kit/sac-service/internal/app"
	"github.com/spec-kit/sac-service/internal/auth"
	"github.com/spec-kit/sac-service/internal/config"
	"github.com/spec-kit/sac-service/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	container, err := bootstrap.New(ctx, *cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize", zap.Error(err))
	}
	container.StartJobs()

	authMiddleware := auth.NewAuthMiddleware(container.Auth.TokenManager(), container.Repos.Users)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  cfg.App.RequestTimeout(),
		WriteTimeout: cfg.App.RequestTimeout(),
	})
	httptransport.RegisterMiddlewares(app, logger, container.Metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, dependencyChecks(container)),
		Metrics:        handlers.NewMetricsHandler(container.Metrics),
		Auth:           handlers.NewAuthHandler(container.Auth, cfg.App.IsDevelopment()),
		Cases:          handlers.NewCasesHandler(container.Cases, container.Dashboard, container.Clock),
		Views:          handlers.NewViewsHandler(container.Dashboard, container.Refresher),
		Agents:         handlers.NewAgentsHandler(container.Agents),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	container.Shutdown(shutdownCtx)
}

func dependencyChecks(c *bootstrap.Container) map[string]handlers.DependencyCheck {
	checks := map[string]handlers.DependencyCheck{}
	if c.Postgres != nil {
		checks["postgres"] = c.Postgres.Ping
	}
	if c.Redis.Enabled() {
		checks["redis"] = c.Redis.Ping
	}
	if c.Bolt != nil {
		checks["bolt"] = c.Bolt.Ping
	}
	return checks
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
