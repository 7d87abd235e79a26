// Command sacctl operates the SAC case store from a terminal.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spec-kit/sac-service/internal/app"
	"github.com/spec-kit/sac-service/internal/cli"
	"github.com/spec-kit/sac-service/internal/config"
	"github.com/spec-kit/sac-service/internal/observability"
)

// version is set at build time using -ldflags.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	// keep stdout clean for JSON output
	cfg.Logger.Encoding = "console"
	if cfg.Logger.Level == "info" {
		cfg.Logger.Level = "warn"
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx := context.Background()
	container, err := app.New(ctx, *cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer container.Shutdown(ctx)

	return cli.NewRootCommand(container, version).ExecuteContext(ctx)
}
