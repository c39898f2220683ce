// Package main initializes and runs the Hermes Syncer worker.
//
// The worker runs the periodic aggregate+publish loop for every known shop,
// self-healing the rule-set cache against missed on-demand syncs.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fbarbosa/hermes/internal/cache"
	"github.com/fbarbosa/hermes/internal/config"
	"github.com/fbarbosa/hermes/internal/database"
	"github.com/fbarbosa/hermes/internal/logger"
	"github.com/fbarbosa/hermes/internal/observability"
	"github.com/fbarbosa/hermes/internal/store"
	"github.com/fbarbosa/hermes/internal/syncer"
	"github.com/fbarbosa/hermes/internal/validation"
)

// main is the application entrypoint.
func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// run executes the worker lifecycle.
func run() error {
	ctx := context.Background()

	// -------------------------------------------------------------------------
	// 1. Configuration & Logging
	// -------------------------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.New(&cfg.App).With(slog.String("service", "hermes-syncer"))
	slog.SetDefault(log)
	cfg.LogConfig(log)

	if !cfg.Syncer.Enabled {
		log.Warn("syncer is disabled by configuration; exiting")
		return nil
	}

	// -------------------------------------------------------------------------
	// 2. Infrastructure Setup
	// -------------------------------------------------------------------------
	pool, err := database.NewPostgresPool(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer pool.Close()

	redisClient, err := cache.NewRedisClient(ctx, &cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	ruleCache := cache.NewRedisCache(redisClient)
	defer ruleCache.Close()

	// -------------------------------------------------------------------------
	// 3. Wiring (Dependency Injection)
	// -------------------------------------------------------------------------
	validation.AssertNotNil(pool, "database pool")
	validation.AssertNotNil(redisClient, "redis client")

	syncSvc := syncer.New(log, syncer.Config{
		Interval:    cfg.Syncer.Interval,
		ShopTimeout: cfg.Syncer.ShopTimeout,
	}, store.NewPostgresStore(pool), ruleCache)

	// -------------------------------------------------------------------------
	// 4. Observability Server (dedicated admin port)
	// -------------------------------------------------------------------------
	obsServer := observability.NewServer(log, &cfg.Observability,
		observability.NewPostgresChecker(pool),
		observability.NewRedisChecker(redisClient),
	)
	obsServer.Start()

	// -------------------------------------------------------------------------
	// 5. Worker Loop with Graceful Shutdown
	// -------------------------------------------------------------------------
	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("syncer worker started",
		slog.Duration("interval", cfg.Syncer.Interval),
		slog.Duration("shop_timeout", cfg.Syncer.ShopTimeout),
	)

	// Run blocks until the context is cancelled by a shutdown signal.
	if err := syncSvc.Run(runCtx); err != nil && err != context.Canceled {
		return fmt.Errorf("syncer worker failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := obsServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("observability server shutdown failed", slog.String("error", err.Error()))
	}

	log.Info("worker exited successfully")
	return nil
}
