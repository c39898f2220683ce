// Package main initializes and runs the Hermes Data Plane service.
//
// It is the composition root for the high-throughput evaluation API: it wires
// the in-memory L1 cache in front of the Redis rule-set slot and handles the
// HTTP server lifecycle. The data plane never touches PostgreSQL.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fbarbosa/hermes/internal/cache"
	"github.com/fbarbosa/hermes/internal/config"
	"github.com/fbarbosa/hermes/internal/dataapi"
	"github.com/fbarbosa/hermes/internal/logger"
	"github.com/fbarbosa/hermes/internal/observability"
	"github.com/fbarbosa/hermes/internal/validation"
)

// main is the application entrypoint.
func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// run executes the service lifecycle.
func run() error {
	ctx := context.Background()

	// -------------------------------------------------------------------------
	// 1. Configuration & Logging
	// -------------------------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.New(&cfg.App).With(slog.String("service", "hermes-data"))
	slog.SetDefault(log)
	cfg.LogConfig(log)

	// -------------------------------------------------------------------------
	// 2. Infrastructure Setup
	// -------------------------------------------------------------------------
	redisClient, err := cache.NewRedisClient(ctx, &cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	l2 := cache.NewRedisCache(redisClient)
	defer l2.Close()

	l1, err := cache.NewMemoryCache(cfg.Server.Data.L1Capacity, cfg.Server.Data.L1TTL)
	if err != nil {
		return fmt.Errorf("failed to initialize l1 cache: %w", err)
	}
	defer l1.Close()

	// -------------------------------------------------------------------------
	// 3. Wiring (Dependency Injection)
	// -------------------------------------------------------------------------
	validation.AssertNotNil(redisClient, "redis client")
	validation.AssertNotNil(l1, "l1 cache")

	api := dataapi.NewAPI(l1, l2)

	// -------------------------------------------------------------------------
	// 4. Observability Server (dedicated admin port)
	// -------------------------------------------------------------------------
	obsServer := observability.NewServer(log, &cfg.Observability,
		observability.NewRedisChecker(redisClient),
	)
	obsServer.Start()

	// -------------------------------------------------------------------------
	// 5. HTTP Server Setup
	// -------------------------------------------------------------------------
	srvCfg := cfg.Server.Data
	server := &http.Server{
		Addr:              srvCfg.Host + ":" + srvCfg.Port,
		Handler:           api.Router,
		ReadTimeout:       srvCfg.ReadTimeout,
		WriteTimeout:      srvCfg.WriteTimeout,
		ReadHeaderTimeout: srvCfg.ReadHeaderTimeout,
		IdleTimeout:       srvCfg.IdleTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info("data plane listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("data plane server failed: %w", err)
		}
	}()

	// -------------------------------------------------------------------------
	// 6. Graceful Shutdown
	// -------------------------------------------------------------------------
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("data plane shutdown failed: %w", err)
	}
	if err := obsServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("observability server shutdown failed", slog.String("error", err.Error()))
	}

	log.Info("service exited successfully")
	return nil
}
