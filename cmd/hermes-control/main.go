// Package main initializes and runs the Hermes Control Plane service.
//
// It is the composition root for the merchant-facing REST API: it wires the
// PostgreSQL record store, the Redis rule-set cache, the syncer that connects
// them, and the HTTP server lifecycle.
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
	"github.com/fbarbosa/hermes/internal/controlapi"
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

	log := logger.New(&cfg.App).With(slog.String("service", "hermes-control"))
	slog.SetDefault(log)
	cfg.LogConfig(log)

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

	discountStore := store.NewPostgresStore(pool)

	syncSvc := syncer.New(log, syncer.Config{
		Interval:    cfg.Syncer.Interval,
		ShopTimeout: cfg.Syncer.ShopTimeout,
	}, discountStore, ruleCache)

	api := controlapi.NewAPI(syncSvc, ruleCache, cfg.Server.Control.APIKeyHash)

	// -------------------------------------------------------------------------
	// 4. Observability Server (dedicated admin port)
	// -------------------------------------------------------------------------
	obsServer := observability.NewServer(log, &cfg.Observability,
		observability.NewPostgresChecker(pool),
		observability.NewRedisChecker(redisClient),
	)
	obsServer.Start()

	// -------------------------------------------------------------------------
	// 5. HTTP Server Setup
	// -------------------------------------------------------------------------
	srvCfg := cfg.Server.Control
	server := &http.Server{
		Addr:              srvCfg.Host + ":" + srvCfg.Port,
		Handler:           api.Router,
		ReadTimeout:       srvCfg.ReadTimeout,
		WriteTimeout:      srvCfg.WriteTimeout,
		ReadHeaderTimeout: srvCfg.ReadHeaderTimeout,
		IdleTimeout:       srvCfg.IdleTimeout,
		MaxHeaderBytes:    srvCfg.MaxHeaderBytes,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info("control plane listening",
			slog.String("addr", server.Addr),
			slog.Bool("tls", srvCfg.TLSEnabled),
		)

		var serveErr error
		if srvCfg.TLSEnabled {
			serveErr = server.ListenAndServeTLS(srvCfg.TLSCert, srvCfg.TLSKey)
		} else {
			serveErr = server.ListenAndServe()
		}
		if serveErr != nil && serveErr != http.ErrServerClosed {
			errChan <- fmt.Errorf("control plane server failed: %w", serveErr)
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
		return fmt.Errorf("control plane shutdown failed: %w", err)
	}
	if err := obsServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("observability server shutdown failed", slog.String("error", err.Error()))
	}

	log.Info("service exited successfully")
	return nil
}
