// Package syncer implements the worker that propagates discount rules from
// the source-of-truth store (PostgreSQL) into the rule-set cache (Redis)
// that the evaluation plane reads.
//
// Syncs run on demand (triggered by the control plane after a rule mutation)
// and periodically (self-healing for missed mutation events). Each sync
// computes the full rule set from the read-only source records, never from
// the previous cache value, so concurrent syncs are last-write-wins safe.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fbarbosa/hermes/internal/cache"
	"github.com/fbarbosa/hermes/internal/observability"
	"github.com/fbarbosa/hermes/internal/store"
)

// Sentinel errors distinguishing the two fatal sync failure modes.
// Both are retryable by the caller; a publish failure leaves the previously
// published rule set intact (the cache overwrite is atomic per key).
var (
	ErrSourceUnavailable = errors.New("syncer: discount record source unavailable")
	ErrPublishFailed     = errors.New("syncer: rule set publish failed")
)

// Config holds the configuration for the Syncer service.
type Config struct {
	// Interval is the duration between periodic sync cycles.
	Interval time.Duration

	// ShopTimeout bounds a single shop's sync within a cycle.
	ShopTimeout time.Duration
}

// Service orchestrates the synchronization process.
type Service struct {
	logger *slog.Logger
	config Config
	repo   store.DiscountRepository
	cache  cache.Service
}

// New creates a new Syncer service.
func New(logger *slog.Logger, cfg Config, repo store.DiscountRepository, cacheSvc cache.Service) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	if repo == nil {
		panic("syncer: discount repository cannot be nil")
	}
	if cacheSvc == nil {
		panic("syncer: cache service cannot be nil")
	}

	if cfg.Interval < time.Second {
		cfg.Interval = 60 * time.Second // Safe default
	}
	if cfg.ShopTimeout <= 0 {
		cfg.ShopTimeout = 10 * time.Second
	}

	return &Service{
		logger: logger,
		config: cfg,
		repo:   repo,
		cache:  cacheSvc,
	}
}

// SyncShop performs one full sync for a shop: read all discount records,
// aggregate the active rules, and publish the consolidated rule set into the
// shop's cache slot. It returns the number of rules published.
//
// Failure to reach the record store or the cache is fatal to this attempt
// and surfaced to the caller for retry. An empty aggregation result is NOT a
// failure: it publishes an empty (but present) rule set.
func (s *Service) SyncShop(ctx context.Context, shopID string) (int, error) {
	start := time.Now()
	log := s.logger.With(
		slog.String("shop_id", shopID),
		slog.String("sync_id", uuid.NewString()),
	)

	// 1. Read from Source of Truth (Postgres)
	records, err := s.repo.ListDiscountRecords(ctx, shopID)
	if err != nil {
		observability.SyncCyclesTotal.WithLabelValues("source_error").Inc()
		return 0, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}

	// 2. Aggregate the active rules
	ruleSet := Aggregate(log, records, time.Now())

	// 3. Publish to the cache slot (single-key idempotent overwrite)
	count, err := s.cache.PublishRuleSet(ctx, shopID, ruleSet)
	if err != nil {
		observability.SyncCyclesTotal.WithLabelValues("publish_error").Inc()
		return 0, fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	observability.SyncCyclesTotal.WithLabelValues("success").Inc()
	observability.SyncDuration.Observe(time.Since(start).Seconds())
	observability.RulesPublished.WithLabelValues(shopID).Set(float64(count))

	log.Info("shop sync completed",
		slog.Int("records", len(records)),
		slog.Int("rules_published", count),
		slog.String("duration", time.Since(start).String()),
	)
	return count, nil
}

// Run starts the periodic sync loop. It blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	s.logger.Info("starting syncer service", slog.String("interval", s.config.Interval.String()))

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	// Run once immediately on startup
	if err := s.syncAll(ctx); err != nil {
		s.logger.Error("initial sync failed", slog.String("error", err.Error()))
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("syncer service stopping...")
			return nil
		case <-ticker.C:
			if err := s.syncAll(ctx); err != nil {
				// We log the error but don't stop the worker.
				// Retry on next tick.
				s.logger.Error("sync cycle failed", slog.String("error", err.Error()))
			}
		}
	}
}

// syncAll fans a sync cycle out across every known shop.
// A failing shop does not abort the cycle; its error is logged and the cycle
// moves on, so one shop's outage cannot starve the others.
func (s *Service) syncAll(ctx context.Context) error {
	shops, err := s.repo.ListShopIDs(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}

	for _, shopID := range shops {
		shopCtx, cancel := context.WithTimeout(ctx, s.config.ShopTimeout)
		_, err := s.SyncShop(shopCtx, shopID)
		cancel()

		if err != nil {
			s.logger.Error("shop sync failed",
				slog.String("shop_id", shopID),
				slog.String("error", err.Error()),
			)
		}

		// Stop early when the service itself is shutting down.
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return nil
}
