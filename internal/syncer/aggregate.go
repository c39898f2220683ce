package syncer

import (
	"log/slog"
	"time"

	"github.com/fbarbosa/hermes/internal/engine"
	"github.com/fbarbosa/hermes/internal/observability"
	"github.com/fbarbosa/hermes/internal/store"
)

// Aggregate collects the currently-active discount rules scattered across
// the shop's discount records and merges them into one consolidated rule set.
//
// The result is a total function of the records and the clock: no hidden
// state, so identical inputs always reproduce the identical rule set, in
// source enumeration order.
//
// Individual bad records are never fatal. A record with a missing or
// unparsable configuration, or one that parses to an inert rule (no
// products, zero percentage), is logged and skipped so that one broken
// discount cannot take down every other discount in the shop.
func Aggregate(logger *slog.Logger, records []*store.DiscountRecord, now time.Time) engine.RuleSet {
	if logger == nil {
		logger = slog.Default()
	}

	ruleSet := engine.RuleSet{}
	for _, rec := range records {
		if rec == nil || len(rec.Configuration) == 0 {
			logger.Warn("skipping discount record without configuration",
				slog.String("record_id", recordID(rec)),
			)
			observability.RecordsSkipped.WithLabelValues("malformed").Inc()
			continue
		}

		// Activity window check, inclusive on both boundaries: a record is
		// active at exactly startsAt and at exactly endsAt.
		if now.Before(rec.StartsAt) {
			logger.Debug("skipping discount that has not started yet",
				slog.String("record_id", rec.ID),
				slog.Time("starts_at", rec.StartsAt),
			)
			observability.RecordsSkipped.WithLabelValues("inactive").Inc()
			continue
		}
		if rec.EndsAt != nil && now.After(*rec.EndsAt) {
			logger.Debug("skipping expired discount",
				slog.String("record_id", rec.ID),
				slog.Time("ends_at", *rec.EndsAt),
			)
			observability.RecordsSkipped.WithLabelValues("inactive").Inc()
			continue
		}

		cfg, err := engine.DecodeRuleConfig(rec.Configuration)
		if err != nil {
			logger.Warn("skipping malformed discount configuration",
				slog.String("record_id", rec.ID),
				slog.String("error", err.Error()),
			)
			observability.RecordsSkipped.WithLabelValues("malformed").Inc()
			continue
		}

		if !cfg.Usable() {
			logger.Debug("skipping inert discount rule",
				slog.String("record_id", rec.ID),
				slog.Int("products", len(cfg.Products)),
				slog.Float64("percent_off", cfg.PercentOff),
			)
			observability.RecordsSkipped.WithLabelValues("inert").Inc()
			continue
		}

		ruleSet = append(ruleSet, cfg)
	}

	return ruleSet
}

func recordID(rec *store.DiscountRecord) string {
	if rec == nil {
		return "<nil>"
	}
	return rec.ID
}
