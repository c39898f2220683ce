//go:build integration

package syncer_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fbarbosa/hermes/internal/store"
	"github.com/fbarbosa/hermes/internal/syncer"
	"github.com/fbarbosa/hermes/internal/testsupport"
)

// TestSyncer_Metrics_Integration verifies the sync path instrumentation
// against real infrastructure: outcome counters, skip-reason counters, the
// published-rules gauge, and the duration histogram.
//
// Metrics live in the global Prometheus registry, so scenarios assert deltas
// rather than absolute values and the test runs serially.
func TestSyncer_Metrics_Integration(t *testing.T) {
	ctx := context.Background()

	pgContainer, err := testsupport.StartPostgresContainer(ctx, "../../migrations")
	require.NoError(t, err)
	defer pgContainer.Terminate(ctx)

	redisCtr, err := testsupport.StartRedisContainer(ctx)
	require.NoError(t, err)
	defer redisCtr.Terminate(ctx)

	repo := store.NewPostgresStore(pgContainer.DB)
	svc := syncer.New(nil, syncer.Config{
		Interval:    time.Minute,
		ShopTimeout: 10 * time.Second,
	}, repo, redisCtr.Cache)

	past := time.Now().UTC().Add(-24 * time.Hour)

	seed := func(t *testing.T, rec *store.DiscountRecord) {
		t.Helper()
		require.NoError(t, repo.CreateDiscountRecord(ctx, rec))
	}

	seed(t, &store.DiscountRecord{
		ID: "metric-active", ShopID: "metric-shop", StartsAt: past,
		Configuration: []byte(`{"products":["gid://shop/Product/1"],"minQty":2,"percentOff":10}`),
	})
	seed(t, &store.DiscountRecord{
		ID: "metric-expired", ShopID: "metric-shop", StartsAt: past, EndsAt: &past,
		Configuration: []byte(`{"products":["gid://shop/Product/2"],"percentOff":20}`),
	})
	seed(t, &store.DiscountRecord{
		ID: "metric-malformed", ShopID: "metric-shop", StartsAt: past,
		Configuration: []byte(`{not json`),
	})
	seed(t, &store.DiscountRecord{
		ID: "metric-inert", ShopID: "metric-shop", StartsAt: past,
		Configuration: []byte(`{"products":[],"percentOff":10}`),
	})

	t.Run("Should count a successful sync and every skip reason", func(t *testing.T) {
		testsupport.AssertMetricDelta(t,
			"hermes_syncer_shop_syncs_total",
			map[string]string{"outcome": "success"},
			1,
			func() {
				count, err := svc.SyncShop(ctx, "metric-shop")
				require.NoError(t, err)
				assert.Equal(t, 1, count)
			},
		)

		// One more sync: each skip reason fires exactly once per cycle.
		for _, reason := range []string{"inactive", "malformed", "inert"} {
			testsupport.AssertMetricDelta(t,
				"hermes_syncer_records_skipped_total",
				map[string]string{"reason": reason},
				1,
				func() {
					_, err := svc.SyncShop(ctx, "metric-shop")
					require.NoError(t, err)
				},
			)
		}
	})

	t.Run("Should gauge the size of the published rule set", func(t *testing.T) {
		_, err := svc.SyncShop(ctx, "metric-shop")
		require.NoError(t, err)

		published := testsupport.GetMetricValue(t,
			"hermes_syncer_rules_published",
			map[string]string{"shop_id": "metric-shop"},
		)
		assert.Equal(t, float64(1), published)
	})

	t.Run("Should record the sync duration histogram", func(t *testing.T) {
		testsupport.AssertHistogramRecorded(t, "hermes_syncer_sync_duration_seconds", nil)
	})

	t.Run("Should count syncs performed by the background loop", func(t *testing.T) {
		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		// Run fires one immediate cycle before settling into the ticker, so
		// the success counter moves without waiting out the interval.
		testsupport.AssertMetricDeltaAsync(t,
			"hermes_syncer_shop_syncs_total",
			map[string]string{"outcome": "success"},
			1,
			func() {
				go func() {
					_ = svc.Run(runCtx)
				}()
			},
		)
	})

	t.Run("Should count a source failure", func(t *testing.T) {
		// A store over a closed pool fails the read path deterministically.
		deadPool, err := testsupport.StartPostgresContainer(ctx, "../../migrations")
		require.NoError(t, err)
		brokenRepo := store.NewPostgresStore(deadPool.DB)
		require.NoError(t, deadPool.Terminate(ctx))

		brokenSvc := syncer.New(nil, syncer.Config{}, brokenRepo, redisCtr.Cache)

		testsupport.AssertMetricDelta(t,
			"hermes_syncer_shop_syncs_total",
			map[string]string{"outcome": "source_error"},
			1,
			func() {
				_, err := brokenSvc.SyncShop(ctx, "metric-shop")
				assert.ErrorIs(t, err, syncer.ErrSourceUnavailable)
			},
		)
	})
}
