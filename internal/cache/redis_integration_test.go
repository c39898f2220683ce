//go:build integration

package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fbarbosa/hermes/internal/cache"
	"github.com/fbarbosa/hermes/internal/engine"
	"github.com/fbarbosa/hermes/internal/testsupport"
)

// TestRedisCache_Integration verifies the cache slot semantics against a real
// Redis: atomic single-key overwrite, the present-empty slot for zero-rule
// syncs, and the never-synced miss.
func TestRedisCache_Integration(t *testing.T) {
	ctx := context.Background()

	redisCtr, err := testsupport.StartRedisContainer(ctx)
	require.NoError(t, err)
	defer redisCtr.Terminate(ctx)

	appCache := redisCtr.Cache

	// Spy Client (Side-channel verification)
	// Used to peek into Redis raw data or inject corruption.
	endpoint, err := redisCtr.Container.PortEndpoint(ctx, "6379/tcp", "")
	require.NoError(t, err)

	spyClient := redis.NewClient(&redis.Options{Addr: endpoint})
	defer spyClient.Close()

	const shopID = "shop-integration"
	redisKey := cache.KeyPrefix + ":" + shopID

	t.Run("Should publish a rule set into the shop's slot", func(t *testing.T) {
		rules := engine.RuleSet{
			{Products: []string{"gid://shop/Product/1"}, MinQty: 3, PercentOff: 20},
		}

		count, err := appCache.PublishRuleSet(ctx, shopID, rules)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		// Verification: the slot holds the canonical JSON array.
		val, err := spyClient.Get(ctx, redisKey).Result()
		require.NoError(t, err)
		assert.JSONEq(t, `[{"products":["gid://shop/Product/1"],"minQty":3,"percentOff":20}]`, val)

		// No TTL: the slot is durable until the next sync replaces it.
		// Redis reports -1 for keys without an expiry.
		ttl, err := spyClient.TTL(ctx, redisKey).Result()
		require.NoError(t, err)
		assert.Equal(t, time.Duration(-1), ttl, "slot must not expire")
	})

	t.Run("Should overwrite the slot on republish", func(t *testing.T) {
		rules := engine.RuleSet{
			{Products: []string{"gid://shop/Product/2"}, MinQty: 1, PercentOff: 5},
			{Products: []string{"gid://shop/Product/3"}, MinQty: 2, PercentOff: 15},
		}

		count, err := appCache.PublishRuleSet(ctx, shopID, rules)
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		got, synced, err := appCache.GetRuleSet(ctx, shopID)
		require.NoError(t, err)
		assert.True(t, synced)
		assert.Equal(t, rules, got)
	})

	t.Run("Should publish the present-empty slot for zero active rules", func(t *testing.T) {
		count, err := appCache.PublishRuleSet(ctx, shopID, nil)
		require.NoError(t, err)
		assert.Equal(t, 0, count)

		val, err := spyClient.Get(ctx, redisKey).Result()
		require.NoError(t, err)
		assert.Equal(t, "[]", val)

		got, synced, err := appCache.GetRuleSet(ctx, shopID)
		require.NoError(t, err)
		assert.True(t, synced, "an empty sync is still a sync")
		assert.Empty(t, got)
	})

	t.Run("Should report never-synced shops as a miss, not an error", func(t *testing.T) {
		got, synced, err := appCache.GetRuleSet(ctx, "ghost-shop")
		require.NoError(t, err)
		assert.False(t, synced)
		assert.Nil(t, got)
	})

	t.Run("Should surface a corrupt slot as an error", func(t *testing.T) {
		require.NoError(t, spyClient.Set(ctx, cache.KeyPrefix+":corrupt-shop", "{broken", 0).Err())

		_, _, err := appCache.GetRuleSet(ctx, "corrupt-shop")
		assert.Error(t, err)
	})

	t.Run("Should pass the health check against a live server", func(t *testing.T) {
		assert.NoError(t, appCache.HealthCheck(ctx))
	})
}
