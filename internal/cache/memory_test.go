package cache_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fbarbosa/hermes/internal/cache"
	"github.com/fbarbosa/hermes/internal/engine"
)

func TestMemoryCache(t *testing.T) {
	newCache := func(t *testing.T, ttl time.Duration) *cache.MemoryCache {
		t.Helper()
		c, err := cache.NewMemoryCache(100, ttl)
		require.NoError(t, err)
		t.Cleanup(c.Close)
		return c
	}

	rules := engine.RuleSet{
		{Products: []string{"gid://shop/Product/1"}, MinQty: 2, PercentOff: 10},
	}

	t.Run("Should store and retrieve a rule set by shop", func(t *testing.T) {
		c := newCache(t, time.Minute)

		c.Set("shop-1", rules)

		got, found := c.Get("shop-1")
		assert.True(t, found)
		assert.Equal(t, rules, got)
	})

	t.Run("Should miss for an unknown shop", func(t *testing.T) {
		c := newCache(t, time.Minute)

		_, found := c.Get("ghost-shop")
		assert.False(t, found)
	})

	t.Run("Should miss after deletion", func(t *testing.T) {
		c := newCache(t, time.Minute)

		c.Set("shop-1", rules)
		c.Del("shop-1")

		_, found := c.Get("shop-1")
		assert.False(t, found)
	})

	t.Run("Should expire entries after the TTL", func(t *testing.T) {
		c := newCache(t, 50*time.Millisecond)

		c.Set("shop-1", rules)

		assert.Eventually(t, func() bool {
			_, found := c.Get("shop-1")
			return !found
		}, time.Second, 20*time.Millisecond)
	})

	t.Run("Should keep shops isolated", func(t *testing.T) {
		c := newCache(t, time.Minute)

		other := engine.RuleSet{{Products: []string{"gid://shop/Product/9"}, MinQty: 1, PercentOff: 50}}
		c.Set("shop-1", rules)
		c.Set("shop-2", other)

		got, found := c.Get("shop-2")
		require.True(t, found)
		assert.Equal(t, other, got)
	})

	t.Run("Should reject a non-positive capacity", func(t *testing.T) {
		assert.Panics(t, func() {
			_, _ = cache.NewMemoryCache(0, time.Minute)
		})
	})
}
