package cache

import (
	"time"

	"github.com/maypok86/otter"

	"github.com/fbarbosa/hermes/internal/engine"
)

// MemoryCache acts as the evaluation plane's L1 layer in front of Redis,
// using a high-performance, contention-free algorithm (S3-FIFO) provided by
// the 'otter' library. Entries are keyed by shop ID.
//
// A short TTL bounds how long an evaluation can observe a rule set that a
// sync has since replaced: the L2 slot stays the source of truth.
type MemoryCache struct {
	store otter.Cache[string, engine.RuleSet]
}

// NewMemoryCache initializes the in-memory cache with strict limits.
// capacity: Max number of shops held (hard cap to prevent OOM).
// ttl: Time-To-Live for entries (staleness bound after a sync).
func NewMemoryCache(capacity int, ttl time.Duration) (*MemoryCache, error) {
	builder := otter.MustBuilder[string, engine.RuleSet](capacity).
		WithTTL(ttl)

	cache, err := builder.Build()
	if err != nil {
		return nil, err
	}

	return &MemoryCache{store: cache}, nil
}

// Get retrieves a shop's rule set from memory.
// Returns the rule set and a boolean indicating if it was found.
func (c *MemoryCache) Get(shopID string) (engine.RuleSet, bool) {
	return c.store.Get(shopID)
}

// Set adds or updates a shop's rule set in memory.
// The TTL configured in NewMemoryCache is applied automatically.
func (c *MemoryCache) Set(shopID string, rules engine.RuleSet) {
	c.store.Set(shopID, rules)
}

// Del removes a shop's rule set from memory.
func (c *MemoryCache) Del(shopID string) {
	c.store.Delete(shopID)
}

// Close gracefully shuts down the cache and its background cleanup goroutines.
func (c *MemoryCache) Close() {
	c.store.Close()
}
