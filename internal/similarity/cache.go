package similarity

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/claimlens/similarityd/internal/fingerprint"
)

// Cache memoizes pairwise scorer results. The key is order-independent, so a
// score(a,b) lookup and a score(b,a) lookup share one entry.
//
// Eviction is LRU (hashicorp/golang-lru) rather than the strict FIFO of the
// reference behavior: repeated comparisons against the same hot documents
// stay warm. The cache is advisory; clearing it changes latency, never
// results.
type Cache struct {
	entries *lru.Cache[string, Metrics]
}

// NewCache creates a bounded cache.
func NewCache(size int) (*Cache, error) {
	entries, err := lru.New[string, Metrics](size)
	if err != nil {
		return nil, fmt.Errorf("creating score cache: %w", err)
	}
	return &Cache{entries: entries}, nil
}

// GetOrCompute returns the cached metrics for the pair, computing and storing
// them on a miss.
func (c *Cache) GetOrCompute(a, b fingerprint.Fingerprint, compute func() Metrics) Metrics {
	key := pairKey(a, b)
	if m, ok := c.entries.Get(key); ok {
		cacheHits.Inc()
		return m
	}
	cacheMisses.Inc()

	m := compute()
	c.entries.Add(key, m)
	cacheEntries.Set(float64(c.entries.Len()))
	return m
}

// Clear drops all cached scores.
func (c *Cache) Clear() {
	c.entries.Purge()
	cacheEntries.Set(0)
}

// Len returns the current number of cached pairs.
func (c *Cache) Len() int {
	return c.entries.Len()
}

// pairKey builds the order-independent cache key from the two fingerprint
// discriminators.
func pairKey(a, b fingerprint.Fingerprint) string {
	da, db := a.Discriminator(), b.Discriminator()
	if db < da {
		da, db = db, da
	}
	return da + "|" + db
}
