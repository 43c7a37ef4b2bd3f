package embedding

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache memoizes folder-to-vector lookups for the lifetime of a processing
// session. Entries are evicted by size and age; the bound exists so a large
// tree cannot grow the process without limit.
type Cache struct {
	lru *expirable.LRU[string, []float64]
}

// NewCache creates a bounded embedding cache. maxEntries must be positive;
// a zero ttl disables age-based eviction.
func NewCache(maxEntries int, ttl time.Duration) *Cache {
	return &Cache{lru: expirable.NewLRU[string, []float64](maxEntries, nil, ttl)}
}

// GetOrCompute returns the cached vector for key, or computes and stores it.
// A compute error is returned as-is and nothing is cached.
func (c *Cache) GetOrCompute(key string, compute func() ([]float64, error)) ([]float64, error) {
	if v, ok := c.lru.Get(key); ok {
		return v, nil
	}
	v, err := compute()
	if err != nil {
		return nil, err
	}
	c.lru.Add(key, v)
	return v, nil
}

// Len reports the number of live cache entries.
func (c *Cache) Len() int { return c.lru.Len() }

// Purge drops every cached vector.
func (c *Cache) Purge() { c.lru.Purge() }
