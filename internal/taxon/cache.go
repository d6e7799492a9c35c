package taxon

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/JonMunkholm/dwcheck/internal/core"
)

// DefaultCacheSize bounds the number of memoized names.
const DefaultCacheSize = 10000

// Cache memoizes classifications keyed by the exact name string.
// Implementations must be safe for concurrent use.
type Cache interface {
	Get(name string) (core.TaxonResult, bool)
	Add(name string, result core.TaxonResult)
	Len() int
}

// LRUCache is a bounded, thread-safe Cache.
type LRUCache struct {
	inner *lru.Cache[string, core.TaxonResult]
}

// NewLRUCache creates a cache holding at most size names.
// A non-positive size uses DefaultCacheSize.
func NewLRUCache(size int) *LRUCache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	// lru.New only fails for a non-positive size.
	inner, _ := lru.New[string, core.TaxonResult](size)
	return &LRUCache{inner: inner}
}

// Get returns the memoized result for name.
func (c *LRUCache) Get(name string) (core.TaxonResult, bool) {
	return c.inner.Get(name)
}

// Add memoizes result for name, evicting the least recently used entry when full.
func (c *LRUCache) Add(name string, result core.TaxonResult) {
	c.inner.Add(name, result)
}

// Len returns the number of memoized names.
func (c *LRUCache) Len() int {
	return c.inner.Len()
}

// Purge drops every entry.
func (c *LRUCache) Purge() {
	c.inner.Purge()
}

// Seed preloads results, mainly for tests and warm starts.
func (c *LRUCache) Seed(results ...core.TaxonResult) *LRUCache {
	for _, r := range results {
		c.inner.Add(r.Name, r)
	}
	return c
}
