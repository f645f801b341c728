package search

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/partdex/partdex/pkg/catalog"
)

// FacetCache fronts facet computation. Search and suggest responses are
// never cached: they must reflect true totals and fresh ranking per page.
// A miss is never an error, it just means recompute.
type FacetCache interface {
	Get(key string) (*catalog.DynamicFacets, bool)
	Put(key string, facets *catalog.DynamicFacets)
}

// facetCache is the in-process implementation: bounded entry count with
// insertion-order eviction and a fixed TTL. FIFO rather than LRU on
// purpose; entries are cheap to recompute and the simpler bookkeeping is
// enough at this hit rate.
type facetCache struct {
	mu         sync.RWMutex
	entries    map[string]facetEntry
	order      []string
	maxEntries int
	ttl        time.Duration

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64

	// onEvict, when set, is invoked once per evicted entry.
	onEvict func()
}

type facetEntry struct {
	facets    *catalog.DynamicFacets
	expiresAt time.Time
}

// NewFacetCache creates a bounded TTL cache holding at most maxEntries
// payloads.
func NewFacetCache(maxEntries int, ttl time.Duration) FacetCache {
	return &facetCache{
		entries:    make(map[string]facetEntry, maxEntries),
		order:      make([]string, 0, maxEntries),
		maxEntries: maxEntries,
		ttl:        ttl,
	}
}

// Get returns the cached payload unless it is past its expiry. Expired
// entries count as misses; their slots are reclaimed on the next Put.
func (c *facetCache) Get(key string) (*catalog.DynamicFacets, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || time.Now().After(entry.expiresAt) {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return entry.facets, true
}

// Put stores a payload, evicting the oldest-inserted entry when the cache
// is full.
func (c *facetCache) Put(key string, facets *catalog.DynamicFacets) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		// Refreshing an existing key keeps its original queue slot;
		// re-inserting would let a hot key pin the cache forever.
		c.entries[key] = facetEntry{facets: facets, expiresAt: time.Now().Add(c.ttl)}
		return
	}

	for len(c.entries) >= c.maxEntries && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		if _, ok := c.entries[oldest]; ok {
			delete(c.entries, oldest)
			c.evictions.Add(1)
			if c.onEvict != nil {
				c.onEvict()
			}
		}
	}

	c.entries[key] = facetEntry{facets: facets, expiresAt: time.Now().Add(c.ttl)}
	c.order = append(c.order, key)
}

// CacheStats reports hit/miss/eviction counters for diagnostics.
type CacheStats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
	Entries   int   `json:"entries"`
}

// Stats snapshots the cache counters.
func (c *facetCache) Stats() CacheStats {
	c.mu.RLock()
	entries := len(c.entries)
	c.mu.RUnlock()
	return CacheStats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Entries:   entries,
	}
}
