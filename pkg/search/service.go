package search

import (
	"database/sql"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/partdex/partdex/pkg/observability"
)

var tracer = otel.Tracer("partdex/search")

// Config holds the search core's tunables. The similarity thresholds were
// calibrated against real catalog data and are defaults, not law.
type Config struct {
	// Trigram similarity floors for fuzzy candidate inclusion.
	TitleSimilarity float64
	SKUSimilarity   float64

	// Facet cache behavior. Facets change slowly relative to request
	// rate and are the most expensive thing the core computes.
	FacetCacheTTL     time.Duration
	FacetCacheEntries int
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		TitleSimilarity:   0.15,
		SKUSimilarity:     0.30,
		FacetCacheTTL:     30 * time.Second,
		FacetCacheEntries: 500,
	}
}

// ReadPool hands out a database handle for one read query. The postgres
// connection manager round-robins read replicas behind this; tests plug
// in a single mocked handle.
type ReadPool interface {
	Read() *sql.DB
}

// singleDB is a ReadPool over one handle.
type singleDB struct{ db *sql.DB }

func (s singleDB) Read() *sql.DB { return s.db }

// SingleDB wraps a lone *sql.DB as a ReadPool.
func SingleDB(db *sql.DB) ReadPool { return singleDB{db: db} }

// SearchService is the façade over the query compiler, ranker, facet
// aggregator, suggestion engine and result cache. It holds no
// request-scoped state; the facet cache is the only shared mutable state
// and is injected so tests can substitute a fresh one.
type SearchService struct {
	pool    ReadPool
	cfg     Config
	cache   FacetCache
	metrics *observability.Metrics
}

// NewSearchService creates a search service with an in-process facet
// cache sized from cfg.
func NewSearchService(pool ReadPool, cfg Config) *SearchService {
	if cfg.TitleSimilarity <= 0 {
		cfg.TitleSimilarity = DefaultConfig().TitleSimilarity
	}
	if cfg.SKUSimilarity <= 0 {
		cfg.SKUSimilarity = DefaultConfig().SKUSimilarity
	}
	if cfg.FacetCacheTTL <= 0 {
		cfg.FacetCacheTTL = DefaultConfig().FacetCacheTTL
	}
	if cfg.FacetCacheEntries <= 0 {
		cfg.FacetCacheEntries = DefaultConfig().FacetCacheEntries
	}
	return &SearchService{
		pool:  pool,
		cfg:   cfg,
		cache: NewFacetCache(cfg.FacetCacheEntries, cfg.FacetCacheTTL),
	}
}

// WithCache swaps the facet cache backend (e.g. the Redis-backed cache
// for multi-instance deployments). Returns the service for chaining.
func (s *SearchService) WithCache(cache FacetCache) *SearchService {
	s.cache = cache
	return s
}

// WithMetrics enables operation and cache metrics. Returns the service
// for chaining.
func (s *SearchService) WithMetrics(metrics *observability.Metrics) *SearchService {
	s.metrics = metrics
	if c, ok := s.cache.(*facetCache); ok {
		c.onEvict = metrics.FacetCacheEvictionsTotal.Inc
	}
	return s
}

// observe records one core operation when metrics are enabled.
func (s *SearchService) observe(operation string, err error, started time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveSearch(operation, err, time.Since(started))
	}
}
