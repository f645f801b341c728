package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the search service.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Search operation metrics
	SearchQueriesTotal   *prometheus.CounterVec
	SearchDuration       *prometheus.HistogramVec
	SearchResultsPerPage prometheus.Histogram

	// Facet cache metrics
	FacetCacheHitsTotal      prometheus.Counter
	FacetCacheMissesTotal    prometheus.Counter
	FacetCacheEvictionsTotal prometheus.Counter

	// Database metrics
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "partdex_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "partdex_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "partdex_search_queries_total",
				Help: "Total number of search core operations",
			},
			[]string{"operation", "status"},
		),
		SearchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "partdex_search_duration_seconds",
				Help:    "Search core operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		SearchResultsPerPage: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "partdex_search_results_per_page",
				Help:    "Number of results returned per search page",
				Buckets: prometheus.LinearBuckets(0, 20, 11),
			},
		),
		FacetCacheHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "partdex_facet_cache_hits_total",
			Help: "Facet cache hits",
		}),
		FacetCacheMissesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "partdex_facet_cache_misses_total",
			Help: "Facet cache misses",
		}),
		FacetCacheEvictionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "partdex_facet_cache_evictions_total",
			Help: "Facet cache evictions by the bounded-size policy",
		}),
		DBConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "partdex_db_connections_active",
			Help: "Active database connections",
		}),
		DBConnectionsIdle: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "partdex_db_connections_idle",
			Help: "Idle database connections",
		}),
		registry: registry,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.SearchQueriesTotal,
		m.SearchDuration,
		m.SearchResultsPerPage,
		m.FacetCacheHitsTotal,
		m.FacetCacheMissesTotal,
		m.FacetCacheEvictionsTotal,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
	)

	return m
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// ObserveSearch records one search core operation.
func (m *Metrics) ObserveSearch(operation string, err error, duration time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.SearchQueriesTotal.WithLabelValues(operation, status).Inc()
	m.SearchDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// Handler returns an HTTP handler exposing the metrics registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
