package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for cache operations.
var (
	// CacheHits counts cache hits.
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "virascope_cache_hits_total",
		Help: "Total number of cache hits",
	})

	// CacheMisses counts cache misses.
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "virascope_cache_misses_total",
		Help: "Total number of cache misses",
	})

	// CacheErrors counts cache operation errors by operation.
	CacheErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "virascope_cache_errors_total",
		Help: "Total number of cache operation errors",
	}, []string{"operation"})
)
