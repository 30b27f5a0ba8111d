package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by store ("redis", "memory")
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coly_cache_hits_total",
			Help: "Total number of cache hits by store",
		},
		[]string{"store"},
	)

	// CacheMisses tracks lookups that no store could serve
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "coly_cache_misses_total",
			Help: "Total number of cache misses across all stores",
		},
	)

	// CacheErrors tracks absorbed cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coly_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation", "store"}, // operation: "get", "set", "delete", "delete_pattern", "encode", "decode"
	)

	// KeysRemoved tracks keys removed by delete and delete-pattern calls
	KeysRemoved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coly_cache_keys_removed_total",
			Help: "Total number of cache keys removed by delete operations",
		},
		[]string{"store"},
	)

	// FallbackEntries tracks the number of entries held by the fallback store
	FallbackEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "coly_fallback_entries",
			Help: "Current number of entries in the in-process fallback store",
		},
	)

	// PrimaryBreakerState tracks the primary store circuit breaker
	// (0 closed, 1 half-open, 2 open)
	PrimaryBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "coly_cache_primary_breaker_state",
			Help: "Circuit breaker state of the primary cache store",
		},
	)
)
