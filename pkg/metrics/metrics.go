// Package metrics exposes the Prometheus registry shared by the cache
// service. Collectors are declared next to the code that updates them
// (cache, monitor, invalidation, tasks) and registered through promauto;
// this package only serves them.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registerer promauto collectors land in.
var Registry = prometheus.DefaultRegisterer

// Gatherer is read by Handler.
var Gatherer = prometheus.DefaultGatherer

// Handler serves every registered collector in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Cache Metrics (pkg/cache):
//   - coly_cache_hits_total{store} (Counter): lookups served, store is "redis" or "memory"
//   - coly_cache_misses_total (Counter): lookups no store could serve
//   - coly_cache_errors_total{operation, store} (Counter): absorbed store and codec errors
//   - coly_cache_keys_removed_total{store} (Counter): keys removed by delete calls
//   - coly_fallback_entries (Gauge): entries held in process
//   - coly_cache_primary_breaker_state (Gauge): 0 closed, 1 half-open, 2 open
//
// Operation Metrics (pkg/monitor):
//   - coly_operation_duration_seconds{operation, cache} (Histogram): memoized call latency
//
// Invalidation Metrics (pkg/invalidation):
//   - coly_cache_invalidations_total{event} (Counter): video, user and playlist purges
//
// Task Metrics (pkg/tasks):
//   - coly_task_runs_total{task, result} (Counter): iterations by success, error or panic
//   - coly_task_backoff_seconds{task} (Histogram): pause after a failed iteration
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(coly_cache_hits_total[5m])) /
//   (sum(rate(coly_cache_hits_total[5m])) + sum(rate(coly_cache_misses_total[5m])))
//
//   # Share of hits served from process memory (primary degraded)
//   sum(rate(coly_cache_hits_total{store="memory"}[5m])) / sum(rate(coly_cache_hits_total[5m]))
//
//   # Primary breaker open
//   coly_cache_primary_breaker_state == 2
//
//   # P95 latency per operation on a miss
//   histogram_quantile(0.95, sum by (le, operation) (rate(coly_operation_duration_seconds_bucket{cache="miss"}[5m])))
//
//   # Failing background tasks
//   rate(coly_task_runs_total{result!="success"}[15m]) > 0
