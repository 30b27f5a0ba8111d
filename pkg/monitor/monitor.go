// Package monitor records per-operation call counts, durations and cache
// hit/miss tallies, and derives a hit rate per operation.
package monitor

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// OperationDuration tracks operation durations, hit or miss
var OperationDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "coly_operation_duration_seconds",
		Help:    "Duration of monitored operations",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	},
	[]string{"operation", "cache"}, // cache: "hit", "miss"
)

// Metric holds the counters of one operation.
type Metric struct {
	TotalCalls    int64   `json:"total_calls"`
	TotalDuration float64 `json:"total_duration"`
	CacheHits     int64   `json:"cache_hits"`
	CacheMisses   int64   `json:"cache_misses"`
	AvgDuration   float64 `json:"avg_duration"`
}

// HitRate returns hits as a percentage of calls, 0 when there were no calls.
func (m Metric) HitRate() float64 {
	if m.TotalCalls == 0 {
		return 0
	}
	return float64(m.CacheHits) / float64(m.TotalCalls) * 100
}

// Stats is a point-in-time snapshot of all recorded operations.
type Stats struct {
	// Uptime is seconds since the monitor was created
	Uptime float64 `json:"uptime"`

	Metrics map[string]Metric `json:"metrics"`

	// CacheHitRate is the percentage of calls served from cache, per
	// operation
	CacheHitRate map[string]float64 `json:"cache_hit_rate"`
}

// Monitor aggregates operation metrics. It is safe for concurrent use.
type Monitor struct {
	mu      sync.Mutex
	metrics map[string]*Metric
	started time.Time
	now     func() time.Time
}

// New creates a monitor whose uptime starts now.
func New() *Monitor {
	return &Monitor{
		metrics: make(map[string]*Metric),
		started: time.Now(),
		now:     time.Now,
	}
}

// RecordMetric records one call of operation.
func (m *Monitor) RecordMetric(operation string, duration time.Duration, cacheHit bool) {
	label := "miss"
	if cacheHit {
		label = "hit"
	}
	OperationDuration.WithLabelValues(operation, label).Observe(duration.Seconds())

	m.mu.Lock()
	defer m.mu.Unlock()

	metric, ok := m.metrics[operation]
	if !ok {
		metric = &Metric{}
		m.metrics[operation] = metric
	}

	metric.TotalCalls++
	metric.TotalDuration += duration.Seconds()
	if cacheHit {
		metric.CacheHits++
	} else {
		metric.CacheMisses++
	}
	metric.AvgDuration = metric.TotalDuration / float64(metric.TotalCalls)
}

// Track runs fn and records its duration under operation. A failed call is
// recorded as a miss under "<operation>_error" and its error is returned.
func (m *Monitor) Track(operation string, cacheHit bool, fn func() error) error {
	start := m.now()
	err := fn()
	elapsed := m.now().Sub(start)

	if err != nil {
		m.RecordMetric(operation+"_error", elapsed, false)
		return err
	}

	m.RecordMetric(operation, elapsed, cacheHit)
	return nil
}

// GetStats returns a snapshot of all recorded metrics.
func (m *Monitor) GetStats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := Stats{
		Uptime:       m.now().Sub(m.started).Seconds(),
		Metrics:      make(map[string]Metric, len(m.metrics)),
		CacheHitRate: make(map[string]float64, len(m.metrics)),
	}

	for op, metric := range m.metrics {
		stats.Metrics[op] = *metric
		stats.CacheHitRate[op] = metric.HitRate()
	}

	return stats
}
