package engine

import (
	"sync"
	"sync/atomic"
)

// latencyAlpha is the smoothing factor of the exponential moving average
// over per-lead detection latency.
const latencyAlpha = 0.1

// Metrics tracks engine-wide detection counters. Safe for concurrent use
// by batch workers.
type Metrics struct {
	totalDetections atomic.Int64
	cacheHits       atomic.Int64
	cacheMisses     atomic.Int64

	mu         sync.Mutex
	avgLatency float64 // seconds per lead, EMA
}

// NewMetrics creates zeroed metrics.
func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) recordDetection() { m.totalDetections.Add(1) }
func (m *Metrics) recordHit()       { m.cacheHits.Add(1) }
func (m *Metrics) recordMiss()      { m.cacheMisses.Add(1) }

// observeLatency folds one per-lead latency sample (seconds) into the EMA.
func (m *Metrics) observeLatency(perLeadSeconds float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.avgLatency = latencyAlpha*perLeadSeconds + (1-latencyAlpha)*m.avgLatency
}

// MetricsSnapshot is a point-in-time view of the counters.
type MetricsSnapshot struct {
	TotalDetections     int64   `json:"total_detections"`
	CacheHits           int64   `json:"cache_hits"`
	CacheMisses         int64   `json:"cache_misses"`
	CacheHitRate        float64 `json:"cache_hit_rate"` // percent
	AvgDetectionSeconds float64 `json:"avg_detection_seconds"`
}

// Snapshot returns the current counter values.
func (m *Metrics) Snapshot() MetricsSnapshot {
	hits := m.cacheHits.Load()
	misses := m.cacheMisses.Load()

	m.mu.Lock()
	avg := m.avgLatency
	m.mu.Unlock()

	total := hits + misses
	if total == 0 {
		total = 1
	}

	return MetricsSnapshot{
		TotalDetections:     m.totalDetections.Load(),
		CacheHits:           hits,
		CacheMisses:         misses,
		CacheHitRate:        float64(hits) / float64(total) * 100,
		AvgDetectionSeconds: avg,
	}
}
