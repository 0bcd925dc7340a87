package metrics

import (
	"sync/atomic"
	"time"
)

// SearchMetrics tracks search service activity. The zero value is not
// usable; call NewSearchMetrics.
type SearchMetrics struct {
	// Latency of the id query (count + page, or the full dedupe scan)
	QueryLatency *Histogram

	// Latency of display row hydration
	HydrateLatency *Histogram

	Searches  atomic.Uint64
	Failures  atomic.Uint64
	Collapsed atomic.Uint64 // reprints removed by dedupe

	startTime time.Time
}

// NewSearchMetrics creates a metrics collector.
func NewSearchMetrics() *SearchMetrics {
	return &SearchMetrics{
		QueryLatency:   NewHistogram(DefaultHistogramSize),
		HydrateLatency: NewHistogram(DefaultHistogramSize),
		startTime:      time.Now(),
	}
}

// SearchStats is a snapshot of SearchMetrics.
type SearchStats struct {
	QueryLatency   LatencyStats `json:"query_latency"`
	HydrateLatency LatencyStats `json:"hydrate_latency"`

	Searches    uint64  `json:"searches"`
	Failures    uint64  `json:"failures"`
	Collapsed   uint64  `json:"collapsed"`
	SuccessRate float64 `json:"success_rate"` // percentage

	Uptime string `json:"uptime"`
}

// Stats returns a snapshot of the current statistics.
func (m *SearchMetrics) Stats() SearchStats {
	searches := m.Searches.Load()
	failures := m.Failures.Load()

	rate := 0.0
	if searches > 0 {
		rate = float64(searches-failures) / float64(searches) * 100
	}

	return SearchStats{
		QueryLatency:   m.QueryLatency.Summary(),
		HydrateLatency: m.HydrateLatency.Summary(),
		Searches:       searches,
		Failures:       failures,
		Collapsed:      m.Collapsed.Load(),
		SuccessRate:    rate,
		Uptime:         time.Since(m.startTime).Round(time.Second).String(),
	}
}

// Reset clears all metrics.
func (m *SearchMetrics) Reset() {
	m.QueryLatency.Reset()
	m.HydrateLatency.Reset()
	m.Searches.Store(0)
	m.Failures.Store(0)
	m.Collapsed.Store(0)
	m.startTime = time.Now()
}
