// Package metrics records search latency and outcome counters in memory.
package metrics

import (
	"math"
	"slices"
	"sync"
	"time"
)

// DefaultHistogramSize is the sample cap used when none is given.
const DefaultHistogramSize = 4096

// Histogram keeps a bounded window of duration samples, in milliseconds.
type Histogram struct {
	mu      sync.RWMutex
	samples []float64
	maxSize int
}

// NewHistogram creates a histogram holding at most maxSize samples. Once
// full, the oldest fifth is dropped so trimming stays rare.
func NewHistogram(maxSize int) *Histogram {
	if maxSize <= 0 {
		maxSize = DefaultHistogramSize
	}
	return &Histogram{
		samples: make([]float64, 0, maxSize),
		maxSize: maxSize,
	}
}

// Record adds a duration sample.
func (h *Histogram) Record(d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.samples = append(h.samples, float64(d.Microseconds())/1000.0)
	if len(h.samples) > h.maxSize {
		h.samples = slices.Delete(h.samples, 0, max(h.maxSize/5, 1))
	}
}

// Time records the time elapsed since start.
func (h *Histogram) Time(start time.Time) {
	h.Record(time.Since(start))
}

// Percentile returns the value at percentile p (0-100), interpolating
// linearly between neighbouring samples.
func (h *Histogram) Percentile(p float64) float64 {
	h.mu.RLock()
	sorted := slices.Clone(h.samples)
	h.mu.RUnlock()

	if len(sorted) == 0 {
		return 0
	}
	slices.Sort(sorted)

	index := (p / 100.0) * float64(len(sorted)-1)
	lower := int(math.Floor(index))
	upper := int(math.Ceil(index))
	if lower == upper {
		return sorted[lower]
	}
	fraction := index - float64(lower)
	return sorted[lower]*(1-fraction) + sorted[upper]*fraction
}

// Summary returns count, mean and the usual percentiles.
func (h *Histogram) Summary() LatencyStats {
	h.mu.RLock()
	n := len(h.samples)
	var sum float64
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range h.samples {
		sum += v
		lo = min(lo, v)
		hi = max(hi, v)
	}
	h.mu.RUnlock()

	if n == 0 {
		return LatencyStats{}
	}
	return LatencyStats{
		Count: n,
		Mean:  sum / float64(n),
		P50:   h.Percentile(50),
		P95:   h.Percentile(95),
		Min:   lo,
		Max:   hi,
	}
}

// Count returns the number of samples held.
func (h *Histogram) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.samples)
}

// Reset clears all samples.
func (h *Histogram) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.samples = h.samples[:0]
}

// LatencyStats summarizes a histogram. Durations are milliseconds.
type LatencyStats struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}
