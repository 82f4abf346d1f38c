package scheduler

import "sync"

// goodputAlpha is the EWMA smoothing factor named in spec.md §4.5.
const goodputAlpha = 0.3

// goodputFloorBps is the minimum goodput estimate, avoiding starvation of a
// channel that has never successfully delivered a sample.
const goodputFloorBps = 8_000 // 8 KB/s (the estimate is in bytes/second)

// GoodputEstimator tracks a per-channel EWMA of acked bytes per second.
type GoodputEstimator struct {
	mu    sync.Mutex
	value float64
	init  bool
}

// NewGoodputEstimator returns an estimator seeded at the floor.
func NewGoodputEstimator() *GoodputEstimator {
	return &GoodputEstimator{value: goodputFloorBps, init: true}
}

// Observe folds one (bytes, seconds) delivery sample into the estimate.
func (g *GoodputEstimator) Observe(bytes int, seconds float64) {
	if seconds <= 0 {
		return
	}
	sample := float64(bytes) / seconds

	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.init {
		g.value = sample
		g.init = true
		return
	}
	g.value = goodputAlpha*sample + (1-goodputAlpha)*g.value
	if g.value < goodputFloorBps {
		g.value = goodputFloorBps
	}
}

// Estimate returns the current goodput estimate in bytes/second.
func (g *GoodputEstimator) Estimate() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.value
}
