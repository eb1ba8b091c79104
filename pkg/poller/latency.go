package poller

import (
	"sync"
	"time"
)

const (
	latencyWindow  = 10
	minLatency     = 50 * time.Millisecond
	maxLatency     = 250 * time.Millisecond
	outlierCeiling = 1000 * time.Millisecond
	// starting estimate before any sample arrived
	defaultLatency = 100 * time.Millisecond
)

// latencyTracker keeps a moving average of per-read round trip times.
// Zero and absurdly slow samples are treated as measurement noise and
// discarded; the average is clamped so one bad stretch cannot stall
// the scheduler or make it hammer the adapter.
type latencyTracker struct {
	mu      sync.Mutex
	samples []time.Duration
	avg     time.Duration
}

func newLatencyTracker() *latencyTracker {
	return &latencyTracker{avg: defaultLatency}
}

func (t *latencyTracker) Add(sample time.Duration) {
	if sample <= 0 || sample > outlierCeiling {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.samples = append(t.samples, sample)
	if len(t.samples) > latencyWindow {
		t.samples = t.samples[len(t.samples)-latencyWindow:]
	}
	var sum time.Duration
	for _, s := range t.samples {
		sum += s
	}
	avg := sum / time.Duration(len(t.samples))
	if avg < minLatency {
		avg = minLatency
	}
	if avg > maxLatency {
		avg = maxLatency
	}
	t.avg = avg
}

func (t *latencyTracker) Average() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.avg
}

func (t *latencyTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.samples = nil
	t.avg = defaultLatency
}
