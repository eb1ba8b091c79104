package poller

import (
	"testing"
	"time"
)

func TestLatencyTrackerDefault(t *testing.T) {
	lt := newLatencyTracker()
	if got := lt.Average(); got != defaultLatency {
		t.Errorf("Average() = %v before any sample, want %v", got, defaultLatency)
	}
}

func TestLatencyTrackerAverage(t *testing.T) {
	lt := newLatencyTracker()
	lt.Add(80 * time.Millisecond)
	lt.Add(120 * time.Millisecond)
	if got := lt.Average(); got != 100*time.Millisecond {
		t.Errorf("Average() = %v, want 100ms", got)
	}
}

func TestLatencyTrackerDiscardsOutliers(t *testing.T) {
	lt := newLatencyTracker()
	lt.Add(100 * time.Millisecond)
	lt.Add(0)
	lt.Add(-5 * time.Millisecond)
	lt.Add(3 * time.Second)
	if got := lt.Average(); got != 100*time.Millisecond {
		t.Errorf("Average() = %v after outliers, want 100ms", got)
	}
}

func TestLatencyTrackerClamps(t *testing.T) {
	lt := newLatencyTracker()
	lt.Add(2 * time.Millisecond)
	if got := lt.Average(); got != minLatency {
		t.Errorf("Average() = %v, want clamp to %v", got, minLatency)
	}

	lt.Reset()
	lt.Add(900 * time.Millisecond)
	if got := lt.Average(); got != maxLatency {
		t.Errorf("Average() = %v, want clamp to %v", got, maxLatency)
	}
}

func TestLatencyTrackerWindow(t *testing.T) {
	lt := newLatencyTracker()
	for i := 0; i < latencyWindow; i++ {
		lt.Add(200 * time.Millisecond)
	}
	// old samples must age out of the window
	for i := 0; i < latencyWindow; i++ {
		lt.Add(60 * time.Millisecond)
	}
	if got := lt.Average(); got != 60*time.Millisecond {
		t.Errorf("Average() = %v after window rollover, want 60ms", got)
	}
}

func TestLatencyTrackerReset(t *testing.T) {
	lt := newLatencyTracker()
	lt.Add(240 * time.Millisecond)
	lt.Reset()
	if got := lt.Average(); got != defaultLatency {
		t.Errorf("Average() = %v after reset, want %v", got, defaultLatency)
	}
}
