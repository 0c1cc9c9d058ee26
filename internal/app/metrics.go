package app

import (
	"sync/atomic"
	"time"
)

// Metrics tracks event loop timing. All methods are safe for concurrent
// use; the loop records and anything may snapshot.
type Metrics struct {
	// Loop iterations
	iterCount   atomic.Uint64
	iterTotalNs atomic.Int64
	iterMaxNs   atomic.Int64
	overruns    atomic.Uint64

	// Source events
	eventCount atomic.Uint64
	lateNs     atomic.Int64
	lateMaxNs  atomic.Int64

	// Status redraws
	drawCount atomic.Uint64

	startTime atomic.Int64
}

// NewMetrics creates a new metrics tracker.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.startTime.Store(time.Now().UnixNano())
	return m
}

// RecordIteration records the work time of one loop iteration. An
// iteration longer than the scan interval is an overrun.
func (m *Metrics) RecordIteration(d, interval time.Duration) {
	ns := d.Nanoseconds()
	m.iterCount.Add(1)
	m.iterTotalNs.Add(ns)
	storeMax(&m.iterMaxNs, ns)
	if interval > 0 && d > interval {
		m.overruns.Add(1)
	}
}

// RecordEvent records a source event handled late by lag.
func (m *Metrics) RecordEvent(lag time.Duration) {
	m.eventCount.Add(1)
	if lag < 0 {
		lag = 0
	}
	m.lateNs.Add(lag.Nanoseconds())
	storeMax(&m.lateMaxNs, lag.Nanoseconds())
}

// RecordDraw records a status redraw.
func (m *Metrics) RecordDraw() {
	m.drawCount.Add(1)
}

func storeMax(v *atomic.Int64, ns int64) {
	for {
		old := v.Load()
		if ns <= old {
			return
		}
		if v.CompareAndSwap(old, ns) {
			return
		}
	}
}

// Snapshot returns a snapshot of current metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	iters := m.iterCount.Load()
	events := m.eventCount.Load()

	var avgIter, avgLag time.Duration
	if iters > 0 {
		avgIter = time.Duration(m.iterTotalNs.Load() / int64(iters))
	}
	if events > 0 {
		avgLag = time.Duration(m.lateNs.Load() / int64(events))
	}

	return MetricsSnapshot{
		Uptime:     time.Since(time.Unix(0, m.startTime.Load())),
		Iterations: iters,
		AvgIter:    avgIter,
		MaxIter:    time.Duration(m.iterMaxNs.Load()),
		Overruns:   m.overruns.Load(),
		Events:     events,
		AvgLag:     avgLag,
		MaxLag:     time.Duration(m.lateMaxNs.Load()),
		Draws:      m.drawCount.Load(),
	}
}

// Reset clears all metrics.
func (m *Metrics) Reset() {
	m.iterCount.Store(0)
	m.iterTotalNs.Store(0)
	m.iterMaxNs.Store(0)
	m.overruns.Store(0)
	m.eventCount.Store(0)
	m.lateNs.Store(0)
	m.lateMaxNs.Store(0)
	m.drawCount.Store(0)
	m.startTime.Store(time.Now().UnixNano())
}

// MetricsSnapshot is a point-in-time view of metrics.
type MetricsSnapshot struct {
	Uptime     time.Duration
	Iterations uint64
	AvgIter    time.Duration
	MaxIter    time.Duration
	Overruns   uint64
	Events     uint64
	AvgLag     time.Duration
	MaxLag     time.Duration
	Draws      uint64
}

// OverrunRate returns the percentage of iterations that overran.
func (s MetricsSnapshot) OverrunRate() float64 {
	if s.Iterations == 0 {
		return 0
	}
	return float64(s.Overruns) / float64(s.Iterations) * 100
}
