package dispatcher

import (
	"sync/atomic"
	"time"

	"github.com/dshills/taphold/internal/taphold"
)

// Metrics counts resolution outcomes. Counters are atomic so a status
// view may read them while the loop runs.
type Metrics struct {
	eventsTotal      atomic.Uint64
	hookDrops        atomic.Uint64
	duplicatePresses atomic.Uint64
	ignoredReleases  atomic.Uint64

	taps           atomic.Uint64
	repeats        atomic.Uint64
	holdsTimeout   atomic.Uint64
	holdsInterrupt atomic.Uint64
	holdsLate      atomic.Uint64

	oneshotToggles      atomic.Uint64
	oneshotConsumptions atomic.Uint64
	actionsEmitted      atomic.Uint64

	startTime time.Time
	enabled   atomic.Bool
}

// NewMetrics creates a new enabled metrics collector.
func NewMetrics() *Metrics {
	m := &Metrics{startTime: time.Now()}
	m.enabled.Store(true)
	return m
}

// SetEnabled enables or disables collection.
func (m *Metrics) SetEnabled(enabled bool) {
	m.enabled.Store(enabled)
}

// IsEnabled returns whether collection is enabled.
func (m *Metrics) IsEnabled() bool {
	return m.enabled.Load()
}

// add bumps c when collection is enabled. Callers check m for nil.
func (m *Metrics) add(c *atomic.Uint64) {
	if !m.enabled.Load() {
		return
	}
	c.Add(1)
}

// RecordEvent records a raw event reaching the dispatcher.
func (m *Metrics) RecordEvent() {
	if m != nil {
		m.add(&m.eventsTotal)
	}
}

// RecordHookDrop records an event dropped by a pre-event hook.
func (m *Metrics) RecordHookDrop() {
	if m != nil {
		m.add(&m.hookDrops)
	}
}

// RecordDuplicatePress records a press of a key that is already down.
func (m *Metrics) RecordDuplicatePress() {
	if m != nil {
		m.add(&m.duplicatePresses)
	}
}

// RecordIgnoredRelease records a release with no matching press.
func (m *Metrics) RecordIgnoredRelease() {
	if m != nil {
		m.add(&m.ignoredReleases)
	}
}

// RecordTap records a press resolved as a tap.
func (m *Metrics) RecordTap() {
	if m != nil {
		m.add(&m.taps)
	}
}

// RecordRepeat records a rapid re-press granted auto-repeat.
func (m *Metrics) RecordRepeat() {
	if m != nil {
		m.add(&m.repeats)
	}
}

// RecordHold records a press resolved as a hold.
func (m *Metrics) RecordHold(reason taphold.Reason) {
	if m == nil {
		return
	}
	switch reason {
	case taphold.ReasonTimeout:
		m.add(&m.holdsTimeout)
	case taphold.ReasonInterrupt:
		m.add(&m.holdsInterrupt)
	case taphold.ReasonLateRelease:
		m.add(&m.holdsLate)
	}
}

// RecordToggle records a oneshot register toggle.
func (m *Metrics) RecordToggle() {
	if m != nil {
		m.add(&m.oneshotToggles)
	}
}

// RecordConsumption records armed modifiers merged into a keypress.
func (m *Metrics) RecordConsumption() {
	if m != nil {
		m.add(&m.oneshotConsumptions)
	}
}

// RecordEmit records an action sent to the sink.
func (m *Metrics) RecordEmit() {
	if m != nil {
		m.add(&m.actionsEmitted)
	}
}

// MetricsSnapshot holds a point-in-time view of metrics.
type MetricsSnapshot struct {
	EventsTotal      uint64
	HookDrops        uint64
	DuplicatePresses uint64
	IgnoredReleases  uint64

	Taps           uint64
	Repeats        uint64
	HoldsTimeout   uint64
	HoldsInterrupt uint64
	HoldsLate      uint64

	OneshotToggles      uint64
	OneshotConsumptions uint64
	ActionsEmitted      uint64

	Uptime time.Duration
}

// Holds returns the total number of hold resolutions.
func (s MetricsSnapshot) Holds() uint64 {
	return s.HoldsTimeout + s.HoldsInterrupt + s.HoldsLate
}

// Snapshot returns a point-in-time view of all metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	return MetricsSnapshot{
		EventsTotal:         m.eventsTotal.Load(),
		HookDrops:           m.hookDrops.Load(),
		DuplicatePresses:    m.duplicatePresses.Load(),
		IgnoredReleases:     m.ignoredReleases.Load(),
		Taps:                m.taps.Load(),
		Repeats:             m.repeats.Load(),
		HoldsTimeout:        m.holdsTimeout.Load(),
		HoldsInterrupt:      m.holdsInterrupt.Load(),
		HoldsLate:           m.holdsLate.Load(),
		OneshotToggles:      m.oneshotToggles.Load(),
		OneshotConsumptions: m.oneshotConsumptions.Load(),
		ActionsEmitted:      m.actionsEmitted.Load(),
		Uptime:              time.Since(m.startTime),
	}
}

// Reset zeroes all counters and restarts the uptime clock.
func (m *Metrics) Reset() {
	for _, c := range []*atomic.Uint64{
		&m.eventsTotal, &m.hookDrops, &m.duplicatePresses, &m.ignoredReleases,
		&m.taps, &m.repeats, &m.holdsTimeout, &m.holdsInterrupt, &m.holdsLate,
		&m.oneshotToggles, &m.oneshotConsumptions, &m.actionsEmitted,
	} {
		c.Store(0)
	}
	m.startTime = time.Now()
}
