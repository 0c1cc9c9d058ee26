// Package clock provides the millisecond scan clock the event loop polls.
package clock

import (
	"sync"
	"time"
)

// Clock reports elapsed time since the loop started.
type Clock interface {
	Now() time.Duration
}

// Monotonic reads the runtime's monotonic clock, truncated to milliseconds.
type Monotonic struct {
	start time.Time
}

// NewMonotonic starts a clock at zero.
func NewMonotonic() *Monotonic {
	return &Monotonic{start: time.Now()}
}

// Now returns the elapsed time since NewMonotonic, in whole milliseconds.
func (m *Monotonic) Now() time.Duration {
	return time.Since(m.start).Truncate(time.Millisecond)
}

// Manual is a clock that only moves when told to. Replay and tests use it.
type Manual struct {
	mu  sync.Mutex
	now time.Duration
}

// NewManual creates a manual clock at the given time.
func NewManual(at time.Duration) *Manual {
	return &Manual{now: at}
}

// Now returns the current manual time.
func (m *Manual) Now() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Set moves the clock to at. Moving backwards is ignored.
func (m *Manual) Set(at time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if at > m.now {
		m.now = at
	}
}

// Advance moves the clock forward by d and returns the new time.
func (m *Manual) Advance(d time.Duration) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d > 0 {
		m.now += d
	}
	return m.now
}
