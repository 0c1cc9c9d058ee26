package dispatcher

import (
	"fmt"
	"time"

	"github.com/dshills/taphold/internal/input/key"
	"github.com/dshills/taphold/internal/input/keymap"
)

// Resolved is one action handed to the action-execution boundary.
type Resolved struct {
	// Pos is the key that produced the action.
	Pos key.Position

	// Action is the resolved action with any oneshot modifiers merged in.
	Action keymap.Action

	// Pressed is true for the action's press and false for its release.
	Pressed bool

	// Time is the loop time the action was resolved at.
	Time time.Duration

	// TapCount is zero for hold actions and the tap count otherwise.
	TapCount uint8
}

// IsHold reports whether the action came from a hold resolution.
func (r Resolved) IsHold() bool {
	return r.TapCount == 0
}

// String returns e.g. "r1c1 +Ctrl+a @150ms tap=1".
func (r Resolved) String() string {
	sign := "-"
	if r.Pressed {
		sign = "+"
	}
	s := fmt.Sprintf("%s %s%s @%dms", r.Pos, sign, r.Action, r.Time.Milliseconds())
	if r.IsHold() {
		return s + " hold"
	}
	return fmt.Sprintf("%s tap=%d", s, r.TapCount)
}

// Sink consumes resolved actions.
type Sink interface {
	Emit(r Resolved)
}

// SinkFunc is a function adapter for Sink.
type SinkFunc func(r Resolved)

// Emit implements Sink.
func (f SinkFunc) Emit(r Resolved) {
	f(r)
}

// MultiSink fans out to several sinks in order.
type MultiSink []Sink

// Emit implements Sink.
func (m MultiSink) Emit(r Resolved) {
	for _, s := range m {
		s.Emit(r)
	}
}

// Recorder is a Sink that keeps everything it receives.
type Recorder struct {
	Actions []Resolved
}

// Emit implements Sink.
func (r *Recorder) Emit(res Resolved) {
	r.Actions = append(r.Actions, res)
}

// Reset discards the recorded actions.
func (r *Recorder) Reset() {
	r.Actions = r.Actions[:0]
}
