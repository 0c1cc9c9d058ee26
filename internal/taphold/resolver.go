package taphold

import (
	"math"
	"time"

	"github.com/dshills/taphold/internal/input/key"
	"github.com/dshills/taphold/internal/input/keymap"
	"github.com/dshills/taphold/internal/timing"
)

// State is the resolver state.
type State uint8

const (
	StateIdle State = iota
	StatePressed
	StateHold
	StateRepeat
	StateTap
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePressed:
		return "pressed"
	case StateHold:
		return "hold"
	case StateRepeat:
		return "repeat"
	case StateTap:
		return "tap"
	default:
		return "unknown"
	}
}

// Reason records what triggered a hold.
type Reason uint8

const (
	ReasonNone Reason = iota
	ReasonTimeout
	ReasonInterrupt
	ReasonLateRelease
)

// String returns the reason name.
func (r Reason) String() string {
	switch r {
	case ReasonTimeout:
		return "timeout"
	case ReasonInterrupt:
		return "interrupt"
	case ReasonLateRelease:
		return "late-release"
	default:
		return "none"
	}
}

// Emission is one resolved press or release. TapCount is zero for hold
// actions and at least one for tap actions.
type Emission struct {
	Action   keymap.Action
	Pressed  bool
	TapCount uint8
}

// Resolver is the tap/hold state machine for one press of one key.
type Resolver struct {
	pos     key.Position
	binding keymap.Binding
	policy  timing.Policy

	state     State
	pressTime time.Duration
	tapCount  uint8
	reason    Reason
	released  bool
}

// New creates an idle resolver. The binding and policy are captured for
// the lifetime of the press.
func New(pos key.Position, binding keymap.Binding, policy timing.Policy) *Resolver {
	return &Resolver{
		pos:     pos,
		binding: binding,
		policy:  policy,
	}
}

// Press starts the press cycle. priorTaps is the tap count of an
// immediately preceding tap of the same key, or zero.
func (r *Resolver) Press(now time.Duration, priorTaps uint8) []Emission {
	if r.state != StateIdle || r.released {
		return nil
	}
	r.pressTime = now
	r.tapCount = priorTaps

	if priorTaps > 0 && !r.policy.ForceHold {
		r.tapCount = incTaps(priorTaps)
		r.state = StateRepeat
		return []Emission{{Action: r.binding.Tap, Pressed: true, TapCount: r.tapCount}}
	}

	r.state = StatePressed
	return nil
}

// Interrupt reports that another key was pressed.
func (r *Resolver) Interrupt(now time.Duration) []Emission {
	if r.state != StatePressed || r.policy.IgnoreInterrupt {
		return nil
	}
	return r.hold(ReasonInterrupt)
}

// Tick checks for hold by timeout. With inclusive set, elapsed time equal
// to the tapping term expires the key; otherwise it must exceed it. The
// dispatcher ticks exclusively before handling an event so that a release
// in the same millisecond as the expiry still wins.
func (r *Resolver) Tick(now time.Duration, inclusive bool) []Emission {
	if r.state != StatePressed {
		return nil
	}
	elapsed := now - r.pressTime
	if elapsed > r.policy.TappingTerm || (inclusive && elapsed == r.policy.TappingTerm) {
		return r.hold(ReasonTimeout)
	}
	return nil
}

// Release ends the press cycle. A release with no matching press is a
// no-op.
func (r *Resolver) Release(now time.Duration) []Emission {
	switch r.state {
	case StatePressed:
		if now-r.pressTime <= r.policy.TappingTerm {
			r.tapCount = incTaps(r.tapCount)
			r.state = StateTap
			r.released = true
			return []Emission{
				{Action: r.binding.Tap, Pressed: true, TapCount: r.tapCount},
				{Action: r.binding.Tap, Pressed: false, TapCount: r.tapCount},
			}
		}
		out := r.hold(ReasonLateRelease)
		r.state = StateIdle
		r.released = true
		return append(out, Emission{Action: r.binding.Hold, Pressed: false})

	case StateHold:
		r.state = StateIdle
		r.released = true
		return []Emission{{Action: r.binding.Hold, Pressed: false}}

	case StateRepeat:
		r.state = StateTap
		r.released = true
		return []Emission{{Action: r.binding.Tap, Pressed: false, TapCount: r.tapCount}}
	}
	return nil
}

func (r *Resolver) hold(reason Reason) []Emission {
	r.state = StateHold
	r.reason = reason
	r.tapCount = 0
	return []Emission{{Action: r.binding.Hold, Pressed: true}}
}

// Pos returns the key this resolver belongs to.
func (r *Resolver) Pos() key.Position { return r.pos }

// Binding returns the captured binding.
func (r *Resolver) Binding() keymap.Binding { return r.binding }

// Policy returns the captured timing policy.
func (r *Resolver) Policy() timing.Policy { return r.policy }

// State returns the current state.
func (r *Resolver) State() State { return r.state }

// Reason returns what triggered the hold, if any.
func (r *Resolver) Reason() Reason { return r.reason }

// TapCount returns the tap count of this press cycle.
func (r *Resolver) TapCount() uint8 { return r.tapCount }

// PressTime returns when the key was pressed.
func (r *Resolver) PressTime() time.Duration { return r.pressTime }

// Deadline returns when a pending press expires to hold.
func (r *Resolver) Deadline() time.Duration { return r.pressTime + r.policy.TappingTerm }

// Pending reports whether the decision is still open.
func (r *Resolver) Pending() bool { return r.state == StatePressed }

// Done reports whether the key has been released.
func (r *Resolver) Done() bool { return r.released }

// Resolved returns the decided action. The second result is false while
// the press is still pending.
func (r *Resolver) Resolved() (keymap.Action, bool) {
	switch r.state {
	case StateHold:
		return r.binding.Hold, true
	case StateTap, StateRepeat:
		return r.binding.Tap, true
	case StateIdle:
		if r.released {
			return r.binding.Hold, true
		}
	}
	return keymap.Action{}, false
}

func incTaps(n uint8) uint8 {
	if n == math.MaxUint8 {
		return n
	}
	return n + 1
}
