package app

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dshills/taphold/internal/clock"
	"github.com/dshills/taphold/internal/dispatcher"
	"github.com/dshills/taphold/internal/input/key"
	"github.com/dshills/taphold/internal/input/keymap"
	"github.com/dshills/taphold/internal/oneshot"
	"github.com/dshills/taphold/internal/timing"
)

// DefaultStep is one scan of the event loop.
const DefaultStep = time.Millisecond

// ReplayOptions configures Replay.
type ReplayOptions struct {
	// Step is the tick interval between events. Zero uses DefaultStep.
	Step time.Duration

	// Logger receives resolution traces at debug level.
	Logger zerolog.Logger

	// Sinks also receive every resolved action.
	Sinks []dispatcher.Sink

	// OnTick is called after every tick, e.g. to advance mouse keys.
	OnTick func(now time.Duration)
}

// ReplayResult is the outcome of a replay.
type ReplayResult struct {
	Resolved []dispatcher.Resolved
	Metrics  dispatcher.MetricsSnapshot

	// End is the time of the last tick or event.
	End time.Duration

	// Armed is the oneshot state left at the end.
	Armed key.Modifier
}

// Replay runs seq through a fresh dispatcher on a manual clock. Between
// events the dispatcher is ticked every step, strictly before the next
// event's time, exactly as the loop would scan. After the last event it
// keeps ticking until no key is pending. Keys still down are not
// released.
func Replay(km *keymap.Keymap, table *timing.Table, seq *key.Sequence, opts ReplayOptions) (*ReplayResult, error) {
	step := opts.Step
	if step == 0 {
		step = DefaultStep
	}
	if step < 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStep, step)
	}
	if err := seq.Validate(); err != nil {
		return nil, err
	}

	rec := &dispatcher.Recorder{}
	sinks := append(dispatcher.MultiSink{rec}, opts.Sinks...)
	reg := oneshot.New()
	d, err := dispatcher.New(km, table, reg, sinks, dispatcher.DefaultConfig().WithLogger(opts.Logger))
	if err != nil {
		return nil, err
	}

	clk := clock.NewManual(0)
	tick := func(now time.Duration) {
		clk.Set(now)
		d.Tick(now)
		if opts.OnTick != nil {
			opts.OnTick(now)
		}
	}

	for _, ev := range seq.Events {
		for next := clk.Now() + step; next < ev.Time; next += step {
			tick(next)
		}
		clk.Set(ev.Time)
		d.HandleEvent(ev)
	}

	for {
		deadline, pending := d.NextDeadline()
		if !pending {
			break
		}
		now := clk.Now()
		for now < deadline {
			now += step
		}
		tick(now)
	}

	return &ReplayResult{
		Resolved: rec.Actions,
		Metrics:  d.Metrics().Snapshot(),
		End:      clk.Now(),
		Armed:    reg.Armed(),
	}, nil
}

// Replay runs seq against this application's keymap and policy table
// with a fresh dispatcher. The running loop is not affected.
func (a *App) Replay(seq *key.Sequence, step time.Duration) ([]dispatcher.Resolved, error) {
	res, err := Replay(a.km, a.table, seq, ReplayOptions{Step: step, Logger: a.log})
	if err != nil {
		return nil, err
	}
	return res.Resolved, nil
}
