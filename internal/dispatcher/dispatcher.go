package dispatcher

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/dshills/taphold/internal/input/key"
	"github.com/dshills/taphold/internal/input/keymap"
	"github.com/dshills/taphold/internal/oneshot"
	"github.com/dshills/taphold/internal/taphold"
	"github.com/dshills/taphold/internal/timing"
)

// lastTap remembers the most recent completed tap for rapid re-press
// detection. Only one key can be in its tap window at a time.
type lastTap struct {
	pos     key.Position
	release time.Duration
	count   uint8
	valid   bool
}

// queued is a resolved action held back until every key pressed before
// the one that produced it has been decided.
type queued struct {
	seq uint64
	res Resolved
}

// Dispatcher routes raw key events to tap-hold resolvers and forwards the
// resolved actions to a Sink. Output order follows press order: actions
// of a key pressed while an earlier key is undecided are delivered after
// that key's tap or hold. It is owned by a single loop goroutine; only
// Metrics may be read from elsewhere.
type Dispatcher struct {
	keymap  *keymap.Keymap
	table   *timing.Table
	oneshot *oneshot.Register
	sink    Sink
	hooks   *HookManager
	metrics *Metrics
	log     zerolog.Logger

	// Live resolvers in press order, and the same resolvers by key.
	order     []*taphold.Resolver
	resolvers map[key.Position]*taphold.Resolver

	// Single-role actions currently held down.
	held map[key.Position]keymap.Action

	// Oneshot modifiers merged into a held key's press.
	merged map[key.Position]key.Modifier

	// Press sequence numbers of keys currently down.
	seqs    map[key.Position]uint64
	nextSeq uint64

	// Resolved actions waiting for an earlier key's decision.
	outbox []queued

	layers    keymap.LayerMask
	layerRefs [keymap.MaxLayers]int

	last lastTap
	now  time.Duration
}

// New creates a dispatcher. The keymap and the timing table are validated
// against each other; a mismatch is a configuration error and no
// dispatcher is returned. A nil register gets a fresh one.
func New(km *keymap.Keymap, table *timing.Table, reg *oneshot.Register, sink Sink, config Config) (*Dispatcher, error) {
	if km == nil {
		return nil, ErrNilKeymap
	}
	if table == nil {
		return nil, ErrNilTable
	}
	if sink == nil {
		return nil, ErrNilSink
	}
	if err := km.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKeymap, err)
	}
	if err := table.Validate(km); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTable, err)
	}
	if reg == nil {
		reg = oneshot.New()
	}

	d := &Dispatcher{
		keymap:    km,
		table:     table,
		oneshot:   reg,
		sink:      sink,
		hooks:     NewHookManager(),
		log:       config.Logger.With().Str("component", "dispatcher").Logger(),
		resolvers: make(map[key.Position]*taphold.Resolver),
		held:      make(map[key.Position]keymap.Action),
		merged:    make(map[key.Position]key.Modifier),
		seqs:      make(map[key.Position]uint64),
	}

	if config.EnableMetrics {
		d.metrics = config.Metrics
		if d.metrics == nil {
			d.metrics = NewMetrics()
		}
	}

	return d, nil
}

// Hooks returns the hook manager.
func (d *Dispatcher) Hooks() *HookManager {
	return d.hooks
}

// Metrics returns the metrics collector, or nil if metrics are disabled.
func (d *Dispatcher) Metrics() *Metrics {
	return d.metrics
}

// Keymap returns the keymap in use.
func (d *Dispatcher) Keymap() *keymap.Keymap {
	return d.keymap
}

// Layers returns the active layer mask.
func (d *Dispatcher) Layers() keymap.LayerMask {
	return d.layers
}

// Armed returns the armed oneshot modifiers.
func (d *Dispatcher) Armed() key.Modifier {
	return d.oneshot.Armed()
}

// Pending returns the keys whose tap/hold decision is still open, in
// press order.
func (d *Dispatcher) Pending() []key.Position {
	var out []key.Position
	for _, r := range d.order {
		if r.Pending() {
			out = append(out, r.Pos())
		}
	}
	return out
}

// Down returns every key currently held, in no particular order.
func (d *Dispatcher) Down() []key.Position {
	out := make([]key.Position, 0, len(d.resolvers)+len(d.held))
	for pos := range d.resolvers {
		out = append(out, pos)
	}
	for pos := range d.held {
		out = append(out, pos)
	}
	return out
}

// NextDeadline returns the earliest time a pending key expires to hold.
func (d *Dispatcher) NextDeadline() (time.Duration, bool) {
	var next time.Duration
	found := false
	for _, r := range d.order {
		if !r.Pending() {
			continue
		}
		if dl := r.Deadline(); !found || dl < next {
			next, found = dl, true
		}
	}
	return next, found
}

// Now returns the time of the latest event or tick.
func (d *Dispatcher) Now() time.Duration {
	return d.now
}

// Tick advances time with no new event. Keys pressed for at least their
// tapping term resolve to hold. It must be called on every loop
// iteration.
func (d *Dispatcher) Tick(now time.Duration) {
	d.advance(now)
	d.expire(true)
}

// HandleEvent processes one debounced key event.
func (d *Dispatcher) HandleEvent(ev key.Event) {
	if !d.hooks.RunPreEvent(&ev) {
		d.metrics.RecordHookDrop()
		return
	}
	d.metrics.RecordEvent()
	d.advance(ev.Time)

	// Expiry is strict here so a release at exactly the tapping term
	// still counts as a tap.
	d.expire(false)

	if ev.Pressed {
		d.press(ev.Pos)
	} else {
		d.release(ev.Pos)
	}
}

// ReleaseAll releases every key that is down, in press order, as if
// each were released at now. A pending key resolves the way a real
// release would: a tap within its tapping term, a hold after it. Queued
// actions behind it are then delivered, so no earlier keystroke is lost.
func (d *Dispatcher) ReleaseAll(now time.Duration) {
	d.advance(now)

	down := d.Down()
	slices.SortFunc(down, func(a, b key.Position) int {
		return cmp.Compare(d.seqs[a], d.seqs[b])
	})
	for _, pos := range down {
		d.release(pos)
	}

	d.order = d.order[:0]
	clear(d.resolvers)
	clear(d.held)
	clear(d.merged)
	clear(d.seqs)
	d.last = lastTap{}
	d.flush()
}

// Queued returns the number of resolved actions waiting for an earlier
// key's decision.
func (d *Dispatcher) Queued() int {
	return len(d.outbox)
}

func (d *Dispatcher) advance(now time.Duration) {
	if now > d.now {
		d.now = now
	}
}

func (d *Dispatcher) expire(inclusive bool) {
	for _, r := range d.order {
		d.step(r, func() []taphold.Emission { return r.Tick(d.now, inclusive) })
	}
}

func (d *Dispatcher) press(pos key.Position) {
	if _, ok := d.resolvers[pos]; ok {
		d.duplicate(pos)
		return
	}
	if _, ok := d.held[pos]; ok {
		d.duplicate(pos)
		return
	}

	// Every pending key sees this press as an interrupt before the new
	// key is looked up, so a layer it activates applies to this press.
	for _, r := range d.order {
		d.step(r, func() []taphold.Emission { return r.Interrupt(d.now) })
	}

	binding := d.keymap.Lookup(d.layers, pos)
	last := d.last
	d.last = lastTap{}
	d.seqs[pos] = d.nextSeq
	d.nextSeq++

	if !binding.IsDualRole() {
		d.held[pos] = binding.Tap
		d.apply(pos, []taphold.Emission{{Action: binding.Tap, Pressed: true, TapCount: 1}})
		return
	}

	policy := d.table.Lookup(pos)
	var prior uint8
	if last.valid && last.pos == pos && d.now-last.release <= policy.TappingTerm {
		prior = last.count
	}

	r := taphold.New(pos, binding, policy)
	d.resolvers[pos] = r
	d.order = append(d.order, r)
	d.step(r, func() []taphold.Emission { return r.Press(d.now, prior) })

	d.log.Debug().
		Stringer("pos", pos).
		Stringer("binding", binding).
		Stringer("policy", policy).
		Uint8("prior_taps", prior).
		Msg("dual-role press")
}

func (d *Dispatcher) duplicate(pos key.Position) {
	d.metrics.RecordDuplicatePress()
	d.log.Debug().Stringer("pos", pos).Msg("duplicate press ignored")
}

func (d *Dispatcher) release(pos key.Position) {
	if r, ok := d.resolvers[pos]; ok {
		d.step(r, func() []taphold.Emission { return r.Release(d.now) })
		if r.Done() {
			d.remove(r)
			delete(d.seqs, pos)
			if r.State() == taphold.StateTap {
				d.last = lastTap{pos: pos, release: d.now, count: r.TapCount(), valid: true}
			}
		}
		return
	}

	if a, ok := d.held[pos]; ok {
		delete(d.held, pos)
		d.apply(pos, []taphold.Emission{{Action: a, Pressed: false, TapCount: 1}})
		delete(d.seqs, pos)
		return
	}

	d.metrics.RecordIgnoredRelease()
	d.log.Debug().Stringer("pos", pos).Msg("release without press ignored")
}

func (d *Dispatcher) remove(r *taphold.Resolver) {
	delete(d.resolvers, r.Pos())
	if i := slices.Index(d.order, r); i >= 0 {
		d.order = slices.Delete(d.order, i, i+1)
	}
}

// step runs one resolver transition, records its outcome and applies the
// emissions.
func (d *Dispatcher) step(r *taphold.Resolver, transition func() []taphold.Emission) {
	before := r.State()
	out := transition()
	after := r.State()

	switch {
	case before == taphold.StatePressed && after == taphold.StateTap:
		d.metrics.RecordTap()
		d.log.Debug().Stringer("pos", r.Pos()).Uint8("taps", r.TapCount()).Msg("resolved tap")
	case before == taphold.StatePressed && after != taphold.StatePressed:
		d.metrics.RecordHold(r.Reason())
		d.log.Debug().Stringer("pos", r.Pos()).Stringer("reason", r.Reason()).Msg("resolved hold")
	case before == taphold.StateIdle && after == taphold.StateRepeat:
		d.metrics.RecordRepeat()
		d.log.Debug().Stringer("pos", r.Pos()).Uint8("taps", r.TapCount()).Msg("resolved repeat")
	}

	d.apply(r.Pos(), out)
	d.flush()
}

// apply performs the layer side effects of resolved emissions and queues
// them for delivery. Oneshot toggles and their consumption wait for
// delivery so they follow output order.
func (d *Dispatcher) apply(pos key.Position, out []taphold.Emission) {
	for _, e := range out {
		a := e.Action

		switch a.Kind {
		case keymap.ActionNone, keymap.ActionTransparent:
			continue

		case keymap.ActionOneshot:
			// Only the tap press toggles; it is applied on delivery.
			if !e.Pressed || e.TapCount == 0 {
				continue
			}

		case keymap.ActionLayer:
			d.setLayer(a.Layer, e.Pressed)
		}

		d.enqueue(d.seqs[pos], Resolved{
			Pos:      pos,
			Action:   a,
			Pressed:  e.Pressed,
			Time:     d.now,
			TapCount: e.TapCount,
		})
	}
	d.flush()
}

// enqueue inserts res after every queued action with a lower or equal
// press sequence.
func (d *Dispatcher) enqueue(seq uint64, res Resolved) {
	i := len(d.outbox)
	for i > 0 && d.outbox[i-1].seq > seq {
		i--
	}
	d.outbox = slices.Insert(d.outbox, i, queued{seq: seq, res: res})
}

// flush delivers queued actions whose key was pressed no later than the
// oldest undecided key.
func (d *Dispatcher) flush() {
	oldest := uint64(math.MaxUint64)
	for _, r := range d.order {
		if r.Pending() {
			if s := d.seqs[r.Pos()]; s < oldest {
				oldest = s
			}
		}
	}

	n := 0
	for n < len(d.outbox) && d.outbox[n].seq <= oldest {
		n++
	}
	if n == 0 {
		return
	}
	ready := slices.Clone(d.outbox[:n])
	d.outbox = slices.Delete(d.outbox, 0, n)

	for _, q := range ready {
		res := q.res
		switch res.Action.Kind {
		case keymap.ActionOneshot:
			d.oneshot.Toggle(res.Action.Mods)
			d.metrics.RecordToggle()
			d.log.Debug().Stringer("armed", d.oneshot.Armed()).Msg("oneshot toggled")
			continue
		case keymap.ActionKey:
			res.Action = d.mergeOneshot(res.Pos, res.Action, res.Pressed)
		}

		d.sink.Emit(res)
		d.metrics.RecordEmit()
		d.hooks.RunPostEmit(res)
	}
}

// mergeOneshot combines armed modifiers into a delivered key press and
// clears the register. The release of that key carries the same
// modifiers.
func (d *Dispatcher) mergeOneshot(pos key.Position, a keymap.Action, pressed bool) keymap.Action {
	if !pressed {
		if mods, ok := d.merged[pos]; ok {
			delete(d.merged, pos)
			return a.WithMods(mods)
		}
		return a
	}

	armed := d.oneshot.Armed()
	if armed.IsEmpty() || a.IsModifierLike() {
		return a
	}
	d.oneshot.Clear()
	d.merged[pos] = armed
	d.metrics.RecordConsumption()
	d.log.Debug().Stringer("pos", pos).Stringer("mods", armed).Msg("oneshot consumed")
	return a.WithMods(armed)
}

func (d *Dispatcher) setLayer(layer uint8, on bool) {
	if layer == 0 || int(layer) >= len(d.layerRefs) {
		return
	}
	if on {
		d.layerRefs[layer]++
		d.layers = d.layers.Activate(layer)
	} else if d.layerRefs[layer] > 0 {
		d.layerRefs[layer]--
		if d.layerRefs[layer] == 0 {
			d.layers = d.layers.Deactivate(layer)
		}
	}
	d.log.Debug().Uint8("layer", layer).Bool("on", on).Uint8("mask", uint8(d.layers)).Msg("layer state")
}
