package hid

import (
	"fmt"
	"io"
	"os"
	"slices"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/dshills/taphold/internal/dispatcher"
	"github.com/dshills/taphold/internal/input/key"
	"github.com/dshills/taphold/internal/input/keymap"
)

// heldKey is one occupied key slot. The same keycode may be held by more
// than one physical key.
type heldKey struct {
	code  key.Keycode
	mods  key.Modifier
	count int
}

// Reporter converts resolved actions into HID reports. Emit and Tick
// must be called from the event loop; SetLEDs and LEDs may be called from
// any goroutine.
type Reporter struct {
	w     io.Writer
	log   zerolog.Logger
	mouse *MouseKeys

	modRefs  [8]int
	keys     []heldKey
	consumer uint16

	lastKeyboard KeyboardReport
	lastConsumer ConsumerReport

	leds     atomic.Uint32
	reports  atomic.Uint64
	dropped  atomic.Uint64
	failures atomic.Uint64
	lastErr  atomic.Pointer[error]
}

// NewReporter creates a reporter writing to w.
func NewReporter(w io.Writer, mouse MouseConfig, log zerolog.Logger) *Reporter {
	return &Reporter{
		w:     w,
		log:   log.With().Str("component", "hid").Logger(),
		mouse: NewMouseKeys(mouse),
	}
}

// OpenDevice opens a HID gadget device for reading and writing.
func OpenDevice(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open hid device: %w", err)
	}
	return f, nil
}

// Emit implements dispatcher.Sink.
func (r *Reporter) Emit(res dispatcher.Resolved) {
	a := res.Action
	switch a.Kind {
	case keymap.ActionModifier:
		r.setMods(a.Mods, res.Pressed)
		r.flushKeyboard()
	case keymap.ActionKey:
		r.emitKey(a, res.Pressed, res.Time)
	}
}

func (r *Reporter) emitKey(a keymap.Action, pressed bool, now time.Duration) {
	k := a.Keycode
	switch {
	case k.IsModifier():
		r.setMods(k.ModifierBit()|a.Mods, pressed)
		r.flushKeyboard()

	case k.IsConsumer():
		usage, _ := ConsumerUsage(k)
		if pressed {
			r.consumer = usage
		} else if r.consumer == usage {
			r.consumer = 0
		}
		r.flushConsumer()

	case k.IsMouse():
		if !a.Mods.IsEmpty() {
			r.setMods(a.Mods, pressed)
			r.flushKeyboard()
		}
		if pressed {
			r.write(r.mouse.Press(k, now).Bytes())
		} else {
			r.write(r.mouse.Release(k).Bytes())
		}

	case k.IsBasic():
		if pressed {
			r.pressKey(k, a.Mods)
		} else {
			r.releaseKey(k)
		}
		r.flushKeyboard()
	}
}

func (r *Reporter) setMods(mods key.Modifier, pressed bool) {
	for i := range r.modRefs {
		if !mods.Has(key.Modifier(1) << i) {
			continue
		}
		if pressed {
			r.modRefs[i]++
		} else if r.modRefs[i] > 0 {
			r.modRefs[i]--
		}
	}
}

func (r *Reporter) pressKey(k key.Keycode, mods key.Modifier) {
	if i := r.slot(k); i >= 0 {
		r.keys[i].count++
		r.keys[i].mods = r.keys[i].mods.With(mods)
		return
	}
	if len(r.keys) >= KeySlots {
		r.dropped.Add(1)
		r.log.Warn().Stringer("key", k).Msg("key rollover exceeded, press dropped")
		return
	}
	r.keys = append(r.keys, heldKey{code: k, mods: mods, count: 1})
}

func (r *Reporter) releaseKey(k key.Keycode) {
	i := r.slot(k)
	if i < 0 {
		return
	}
	r.keys[i].count--
	if r.keys[i].count == 0 {
		r.keys = slices.Delete(r.keys, i, i+1)
	}
}

func (r *Reporter) slot(k key.Keycode) int {
	return slices.IndexFunc(r.keys, func(h heldKey) bool { return h.code == k })
}

// Keyboard returns the current keyboard report.
func (r *Reporter) Keyboard() KeyboardReport {
	var rep KeyboardReport
	for i, n := range r.modRefs {
		if n > 0 {
			rep.Mods |= key.Modifier(1) << i
		}
	}
	for i, h := range r.keys {
		rep.Mods |= h.mods
		rep.Keys[i] = uint8(h.code)
	}
	return rep
}

func (r *Reporter) flushKeyboard() {
	rep := r.Keyboard()
	if rep == r.lastKeyboard {
		return
	}
	r.lastKeyboard = rep
	r.write(rep.Bytes())
}

func (r *Reporter) flushConsumer() {
	rep := ConsumerReport{Usage: r.consumer}
	if rep == r.lastConsumer {
		return
	}
	r.lastConsumer = rep
	r.write(rep.Bytes())
}

// Tick sends accelerated mouse movement while movement keys are held.
func (r *Reporter) Tick(now time.Duration) {
	if rep, due := r.mouse.Tick(now); due {
		r.write(rep.Bytes())
	}
}

// Reset releases everything and sends empty reports.
func (r *Reporter) Reset() {
	r.modRefs = [8]int{}
	r.keys = r.keys[:0]
	r.consumer = 0
	r.mouse = NewMouseKeys(r.mouse.config)
	r.flushKeyboard()
	r.flushConsumer()
	r.write(MouseReport{}.Bytes())
}

func (r *Reporter) write(b []byte) {
	if _, err := r.w.Write(b); err != nil {
		r.failures.Add(1)
		r.lastErr.Store(&err)
		r.log.Error().Err(err).Uint8("report", b[0]).Msg("report write failed")
		return
	}
	r.reports.Add(1)
}

// SetLEDs records the host LED state.
func (r *Reporter) SetLEDs(l LEDs) {
	r.leds.Store(uint32(l))
}

// LEDs returns the last host LED state.
func (r *Reporter) LEDs() LEDs {
	return LEDs(r.leds.Load())
}

// Stats holds reporter counters.
type Stats struct {
	Reports  uint64
	Dropped  uint64
	Failures uint64
	LastErr  error
}

// Stats returns the reporter counters.
func (r *Reporter) Stats() Stats {
	s := Stats{
		Reports:  r.reports.Load(),
		Dropped:  r.dropped.Load(),
		Failures: r.failures.Load(),
	}
	if err := r.lastErr.Load(); err != nil {
		s.LastErr = *err
	}
	return s
}
