// Package oneshot holds the modifiers armed for the next keypress.
//
// The register is toggled by the oneshot key and read and cleared by the
// dispatcher when it merges armed modifiers into a resolved key action.
// It has no failure modes.
package oneshot

import "github.com/dshills/taphold/internal/input/key"

// Register is the set of armed oneshot modifiers. The zero value is an
// empty register. It is owned by the event loop and is not safe for
// concurrent use.
type Register struct {
	armed   key.Modifier
	toggles uint64
}

// New creates an empty register.
func New() *Register {
	return &Register{}
}

// Toggle arms each bit of mod that is disarmed and disarms each bit that
// is armed.
func (r *Register) Toggle(mod key.Modifier) {
	r.armed = r.armed.Toggle(mod)
	r.toggles++
}

// Armed returns the armed modifiers.
func (r *Register) Armed() key.Modifier {
	return r.armed
}

// IsArmed reports whether any bit of mod is armed.
func (r *Register) IsArmed(mod key.Modifier) bool {
	return r.armed.Has(mod)
}

// Clear disarms everything.
func (r *Register) Clear() {
	r.armed = key.ModNone
}

// Toggles returns how many times Toggle has been called.
func (r *Register) Toggles() uint64 {
	return r.toggles
}
