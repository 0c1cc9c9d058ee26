package timing

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dshills/taphold/internal/input/key"
	"github.com/dshills/taphold/internal/input/keymap"
)

// BaseTerm is the default tapping term.
const BaseTerm = 200 * time.Millisecond

// Table errors
var (
	ErrInvalidTerm = errors.New("tapping term must be positive")
	ErrUnknownKey  = errors.New("timing entry names a key not in the keymap")
)

// Policy is the timing behaviour of one key.
type Policy struct {
	// TappingTerm bounds a tap and is the delay before hold by timeout.
	TappingTerm time.Duration

	// ForceHold denies rapid re-presses the auto-repeat privilege.
	ForceHold bool

	// IgnoreInterrupt makes resolution depend on elapsed time only.
	IgnoreInterrupt bool
}

// DefaultPolicy returns the policy for keys without an entry.
func DefaultPolicy(base time.Duration) Policy {
	return Policy{
		TappingTerm:     base,
		ForceHold:       true,
		IgnoreInterrupt: false,
	}
}

// String returns e.g. "170ms force_hold ignore_interrupt".
func (p Policy) String() string {
	s := p.TappingTerm.String()
	if p.ForceHold {
		s += " force_hold"
	}
	if p.IgnoreInterrupt {
		s += " ignore_interrupt"
	}
	return s
}

// Entry is one configured override. Nil fields keep the default.
type Entry struct {
	TappingTerm     *time.Duration
	ForceHold       *bool
	IgnoreInterrupt *bool
}

// Term returns a pointer to d, for building entries.
func Term(d time.Duration) *time.Duration { return &d }

// Bool returns a pointer to b, for building entries.
func Bool(b bool) *bool { return &b }

// apply overlays e on p.
func (e Entry) apply(p Policy) Policy {
	if e.TappingTerm != nil {
		p.TappingTerm = *e.TappingTerm
	}
	if e.ForceHold != nil {
		p.ForceHold = *e.ForceHold
	}
	if e.IgnoreInterrupt != nil {
		p.IgnoreInterrupt = *e.IgnoreInterrupt
	}
	return p
}

// Merge returns e with every field set in other taking precedence.
func (e Entry) Merge(other Entry) Entry {
	if other.TappingTerm != nil {
		e.TappingTerm = other.TappingTerm
	}
	if other.ForceHold != nil {
		e.ForceHold = other.ForceHold
	}
	if other.IgnoreInterrupt != nil {
		e.IgnoreInterrupt = other.IgnoreInterrupt
	}
	return e
}

// Table maps key positions to policies. It is immutable once built.
type Table struct {
	def      Policy
	policies map[key.Position]Policy
}

// NewTable builds a table from a base term and per-key entries.
func NewTable(base time.Duration, entries map[key.Position]Entry) (*Table, error) {
	if base <= 0 {
		return nil, fmt.Errorf("%w: base term %v", ErrInvalidTerm, base)
	}

	t := &Table{
		def:      DefaultPolicy(base),
		policies: make(map[key.Position]Policy, len(entries)),
	}
	for pos, e := range entries {
		if e.TappingTerm != nil && *e.TappingTerm <= 0 {
			return nil, fmt.Errorf("%w: %s has %v", ErrInvalidTerm, pos, *e.TappingTerm)
		}
		t.policies[pos] = e.apply(t.def)
	}
	return t, nil
}

// Lookup returns the policy for pos. It never fails.
func (t *Table) Lookup(pos key.Position) Policy {
	if p, ok := t.policies[pos]; ok {
		return p
	}
	return t.def
}

// Default returns the policy used for keys without an entry.
func (t *Table) Default() Policy {
	return t.def
}

// Overridden reports whether pos has an explicit entry.
func (t *Table) Overridden(pos key.Position) bool {
	_, ok := t.policies[pos]
	return ok
}

// Positions returns the positions with explicit entries, sorted.
func (t *Table) Positions() []key.Position {
	out := make([]key.Position, 0, len(t.policies))
	for p := range t.policies {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Row != out[j].Row {
			return out[i].Row < out[j].Row
		}
		return out[i].Col < out[j].Col
	})
	return out
}

// Validate fails when an entry names a position the keymap lacks.
// Every keymap position is covered, explicitly or by the default.
func (t *Table) Validate(km *keymap.Keymap) error {
	for _, p := range t.Positions() {
		if !km.Has(p) {
			return fmt.Errorf("%w: %s", ErrUnknownKey, p)
		}
	}
	return nil
}
