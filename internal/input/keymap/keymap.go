package keymap

import (
	"errors"
	"fmt"
	"math/bits"
	"sort"
	"strings"

	"github.com/dshills/taphold/internal/input/key"
)

// MaxLayers is the number of layers an 8-bit layer state can address.
const MaxLayers = 8

// Keymap errors
var (
	ErrNoLayers          = errors.New("keymap has no layers")
	ErrTooManyLayers     = errors.New("keymap has more than 8 layers")
	ErrUnknownPosition   = errors.New("position not in layout")
	ErrDuplicatePosition = errors.New("duplicate position in layout")
	ErrDuplicateLayer    = errors.New("duplicate layer name")
	ErrInvalidHold       = errors.New("hold action must be a modifier or layer")
)

// LayerMask is the set of active layers. Layer 0 is always active.
type LayerMask uint8

// Activate returns the mask with layer i switched on.
func (m LayerMask) Activate(i uint8) LayerMask {
	return m | 1<<i
}

// Deactivate returns the mask with layer i switched off.
func (m LayerMask) Deactivate(i uint8) LayerMask {
	return m &^ (1 << i)
}

// Active reports whether layer i is on. Layer 0 always is.
func (m LayerMask) Active(i uint8) bool {
	return i == 0 || m&(1<<i) != 0
}

// Highest returns the highest active layer index.
func (m LayerMask) Highest() uint8 {
	if m == 0 {
		return 0
	}
	return uint8(bits.Len8(uint8(m)) - 1)
}

// Layer holds the bindings of one layer. Cells missing from Bindings
// behave as transparent.
type Layer struct {
	Name     string
	Bindings map[key.Position]Binding
}

// NewLayer creates an empty layer.
func NewLayer(name string) *Layer {
	return &Layer{
		Name:     name,
		Bindings: make(map[key.Position]Binding),
	}
}

// Set assigns a binding to a position.
func (l *Layer) Set(pos key.Position, b Binding) *Layer {
	l.Bindings[pos] = b
	return l
}

// Keymap is the static layer table: position -> binding per layer.
type Keymap struct {
	// Name is the keymap identifier.
	Name string

	// Positions lists every physical key in layout order.
	Positions []key.Position

	// Layers are ordered by index; index 0 is the base layer.
	Layers []*Layer

	posSet map[key.Position]struct{}
}

// NewKeymap creates a keymap over the given layout positions.
func NewKeymap(name string, positions []key.Position) *Keymap {
	km := &Keymap{
		Name:      name,
		Positions: positions,
		posSet:    make(map[key.Position]struct{}, len(positions)),
	}
	for _, p := range positions {
		km.posSet[p] = struct{}{}
	}
	return km
}

// AddLayer appends a layer and returns its index.
func (k *Keymap) AddLayer(l *Layer) uint8 {
	k.Layers = append(k.Layers, l)
	return uint8(len(k.Layers) - 1)
}

// Has reports whether pos is part of the layout.
func (k *Keymap) Has(pos key.Position) bool {
	_, ok := k.posSet[pos]
	return ok
}

// LayerIndex returns the index of the named layer (case-insensitive).
func (k *Keymap) LayerIndex(name string) (uint8, bool) {
	for i, l := range k.Layers {
		if strings.EqualFold(l.Name, name) {
			return uint8(i), true
		}
	}
	return 0, false
}

// LayerName returns the name of layer i, or "" if out of range.
func (k *Keymap) LayerName(i uint8) string {
	if int(i) >= len(k.Layers) {
		return ""
	}
	return k.Layers[i].Name
}

// LayerNames returns all layer names in index order.
func (k *Keymap) LayerNames() []string {
	names := make([]string, len(k.Layers))
	for i, l := range k.Layers {
		names[i] = l.Name
	}
	return names
}

// Lookup returns the binding for pos under the active layer mask: the
// highest active layer with a non-transparent binding wins. Positions
// that resolve to nothing return a binding whose tap is ActionNone.
func (k *Keymap) Lookup(active LayerMask, pos key.Position) Binding {
	for i := len(k.Layers) - 1; i >= 0; i-- {
		if !active.Active(uint8(i)) {
			continue
		}
		b, ok := k.Layers[i].Bindings[pos]
		if !ok || b.IsTransparent() {
			continue
		}
		return b
	}
	return Single(NoAction())
}

// DualRoleKeys returns every position that is dual-role on any layer,
// in layout order.
func (k *Keymap) DualRoleKeys() []key.Position {
	var out []key.Position
	for _, p := range k.Positions {
		for _, l := range k.Layers {
			if l.Bindings[p].IsDualRole() {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

// Validate checks the keymap is usable by the dispatcher.
func (k *Keymap) Validate() error {
	if len(k.Layers) == 0 {
		return ErrNoLayers
	}
	if len(k.Layers) > MaxLayers {
		return fmt.Errorf("%w: %d", ErrTooManyLayers, len(k.Layers))
	}

	seen := make(map[key.Position]struct{}, len(k.Positions))
	for _, p := range k.Positions {
		if _, dup := seen[p]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicatePosition, p)
		}
		seen[p] = struct{}{}
	}

	names := make(map[string]struct{}, len(k.Layers))
	for i, l := range k.Layers {
		lname := strings.ToLower(l.Name)
		if _, dup := names[lname]; dup && lname != "" {
			return fmt.Errorf("%w: %q", ErrDuplicateLayer, l.Name)
		}
		names[lname] = struct{}{}

		// Sorted for a stable first error.
		positions := make([]key.Position, 0, len(l.Bindings))
		for p := range l.Bindings {
			positions = append(positions, p)
		}
		sort.Slice(positions, func(a, b int) bool {
			if positions[a].Row != positions[b].Row {
				return positions[a].Row < positions[b].Row
			}
			return positions[a].Col < positions[b].Col
		})

		for _, p := range positions {
			b := l.Bindings[p]
			if !k.Has(p) {
				return fmt.Errorf("layer %d (%s): %w: %s", i, l.Name, ErrUnknownPosition, p)
			}
			if err := k.checkAction(b.Tap); err != nil {
				return fmt.Errorf("layer %d (%s) %s: %w", i, l.Name, p, err)
			}
			if b.IsDualRole() {
				if b.Hold.Kind != ActionModifier && b.Hold.Kind != ActionLayer {
					return fmt.Errorf("layer %d (%s) %s: %w", i, l.Name, p, ErrInvalidHold)
				}
				if err := k.checkAction(b.Hold); err != nil {
					return fmt.Errorf("layer %d (%s) %s: %w", i, l.Name, p, err)
				}
			}
		}
	}
	return nil
}

func (k *Keymap) checkAction(a Action) error {
	if a.Kind == ActionLayer && int(a.Layer) >= len(k.Layers) {
		return fmt.Errorf("%w: %d", ErrUnknownLayer, a.Layer)
	}
	return nil
}

// Clone creates a deep copy of the keymap.
func (k *Keymap) Clone() *Keymap {
	positions := make([]key.Position, len(k.Positions))
	copy(positions, k.Positions)
	clone := NewKeymap(k.Name, positions)
	for _, l := range k.Layers {
		cl := NewLayer(l.Name)
		for p, b := range l.Bindings {
			cl.Bindings[p] = b
		}
		clone.AddLayer(cl)
	}
	return clone
}
