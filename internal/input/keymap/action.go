package keymap

import (
	"strconv"

	"github.com/dshills/taphold/internal/input/key"
)

// ActionKind discriminates the Action union.
type ActionKind uint8

const (
	// ActionNone produces nothing (XXX).
	ActionNone ActionKind = iota

	// ActionTransparent defers to the next lower active layer (___).
	ActionTransparent

	// ActionKey sends a keycode, optionally with implicit modifiers ("%" is Shift+5).
	ActionKey

	// ActionModifier holds modifier bits while pressed.
	ActionModifier

	// ActionLayer activates a layer while pressed.
	ActionLayer

	// ActionOneshot toggles modifier bits in the oneshot register when tapped.
	ActionOneshot
)

// String returns the kind name.
func (k ActionKind) String() string {
	switch k {
	case ActionNone:
		return "none"
	case ActionTransparent:
		return "transparent"
	case ActionKey:
		return "key"
	case ActionModifier:
		return "modifier"
	case ActionLayer:
		return "layer"
	case ActionOneshot:
		return "oneshot"
	default:
		return "unknown"
	}
}

// Action is one logical output of a key. A Binding pairs a tap Action
// with an optional hold Action.
type Action struct {
	Kind    ActionKind
	Keycode key.Keycode
	Mods    key.Modifier
	Layer   uint8
}

// NoAction returns the empty action.
func NoAction() Action { return Action{Kind: ActionNone} }

// Transparent returns the fall-through action.
func Transparent() Action { return Action{Kind: ActionTransparent} }

// KeyAction returns an action sending k with the given implicit modifiers.
func KeyAction(k key.Keycode, mods key.Modifier) Action {
	return Action{Kind: ActionKey, Keycode: k, Mods: mods}
}

// ModAction returns an action holding mods.
func ModAction(mods key.Modifier) Action {
	return Action{Kind: ActionModifier, Mods: mods}
}

// LayerAction returns a momentary layer action.
func LayerAction(layer uint8) Action {
	return Action{Kind: ActionLayer, Layer: layer}
}

// OneshotAction returns an action toggling mods in the oneshot register.
func OneshotAction(mods key.Modifier) Action {
	return Action{Kind: ActionOneshot, Mods: mods}
}

// IsNone reports whether the action produces nothing.
func (a Action) IsNone() bool {
	return a.Kind == ActionNone
}

// IsModifierLike reports whether the action changes state rather than
// producing a character. Such actions never consume oneshot modifiers.
func (a Action) IsModifierLike() bool {
	switch a.Kind {
	case ActionModifier, ActionLayer, ActionOneshot:
		return true
	case ActionKey:
		return a.Keycode.IsModifier()
	}
	return false
}

// WithMods returns a copy of a key action with extra modifiers merged in.
func (a Action) WithMods(mods key.Modifier) Action {
	a.Mods = a.Mods.With(mods)
	return a
}

// String returns a compact description, e.g. "key(<S-5>)" or "layer(2)".
func (a Action) String() string {
	switch a.Kind {
	case ActionNone:
		return "XXX"
	case ActionTransparent:
		return "___"
	case ActionKey:
		return key.FormatSpec(a.Keycode, a.Mods)
	case ActionModifier:
		return "mod(" + a.Mods.String() + ")"
	case ActionLayer:
		return "layer(" + strconv.Itoa(int(a.Layer)) + ")"
	case ActionOneshot:
		return "osm(" + a.Mods.String() + ")"
	}
	return a.Kind.String()
}

// Binding is the static tap/hold pair for one cell of one layer.
// Hold is ActionNone for single-role keys.
type Binding struct {
	Tap  Action
	Hold Action
}

// Single returns a single-role binding.
func Single(tap Action) Binding {
	return Binding{Tap: tap}
}

// DualRole returns a tap/hold binding.
func DualRole(tap, hold Action) Binding {
	return Binding{Tap: tap, Hold: hold}
}

// IsDualRole reports whether the binding needs tap/hold resolution.
func (b Binding) IsDualRole() bool {
	return b.Hold.Kind != ActionNone
}

// IsTransparent reports whether the binding falls through.
func (b Binding) IsTransparent() bool {
	return b.Tap.Kind == ActionTransparent && b.Hold.Kind == ActionNone
}

// String returns "tap/hold" or just the tap action.
func (b Binding) String() string {
	if !b.IsDualRole() {
		return b.Tap.String()
	}
	return b.Tap.String() + "/" + b.Hold.String()
}
