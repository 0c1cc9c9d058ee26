package keymap

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dshills/taphold/internal/input/key"
)

// Binding errors
var (
	ErrInvalidBinding = errors.New("invalid binding")
	ErrUnknownLayer   = errors.New("unknown layer")
)

// LayerResolver maps a layer name to its index.
type LayerResolver func(name string) (uint8, bool)

// ParseBinding parses one cell of the binding language.
//
// Supported forms:
//
//	a  Space  %  Ctrl+Cmd+Q  <C-D-q>    key
//	LShift  Meh                         modifier
//	MT(Ctrl, a)                         mod-tap
//	LT(nav, Space)                      layer-tap
//	LT(num, OSM(LShift))                layer-tap with oneshot tap
//	MO(fn)                              momentary layer
//	OSM(LShift)                         oneshot modifier
//	___  TRNS                           transparent
//	XXX  NO                             nothing
//
// Layer arguments are names passed to layers, or decimal indexes.
func ParseBinding(spec string, layers LayerResolver) (Binding, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return Binding{}, fmt.Errorf("%w: empty", ErrInvalidBinding)
	}

	switch {
	case isRun(spec, '_') && len(spec) >= 3, strings.EqualFold(spec, "TRNS"):
		return Single(Transparent()), nil
	case isRun(spec, 'X') && len(spec) >= 3, strings.EqualFold(spec, "NO"):
		return Single(NoAction()), nil
	}

	if name, inner, ok := callForm(spec); ok {
		switch strings.ToUpper(name) {
		case "MT":
			modSpec, tapSpec, ok := strings.Cut(inner, ",")
			if !ok {
				return Binding{}, fmt.Errorf("%w: %s needs two arguments", ErrInvalidBinding, spec)
			}
			mods, err := parseMods(modSpec)
			if err != nil {
				return Binding{}, fmt.Errorf("%s: %w", spec, err)
			}
			tap, err := parseKeyAction(tapSpec)
			if err != nil {
				return Binding{}, fmt.Errorf("%s: %w", spec, err)
			}
			return DualRole(tap, ModAction(mods)), nil

		case "LT":
			layerSpec, tapSpec, ok := strings.Cut(inner, ",")
			if !ok {
				return Binding{}, fmt.Errorf("%w: %s needs two arguments", ErrInvalidBinding, spec)
			}
			layer, err := resolveLayer(layerSpec, layers)
			if err != nil {
				return Binding{}, fmt.Errorf("%s: %w", spec, err)
			}
			var tap Action
			if n, oinner, ok := callForm(strings.TrimSpace(tapSpec)); ok && strings.EqualFold(n, "OSM") {
				mods, err := parseMods(oinner)
				if err != nil {
					return Binding{}, fmt.Errorf("%s: %w", spec, err)
				}
				tap = OneshotAction(mods)
			} else {
				tap, err = parseKeyAction(tapSpec)
				if err != nil {
					return Binding{}, fmt.Errorf("%s: %w", spec, err)
				}
			}
			return DualRole(tap, LayerAction(layer)), nil

		case "MO":
			layer, err := resolveLayer(inner, layers)
			if err != nil {
				return Binding{}, fmt.Errorf("%s: %w", spec, err)
			}
			return Single(LayerAction(layer)), nil

		case "OSM":
			mods, err := parseMods(inner)
			if err != nil {
				return Binding{}, fmt.Errorf("%s: %w", spec, err)
			}
			return Single(OneshotAction(mods)), nil
		}
	}

	tap, err := parseKeyAction(spec)
	if err != nil {
		return Binding{}, err
	}
	return Single(tap), nil
}

// FormatBinding is the inverse of ParseBinding. names maps layer
// indexes back to names; indexes without a name are written as numbers.
func FormatBinding(b Binding, names []string) string {
	layerName := func(i uint8) string {
		if int(i) < len(names) && names[i] != "" {
			return names[i]
		}
		return strconv.Itoa(int(i))
	}

	if b.IsDualRole() {
		switch b.Hold.Kind {
		case ActionModifier:
			return "MT(" + b.Hold.Mods.String() + ", " + formatAction(b.Tap, layerName) + ")"
		case ActionLayer:
			return "LT(" + layerName(b.Hold.Layer) + ", " + formatAction(b.Tap, layerName) + ")"
		}
	}
	return formatAction(b.Tap, layerName)
}

func formatAction(a Action, layerName func(uint8) string) string {
	switch a.Kind {
	case ActionNone:
		return "XXX"
	case ActionTransparent:
		return "___"
	case ActionKey:
		return key.FormatSpec(a.Keycode, a.Mods)
	case ActionModifier:
		return a.Mods.String()
	case ActionLayer:
		return "MO(" + layerName(a.Layer) + ")"
	case ActionOneshot:
		return "OSM(" + a.Mods.String() + ")"
	}
	return "XXX"
}

// parseKeyAction parses a key spec. A bare modifier key or modifier
// name ("LShift", "Meh") becomes a modifier action.
func parseKeyAction(spec string) (Action, error) {
	spec = strings.TrimSpace(spec)
	k, mods, err := key.Parse(spec)
	if err == nil {
		switch {
		case k == key.KeyNone:
			return NoAction(), nil
		case k == key.KeyTransparent:
			return Transparent(), nil
		case k.IsModifier():
			return ModAction(mods.With(k.ModifierBit())), nil
		}
		return KeyAction(k, mods), nil
	}
	if m, merr := parseMods(spec); merr == nil && len(spec) > 1 {
		return ModAction(m), nil
	}
	return Action{}, fmt.Errorf("%w: %w", ErrInvalidBinding, err)
}

// parseMods parses "Ctrl", "LCtrl+LShift" or "Meh", rejecting unknown names.
func parseMods(spec string) (key.Modifier, error) {
	var mods key.Modifier
	parts := strings.FieldsFunc(spec, func(r rune) bool { return r == '+' || r == '|' })
	if len(parts) == 0 {
		return key.ModNone, fmt.Errorf("%w: empty modifier", ErrInvalidBinding)
	}
	for _, p := range parts {
		m := key.ModifierFromName(p)
		if m == key.ModNone {
			return key.ModNone, fmt.Errorf("%w: unknown modifier %q", ErrInvalidBinding, strings.TrimSpace(p))
		}
		mods = mods.With(m)
	}
	return mods, nil
}

func resolveLayer(spec string, layers LayerResolver) (uint8, error) {
	spec = strings.TrimSpace(spec)
	if layers != nil {
		if i, ok := layers(spec); ok {
			return i, nil
		}
	}
	if n, err := strconv.ParseUint(spec, 10, 8); err == nil && n < MaxLayers {
		return uint8(n), nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownLayer, spec)
}

// callForm splits "NAME(args)" into NAME and args.
func callForm(spec string) (name, inner string, ok bool) {
	open := strings.IndexByte(spec, '(')
	if open < 2 || !strings.HasSuffix(spec, ")") {
		return "", "", false
	}
	name = spec[:open]
	for _, r := range name {
		if (r < 'A' || r > 'Z') && (r < 'a' || r > 'z') {
			return "", "", false
		}
	}
	return name, spec[open+1 : len(spec)-1], true
}

func isRun(s string, c byte) bool {
	for i := 0; i < len(s); i++ {
		if s[i] != c {
			return false
		}
	}
	return true
}
