package key

import "strings"

// Modifier represents the HID modifier byte as a bit set.
type Modifier uint8

const (
	// ModNone indicates no modifiers.
	ModNone Modifier = 0

	ModLCtrl  Modifier = 0x01
	ModLShift Modifier = 0x02
	ModLAlt   Modifier = 0x04
	ModLGui   Modifier = 0x08
	ModRCtrl  Modifier = 0x10
	ModRShift Modifier = 0x20
	ModRAlt   Modifier = 0x40
	ModRGui   Modifier = 0x80
)

// Convenience aliases. Unsided names refer to the left-hand modifier.
const (
	ModCtrl  = ModLCtrl
	ModShift = ModLShift
	ModAlt   = ModLAlt
	ModGui   = ModLGui

	// ModMeh is Ctrl+Shift+Alt.
	ModMeh = ModLCtrl | ModLShift | ModLAlt

	// ModHyper is Ctrl+Shift+Alt+Gui.
	ModHyper = ModMeh | ModLGui
)

// Has returns true if m contains any bit of mod.
func (m Modifier) Has(mod Modifier) bool {
	return m&mod != 0
}

// HasAll returns true if m contains every bit of mod.
func (m Modifier) HasAll(mod Modifier) bool {
	return m&mod == mod
}

// HasShift returns true if either Shift is set.
func (m Modifier) HasShift() bool {
	return m.Has(ModLShift | ModRShift)
}

// HasCtrl returns true if either Control is set.
func (m Modifier) HasCtrl() bool {
	return m.Has(ModLCtrl | ModRCtrl)
}

// HasAlt returns true if either Alt is set.
func (m Modifier) HasAlt() bool {
	return m.Has(ModLAlt | ModRAlt)
}

// HasGui returns true if either Gui (Cmd/Win) is set.
func (m Modifier) HasGui() bool {
	return m.Has(ModLGui | ModRGui)
}

// With returns a new Modifier with the specified modifier added.
func (m Modifier) With(mod Modifier) Modifier {
	return m | mod
}

// Without returns a new Modifier with the specified modifier removed.
func (m Modifier) Without(mod Modifier) Modifier {
	return m &^ mod
}

// Toggle returns a new Modifier with the specified bits flipped.
func (m Modifier) Toggle(mod Modifier) Modifier {
	return m ^ mod
}

// IsEmpty returns true if no modifiers are set.
func (m Modifier) IsEmpty() bool {
	return m == ModNone
}

var modifierBitNames = [8]string{"LCtrl", "LShift", "LAlt", "LGui", "RCtrl", "RShift", "RAlt", "RGui"}

// String returns a human-readable representation like "LCtrl+LShift".
func (m Modifier) String() string {
	if m == ModNone {
		return ""
	}
	if m == ModHyper {
		return "Hyper"
	}
	if m == ModMeh {
		return "Meh"
	}

	var parts []string
	for i, name := range modifierBitNames {
		if m&(1<<i) != 0 {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, "+")
}

// ShortString returns a compact Vim-style prefix like "C-S".
// Sides are folded together.
func (m Modifier) ShortString() string {
	if m == ModNone {
		return ""
	}

	var parts []string
	if m.HasCtrl() {
		parts = append(parts, "C")
	}
	if m.HasAlt() {
		parts = append(parts, "A")
	}
	if m.HasShift() {
		parts = append(parts, "S")
	}
	if m.HasGui() {
		parts = append(parts, "D")
	}
	return strings.Join(parts, "-")
}

// modifierNameMap maps modifier names (lowercase) to Modifier values.
var modifierNameMap = map[string]Modifier{
	"ctrl":    ModCtrl,
	"control": ModCtrl,
	"c":       ModCtrl,
	"lctrl":   ModLCtrl,
	"lctl":    ModLCtrl,
	"rctrl":   ModRCtrl,
	"rctl":    ModRCtrl,
	"alt":     ModAlt,
	"a":       ModAlt,
	"option":  ModAlt,
	"opt":     ModAlt,
	"lalt":    ModLAlt,
	"lopt":    ModLAlt,
	"ralt":    ModRAlt,
	"ropt":    ModRAlt,
	"shift":   ModShift,
	"s":       ModShift,
	"lshift":  ModLShift,
	"lsft":    ModLShift,
	"rshift":  ModRShift,
	"rsft":    ModRShift,
	"gui":     ModGui,
	"meta":    ModGui,
	"m":       ModGui,
	"cmd":     ModGui,
	"command": ModGui,
	"win":     ModGui,
	"super":   ModGui,
	"d":       ModGui, // Vim uses D for command/meta
	"lgui":    ModLGui,
	"lcmd":    ModLGui,
	"rgui":    ModRGui,
	"rcmd":    ModRGui,
	"meh":     ModMeh,
	"hyper":   ModHyper,
}

// ModifierFromName returns the Modifier for a given name (case-insensitive).
// Returns ModNone if the name is not recognized.
func ModifierFromName(name string) Modifier {
	if m, ok := modifierNameMap[strings.ToLower(strings.TrimSpace(name))]; ok {
		return m
	}
	return ModNone
}

// ParseModifiers parses a modifier list like "LCtrl|LShift" or "Ctrl+Alt".
// Unknown names are ignored.
func ParseModifiers(s string) Modifier {
	var mods Modifier
	for _, part := range strings.FieldsFunc(s, func(r rune) bool {
		return r == '+' || r == '|' || r == ','
	}) {
		mods = mods.With(ModifierFromName(part))
	}
	return mods
}
