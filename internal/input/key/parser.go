package key

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// Parse errors
var (
	ErrEmptySpec        = errors.New("empty key specification")
	ErrInvalidSpec      = errors.New("invalid key specification")
	ErrInvalidPosition  = errors.New("invalid key position")
	ErrInvalidEvent     = errors.New("invalid event token")
	ErrUnordered        = errors.New("events out of order")
	ErrUnmatchedBracket = errors.New("unmatched bracket in key specification")
)

// shiftedSymbols maps US ANSI shifted characters to their base keycode.
var shiftedSymbols = map[rune]Keycode{
	'!': Key1, '@': Key2, '#': Key3, '$': Key4, '%': Key5,
	'^': Key6, '&': Key7, '*': Key8, '(': Key9, ')': Key0,
	'_': KeyMinus, '+': KeyEqual, '{': KeyLeftBracket, '}': KeyRightBracket,
	'|': KeyBackslash, ':': KeySemicolon, '"': KeyQuote, '~': KeyGrave,
	'<': KeyComma, '>': KeyDot, '?': KeySlash,
}

// Parse parses a key specification string into a keycode and the
// modifiers that must be held with it.
//
// Supported formats:
//   - Single character: "a", "A", "1", "%"
//   - Key names: "Enter", "Esc", "Tab", "Bspc", "Space", "F5", "Play"
//   - With modifiers: "Ctrl+Cmd+Q", "Shift+3"
//   - Vim-style: "<C-D-q>", "<S-Tab>", "<CR>", "<Esc>"
func Parse(spec string) (Keycode, Modifier, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return KeyNone, ModNone, ErrEmptySpec
	}

	// Check for Vim-style <...> notation
	if strings.HasPrefix(spec, "<") && len(spec) > 1 {
		if !strings.HasSuffix(spec, ">") {
			return KeyNone, ModNone, ErrUnmatchedBracket
		}
		return parseVimStyle(spec[1 : len(spec)-1])
	}

	// Check for modifier+key format (Ctrl+S, Shift+3); a lone "+" is a symbol
	if len(spec) > 1 && strings.Contains(spec, "+") {
		return parseModifierStyle(spec)
	}

	return parseSingle(spec, ModNone)
}

// MustParse parses a key specification and panics on error.
// Use only for known-valid specs in initialization code.
func MustParse(spec string) (Keycode, Modifier) {
	k, m, err := Parse(spec)
	if err != nil {
		panic("invalid key specification: " + spec + ": " + err.Error())
	}
	return k, m
}

// parseVimStyle parses Vim-style notation like "C-s", "S-Tab", "CR"
func parseVimStyle(inner string) (Keycode, Modifier, error) {
	inner = strings.TrimSpace(inner)
	if inner == "" {
		return KeyNone, ModNone, ErrInvalidSpec
	}

	// "-" itself is a valid key: "<S-->" is Shift+minus
	var modPart, keyPart string
	if strings.HasSuffix(inner, "--") {
		modPart, keyPart = inner[:len(inner)-2], "-"
	} else {
		i := strings.LastIndex(inner, "-")
		if i <= 0 {
			return parseSingle(inner, ModNone)
		}
		modPart, keyPart = inner[:i], inner[i+1:]
	}

	var mods Modifier
	for _, p := range strings.Split(modPart, "-") {
		p = strings.ToLower(strings.TrimSpace(p))
		switch p {
		case "c":
			mods = mods.With(ModCtrl)
		case "a":
			mods = mods.With(ModAlt)
		case "s":
			mods = mods.With(ModShift)
		case "m", "d":
			mods = mods.With(ModGui)
		default:
			return KeyNone, ModNone, fmt.Errorf("%w: unknown modifier %q", ErrInvalidSpec, p)
		}
	}

	return parseSingle(keyPart, mods)
}

// parseModifierStyle parses "Ctrl+S" style notation
func parseModifierStyle(spec string) (Keycode, Modifier, error) {
	parts := strings.Split(spec, "+")
	// "Shift++" splits into ["Shift", "", ""]
	if strings.HasSuffix(spec, "++") {
		parts = append(parts[:len(parts)-2], "+")
	}
	if len(parts) < 2 {
		return KeyNone, ModNone, ErrInvalidSpec
	}

	var mods Modifier
	for _, p := range parts[:len(parts)-1] {
		mod := ModifierFromName(p)
		if mod == ModNone {
			return KeyNone, ModNone, fmt.Errorf("%w: unknown modifier %q", ErrInvalidSpec, p)
		}
		mods = mods.With(mod)
	}

	return parseSingle(parts[len(parts)-1], mods)
}

// parseSingle parses a single character or key name with known modifiers
func parseSingle(spec string, mods Modifier) (Keycode, Modifier, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return KeyNone, ModNone, ErrInvalidSpec
	}

	runes := []rune(spec)
	if len(runes) == 1 {
		r := runes[0]
		if k, ok := shiftedSymbols[r]; ok {
			return k, mods.With(ModShift), nil
		}
		// Uppercase letters have implicit Shift unless Ctrl is involved
		if unicode.IsUpper(r) && !mods.HasCtrl() && !mods.HasGui() {
			mods = mods.With(ModShift)
		}
		if k, ok := KeycodeFromName(string(unicode.ToLower(r))); ok {
			return k, mods, nil
		}
		return KeyNone, ModNone, fmt.Errorf("%w: %q", ErrInvalidSpec, spec)
	}

	if k, ok := KeycodeFromName(spec); ok {
		return k, mods, nil
	}

	return KeyNone, ModNone, fmt.Errorf("%w: unknown key %q", ErrInvalidSpec, spec)
}

// FormatSpec formats a keycode and modifiers as a parseable specification.
func FormatSpec(k Keycode, mods Modifier) string {
	name := k.String()
	if k >= KeyA && k <= KeyZ {
		name = strings.ToLower(name)
	}
	if mods.IsEmpty() {
		return name
	}
	return "<" + mods.ShortString() + "-" + name + ">"
}
