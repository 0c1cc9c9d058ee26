package source

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dshills/taphold/internal/input/key"
)

// CodeMap maps device key names (e.g. "KEY_Q") to matrix positions.
type CodeMap map[string]key.Position

// ParseCodeMap parses configuration pairs such as "KEY_Q" = "r0c1".
// Names are upper-cased and the KEY_ prefix is optional.
func ParseCodeMap(m map[string]string) (CodeMap, error) {
	out := make(CodeMap, len(m))
	seen := make(map[key.Position]string, len(m))
	for name, pos := range m {
		p, err := key.ParsePosition(pos)
		if err != nil {
			return nil, fmt.Errorf("source map %s: %w", name, err)
		}
		name = normalizeCode(name)
		if prev, dup := seen[p]; dup && prev != name {
			return nil, fmt.Errorf("source map: %s and %s both map to %s", prev, name, p)
		}
		seen[p] = name
		out[name] = p
	}
	return out, nil
}

// Names returns the mapped key names, sorted.
func (m CodeMap) Names() []string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func normalizeCode(name string) string {
	name = strings.ToUpper(strings.TrimSpace(name))
	if !strings.HasPrefix(name, "KEY_") && !strings.HasPrefix(name, "BTN_") {
		name = "KEY_" + name
	}
	return name
}

// DefaultCodeMap lays a standard ANSI keyboard over the split matrix:
// letter rows on the two halves, F1-F4 on the inner bottom keys and the
// space-bar row on the thumbs.
func DefaultCodeMap() CodeMap {
	rows := [][]string{
		{"TAB", "Q", "W", "E", "R", "T", "", "", "", "", "Y", "U", "I", "O", "P", "BACKSLASH"},
		{"CAPSLOCK", "A", "S", "D", "F", "G", "", "", "", "", "H", "J", "K", "L", "SEMICOLON", "APOSTROPHE"},
		{"LEFTSHIFT", "Z", "X", "C", "V", "B", "F1", "F2", "F3", "F4", "N", "M", "COMMA", "DOT", "SLASH", "RIGHTSHIFT"},
		{"", "", "", "LEFTCTRL", "LEFTMETA", "LEFTALT", "SPACE", "BACKSPACE", "ENTER", "RIGHTALT", "RIGHTMETA", "COMPOSE", "RIGHTCTRL"},
	}

	m := make(CodeMap)
	for r, row := range rows {
		for c, name := range row {
			if name != "" {
				m["KEY_"+name] = key.Pos(uint8(r), uint8(c))
			}
		}
	}
	return m
}
