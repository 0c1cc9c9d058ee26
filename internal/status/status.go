// Package status projects dispatcher state into the lines a status
// display shows: board, highest layer, host lock LEDs and armed oneshot
// modifiers.
package status

import (
	"strings"

	"github.com/dshills/taphold/internal/dispatcher"
	"github.com/dshills/taphold/internal/hid"
	"github.com/dshills/taphold/internal/input/key"
	"github.com/dshills/taphold/internal/input/keymap"
)

// Board is the title line.
const Board = "Kyria rev1.0"

// Snapshot is the state shown on the display.
type Snapshot struct {
	Layer     uint8
	LayerName string
	LEDs      hid.LEDs
	Armed     key.Modifier
	Pending   []key.Position
	Metrics   dispatcher.MetricsSnapshot
}

// Collect reads a snapshot from the dispatcher. It must be called from
// the event loop.
func Collect(d *dispatcher.Dispatcher, leds hid.LEDs) Snapshot {
	layer := d.Layers().Highest()
	return Snapshot{
		Layer:     layer,
		LayerName: LayerTitle(d.Keymap(), layer),
		LEDs:      leds,
		Armed:     d.Armed(),
		Pending:   d.Pending(),
		Metrics:   d.Metrics().Snapshot(),
	}
}

// LayerTitle returns the display name of a layer, e.g. "Colemak", or
// "Undefined" for an index the keymap lacks.
func LayerTitle(km *keymap.Keymap, layer uint8) string {
	name := km.LayerName(layer)
	if name == "" {
		return "Undefined"
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// Render returns the display lines for s.
func Render(s Snapshot) []string {
	lines := []string{
		Board,
		"",
		"Layer: " + s.LayerName,
		lockFlag(s.LEDs.NumLock(), "NUMLCK ") +
			lockFlag(s.LEDs.CapsLock(), "CAPLCK ") +
			lockFlag(s.LEDs.ScrollLock(), "SCRLCK "),
	}

	armed := "-"
	if !s.Armed.IsEmpty() {
		armed = s.Armed.String()
	}
	lines = append(lines, "Oneshot: "+armed)

	if len(s.Pending) > 0 {
		names := make([]string, len(s.Pending))
		for i, p := range s.Pending {
			names[i] = p.String()
		}
		lines = append(lines, "Pending: "+strings.Join(names, " "))
	}
	return lines
}

func lockFlag(on bool, label string) string {
	if on {
		return label
	}
	return strings.Repeat(" ", len(label))
}
