package timing

import (
	"time"

	"github.com/dshills/taphold/internal/input/key"
)

// KyriaEntries returns the calibration for the built-in Kyria keymap.
//
// Middle-finger home-row mods get a shorter term, ring and pinky a longer
// one. All home-row mods ignore interrupts and never repeat. Thumb
// layer-taps get a wider window and may repeat on rapid re-press.
func KyriaEntries() map[key.Position]Entry {
	entries := make(map[key.Position]Entry)

	homeRow := func(col uint8, term time.Duration) {
		e := Entry{IgnoreInterrupt: Bool(true), ForceHold: Bool(true)}
		if term > 0 {
			e.TappingTerm = Term(term)
		}
		entries[key.Pos(1, col)] = e
	}

	// Pinky, ring, middle, index, inner index on each hand.
	homeRow(1, 210*time.Millisecond)
	homeRow(2, 230*time.Millisecond)
	homeRow(3, 170*time.Millisecond)
	homeRow(4, 0)
	homeRow(5, 0)
	homeRow(10, 0)
	homeRow(11, 0)
	homeRow(12, 170*time.Millisecond)
	homeRow(13, 230*time.Millisecond)
	homeRow(14, 210*time.Millisecond)

	for _, col := range []uint8{6, 7, 8, 9} {
		entries[key.Pos(3, col)] = Entry{
			TappingTerm: Term(220 * time.Millisecond),
			ForceHold:   Bool(false),
		}
	}

	return entries
}
