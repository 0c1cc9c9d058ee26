package hid

import (
	"context"
	"errors"
	"io"
	"strings"
)

// Host LED bits of the keyboard output report.
const (
	LEDNumLock    uint8 = 0x01
	LEDCapsLock   uint8 = 0x02
	LEDScrollLock uint8 = 0x04
	LEDCompose    uint8 = 0x08
	LEDKana       uint8 = 0x10
)

// LEDs is the host's lock-key state.
type LEDs uint8

// NumLock reports whether Num Lock is on.
func (l LEDs) NumLock() bool { return uint8(l)&LEDNumLock != 0 }

// CapsLock reports whether Caps Lock is on.
func (l LEDs) CapsLock() bool { return uint8(l)&LEDCapsLock != 0 }

// ScrollLock reports whether Scroll Lock is on.
func (l LEDs) ScrollLock() bool { return uint8(l)&LEDScrollLock != 0 }

// String returns e.g. "num+caps", or "none".
func (l LEDs) String() string {
	var parts []string
	if l.NumLock() {
		parts = append(parts, "num")
	}
	if l.CapsLock() {
		parts = append(parts, "caps")
	}
	if l.ScrollLock() {
		parts = append(parts, "scroll")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "+")
}

// ParseLEDs decodes a host output report. Both the bare one-byte form and
// the two-byte form prefixed with the keyboard report ID are accepted.
func ParseLEDs(b []byte) (LEDs, bool) {
	switch {
	case len(b) == 1:
		return LEDs(b[0]), true
	case len(b) == 2 && b[0] == ReportKeyboard:
		return LEDs(b[1]), true
	}
	return 0, false
}

// ReadLEDs reads output reports from r until it fails or ctx is done,
// calling fn for every LED change. Closing r is the caller's job and is
// how a blocked read is interrupted.
func ReadLEDs(ctx context.Context, r io.Reader, fn func(LEDs)) error {
	buf := make([]byte, 8)
	var last LEDs
	first := true

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := r.Read(buf)
		if n > 0 {
			if leds, ok := ParseLEDs(buf[:n]); ok && (first || leds != last) {
				first = false
				last = leds
				fn(leds)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}
