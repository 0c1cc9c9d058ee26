package key

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Position identifies one physical key by its cell in the layout grid.
// It is the KeyIdentity every per-key table is keyed by.
type Position struct {
	Row uint8
	Col uint8
}

// Pos is shorthand for Position{Row: row, Col: col}.
func Pos(row, col uint8) Position {
	return Position{Row: row, Col: col}
}

// String returns the "r<row>c<col>" form.
func (p Position) String() string {
	return "r" + strconv.Itoa(int(p.Row)) + "c" + strconv.Itoa(int(p.Col))
}

// ParsePosition parses the "r<row>c<col>" form (case-insensitive).
func ParsePosition(s string) (Position, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if !strings.HasPrefix(s, "r") {
		return Position{}, fmt.Errorf("%w: %q", ErrInvalidPosition, s)
	}
	row, col, ok := strings.Cut(s[1:], "c")
	if !ok {
		return Position{}, fmt.Errorf("%w: %q", ErrInvalidPosition, s)
	}
	r, err := strconv.ParseUint(row, 10, 8)
	if err != nil {
		return Position{}, fmt.Errorf("%w: %q", ErrInvalidPosition, s)
	}
	c, err := strconv.ParseUint(col, 10, 8)
	if err != nil {
		return Position{}, fmt.Errorf("%w: %q", ErrInvalidPosition, s)
	}
	return Position{Row: uint8(r), Col: uint8(c)}, nil
}

// MarshalText implements encoding.TextMarshaler.
func (p Position) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Position) UnmarshalText(text []byte) error {
	parsed, err := ParsePosition(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Event represents a single debounced key transition.
type Event struct {
	// Pos identifies the key.
	Pos Position

	// Pressed is true for a press and false for a release.
	Pressed bool

	// Time is the millisecond timestamp on the monotonic scan clock.
	Time time.Duration
}

// Press creates a press event.
func Press(pos Position, at time.Duration) Event {
	return Event{Pos: pos, Pressed: true, Time: at}
}

// Release creates a release event.
func Release(pos Position, at time.Duration) Event {
	return Event{Pos: pos, Pressed: false, Time: at}
}

// String returns the sequence token form, e.g. "+r1c3@150".
func (e Event) String() string {
	sign := "-"
	if e.Pressed {
		sign = "+"
	}
	return sign + e.Pos.String() + "@" + strconv.FormatInt(e.Time.Milliseconds(), 10)
}

// GoString implements fmt.GoStringer for debugging.
func (e Event) GoString() string {
	return fmt.Sprintf("Event{Pos: %s, Pressed: %t, Time: %s}", e.Pos, e.Pressed, e.Time)
}
