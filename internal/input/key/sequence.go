package key

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Sequence represents an ordered series of key events.
// Scripts, recorded sessions and test scenarios are all sequences.
type Sequence struct {
	// Events contains the key events in arrival order.
	Events []Event
}

// NewSequence creates an empty key sequence.
func NewSequence() *Sequence {
	return &Sequence{
		Events: make([]Event, 0, 16),
	}
}

// NewSequenceFrom creates a sequence from the given events.
func NewSequenceFrom(events ...Event) *Sequence {
	return &Sequence{
		Events: events,
	}
}

// Len returns the number of events in the sequence.
func (s *Sequence) Len() int {
	return len(s.Events)
}

// IsEmpty returns true if the sequence has no events.
func (s *Sequence) IsEmpty() bool {
	return len(s.Events) == 0
}

// Add appends an event to the sequence.
func (s *Sequence) Add(event Event) {
	s.Events = append(s.Events, event)
}

// Tap appends a press at the given time and a release hold later.
func (s *Sequence) Tap(pos Position, at, hold time.Duration) {
	s.Add(Press(pos, at))
	s.Add(Release(pos, at+hold))
}

// Clear removes all events from the sequence.
func (s *Sequence) Clear() {
	s.Events = s.Events[:0]
}

// Last returns the last event, or nil if empty.
func (s *Sequence) Last() *Event {
	if len(s.Events) == 0 {
		return nil
	}
	return &s.Events[len(s.Events)-1]
}

// First returns the first event, or nil if empty.
func (s *Sequence) First() *Event {
	if len(s.Events) == 0 {
		return nil
	}
	return &s.Events[0]
}

// Duration returns the time between the first and last event.
func (s *Sequence) Duration() time.Duration {
	if len(s.Events) < 2 {
		return 0
	}
	return s.Events[len(s.Events)-1].Time - s.Events[0].Time
}

// Validate checks that timestamps never go backwards.
func (s *Sequence) Validate() error {
	for i := 1; i < len(s.Events); i++ {
		if s.Events[i].Time < s.Events[i-1].Time {
			return fmt.Errorf("%w: event %d (%s) is earlier than event %d (%s)",
				ErrUnordered, i, s.Events[i], i-1, s.Events[i-1])
		}
	}
	return nil
}

// String returns the text notation, e.g. "+r1c3@0 -r1c3@150".
func (s *Sequence) String() string {
	if len(s.Events) == 0 {
		return ""
	}

	parts := make([]string, len(s.Events))
	for i, e := range s.Events {
		parts[i] = e.String()
	}
	return strings.Join(parts, " ")
}

// Clone returns a copy of the sequence.
func (s *Sequence) Clone() *Sequence {
	if s == nil {
		return nil
	}
	events := make([]Event, len(s.Events))
	copy(events, s.Events)
	return &Sequence{Events: events}
}

// ParseSequence parses the text notation. Tokens are separated by
// whitespace; lines starting with "#" are comments.
func ParseSequence(text string) (*Sequence, error) {
	seq := NewSequence()
	for lineNo, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		for _, tok := range strings.Fields(line) {
			ev, err := ParseEventToken(tok)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo+1, err)
			}
			seq.Add(ev)
		}
	}
	if err := seq.Validate(); err != nil {
		return nil, err
	}
	return seq, nil
}

// ParseEventToken parses one "+r1c3@150" token.
func ParseEventToken(tok string) (Event, error) {
	if len(tok) < 2 {
		return Event{}, fmt.Errorf("%w: %q", ErrInvalidEvent, tok)
	}

	var ev Event
	switch tok[0] {
	case '+':
		ev.Pressed = true
	case '-':
		ev.Pressed = false
	default:
		return Event{}, fmt.Errorf("%w: %q must start with + or -", ErrInvalidEvent, tok)
	}

	posPart, timePart, ok := strings.Cut(tok[1:], "@")
	if !ok {
		return Event{}, fmt.Errorf("%w: %q has no @time", ErrInvalidEvent, tok)
	}
	pos, err := ParsePosition(posPart)
	if err != nil {
		return Event{}, err
	}
	ms, err := strconv.ParseInt(timePart, 10, 64)
	if err != nil || ms < 0 {
		return Event{}, fmt.Errorf("%w: %q has a bad time", ErrInvalidEvent, tok)
	}
	ev.Pos = pos
	ev.Time = time.Duration(ms) * time.Millisecond
	return ev, nil
}
