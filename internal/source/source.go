// Package source produces raw debounced key events for the event loop.
//
// A Source stands in for the key matrix scanner: it delivers press and
// release transitions, timestamped on the loop clock, in arrival order.
package source

import (
	"context"
	"errors"

	"github.com/dshills/taphold/internal/input/key"
)

// Source errors
var (
	ErrSourceClosed   = errors.New("source: closed")
	ErrAlreadyStarted = errors.New("source: already started")
	ErrUnsupported    = errors.New("source: not supported on this platform")
	ErrUnknownCode    = errors.New("source: unknown key code")
)

// Source delivers key events.
type Source interface {
	// Start begins delivery. The channel is closed when ctx is done, the
	// source is exhausted, or Close is called.
	Start(ctx context.Context) (<-chan key.Event, error)

	// Close stops delivery and releases the underlying device.
	Close() error
}

// bufferSize bounds events waiting for the loop.
const bufferSize = 64

// Device describes an input device.
type Device struct {
	Path string
	Name string
}
