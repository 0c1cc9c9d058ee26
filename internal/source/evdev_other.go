//go:build !linux

package source

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/dshills/taphold/internal/clock"
	"github.com/dshills/taphold/internal/input/key"
)

// Evdev is only available on Linux.
type Evdev struct{}

// NewEvdev fails with ErrUnsupported.
func NewEvdev(string, bool, CodeMap, clock.Clock, zerolog.Logger) (*Evdev, error) {
	return nil, ErrUnsupported
}

// Start implements Source.
func (*Evdev) Start(context.Context) (<-chan key.Event, error) { return nil, ErrUnsupported }

// Close implements Source.
func (*Evdev) Close() error { return nil }

// ListKeyboards fails with ErrUnsupported.
func ListKeyboards() ([]Device, error) { return nil, ErrUnsupported }

// ValidateCodeMap accepts any map.
func ValidateCodeMap(CodeMap) error { return nil }
