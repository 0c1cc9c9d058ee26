//go:build linux

package source

import (
	"context"
	"fmt"
	"sync"

	evdev "github.com/holoplot/go-evdev"
	"github.com/rs/zerolog"

	"github.com/dshills/taphold/internal/clock"
	"github.com/dshills/taphold/internal/input/key"
)

// evdev key values; 0 is a release
const (
	keyPressed = 1
	keyRepeat  = 2
)

// Evdev reads key transitions from a Linux input device.
type Evdev struct {
	path  string
	grab  bool
	codes map[evdev.EvCode]key.Position
	clk   clock.Clock
	log   zerolog.Logger

	mu      sync.Mutex
	dev     *evdev.InputDevice
	started bool
	closed  bool
}

// NewEvdev creates a source for the device at path. With grab set the
// device is opened exclusively so the host does not see its raw keys.
func NewEvdev(path string, grab bool, m CodeMap, clk clock.Clock, log zerolog.Logger) (*Evdev, error) {
	codes := make(map[evdev.EvCode]key.Position, len(m))
	for name, pos := range m {
		code, ok := evdev.KEYFromString[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownCode, name)
		}
		codes[code] = pos
	}
	return &Evdev{
		path:  path,
		grab:  grab,
		codes: codes,
		clk:   clk,
		log:   log.With().Str("component", "evdev").Str("device", path).Logger(),
	}, nil
}

// Start implements Source.
func (e *Evdev) Start(ctx context.Context) (<-chan key.Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrSourceClosed
	}
	if e.started {
		return nil, ErrAlreadyStarted
	}

	dev, err := evdev.Open(e.path)
	if err != nil {
		return nil, fmt.Errorf("open input device %s: %w", e.path, err)
	}
	if e.grab {
		if err := dev.Grab(); err != nil {
			dev.Close()
			return nil, fmt.Errorf("grab input device %s: %w", e.path, err)
		}
	}
	name, _ := dev.Name()
	e.log.Info().Str("name", name).Bool("grab", e.grab).Msg("input device opened")

	e.dev = dev
	e.started = true

	out := make(chan key.Event, bufferSize)
	done := make(chan struct{})

	go func() {
		select {
		case <-ctx.Done():
			_ = e.Close()
		case <-done:
		}
	}()

	go func() {
		defer close(out)
		defer close(done)
		for {
			ev, err := dev.ReadOne()
			if err != nil {
				if !e.isClosed() {
					e.log.Error().Err(err).Msg("input device read failed")
				}
				return
			}
			if ev.Type != evdev.EV_KEY || ev.Value == keyRepeat {
				continue
			}
			pos, ok := e.codes[ev.Code]
			if !ok {
				e.log.Trace().Str("code", evdev.KEYToString[ev.Code]).Msg("unmapped key")
				continue
			}
			kev := key.Event{Pos: pos, Pressed: ev.Value == keyPressed, Time: e.clk.Now()}
			select {
			case out <- kev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

func (e *Evdev) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// Close implements Source. It releases the grab and closes the device.
func (e *Evdev) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	if e.dev == nil {
		return nil
	}
	if e.grab {
		_ = e.dev.Ungrab()
	}
	return e.dev.Close()
}

// ListKeyboards returns the paths and names of input devices that can
// send letter keys.
func ListKeyboards() ([]Device, error) {
	paths, err := evdev.ListDevicePaths()
	if err != nil {
		return nil, fmt.Errorf("list input devices: %w", err)
	}

	var out []Device
	for _, p := range paths {
		dev, err := evdev.Open(p.Path)
		if err != nil {
			continue
		}
		hasA := false
		for _, c := range dev.CapableEvents(evdev.EV_KEY) {
			if c == evdev.KEY_A {
				hasA = true
				break
			}
		}
		dev.Close()
		if hasA {
			out = append(out, Device{Path: p.Path, Name: p.Name})
		}
	}
	return out, nil
}

// ValidateCodeMap checks every name in m is a known key code.
func ValidateCodeMap(m CodeMap) error {
	for _, name := range m.Names() {
		if _, ok := evdev.KEYFromString[name]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownCode, name)
		}
	}
	return nil
}
