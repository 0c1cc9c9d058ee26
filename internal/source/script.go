package source

import (
	"context"
	"sync"
	"time"

	"github.com/dshills/taphold/internal/clock"
	"github.com/dshills/taphold/internal/input/key"
)

// Script plays a recorded sequence in real time. Event times in the
// sequence are offsets from Start; delivered events carry the clock time
// at which they were sent.
type Script struct {
	seq *key.Sequence
	clk clock.Clock

	mu      sync.Mutex
	started bool
	closed  bool
	cancel  context.CancelFunc
}

// NewScript creates a script source reading time from clk.
func NewScript(seq *key.Sequence, clk clock.Clock) *Script {
	return &Script{seq: seq.Clone(), clk: clk}
}

// Start implements Source.
func (s *Script) Start(ctx context.Context) (<-chan key.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSourceClosed
	}
	if s.started {
		return nil, ErrAlreadyStarted
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)
	out := make(chan key.Event, bufferSize)
	base := s.clk.Now()

	go func() {
		defer close(out)
		for _, ev := range s.seq.Events {
			if wait := base + ev.Time - s.clk.Now(); wait > 0 {
				t := time.NewTimer(wait)
				select {
				case <-ctx.Done():
					t.Stop()
					return
				case <-t.C:
				}
			}
			ev.Time = s.clk.Now()
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// Close implements Source.
func (s *Script) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}
