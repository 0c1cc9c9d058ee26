package app

import (
	"context"
	"errors"
	"io"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/taphold/internal/config"
	"github.com/dshills/taphold/internal/config/watcher"
	"github.com/dshills/taphold/internal/hid"
	"github.com/dshills/taphold/internal/input/key"
	"github.com/dshills/taphold/internal/status"
)

// Run starts the source and runs the event loop until ctx is done, the
// source ends and every pending key has resolved, or the status view is
// quit. Held actions are released before Run returns.
func (a *App) Run(ctx context.Context) error {
	if !a.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer a.running.Store(false)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events, err := a.src.Start(ctx)
	if err != nil {
		return NewComponentError("source", "start", err)
	}

	var view *status.View
	if a.showStatus {
		if a.screen != nil {
			view, err = status.NewViewOn(a.screen)
		} else {
			view, err = status.NewView()
		}
		if err != nil {
			return NewComponentError("status", "open view", err)
		}
		defer view.Close()
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		return a.loop(gctx, events, view)
	})

	if a.leds != nil {
		g.Go(func() error { return a.readLEDs(gctx) })
	}

	if path := a.cfg.Path(); path != "" {
		g.Go(func() error {
			err := config.Watch(gctx, path, func(ev watcher.Event) {
				a.log.Warn().Str("path", ev.Path).Stringer("op", ev.Op).
					Msg("configuration changed; restart to apply")
			})
			if err != nil {
				a.log.Warn().Err(err).Msg("configuration watch stopped")
			}
			return nil
		})
	}

	if view != nil {
		g.Go(func() error {
			defer cancel()
			return ignoreCanceled(view.WaitQuit(gctx))
		})
	}

	a.log.Info().Msg("event loop started")
	err = g.Wait()
	a.log.Info().Uint64("events", a.metrics.Snapshot().Events).Msg("event loop stopped")
	return ignoreCanceled(err)
}

// readLEDs feeds host LED reports to the reporter. A blocked read is
// ended by closing the reader once the loop is done.
func (a *App) readLEDs(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		if c, ok := a.leds.(io.Closer); ok {
			_ = c.Close()
		}
	})
	defer stop()

	err := hid.ReadLEDs(ctx, a.leds, func(l hid.LEDs) {
		a.reporter.SetLEDs(l)
		a.log.Debug().Stringer("leds", l).Msg("host leds")
	})
	if ctx.Err() != nil {
		return nil
	}
	if err != nil {
		return NewComponentError("hid", "read leds", err)
	}
	return nil
}

// loop is the only goroutine touching the dispatcher and reporter state.
func (a *App) loop(ctx context.Context, events <-chan key.Event, view *status.View) error {
	ticker := time.NewTicker(a.scan)
	defer ticker.Stop()

	var redraw <-chan time.Time
	if view != nil {
		t := time.NewTicker(a.statusRate)
		defer t.Stop()
		redraw = t.C
		a.draw(view)
	}

	draining := false
	for {
		select {
		case <-ctx.Done():
			a.stop()
			return nil

		case ev, ok := <-events:
			if !ok {
				// The source ended; tick until pending keys resolve.
				events = nil
				draining = true
				a.log.Debug().Msg("source ended")
				continue
			}
			start := time.Now()
			a.handle(ev)
			a.metrics.RecordIteration(time.Since(start), a.scan)

		case <-ticker.C:
			start := time.Now()
			// Events already waiting belong to this scan and come first.
			a.drain(events)
			now := a.clk.Now()
			a.disp.Tick(now)
			a.reporter.Tick(now)
			a.metrics.RecordIteration(time.Since(start), a.scan)

			if draining {
				if _, pending := a.disp.NextDeadline(); !pending {
					a.stop()
					return nil
				}
			}

		case <-redraw:
			a.draw(view)
		}
	}
}

func (a *App) drain(events <-chan key.Event) {
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			a.handle(ev)
		default:
			return
		}
	}
}

func (a *App) handle(ev key.Event) {
	a.metrics.RecordEvent(a.clk.Now() - ev.Time)
	if a.session != nil {
		if err := a.session.RecordEvent(ev); err != nil {
			a.log.Warn().Err(err).Msg("journal write failed")
		}
	}
	a.disp.HandleEvent(ev)
}

func (a *App) draw(view *status.View) {
	view.Draw(status.Collect(a.disp, a.reporter.LEDs()))
	a.metrics.RecordDraw()
}

// stop releases everything held so the host sees no stuck keys.
func (a *App) stop() {
	a.disp.ReleaseAll(a.clk.Now())
	a.reporter.Reset()
	if a.session != nil {
		if n, err := a.session.Err(); err != nil {
			a.log.Warn().Err(err).Int("failures", n).Msg("journal incomplete")
		}
	}
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
