package app

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rs/zerolog"

	"github.com/dshills/taphold/internal/clock"
	"github.com/dshills/taphold/internal/config"
	"github.com/dshills/taphold/internal/dispatcher"
	"github.com/dshills/taphold/internal/hid"
	"github.com/dshills/taphold/internal/input/keymap"
	"github.com/dshills/taphold/internal/journal"
	"github.com/dshills/taphold/internal/oneshot"
	"github.com/dshills/taphold/internal/source"
	"github.com/dshills/taphold/internal/timing"
)

// Options overrides parts of what the configuration would build.
type Options struct {
	// Logger receives lifecycle and, at debug level, resolution logs.
	Logger zerolog.Logger

	// Clock defaults to a monotonic clock.
	Clock clock.Clock

	// Source replaces the configured event source.
	Source source.Source

	// Output replaces the configured HID device.
	Output io.Writer

	// LEDs replaces the configured host LED report reader.
	LEDs io.Reader

	// Screen is used for the status view instead of the terminal.
	Screen tcell.Screen

	// NoJournal disables session recording regardless of configuration.
	NoJournal bool

	// NoStatus disables the status view regardless of configuration.
	NoStatus bool
}

// App is a running keyboard: source, resolution core, HID reporter and
// the optional journal and status view.
type App struct {
	cfg *config.Config
	log zerolog.Logger
	clk clock.Clock

	km       *keymap.Keymap
	table    *timing.Table
	reg      *oneshot.Register
	disp     *dispatcher.Dispatcher
	reporter *hid.Reporter
	src      source.Source
	leds     io.Reader

	journal *journal.Journal
	session *journal.Session

	screen     tcell.Screen
	showStatus bool
	statusRate time.Duration
	scan       time.Duration

	metrics *Metrics
	closers []io.Closer
	running atomic.Bool
	once    sync.Once
}

// New builds an application from cfg. Nothing is started until Run.
func New(cfg *config.Config, opts Options) (app *App, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app = &App{
		cfg:     cfg,
		log:     opts.Logger.With().Str("component", "app").Logger(),
		clk:     opts.Clock,
		metrics: NewMetrics(),
		scan:    cfg.Scan().Interval,
	}
	if app.clk == nil {
		app.clk = clock.NewMonotonic()
	}
	defer func() {
		if err != nil {
			_ = app.Close()
		}
	}()

	if app.km, err = cfg.Keymap().Load(); err != nil {
		return nil, NewComponentError("keymap", "load", err)
	}
	if app.table, err = cfg.Timing().Table(app.km); err != nil {
		return nil, NewComponentError("timing", "build table", err)
	}

	if err := app.openHID(cfg.HID(), opts); err != nil {
		return nil, err
	}
	app.reporter = hid.NewReporter(app.output(opts), cfg.Mousekey(), opts.Logger)

	sinks := dispatcher.MultiSink{app.reporter}
	if jc := cfg.Journal(); jc.Enabled && !opts.NoJournal {
		if err := app.openJournal(jc.Path, opts.Logger); err != nil {
			return nil, err
		}
		sinks = append(sinks, app.session)
	}

	app.reg = oneshot.New()
	dcfg := dispatcher.DefaultConfig().WithLogger(opts.Logger)
	if app.disp, err = dispatcher.New(app.km, app.table, app.reg, sinks, dcfg); err != nil {
		return nil, NewComponentError("dispatcher", "create", err)
	}
	if opts.Logger.GetLevel() <= zerolog.TraceLevel {
		app.disp.Hooks().Register(dispatcher.NewAuditHook(opts.Logger))
	}

	app.src = opts.Source
	if app.src == nil {
		if app.src, err = newSource(cfg.Source(), app.clk, opts.Logger); err != nil {
			return nil, err
		}
	}

	st := cfg.Status()
	app.showStatus = st.Enabled && !opts.NoStatus
	app.statusRate = st.Interval
	app.screen = opts.Screen

	app.log.Info().
		Str("keymap", app.km.Name).
		Dur("base_term", app.table.Default().TappingTerm).
		Int("overrides", len(app.table.Positions())).
		Dur("scan", app.scan).
		Msg("application ready")
	return app, nil
}

// openHID opens the configured gadget device and LED reader unless the
// options replace them.
func (a *App) openHID(hc config.HIDConfig, opts Options) error {
	a.leds = opts.LEDs
	if opts.Output != nil || hc.Device == "" {
		return nil
	}

	dev, err := hid.OpenDevice(hc.Device)
	if err != nil {
		return NewComponentError("hid", "open "+hc.Device, err)
	}
	a.closers = append(a.closers, dev)

	if a.leds != nil || hc.LEDs == "" {
		return nil
	}
	if hc.LEDs == hc.Device {
		a.leds = dev
		return nil
	}
	f, err := os.Open(hc.LEDs)
	if err != nil {
		return NewComponentError("hid", "open "+hc.LEDs, err)
	}
	a.closers = append(a.closers, f)
	a.leds = f
	return nil
}

func (a *App) output(opts Options) io.Writer {
	if opts.Output != nil {
		return opts.Output
	}
	for _, c := range a.closers {
		if w, ok := c.(io.Writer); ok {
			return w
		}
	}
	return io.Discard
}

func (a *App) openJournal(path string, log zerolog.Logger) error {
	j, err := journal.Open(path, log)
	if err != nil {
		return NewComponentError("journal", "open", err)
	}
	a.journal = j
	s, err := j.Begin(a.km.Name)
	if err != nil {
		return NewComponentError("journal", "begin session", err)
	}
	a.session = s
	a.log.Info().Str("session", s.ID().String()).Str("path", path).Msg("recording session")
	return nil
}

// newSource builds the configured event source.
func newSource(sc config.SourceConfig, clk clock.Clock, log zerolog.Logger) (source.Source, error) {
	switch sc.Kind {
	case "script":
		if sc.Script == "" {
			return nil, ErrNoScript
		}
		seq, err := source.LoadScript(sc.Script)
		if err != nil {
			return nil, NewComponentError("source", "load script", err)
		}
		return source.NewScript(seq, clk), nil

	case "evdev":
		codes := source.DefaultCodeMap()
		if sc.Map != nil {
			parsed, err := source.ParseCodeMap(sc.Map)
			if err != nil {
				return nil, NewComponentError("source", "parse key map", err)
			}
			codes = parsed
		}
		ev, err := source.NewEvdev(sc.Device, sc.Grab, codes, clk, log)
		if err != nil {
			return nil, NewComponentError("source", "open "+sc.Device, err)
		}
		return ev, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, sc.Kind)
	}
}

// Keymap returns the active keymap.
func (a *App) Keymap() *keymap.Keymap { return a.km }

// Table returns the policy table.
func (a *App) Table() *timing.Table { return a.table }

// Dispatcher returns the dispatcher. It must only be used from the loop
// or after Run returns.
func (a *App) Dispatcher() *dispatcher.Dispatcher { return a.disp }

// Reporter returns the HID reporter.
func (a *App) Reporter() *hid.Reporter { return a.reporter }

// Journal returns the open journal, or nil when not recording.
func (a *App) Journal() *journal.Journal { return a.journal }

// Session returns the journal session, or nil when not recording.
func (a *App) Session() *journal.Session { return a.session }

// Metrics returns the loop metrics.
func (a *App) Metrics() *Metrics { return a.metrics }

// Close releases the source, devices and journal. It is safe to call
// more than once.
func (a *App) Close() error {
	var errs []error
	a.once.Do(func() {
		if a.src != nil {
			errs = append(errs, a.src.Close())
		}
		if a.session != nil {
			errs = append(errs, a.session.End())
		}
		if a.journal != nil {
			errs = append(errs, a.journal.Close())
		}
		for _, c := range a.closers {
			if err := c.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}
