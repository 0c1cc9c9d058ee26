package app

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/taphold/internal/clock"
	"github.com/dshills/taphold/internal/config"
	"github.com/dshills/taphold/internal/hid"
	"github.com/dshills/taphold/internal/input/key"
	"github.com/dshills/taphold/internal/source"
)

// syncBuffer is a bytes.Buffer safe for the loop and the test to share.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Len()
}

func testConfig(overrides map[string]any) *config.Config {
	base := map[string]any{
		"journal": map[string]any{"enabled": true, "path": ":memory:"},
	}
	for k, v := range overrides {
		base[k] = v
	}
	return config.FromMap(base)
}

func scriptApp(t *testing.T, cfg *config.Config, text string, opts Options) *App {
	t.Helper()
	seq, err := key.ParseSequence(text)
	require.NoError(t, err)

	clk := clock.NewMonotonic()
	opts.Clock = clk
	opts.Source = source.NewScript(seq, clk)
	opts.Logger = zerolog.Nop()

	a, err := New(cfg, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestRunScriptToCompletion(t *testing.T) {
	out := &syncBuffer{}
	a := scriptApp(t, testConfig(nil), "+r1c3@0 -r1c3@30", Options{Output: out})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, a.Run(ctx))

	snap := a.Metrics().Snapshot()
	assert.Equal(t, uint64(2), snap.Events)
	assert.NotZero(t, snap.Iterations)
	assert.Equal(t, uint64(1), a.Dispatcher().Metrics().Snapshot().Taps)

	// s down, all up, then the reset on stop.
	assert.NotZero(t, a.Reporter().Stats().Reports)
	assert.NotZero(t, out.Len())
	assert.Equal(t, hid.KeyboardReport{}, a.Reporter().Keyboard())

	seq, err := a.Journal().Events(a.Session().ID())
	require.NoError(t, err)
	assert.Equal(t, 2, seq.Len())
}

func TestRunResolvesHoldAfterSourceEnds(t *testing.T) {
	a := scriptApp(t, testConfig(nil), "+r1c3@0", Options{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, a.Run(ctx))

	m := a.Dispatcher().Metrics().Snapshot()
	assert.Equal(t, uint64(1), m.HoldsTimeout)
	assert.Empty(t, a.Dispatcher().Down())

	stats, err := a.Journal().Stats(a.Session().ID())
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, 1, stats[0].Holds)
}

func TestRunStopsOnCancel(t *testing.T) {
	a := scriptApp(t, testConfig(nil), "+r1c3@0 -r1c3@10000", Options{})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.NoError(t, a.Run(ctx))

	// The key is still down when cancelled; stopping resolves it and
	// sends one press and one release.
	assert.Empty(t, a.Dispatcher().Pending())
	assert.Empty(t, a.Dispatcher().Down())
	assert.Equal(t, uint64(2), a.Dispatcher().Metrics().Snapshot().ActionsEmitted)
}

func TestRunTwice(t *testing.T) {
	a := scriptApp(t, testConfig(nil), "+r1c3@0 -r1c3@10", Options{})
	a.running.Store(true)
	assert.ErrorIs(t, a.Run(context.Background()), ErrAlreadyRunning)
}

func TestRunReadsLEDs(t *testing.T) {
	leds := bytes.NewReader([]byte{hid.LEDCapsLock | hid.LEDNumLock})
	a := scriptApp(t, testConfig(nil), "+r1c3@0 -r1c3@20", Options{LEDs: leds})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, a.Run(ctx))

	assert.True(t, a.Reporter().LEDs().CapsLock())
	assert.True(t, a.Reporter().LEDs().NumLock())
}

func TestRunWithStatusView(t *testing.T) {
	screen := tcell.NewSimulationScreen("UTF-8")
	cfg := testConfig(map[string]any{
		"status": map[string]any{"enabled": true, "interval": "5ms"},
	})
	a := scriptApp(t, cfg, "+r1c3@0 -r1c3@40", Options{Screen: screen})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, a.Run(ctx))
	assert.NotZero(t, a.Metrics().Snapshot().Draws)
}

func TestAppReplayUsesConfiguredTable(t *testing.T) {
	cfg := testConfig(map[string]any{
		"timing": map[string]any{
			"keys": map[string]any{"r1c3": map[string]any{"tapping_term": "120ms"}},
		},
	})
	a := scriptApp(t, cfg, "+r1c3@0", Options{NoJournal: true})
	assert.Nil(t, a.Session())

	seq, err := key.ParseSequence("+r1c3@0 -r1c3@150")
	require.NoError(t, err)
	res, err := a.Replay(seq, ms)
	require.NoError(t, err)

	require.Len(t, res, 2)
	assert.Equal(t, shift, res[0].Action)
	assert.Equal(t, 120*ms, res[0].Time)
}

func TestNewErrors(t *testing.T) {
	t.Run("invalid config", func(t *testing.T) {
		cfg := config.FromMap(map[string]any{"scan": map[string]any{"interval": "1s"}})
		_, err := New(cfg, Options{Logger: zerolog.Nop()})
		assert.ErrorIs(t, err, config.ErrValidationFailed)
	})

	t.Run("script without file", func(t *testing.T) {
		cfg := config.FromMap(map[string]any{"source": map[string]any{"kind": "script"}})
		_, err := New(cfg, Options{Logger: zerolog.Nop()})
		assert.ErrorIs(t, err, ErrNoScript)
	})

	t.Run("unknown keymap", func(t *testing.T) {
		cfg := config.FromMap(map[string]any{"keymap": map[string]any{"name": "planck"}})
		_, err := New(cfg, Options{Logger: zerolog.Nop(), Source: source.NewScript(key.NewSequence(), clock.NewManual(0))})
		var ce *ComponentError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, "keymap", ce.Component)
	})
}

func TestComponentError(t *testing.T) {
	err := NewComponentError("hid", "open /dev/hidg0", ErrNoScript)
	assert.Equal(t, "hid: open /dev/hidg0: "+ErrNoScript.Error(), err.Error())
	assert.ErrorIs(t, err, ErrNoScript)
	assert.Equal(t, "hid", NewComponentError("hid", "", nil).Error())

	var nilErr *ComponentError
	assert.Equal(t, "", nilErr.Error())
}

func TestMetrics(t *testing.T) {
	m := NewMetrics()
	m.RecordIteration(100*time.Microsecond, ms)
	m.RecordIteration(3*ms, ms)
	m.RecordEvent(2 * ms)
	m.RecordEvent(-ms)
	m.RecordDraw()

	s := m.Snapshot()
	assert.Equal(t, uint64(2), s.Iterations)
	assert.Equal(t, uint64(1), s.Overruns)
	assert.Equal(t, 3*ms, s.MaxIter)
	assert.Equal(t, ms, s.AvgLag)
	assert.Equal(t, 2*ms, s.MaxLag)
	assert.InDelta(t, 50.0, s.OverrunRate(), 0.001)

	m.Reset()
	assert.Zero(t, m.Snapshot().Iterations)
	assert.Zero(t, MetricsSnapshot{}.OverrunRate())
}
