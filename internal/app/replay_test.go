package app

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/taphold/internal/dispatcher"
	"github.com/dshills/taphold/internal/input/key"
	"github.com/dshills/taphold/internal/input/keymap"
	"github.com/dshills/taphold/internal/timing"
)

const ms = time.Millisecond

var (
	homeS = key.Pos(1, 3) // MT(LShift, s), 170ms
	keyS  = keymap.KeyAction(key.KeyS, key.ModNone)
	shift = keymap.ModAction(key.ModLShift)
)

func kyria(t *testing.T) (*keymap.Keymap, *timing.Table) {
	t.Helper()
	table, err := timing.NewTable(timing.BaseTerm, timing.KyriaEntries())
	require.NoError(t, err)
	return keymap.DefaultKyria(), table
}

func replay(t *testing.T, text string, step time.Duration) *ReplayResult {
	t.Helper()
	km, table := kyria(t)
	seq, err := key.ParseSequence(text)
	require.NoError(t, err)
	res, err := Replay(km, table, seq, ReplayOptions{Step: step, Logger: zerolog.Nop()})
	require.NoError(t, err)
	return res
}

type out struct {
	Action  keymap.Action
	Pressed bool
	At      time.Duration
}

func outputs(rs []dispatcher.Resolved) []out {
	res := make([]out, len(rs))
	for i, r := range rs {
		res[i] = out{r.Action, r.Pressed, r.Time}
	}
	return res
}

func TestReplayTapThenHold(t *testing.T) {
	res := replay(t, "+r1c3@0 -r1c3@100 +r1c3@400 -r1c3@700", 0)

	assert.Equal(t, []out{
		{keyS, true, 100 * ms},
		{keyS, false, 100 * ms},
		{shift, true, 570 * ms},
		{shift, false, 700 * ms},
	}, outputs(res.Resolved))
	assert.Equal(t, uint64(1), res.Metrics.Taps)
	assert.Equal(t, uint64(1), res.Metrics.Holds())
}

func TestReplayReleaseAtExactTermIsTap(t *testing.T) {
	res := replay(t, "+r1c3@0 -r1c3@170", ms)

	require.Len(t, res.Resolved, 2)
	assert.Equal(t, keyS, res.Resolved[0].Action)
	assert.Equal(t, uint8(1), res.Resolved[0].TapCount)
}

func TestReplayTicksPastLastEvent(t *testing.T) {
	res := replay(t, "+r1c3@0", ms)

	require.Len(t, res.Resolved, 1)
	assert.Equal(t, shift, res.Resolved[0].Action)
	assert.True(t, res.Resolved[0].Pressed)
	assert.Equal(t, 170*ms, res.End)
}

func TestReplayCoarseStepDelaysHold(t *testing.T) {
	res := replay(t, "+r1c3@0", 50*ms)

	require.Len(t, res.Resolved, 1)
	assert.Equal(t, 200*ms, res.Resolved[0].Time)
}

func TestReplayInterruptRollover(t *testing.T) {
	// Home-row mods ignore interrupts, so a fast roll stays two letters.
	res := replay(t, "+r1c3@0 +r1c4@40 -r1c3@90 -r1c4@120", ms)

	got := outputs(res.Resolved)
	require.Len(t, got, 4)
	assert.Equal(t, keyS, got[0].Action)
	assert.Equal(t, keymap.KeyAction(key.KeyT, key.ModNone), got[2].Action)
	for _, o := range got {
		assert.Equal(t, keymap.ActionKey, o.Action.Kind)
	}
}

func TestReplayOneshot(t *testing.T) {
	// Thumb oneshot, then n.
	res := replay(t, "+r3c9@0 -r3c9@50 +r1c11@100 -r1c11@150", ms)

	require.Len(t, res.Resolved, 2)
	assert.Equal(t, keymap.KeyAction(key.KeyN, key.ModLShift), res.Resolved[0].Action)
	assert.True(t, res.Armed.IsEmpty())
}

func TestReplayOneshotOverlappingHomeRow(t *testing.T) {
	keyW := keymap.KeyAction(key.KeyW, key.ModNone)

	// s is still undecided when w is pressed, so s is emitted first and
	// takes the shift.
	res := replay(t, "+r3c9@0 -r3c9@50 +r1c3@100 +r0c2@130 -r1c3@160 -r0c2@180", ms)
	shiftS := keymap.KeyAction(key.KeyS, key.ModLShift)
	assert.Equal(t, []keymap.Action{shiftS, shiftS, keyW, keyW}, actions(res.Resolved))

	// The oneshot tap lands while s is undecided; it applies after s.
	res = replay(t, "+r1c3@0 +r3c9@20 -r3c9@50 -r1c3@80 +r0c2@100 -r0c2@120", ms)
	shiftW := keymap.KeyAction(key.KeyW, key.ModLShift)
	assert.Equal(t, []keymap.Action{keyS, keyS, shiftW, shiftW}, actions(res.Resolved))
	assert.True(t, res.Armed.IsEmpty())
}

func actions(rs []dispatcher.Resolved) []keymap.Action {
	res := make([]keymap.Action, len(rs))
	for i, r := range rs {
		res[i] = r.Action
	}
	return res
}

func TestReplayOnTickAndSinks(t *testing.T) {
	km, table := kyria(t)
	seq, err := key.ParseSequence("+r1c3@0 -r1c3@10")
	require.NoError(t, err)

	var ticks int
	extra := &dispatcher.Recorder{}
	res, err := Replay(km, table, seq, ReplayOptions{
		Sinks:  []dispatcher.Sink{extra},
		OnTick: func(time.Duration) { ticks++ },
	})
	require.NoError(t, err)
	assert.Equal(t, 9, ticks)
	assert.Equal(t, res.Resolved, extra.Actions)
}

func TestReplayRejectsBadInput(t *testing.T) {
	km, table := kyria(t)

	_, err := Replay(km, table, key.NewSequence(), ReplayOptions{Step: -ms})
	assert.ErrorIs(t, err, ErrInvalidStep)

	unordered := key.NewSequenceFrom(key.Press(homeS, 10*ms), key.Release(homeS, 5*ms))
	_, err = Replay(km, table, unordered, ReplayOptions{})
	assert.Error(t, err)
}
