package dispatcher_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/taphold/internal/dispatcher"
	"github.com/dshills/taphold/internal/input/key"
	"github.com/dshills/taphold/internal/input/keymap"
	"github.com/dshills/taphold/internal/oneshot"
	"github.com/dshills/taphold/internal/timing"
)

const ms = time.Millisecond

var (
	posA  = key.Pos(0, 0) // MT(LCtrl, a)
	posB  = key.Pos(0, 1) // LT(nav, b)
	posC  = key.Pos(0, 2) // c, Left on nav
	posD  = key.Pos(0, 3) // d
	posOS = key.Pos(0, 4) // LT(nav, OSM(LShift))
	posE  = key.Pos(0, 5) // LT(nav, Space), repeats
	posX  = key.Pos(0, 6) // XXX

	keyA     = keymap.KeyAction(key.KeyA, key.ModNone)
	keyB     = keymap.KeyAction(key.KeyB, key.ModNone)
	keyC     = keymap.KeyAction(key.KeyC, key.ModNone)
	keyD     = keymap.KeyAction(key.KeyD, key.ModNone)
	keySpace = keymap.KeyAction(key.KeySpace, key.ModNone)
	keyLeft  = keymap.KeyAction(key.KeyLeft, key.ModNone)
	ctrl     = keymap.ModAction(key.ModLCtrl)
	nav      = keymap.LayerAction(1)
)

func testKeymap() *keymap.Keymap {
	km := keymap.NewKeymap("test", []key.Position{posA, posB, posC, posD, posOS, posE, posX})
	base := keymap.NewLayer("base").
		Set(posA, keymap.DualRole(keyA, ctrl)).
		Set(posB, keymap.DualRole(keyB, nav)).
		Set(posC, keymap.Single(keyC)).
		Set(posD, keymap.Single(keyD)).
		Set(posOS, keymap.DualRole(keymap.OneshotAction(key.ModLShift), nav)).
		Set(posE, keymap.DualRole(keySpace, nav)).
		Set(posX, keymap.Single(keymap.NoAction()))
	navLayer := keymap.NewLayer("nav").
		Set(posC, keymap.Single(keyLeft))
	km.AddLayer(base)
	km.AddLayer(navLayer)
	return km
}

func testEntries(ignoreA bool) map[key.Position]timing.Entry {
	return map[key.Position]timing.Entry{
		posA:  {TappingTerm: timing.Term(180 * ms), IgnoreInterrupt: timing.Bool(ignoreA)},
		posB:  {TappingTerm: timing.Term(180 * ms)},
		posOS: {TappingTerm: timing.Term(220 * ms), ForceHold: timing.Bool(false)},
		posE:  {TappingTerm: timing.Term(220 * ms), ForceHold: timing.Bool(false)},
	}
}

type fixture struct {
	d   *dispatcher.Dispatcher
	rec *dispatcher.Recorder
	reg *oneshot.Register
}

func newFixture(t *testing.T, ignoreA bool) *fixture {
	t.Helper()
	table, err := timing.NewTable(timing.BaseTerm, testEntries(ignoreA))
	require.NoError(t, err)

	rec := &dispatcher.Recorder{}
	reg := oneshot.New()
	d, err := dispatcher.New(testKeymap(), table, reg, rec, dispatcher.DefaultConfig())
	require.NoError(t, err)
	return &fixture{d: d, rec: rec, reg: reg}
}

func (f *fixture) press(pos key.Position, at time.Duration) {
	f.d.HandleEvent(key.Press(pos, at*ms))
}

func (f *fixture) release(pos key.Position, at time.Duration) {
	f.d.HandleEvent(key.Release(pos, at*ms))
}

// tickTo ticks once per millisecond up to and including at.
func (f *fixture) tickTo(at time.Duration) {
	for now := f.d.Now() + ms; now <= at*ms; now += ms {
		f.d.Tick(now)
	}
}

// out is the comparable part of a Resolved.
type out struct {
	Pos     key.Position
	Action  keymap.Action
	Pressed bool
	Taps    uint8
}

func (f *fixture) outputs() []out {
	res := make([]out, len(f.rec.Actions))
	for i, r := range f.rec.Actions {
		res[i] = out{r.Pos, r.Action, r.Pressed, r.TapCount}
	}
	return res
}

func TestNewRejectsBadInput(t *testing.T) {
	table, err := timing.NewTable(timing.BaseTerm, nil)
	require.NoError(t, err)
	sink := &dispatcher.Recorder{}

	_, err = dispatcher.New(nil, table, nil, sink, dispatcher.DefaultConfig())
	assert.ErrorIs(t, err, dispatcher.ErrNilKeymap)

	_, err = dispatcher.New(testKeymap(), nil, nil, sink, dispatcher.DefaultConfig())
	assert.ErrorIs(t, err, dispatcher.ErrNilTable)

	_, err = dispatcher.New(testKeymap(), table, nil, nil, dispatcher.DefaultConfig())
	assert.ErrorIs(t, err, dispatcher.ErrNilSink)

	empty := keymap.NewKeymap("empty", []key.Position{posA})
	_, err = dispatcher.New(empty, table, nil, sink, dispatcher.DefaultConfig())
	assert.ErrorIs(t, err, dispatcher.ErrInvalidKeymap)
	assert.ErrorIs(t, err, keymap.ErrNoLayers)

	stray, err := timing.NewTable(timing.BaseTerm, map[key.Position]timing.Entry{
		key.Pos(9, 9): {ForceHold: timing.Bool(false)},
	})
	require.NoError(t, err)
	_, err = dispatcher.New(testKeymap(), stray, nil, sink, dispatcher.DefaultConfig())
	assert.ErrorIs(t, err, dispatcher.ErrInvalidTable)
	assert.ErrorIs(t, err, timing.ErrUnknownKey)
}

func TestTapBeforeTerm(t *testing.T) {
	f := newFixture(t, false)

	f.press(posA, 0)
	f.tickTo(149)
	assert.Empty(t, f.rec.Actions)

	f.release(posA, 150)
	assert.Equal(t, []out{
		{posA, keyA, true, 1},
		{posA, keyA, false, 1},
	}, f.outputs())
	assert.Equal(t, 150*ms, f.rec.Actions[0].Time)

	f.tickTo(400)
	assert.Len(t, f.rec.Actions, 2, "no hold after a tap")
	assert.Equal(t, uint64(1), f.d.Metrics().Snapshot().Taps)
}

func TestHoldByTimeout(t *testing.T) {
	f := newFixture(t, false)

	f.press(posA, 0)
	f.tickTo(200)

	require.Equal(t, []out{{posA, ctrl, true, 0}}, f.outputs())
	assert.Equal(t, 180*ms, f.rec.Actions[0].Time)
	assert.True(t, f.rec.Actions[0].IsHold())

	f.release(posA, 260)
	assert.Equal(t, []out{
		{posA, ctrl, true, 0},
		{posA, ctrl, false, 0},
	}, f.outputs())

	snap := f.d.Metrics().Snapshot()
	assert.Equal(t, uint64(1), snap.HoldsTimeout)
	assert.Equal(t, uint64(0), snap.Taps)
}

func TestReleaseAtExactTermIsTap(t *testing.T) {
	f := newFixture(t, false)

	f.press(posA, 0)
	f.tickTo(179)
	f.release(posA, 180)

	assert.Equal(t, []out{
		{posA, keyA, true, 1},
		{posA, keyA, false, 1},
	}, f.outputs())
}

func TestLateReleaseWithoutTicks(t *testing.T) {
	f := newFixture(t, false)

	f.press(posA, 0)
	f.release(posA, 300)

	assert.Equal(t, []out{
		{posA, ctrl, true, 0},
		{posA, ctrl, false, 0},
	}, f.outputs())
}

func TestHoldByInterrupt(t *testing.T) {
	f := newFixture(t, false)

	f.press(posB, 0)
	f.tickTo(49)
	f.press(posC, 50)

	assert.Equal(t, []out{
		{posB, nav, true, 0},
		{posC, keyLeft, true, 1},
	}, f.outputs())
	assert.Equal(t, 50*ms, f.rec.Actions[0].Time)
	assert.True(t, f.d.Layers().Active(1))

	// Releasing the layer first still releases what C pressed.
	f.release(posB, 70)
	f.release(posC, 90)

	assert.Equal(t, []out{
		{posB, nav, true, 0},
		{posC, keyLeft, true, 1},
		{posB, nav, false, 0},
		{posC, keyLeft, false, 1},
	}, f.outputs())
	assert.False(t, f.d.Layers().Active(1))
	assert.Equal(t, uint64(1), f.d.Metrics().Snapshot().HoldsInterrupt)
}

func TestInterruptedKeysResolveIndependently(t *testing.T) {
	f := newFixture(t, false)

	// A is interrupted by B; B then taps on its own.
	f.press(posA, 0)
	f.press(posB, 20)
	f.release(posB, 60)
	f.release(posA, 100)

	assert.Equal(t, []out{
		{posA, ctrl, true, 0},
		{posB, keyB, true, 1},
		{posB, keyB, false, 1},
		{posA, ctrl, false, 0},
	}, f.outputs())
}

func TestIgnoreInterruptRolloverKeepsOrder(t *testing.T) {
	f := newFixture(t, true)

	f.press(posA, 0)
	f.press(posC, 30)
	assert.Empty(t, f.rec.Actions)
	assert.Equal(t, 1, f.d.Queued())
	assert.Equal(t, []key.Position{posA}, f.d.Pending())

	f.release(posA, 60)
	f.release(posC, 80)

	assert.Equal(t, []out{
		{posA, keyA, true, 1},
		{posA, keyA, false, 1},
		{posC, keyC, true, 1},
		{posC, keyC, false, 1},
	}, f.outputs())
	assert.Zero(t, f.d.Queued())
}

func TestIgnoreInterruptHoldAppliesToQueued(t *testing.T) {
	f := newFixture(t, true)

	f.press(posA, 0)
	f.press(posC, 30)
	f.tickTo(180)

	assert.Equal(t, []out{
		{posA, ctrl, true, 0},
		{posC, keyC, true, 1},
	}, f.outputs())

	f.release(posC, 190)
	f.release(posA, 200)
	assert.Equal(t, []out{
		{posA, ctrl, true, 0},
		{posC, keyC, true, 1},
		{posC, keyC, false, 1},
		{posA, ctrl, false, 0},
	}, f.outputs())
}

func TestOneshotShiftAppliesOnce(t *testing.T) {
	f := newFixture(t, false)

	f.press(posOS, 0)
	f.release(posOS, 50)
	assert.Empty(t, f.rec.Actions, "oneshot toggles are not forwarded")
	assert.Equal(t, key.ModLShift, f.d.Armed())

	f.press(posC, 300)
	f.release(posC, 320)
	assert.True(t, f.reg.Armed().IsEmpty())

	f.press(posD, 400)
	f.release(posD, 420)

	shiftC := keyC.WithMods(key.ModLShift)
	assert.Equal(t, []out{
		{posC, shiftC, true, 1},
		{posC, shiftC, false, 1},
		{posD, keyD, true, 1},
		{posD, keyD, false, 1},
	}, f.outputs())

	snap := f.d.Metrics().Snapshot()
	assert.Equal(t, uint64(1), snap.OneshotToggles)
	assert.Equal(t, uint64(1), snap.OneshotConsumptions)
}

func TestOneshotConsumedInOutputOrder(t *testing.T) {
	f := newFixture(t, true)

	f.press(posOS, 0)
	f.release(posOS, 50)
	require.Equal(t, key.ModLShift, f.d.Armed())

	// C is processed before A resolves but is delivered after it, so A
	// is the next emitted key and takes the shift.
	f.press(posA, 300)
	f.press(posC, 330)
	assert.Equal(t, key.ModLShift, f.d.Armed(), "nothing delivered yet")
	f.release(posA, 360)
	f.release(posC, 380)

	shiftA := keyA.WithMods(key.ModLShift)
	assert.Equal(t, []out{
		{posA, shiftA, true, 1},
		{posA, shiftA, false, 1},
		{posC, keyC, true, 1},
		{posC, keyC, false, 1},
	}, f.outputs())
	assert.True(t, f.d.Armed().IsEmpty())
	assert.Equal(t, uint64(1), f.d.Metrics().Snapshot().OneshotConsumptions)
}

func TestOneshotToggleQueuedBehindPendingKey(t *testing.T) {
	f := newFixture(t, true)

	f.press(posA, 0)
	f.press(posOS, 20)
	f.release(posOS, 50)
	assert.True(t, f.d.Armed().IsEmpty(), "toggle waits for A")

	f.release(posA, 80)
	assert.Equal(t, key.ModLShift, f.d.Armed())

	f.press(posC, 100)
	f.release(posC, 120)

	shiftC := keyC.WithMods(key.ModLShift)
	assert.Equal(t, []out{
		{posA, keyA, true, 1},
		{posA, keyA, false, 1},
		{posC, shiftC, true, 1},
		{posC, shiftC, false, 1},
	}, f.outputs())
	assert.True(t, f.d.Armed().IsEmpty())
}

func TestOneshotReleaseKeepsMergedMods(t *testing.T) {
	f := newFixture(t, true)

	f.press(posOS, 0)
	f.release(posOS, 50)

	// D is queued behind A and released before A resolves; its release
	// must still carry the shift its press took.
	f.press(posA, 300)
	f.press(posD, 310)
	f.release(posD, 320)
	f.tickTo(480)
	f.release(posA, 500)

	shiftD := keyD.WithMods(key.ModLShift)
	assert.Equal(t, []out{
		{posA, ctrl, true, 0},
		{posD, shiftD, true, 1},
		{posD, shiftD, false, 1},
		{posA, ctrl, false, 0},
	}, f.outputs())
}

func TestOneshotDoubleTapDisarms(t *testing.T) {
	f := newFixture(t, false)

	f.press(posOS, 0)
	f.release(posOS, 40)
	f.press(posOS, 100)
	f.release(posOS, 140)

	assert.True(t, f.d.Armed().IsEmpty())
	assert.Empty(t, f.rec.Actions)
	assert.Equal(t, uint64(2), f.d.Metrics().Snapshot().OneshotToggles)
}

func TestOneshotHoldIsLayerNotToggle(t *testing.T) {
	f := newFixture(t, false)

	f.press(posOS, 0)
	f.tickTo(230)
	assert.True(t, f.d.Armed().IsEmpty())
	assert.True(t, f.d.Layers().Active(1))

	f.press(posC, 240)
	f.release(posC, 260)
	f.release(posOS, 300)

	assert.Equal(t, []out{
		{posOS, nav, true, 0},
		{posC, keyLeft, true, 1},
		{posC, keyLeft, false, 1},
		{posOS, nav, false, 0},
	}, f.outputs())
}

func TestOneshotNotConsumedByModifiers(t *testing.T) {
	f := newFixture(t, false)

	f.press(posOS, 0)
	f.release(posOS, 40)

	// A resolves to hold Ctrl: modifier-like, the register stays armed.
	f.press(posA, 100)
	f.tickTo(280)
	assert.Equal(t, key.ModLShift, f.d.Armed())

	f.press(posC, 290)
	assert.True(t, f.d.Armed().IsEmpty())
	f.release(posC, 300)
	f.release(posA, 310)

	assert.Equal(t, []out{
		{posA, ctrl, true, 0},
		{posC, keyC.WithMods(key.ModLShift), true, 1},
		{posC, keyC.WithMods(key.ModLShift), false, 1},
		{posA, ctrl, false, 0},
	}, f.outputs())
}

func TestRapidRepressRepeats(t *testing.T) {
	f := newFixture(t, false)

	f.press(posE, 0)
	f.release(posE, 50)
	f.press(posE, 100)

	// The second press is a held tap, never a hold.
	f.tickTo(1000)
	f.release(posE, 1000)

	assert.Equal(t, []out{
		{posE, keySpace, true, 1},
		{posE, keySpace, false, 1},
		{posE, keySpace, true, 2},
		{posE, keySpace, false, 2},
	}, f.outputs())
	assert.Equal(t, uint64(1), f.d.Metrics().Snapshot().Repeats)
}

func TestRepressAfterWindowDoesNotRepeat(t *testing.T) {
	f := newFixture(t, false)

	f.press(posE, 0)
	f.release(posE, 50)
	f.press(posE, 300)
	f.tickTo(520)

	assert.Equal(t, []out{
		{posE, keySpace, true, 1},
		{posE, keySpace, false, 1},
		{posE, nav, true, 0},
	}, f.outputs())
}

func TestForceHoldRepressRunsStandardMachine(t *testing.T) {
	f := newFixture(t, false)

	f.press(posA, 0)
	f.release(posA, 50)
	f.press(posA, 100)
	f.tickTo(280)

	assert.Equal(t, []out{
		{posA, keyA, true, 1},
		{posA, keyA, false, 1},
		{posA, ctrl, true, 0},
	}, f.outputs())
	assert.Equal(t, 280*ms, f.rec.Actions[2].Time)
}

func TestForceHoldRepressCountsTaps(t *testing.T) {
	f := newFixture(t, false)

	f.press(posA, 0)
	f.release(posA, 50)
	f.press(posA, 100)
	f.release(posA, 150)

	assert.Equal(t, []out{
		{posA, keyA, true, 1},
		{posA, keyA, false, 1},
		{posA, keyA, true, 2},
		{posA, keyA, false, 2},
	}, f.outputs())
}

func TestOtherKeyBreaksTapStreak(t *testing.T) {
	f := newFixture(t, false)

	f.press(posE, 0)
	f.release(posE, 30)
	f.press(posC, 40)
	f.release(posC, 50)
	f.press(posE, 60)
	f.release(posE, 90)

	outs := f.outputs()
	require.Len(t, outs, 6)
	assert.Equal(t, out{posE, keySpace, true, 1}, outs[4])
}

func TestReleaseWithoutPressIgnored(t *testing.T) {
	f := newFixture(t, false)

	f.release(posC, 10)
	f.release(posA, 20)

	assert.Empty(t, f.rec.Actions)
	assert.Equal(t, uint64(2), f.d.Metrics().Snapshot().IgnoredReleases)
	assert.True(t, f.d.Armed().IsEmpty())
}

func TestDuplicatePressIgnored(t *testing.T) {
	f := newFixture(t, false)

	f.press(posC, 0)
	f.press(posC, 10)
	f.release(posC, 20)

	assert.Len(t, f.rec.Actions, 2)
	assert.Equal(t, uint64(1), f.d.Metrics().Snapshot().DuplicatePresses)
}

func TestNoActionStillInterrupts(t *testing.T) {
	f := newFixture(t, false)

	f.press(posA, 0)
	f.press(posX, 30)

	assert.Equal(t, []out{{posA, ctrl, true, 0}}, f.outputs())
	f.release(posX, 40)
	assert.Len(t, f.rec.Actions, 1)
}

func TestExactlyOneOutcomePerCycle(t *testing.T) {
	releases := []time.Duration{10, 100, 179, 180, 181, 250, 1000}
	for _, rel := range releases {
		f := newFixture(t, false)
		f.press(posA, 0)
		f.tickTo(rel - 1)
		f.release(posA, rel)
		f.tickTo(rel + 500)

		outs := f.outputs()
		require.Len(t, outs, 2, "release at %dms", rel)
		assert.Equal(t, outs[0].Action, outs[1].Action, "release at %dms", rel)
		assert.True(t, outs[0].Pressed)
		assert.False(t, outs[1].Pressed)
	}
}

func TestNextDeadline(t *testing.T) {
	f := newFixture(t, false)

	_, ok := f.d.NextDeadline()
	assert.False(t, ok)

	f.press(posE, 10)
	f.press(posA, 20)
	next, ok := f.d.NextDeadline()
	require.True(t, ok)
	// A interrupted E, so only A is pending.
	assert.Equal(t, 200*ms, next)
}

func TestReleaseAll(t *testing.T) {
	f := newFixture(t, true)

	f.press(posB, 0)
	f.tickTo(180)
	f.press(posC, 190)
	f.press(posA, 200)
	f.press(posD, 210)

	f.d.ReleaseAll(250 * ms)

	assert.Empty(t, f.d.Down())
	assert.Zero(t, f.d.Queued())
	assert.False(t, f.d.Layers().Active(1))

	// Keys are released in press order; pending A resolves as a tap and
	// D, queued behind it, follows.
	assert.Equal(t, []out{
		{posB, nav, true, 0},
		{posC, keyLeft, true, 1},
		{posB, nav, false, 0},
		{posC, keyLeft, false, 1},
		{posA, keyA, true, 1},
		{posA, keyA, false, 1},
		{posD, keyD, true, 1},
		{posD, keyD, false, 1},
	}, f.outputs())
}

func TestReleaseAllPastTermIsHold(t *testing.T) {
	f := newFixture(t, true)

	f.press(posA, 0)
	f.press(posD, 20)
	f.d.ReleaseAll(300 * ms)

	assert.Equal(t, []out{
		{posA, ctrl, true, 0},
		{posA, ctrl, false, 0},
		{posD, keyD, true, 1},
		{posD, keyD, false, 1},
	}, f.outputs())
}

func TestHooks(t *testing.T) {
	f := newFixture(t, false)

	filter := dispatcher.NewFilterHook(posD)
	var seen []dispatcher.Resolved
	f.d.Hooks().Register(filter)
	f.d.Hooks().Register(dispatcher.PostEmitFunc{
		HookName: "collect",
		Fn:       func(r dispatcher.Resolved) { seen = append(seen, r) },
	})

	f.press(posD, 0)
	f.release(posD, 10)
	assert.Empty(t, f.rec.Actions)
	assert.Equal(t, uint64(2), f.d.Metrics().Snapshot().HookDrops)

	filter.Enable(posD)
	f.press(posD, 20)
	f.release(posD, 30)
	assert.Len(t, f.rec.Actions, 2)
	assert.Equal(t, f.rec.Actions, seen)

	assert.True(t, f.d.Hooks().Unregister("collect"))
	pre, post := f.d.Hooks().Count()
	assert.Equal(t, 1, pre)
	assert.Equal(t, 0, post)
}

func TestKyriaHomeRowAndThumbs(t *testing.T) {
	table, err := timing.NewTable(timing.BaseTerm, timing.KyriaEntries())
	require.NoError(t, err)
	rec := &dispatcher.Recorder{}
	d, err := dispatcher.New(keymap.DefaultKyria(), table, nil, rec, dispatcher.DefaultConfig())
	require.NoError(t, err)

	homeS := key.Pos(1, 3)  // MT(LShift, s), 170ms
	thumbN := key.Pos(3, 9) // LT(num, OSM(LShift))
	letterN := key.Pos(1, 11)

	// Middle finger: hold at 170ms.
	d.HandleEvent(key.Press(homeS, 0))
	for at := ms; at <= 170*ms; at += ms {
		d.Tick(at)
	}
	require.Len(t, rec.Actions, 1)
	assert.Equal(t, keymap.ModAction(key.ModLShift), rec.Actions[0].Action)
	assert.Equal(t, 170*ms, rec.Actions[0].Time)
	d.HandleEvent(key.Release(homeS, 200*ms))
	rec.Reset()

	// Oneshot thumb tapped, then a tapped n comes out shifted.
	d.HandleEvent(key.Press(thumbN, 300*ms))
	d.HandleEvent(key.Release(thumbN, 350*ms))
	assert.Equal(t, key.ModLShift, d.Armed())

	d.HandleEvent(key.Press(letterN, 400*ms))
	d.HandleEvent(key.Release(letterN, 450*ms))
	require.Len(t, rec.Actions, 2)
	assert.Equal(t, keymap.KeyAction(key.KeyN, key.ModLShift), rec.Actions[0].Action)
	assert.True(t, d.Armed().IsEmpty())
}
