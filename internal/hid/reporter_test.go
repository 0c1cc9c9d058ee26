package hid

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dshills/taphold/internal/dispatcher"
	"github.com/dshills/taphold/internal/input/key"
	"github.com/dshills/taphold/internal/input/keymap"
)

type mockWriter struct {
	mock.Mock
}

func (m *mockWriter) Write(p []byte) (int, error) {
	args := m.Called(append([]byte(nil), p...))
	return args.Int(0), args.Error(1)
}

// captureWriter records every report written.
type captureWriter struct {
	reports [][]byte
}

func (c *captureWriter) Write(p []byte) (int, error) {
	c.reports = append(c.reports, append([]byte(nil), p...))
	return len(p), nil
}

func (c *captureWriter) last() []byte {
	if len(c.reports) == 0 {
		return nil
	}
	return c.reports[len(c.reports)-1]
}

func newTestReporter() (*Reporter, *captureWriter) {
	w := &captureWriter{}
	return NewReporter(w, DefaultMouseConfig(), zerolog.Nop()), w
}

func emit(r *Reporter, a keymap.Action, pressed bool) {
	r.Emit(dispatcher.Resolved{Action: a, Pressed: pressed, TapCount: 1})
}

func TestKeyPressAndRelease(t *testing.T) {
	mw := &mockWriter{}
	mw.On("Write", []byte{0x01, 0x00, 0x04, 0, 0, 0, 0, 0}).Return(8, nil).Once()
	mw.On("Write", []byte{0x01, 0x00, 0, 0, 0, 0, 0, 0}).Return(8, nil).Once()

	r := NewReporter(mw, DefaultMouseConfig(), zerolog.Nop())
	a := keymap.KeyAction(key.KeyA, key.ModNone)
	emit(r, a, true)
	emit(r, a, false)

	mw.AssertExpectations(t)
	assert.Equal(t, uint64(2), r.Stats().Reports)
}

func TestKeyWithModsAndModifierHold(t *testing.T) {
	r, w := newTestReporter()

	ctrl := keymap.ModAction(key.ModLCtrl)
	emit(r, ctrl, true)
	assert.Equal(t, []byte{0x01, 0x01, 0, 0, 0, 0, 0, 0}, w.last())

	percent := keymap.KeyAction(key.Key5, key.ModLShift)
	emit(r, percent, true)
	assert.Equal(t, []byte{0x01, 0x03, 0x22, 0, 0, 0, 0, 0}, w.last())

	emit(r, percent, false)
	assert.Equal(t, []byte{0x01, 0x01, 0, 0, 0, 0, 0, 0}, w.last())

	emit(r, ctrl, false)
	assert.Equal(t, []byte{0x01, 0x00, 0, 0, 0, 0, 0, 0}, w.last())
}

func TestModifierRefcount(t *testing.T) {
	r, _ := newTestReporter()

	shift := keymap.ModAction(key.ModLShift)
	emit(r, shift, true)
	emit(r, keymap.KeyAction(key.KeyLShift, key.ModNone), true)
	emit(r, shift, false)
	assert.Equal(t, key.ModLShift, r.Keyboard().Mods)

	emit(r, keymap.KeyAction(key.KeyLShift, key.ModNone), false)
	assert.Equal(t, key.ModNone, r.Keyboard().Mods)
}

func TestUnchangedReportNotRewritten(t *testing.T) {
	r, w := newTestReporter()

	emit(r, keymap.ModAction(key.ModLShift), true)
	emit(r, keymap.ModAction(key.ModLShift), true)
	assert.Len(t, w.reports, 1)
}

func TestRolloverDropsSeventhKey(t *testing.T) {
	r, _ := newTestReporter()

	for k := key.KeyA; k < key.KeyA+7; k++ {
		emit(r, keymap.KeyAction(k, key.ModNone), true)
	}

	rep := r.Keyboard()
	assert.Equal(t, [KeySlots]uint8{0x04, 0x05, 0x06, 0x07, 0x08, 0x09}, rep.Keys)
	assert.Equal(t, uint64(1), r.Stats().Dropped)

	emit(r, keymap.KeyAction(key.KeyB, key.ModNone), false)
	assert.Equal(t, [KeySlots]uint8{0x04, 0x06, 0x07, 0x08, 0x09, 0}, r.Keyboard().Keys)
}

func TestSameKeyFromTwoPositions(t *testing.T) {
	r, _ := newTestReporter()
	a := keymap.KeyAction(key.KeyA, key.ModNone)

	emit(r, a, true)
	emit(r, a, true)
	emit(r, a, false)
	assert.Equal(t, uint8(0x04), r.Keyboard().Keys[0])
	emit(r, a, false)
	assert.Equal(t, uint8(0), r.Keyboard().Keys[0])
}

func TestConsumerKeys(t *testing.T) {
	r, w := newTestReporter()

	play := keymap.KeyAction(key.KeyMediaPlay, key.ModNone)
	emit(r, play, true)
	assert.Equal(t, []byte{0x02, 0xCD, 0x00}, w.last())
	emit(r, play, false)
	assert.Equal(t, []byte{0x02, 0x00, 0x00}, w.last())
}

func TestMouseButtons(t *testing.T) {
	r, w := newTestReporter()

	emit(r, keymap.KeyAction(key.KeyMouseBtn2, key.ModNone), true)
	assert.Equal(t, []byte{0x03, 0x02, 0, 0, 0, 0}, w.last())
	emit(r, keymap.KeyAction(key.KeyMouseBtn2, key.ModNone), false)
	assert.Equal(t, []byte{0x03, 0x00, 0, 0, 0, 0}, w.last())
}

func TestMouseMovementTicks(t *testing.T) {
	r, w := newTestReporter()

	r.Emit(dispatcher.Resolved{
		Action:  keymap.KeyAction(key.KeyMouseRight, key.ModNone),
		Pressed: true,
		Time:    0,
	})
	assert.Equal(t, []byte{0x03, 0, MoveDelta, 0, 0, 0}, w.last())

	n := len(w.reports)
	r.Tick(50 * time.Millisecond)
	assert.Len(t, w.reports, n, "no repeat before the delay")

	r.Tick(100 * time.Millisecond)
	assert.Len(t, w.reports, n+1)
}

func TestLayerAndNoneIgnored(t *testing.T) {
	r, w := newTestReporter()
	emit(r, keymap.LayerAction(2), true)
	emit(r, keymap.NoAction(), true)
	assert.Empty(t, w.reports)
}

func TestWriteFailureCounted(t *testing.T) {
	mw := &mockWriter{}
	boom := errors.New("device gone")
	mw.On("Write", mock.Anything).Return(0, boom)

	r := NewReporter(mw, DefaultMouseConfig(), zerolog.Nop())
	emit(r, keymap.KeyAction(key.KeyA, key.ModNone), true)

	st := r.Stats()
	assert.Equal(t, uint64(1), st.Failures)
	require.Error(t, st.LastErr)
	assert.ErrorIs(t, st.LastErr, boom)
}

func TestReset(t *testing.T) {
	r, w := newTestReporter()
	emit(r, keymap.KeyAction(key.KeyA, key.ModLCtrl), true)
	emit(r, keymap.KeyAction(key.KeyMute, key.ModNone), true)

	r.Reset()
	assert.Equal(t, KeyboardReport{}, r.Keyboard())
	assert.Equal(t, MouseReport{}.Bytes(), w.last())
}

func TestLEDs(t *testing.T) {
	r, _ := newTestReporter()
	r.SetLEDs(LEDs(LEDCapsLock))
	assert.True(t, r.LEDs().CapsLock())
	assert.False(t, r.LEDs().NumLock())
}
