package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHIDLEDsDefaultToDevice(t *testing.T) {
	cfg := FromMap(map[string]any{"hid": map[string]any{"device": "/dev/hidg0"}})
	assert.Equal(t, HIDConfig{Device: "/dev/hidg0", LEDs: "/dev/hidg0"}, cfg.HID())

	cfg = FromMap(map[string]any{"hid": map[string]any{"device": "/dev/hidg0", "leds": "/dev/hidg1"}})
	assert.Equal(t, "/dev/hidg1", cfg.HID().LEDs)
}

func TestJournalPath(t *testing.T) {
	state := t.TempDir()
	t.Setenv("XDG_STATE_HOME", state)

	j := FromMap(nil).Journal()
	assert.False(t, j.Enabled)
	assert.Equal(t, filepath.Join(state, "taphold", "journal.db"), j.Path)

	t.Setenv("TAPHOLD_TEST_DIR", "/srv/kb")
	j = FromMap(map[string]any{"journal": map[string]any{"path": "$TAPHOLD_TEST_DIR/j.db"}}).Journal()
	assert.Equal(t, "/srv/kb/j.db", j.Path)
}

func TestExpandPathHome(t *testing.T) {
	t.Setenv("HOME", "/home/kb")
	assert.Equal(t, "/home/kb/keymaps/kyria.yaml", expandPath("~/keymaps/kyria.yaml"))
	assert.Equal(t, "", expandPath(""))
	assert.Equal(t, "/abs", expandPath("/abs"))
}

func TestSourceMap(t *testing.T) {
	cfg := FromMap(map[string]any{
		"source": map[string]any{
			"kind": "script",
			"map":  map[string]any{"KEY_A": "r1c1"},
		},
	})
	src := cfg.Source()
	assert.Equal(t, "script", src.Kind)
	assert.Equal(t, map[string]string{"KEY_A": "r1c1"}, src.Map)

	bad := FromMap(map[string]any{"source": map[string]any{"map": "KEY_A=r1c1"}})
	assert.Nil(t, bad.Source().Map)
	require.Error(t, bad.Validate())
}

func TestStatusAndScan(t *testing.T) {
	cfg := FromMap(map[string]any{
		"status": map[string]any{"enabled": true, "interval": int64(50)},
		"scan":   map[string]any{"interval": "2ms"},
	})
	assert.Equal(t, StatusConfig{Enabled: true, Interval: 50 * time.Millisecond}, cfg.Status())
	assert.Equal(t, 2*time.Millisecond, cfg.Scan().Interval)
	assert.NoError(t, cfg.Validate())

	cfg = FromMap(map[string]any{"status": map[string]any{"enabled": true, "interval": "0s"}})
	assert.ErrorIs(t, cfg.Validate(), ErrValidationFailed)
}

func TestMousekeyOverrides(t *testing.T) {
	cfg := FromMap(map[string]any{"mousekey": map[string]any{"max_speed": int64(10), "interval": "20ms"}})
	mc := cfg.Mousekey()
	assert.Equal(t, 10, mc.MaxSpeed)
	assert.Equal(t, 20*time.Millisecond, mc.Interval)
	assert.Equal(t, 40, mc.TimeToMax)
}
