package config

import (
	"errors"
	"io/fs"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/taphold/internal/input/key"
	"github.com/dshills/taphold/internal/input/keymap"
	"github.com/dshills/taphold/internal/timing"
)

type memFS map[string]string

func (m memFS) ReadFile(path string) ([]byte, error) {
	s, ok := m[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return []byte(s), nil
}

func (m memFS) Stat(path string) (fs.FileInfo, error) {
	if _, ok := m[path]; !ok {
		return nil, fs.ErrNotExist
	}
	return nil, nil
}

func TestDefaults(t *testing.T) {
	cfg, err := Load("", WithFS(memFS{}), WithoutEnv())
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, []string{"defaults"}, cfg.Sources())
	assert.Equal(t, "info", cfg.Logging().Level)
	assert.Equal(t, timing.BaseTerm, cfg.Timing().BaseTerm)
	assert.Equal(t, time.Millisecond, cfg.Scan().Interval)
	assert.Equal(t, 7, cfg.Mousekey().MaxSpeed)
	assert.Equal(t, 16*time.Millisecond, cfg.Mousekey().Interval)
	assert.Equal(t, "evdev", cfg.Source().Kind)
	assert.True(t, cfg.Source().Grab)
	assert.Nil(t, cfg.Source().Map)
	assert.Equal(t, keymap.KyriaName, cfg.Keymap().Name)
}

func TestLoadTOML(t *testing.T) {
	fsys := memFS{"/etc/taphold.toml": `
[logging]
level = "debug"

[timing]
base_term = "180ms"

[[timing.keys]]
key = "r1c3"
tapping_term = "150ms"

[hid]
device = "/dev/hidg0"

[source.map]
KEY_Q = "r0c1"
`}
	cfg, err := Load("/etc/taphold.toml", WithFS(fsys), WithoutEnv())
	require.NoError(t, err)
	assert.Equal(t, "/etc/taphold.toml", cfg.Path())
	assert.Equal(t, []string{"defaults", "/etc/taphold.toml"}, cfg.Sources())

	assert.Equal(t, "debug", cfg.Logging().Level)
	tc := cfg.Timing()
	assert.Equal(t, 180*time.Millisecond, tc.BaseTerm)
	require.Contains(t, tc.Keys, key.Pos(1, 3))
	assert.Equal(t, 150*time.Millisecond, *tc.Keys[key.Pos(1, 3)].TappingTerm)

	h := cfg.HID()
	assert.Equal(t, "/dev/hidg0", h.Device)
	assert.Equal(t, "/dev/hidg0", h.LEDs)
	assert.Equal(t, map[string]string{"KEY_Q": "r0c1"}, cfg.Source().Map)
}

func TestLoadLua(t *testing.T) {
	fsys := memFS{"/c.lua": `
local thumbs = {}
for _, c in ipairs({6, 7, 8, 9}) do
  thumbs["r3c" .. c] = { tapping_term = 240, force_hold = false }
end
return { timing = { keys = thumbs } }
`}
	cfg, err := Load("/c.lua", WithFS(fsys), WithoutEnv())
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	tc := cfg.Timing()
	require.Len(t, tc.Keys, 4)
	e := tc.Keys[key.Pos(3, 7)]
	assert.Equal(t, 240*time.Millisecond, *e.TappingTerm)
	assert.False(t, *e.ForceHold)
	assert.Nil(t, e.IgnoreInterrupt)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load("/nope.toml", WithFS(memFS{}), WithoutEnv())
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestLoadParseError(t *testing.T) {
	_, err := Load("/bad.toml", WithFS(memFS{"/bad.toml": "[timing\n"}), WithoutEnv())
	var perr *ParseError
	assert.True(t, errors.As(err, &perr))
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("TAPHOLD_BASE_TERM", "210ms")
	t.Setenv("TAPHOLD_SOURCE_GRAB", "false")

	fsys := memFS{"/c.toml": "[timing]\nbase_term = \"180ms\"\n"}
	cfg, err := Load("/c.toml", WithFS(fsys))
	require.NoError(t, err)

	assert.Equal(t, 210*time.Millisecond, cfg.Timing().BaseTerm)
	assert.False(t, cfg.Source().Grab)
	assert.Contains(t, cfg.Sources(), "env")
}

func TestTimingTable(t *testing.T) {
	cfg := FromMap(map[string]any{
		"timing": map[string]any{
			"keys": map[string]any{
				"r1c3": map[string]any{"tapping_term": "160ms"},
				"r0c0": map[string]any{"ignore_interrupt": true},
			},
		},
	})
	require.NoError(t, cfg.Validate())

	km := keymap.DefaultKyria()
	table, err := cfg.Timing().Table(km)
	require.NoError(t, err)

	// Override merges over the preset: r1c3 keeps ignore_interrupt.
	p := table.Lookup(key.Pos(1, 3))
	assert.Equal(t, 160*time.Millisecond, p.TappingTerm)
	assert.True(t, p.IgnoreInterrupt)
	assert.True(t, p.ForceHold)

	assert.True(t, table.Lookup(key.Pos(0, 0)).IgnoreInterrupt)
	assert.Equal(t, 220*time.Millisecond, table.Lookup(key.Pos(3, 6)).TappingTerm)
	assert.Equal(t, timing.BaseTerm, table.Lookup(key.Pos(0, 3)).TappingTerm)
}

func TestTimingTableUnknownKey(t *testing.T) {
	cfg := FromMap(map[string]any{
		"timing": map[string]any{
			"keys": []any{map[string]any{"key": "r9c9", "tapping_term": "100ms"}},
		},
	})
	_, err := cfg.Timing().Table(keymap.DefaultKyria())
	assert.ErrorIs(t, err, timing.ErrUnknownKey)
}

func TestTimingTableNoPreset(t *testing.T) {
	cfg := FromMap(map[string]any{"timing": map[string]any{"preset": "none", "base_term": int64(250)}})
	table, err := cfg.Timing().Table(keymap.DefaultKyria())
	require.NoError(t, err)
	assert.Empty(t, table.Positions())
	assert.Equal(t, 250*time.Millisecond, table.Default().TappingTerm)
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name string
		data map[string]any
		path string
	}{
		{"unknown section", map[string]any{"bogus": map[string]any{}}, "bogus"},
		{"bad format", map[string]any{"logging": map[string]any{"format": "xml"}}, "logging.format"},
		{"bad duration", map[string]any{"timing": map[string]any{"base_term": "soon"}}, "timing.base_term"},
		{"zero term", map[string]any{"timing": map[string]any{"base_term": "0s"}}, "timing.base_term"},
		{"bad preset", map[string]any{"timing": map[string]any{"preset": "ergodox"}}, "timing.preset"},
		{"bad position", map[string]any{"timing": map[string]any{"keys": []any{map[string]any{"key": "x"}}}}, "timing.keys[0]"},
		{"unknown field", map[string]any{"timing": map[string]any{"keys": map[string]any{"r1c3": map[string]any{"term": "1ms"}}}}, "timing.keys.r1c3"},
		{"bad bool", map[string]any{"timing": map[string]any{"keys": map[string]any{"r1c3": map[string]any{"force_hold": "yes"}}}}, "timing.keys.r1c3.force_hold"},
		{"slow scan", map[string]any{"scan": map[string]any{"interval": "1s"}}, "scan.interval"},
		{"bad speed", map[string]any{"mousekey": map[string]any{"max_speed": int64(0)}}, "mousekey.max_speed"},
		{"bad kind", map[string]any{"source": map[string]any{"kind": "usb"}}, "source.kind"},
		{"bad map", map[string]any{"source": map[string]any{"map": map[string]any{"KEY_Q": int64(1)}}}, "source.map.KEY_Q"},
		{"wrong type", map[string]any{"journal": map[string]any{"enabled": "yes"}}, "journal.enabled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := FromMap(tt.data).Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.path)
		})
	}
}

func TestTypedGetters(t *testing.T) {
	cfg := FromMap(map[string]any{
		"scan": map[string]any{"interval": 2.5},
	})

	d, err := cfg.GetDuration("scan.interval")
	require.NoError(t, err)
	assert.Equal(t, 2500*time.Microsecond, d)

	_, err = cfg.GetString("scan.interval")
	assert.ErrorIs(t, err, ErrTypeMismatch)

	_, err = cfg.GetInt("scan.interval")
	assert.ErrorIs(t, err, ErrTypeMismatch)

	_, err = cfg.GetBool("scan.missing")
	assert.ErrorIs(t, err, ErrSettingNotFound)

	m := cfg.Merged()
	m["scan"] = nil
	v, ok := cfg.Get("scan.interval")
	assert.True(t, ok)
	assert.Equal(t, 2.5, v)
}

func TestOverridesWinOverEnv(t *testing.T) {
	t.Setenv("TAPHOLD_SOURCE_DEVICE", "/dev/input/event3")

	cfg, err := Load("", WithFS(memFS{}), WithOverrides(map[string]any{
		"source.device":  "/dev/input/event7",
		"status.enabled": true,
	}))
	require.NoError(t, err)

	assert.Equal(t, "/dev/input/event7", cfg.Source().Device)
	assert.True(t, cfg.Status().Enabled)
	assert.Equal(t, []string{"defaults", "env", "flags"}, cfg.Sources())
}
