package config

// Section accessors return snapshot structs. Malformed values fall back
// to the default and are reported by Validate.

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dshills/taphold/internal/hid"
	"github.com/dshills/taphold/internal/input/key"
	"github.com/dshills/taphold/internal/input/keymap"
	"github.com/dshills/taphold/internal/timing"
)

// LoggingConfig configures the logger.
type LoggingConfig struct {
	// Level is a zerolog level name ("trace" … "disabled").
	Level string
	// Format is "console", "json" or "auto" (console on a terminal).
	Format string
	// TimeFormat is the console timestamp layout.
	TimeFormat string
}

// TimingConfig is the configuration surface of the policy table.
type TimingConfig struct {
	// BaseTerm is the tapping term of keys without an entry.
	BaseTerm time.Duration
	// Preset seeds the entries: "kyria" or "none".
	Preset string
	// Keys are per-key overrides, applied over the preset.
	Keys map[key.Position]timing.Entry
}

// KeymapConfig selects the keymap.
type KeymapConfig struct {
	// Name of a built-in keymap, used when File is empty.
	Name string
	// File is a YAML or JSON keymap file.
	File string
}

// ScanConfig configures the event loop.
type ScanConfig struct {
	// Interval between loop iterations when no event arrives.
	Interval time.Duration
}

// HIDConfig configures the report writer.
type HIDConfig struct {
	// Device is the HID gadget device; empty writes nothing.
	Device string
	// LEDs is where host LED output reports are read; empty uses Device.
	LEDs string
}

// JournalConfig configures session recording.
type JournalConfig struct {
	Enabled bool
	Path    string
}

// SourceConfig selects the event source.
type SourceConfig struct {
	// Kind is "evdev" or "script".
	Kind string
	// Device is the evdev input device.
	Device string
	// Grab opens the device exclusively.
	Grab bool
	// Script is a sequence file played by the script source.
	Script string
	// Map overrides key name to position pairs; nil uses the default map.
	Map map[string]string
}

// StatusConfig configures the terminal status view.
type StatusConfig struct {
	Enabled  bool
	Interval time.Duration
}

// Logging returns the logging section.
func (c *Config) Logging() LoggingConfig {
	return LoggingConfig{
		Level:      c.getStringOr("logging.level", "info"),
		Format:     c.getStringOr("logging.format", "auto"),
		TimeFormat: c.getStringOr("logging.time_format", "15:04:05.000"),
	}
}

// Timing returns the timing section. Malformed key entries are recorded
// and skipped.
func (c *Config) Timing() TimingConfig {
	t := TimingConfig{
		BaseTerm: c.getDurationOr("timing.base_term", timing.BaseTerm),
		Preset:   c.getStringOr("timing.preset", "kyria"),
		Keys:     make(map[key.Position]timing.Entry),
	}

	raw, ok := c.Get("timing.keys")
	if !ok {
		return t
	}

	add := func(path string, pos string, fields map[string]any) {
		p, err := key.ParsePosition(pos)
		if err != nil {
			c.recordConfigError(path, &ValidationError{Path: path, Message: err.Error(), Value: pos})
			return
		}
		e, err := parseEntry(path, fields)
		if err != nil {
			c.recordConfigError(path, err)
			return
		}
		t.Keys[p] = t.Keys[p].Merge(e)
	}

	switch v := raw.(type) {
	case []any:
		// [[timing.keys]] key = "r1c3" ...
		for i, item := range v {
			path := fmt.Sprintf("timing.keys[%d]", i)
			fields, ok := item.(map[string]any)
			if !ok {
				c.recordConfigError(path, &TypeError{Path: path, Expected: "table", Actual: typeName(item)})
				continue
			}
			pos, _ := fields["key"].(string)
			add(path, pos, fields)
		}
	case map[string]any:
		// [timing.keys.r1c3] ...
		for pos, item := range v {
			path := "timing.keys." + pos
			fields, ok := item.(map[string]any)
			if !ok {
				c.recordConfigError(path, &TypeError{Path: path, Expected: "table", Actual: typeName(item)})
				continue
			}
			add(path, pos, fields)
		}
	default:
		c.recordConfigError("timing.keys", &TypeError{Path: "timing.keys", Expected: "array or table", Actual: typeName(raw)})
	}
	return t
}

func parseEntry(path string, fields map[string]any) (timing.Entry, error) {
	var e timing.Entry
	for name, v := range fields {
		switch name {
		case "key":
		case "tapping_term":
			d, err := toDuration(path+".tapping_term", v)
			if err != nil {
				return e, err
			}
			e.TappingTerm = timing.Term(d)
		case "force_hold", "ignore_interrupt":
			b, ok := v.(bool)
			if !ok {
				return e, &TypeError{Path: path + "." + name, Expected: "bool", Actual: typeName(v)}
			}
			if name == "force_hold" {
				e.ForceHold = timing.Bool(b)
			} else {
				e.IgnoreInterrupt = timing.Bool(b)
			}
		default:
			return e, &ValidationError{Path: path, Message: "unknown field", Value: name}
		}
	}
	return e, nil
}

// Entries returns the preset entries overlaid with the configured keys.
func (t TimingConfig) Entries() (map[key.Position]timing.Entry, error) {
	var entries map[key.Position]timing.Entry
	switch t.Preset {
	case "kyria":
		entries = timing.KyriaEntries()
	case "none", "":
		entries = make(map[key.Position]timing.Entry)
	default:
		return nil, &ValidationError{Path: "timing.preset", Message: "unknown preset", Value: t.Preset}
	}
	for p, e := range t.Keys {
		entries[p] = entries[p].Merge(e)
	}
	return entries, nil
}

// Table builds the policy table and validates it against km.
func (t TimingConfig) Table(km *keymap.Keymap) (*timing.Table, error) {
	entries, err := t.Entries()
	if err != nil {
		return nil, err
	}
	table, err := timing.NewTable(t.BaseTerm, entries)
	if err != nil {
		return nil, err
	}
	if err := table.Validate(km); err != nil {
		return nil, err
	}
	return table, nil
}

// Keymap returns the keymap section.
func (c *Config) Keymap() KeymapConfig {
	return KeymapConfig{
		Name: c.getStringOr("keymap.name", keymap.KyriaName),
		File: expandPath(c.getStringOr("keymap.file", "")),
	}
}

// Load returns the selected keymap, validated.
func (k KeymapConfig) Load() (*keymap.Keymap, error) {
	var (
		km  *keymap.Keymap
		err error
	)
	if k.File != "" {
		km, err = keymap.NewLoader().LoadFile(k.File)
	} else {
		reg := keymap.NewRegistry()
		if err := keymap.LoadDefaults(reg); err != nil {
			return nil, err
		}
		km, err = reg.Get(k.Name)
	}
	if err != nil {
		return nil, err
	}
	if err := km.Validate(); err != nil {
		return nil, err
	}
	return km, nil
}

// Scan returns the scan section.
func (c *Config) Scan() ScanConfig {
	return ScanConfig{Interval: c.getDurationOr("scan.interval", time.Millisecond)}
}

// HID returns the hid section.
func (c *Config) HID() HIDConfig {
	h := HIDConfig{
		Device: expandPath(c.getStringOr("hid.device", "")),
		LEDs:   expandPath(c.getStringOr("hid.leds", "")),
	}
	if h.LEDs == "" {
		h.LEDs = h.Device
	}
	return h
}

// Mousekey returns the mouse key acceleration settings.
func (c *Config) Mousekey() hid.MouseConfig {
	d := hid.DefaultMouseConfig()
	return hid.MouseConfig{
		Interval:       c.getDurationOr("mousekey.interval", d.Interval),
		Delay:          c.getDurationOr("mousekey.delay", d.Delay),
		MaxSpeed:       c.getIntOr("mousekey.max_speed", d.MaxSpeed),
		TimeToMax:      c.getIntOr("mousekey.time_to_max", d.TimeToMax),
		WheelInterval:  c.getDurationOr("mousekey.wheel_interval", d.WheelInterval),
		WheelDelay:     c.getDurationOr("mousekey.wheel_delay", d.WheelDelay),
		WheelMaxSpeed:  c.getIntOr("mousekey.wheel_max_speed", d.WheelMaxSpeed),
		WheelTimeToMax: c.getIntOr("mousekey.wheel_time_to_max", d.WheelTimeToMax),
	}
}

// Journal returns the journal section. An empty path defaults to the
// user state directory.
func (c *Config) Journal() JournalConfig {
	j := JournalConfig{
		Enabled: c.getBoolOr("journal.enabled", false),
		Path:    expandPath(c.getStringOr("journal.path", "")),
	}
	if j.Path == "" {
		j.Path = DefaultJournalPath()
	}
	return j
}

// DefaultJournalPath returns the journal location under the user state
// directory.
func DefaultJournalPath() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "taphold", "journal.db")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "state", "taphold", "journal.db")
}

// Source returns the source section.
func (c *Config) Source() SourceConfig {
	s := SourceConfig{
		Kind:   c.getStringOr("source.kind", "evdev"),
		Device: expandPath(c.getStringOr("source.device", "")),
		Grab:   c.getBoolOr("source.grab", true),
		Script: expandPath(c.getStringOr("source.script", "")),
	}
	if _, ok := c.Get("source.map"); ok {
		m, err := c.GetStringMap("source.map")
		if err != nil {
			c.recordConfigError("source.map", err)
		} else {
			s.Map = m
		}
	}
	return s
}

// Status returns the status section.
func (c *Config) Status() StatusConfig {
	return StatusConfig{
		Enabled:  c.getBoolOr("status.enabled", false),
		Interval: c.getDurationOr("status.interval", 100*time.Millisecond),
	}
}

// Validate reads every section and reports malformed or out-of-range
// values. Unknown sections are rejected.
func (c *Config) Validate() error {
	var errs []error

	c.mu.RLock()
	var unknown []string
	known := Defaults()
	for section := range c.data {
		if _, ok := known[section]; !ok {
			unknown = append(unknown, section)
		}
	}
	c.mu.RUnlock()
	sort.Strings(unknown)
	for _, s := range unknown {
		errs = append(errs, &ValidationError{Path: s, Message: "unknown section", Value: s})
	}

	lc := c.Logging()
	switch strings.ToLower(lc.Format) {
	case "auto", "console", "json":
	default:
		errs = append(errs, &ValidationError{Path: "logging.format", Message: "must be auto, console or json", Value: lc.Format})
	}

	tc := c.Timing()
	if tc.BaseTerm <= 0 {
		errs = append(errs, &ValidationError{Path: "timing.base_term", Message: "must be positive", Value: tc.BaseTerm})
	}
	if _, err := tc.Entries(); err != nil {
		errs = append(errs, err)
	}

	if sc := c.Scan(); sc.Interval <= 0 || sc.Interval > 100*time.Millisecond {
		errs = append(errs, &ValidationError{Path: "scan.interval", Message: "must be within (0, 100ms]", Value: sc.Interval})
	}

	mc := c.Mousekey()
	for _, f := range []struct {
		path string
		v    int
	}{
		{"mousekey.max_speed", mc.MaxSpeed},
		{"mousekey.time_to_max", mc.TimeToMax},
		{"mousekey.wheel_max_speed", mc.WheelMaxSpeed},
		{"mousekey.wheel_time_to_max", mc.WheelTimeToMax},
	} {
		if f.v <= 0 {
			errs = append(errs, &ValidationError{Path: f.path, Message: "must be positive", Value: f.v})
		}
	}
	if mc.Interval <= 0 || mc.WheelInterval <= 0 {
		errs = append(errs, &ValidationError{Path: "mousekey", Message: "intervals must be positive", Value: mc.Interval})
	}

	src := c.Source()
	switch src.Kind {
	case "evdev", "script":
	default:
		errs = append(errs, &ValidationError{Path: "source.kind", Message: "must be evdev or script", Value: src.Kind})
	}

	if st := c.Status(); st.Enabled && st.Interval <= 0 {
		errs = append(errs, &ValidationError{Path: "status.interval", Message: "must be positive", Value: st.Interval})
	}

	_ = c.Keymap()
	_ = c.HID()
	_ = c.Journal()

	errs = append(errs, c.ConfigErrors()...)
	return errors.Join(errs...)
}

// expandPath expands a leading "~/" and environment variables.
func expandPath(p string) string {
	if p == "" {
		return p
	}
	p = os.ExpandEnv(p)
	if strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, p[2:])
		}
	}
	return p
}
