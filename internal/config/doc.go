// Package config loads the taphold configuration.
//
// Configuration is organized in layers with higher layers overriding lower:
//
//	┌─────────────────────────────┐
//	│  3. Environment (TAPHOLD_*) │  ← Highest priority
//	├─────────────────────────────┤
//	│  2. Config file (TOML/Lua)  │  ← ~/.config/taphold/config.toml
//	├─────────────────────────────┤
//	│  1. Built-in Defaults       │  ← Lowest priority
//	└─────────────────────────────┘
//
// # Sub-packages
//
//   - loader: TOML, Lua and environment loaders, DeepMerge
//   - watcher: fsnotify change detection
//
// # Configuration Files
//
//	[timing]
//	base_term = "200ms"
//	preset = "kyria"
//
//	[[timing.keys]]
//	key = "r1c3"
//	tapping_term = "170ms"
//	ignore_interrupt = true
//
//	[source]
//	device = "/dev/input/by-id/usb-kbd-event-kbd"
//	grab = true
//
//	[hid]
//	device = "/dev/hidg0"
//
// Per-key timing may also be written as tables keyed by position:
//
//	[timing.keys.r3c6]
//	tapping_term = 220
//	force_hold = false
//
// # Usage
//
//	cfg, err := config.Load(path)
//	if err != nil {
//	    return err
//	}
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
//	km, err := cfg.Keymap().Load()
//	table, err := cfg.Timing().Table(km)
//
// The policy table is built once; file changes seen by the watcher are
// reported as requiring a restart.
package config
