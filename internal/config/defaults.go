package config

// Defaults returns the built-in configuration.
func Defaults() map[string]any {
	return map[string]any{
		"logging": map[string]any{
			"level":       "info",
			"format":      "auto",
			"time_format": "15:04:05.000",
		},
		"timing": map[string]any{
			"base_term": "200ms",
			"preset":    "kyria",
		},
		"keymap": map[string]any{
			"name": "kyria",
			"file": "",
		},
		"scan": map[string]any{
			"interval": "1ms",
		},
		"hid": map[string]any{
			"device": "",
			"leds":   "",
		},
		"mousekey": map[string]any{
			"interval":          "16ms",
			"delay":             "100ms",
			"max_speed":         int64(7),
			"time_to_max":       int64(40),
			"wheel_interval":    "50ms",
			"wheel_delay":       "100ms",
			"wheel_max_speed":   int64(7),
			"wheel_time_to_max": int64(40),
		},
		"journal": map[string]any{
			"enabled": false,
			"path":    "",
		},
		"source": map[string]any{
			"kind":   "evdev",
			"device": "",
			"grab":   true,
			"script": "",
		},
		"status": map[string]any{
			"enabled":  false,
			"interval": "100ms",
		},
	}
}
