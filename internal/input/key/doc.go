// Package key provides the primitive input types of the keyboard core.
//
// This package defines the fundamental types for representing keyboard input:
//
//   - Keycode: a logical HID usage (letters, digits, modifiers, media, mouse)
//   - Modifier: the HID modifier byte as a bit set (LCtrl … RGui)
//   - Position: a physical key in the layout grid, the identity used by
//     every per-key table
//   - Event: one debounced press or release with its timestamp
//   - Sequence: an ordered list of events, used by scripts and journals
//
// # Key Specifications
//
// Key specifications can be written in multiple formats:
//
//   - Simple keys: "a", "A", "1", "%", "Enter", "Space", "F5"
//   - With modifiers: "Ctrl+Cmd+Q", "Shift+3"
//   - Vim-style: "<C-D-q>", "<S-Tab>", "<CR>", "<Esc>"
//
// Uppercase letters and shifted US ANSI symbols carry an implicit Shift.
//
// # Sequences
//
// Sequences use a compact text notation, one token per event:
//
//	+r1c3@0 -r1c3@150 +r3c6@200
//
// where "+" is a press, "-" a release and the number after "@" is the
// millisecond timestamp on the monotonic scan clock.
package key
