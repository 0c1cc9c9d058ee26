package hid

import (
	"encoding/binary"

	"github.com/dshills/taphold/internal/input/key"
)

// Report IDs.
const (
	ReportKeyboard uint8 = 0x01
	ReportConsumer uint8 = 0x02
	ReportMouse    uint8 = 0x03
)

// KeySlots is the number of simultaneous non-modifier keys in a keyboard
// report.
const KeySlots = 6

// Descriptor is the HID report descriptor for the three reports.
var Descriptor = []byte{
	0x05, 0x01, // Usage Page (Generic Desktop Ctrls)
	0x09, 0x06, // Usage (Keyboard)
	0xa1, 0x01, // Collection (Application)
	0x85, 0x01, // Report ID (1)
	0x95, 0x08, // Report Count (8)
	0x75, 0x01, // Report Size (1)
	0x05, 0x07, // Usage Page (Kbrd/Keypad)
	0x19, 0xe0, // Usage Minimum (0xE0)
	0x29, 0xe7, // Usage Maximum (0xE7)
	0x15, 0x00, // Logical Minimum (0)
	0x25, 0x01, // Logical Maximum (1)
	0x81, 0x02, // Input (Data,Var,Abs)
	0x95, 0x05, // Report Count (5)
	0x75, 0x01, // Report Size (1)
	0x05, 0x08, // Usage Page (LEDs)
	0x19, 0x01, // Usage Minimum (Num Lock)
	0x29, 0x05, // Usage Maximum (Kana)
	0x91, 0x02, // Output (Data,Var,Abs)
	0x95, 0x01, // Report Count (1)
	0x75, 0x03, // Report Size (3)
	0x91, 0x01, // Output (Const)
	0x95, 0x06, // Report Count (6)
	0x75, 0x08, // Report Size (8)
	0x15, 0x00, // Logical Minimum (0)
	0x25, 0xff, // Logical Maximum (255)
	0x05, 0x07, // Usage Page (Kbrd/Keypad)
	0x19, 0x00, // Usage Minimum (0x00)
	0x29, 0xff, // Usage Maximum (0xFF)
	0x81, 0x00, // Input (Data,Array,Abs)
	0xc0, // End Collection

	0x05, 0x0c, // Usage Page (Consumer)
	0x09, 0x01, // Usage (Consumer Control)
	0xa1, 0x01, // Collection (Application)
	0x85, 0x02, // Report ID (2)
	0x95, 0x01, // Report Count (1)
	0x75, 0x10, // Report Size (16)
	0x15, 0x01, // Logical Minimum (1)
	0x26, 0x9c, 0x02, // Logical Maximum (668)
	0x19, 0x01, // Usage Minimum (Consumer Control)
	0x2a, 0x9c, 0x02, // Usage Maximum (AC Distribute Vertically)
	0x81, 0x00, // Input (Data,Array,Abs)
	0xc0, // End Collection

	0x05, 0x01, // Usage Page (Generic Desktop Ctrls)
	0x09, 0x02, // Usage (Mouse)
	0xa1, 0x01, // Collection (Application)
	0x85, 0x03, // Report ID (3)
	0x09, 0x01, // Usage (Pointer)
	0xa1, 0x00, // Collection (Physical)
	0x05, 0x09, // Usage Page (Button)
	0x19, 0x01, // Usage Minimum (1)
	0x29, 0x05, // Usage Maximum (5)
	0x15, 0x00, // Logical Minimum (0)
	0x25, 0x01, // Logical Maximum (1)
	0x95, 0x05, // Report Count (5)
	0x75, 0x01, // Report Size (1)
	0x81, 0x02, // Input (Data,Var,Abs)
	0x95, 0x01, // Report Count (1)
	0x75, 0x03, // Report Size (3)
	0x81, 0x01, // Input (Const)
	0x05, 0x01, // Usage Page (Generic Desktop Ctrls)
	0x09, 0x30, // Usage (X)
	0x09, 0x31, // Usage (Y)
	0x09, 0x38, // Usage (Wheel)
	0x15, 0x81, // Logical Minimum (-127)
	0x25, 0x7f, // Logical Maximum (127)
	0x75, 0x08, // Report Size (8)
	0x95, 0x03, // Report Count (3)
	0x81, 0x06, // Input (Data,Var,Rel)
	0x05, 0x0c, // Usage Page (Consumer)
	0x0a, 0x38, 0x02, // Usage (AC Pan)
	0x95, 0x01, // Report Count (1)
	0x81, 0x06, // Input (Data,Var,Rel)
	0xc0, // End Collection
	0xc0, // End Collection
}

// KeyboardReport is the boot-compatible keyboard state.
type KeyboardReport struct {
	Mods key.Modifier
	Keys [KeySlots]uint8
}

// Bytes encodes the report with its ID.
func (r KeyboardReport) Bytes() []byte {
	b := make([]byte, 0, 2+KeySlots)
	b = append(b, ReportKeyboard, uint8(r.Mods))
	return append(b, r.Keys[:]...)
}

// ConsumerReport holds the one active consumer usage, or zero.
type ConsumerReport struct {
	Usage uint16
}

// Bytes encodes the report with its ID.
func (r ConsumerReport) Bytes() []byte {
	b := make([]byte, 3)
	b[0] = ReportConsumer
	binary.LittleEndian.PutUint16(b[1:], r.Usage)
	return b
}

// MouseReport is one relative mouse update.
type MouseReport struct {
	Buttons uint8
	X, Y    int8
	Wheel   int8
	Pan     int8
}

// Bytes encodes the report with its ID.
func (r MouseReport) Bytes() []byte {
	return []byte{ReportMouse, r.Buttons, byte(r.X), byte(r.Y), byte(r.Wheel), byte(r.Pan)}
}

// IsZero reports whether the report moves nothing and presses nothing.
func (r MouseReport) IsZero() bool {
	return r == MouseReport{}
}

// Consumer page usages for the media keycodes.
var consumerUsages = map[key.Keycode]uint16{
	key.KeyMute:       0x00E2,
	key.KeyVolumeUp:   0x00E9,
	key.KeyVolumeDown: 0x00EA,
	key.KeyMediaNext:  0x00B5,
	key.KeyMediaPrev:  0x00B6,
	key.KeyMediaStop:  0x00B7,
	key.KeyMediaPlay:  0x00CD,
}

// ConsumerUsage returns the consumer page usage for a media keycode.
func ConsumerUsage(k key.Keycode) (uint16, bool) {
	u, ok := consumerUsages[k]
	return u, ok
}
