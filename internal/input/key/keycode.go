package key

import (
	"fmt"
	"strings"
)

// Keycode represents a logical key.
// Values in the keyboard range are HID keyboard page usage IDs, so a
// Keycode can be copied into a boot keyboard report unchanged.
type Keycode uint16

const (
	// KeyNone represents no key (XXX in a keymap).
	KeyNone Keycode = 0x00

	// KeyTransparent falls through to the next lower active layer.
	KeyTransparent Keycode = 0x01

	// Letters
	KeyA Keycode = 0x04 + iota - 2
	KeyB
	KeyC
	KeyD
	KeyE
	KeyF
	KeyG
	KeyH
	KeyI
	KeyJ
	KeyK
	KeyL
	KeyM
	KeyN
	KeyO
	KeyP
	KeyQ
	KeyR
	KeyS
	KeyT
	KeyU
	KeyV
	KeyW
	KeyX
	KeyY
	KeyZ

	// Digits
	Key1
	Key2
	Key3
	Key4
	Key5
	Key6
	Key7
	Key8
	Key9
	Key0

	// Control keys
	KeyEnter
	KeyEscape
	KeyBackspace
	KeyTab
	KeySpace
	KeyMinus
	KeyEqual
	KeyLeftBracket
	KeyRightBracket
	KeyBackslash
	KeyNonUSHash
	KeySemicolon
	KeyQuote
	KeyGrave
	KeyComma
	KeyDot
	KeySlash
	KeyCapsLock

	// Function keys
	KeyF1
	KeyF2
	KeyF3
	KeyF4
	KeyF5
	KeyF6
	KeyF7
	KeyF8
	KeyF9
	KeyF10
	KeyF11
	KeyF12

	KeyPrintScreen
	KeyScrollLock
	KeyPause
	KeyInsert
	KeyHome
	KeyPageUp
	KeyDelete
	KeyEnd
	KeyPageDown
	KeyRight
	KeyLeft
	KeyDown
	KeyUp
	KeyNumLock
)

// Consumer (media) keys. These do not fit the keyboard report and are sent
// as consumer page usages by the HID layer.
const (
	KeyMute Keycode = 0xA8 + iota
	KeyVolumeUp
	KeyVolumeDown
	KeyMediaNext
	KeyMediaPrev
	KeyMediaStop
	KeyMediaPlay
)

// Modifier keycodes (HID 0xE0-0xE7).
const (
	KeyLCtrl Keycode = 0xE0 + iota
	KeyLShift
	KeyLAlt
	KeyLGui
	KeyRCtrl
	KeyRShift
	KeyRAlt
	KeyRGui
)

// Mouse keys.
const (
	KeyMouseUp Keycode = 0xF0 + iota
	KeyMouseDown
	KeyMouseLeft
	KeyMouseRight
	KeyMouseBtn1
	KeyMouseBtn2
	KeyMouseBtn3
	KeyMouseBtn4
	KeyMouseBtn5
	KeyWheelUp
	KeyWheelDown
	KeyWheelLeft
	KeyWheelRight
)

var keycodeNames = map[Keycode]string{
	KeyNone:         "NO",
	KeyTransparent:  "TRNS",
	KeyEnter:        "Enter",
	KeyEscape:       "Esc",
	KeyBackspace:    "Bspc",
	KeyTab:          "Tab",
	KeySpace:        "Space",
	KeyMinus:        "-",
	KeyEqual:        "=",
	KeyLeftBracket:  "[",
	KeyRightBracket: "]",
	KeyBackslash:    "\\",
	KeyNonUSHash:    "NUHS",
	KeySemicolon:    ";",
	KeyQuote:        "'",
	KeyGrave:        "`",
	KeyComma:        ",",
	KeyDot:          ".",
	KeySlash:        "/",
	KeyCapsLock:     "CapsLock",
	KeyPrintScreen:  "PrintScreen",
	KeyScrollLock:   "ScrollLock",
	KeyPause:        "Pause",
	KeyInsert:       "Insert",
	KeyHome:         "Home",
	KeyPageUp:       "PageUp",
	KeyDelete:       "Delete",
	KeyEnd:          "End",
	KeyPageDown:     "PageDown",
	KeyRight:        "Right",
	KeyLeft:         "Left",
	KeyDown:         "Down",
	KeyUp:           "Up",
	KeyNumLock:      "NumLock",
	KeyMute:         "Mute",
	KeyVolumeUp:     "VolUp",
	KeyVolumeDown:   "VolDown",
	KeyMediaNext:    "Next",
	KeyMediaPrev:    "Prev",
	KeyMediaStop:    "Stop",
	KeyMediaPlay:    "Play",
	KeyLCtrl:        "LCtrl",
	KeyLShift:       "LShift",
	KeyLAlt:         "LAlt",
	KeyLGui:         "LGui",
	KeyRCtrl:        "RCtrl",
	KeyRShift:       "RShift",
	KeyRAlt:         "RAlt",
	KeyRGui:         "RGui",
	KeyMouseUp:      "MsUp",
	KeyMouseDown:    "MsDown",
	KeyMouseLeft:    "MsLeft",
	KeyMouseRight:   "MsRight",
	KeyMouseBtn1:    "Btn1",
	KeyMouseBtn2:    "Btn2",
	KeyMouseBtn3:    "Btn3",
	KeyMouseBtn4:    "Btn4",
	KeyMouseBtn5:    "Btn5",
	KeyWheelUp:      "WhUp",
	KeyWheelDown:    "WhDown",
	KeyWheelLeft:    "WhLeft",
	KeyWheelRight:   "WhRight",
}

// keycodeAliases maps additional lowercase names to keycodes.
var keycodeAliases = map[string]Keycode{
	"cr":          KeyEnter,
	"return":      KeyEnter,
	"ent":         KeyEnter,
	"escape":      KeyEscape,
	"bs":          KeyBackspace,
	"backspace":   KeyBackspace,
	"spc":         KeySpace,
	"del":         KeyDelete,
	"ins":         KeyInsert,
	"pgup":        KeyPageUp,
	"pgdn":        KeyPageDown,
	"caps":        KeyCapsLock,
	"mply":        KeyMediaPlay,
	"mnxt":        KeyMediaNext,
	"mprv":        KeyMediaPrev,
	"volu":        KeyVolumeUp,
	"vold":        KeyVolumeDown,
	"bslash":      KeyBackslash,
	"lsft":        KeyLShift,
	"rsft":        KeyRShift,
	"lctl":        KeyLCtrl,
	"rctl":        KeyRCtrl,
	"lcmd":        KeyLGui,
	"rcmd":        KeyRGui,
	"lopt":        KeyLAlt,
	"ropt":        KeyRAlt,
	"lalt":        KeyLAlt,
	"ralt":        KeyRAlt,
	"lgui":        KeyLGui,
	"rgui":        KeyRGui,
	"mouseup":     KeyMouseUp,
	"mousedown":   KeyMouseDown,
	"mouseleft":   KeyMouseLeft,
	"mouseright":  KeyMouseRight,
	"lclick":      KeyMouseBtn1,
	"rclick":      KeyMouseBtn2,
	"mclick":      KeyMouseBtn3,
	"printscreen": KeyPrintScreen,
}

var keycodeByName map[string]Keycode

func init() {
	keycodeByName = make(map[string]Keycode, len(keycodeNames)+len(keycodeAliases)+36)
	for k, name := range keycodeNames {
		keycodeByName[strings.ToLower(name)] = k
	}
	for name, k := range keycodeAliases {
		keycodeByName[name] = k
	}
	for k := KeyA; k <= KeyZ; k++ {
		keycodeByName[string(rune('a'+k-KeyA))] = k
	}
	for k := Key1; k <= Key9; k++ {
		keycodeByName[string(rune('1'+k-Key1))] = k
	}
	keycodeByName["0"] = Key0
	for k := KeyF1; k <= KeyF12; k++ {
		keycodeByName[fmt.Sprintf("f%d", k-KeyF1+1)] = k
	}
}

// String returns a human-readable name for the keycode.
func (k Keycode) String() string {
	switch {
	case k >= KeyA && k <= KeyZ:
		return string(rune('A' + k - KeyA))
	case k >= Key1 && k <= Key9:
		return string(rune('1' + k - Key1))
	case k == Key0:
		return "0"
	case k >= KeyF1 && k <= KeyF12:
		return fmt.Sprintf("F%d", k-KeyF1+1)
	}
	if name, ok := keycodeNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Keycode(0x%02X)", uint16(k))
}

// IsModifier returns true for the eight modifier keycodes.
func (k Keycode) IsModifier() bool {
	return k >= KeyLCtrl && k <= KeyRGui
}

// IsConsumer returns true for media keys sent on the consumer page.
func (k Keycode) IsConsumer() bool {
	return k >= KeyMute && k <= KeyMediaPlay
}

// IsMouse returns true for mouse movement, button and wheel keys.
func (k Keycode) IsMouse() bool {
	return k >= KeyMouseUp && k <= KeyWheelRight
}

// IsBasic returns true if the keycode fits a boot keyboard report slot.
func (k Keycode) IsBasic() bool {
	return k >= KeyA && k <= KeyNumLock
}

// ModifierBit returns the modifier bit for a modifier keycode, or ModNone.
func (k Keycode) ModifierBit() Modifier {
	if !k.IsModifier() {
		return ModNone
	}
	return Modifier(1) << (k - KeyLCtrl)
}

// KeycodeFromName returns the keycode for a name (case-insensitive).
// Returns KeyNone and false if the name is not recognized.
func KeycodeFromName(name string) (Keycode, bool) {
	k, ok := keycodeByName[strings.ToLower(strings.TrimSpace(name))]
	return k, ok
}
