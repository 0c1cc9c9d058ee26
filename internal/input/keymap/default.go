package keymap

import "fmt"

// Kyria layer indexes of the built-in keymap.
const (
	LayerColemak uint8 = iota
	LayerNum
	LayerNav
	LayerSym
	LayerFn
)

// KyriaName is the registry name of the built-in keymap.
const KyriaName = "kyria"

// kyriaLayout lists the populated columns of each row: two 6-column
// halves, a 16-column bottom row with the four inner keys, and ten thumbs.
var kyriaLayout = [][]int{
	{0, 1, 2, 3, 4, 5, 10, 11, 12, 13, 14, 15},
	{0, 1, 2, 3, 4, 5, 10, 11, 12, 13, 14, 15},
	{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15},
	{3, 4, 5, 6, 7, 8, 9, 10, 11, 12},
}

// LoadDefaults registers the built-in keymaps.
func LoadDefaults(r *Registry) error {
	return r.Register(DefaultKyria())
}

// DefaultKyria returns the five-layer Colemak keymap with home-row
// mods, thumb layer-taps and a oneshot shift on the NUM thumb.
// RGB keys are left empty.
func DefaultKyria() *Keymap {
	file := keymapFile{
		Name:   KyriaName,
		Layout: kyriaLayout,
		Layers: []layerFile{
			{
				Name: "colemak",
				Rows: [][]string{
					{"XXX", "q", "w", "f", "p", "g", "j", "l", "u", "y", ";", "XXX"},
					{"XXX", "MT(LCtrl, a)", "MT(LAlt, r)", "MT(LShift, s)", "MT(LGui, t)", "MT(Meh, d)",
						"MT(Meh, h)", "MT(RGui, n)", "MT(RShift, e)", "MT(LAlt, i)", "MT(RCtrl, o)", "'"},
					{"XXX", "z", "x", "c", "v", "b", "Shift+Cmd+3", "Ctrl+Cmd+q",
						"Ctrl+Cmd+Space", "Play", "k", "m", ",", ".", "/", "XXX"},
					{"XXX", "XXX", "Esc", "LT(nav, Space)", "LT(fn, Bspc)",
						"LT(sym, Enter)", "LT(num, OSM(LShift))", "Tab", "XXX", "XXX"},
				},
			},
			{
				Name: "num",
				Rows: [][]string{
					{"___", "`", "7", "8", "9", "*", "___", "___", "___", "___", "___", "___"},
					{"___", "%", "4", "5", "6", "_", "Meh", "RGui", "RShift", "LAlt", "RCtrl", "___"},
					{"___", "\\", "1", "2", "3", "+", "___", "___", "___", "___", "___", "___", "___", "___", "___", "___"},
					{"___", "___", "___", "0", "'", "___", "___", "___", "___", "___"},
				},
			},
			{
				Name: "nav",
				Rows: [][]string{
					{"___", "___", "___", "___", "___", "___", "Mute", "___", "___", "___", "___", "___"},
					{"___", "LCtrl", "LAlt", "LShift", "LGui", "Meh", "VolUp", "Left", "Down", "Up", "Right", "___"},
					{"___", "___", "___", "___", "___", "___", "___", "___", "___", "___", "VolDown", "Prev", "Play", "Next", "___", "___"},
					{"___", "___", "___", "___", "___", "___", "___", "___", "___", "___"},
				},
			},
			{
				Name: "sym",
				Rows: [][]string{
					{"___", "^", "$", "[", "]", "|", "___", "___", "___", "___", "___", "___"},
					{"___", "!", "=", "(", ")", "~", "Meh", "RGui", "RShift", "LAlt", "RCtrl", "___"},
					{"___", "&", "@", "{", "}", "#", "___", "___", "___", "___", "___", "___", "___", "___", "___", "___"},
					{"___", "___", "___", "-", "\"", "___", "___", "___", "___", "___"},
				},
			},
			{
				Name: "fn",
				Rows: [][]string{
					{"___", "F1", "F2", "F3", "F4", "F5", "___", "___", "Cmd+Down", "Cmd+Up", "___", "___"},
					{"___", "XXX", "XXX", "XXX", "XXX", "XXX", "___", "MsLeft", "MsDown", "MsUp", "MsRight", "___"},
					{"___", "___", "XXX", "XXX", "XXX", "XXX", "___", "___", "___", "___", "___", "WhRight", "WhUp", "WhDown", "WhLeft", "___"},
					{"___", "___", "___", "___", "___", "Btn2", "Btn1", "Btn3", "___", "___"},
				},
			},
		},
	}

	km, err := file.build()
	if err != nil {
		panic(fmt.Sprintf("built-in keymap: %v", err))
	}
	return km
}
