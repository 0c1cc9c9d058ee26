package key

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		spec     string
		wantKey  Keycode
		wantMods Modifier
	}{
		{"a", KeyA, ModNone},
		{"A", KeyA, ModShift},
		{"1", Key1, ModNone},
		{"%", Key5, ModShift},
		{"(", Key9, ModShift},
		{"+", KeyEqual, ModShift},
		{"-", KeyMinus, ModNone},
		{"<", KeyComma, ModShift},
		{"Enter", KeyEnter, ModNone},
		{"esc", KeyEscape, ModNone},
		{"Bspc", KeyBackspace, ModNone},
		{"Space", KeySpace, ModNone},
		{"F5", KeyF5, ModNone},
		{"F12", KeyF12, ModNone},
		{"Play", KeyMediaPlay, ModNone},
		{"LShift", KeyLShift, ModNone},
		{"Ctrl+Cmd+Q", KeyQ, ModCtrl | ModGui},
		{"Shift+3", Key3, ModShift},
		{"Ctrl+Shift+Tab", KeyTab, ModCtrl | ModShift},
		{"Shift++", KeyEqual, ModShift},
		{"<C-D-q>", KeyQ, ModCtrl | ModGui},
		{"<S-Tab>", KeyTab, ModShift},
		{"<CR>", KeyEnter, ModNone},
		{"<Esc>", KeyEscape, ModNone},
		{"<->", KeyMinus, ModNone},
		{"<S-->", KeyMinus, ModShift},
		{"<C-S-->", KeyMinus, ModCtrl | ModShift},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			k, m, err := Parse(tt.spec)
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.spec, err)
			}
			if k != tt.wantKey {
				t.Errorf("Parse(%q) key = %v, want %v", tt.spec, k, tt.wantKey)
			}
			if m != tt.wantMods {
				t.Errorf("Parse(%q) mods = %v, want %v", tt.spec, m, tt.wantMods)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		spec    string
		wantErr error
	}{
		{"", ErrEmptySpec},
		{"   ", ErrEmptySpec},
		{"<C-a", ErrUnmatchedBracket},
		{"<>", ErrInvalidSpec},
		{"Bogus", ErrInvalidSpec},
		{"Foo+a", ErrInvalidSpec},
		{"<X-a>", ErrInvalidSpec},
		{"é", ErrInvalidSpec},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			_, _, err := Parse(tt.spec)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Parse(%q) error = %v, want %v", tt.spec, err, tt.wantErr)
			}
		})
	}
}

func TestMustParsePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustParse should panic on invalid spec")
		}
	}()
	MustParse("NotAKey")
}

func TestFormatSpecRoundTrip(t *testing.T) {
	cases := []struct {
		k Keycode
		m Modifier
	}{
		{KeyA, ModNone},
		{KeyQ, ModCtrl | ModGui},
		{KeyTab, ModShift},
		{KeyEnter, ModNone},
		{KeyF5, ModAlt},
		{KeyMinus, ModShift},
		{KeyBackslash, ModShift},
	}

	for _, c := range cases {
		spec := FormatSpec(c.k, c.m)
		k, m, err := Parse(spec)
		if err != nil {
			t.Fatalf("Parse(FormatSpec) %q error = %v", spec, err)
		}
		if k != c.k || m != c.m {
			t.Errorf("round trip %q = (%v, %v), want (%v, %v)", spec, k, m, c.k, c.m)
		}
	}
}
