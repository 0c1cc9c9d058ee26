// Package keymap provides the static layer table consulted by the dispatcher.
//
// A Keymap maps every physical key position to a Binding on each of up to
// eight layers. A Binding pairs a tap Action with an optional hold Action;
// bindings with a hold action are dual-role and are resolved by the
// taphold package.
//
// # Key Concepts
//
// Action: A tagged union of key, modifier, layer and oneshot outputs.
//
// Binding: The static tap/hold pair for one cell of one layer.
//
// Layer: A named set of bindings. Cells may be transparent (___), in
// which case the next lower active layer supplies the binding.
//
// Registry: Named keymaps available to the application.
//
// # Binding Language
//
// Each cell of a keymap file is one string:
//
//	"a"                    - Key
//	"%"                    - Shifted symbol (Shift+5)
//	"Ctrl+Cmd+Q"           - Key with modifiers
//	"LShift", "Meh"        - Modifier
//	"MT(Ctrl, a)"          - Mod-tap: tap a, hold Ctrl
//	"LT(nav, Space)"       - Layer-tap: tap Space, hold layer nav
//	"LT(num, OSM(LShift))" - Layer-tap whose tap toggles oneshot LShift
//	"MO(fn)"               - Momentary layer
//	"OSM(LShift)"          - Oneshot modifier toggle
//	"___"                  - Transparent
//	"XXX"                  - Nothing
//
// # Usage
//
//	registry := keymap.NewRegistry()
//	keymap.LoadDefaults(registry)
//
//	km, _ := registry.Get("kyria")
//	b := km.Lookup(active, key.Pos(1, 3))
//	if b.IsDualRole() {
//	    // resolve tap vs hold
//	}
package keymap
