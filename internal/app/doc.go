// Package app wires the resolution core to its surroundings and runs the
// event loop.
//
// One goroutine owns the dispatcher. It receives debounced key events from
// a source, ticks the dispatcher and the mouse-key engine every scan
// interval, and redraws the status view. Host LED reports and
// configuration changes are read on their own goroutines and only touch
// state that is safe to share.
//
// Replay drives the same core from a recorded sequence on a manual clock,
// with no goroutines.
package app
