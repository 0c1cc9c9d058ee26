// Package hid turns resolved actions into USB HID reports.
//
// The Reporter is the action-execution boundary: it implements
// dispatcher.Sink, tracks which keys, modifiers, media keys and mouse
// buttons are down, and writes a report every time one of them changes.
// Reports are written to any io.Writer, typically a Linux USB gadget
// device such as /dev/hidg0.
//
// Three reports are produced, matching Descriptor:
//
//	ID 1  keyboard  modifiers, 6 key slots
//	ID 2  consumer  one 16-bit usage
//	ID 3  mouse     buttons, x, y, wheel, pan
//
// Mouse movement and wheel keys accelerate while held. MouseKeys keeps
// that state and must be ticked from the event loop.
package hid
