package dispatcher

import "errors"

// Dispatcher errors. All of them are construction errors; once running the
// dispatcher has no error surface.
var (
	// ErrNilKeymap indicates no keymap was supplied.
	ErrNilKeymap = errors.New("dispatcher: nil keymap")

	// ErrNilTable indicates no timing table was supplied.
	ErrNilTable = errors.New("dispatcher: nil timing table")

	// ErrNilSink indicates no sink was supplied.
	ErrNilSink = errors.New("dispatcher: nil sink")

	// ErrInvalidKeymap indicates the keymap failed validation.
	ErrInvalidKeymap = errors.New("dispatcher: invalid keymap")

	// ErrInvalidTable indicates the timing table does not match the keymap.
	ErrInvalidTable = errors.New("dispatcher: timing table does not match keymap")
)
