// Package journal records typing sessions in a SQLite database.
//
// A session stores the raw debounced events fed to the dispatcher and the
// actions it resolved. The raw events replay into the same outcome under a
// given timing table, and per-key statistics help tune tapping terms:
//
//	j, err := journal.Open(path, log)
//	s, err := j.Begin("kyria")
//	s.RecordEvent(ev)      // from the event loop
//	d := dispatcher.New(..., dispatcher.MultiSink{reporter, s}, ...)
//	s.End()
//
// Session ids are UUIDs.
package journal
