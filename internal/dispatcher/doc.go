// Package dispatcher routes raw key events to tap-hold resolvers and
// delivers resolved actions to the action-execution boundary.
//
// # Event Flow
//
// For every event handed to HandleEvent:
//
//  1. Pre-event hooks run (any may drop the event)
//  2. Pending keys whose tapping term has been exceeded resolve to hold
//  3. A press interrupts every pending key, in press order
//  4. The binding for the pressed key is looked up under the active layers
//  5. Dual-role keys get a taphold.Resolver; other keys emit at once
//  6. A release is routed to the key's resolver or held action
//  7. Resolved actions update layer state and are queued; they are
//     delivered to the Sink in press order, updating oneshot state as
//     they go
//  8. Post-emit hooks run for each delivered action
//
// Tick must be called on every loop iteration so that a key held past its
// tapping term resolves to hold even when no event arrives.
//
// # Oneshot Modifiers
//
// A oneshot action toggles the register when its tap is delivered; it is
// never forwarded. The next delivered key action that is not
// modifier-like receives the armed modifiers, and the register is
// cleared. A key held back behind an undecided key is not "next" until
// it is delivered. The key's release carries
// the same modifiers.
//
// # Layers
//
// A layer hold activates its layer until release. Several keys may hold
// the same layer; it stays active until the last one is released. Layer
// 0 is always active.
//
// # Usage
//
//	table, _ := timing.NewTable(timing.BaseTerm, timing.KyriaEntries())
//	d, err := dispatcher.New(keymap.DefaultKyria(), table, oneshot.New(), sink,
//	    dispatcher.DefaultConfig().WithLogger(log))
//	if err != nil {
//	    return err
//	}
//
//	for {
//	    select {
//	    case ev := <-events:
//	        d.HandleEvent(ev)
//	    case <-ticker.C:
//	    }
//	    d.Tick(clock.Now())
//	}
package dispatcher
