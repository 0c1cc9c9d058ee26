// Package taphold decides whether a dual-role key press is a tap or a hold.
//
// One Resolver exists per pressed dual-role key. It holds no timers: the
// caller supplies the current time to every transition, and re-checks
// expiry with Tick on every loop iteration.
//
// States:
//   - Idle: not yet pressed, or released after a hold.
//   - Pressed: awaiting a decision.
//   - Hold: resolved to the hold action; released on key release.
//   - Repeat: a rapid re-press granted the auto-repeat privilege; the tap
//     action is held down until release.
//   - Tap: resolved to the tap action and released. Terminal.
//
// Hold is reached by timeout (elapsed >= tapping term), by interrupt
// (another key pressed while IgnoreInterrupt is false), or by a release
// that arrives after the term when no tick observed the expiry. A release
// at exactly the tapping term is a tap.
package taphold
