// internal/clock/clock.go
//
// Timer seam for the auth flow.
//
// Context
// -------
// The debounced validators, the mode-toggle email restore, and the demo-fill
// re-validation all schedule work on a delay.  Production code uses the
// wall clock; tests swap in Manual so they can advance time explicitly
// instead of sleeping.
//
// Notes
// -----
//   - Timer is the subset of *time.Timer the callers need.
//   - Oxford commas, two spaces after periods.
package clock

import "time"

// Timer is a cancellable pending callback.
type Timer interface {
	// Stop prevents the callback from firing.  It reports false when the
	// callback already ran or was already stopped.
	Stop() bool
}

// Clock schedules callbacks.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// Real is the wall clock backed by time.AfterFunc.
type Real struct{}

// AfterFunc runs f on its own goroutine once d has elapsed.
func (Real) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
