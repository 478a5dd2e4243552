// Package clock abstracts timers so connection backoff and heartbeat
// scheduling can be driven deterministically in tests. Production code
// injects Real(); tests inject a Fake and advance it manually.
package clock

import "time"

// Clock is the timer surface used by the notification transport.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// AfterFunc waits for duration d, then calls f in its own
	// goroutine. The returned Timer can cancel the pending call.
	AfterFunc(d time.Duration, f func()) Timer

	// NewTicker returns a channel that delivers ticks at the given
	// interval and a stop function releasing its resources.
	NewTicker(d time.Duration) (<-chan time.Time, func())
}

// Timer is a scheduled call created by AfterFunc.
type Timer interface {
	// Stop prevents the call from firing. It reports whether the
	// call was stopped before it ran.
	Stop() bool
}
