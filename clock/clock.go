// Package clock abstracts the time source of an executor.
//
// Production code uses [Real]. Tests use [Fake], whose time stands still
// until [FakeClock.Advance] is called, so that timer-driven code such as
// sleeps, tickers and debounce windows can be stepped deterministically.
package clock

import "time"

// Clock is the time source an executor reads deadlines from.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// AfterFunc waits for duration d, then calls f in its own goroutine
	// (real) or synchronously from Advance (fake).
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a pending AfterFunc call.
type Timer interface {
	// Stop prevents the call from happening. Returns true if the call
	// was stopped, false if it has already happened or been stopped.
	Stop() bool
}

// Real returns a Clock backed by the standard time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
