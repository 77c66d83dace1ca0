// Package debounce turns noisy input lines into clean activations.
//
// A [Filter] is the per-input state machine. An [Input] pairs a Filter with
// a raw [Source] and gives coroutines a single operation to wait on,
// [Input.AwaitActivation].
package debounce

import (
	"fmt"
	"time"
)

// Level is the logical level of an input line.
type Level uint8

const (
	Low Level = iota
	High
)

func (l Level) String() string {
	switch l {
	case Low:
		return "low"
	case High:
		return "high"
	}
	return fmt.Sprintf("Level(%d)", uint8(l))
}

// A Filter is either stable on a level, or holding a candidate level since
// some instant.
//
// A candidate becomes the stable level once it has been sampled for at
// least the window. A sample that disagrees with the candidate restarts
// candidacy on the sampled level; since there are only two levels, that
// means the filter falls back to its stable level and the next change has
// to persist for a whole window again.
//
// A Filter is not safe for concurrent use.
type Filter struct {
	stable    Level
	active    Level
	window    time.Duration
	candidate bool
	pending   Level
	since     time.Time
}

// NewFilter creates a [Filter] that is stable on initial and reports
// confirmed changes to active.
//
// NewFilter panics if window is negative.
func NewFilter(initial, active Level, window time.Duration) *Filter {
	if window < 0 {
		panic("debounce: negative window")
	}
	return &Filter{stable: initial, active: active, window: window}
}

// Sample feeds a raw sample taken at now into f.
// Sample reports true exactly when the sample confirms a candidate on the
// active level.
func (f *Filter) Sample(l Level, now time.Time) bool {
	if !f.candidate {
		if l != f.stable {
			f.candidate, f.pending, f.since = true, l, now
		}
		return false
	}

	if l != f.pending {
		if l == f.stable {
			f.candidate = false
		} else {
			f.pending, f.since = l, now
		}
		return false
	}

	if now.Sub(f.since) < f.window {
		return false
	}

	f.stable, f.candidate = l, false
	return l == f.active
}

// Stable returns the current stable level.
func (f *Filter) Stable() Level {
	return f.stable
}

// Active returns the level whose confirmation counts as an activation.
func (f *Filter) Active() Level {
	return f.active
}

// Pending returns the candidate level and when it was first sampled.
// ok is false if f is stable.
func (f *Filter) Pending() (l Level, since time.Time, ok bool) {
	return f.pending, f.since, f.candidate
}

// Deadline returns the earliest instant at which the candidate can be
// confirmed. ok is false if f is stable.
func (f *Filter) Deadline() (deadline time.Time, ok bool) {
	if !f.candidate {
		return time.Time{}, false
	}
	return f.since.Add(f.window), true
}

// Window returns the debounce window of f.
func (f *Filter) Window() time.Duration {
	return f.window
}
