package coop

import "slices"

// Event is the interface of any type that can be watched by a [Coroutine].
//
// The following types implement Event: [Signal] and [Timer].
// Any type that embeds [Signal] also implements Event.
type Event interface {
	addListener(co *Coroutine)
	removeListener(co *Coroutine)
}

// Signal is a type that implements [Event].
//
// Calling the Notify method of a Signal, in a [Task] function, resumes
// any [Coroutine] that is watching the Signal, in the order they started
// watching.
//
// A Signal must not be shared by more than one [Executor].
type Signal struct {
	listeners []*Coroutine
}

func (s *Signal) addListener(co *Coroutine) {
	s.listeners = append(s.listeners, co)
}

func (s *Signal) removeListener(co *Coroutine) {
	if i := slices.Index(s.listeners, co); i != -1 {
		s.listeners = slices.Delete(s.listeners, i, i+1)
	}
}

// Notify resumes any [Coroutine] that is watching s.
//
// One should only call this method in a [Task] function, or in a function
// passed to [Executor.Post].
func (s *Signal) Notify() {
	for _, co := range s.listeners {
		co.Resume()
	}
}
