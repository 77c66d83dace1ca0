package coop

// Join returns a [Task] that runs each of the given tasks in its own
// child coroutine and awaits until all of them complete, and then ends.
//
// When passed no arguments, Join returns a [Task] that never ends.
func Join(s ...Task) Task {
	return func(co *Coroutine) Result {
		if len(s) == 0 {
			return co.Await().End()
		}
		wg := new(WaitGroup)
		wg.Add(len(s))
		for _, t := range s {
			co.Spawn(must(t).Then(Do(wg.Done)))
		}
		return co.Await(wg).Until(func() bool { return wg.Len() == 0 }).End()
	}
}

// Select returns a [Task] that runs each of the given tasks in its own
// child coroutine and awaits until any of them completes, and then ends.
// When Select ends, tasks other than the one that completes are canceled
// (see [Coroutine.Spawn]).
//
// When passed no arguments, Select returns a [Task] that never ends.
func Select(s ...Task) Task {
	return SelectThen(s, func(int) Task { return End() })
}

// SelectThen is like [Select], but once the i-th task completes, SelectThen
// makes a transition to work on next(i).
//
// Tasks are started in order. If a task completes while being started, the
// remaining tasks are not started at all, so when several tasks are ready
// at once the one that comes first in s wins.
//
// The other tasks are canceled as soon as one completes. A task that was
// resumed in the same step as the winner, but has not run yet, never runs.
func SelectThen(s []Task, next func(i int) Task) Task {
	return func(co *Coroutine) Result {
		winner := -1
		for i, t := range s {
			co.Spawn(must(t).Then(func(co *Coroutine) Result {
				if winner < 0 {
					winner = i
					co.cancelSiblings()
					co.Parent().Resume()
				}
				return co.End()
			}))
			if winner >= 0 {
				break
			}
		}
		return co.Await().Then(func(co *Coroutine) Result {
			return co.Transition(next(winner))
		})
	}
}

// Spawn returns a [Task] that runs t in a child coroutine and awaits until
// t completes, and then ends.
func Spawn(t Task) Task {
	return Join(t)
}

// Go returns a [Task] that calls f in a new goroutine and awaits until f
// returns, and then ends.
// Other coroutines keep running while f blocks, which makes Go the way to
// wait for slow device I/O such as a display or LED transfer.
//
// If the coroutine is canceled before f returns, f still runs to completion
// but nothing waits for it.
func Go(f func()) Task {
	return func(co *Coroutine) Result {
		e := co.executor
		var sig Signal
		returned := false
		e.inflight++
		go func() {
			defer e.Post(func() {
				e.inflight--
				returned = true
				sig.Notify()
			})
			f()
		}()
		return co.Await(&sig).Until(func() bool { return returned }).End()
	}
}
