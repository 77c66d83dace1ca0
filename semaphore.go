package coop

import "slices"

// A Semaphore bounds the total weight held at once over a resource that
// coroutines share, such as a bus several devices transfer over.
//
// Waiters are served in the order they began waiting; a waiter that asks
// for more than is free holds back those behind it.
//
// Use a Semaphore from one [Executor] only.
type Semaphore struct {
	size    int64
	cur     int64
	waiters []*semaWaiter
}

// NewSemaphore returns a semaphore of total weight n.
func NewSemaphore(n int64) *Semaphore {
	return &Semaphore{size: n}
}

// Acquire returns a [Task] that ends once it holds n of s.
//
// If the task is canceled before the weight is acquired, nothing is
// acquired.
func (s *Semaphore) Acquire(n int64) Task {
	if n < 0 {
		panic("coop(Semaphore): negative weight")
	}
	return func(co *Coroutine) Result {
		if n == 0 || len(s.waiters) == 0 && s.size-s.cur >= n {
			s.cur += n
			return co.End()
		}
		if n > s.size {
			return co.Await().End() // never fits
		}
		w := &semaWaiter{s: s, n: n}
		s.waiters = append(s.waiters, w)
		co.Cleanup(w)
		return co.Await(w).Until(func() bool { return w.n == 0 }).End()
	}
}

// TryAcquire acquires the semaphore with a weight of n without waiting.
// Reports false, leaving the semaphore unchanged, if it cannot do so.
func (s *Semaphore) TryAcquire(n int64) bool {
	if n < 0 {
		panic("coop(Semaphore): negative weight")
	}
	if len(s.waiters) != 0 || s.size-s.cur < n {
		return false
	}
	s.cur += n
	return true
}

// Release gives back n and wakes the waiters that now fit.
// Call it from task code.
func (s *Semaphore) Release(n int64) {
	if n < 0 {
		panic("coop(Semaphore): negative weight")
	}
	s.cur -= n
	if s.cur < 0 {
		panic("coop(Semaphore): released more than held")
	}
	s.notifyWaiters()
}

func (s *Semaphore) notifyWaiters() {
	i := 0
	for _, w := range s.waiters {
		if s.size-s.cur < w.n {
			break
		}
		s.cur += w.n
		w.n = 0
		w.Notify()
		i++
	}
	s.waiters = slices.Delete(s.waiters, 0, i)
}

type semaWaiter struct {
	Signal
	s *Semaphore
	n int64
}

func (w *semaWaiter) Cleanup() {
	if w.n != 0 {
		w.s.removeWaiter(w)
	}
}

func (s *Semaphore) removeWaiter(w *semaWaiter) {
	if i := slices.Index(s.waiters, w); i != -1 {
		s.waiters = slices.Delete(s.waiters, i, i+1)
		s.notifyWaiters()
	}
}
