package coop

// A WaitGroup counts outstanding work and notifies its watchers when the
// count drops to zero. [Join] uses one to wait for its children.
//
// Like every event, a WaitGroup belongs to a single [Executor] and is only
// touched from task code.
type WaitGroup struct {
	Signal
	n int
}

// Add adds delta to the counter. Reaching zero notifies watchers.
// Add panics if the counter goes negative.
func (wg *WaitGroup) Add(delta int) {
	n := wg.n + delta
	if n < 0 {
		panic("coop(WaitGroup): negative counter")
	}
	wg.n = n
	if n == 0 && delta != 0 {
		wg.Notify()
	}
}

// Done is Add(-1).
func (wg *WaitGroup) Done() {
	wg.Add(-1)
}

// Len returns the counter.
func (wg *WaitGroup) Len() int {
	return wg.n
}

// Await returns a [Task] that ends once the counter is zero.
func (wg *WaitGroup) Await() Task {
	return func(co *Coroutine) Result {
		return co.Await(wg).Until(func() bool { return wg.n == 0 }).End()
	}
}
