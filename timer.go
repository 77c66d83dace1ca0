package coop

import "time"

const (
	timerPending = iota
	timerFired
	timerStopped
)

// A Timer is an [Event] that notifies once, when the clock of its
// [Executor] reaches a deadline.
//
// To create a Timer, use [Executor.NewTimer].
//
// A Timer also implements [Cleanup] so that a coroutine can stop it when
// the coroutine resumes for some other reason.
type Timer struct {
	Signal
	deadline time.Time
	seq      uint64
	state    uint8
}

func (t *Timer) less(other *Timer) bool {
	if !t.deadline.Equal(other.deadline) {
		return t.deadline.Before(other.deadline)
	}
	return t.seq < other.seq
}

// Deadline returns the time at which t fires.
func (t *Timer) Deadline() time.Time {
	return t.deadline
}

// Fired reports whether t has fired.
func (t *Timer) Fired() bool {
	return t.state == timerFired
}

// Stop prevents t from firing.
// Returns true if the call stops t, false if t has already fired or been
// stopped.
func (t *Timer) Stop() bool {
	if t.state != timerPending {
		return false
	}
	t.state = timerStopped
	return true
}

// Cleanup implements the [Cleanup] interface.
func (t *Timer) Cleanup() {
	t.Stop()
}

// NewTimer creates a [Timer] that fires at deadline.
// Timers with the same deadline fire in the order they were created.
//
// One should only call this method in a [Task] function.
func (e *Executor) NewTimer(deadline time.Time) *Timer {
	e.timerSeq++
	t := &Timer{deadline: deadline, seq: e.timerSeq}
	e.timers.Push(t)
	return t
}

func (e *Executor) fireTimers() {
	if e.timers.Empty() {
		return
	}
	now := e.clock.Now()
	for !e.timers.Empty() {
		t := e.timers.Peek()
		if t.deadline.After(now) {
			break
		}
		e.timers.Pop()
		if t.state == timerPending {
			t.state = timerFired
			t.Notify()
		}
	}
}

// nextDeadline returns the deadline of the earliest pending timer,
// dropping stopped ones on the way.
func (e *Executor) nextDeadline() (time.Time, bool) {
	for !e.timers.Empty() {
		t := e.timers.Peek()
		if t.state == timerPending {
			return t.deadline, true
		}
		e.timers.Pop()
	}
	return time.Time{}, false
}

// SleepUntil returns a [Task] that awaits until the clock of the executor
// reaches deadline, and then ends.
func SleepUntil(deadline time.Time) Task {
	return func(co *Coroutine) Result {
		e := co.executor
		if !e.Now().Before(deadline) {
			return co.End()
		}
		t := e.NewTimer(deadline)
		co.Cleanup(t)
		return co.Await(t).End()
	}
}

// Sleep returns a [Task] that awaits for d, and then ends.
// The duration counts from when the returned task starts running.
func Sleep(d time.Duration) Task {
	return func(co *Coroutine) Result {
		return co.Transition(SleepUntil(co.executor.Now().Add(d)))
	}
}

// A Ticker produces a [Task] that ends once per period.
//
// Unlike a [Loop] around [Sleep], a Ticker does not drift: deadlines are
// computed from the previous deadline, not from when the previous tick was
// handled. A tick that is handled late is followed by the next one without
// delay.
type Ticker struct {
	period time.Duration
	next   time.Time
}

// NewTicker creates a [Ticker]. The first tick happens one period after
// the first call of [Ticker.Next] starts running.
func NewTicker(period time.Duration) *Ticker {
	if period <= 0 {
		panic("coop(Ticker): non-positive period")
	}
	return &Ticker{period: period}
}

// Period returns the period of t.
func (t *Ticker) Period() time.Duration {
	return t.period
}

// Next returns a [Task] that awaits the next tick of t, and then ends.
// A Next task that is canceled before it ends does not consume the tick.
func (t *Ticker) Next() Task {
	return func(co *Coroutine) Result {
		if t.next.IsZero() {
			t.next = co.executor.Now().Add(t.period)
		}
		return co.Transition(SleepUntil(t.next).Then(Do(t.advance)))
	}
}

func (t *Ticker) advance() {
	t.next = t.next.Add(t.period)
}
