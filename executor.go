package coop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/b97tsk/coop/clock"
)

var (
	// ErrTaskTableFull is returned by [Executor.Register] when the task
	// table has no free entry.
	ErrTaskTableFull = errors.New("coop: task table full")

	// ErrStarted is returned by [Executor.Register] once the executor has
	// started, and by [Executor.Run] when it is called a second time.
	ErrStarted = errors.New("coop: executor already started")
)

// An Executor runs a fixed set of tasks, each in its own root [Coroutine],
// on a single goroutine.
//
// Tasks are registered with the Register method before the executor starts.
// Once started, the task table is closed: no task can be added any more.
//
// Resumed coroutines are queued in FIFO order, so every coroutine that
// becomes ready runs before any coroutine that becomes ready after it.
// Only one coroutine runs at a time. If one coroutine blocks, no other
// coroutines can run. The best practice is not to block.
//
// Other goroutines talk to an executor with the Post method only.
type Executor struct {
	clock    clock.Clock
	capacity int

	mu      sync.Mutex
	started bool
	table   []entry
	posted  []func()

	wake chan struct{}

	// The following fields are only touched by the goroutine running
	// the executor.
	ready    runqueue
	timers   priorityqueue[*Timer]
	timerSeq uint64
	alarm    clock.Timer
	live     int
	inflight int // functions started by Go that have not returned
	ps       panicstack
}

type entry struct {
	name string
	task Task
}

// NewExecutor creates an [Executor] with room for capacity tasks.
// If c is nil, the executor uses [clock.Real].
func NewExecutor(capacity int, c clock.Clock) *Executor {
	if capacity <= 0 {
		panic("coop: non-positive task capacity")
	}
	if c == nil {
		c = clock.Real()
	}
	return &Executor{
		clock:    c,
		capacity: capacity,
		table:    make([]entry, 0, capacity),
		wake:     make(chan struct{}, 1),
	}
}

// Register adds a task to the task table.
// The task starts running in its own root coroutine when the executor
// starts.
//
// Register fails with [ErrTaskTableFull] if the table is full, or with
// [ErrStarted] if the executor has already started. Either way the program
// is not wired the way it meant to be, and should refuse to run.
func (e *Executor) Register(name string, t Task) error {
	if t == nil {
		panic("coop: nil Task")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		return fmt.Errorf("register %q: %w", name, ErrStarted)
	}
	if len(e.table) == e.capacity {
		return fmt.Errorf("register %q: %w", name, ErrTaskTableFull)
	}

	e.table = append(e.table, entry{name, t})
	return nil
}

// Tasks returns the names of the registered tasks, in registration order.
func (e *Executor) Tasks() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	names := make([]string, len(e.table))
	for i, ent := range e.table {
		names[i] = ent.name
	}
	return names
}

// Now returns the current time of the clock of e.
func (e *Executor) Now() time.Time {
	return e.clock.Now()
}

// Post queues f to run on the goroutine running e, between two coroutine
// steps, and wakes e up if it is sleeping.
//
// Post is safe for concurrent use. It is the way for goroutines, timers
// and interrupt-like input sources to notify events that coroutines watch.
func (e *Executor) Post(f func()) {
	if f == nil {
		return
	}

	e.mu.Lock()
	e.posted = append(e.posted, f)
	e.mu.Unlock()

	e.signal()
}

func (e *Executor) signal() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// start closes the task table and queues a root coroutine for each
// registered task. Returns false if e has already started.
func (e *Executor) start() bool {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return false
	}
	e.started = true
	table := e.table
	e.mu.Unlock()

	for _, ent := range table {
		co := new(Coroutine).init(e, ent.name, ent.task)
		e.live++
		co.Resume()
	}

	return true
}

// Run starts e and runs it until every task has ended, in which case Run
// returns nil, or until ctx is done, in which case Run returns ctx.Err().
// With tasks that loop forever, Run only returns on cancellation.
//
// If a task panics, Run panics too, with every recorded panic value.
//
// Run must not be called twice; the second call returns [ErrStarted].
func (e *Executor) Run(ctx context.Context) error {
	if !e.start() {
		return ErrStarted
	}

	defer e.disarm()

	for {
		e.runPending()

		if e.live == 0 {
			return nil
		}

		e.arm()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.wake:
		}
	}
}

// RunPending starts e if it has not yet started, and then runs posted
// functions, expired timers and resumed coroutines until none is left.
// RunPending never blocks.
//
// RunPending lets tests drive an executor step by step with a fake clock.
// It must not be mixed with Run.
func (e *Executor) RunPending() {
	e.start()
	e.runPending()
}

// RunUntilIdle is like RunPending, but when nothing is left to run while
// functions started by [Go] are still running, RunUntilIdle waits for them
// to return and carries on. Timers are not waited for.
//
// Like RunPending, RunUntilIdle is meant for tests.
func (e *Executor) RunUntilIdle() {
	e.start()
	for {
		e.runPending()
		if e.inflight == 0 {
			return
		}
		<-e.wake
	}
}

func (e *Executor) runPending() {
	for {
		e.runPosted()
		e.fireTimers()

		co, ok := e.ready.pop()
		if !ok {
			if e.hasPosted() {
				continue
			}
			return
		}

		e.runCoroutine(co)
		e.ps.Repanic()
	}
}

func (e *Executor) hasPosted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.posted) != 0
}

func (e *Executor) runPosted() {
	e.mu.Lock()
	posted := e.posted
	e.posted = nil
	e.mu.Unlock()

	for _, f := range posted {
		e.ps.Try("", f)
	}

	e.ps.Repanic()
}

func (e *Executor) runCoroutine(co *Coroutine) {
	flag := co.flag &^ flagEnqueued
	co.flag = flag
	if flag&(flagEnded|flagResumed) == flagResumed {
		co.run()
	}
}

// arm makes sure e wakes up when the earliest pending timer expires.
func (e *Executor) arm() {
	e.disarm()
	deadline, ok := e.nextDeadline()
	if !ok {
		return
	}
	e.alarm = e.clock.AfterFunc(deadline.Sub(e.clock.Now()), e.signal)
}

func (e *Executor) disarm() {
	if e.alarm != nil {
		e.alarm.Stop()
		e.alarm = nil
	}
}
