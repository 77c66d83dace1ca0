// Package coop is a cooperative, single-threaded task scheduler for
// programs shaped like device firmware: a fixed set of long-lived tasks,
// registered once at startup, that wait on timers, inputs and each other.
//
// Since Go has already done a great job in bringing green/virtual threads
// into life, this package only implements a single-threaded [Executor],
// which some refer to as an async runtime. Only one task runs at any
// instant; concurrency is interleaving, not parallelism.
//
// # Tasks and Suspension Points
//
// A [Task] is an ordinary Go function that takes a [Coroutine] and returns
// a [Result]. The Result tells the coroutine whether to end, to make
// a transition to another task, or to yield until some [Event] notifies.
// Returning a yielding Result is the only way to give other coroutines
// a chance to run; a task runs uninterrupted until it returns.
//
// The suspension points provided by this module are:
//   - [Sleep], [SleepUntil] and [Ticker.Next], for timer waits;
//   - receiving from a broadcast channel (package pubsub);
//   - waiting for a debounced input (package debounce);
//   - [Select] and [SelectThen], for waiting on the first ready of several
//     tasks;
//   - [Go], for waiting on blocking work done by another goroutine.
//
// # Sequential-Looking Code
//
// A coroutine can make a transition from one task to another, just like
// a state machine can make a transition from one state to another.
// With the ability to transition, coop provides control structures like
// [Block] and [Loop] to ease the process of writing code that reads as if
// it were sequential:
//
//	coop.Loop(coop.Block(
//		sub.Next(&ev),
//		coop.Do(func() { leds.Fill(colorFor(ev)) }),
//		coop.Go(flush),
//	))
//
// # Registration
//
// An [Executor] owns a fixed-size task table. Tasks are added with
// [Executor.Register] before the executor starts; running out of table
// entries is a startup failure, not a runtime condition. Once started, no
// task can be added. Each registered task runs in a root coroutine for as
// long as the process lives, unless it ends by itself.
//
// # Talking to Goroutines
//
// Coroutines, events and everything they touch belong to the goroutine
// running the executor. Other goroutines, including those simulating
// interrupt handlers, hand work over with [Executor.Post], which is the only
// method that is safe for concurrent use.
//
// # Child Coroutines
//
// [Coroutine.Spawn] starts a child coroutine. Child coroutines are
// Task-scoped and, therefore, cancelable: when the parent resumes or ends,
// children that have not ended are canceled. [Select] and [SelectThen] rely
// on this to drop the arms that lost the race.
//
// # Panics
//
// A panic in a task is recorded along with its stack trace, and then
// re-raised from [Executor.Run] (or [Executor.RunPending]). The program is
// not expected to recover from it.
package coop
