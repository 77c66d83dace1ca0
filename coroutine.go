package coop

import "slices"

type action int

const (
	_ action = iota
	doYield
	doTransition
	doTailTransition // Do transition and remove controller.
	doEnd
	doBreak
	doContinue
	doExit
)

const (
	flagResumed = 1 << iota
	flagEnqueued
	flagEnded
)

// A Coroutine runs one [Task] to completion on an [Executor], possibly
// across many steps. It has no stack of its own: its state lives in the
// closures of its tasks.
//
// Each step calls the current task function, whose [Result] says whether
// the coroutine suspends, moves on to another task, or ends. A suspended
// coroutine comes back only when one of the events it watches (a [Signal],
// a [Timer], a channel, ...) notifies.
//
// Between two suspension points a coroutine runs uninterrupted: no other
// coroutine of the same executor runs until the task function returns.
type Coroutine struct {
	flag        uint8
	level       uint32
	name        string
	parent      *Coroutine
	executor    *Executor
	guard       func() bool
	task        Task
	deps        map[Event]struct{}
	cleanups    []Cleanup
	controllers []controller
}

func (co *Coroutine) init(e *Executor, name string, t Task) *Coroutine {
	co.executor = e
	co.name = name
	co.task = t
	return co
}

// Resume queues co to run again. Resuming an ended coroutine does nothing.
//
// Call it from task code or from a function passed to [Executor.Post].
func (co *Coroutine) Resume() {
	switch flag := co.flag; {
	case flag&flagEnded != 0:
	case flag&flagEnqueued != 0:
		co.flag = flag | flagResumed
	default:
		co.flag = flag | flagResumed | flagEnqueued
		co.executor.ready.push(co)
	}
}

func (co *Coroutine) run() (yielded bool) {
	var res Result

	e := co.executor

	for {
		if guard := co.guard; guard != nil {
			var ok bool

			co.flag &^= flagResumed

			if !e.ps.Try(co.name, func() { ok = guard() }) {
				co.task = (*Coroutine).Exit
				ok = true
			}

			if !ok {
				return true
			}

			co.guard = nil
		}

		co.clearDeps()
		co.clearCleanups()

		co.flag &^= flagResumed

		if !e.ps.Try(co.name, func() { res = co.task(co) }) {
			res = co.Exit()
		}

		if res.action != doYield && res.action != doTransition {
			co.clearDeps()
			co.clearCleanups()
			res = co.unwind(res)
		}

		if res.task != nil {
			co.task = res.task
		}

		if res.guard != nil {
			co.guard = res.guard
			continue // check the guard right away
		}

		if res.action != doTransition {
			break
		}

		if res.controller.kind != 0 {
			co.controllers = append(co.controllers, res.controller)
		}
	}

	if res.action == doYield {
		return true
	}

	co.end()
	co.removeFromParent()

	if co.parent == nil {
		e.live--
	}

	return false
}

func (co *Coroutine) unwind(res Result) Result {
	controllers := co.controllers

	for len(controllers) != 0 {
		i := len(controllers) - 1
		res = controllers[i].negotiate(co, res)
		if res.action == doTransition {
			break
		}
		controllers[i] = controller{}
		controllers = controllers[:i]
		if res.action == doTailTransition {
			res.action = doTransition
			break
		}
	}

	co.controllers = controllers

	switch res.action {
	case doBreak:
		panic("coop: unhandled break action")
	case doContinue:
		panic("coop: unhandled continue action")
	}

	return res
}

func (co *Coroutine) end() {
	co.flag |= flagEnded
	co.guard = nil
	co.clearDeps()
	co.clearCleanups()
	clear(co.controllers)
	co.controllers = nil
}

func (co *Coroutine) clearDeps() {
	deps := co.deps
	for d := range deps {
		delete(deps, d)
		d.removeListener(co)
	}
}

func (co *Coroutine) clearCleanups() {
	ps := &co.executor.ps
	for len(co.cleanups) != 0 {
		cleanups := co.cleanups
		co.cleanups = nil
		for _, c := range slices.Backward(cleanups) {
			ps.Try(co.name, c.Cleanup)
		}
		clear(cleanups)
	}
}

func (co *Coroutine) removeFromParent() {
	parent := co.parent
	if parent == nil {
		return
	}
	for i, c := range parent.cleanups {
		if c == (*childCoroutineCleanup)(co) {
			parent.cleanups = slices.Delete(parent.cleanups, i, i+1)
			break
		}
	}
}

// A childCoroutineCleanup cancels a child coroutine when its parent resumes
// or ends. A canceled coroutine never runs again.
type childCoroutineCleanup Coroutine

func (child *childCoroutineCleanup) Cleanup() {
	co := (*Coroutine)(child)
	if co.flag&flagEnded == 0 {
		co.end()
	}
}

// cancelSiblings cancels every other child coroutine of the parent of co.
func (co *Coroutine) cancelSiblings() {
	for _, c := range co.parent.cleanups {
		if child, ok := c.(*childCoroutineCleanup); ok && (*Coroutine)(child) != co {
			child.Cleanup()
		}
	}
}

// Name returns the name co was registered with.
// Child coroutines share the name of their parent.
func (co *Coroutine) Name() string {
	return co.name
}

// Parent returns the coroutine that spawned co, or nil for a root one.
func (co *Coroutine) Parent() *Coroutine {
	return co.parent
}

// Executor returns the executor that runs co.
func (co *Coroutine) Executor() *Executor {
	return co.executor
}

// Ended reports whether co has already ended (or exited, or been canceled).
func (co *Coroutine) Ended() bool {
	return co.flag&flagEnded != 0
}

// Resumed reports whether co is queued to run again.
func (co *Coroutine) Resumed() bool {
	return co.flag&flagResumed != 0
}

// Watch makes co resume when any of ev notifies. Watches are dropped at
// the start of co's next step.
func (co *Coroutine) Watch(ev ...Event) {
	if co.Ended() {
		return
	}
	for _, d := range ev {
		deps := co.deps
		if deps == nil {
			deps = make(map[Event]struct{})
			co.deps = deps
		}
		if _, ok := deps[d]; ok {
			continue
		}
		deps[d] = struct{}{}
		d.addListener(co)
	}
}

// A Cleanup undoes something a task step set up, such as an armed timer or
// a place in a wait queue. Cleanups registered with [Coroutine.Cleanup]
// run, last first, before the coroutine's next step and when it ends.
type Cleanup interface {
	Cleanup()
}

// CleanupFunc adapts a function to [Cleanup].
type CleanupFunc func()

func (f CleanupFunc) Cleanup() { f() }

// Cleanup registers c to run before co's next step, or when co ends.
func (co *Coroutine) Cleanup(c Cleanup) {
	if co.Ended() {
		panic("coop: coroutine has already ended")
	}
	if c == nil {
		return
	}
	co.cleanups = append(co.cleanups, c)
}

// CleanupFunc is like Cleanup for a plain function.
func (co *Coroutine) CleanupFunc(f func()) {
	if f == nil {
		return
	}
	co.Cleanup(CleanupFunc(f))
}

// Spawn starts a child coroutine on t and runs its first step right away.
//
// A child that is still running when co takes its next step (or ends) is
// canceled: it never runs again and whatever it awaited is dropped.
// Fan-in helpers such as [SelectThen] and [Join] are built on this.
func (co *Coroutine) Spawn(t Task) {
	if co.Ended() {
		panic("coop: coroutine has already ended")
	}

	level := co.level + 1
	if level == 0 {
		panic("coop: too many levels")
	}

	child := new(Coroutine).init(co.executor, co.name, must(t))
	child.level = level
	child.parent = co

	if yielded := child.run(); yielded {
		co.cleanups = append(co.cleanups, (*childCoroutineCleanup)(child))
	}
}

// A Result tells the executor what a coroutine does after a step.
// Results come from methods of [Coroutine]:
//
//   - Await, then one of the [PendingResult] methods: suspend;
//   - Yield: suspend and run the same task again when resumed;
//   - Transition: carry on with another task;
//   - End, Break, Continue: finish the task, or steer the enclosing [Loop];
//   - Exit: end the coroutine outright.
//
// A Result should be returned as soon as it is made.
type Result struct {
	action     action
	guard      func() bool // used by doYield only
	task       Task        // used by doYield, doTransition and doTailTransition
	controller controller  // used by doTransition only
}

// A PendingResult is a suspension whose continuation is not yet chosen.
// Turn it into a [Result] with one of its methods.
type PendingResult struct {
	res Result
}

// Reiterate runs the current task again on resumption.
func (pr PendingResult) Reiterate() Result {
	return pr.res
}

// Then carries on with t on resumption.
func (pr PendingResult) Then(t Task) Result {
	pr.res.task = must(t)
	return pr.res
}

// End ends the current task on resumption.
func (pr PendingResult) End() Result {
	return pr.Then(End())
}

// Break breaks the enclosing loop on resumption.
func (pr PendingResult) Break() Result {
	return pr.Then(Break())
}

// Continue starts the next iteration of the enclosing loop on resumption.
func (pr PendingResult) Continue() Result {
	return pr.Then(Continue())
}

// Until keeps the coroutine suspended until f reports true. f is checked
// right away and then on every resumption; watched events stay watched
// meanwhile.
func (pr PendingResult) Until(f func() bool) PendingResult {
	pr.res.guard = f
	return pr
}

// Await watches ev and returns a suspension for the current step.
func (co *Coroutine) Await(ev ...Event) PendingResult {
	if len(ev) != 0 {
		co.Watch(ev...)
	}
	return PendingResult{res: Result{action: doYield}}
}

// Yield watches ev, suspends, and runs the current task again when
// resumed.
func (co *Coroutine) Yield(ev ...Event) Result {
	return co.Await(ev...).Reiterate()
}

// Transition replaces the current task with t and runs it in the same step.
// Children and cleanups of the current task are dropped first.
func (co *Coroutine) Transition(t Task) Result {
	return Result{action: doTransition, task: must(t)}
}

// End finishes the current task.
func (co *Coroutine) End() Result {
	return Result{action: doEnd}
}

// Break leaves the innermost [Loop] or [LoopN].
func (co *Coroutine) Break() Result {
	return Result{action: doBreak}
}

// Continue starts the next iteration of the innermost [Loop] or [LoopN].
func (co *Coroutine) Continue() Result {
	return Result{action: doContinue}
}

// Exit returns a [Result] that will cause co to exit, skipping whatever
// surrounding [Block] or [Loop] would have run next.
func (co *Coroutine) Exit() Result {
	return Result{action: doExit}
}

type controllerKind int8

const (
	_ controllerKind = iota
	thenController
	blockController
	loopController
)

type controller struct {
	kind  controllerKind
	task  Task   // used by thenController and loopController
	tasks []Task // used by blockController only
}

func (c *controller) negotiate(co *Coroutine, res Result) Result {
	switch c.kind {
	case thenController:
		if res.action != doEnd {
			return res
		}
		return Result{action: doTailTransition, task: c.task}
	case blockController:
		if res.action != doEnd || len(c.tasks) == 0 {
			return res
		}
		t := c.tasks[0]
		c.tasks = c.tasks[1:]
		action := doTransition
		if len(c.tasks) == 0 {
			action = doTailTransition
		}
		return Result{action: action, task: must(t)}
	case loopController:
		switch res.action {
		case doEnd, doContinue:
			return co.Transition(c.task)
		case doBreak:
			return co.End()
		default:
			return res
		}
	default:
		panic("coop: internal error: unknown controller")
	}
}

// A Task is one step of work for a coroutine. It is called again each time
// the coroutine comes back to it, so any progress must live outside the
// call, usually in a closure.
//
// co must not escape to another goroutine.
type Task func(co *Coroutine) Result

// Then runs t, then next. See [Block] for longer chains.
func (t Task) Then(next Task) Task {
	return func(co *Coroutine) Result {
		return Result{
			action:     doTransition,
			task:       must(t),
			controller: controller{kind: thenController, task: must(next)},
		}
	}
}

// Do returns a [Task] that calls f and ends.
func Do(f func()) Task {
	return func(co *Coroutine) Result {
		f()
		return co.End()
	}
}

// End returns a [Task] that does nothing.
func End() Task {
	return (*Coroutine).End
}

// Await returns a [Task] that ends when any of ev notifies.
// With no events it never ends.
func Await(ev ...Event) Task {
	return func(co *Coroutine) Result {
		return co.Await(ev...).End()
	}
}

// Block returns a [Task] that runs s in order.
func Block(s ...Task) Task {
	switch len(s) {
	case 0:
		return End()
	case 1:
		return s[0]
	case 2:
		return s[0].Then(s[1])
	}
	return func(co *Coroutine) Result {
		return Result{
			action:     doTransition,
			task:       must(s[0]),
			controller: controller{kind: blockController, tasks: s[1:]},
		}
	}
}

// Break returns a [Task] that leaves the innermost loop.
func Break() Task {
	return (*Coroutine).Break
}

// Continue returns a [Task] that starts the next loop iteration.
func Continue() Task {
	return (*Coroutine).Continue
}

// Exit returns a [Task] that ends its coroutine.
func Exit() Task {
	return (*Coroutine).Exit
}

// Loop returns a [Task] that runs t over and over until t breaks out.
//
// Every iteration of t must reach a suspension point; a loop whose body
// always ends synchronously keeps the executor busy forever.
func Loop(t Task) Task {
	return func(co *Coroutine) Result {
		return Result{
			action:     doTransition,
			task:       must(t),
			controller: controller{kind: loopController, task: t},
		}
	}
}

// LoopN is like [Loop] but runs t at most n times.
func LoopN[Int intType](n Int, t Task) Task {
	return func(co *Coroutine) Result {
		i := Int(0)
		f := func(co *Coroutine) Result {
			if i < n {
				i++
				return co.Transition(t)
			}
			return co.Break()
		}
		return Result{
			action:     doTransition,
			task:       f,
			controller: controller{kind: loopController, task: f},
		}
	}
}

type intType interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

func must(t Task) Task {
	if t == nil {
		panic("coop: nil Task")
	}
	return t
}
