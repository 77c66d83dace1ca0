package coop

import (
	"fmt"
	"runtime/debug"
	"strings"
)

// panicstack collects panics raised by task code during one step of the
// executor, so that one misbehaving task does not stop the others from
// finishing the step.
type panicstack []panicitem

type panicitem struct {
	task  string // empty for posted functions
	value any
	stack []byte
}

func (p panicitem) source() string {
	if p.task == "" {
		return "posted function"
	}
	return fmt.Sprintf("task %q", p.task)
}

// Try calls f on behalf of task and reports whether it returned normally.
// A panic in f is recorded and swallowed.
func (ps *panicstack) Try(task string, f func()) (ok bool) {
	defer func() {
		if ok {
			return
		}
		v := recover()
		if v == nil {
			panic("coop: runtime.Goexit is not supported")
		}
		*ps = append(*ps, panicitem{task, v, debug.Stack()})
	}()
	f()
	return true
}

// Repanic panics with every recorded item, if any, and empties ps.
func (ps *panicstack) Repanic() {
	if items := *ps; len(items) != 0 {
		*ps = nil
		panic(&panicvalue{items: items})
	}
}

// panicvalue is the value Run panics with. It is an error that unwraps to
// every recorded panic value that is itself an error.
type panicvalue struct {
	items []panicitem
}

func (pv *panicvalue) Error() string {
	var b strings.Builder
	if len(pv.items) == 1 {
		fmt.Fprintf(&b, "coop: %s panicked: %v", pv.items[0].source(), pv.items[0].value)
	} else {
		fmt.Fprintf(&b, "coop: %d panics", len(pv.items))
		for _, p := range pv.items {
			fmt.Fprintf(&b, "\n%s panicked: %v", p.source(), p.value)
		}
	}
	for _, p := range pv.items {
		fmt.Fprintf(&b, "\n\n%s:\n%s", p.source(), p.stack)
	}
	return b.String()
}

func (pv *panicvalue) Unwrap() []error {
	var errs []error
	for _, p := range pv.items {
		if err, ok := p.value.(error); ok {
			errs = append(errs, err)
		}
	}
	return errs
}
