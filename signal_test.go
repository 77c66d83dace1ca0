package coop_test

import (
	"testing"

	"github.com/b97tsk/coop"
	"github.com/google/go-cmp/cmp"
)

func TestSignal(t *testing.T) {
	e := newExecutor(t, 3)

	var sig coop.Signal
	var log []string
	for _, name := range []string{"a", "b", "c"} {
		register(t, e, name, coop.LoopN(2, coop.Block(
			coop.Await(&sig),
			coop.Do(func() { log = append(log, name) }),
		)))
	}

	e.RunPending()
	e.Post(sig.Notify)
	e.RunPending()
	e.Post(sig.Notify)
	e.Post(sig.Notify)
	e.RunPending()

	want := []string{"a", "b", "c", "a", "b", "c"}
	if diff := cmp.Diff(want, log); diff != "" {
		t.Errorf("resumed (-want +got):\n%s", diff)
	}
}

func TestUntil(t *testing.T) {
	e := newExecutor(t, 1)

	var sig coop.Signal
	n := 0
	var done bool
	register(t, e, "until", coop.Block(
		func(co *coop.Coroutine) coop.Result {
			return co.Await(&sig).Until(func() bool { return n >= 3 }).End()
		},
		coop.Do(func() { done = true }),
	))

	for range 3 {
		e.RunPending()
		if done {
			t.Fatalf("condition met early, n = %d", n)
		}
		e.Post(func() {
			n++
			sig.Notify()
		})
	}
	e.RunPending()

	if !done {
		t.Fatal("condition never met")
	}
}
