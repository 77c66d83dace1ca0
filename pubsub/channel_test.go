package pubsub_test

import (
	"errors"
	"testing"
	"time"

	"github.com/b97tsk/coop"
	"github.com/b97tsk/coop/clock"
	"github.com/b97tsk/coop/pubsub"
	"github.com/google/go-cmp/cmp"
)

func newExecutor(capacity int) (*coop.Executor, *clock.FakeClock) {
	c := clock.Fake(time.Unix(0, 0))
	return coop.NewExecutor(capacity, c), c
}

func mustRegister(t *testing.T, e *coop.Executor, name string, task coop.Task) {
	t.Helper()
	if err := e.Register(name, task); err != nil {
		t.Fatal(err)
	}
}

// collect returns a task that receives n events from s into *got.
func collect[T any](s *pubsub.Subscriber[T], n int, got *[]T) coop.Task {
	var v T
	return coop.LoopN(n, coop.Block(
		s.Next(&v),
		coop.Do(func() { *got = append(*got, v) }),
	))
}

func publishAll[T any](p *pubsub.Publisher[T], s ...T) coop.Task {
	tasks := make([]coop.Task, len(s))
	for i, v := range s {
		tasks[i] = p.Publish(v)
	}
	return coop.Block(tasks...)
}

func TestScenario(t *testing.T) {
	want := []string{"A", "B", "A"}

	t.Run("PublishFirst", func(t *testing.T) {
		e, _ := newExecutor(3)
		ch := pubsub.New[string](8, 2, 1)
		pub, _ := ch.Publisher()
		sub1, _ := ch.Subscriber()
		sub2, _ := ch.Subscriber()

		var got1, got2 []string
		mustRegister(t, e, "publisher", publishAll(pub, "A", "B", "A"))
		mustRegister(t, e, "subscriber-1", collect(sub1, 3, &got1))
		mustRegister(t, e, "subscriber-2", collect(sub2, 3, &got2))
		e.RunPending()

		if diff := cmp.Diff(want, got1); diff != "" {
			t.Errorf("subscriber 1 (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff(want, got2); diff != "" {
			t.Errorf("subscriber 2 (-want +got):\n%s", diff)
		}
	})

	t.Run("IndependentTiming", func(t *testing.T) {
		e, c := newExecutor(3)
		ch := pubsub.New[string](8, 2, 1)
		pub, _ := ch.Publisher()
		fast, _ := ch.Subscriber()
		slow, _ := ch.Subscriber()

		var got1, got2 []string
		var v string
		mustRegister(t, e, "fast", collect(fast, 3, &got1))
		mustRegister(t, e, "slow", coop.LoopN(3, coop.Block(
			coop.Sleep(7*time.Millisecond),
			slow.Next(&v),
			coop.Do(func() { got2 = append(got2, v) }),
		)))
		mustRegister(t, e, "publisher", coop.Block(
			coop.Sleep(time.Millisecond),
			publishAll(pub, "A", "B"),
			coop.Sleep(10*time.Millisecond),
			pub.Publish("A"),
		))

		for range 50 {
			e.RunPending()
			c.Advance(time.Millisecond)
		}

		if diff := cmp.Diff(want, got1); diff != "" {
			t.Errorf("fast subscriber (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff(want, got2); diff != "" {
			t.Errorf("slow subscriber (-want +got):\n%s", diff)
		}
	})
}

func TestOrdering(t *testing.T) {
	const n = 20

	e, c := newExecutor(3)
	ch := pubsub.New[int](4, 2, 1)
	pub, _ := ch.Publisher()
	fast, _ := ch.Subscriber()
	slow, _ := ch.Subscriber()

	var want, got1, got2 []int
	for i := range n {
		want = append(want, i)
	}

	next := 0
	mustRegister(t, e, "publisher", coop.LoopN(n, func(co *coop.Coroutine) coop.Result {
		v := next
		next++
		return co.Transition(pub.Publish(v))
	}))
	mustRegister(t, e, "fast", collect(fast, n, &got1))
	var v int
	mustRegister(t, e, "slow", coop.LoopN(n, coop.Block(
		coop.Sleep(time.Millisecond),
		slow.Next(&v),
		coop.Do(func() { got2 = append(got2, v) }),
	)))

	for range 2 * n {
		e.RunPending()
		if ch.Len() > ch.Cap() {
			t.Fatalf("channel holds %d events, capacity is %d", ch.Len(), ch.Cap())
		}
		c.Advance(time.Millisecond)
	}

	if diff := cmp.Diff(want, got1); diff != "" {
		t.Errorf("fast subscriber (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, got2); diff != "" {
		t.Errorf("slow subscriber (-want +got):\n%s", diff)
	}
	if fast.Missed() != 0 || slow.Missed() != 0 {
		t.Errorf("missed: fast=%d slow=%d, want none", fast.Missed(), slow.Missed())
	}
}

func TestCapacity(t *testing.T) {
	t.Run("Subscribers", func(t *testing.T) {
		ch := pubsub.New[int](1, 2, 1)

		s1, err := ch.Subscriber()
		if err != nil {
			t.Fatal(err)
		}
		s2, err := ch.Subscriber()
		if err != nil {
			t.Fatal(err)
		}
		for range 3 {
			if _, err := ch.Subscriber(); !errors.Is(err, pubsub.ErrTooManySubscribers) {
				t.Fatalf("got %v, want ErrTooManySubscribers", err)
			}
		}

		s1.Close()
		s1.Close()
		if ch.Subscribers() != 1 {
			t.Fatalf("Subscribers() = %d, want 1", ch.Subscribers())
		}

		s3, err := ch.Subscriber()
		if err != nil {
			t.Fatal(err)
		}
		if s3.Slot() != 0 {
			t.Errorf("reacquired slot %d, want 0", s3.Slot())
		}
		if _, err := ch.Subscriber(); !errors.Is(err, pubsub.ErrTooManySubscribers) {
			t.Fatalf("got %v, want ErrTooManySubscribers", err)
		}

		s2.Close()
		s3.Close()
		if ch.Subscribers() != 0 {
			t.Fatalf("Subscribers() = %d, want 0", ch.Subscribers())
		}
	})

	t.Run("Publishers", func(t *testing.T) {
		ch := pubsub.New[int](1, 1, 1)

		p, err := ch.Publisher()
		if err != nil {
			t.Fatal(err)
		}
		if _, err := ch.Publisher(); !errors.Is(err, pubsub.ErrTooManyPublishers) {
			t.Fatalf("got %v, want ErrTooManyPublishers", err)
		}
		p.Close()
		if _, err := ch.Publisher(); err != nil {
			t.Fatal(err)
		}
		if _, err := ch.Publisher(); !errors.Is(err, pubsub.ErrTooManyPublishers) {
			t.Fatalf("got %v, want ErrTooManyPublishers", err)
		}
	})

	t.Run("ClosedHandle", func(t *testing.T) {
		ch := pubsub.New[int](1, 1, 1)
		p, _ := ch.Publisher()
		p.Close()
		defer func() {
			if recover() == nil {
				t.Fatal("TryPublish on a closed publisher did not panic")
			}
		}()
		p.TryPublish(1)
	})

	t.Run("BadSize", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Fatal("New did not panic")
			}
		}()
		pubsub.New[int](0, 1, 1)
	})
}

func TestBackPressure(t *testing.T) {
	e, _ := newExecutor(2)
	ch := pubsub.New[int](2, 1, 2)
	sub, _ := ch.Subscriber()
	pa, _ := ch.Publisher()
	pb, _ := ch.Publisher()

	var done []string
	mustRegister(t, e, "a", coop.Block(
		publishAll(pa, 1, 2, 3),
		coop.Do(func() { done = append(done, "a") }),
	))
	mustRegister(t, e, "b", coop.Block(
		pb.Publish(10),
		coop.Do(func() { done = append(done, "b") }),
	))
	e.RunPending()

	if ch.Len() != 2 || ch.Space() != 0 {
		t.Fatalf("Len() = %d, Space() = %d; want 2, 0", ch.Len(), ch.Space())
	}
	if len(done) != 0 {
		t.Fatalf("publishers did not block: %v", done)
	}
	if pb.TryPublish(11) {
		t.Fatal("TryPublish succeeded while the channel was full")
	}

	var got []int
	for range 4 {
		v, ok := sub.TryNext()
		if !ok {
			t.Fatalf("TryNext found nothing after %v", got)
		}
		got = append(got, v)
		e.RunPending()
	}

	if diff := cmp.Diff([]int{1, 2, 3, 10}, got); diff != "" {
		t.Errorf("received (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a", "b"}, done); diff != "" {
		t.Errorf("publishers resumed (-want +got):\n%s", diff)
	}
	if _, ok := sub.TryNext(); ok {
		t.Error("TryNext found an extra event")
	}
}

func TestCanceledPublish(t *testing.T) {
	e, _ := newExecutor(1)
	ch := pubsub.New[int](1, 1, 1)
	sub, _ := ch.Subscriber()
	pub, _ := ch.Publisher()

	var sig coop.Signal
	mustRegister(t, e, "publisher", coop.Block(
		pub.Publish(1),
		coop.Select(pub.Publish(2), coop.Await(&sig)),
		pub.Publish(3),
	))
	e.RunPending()
	e.Post(sig.Notify)
	e.RunPending()

	var got []int
	for {
		v, ok := sub.TryNext()
		if !ok {
			break
		}
		got = append(got, v)
		e.RunPending()
	}

	if diff := cmp.Diff([]int{1, 3}, got); diff != "" {
		t.Errorf("received (-want +got):\n%s", diff)
	}
}

func TestNoSubscribers(t *testing.T) {
	ch := pubsub.New[int](1, 1, 1)
	pub, _ := ch.Publisher()

	for i := range 3 {
		if !pub.TryPublish(i) {
			t.Fatalf("TryPublish(%d) failed with no subscribers", i)
		}
	}
	if ch.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", ch.Len())
	}

	sub, _ := ch.Subscriber()
	if sub.Available() != 0 {
		t.Fatalf("new subscriber sees %d old events", sub.Available())
	}
	pub.TryPublish(7)
	if v, ok := sub.TryNext(); !ok || v != 7 {
		t.Fatalf("TryNext() = %v, %v; want 7, true", v, ok)
	}
}

func TestPublishImmediate(t *testing.T) {
	e, _ := newExecutor(1)
	ch := pubsub.New[int](2, 1, 1)
	sub, _ := ch.Subscriber()
	pub, _ := ch.Publisher()

	for i := 1; i <= 3; i++ {
		pub.PublishImmediate(i)
	}
	if ch.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", ch.Len())
	}
	if sub.Available() != 2 || sub.Missed() != 1 {
		t.Fatalf("Available() = %d, Missed() = %d; want 2, 1", sub.Available(), sub.Missed())
	}

	var got []pubsub.Message[int]
	var m pubsub.Message[int]
	mustRegister(t, e, "subscriber", coop.LoopN(3, coop.Block(
		sub.NextMessage(&m),
		coop.Do(func() { got = append(got, m) }),
	)))
	e.RunPending()

	want := []pubsub.Message[int]{{Lagged: 1}, {Value: 2}, {Value: 3}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("messages (-want +got):\n%s", diff)
	}
	if sub.Missed() != 1 {
		t.Errorf("Missed() = %d, want 1", sub.Missed())
	}
}
