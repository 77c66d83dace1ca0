// Package pubsub implements a fixed-capacity broadcast channel for
// coroutines of a [coop.Executor].
//
// A [Channel] keeps the most recent events in a ring buffer. Every
// [Subscriber] has its own read cursor and observes every event published
// after it subscribed, in publish order. A [Publisher] that finds the ring
// full relative to the slowest subscriber suspends until that subscriber
// catches up; nothing is dropped unless [Publisher.PublishImmediate] is used.
//
// A Channel, and every handle to it, must not be shared by more than one
// [coop.Executor].
package pubsub

import (
	"errors"
	"slices"

	"github.com/b97tsk/coop"
)

var (
	// ErrTooManySubscribers is returned by [Channel.Subscriber] when every
	// subscriber slot is held.
	ErrTooManySubscribers = errors.New("pubsub: too many subscribers")

	// ErrTooManyPublishers is returned by [Channel.Publisher] when every
	// publisher slot is held.
	ErrTooManyPublishers = errors.New("pubsub: too many publishers")
)

// A Channel is a broadcast channel of capacity C, with at most S
// subscribers and P publishers at a time.
//
// Events are sequence-numbered. The channel retains events from the oldest
// one some subscriber has not yet read up to the latest one.
type Channel[T any] struct {
	buf  []T
	head uint64 // sequence number of the oldest retained event
	tail uint64 // sequence number of the next event to publish

	subs []*Subscriber[T]
	pubs []bool
	nsub int
	npub int

	readable coop.Signal
	waiters  []*waiter[T]
}

// New creates a [Channel] with the given capacity and maximum numbers of
// subscribers and publishers.
//
// New panics if any of them is not positive.
func New[T any](capacity, subscribers, publishers int) *Channel[T] {
	if capacity <= 0 || subscribers <= 0 || publishers <= 0 {
		panic("pubsub: non-positive channel size")
	}
	return &Channel[T]{
		buf:  make([]T, capacity),
		subs: make([]*Subscriber[T], subscribers),
		pubs: make([]bool, publishers),
	}
}

// Cap returns the capacity of c.
func (c *Channel[T]) Cap() int {
	return len(c.buf)
}

// Len returns the number of events retained by c, i.e. the number of
// unread events of the slowest subscriber.
func (c *Channel[T]) Len() int {
	return int(c.tail - c.head)
}

// Space returns the number of events that can be published before
// a publisher would have to wait.
func (c *Channel[T]) Space() int {
	return len(c.buf) - c.Len()
}

// Subscribers returns the number of subscribers currently held.
func (c *Channel[T]) Subscribers() int {
	return c.nsub
}

// Publishers returns the number of publishers currently held.
func (c *Channel[T]) Publishers() int {
	return c.npub
}

// Subscriber takes a free subscriber slot.
// The returned [Subscriber] observes events published from now on.
func (c *Channel[T]) Subscriber() (*Subscriber[T], error) {
	i := slices.Index(c.subs, nil)
	if i == -1 {
		return nil, ErrTooManySubscribers
	}
	s := &Subscriber[T]{ch: c, slot: i, cursor: c.tail}
	c.subs[i] = s
	c.nsub++
	return s, nil
}

// Publisher takes a free publisher slot.
func (c *Channel[T]) Publisher() (*Publisher[T], error) {
	i := slices.Index(c.pubs, false)
	if i == -1 {
		return nil, ErrTooManyPublishers
	}
	c.pubs[i] = true
	c.npub++
	return &Publisher[T]{ch: c, slot: i}, nil
}

func (c *Channel[T]) full() bool {
	return c.nsub != 0 && c.Len() == len(c.buf)
}

// write appends v. With no subscriber around, v is discarded since nobody
// could ever read it.
func (c *Channel[T]) write(v T) {
	if c.nsub == 0 {
		return
	}
	c.buf[c.tail%uint64(len(c.buf))] = v
	c.tail++
	c.readable.Notify()
}

// dropOldest makes room for one more event by discarding the oldest one.
func (c *Channel[T]) dropOldest() {
	var zero T
	c.buf[c.head%uint64(len(c.buf))] = zero
	c.head++
}

// release moves head past events every subscriber has read, and then hands
// the freed slots to waiting publishers in the order they began waiting.
func (c *Channel[T]) release() {
	head := c.tail
	for _, s := range c.subs {
		if s != nil {
			head = min(head, max(s.cursor, c.head))
		}
	}

	var zero T
	for ; c.head < head; c.head++ {
		c.buf[c.head%uint64(len(c.buf))] = zero
	}

	i := 0
	for _, w := range c.waiters {
		if c.full() {
			break
		}
		c.write(w.value)
		w.value = zero
		w.done = true
		w.Notify()
		i++
	}
	c.waiters = slices.Delete(c.waiters, 0, i)
}

func (c *Channel[T]) removeWaiter(w *waiter[T]) {
	if i := slices.Index(c.waiters, w); i != -1 {
		c.waiters = slices.Delete(c.waiters, i, i+1)
	}
}

type waiter[T any] struct {
	coop.Signal
	ch    *Channel[T]
	value T
	done  bool
}

func (w *waiter[T]) Cleanup() {
	if !w.done {
		w.ch.removeWaiter(w)
	}
}

// A Publisher is a capability to publish events on a [Channel].
type Publisher[T any] struct {
	ch   *Channel[T]
	slot int
}

// Slot returns the index of the publisher slot p holds.
func (p *Publisher[T]) Slot() int {
	return p.slot
}

func (p *Publisher[T]) channel() *Channel[T] {
	if p.ch == nil {
		panic("pubsub: use of closed publisher")
	}
	return p.ch
}

// Close gives the publisher slot back to the channel.
// Closing a closed publisher does nothing.
func (p *Publisher[T]) Close() {
	c := p.ch
	if c == nil {
		return
	}
	c.pubs[p.slot] = false
	c.npub--
	p.ch = nil
}

// Publish returns a [coop.Task] that publishes v, and then ends.
//
// If the channel is full, or if other publishers are already waiting,
// the task awaits until a subscriber frees a slot for v. Waiting publishers
// are served in the order they began waiting. If the task is canceled
// before a slot is freed, v is not published.
func (p *Publisher[T]) Publish(v T) coop.Task {
	return func(co *coop.Coroutine) coop.Result {
		c := p.channel()
		if len(c.waiters) == 0 && !c.full() {
			c.write(v)
			return co.End()
		}
		w := &waiter[T]{ch: c, value: v}
		c.waiters = append(c.waiters, w)
		co.Cleanup(w)
		return co.Await(w).Until(func() bool { return w.done }).End()
	}
}

// TryPublish publishes v if it can do so without waiting.
// TryPublish reports false when the channel is full or when other
// publishers are waiting.
//
// One should only call this method in a [coop.Task] function.
func (p *Publisher[T]) TryPublish(v T) bool {
	c := p.channel()
	if len(c.waiters) != 0 || c.full() {
		return false
	}
	c.write(v)
	return true
}

// PublishImmediate publishes v without ever waiting. If the channel is
// full, the oldest event is discarded; subscribers that have not read it
// are told how many events they missed (see [Subscriber.Missed] and
// [Subscriber.NextMessage]).
//
// One should only call this method in a [coop.Task] function.
func (p *Publisher[T]) PublishImmediate(v T) {
	c := p.channel()
	if c.full() {
		c.dropOldest()
	}
	c.write(v)
}

// A Subscriber is a read cursor on a [Channel].
type Subscriber[T any] struct {
	ch     *Channel[T]
	slot   int
	cursor uint64
	missed uint64
}

// A Message is what [Subscriber.NextMessage] receives: either an event, or,
// when Lagged is non-zero, a notice that Lagged events were discarded
// before the subscriber could read them.
type Message[T any] struct {
	Value  T
	Lagged uint64
}

// Slot returns the index of the subscriber slot s holds.
func (s *Subscriber[T]) Slot() int {
	return s.slot
}

func (s *Subscriber[T]) channel() *Channel[T] {
	if s.ch == nil {
		panic("pubsub: use of closed subscriber")
	}
	return s.ch
}

// Close gives the subscriber slot back to the channel.
// Events that only s had yet to read are released.
// Closing a closed subscriber does nothing.
func (s *Subscriber[T]) Close() {
	c := s.ch
	if c == nil {
		return
	}
	c.subs[s.slot] = nil
	c.nsub--
	s.ch = nil
	if c.nsub == 0 {
		for c.head < c.tail {
			c.dropOldest()
		}
	}
	c.release()
}

// catchUp moves the cursor of s to the oldest retained event if events
// s had yet to read were discarded, and returns how many.
func (s *Subscriber[T]) catchUp() uint64 {
	c := s.ch
	if s.cursor >= c.head {
		return 0
	}
	n := c.head - s.cursor
	s.cursor = c.head
	s.missed += n
	return n
}

func (s *Subscriber[T]) take() (v T, ok bool) {
	c := s.ch
	if s.cursor == c.tail {
		return v, false
	}
	v = c.buf[s.cursor%uint64(len(c.buf))]
	s.cursor++
	c.release()
	return v, true
}

// Available returns the number of events s can read without waiting.
func (s *Subscriber[T]) Available() int {
	c := s.channel()
	return int(c.tail - max(s.cursor, c.head))
}

// Missed returns the total number of events discarded before s could read
// them.
func (s *Subscriber[T]) Missed() uint64 {
	c := s.channel()
	if s.cursor < c.head {
		return s.missed + c.head - s.cursor
	}
	return s.missed
}

// TryNext receives the next event if there is one.
//
// One should only call this method in a [coop.Task] function.
func (s *Subscriber[T]) TryNext() (v T, ok bool) {
	s.channel()
	s.catchUp()
	return s.take()
}

// Next returns a [coop.Task] that awaits the next event, stores it into
// dst, and then ends.
//
// Discarded events are skipped; they only show up in [Subscriber.Missed].
func (s *Subscriber[T]) Next(dst *T) coop.Task {
	return func(co *coop.Coroutine) coop.Result {
		c := s.channel()
		s.catchUp()
		if v, ok := s.take(); ok {
			*dst = v
			return co.End()
		}
		return co.Yield(&c.readable)
	}
}

// NextMessage is like [Subscriber.Next], but reports discarded events
// as a [Message] with a non-zero Lagged field before receiving the next
// event.
func (s *Subscriber[T]) NextMessage(dst *Message[T]) coop.Task {
	return func(co *coop.Coroutine) coop.Result {
		c := s.channel()
		if n := s.catchUp(); n != 0 {
			*dst = Message[T]{Lagged: n}
			return co.End()
		}
		if v, ok := s.take(); ok {
			*dst = Message[T]{Value: v}
			return co.End()
		}
		return co.Yield(&c.readable)
	}
}
