package coop

import (
	"slices"
	"sort"
)

type lesser[E any] interface {
	less(v E) bool
}

// priorityqueue keeps its elements sorted. Elements that compare equal
// come out in the order they were pushed.
type priorityqueue[E lesser[E]] struct {
	items []E
	head  int
}

func (q *priorityqueue[E]) Len() int {
	return len(q.items) - q.head
}

func (q *priorityqueue[E]) Empty() bool {
	return q.Len() == 0
}

func (q *priorityqueue[E]) Push(v E) {
	s := q.items[q.head:]
	i := sort.Search(len(s), func(i int) bool { return v.less(s[i]) })
	q.items = slices.Insert(q.items, q.head+i, v)
}

func (q *priorityqueue[E]) Peek() E {
	return q.items[q.head]
}

func (q *priorityqueue[E]) Pop() (v E) {
	var zero E

	v, q.items[q.head] = q.items[q.head], zero
	q.head++

	switch n := len(q.items); {
	case q.head == n:
		q.items, q.head = q.items[:0], 0
	case q.head > 32 && q.head > n/2:
		m := copy(q.items, q.items[q.head:])
		clear(q.items[m:])
		q.items, q.head = q.items[:m], 0
	}

	return v
}

// runqueue is the FIFO queue of resumed coroutines.
type runqueue struct {
	items []*Coroutine
	head  int
}

func (q *runqueue) push(co *Coroutine) {
	q.items = append(q.items, co)
}

func (q *runqueue) pop() (*Coroutine, bool) {
	if q.head == len(q.items) {
		return nil, false
	}
	co := q.items[q.head]
	q.items[q.head] = nil
	q.head++
	switch n := len(q.items); {
	case q.head == n:
		q.items, q.head = q.items[:0], 0
	case q.head > 32 && q.head > n/2:
		m := copy(q.items, q.items[q.head:])
		clear(q.items[m:])
		q.items, q.head = q.items[:m], 0
	}
	return co, true
}

func (q *runqueue) len() int {
	return len(q.items) - q.head
}
