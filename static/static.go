// Package static promotes values built during startup into storage that
// lives for the rest of the process, so that long-lived tasks can share
// them.
//
// Go has no move semantics, so "exactly once" is a guarded runtime
// assertion: every promotion claims its slot with an atomic flag and a
// second claim on the same slot fails. Constructing the value in place with
// [Cell.InitWith] leaves no pre-promotion binding behind to misuse.
package static

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

var (
	// ErrAlreadyInitialized is returned by [Cell.TryInit] on a cell that
	// already holds a value.
	ErrAlreadyInitialized = errors.New("static: cell already initialized")

	// ErrArenaFull is returned by [Promote] when an arena has no free slot.
	ErrArenaFull = errors.New("static: arena full")

	// ErrAlreadyPromoted is returned by [Promote] when a resource with the
	// same name has already been promoted into the arena.
	ErrAlreadyPromoted = errors.New("static: already promoted")
)

// A Cell is storage for one value of type T. A Cell is meant to be declared
// as a package-level variable, or to be held by an [Arena].
//
// The zero Cell is empty and ready to use.
type Cell[T any] struct {
	claimed atomic.Bool
	value   T
}

// TryInit moves v into c and returns a pointer to the stored value, valid
// for as long as c is. It fails with [ErrAlreadyInitialized] if c has been
// initialized before.
func (c *Cell[T]) TryInit(v T) (*T, error) {
	if !c.claimed.CompareAndSwap(false, true) {
		return nil, ErrAlreadyInitialized
	}
	c.value = v
	return &c.value, nil
}

// Init is like [Cell.TryInit] but panics if c has been initialized before.
func (c *Cell[T]) Init(v T) *T {
	p, err := c.TryInit(v)
	if err != nil {
		panic(err)
	}
	return p
}

// InitWith claims c and calls f to construct the value in place.
// InitWith panics if c has been initialized before.
func (c *Cell[T]) InitWith(f func(p *T)) *T {
	if !c.claimed.CompareAndSwap(false, true) {
		panic(ErrAlreadyInitialized)
	}
	f(&c.value)
	return &c.value
}

// Initialized reports whether c has been initialized.
func (c *Cell[T]) Initialized() bool {
	return c.claimed.Load()
}

// An Arena is a fixed-size table of named slots, allocated at startup.
// Each name can be promoted into an Arena once.
//
// An Arena is safe for concurrent use.
type Arena struct {
	mu    sync.Mutex
	size  int
	slots map[string]any
	order []string
}

// NewArena creates an [Arena] with room for capacity resources.
// NewArena panics if capacity is not positive.
func NewArena(capacity int) *Arena {
	if capacity <= 0 {
		panic("static: non-positive arena capacity")
	}
	return &Arena{
		size:  capacity,
		slots: make(map[string]any, capacity),
	}
}

// Promote moves v into a free slot of a, under name, and returns a pointer
// to it, valid for the rest of the process.
//
// Promote fails with [ErrArenaFull] when a has no free slot, or with
// [ErrAlreadyPromoted] when name has been promoted before. Both mean the
// program is wired wrongly and should refuse to start.
func Promote[T any](a *Arena, name string, v T) (*T, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.slots[name]; ok {
		return nil, fmt.Errorf("promote %q: %w", name, ErrAlreadyPromoted)
	}
	if len(a.slots) == a.size {
		return nil, fmt.Errorf("promote %q: %w", name, ErrArenaFull)
	}

	c := new(Cell[T])
	p := c.Init(v)
	a.slots[name] = c
	a.order = append(a.order, name)
	return p, nil
}

// MustPromote is like [Promote] but panics on failure.
func MustPromote[T any](a *Arena, name string, v T) *T {
	p, err := Promote(a, name, v)
	if err != nil {
		panic(err)
	}
	return p
}

// Len returns the number of resources promoted into a.
func (a *Arena) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.slots)
}

// Names returns the names of the promoted resources, in promotion order.
func (a *Arena) Names() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.order...)
}
