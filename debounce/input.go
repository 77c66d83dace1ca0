package debounce

import (
	"sync"
	"time"

	"github.com/b97tsk/coop"
)

// A Source samples the current level of one raw input line.
type Source interface {
	Level() Level
}

// An EdgeSource is a [Source] that also notifies an event whenever its level
// may have changed, so that readers need not poll.
type EdgeSource interface {
	Source
	Edge() coop.Event
}

// A Poster runs functions on the goroutine of an executor.
// [*coop.Executor] implements Poster.
type Poster interface {
	Post(f func())
}

// A Line is an [EdgeSource] fed from outside the executor, e.g. by a
// goroutine reading a keyboard or by an interrupt handler.
//
// Set is safe for concurrent use; the edge is notified on the executor's
// goroutine via the Poster the Line was created with.
type Line struct {
	p     Poster
	mu    sync.Mutex
	level Level
	edge  coop.Signal
}

// NewLine creates a [Line] starting at the given level.
func NewLine(p Poster, initial Level) *Line {
	return &Line{p: p, level: initial}
}

// Set sets the level of l.
func (l *Line) Set(level Level) {
	l.mu.Lock()
	changed := l.level != level
	l.level = level
	l.mu.Unlock()

	if changed {
		l.p.Post(l.edge.Notify)
	}
}

// Level implements the [Source] interface.
func (l *Line) Level() Level {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// Edge implements the [EdgeSource] interface.
func (l *Line) Edge() coop.Event {
	return &l.edge
}

// InputConfig configures an [Input].
type InputConfig struct {
	// Initial is the level the input is assumed stable on at startup.
	Initial Level

	// Active is the level whose confirmation counts as an activation.
	Active Level

	// Window is how long a new level must persist to be confirmed.
	Window time.Duration

	// PollInterval is how often a plain Source is sampled while stable.
	// Ignored for an EdgeSource. Defaults to DefaultPollInterval.
	PollInterval time.Duration
}

// DefaultPollInterval is the poll interval used when
// InputConfig.PollInterval is zero.
const DefaultPollInterval = time.Millisecond

// An Input is one debounced input line.
//
// The debounce state lives in the Input, not in the task waiting on it,
// so a wait that is canceled (for example by losing a [coop.Select]) loses
// no progress.
type Input struct {
	src    Source
	edge   EdgeSource
	filter *Filter
	poll   time.Duration
}

// NewInput creates an [Input] reading from src.
func NewInput(src Source, cfg InputConfig) *Input {
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	in := &Input{
		src:    src,
		filter: NewFilter(cfg.Initial, cfg.Active, cfg.Window),
		poll:   poll,
	}
	if edge, ok := src.(EdgeSource); ok {
		in.edge = edge
	}
	return in
}

// Filter returns the filter of in.
func (in *Input) Filter() *Filter {
	return in.filter
}

// AwaitActivation returns a [coop.Task] that awaits until in confirms
// a change to its active level, and then ends.
//
// The line is sampled whenever it notifies an edge (or every poll interval
// for a plain Source) and when a candidate level becomes old enough to be
// confirmed.
func (in *Input) AwaitActivation() coop.Task {
	return func(co *coop.Coroutine) coop.Result {
		e := co.Executor()
		now := e.Now()

		if in.filter.Sample(in.src.Level(), now) {
			return co.End()
		}

		wake, ok := in.filter.Deadline()

		if in.edge != nil {
			co.Watch(in.edge.Edge())
		} else if next := now.Add(in.poll); !ok || next.Before(wake) {
			wake, ok = next, true
		}

		if ok {
			t := e.NewTimer(wake)
			co.Cleanup(t)
			co.Watch(t)
		}

		return co.Yield()
	}
}
