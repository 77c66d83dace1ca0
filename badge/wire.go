package badge

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/b97tsk/coop"
	"github.com/b97tsk/coop/debounce"
	"github.com/b97tsk/coop/pubsub"
	"github.com/b97tsk/coop/static"
)

// ErrNoLEDs is returned by [Wire] when [Devices] has no LED strip.
var ErrNoLEDs = errors.New("badge: no LEDs")

// Devices are the peripherals the tasks drive.
type Devices struct {
	// LEDs is required.
	LEDs LEDs

	// Display is optional; without it there is no owl.
	Display Display

	// Buttons maps events to the raw lines of their buttons.
	// Events without a line are never published.
	Buttons map[Event]debounce.Source

	// Bus, if not nil, is shared by LED and display flushes.
	Bus *coop.Semaphore
}

// Options tune the tasks [Wire] registers.
type Options struct {
	// Channel sizes. Subscribers must leave room for every consumer.
	Capacity    int
	Subscribers int
	Publishers  int

	// Inputs returns the debounce configuration of the button for e.
	Inputs func(e Event) debounce.InputConfig

	// Rainbow makes the LEDs cycle through colors instead of following
	// button presses.
	Rainbow       bool
	RainbowPeriod time.Duration

	// Hold is how long the LEDs keep a color before taking the next event.
	Hold time.Duration

	// Heartbeat is the period of the coordinator's liveness message.
	Heartbeat time.Duration
}

// Wired is what [Wire] built.
type Wired struct {
	Channel *pubsub.Channel[Event]
	LEDs    *LEDs
	Display *Display
}

// Wire promotes devices into arena, builds the event channel, takes
// a handle for every task, and registers the tasks with e.
//
// Any failure means the badge cannot run as configured; Wire returns it
// and the caller must not start e.
func Wire(e *coop.Executor, arena *static.Arena, dev Devices, opts Options, log *slog.Logger) (*Wired, error) {
	if dev.LEDs == nil {
		return nil, ErrNoLEDs
	}
	if opts.Capacity <= 0 || opts.Subscribers <= 0 || opts.Publishers <= 0 {
		return nil, fmt.Errorf("badge: bad channel size %d/%d/%d", opts.Capacity, opts.Subscribers, opts.Publishers)
	}
	if opts.Rainbow && opts.RainbowPeriod <= 0 {
		return nil, fmt.Errorf("badge: bad rainbow period %v", opts.RainbowPeriod)
	}

	var w Wired
	var err error

	if w.LEDs, err = static.Promote(arena, "leds", dev.LEDs); err != nil {
		return nil, err
	}
	if dev.Display != nil {
		if w.Display, err = static.Promote(arena, "display", dev.Display); err != nil {
			return nil, err
		}
	}

	ch := pubsub.New[Event](opts.Capacity, opts.Subscribers, opts.Publishers)
	w.Channel = ch

	type registration struct {
		name string
		task coop.Task
	}
	var tasks []registration
	add := func(name string, t coop.Task) {
		tasks = append(tasks, registration{name, t})
	}

	if opts.Rainbow {
		add("rainbow", RainbowTask(*w.LEDs, opts.RainbowPeriod, dev.Bus, log.With("task", "rainbow")))
	} else {
		sub, err := ch.Subscriber()
		if err != nil {
			return nil, fmt.Errorf("led task: %w", err)
		}
		add("leds", LEDTask(sub, *w.LEDs, opts.Hold, dev.Bus, log.With("task", "leds")))
	}

	if w.Display != nil {
		sub, err := ch.Subscriber()
		if err != nil {
			return nil, fmt.Errorf("display task: %w", err)
		}
		add("display", OwlTask(sub, *w.Display, dev.Bus, log.With("task", "display")))
	}

	var inputs []*debounce.Input
	var events []Event
	for _, ev := range Events() {
		src, ok := dev.Buttons[ev]
		if !ok {
			continue
		}
		var cfg debounce.InputConfig
		if opts.Inputs != nil {
			cfg = opts.Inputs(ev)
		}
		inputs = append(inputs, debounce.NewInput(src, cfg))
		events = append(events, ev)
	}
	if len(inputs) != 0 {
		pub, err := ch.Publisher()
		if err != nil {
			return nil, fmt.Errorf("button task: %w", err)
		}
		add("buttons", InputTask(inputs, events, pub, log.With("task", "buttons")))
	}

	sub, err := ch.Subscriber()
	if err != nil {
		return nil, fmt.Errorf("coordinator task: %w", err)
	}
	add("coordinator", CoordinatorTask(sub, opts.Heartbeat, log.With("task", "coordinator")))

	for _, t := range tasks {
		if err := e.Register(t.name, t.task); err != nil {
			return nil, err
		}
	}

	log.Info("badge wired", "tasks", e.Tasks(), "subscribers", ch.Subscribers(), "publishers", ch.Publishers())

	return &w, nil
}
