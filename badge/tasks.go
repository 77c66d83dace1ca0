package badge

import (
	"image"
	"image/color"
	"log/slog"
	"time"

	"github.com/b97tsk/coop"
	"github.com/b97tsk/coop/debounce"
	"github.com/b97tsk/coop/pubsub"
)

// InputTask returns a task that waits for the first of inputs to be
// activated, publishes the matching entry of events, and repeats.
//
// When several inputs are activated at once, the one that comes first in
// inputs wins; the others are picked up on the next round, since their
// debounce state is kept.
func InputTask(inputs []*debounce.Input, events []Event, pub *pubsub.Publisher[Event], log *slog.Logger) coop.Task {
	if len(inputs) != len(events) {
		panic("badge: inputs and events differ in length")
	}

	arms := make([]coop.Task, len(inputs))
	for i, in := range inputs {
		arms[i] = in.AwaitActivation()
	}

	return coop.Loop(coop.SelectThen(arms, func(i int) coop.Task {
		ev := events[i]
		return coop.Block(
			coop.Do(func() { log.Debug("button pressed", "event", ev) }),
			pub.Publish(ev),
		)
	}))
}

// LEDTask returns a task that fills leds with the color of every event it
// receives and flushes them. If hold is positive, the task then waits for
// hold before receiving the next event, letting events pile up in the
// channel.
//
// bus, if not nil, is held during flushes.
func LEDTask(sub *pubsub.Subscriber[Event], leds LEDs, hold time.Duration, bus *coop.Semaphore, log *slog.Logger) coop.Task {
	var ev Event

	body := []coop.Task{
		sub.Next(&ev),
		coop.Do(func() {
			c := ColorFor(ev)
			log.Debug("updating leds", "event", ev, "color", c.Hex())
			leds.Fill(c)
		}),
		flush(bus, "leds", leds.Flush, log),
	}
	if hold > 0 {
		body = append(body, coop.Sleep(hold))
	}

	return coop.Loop(coop.Block(body...))
}

// RainbowTask returns a task that cycles leds through [Rainbow], one color
// per period.
func RainbowTask(leds LEDs, period time.Duration, bus *coop.Semaphore, log *slog.Logger) coop.Task {
	ticker := coop.NewTicker(period)
	i := 0

	return coop.Loop(coop.Block(
		coop.Do(func() {
			leds.Fill(Rainbow[i])
			i = (i + 1) % len(Rainbow)
		}),
		flush(bus, "leds", leds.Flush, log),
		ticker.Next(),
	))
}

// OwlTask returns a task that draws an owl and a caption on d, and then
// moves the owl one pixel for every Left or Right event it receives.
// Events that do not move the owl cause no redraw.
//
// bus, if not nil, is held during flushes.
func OwlTask(sub *pubsub.Subscriber[Event], d Display, bus *coop.Semaphore, log *slog.Logger) coop.Task {
	var ev Event
	var owl *Owl

	setup := func() {
		screen := d.Bounds()
		owl = NewOwl(screen)

		if err := d.FillRect(screen, color.Black); err != nil {
			log.Warn("unable to blank display", "error", err)
		}

		mid := (screen.Min.X + screen.Max.X) / 2
		at := image.Pt(mid-len(Caption)*CaptionGlyphWidth/2, screen.Max.Y-1)
		if err := d.DrawText(Caption, at, color.White); err != nil {
			log.Warn("unable to draw text", "error", err)
		}

		owl.Draw(d, color.White, log)
	}

	move := func(co *coop.Coroutine) coop.Result {
		old := owl.Area()
		if !owl.Move(ev) {
			return co.End()
		}

		log.Debug("moving owl", "event", ev, "x", owl.X)

		if err := d.FillRect(old, color.Black); err != nil {
			log.Warn("unable to clear old owl", "error", err)
		}
		owl.Draw(d, color.White, log)

		return co.Transition(flush(bus, "display", d.Flush, log))
	}

	return coop.Block(
		coop.Do(setup),
		flush(bus, "display", d.Flush, log),
		coop.Loop(coop.Block(sub.Next(&ev), move)),
	)
}

// CoordinatorTask returns a task that logs every event it receives and,
// if heartbeat is positive, logs that it is still alive once per
// heartbeat.
func CoordinatorTask(sub *pubsub.Subscriber[Event], heartbeat time.Duration, log *slog.Logger) coop.Task {
	var ev Event

	received := coop.Do(func() {
		log.Info("received message", "event", ev)
	})

	if heartbeat <= 0 {
		return coop.Loop(coop.Block(sub.Next(&ev), received))
	}

	ticker := coop.NewTicker(heartbeat)
	alive := coop.Do(func() {
		log.Info("still alive")
	})

	return coop.Loop(coop.SelectThen(
		[]coop.Task{sub.Next(&ev), ticker.Next()},
		func(i int) coop.Task {
			if i == 0 {
				return received
			}
			return alive
		},
	))
}
