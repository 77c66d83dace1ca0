package badge

import (
	"image"
	"image/color"
	"log/slog"

	"github.com/b97tsk/coop"
)

// LEDs is an LED strip. Updates are staged with Fill and Set and only
// reach the strip on Flush.
//
// Flush blocks until the transfer completes; tasks call it through
// [coop.Go] so that other tasks keep running meanwhile.
type LEDs interface {
	Len() int
	Fill(c color.Color)
	Set(i int, c color.Color)
	Flush() error
}

// Display is a drawing surface. Every drawing call can fail; a failure
// only spoils the frame being drawn.
//
// Coordinates are in pixels, with the origin at the top left.
type Display interface {
	Bounds() image.Rectangle

	// FillRect fills r with a solid color.
	FillRect(r image.Rectangle, c color.Color) error

	// DrawCircle strokes the circle of the given diameter whose bounding
	// box has its top left corner at topLeft.
	DrawCircle(topLeft image.Point, diameter int, stroke color.Color) error

	// DrawLine strokes a line from one point to another.
	DrawLine(from, to image.Point, stroke color.Color) error

	// DrawText draws text whose bottom left corner is at bottomLeft.
	DrawText(text string, bottomLeft image.Point, c color.Color) error

	// Flush pushes the frame to the panel. Like LEDs.Flush, it blocks.
	Flush() error
}

// flush returns a task that calls f on another goroutine while holding
// bus, if any. A failure is logged, not returned.
func flush(bus *coop.Semaphore, device string, f func() error, log *slog.Logger) coop.Task {
	var err error
	t := coop.Block(
		coop.Go(func() { err = f() }),
		coop.Do(func() {
			if err != nil {
				log.Warn("flush failed", "device", device, "error", err)
			}
		}),
	)
	if bus == nil {
		return t
	}
	return coop.Block(
		bus.Acquire(1),
		t,
		coop.Do(func() { bus.Release(1) }),
	)
}
