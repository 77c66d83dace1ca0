package badge

import (
	"image"
	"image/color"
	"log/slog"
	"math"
)

// Owl dimensions, in pixels.
const (
	OwlBody = 80
	OwlHead = 50

	owlEyeDiameter = 12
	owlEyeY        = 10 // from the top of the head
	owlEyeDX       = 3  // from the middle of the head to the nearest edge
	owlBeakY       = 32 // from the top of the head
	owlBeakDX      = 7
	owlBeakDY      = 10

	// OwlTop is how far the owl stands from the top of the screen.
	OwlTop = 10
)

// Caption is the text shown under the owl.
const Caption = "HELLO I AM AN OWL"

// CaptionGlyphWidth is the advance of one caption character, used to
// center the caption.
const CaptionGlyphWidth = 10

// Step moves pos by delta and clamps the result to [lo, hi].
// The addition saturates at the limits of int32 before clamping, so it
// never wraps around.
func Step(pos, delta, lo, hi int32) int32 {
	sum := int64(pos) + int64(delta)
	sum = min(max(sum, math.MinInt32), math.MaxInt32)
	return int32(min(max(sum, int64(lo)), int64(hi)))
}

// An Owl is the drawing the display task moves around.
// X is the left edge of the owl and moves within [Min, Max]; Y is its top.
type Owl struct {
	X, Y     int32
	Min, Max int32
}

// NewOwl returns an [Owl] centered horizontally on screen.
func NewOwl(screen image.Rectangle) *Owl {
	mid := int32(screen.Min.X+screen.Max.X) / 2
	return &Owl{
		X:   mid - OwlBody/2,
		Y:   int32(screen.Min.Y) + OwlTop,
		Min: int32(screen.Min.X),
		Max: int32(screen.Max.X) - OwlBody,
	}
}

// Move moves o one pixel left or right for Left and Right events, and
// reports whether o actually moved.
func (o *Owl) Move(e Event) bool {
	old := o.X
	switch e {
	case Left:
		o.X = Step(o.X, -1, o.Min, o.Max)
	case Right:
		o.X = Step(o.X, +1, o.Min, o.Max)
	}
	return o.X != old
}

// Area returns the rectangle o covers.
func (o *Owl) Area() image.Rectangle {
	x, y := int(o.X), int(o.Y)
	return image.Rect(x, y, x+OwlBody, y+OwlBody+OwlHead)
}

// Draw strokes o onto d. Parts that fail to draw are logged and skipped.
func (o *Owl) Draw(d Display, ink color.Color, log *slog.Logger) {
	x, y := int(o.X), int(o.Y)
	mid := x + (OwlBody-OwlHead)/2 + OwlHead/2
	beakTop := y + owlBeakY
	beakTip := image.Pt(mid, beakTop+owlBeakDY)

	parts := []struct {
		name string
		draw func() error
	}{
		{"body", func() error {
			return d.DrawCircle(image.Pt(x, y+OwlHead), OwlBody, ink)
		}},
		{"head", func() error {
			return d.DrawCircle(image.Pt(x+(OwlBody-OwlHead)/2, y), OwlHead, ink)
		}},
		{"left eye", func() error {
			return d.DrawCircle(image.Pt(mid-owlEyeDX-owlEyeDiameter, y+owlEyeY), owlEyeDiameter, ink)
		}},
		{"right eye", func() error {
			return d.DrawCircle(image.Pt(mid+owlEyeDX, y+owlEyeY), owlEyeDiameter, ink)
		}},
		{"beak left side", func() error {
			return d.DrawLine(image.Pt(mid-owlBeakDX, beakTop), beakTip, ink)
		}},
		{"beak right side", func() error {
			return d.DrawLine(image.Pt(mid+owlBeakDX, beakTop), beakTip, ink)
		}},
		{"beak top", func() error {
			return d.DrawLine(image.Pt(mid-owlBeakDX, beakTop), image.Pt(mid+owlBeakDX, beakTop), ink)
		}},
	}

	for _, p := range parts {
		if err := p.draw(); err != nil {
			log.Warn("unable to draw owl", "part", p.name, "error", err)
		}
	}
}
