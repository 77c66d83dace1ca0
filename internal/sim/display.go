package sim

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"
)

// ErrOutOfBounds is returned by [Screen] for drawings that do not fit on
// the screen.
var ErrOutOfBounds = errors.New("sim: drawing out of bounds")

// Screen is a display backed by an in-memory image. Every flush writes
// the frame to a PNG file.
type Screen struct {
	mu     sync.Mutex
	dc     *gg.Context
	bounds image.Rectangle
	path   string
}

// NewScreen returns a width by height screen whose frames are saved to
// path.
func NewScreen(width, height int, path string) *Screen {
	dc := gg.NewContext(width, height)
	dc.SetFontFace(basicfont.Face7x13)
	dc.SetLineWidth(1)
	return &Screen{
		dc:     dc,
		bounds: image.Rect(0, 0, width, height),
		path:   path,
	}
}

func (s *Screen) Bounds() image.Rectangle { return s.bounds }

func (s *Screen) check(r image.Rectangle) error {
	if !r.In(s.bounds) {
		return fmt.Errorf("%w: %v", ErrOutOfBounds, r)
	}
	return nil
}

func (s *Screen) FillRect(r image.Rectangle, c color.Color) error {
	if err := s.check(r); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dc.SetColor(c)
	s.dc.DrawRectangle(float64(r.Min.X), float64(r.Min.Y), float64(r.Dx()), float64(r.Dy()))
	s.dc.Fill()
	return nil
}

func (s *Screen) DrawCircle(topLeft image.Point, diameter int, stroke color.Color) error {
	if err := s.check(image.Rectangle{topLeft, topLeft.Add(image.Pt(diameter, diameter))}); err != nil {
		return err
	}
	r := float64(diameter) / 2
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dc.SetColor(stroke)
	s.dc.DrawCircle(float64(topLeft.X)+r, float64(topLeft.Y)+r, r-0.5)
	s.dc.Stroke()
	return nil
}

func (s *Screen) DrawLine(from, to image.Point, stroke color.Color) error {
	if !from.In(s.bounds) || !to.In(s.bounds) {
		return fmt.Errorf("%w: %v-%v", ErrOutOfBounds, from, to)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dc.SetColor(stroke)
	s.dc.DrawLine(float64(from.X), float64(from.Y), float64(to.X), float64(to.Y))
	s.dc.Stroke()
	return nil
}

func (s *Screen) DrawText(text string, bottomLeft image.Point, c color.Color) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, h := s.dc.MeasureString(text)
	box := image.Rect(bottomLeft.X, bottomLeft.Y-int(h), bottomLeft.X+int(w), bottomLeft.Y)
	if err := s.check(box); err != nil {
		return err
	}
	s.dc.SetColor(c)
	s.dc.DrawString(text, float64(bottomLeft.X), float64(bottomLeft.Y))
	return nil
}

// Flush saves the current frame.
func (s *Screen) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.path == "" {
		return nil
	}
	return s.dc.SavePNG(s.path)
}

// Image returns the current frame.
func (s *Screen) Image() image.Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dc.Image()
}
