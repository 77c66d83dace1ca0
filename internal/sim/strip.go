// Package sim provides host stand-ins for the badge peripherals: an LED
// strip drawn on a terminal, a display rendered to PNG files and buttons
// driven by the keyboard.
package sim

import (
	"image/color"
	"io"
	"strings"
	"sync"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/muesli/termenv"
)

// Bulb is the glyph drawn for one LED.
const Bulb = "●"

// Strip is an LED strip that redraws itself on one terminal line every
// time it is flushed.
type Strip struct {
	mu     sync.Mutex
	out    *termenv.Output
	staged []colorful.Color
}

// NewStrip returns a strip of n LEDs drawn on out.
func NewStrip(out *termenv.Output, n int) *Strip {
	return &Strip{out: out, staged: make([]colorful.Color, n)}
}

func (s *Strip) Len() int { return len(s.staged) }

func (s *Strip) Fill(c color.Color) {
	cc := toColorful(c)
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.staged {
		s.staged[i] = cc
	}
}

func (s *Strip) Set(i int, c color.Color) {
	cc := toColorful(c)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staged[i] = cc
}

// Flush draws the staged colors over the current terminal line.
func (s *Strip) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var b strings.Builder
	b.WriteByte('\r')
	for _, c := range s.staged {
		b.WriteString(s.out.String(Bulb).Foreground(s.out.Color(c.Hex())).String())
	}
	_, err := io.WriteString(s.out, b.String())
	return err
}

func toColorful(c color.Color) colorful.Color {
	if cc, ok := c.(colorful.Color); ok {
		return cc
	}
	cc, _ := colorful.MakeColor(c)
	return cc
}
