package sim

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/b97tsk/coop"
	"github.com/b97tsk/coop/badge"
	"github.com/b97tsk/coop/clock"
	"github.com/b97tsk/coop/debounce"
	"github.com/muesli/termenv"
)

func TestStrip(t *testing.T) {
	var buf bytes.Buffer
	s := NewStrip(termenv.NewOutput(&buf, termenv.WithProfile(termenv.TrueColor)), 3)

	s.Fill(color.RGBA{R: 80, A: 255})
	s.Set(1, badge.ColorFor(badge.Select))
	if err := s.Flush(); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "\r") {
		t.Errorf("strip does not redraw its line: %q", out)
	}
	if n := strings.Count(out, Bulb); n != 3 {
		t.Errorf("drew %d bulbs, want 3", n)
	}
	if n := strings.Count(out, "38;2;"); n != 3 {
		t.Errorf("drew %d colored bulbs, want 3: %q", n, out)
	}
	if s.Len() != 3 {
		t.Errorf("Len() = %d, want 3", s.Len())
	}
}

func TestScreen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.png")
	s := NewScreen(320, 170, path)
	red := color.RGBA{R: 255, A: 255}

	if err := s.FillRect(image.Rect(0, 0, 320, 170), color.Black); err != nil {
		t.Fatal(err)
	}
	if err := s.FillRect(image.Rect(10, 10, 20, 20), red); err != nil {
		t.Fatal(err)
	}
	if err := s.DrawCircle(image.Pt(120, 60), 80, color.White); err != nil {
		t.Fatal(err)
	}
	if err := s.DrawLine(image.Pt(153, 42), image.Pt(160, 52), color.White); err != nil {
		t.Fatal(err)
	}
	if err := s.DrawText(badge.Caption, image.Pt(75, 169), color.White); err != nil {
		t.Fatal(err)
	}

	t.Run("OutOfBounds", func(t *testing.T) {
		errs := []error{
			s.FillRect(image.Rect(300, 0, 330, 10), red),
			s.DrawCircle(image.Pt(250, 0), 80, red),
			s.DrawLine(image.Pt(0, 0), image.Pt(0, 200), red),
			s.DrawText(badge.Caption, image.Pt(300, 169), red),
		}
		for i, err := range errs {
			if !errors.Is(err, ErrOutOfBounds) {
				t.Errorf("drawing %d: got %v, want ErrOutOfBounds", i, err)
			}
		}
	})

	if got := color.RGBAModel.Convert(s.Image().At(15, 15)); got != red {
		t.Errorf("At(15, 15) = %v, want %v", got, red)
	}

	if err := s.Flush(); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds() != s.Bounds() {
		t.Errorf("saved frame is %v, want %v", img.Bounds(), s.Bounds())
	}
}

func newKeyboard(t *testing.T) (*Keyboard, *clock.FakeClock) {
	t.Helper()
	c := clock.Fake(time.Unix(0, 0))
	e := coop.NewExecutor(1, c)
	keys := map[byte]badge.Event{'a': badge.Left, 'd': badge.Right}
	return NewKeyboard(e, c, keys, debounce.High, 100*time.Millisecond), c
}

func TestKeyboard(t *testing.T) {
	t.Run("Release", func(t *testing.T) {
		k, c := newKeyboard(t)
		left := k.Buttons()[badge.Left]

		if err := k.Run(context.Background(), strings.NewReader("a?")); err != nil {
			t.Fatal(err)
		}
		if left.Level() != debounce.High {
			t.Fatal("key press did not hold the button down")
		}
		if k.Buttons()[badge.Right].Level() != debounce.Low {
			t.Error("unrelated button pressed")
		}

		c.Advance(60 * time.Millisecond)
		k.Press(badge.Left)
		c.Advance(60 * time.Millisecond)
		if left.Level() != debounce.High {
			t.Error("key repeat did not keep the button down")
		}

		c.Advance(40 * time.Millisecond)
		if left.Level() != debounce.Low {
			t.Error("button not released")
		}
	})

	t.Run("Interrupt", func(t *testing.T) {
		k, _ := newKeyboard(t)
		err := k.Run(context.Background(), strings.NewReader("d\x03a"))
		if !errors.Is(err, ErrInterrupted) {
			t.Fatalf("Run() = %v, want ErrInterrupted", err)
		}
		if k.Buttons()[badge.Left].Level() != debounce.Low {
			t.Error("key after Ctrl-C was handled")
		}
	})

	t.Run("Canceled", func(t *testing.T) {
		k, _ := newKeyboard(t)
		r, w := io.Pipe()
		defer w.Close()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := k.Run(ctx, r); !errors.Is(err, context.Canceled) {
			t.Fatalf("Run() = %v, want context.Canceled", err)
		}
	})
}
