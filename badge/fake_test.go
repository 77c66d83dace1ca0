package badge_test

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/b97tsk/coop"
	"github.com/b97tsk/coop/clock"
	"github.com/lucasb-eyer/go-colorful"
)

var errDevice = errors.New("device error")

func hex(c color.Color) string {
	cc, _ := colorful.MakeColor(c)
	return cc.Hex()
}

type fakeLEDs struct {
	mu      sync.Mutex
	n       int
	staged  []color.Color
	flushed []string
	fail    bool
}

func newFakeLEDs(n int) *fakeLEDs {
	return &fakeLEDs{n: n, staged: make([]color.Color, n)}
}

func (l *fakeLEDs) Len() int { return l.n }

func (l *fakeLEDs) Fill(c color.Color) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.staged {
		l.staged[i] = c
	}
}

func (l *fakeLEDs) Set(i int, c color.Color) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.staged[i] = c
}

func (l *fakeLEDs) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fail {
		return errDevice
	}
	l.flushed = append(l.flushed, hex(l.staged[0]))
	return nil
}

func (l *fakeLEDs) Flushed() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.flushed)
}

// fakeDisplay records drawing calls as text.
type fakeDisplay struct {
	mu      sync.Mutex
	bounds  image.Rectangle
	ops     []string
	flushes int
	fail    map[string]bool // by operation kind
}

func newFakeDisplay() *fakeDisplay {
	return &fakeDisplay{bounds: image.Rect(0, 0, 320, 170), fail: make(map[string]bool)}
}

func (d *fakeDisplay) record(kind, format string, args ...any) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail[kind] {
		return errDevice
	}
	d.ops = append(d.ops, kind+" "+fmt.Sprintf(format, args...))
	return nil
}

func (d *fakeDisplay) Bounds() image.Rectangle { return d.bounds }

func (d *fakeDisplay) FillRect(r image.Rectangle, c color.Color) error {
	return d.record("fill", "%v %s", r, hex(c))
}

func (d *fakeDisplay) DrawCircle(topLeft image.Point, diameter int, stroke color.Color) error {
	return d.record("circle", "%v %d", topLeft, diameter)
}

func (d *fakeDisplay) DrawLine(from, to image.Point, stroke color.Color) error {
	return d.record("line", "%v %v", from, to)
}

func (d *fakeDisplay) DrawText(text string, bottomLeft image.Point, c color.Color) error {
	return d.record("text", "%q %v", text, bottomLeft)
}

func (d *fakeDisplay) Flush() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.flushes++
	return nil
}

// Take returns the recorded operations and forgets them.
func (d *fakeDisplay) Take() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	ops := d.ops
	d.ops = nil
	return ops
}

func (d *fakeDisplay) Flushes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.flushes
}

func newExecutor(capacity int) (*coop.Executor, *clock.FakeClock) {
	c := clock.Fake(time.Unix(0, 0))
	return coop.NewExecutor(capacity, c), c
}

func newLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	h := slog.NewTextHandler(&buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			return a
		},
	})
	return slog.New(h), &buf
}

func mustRegister(t *testing.T, e *coop.Executor, name string, task coop.Task) {
	t.Helper()
	if err := e.Register(name, task); err != nil {
		t.Fatal(err)
	}
}
