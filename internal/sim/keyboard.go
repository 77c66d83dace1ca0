package sim

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/b97tsk/coop/badge"
	"github.com/b97tsk/coop/clock"
	"github.com/b97tsk/coop/debounce"
)

// ErrInterrupted is returned by [Keyboard.Run] when Ctrl-C is read.
var ErrInterrupted = errors.New("sim: interrupted")

const ctrlC = 0x03

// Keyboard turns key presses into button levels.
//
// A terminal reports key repeats but no key releases, so a button is
// released once its key has not been seen for the release delay.
type Keyboard struct {
	clock    clock.Clock
	keys     map[byte]badge.Event
	release  time.Duration
	pressed  debounce.Level
	released debounce.Level

	lines map[badge.Event]*debounce.Line

	mu     sync.Mutex
	timers map[badge.Event]clock.Timer
}

// NewKeyboard returns a keyboard with a button line for every event in
// keys. Lines post their edges to p.
func NewKeyboard(p debounce.Poster, c clock.Clock, keys map[byte]badge.Event, pressed debounce.Level, release time.Duration) *Keyboard {
	released := debounce.Low
	if pressed == debounce.Low {
		released = debounce.High
	}
	k := &Keyboard{
		clock:    c,
		keys:     keys,
		release:  release,
		pressed:  pressed,
		released: released,
		lines:    make(map[badge.Event]*debounce.Line),
		timers:   make(map[badge.Event]clock.Timer),
	}
	for _, ev := range keys {
		if _, ok := k.lines[ev]; !ok {
			k.lines[ev] = debounce.NewLine(p, released)
		}
	}
	return k
}

// Buttons returns the button lines, ready for badge.Devices.
func (k *Keyboard) Buttons() map[badge.Event]debounce.Source {
	m := make(map[badge.Event]debounce.Source, len(k.lines))
	for ev, l := range k.lines {
		m[ev] = l
	}
	return m
}

// Press holds the button for ev down until the release delay passes
// without another Press.
func (k *Keyboard) Press(ev badge.Event) {
	line, ok := k.lines[ev]
	if !ok {
		return
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if t, ok := k.timers[ev]; ok {
		t.Stop()
	}
	line.Set(k.pressed)
	k.timers[ev] = k.clock.AfterFunc(k.release, func() {
		line.Set(k.released)
	})
}

// Run reads keys from r until r ends, ctx is done or Ctrl-C is read.
//
// Reads from r cannot be interrupted; when ctx is done Run returns at
// once and leaves the pending read behind.
func (k *Keyboard) Run(ctx context.Context, r io.Reader) error {
	keys := make(chan byte)
	errc := make(chan error, 1)

	go func() {
		buf := make([]byte, 16)
		for {
			n, err := r.Read(buf)
			for _, b := range buf[:n] {
				select {
				case keys <- b:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				errc <- err
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errc:
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		case b := <-keys:
			if b == ctrlC {
				return ErrInterrupted
			}
			if ev, ok := k.keys[b]; ok {
				k.Press(ev)
			}
		}
	}
}
