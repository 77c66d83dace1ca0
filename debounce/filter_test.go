package debounce_test

import (
	"testing"
	"time"

	"github.com/b97tsk/coop/debounce"
)

func ms(n int) time.Time {
	return time.Unix(0, 0).Add(time.Duration(n) * time.Millisecond)
}

type sample struct {
	at    int
	level debounce.Level
}

func TestFilter(t *testing.T) {
	const window = 20 * time.Millisecond

	t.Run("Transitions", func(t *testing.T) {
		f := debounce.NewFilter(debounce.Low, debounce.High, window)

		if f.Sample(debounce.Low, ms(0)) {
			t.Fatal("stable sample confirmed something")
		}
		if _, _, ok := f.Pending(); ok {
			t.Fatal("stable sample made a candidate")
		}

		f.Sample(debounce.High, ms(5))
		if l, since, ok := f.Pending(); !ok || l != debounce.High || !since.Equal(ms(5)) {
			t.Fatalf("Pending() = %v, %v, %v; want high since 5ms", l, since, ok)
		}
		if d, ok := f.Deadline(); !ok || !d.Equal(ms(25)) {
			t.Fatalf("Deadline() = %v, %v; want 25ms", d, ok)
		}

		if f.Sample(debounce.High, ms(24)) {
			t.Fatal("confirmed before the window elapsed")
		}
		if !f.Sample(debounce.High, ms(25)) {
			t.Fatal("not confirmed once the window elapsed")
		}
		if f.Stable() != debounce.High {
			t.Fatalf("Stable() = %v, want high", f.Stable())
		}
		if f.Sample(debounce.High, ms(100)) {
			t.Fatal("confirmed twice")
		}

		f.Sample(debounce.Low, ms(110))
		if f.Sample(debounce.Low, ms(130)) {
			t.Fatal("confirming the inactive level reported an activation")
		}
		if f.Stable() != debounce.Low {
			t.Fatalf("Stable() = %v, want low", f.Stable())
		}
	})

	t.Run("Chatter", func(t *testing.T) {
		f := debounce.NewFilter(debounce.Low, debounce.High, window)

		f.Sample(debounce.High, ms(0))
		f.Sample(debounce.Low, ms(19))
		if _, _, ok := f.Pending(); ok {
			t.Fatal("disagreeing sample did not end candidacy")
		}
		if f.Sample(debounce.High, ms(21)) {
			t.Fatal("candidacy was not restarted")
		}
		if f.Sample(debounce.High, ms(40)) {
			t.Fatal("confirmed before the restarted window elapsed")
		}
		if !f.Sample(debounce.High, ms(41)) {
			t.Fatal("not confirmed after the restarted window")
		}
	})

	t.Run("Scenario", func(t *testing.T) {
		f := debounce.NewFilter(debounce.Low, debounce.High, window)

		samples := []sample{
			{0, debounce.Low},
			{5, debounce.High},
			{8, debounce.Low},
		}
		for at := 10; at <= 35; at++ {
			samples = append(samples, sample{at, debounce.High})
		}

		var confirmed []int
		for _, s := range samples {
			if f.Sample(s.level, ms(s.at)) {
				confirmed = append(confirmed, s.at)
			}
		}

		if len(confirmed) != 1 || confirmed[0] != 30 {
			t.Fatalf("confirmed at %v, want [30]", confirmed)
		}
	})

	t.Run("ActiveLow", func(t *testing.T) {
		f := debounce.NewFilter(debounce.High, debounce.Low, window)
		f.Sample(debounce.Low, ms(0))
		if !f.Sample(debounce.Low, ms(20)) {
			t.Fatal("active-low press not confirmed")
		}
	})

	t.Run("NegativeWindow", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Fatal("NewFilter did not panic")
			}
		}()
		debounce.NewFilter(debounce.Low, debounce.High, -time.Millisecond)
	})
}

func TestLevelString(t *testing.T) {
	for l, want := range map[debounce.Level]string{
		debounce.Low:  "low",
		debounce.High: "high",
		7:             "Level(7)",
	} {
		if got := l.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", l, got, want)
		}
	}
}
