// Package badge holds the application tasks of the badge: reading buttons,
// driving the LED strip and the display, and keeping an eye on everything.
//
// Tasks talk to each other through a [pubsub.Channel] of [Event] values,
// and to hardware through the [LEDs] and [Display] interfaces.
package badge

import (
	"fmt"
	"strings"
)

// An Event is a confirmed button press.
type Event uint8

const (
	Up Event = iota
	Down
	Left
	Right
	Stick
	A
	B
	Start
	Select
)

// NumEvents is the number of distinct events, one per button.
const NumEvents = int(Select) + 1

var eventNames = [NumEvents]string{
	Up:     "Up",
	Down:   "Down",
	Left:   "Left",
	Right:  "Right",
	Stick:  "Stick",
	A:      "A",
	B:      "B",
	Start:  "Start",
	Select: "Select",
}

func (e Event) String() string {
	if int(e) < NumEvents {
		return eventNames[e]
	}
	return fmt.Sprintf("Event(%d)", uint8(e))
}

// ParseEvent returns the event named s, ignoring case.
func ParseEvent(s string) (Event, error) {
	for i, name := range eventNames {
		if strings.EqualFold(s, name) {
			return Event(i), nil
		}
	}
	return 0, fmt.Errorf("badge: unknown button %q", s)
}

// Events returns every event, in button order.
func Events() []Event {
	s := make([]Event, NumEvents)
	for i := range s {
		s[i] = Event(i)
	}
	return s
}
