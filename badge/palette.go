package badge

import "github.com/lucasb-eyer/go-colorful"

func rgb(r, g, b uint8) colorful.Color {
	return colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
}

// ButtonPalette holds one LED color per [Event], in button order.
var ButtonPalette = [NumEvents]colorful.Color{
	rgb(80, 0, 0),
	rgb(80, 80, 0),
	rgb(0, 80, 0),
	rgb(0, 80, 80),
	rgb(0, 0, 80),
	rgb(80, 0, 80),
	rgb(80, 80, 80),
	rgb(0, 0, 0),
	rgb(120, 60, 30),
}

// Rainbow is the color cycle shown by [RainbowTask].
var Rainbow = ButtonPalette[:6]

// ColorFor returns the LED color for e.
func ColorFor(e Event) colorful.Color {
	if int(e) >= NumEvents {
		return colorful.Color{}
	}
	return ButtonPalette[e]
}
