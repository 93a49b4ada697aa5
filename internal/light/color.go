package light

import "fmt"

// Color is a logical RGB triple in the 0-255 range.
type Color struct {
	R, G, B uint8
}

// White is the startup target.
var White = Color{R: 255, G: 255, B: 255}

func (c Color) String() string {
	return fmt.Sprintf("%d,%d,%d", c.R, c.G, c.B)
}

// Hex returns the color as #RRGGBB.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

// Channel identifies one of the three PWM outputs.
type Channel int

const (
	Red Channel = iota
	Green
	Blue
)

// Channels lists the outputs in write order.
var Channels = [3]Channel{Red, Green, Blue}

func (ch Channel) String() string {
	switch ch {
	case Red:
		return "red"
	case Green:
		return "green"
	case Blue:
		return "blue"
	}
	return fmt.Sprintf("channel(%d)", int(ch))
}

func (c Color) channels() [3]uint8 {
	return [3]uint8{c.R, c.G, c.B}
}

func colorOf(v [3]uint8) Color {
	return Color{R: v[0], G: v[1], B: v[2]}
}

// DefaultPalette is the built-in auto-cycle sequence.
var DefaultPalette = []Color{
	{R: 255, G: 0, B: 0},
	{R: 255, G: 127, B: 0},
	{R: 255, G: 255, B: 0},
	{R: 127, G: 255, B: 0},
	{R: 0, G: 255, B: 0},
	{R: 0, G: 255, B: 127},
	{R: 0, G: 255, B: 255},
	{R: 0, G: 127, B: 255},
	{R: 0, G: 0, B: 255},
	{R: 127, G: 0, B: 255},
	{R: 255, G: 0, B: 255},
	{R: 255, G: 0, B: 127},
}
