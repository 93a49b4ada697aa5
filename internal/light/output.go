package light

import (
	"github.com/pkg/errors"

	"rgblight-controller/internal/gamma"
)

// Output is a three channel PWM sink.
type Output interface {
	Write(ch Channel, duty uint16) error
}

// Level is the duty cycle a channel should be driven at for the given
// brightness and power state.
func Level(duty uint16, brightness uint8, power bool) uint16 {
	if !power {
		return 0
	}
	return uint16(uint32(brightness) * uint32(duty) / gamma.MaxLevel)
}

// Drive writes all three channels. Every channel is attempted; the first
// failure is returned.
func Drive(out Output, duties [3]uint16, brightness uint8, power bool) error {
	var first error
	for i, ch := range Channels {
		if err := out.Write(ch, Level(duties[i], brightness, power)); err != nil && first == nil {
			first = errors.Wrapf(err, "write %s", ch)
		}
	}
	return first
}
