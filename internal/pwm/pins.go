package pwm

import (
	"github.com/pkg/errors"
)

// MaxPin is the highest BCM GPIO number the SoC exposes.
const MaxPin = 53

// HardwareChannel reports which of the two hardware PWM channels a GPIO is
// routed to. Pins on the same channel share one duty register.
func HardwareChannel(pin int) (int, bool) {
	switch pin {
	case 12, 18, 40:
		return 0, true
	case 13, 19, 41, 45:
		return 1, true
	}
	return 0, false
}

// CheckPins verifies that the red, green and blue pins can be driven
// independently: distinct GPIOs, and at most one pin per hardware channel.
// Pins without a hardware channel are driven in software.
func CheckPins(pins [3]int) error {
	var owner [2]int
	for i, pin := range pins {
		if pin < 0 || pin > MaxPin {
			return errors.Errorf("gpio %d out of range 0-%d", pin, MaxPin)
		}
		for _, other := range pins[:i] {
			if pin == other {
				return errors.Errorf("gpio %d used twice", pin)
			}
		}
		ch, ok := HardwareChannel(pin)
		if !ok {
			continue
		}
		if prev := owner[ch]; prev != 0 {
			return errors.Errorf("gpio %d and gpio %d share pwm channel %d", prev, pin, ch)
		}
		owner[ch] = pin
	}
	return nil
}
