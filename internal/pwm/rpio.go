// Package pwm holds the output backends the light controller drives.
package pwm

import (
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/stianeikeland/go-rpio/v4"

	"rgblight-controller/internal/gamma"
	"rgblight-controller/internal/light"
)

// DefaultSoftwareFrequency is the refresh rate of pins driven in software.
const DefaultSoftwareFrequency = 100

type channelOut interface {
	set(duty uint16)
	stop()
}

// hardwarePin is a GPIO routed to one of the SoC PWM channels.
type hardwarePin rpio.Pin

func (p hardwarePin) set(duty uint16) { rpio.Pin(p).DutyCycle(uint32(duty), gamma.MaxDuty) }
func (p hardwarePin) stop()           { p.set(0) }

// Rpio drives the three channels on a Raspberry Pi through /dev/gpiomem.
// Pins with a hardware PWM channel use it; the rest are driven in software.
type Rpio struct {
	outs [3]channelOut
	once sync.Once
}

// OpenRpio maps the GPIO registers and sets up one output per channel, in
// red, green, blue order. frequency is the hardware PWM frequency in Hz,
// softFrequency the one used for software driven pins.
func OpenRpio(pins [3]int, frequency, softFrequency int) (*Rpio, error) {
	if err := CheckPins(pins); err != nil {
		return nil, err
	}
	if softFrequency <= 0 {
		softFrequency = DefaultSoftwareFrequency
	}
	if err := rpio.Open(); err != nil {
		return nil, errors.Wrap(err, "open gpio")
	}

	r := &Rpio{}
	for i, n := range pins {
		pin := rpio.Pin(n)
		if ch, ok := HardwareChannel(n); ok {
			pin.Mode(rpio.Pwm)
			// The clock runs one tick per duty step.
			pin.Freq(frequency * (gamma.MaxDuty + 1))
			pin.DutyCycle(0, gamma.MaxDuty)
			r.outs[i] = hardwarePin(pin)
			log.Printf("[PWM] %s on GPIO%d, pwm%d at %d Hz", light.Channels[i], n, ch, frequency)
			continue
		}
		pin.Output()
		pin.Low()
		r.outs[i] = newSoftPWM(pin, softFrequency)
		log.Printf("[PWM] %s on GPIO%d, software at %d Hz", light.Channels[i], n, softFrequency)
	}
	return r, nil
}

// Write sets the duty cycle of one channel.
func (r *Rpio) Write(ch light.Channel, duty uint16) error {
	if ch < light.Red || ch > light.Blue {
		return errors.Errorf("unknown channel %s", ch)
	}
	if duty > gamma.MaxDuty {
		duty = gamma.MaxDuty
	}
	r.outs[ch].set(duty)
	return nil
}

// Close blanks the outputs and unmaps the registers.
func (r *Rpio) Close() error {
	var err error
	r.once.Do(func() {
		for _, out := range r.outs {
			out.stop()
		}
		err = rpio.Close()
	})
	return err
}
