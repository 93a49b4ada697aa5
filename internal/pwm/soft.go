package pwm

import (
	"sync"
	"sync/atomic"
	"time"

	"rgblight-controller/internal/gamma"
)

// switcher is the part of rpio.Pin a software PWM toggles.
type switcher interface {
	High()
	Low()
}

// softPWM bit-bangs a duty cycle on a plain GPIO from its own goroutine. The
// resolution is bounded by the scheduler's sleep granularity, so it runs at a
// lower frequency than the hardware channels.
type softPWM struct {
	pin    switcher
	period time.Duration
	duty   atomic.Uint32

	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func newSoftPWM(pin switcher, frequency int) *softPWM {
	s := &softPWM{
		pin:    pin,
		period: time.Second / time.Duration(frequency),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *softPWM) set(duty uint16) {
	s.duty.Store(uint32(duty))
}

func (s *softPWM) run() {
	defer close(s.done)
	defer s.pin.Low()

	for {
		select {
		case <-s.quit:
			return
		default:
		}

		duty := s.duty.Load()
		switch {
		case duty == 0:
			s.pin.Low()
			time.Sleep(s.period)
		case duty >= gamma.MaxDuty:
			s.pin.High()
			time.Sleep(s.period)
		default:
			on := s.period * time.Duration(duty) / gamma.MaxDuty
			s.pin.High()
			time.Sleep(on)
			s.pin.Low()
			time.Sleep(s.period - on)
		}
	}
}

// stop ends the loop and leaves the pin low.
func (s *softPWM) stop() {
	s.stopOnce.Do(func() { close(s.quit) })
	<-s.done
}
