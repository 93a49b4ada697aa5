package light

import (
	"time"

	"rgblight-controller/internal/gamma"
)

// DefaultRampInterval is the time between single-unit channel steps.
const DefaultRampInterval = 500 * time.Microsecond

// Ramp moves the current channel values toward their targets at one unit per
// interval. Brightness is not ramped.
type Ramp struct {
	interval   time.Duration
	current    [3]uint8
	target     [3]uint8
	brightness uint8

	last  time.Time
	fired bool
}

// NewRamp creates a ramp starting dark and heading for full white at full
// brightness.
func NewRamp(interval time.Duration) *Ramp {
	if interval <= 0 {
		interval = DefaultRampInterval
	}
	return &Ramp{
		interval:   interval,
		target:     White.channels(),
		brightness: gamma.MaxLevel,
	}
}

// SetTargets replaces the channel targets. The next ticks converge from
// wherever the current values are.
func (r *Ramp) SetTargets(c Color) {
	r.target = c.channels()
}

// SetBrightness applies v immediately.
func (r *Ramp) SetBrightness(v uint8) {
	r.brightness = v
}

// Tick steps every channel by at most one unit if a full interval has passed
// since the last step. fired reports whether the interval elapsed, changed
// whether any channel moved.
func (r *Ramp) Tick(now time.Time) (fired, changed bool) {
	if r.fired && now.Sub(r.last) < r.interval {
		return false, false
	}
	r.last = now
	r.fired = true

	for i := range r.current {
		switch {
		case r.current[i] < r.target[i]:
			r.current[i]++
			changed = true
		case r.current[i] > r.target[i]:
			r.current[i]--
			changed = true
		}
	}
	return true, changed
}

// DutyCycles returns the current channel values through the gamma table.
func (r *Ramp) DutyCycles() [3]uint16 {
	var d [3]uint16
	for i, v := range r.current {
		d[i] = gamma.DutyCycle(v)
	}
	return d
}

func (r *Ramp) Current() Color    { return colorOf(r.current) }
func (r *Ramp) Target() Color     { return colorOf(r.target) }
func (r *Ramp) Brightness() uint8 { return r.brightness }

// Converged reports whether every channel has reached its target.
func (r *Ramp) Converged() bool {
	return r.current == r.target
}
