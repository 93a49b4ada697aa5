// Package light is the ramping engine behind the RGB output: gamma mapped
// channels, the palette auto-cycle and the power/auto mode arbitration.
//
// Nothing in here is safe for concurrent use. A Controller is owned by one
// loop that delivers commands and polls it.
package light

import (
	"time"

	"golang.org/x/time/rate"
)

// DefaultReportInterval throttles color notifications.
const DefaultReportInterval = 5 * time.Second

// Reporter receives state notifications from the controller.
type Reporter interface {
	PowerChanged(on bool)
	ColorChanged(c Color)
	BrightnessChanged(v uint8)
}

// Settings are the tunables of a Controller. Zero values fall back to the
// package defaults.
type Settings struct {
	RampInterval   time.Duration
	CycleDuration  time.Duration
	ReportInterval time.Duration
	Palette        []Color
}

// Snapshot is a copy of the observable controller state.
type Snapshot struct {
	Power      bool
	Auto       bool
	Current    Color
	Target     Color
	Brightness uint8
	Cursor     int
}

// Controller ties the ramp, the cycle timer, the mode arbiter and the output
// together.
type Controller struct {
	ramp   *Ramp
	cycle  *Cycle
	mode   *Arbiter
	out    Output
	report Reporter
	clock  func() time.Time

	colorReports *rate.Limiter
	dirty        bool
	initializing bool
}

// NewController builds the controller in its startup state: powered on, auto
// cycling, full brightness, heading for white.
func NewController(s Settings, out Output, report Reporter, clock func() time.Time) (*Controller, error) {
	palette := s.Palette
	if len(palette) == 0 {
		palette = DefaultPalette
	}
	cycle, err := NewCycle(palette, s.CycleDuration)
	if err != nil {
		return nil, err
	}
	if report == nil {
		report = nopReporter{}
	}
	if clock == nil {
		clock = time.Now
	}
	every := s.ReportInterval
	if every <= 0 {
		every = DefaultReportInterval
	}

	return &Controller{
		ramp:         NewRamp(s.RampInterval),
		cycle:        cycle,
		mode:         NewArbiter(),
		out:          out,
		report:       report,
		clock:        clock,
		colorReports: rate.NewLimiter(rate.Every(every), 1),
		dirty:        true,
		initializing: true,
	}, nil
}

// SetPower switches the output on or off and echoes the state.
func (c *Controller) SetPower(on bool) {
	c.mode.SetPower(on)
	c.dirty = true
	c.report.PowerChanged(on)
}

// SetColor retargets the ramp and suspends automatic cycling.
func (c *Controller) SetColor(col Color) {
	c.mode.ManualColor()
	c.applyColor(col, c.clock())
}

// SetBrightness takes effect on the next poll without ramping.
func (c *Controller) SetBrightness(v uint8) {
	c.ramp.SetBrightness(v)
	c.dirty = true
	c.report.BrightnessChanged(v)
}

// Connected handles the first registration with the command interface. Only
// the first call has an effect: the light is forced on.
func (c *Controller) Connected() {
	if !c.initializing {
		return
	}
	c.initializing = false
	c.SetPower(true)
}

// Poll advances the cycle timer (in auto mode) and the ramp, then refreshes
// the outputs if anything visible changed. It never blocks.
func (c *Controller) Poll(now time.Time) error {
	if c.mode.Auto() {
		if col, ok := c.cycle.Tick(now); ok {
			c.applyColor(col, now)
		}
	}

	_, changed := c.ramp.Tick(now)
	if !changed && !c.dirty {
		return nil
	}
	c.dirty = false
	if c.out == nil {
		return nil
	}
	return Drive(c.out, c.ramp.DutyCycles(), c.ramp.Brightness(), c.mode.Power())
}

func (c *Controller) applyColor(col Color, now time.Time) {
	c.ramp.SetTargets(col)
	if c.colorReports.AllowN(now, 1) {
		c.report.ColorChanged(col)
	}
}

// Snapshot copies the current state.
func (c *Controller) Snapshot() Snapshot {
	return Snapshot{
		Power:      c.mode.Power(),
		Auto:       c.mode.Auto(),
		Current:    c.ramp.Current(),
		Target:     c.ramp.Target(),
		Brightness: c.ramp.Brightness(),
		Cursor:     c.cycle.Cursor(),
	}
}

// DutyCycles returns the gamma corrected current values, before brightness
// and power are applied.
func (c *Controller) DutyCycles() [3]uint16 {
	return c.ramp.DutyCycles()
}

type nopReporter struct{}

func (nopReporter) PowerChanged(bool)       {}
func (nopReporter) ColorChanged(Color)      {}
func (nopReporter) BrightnessChanged(uint8) {}
