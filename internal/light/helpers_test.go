package light

import (
	"errors"
	"time"
)

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{now: epoch} }

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) Advance(d time.Duration) time.Time {
	f.now = f.now.Add(d)
	return f.now
}

type recordingOutput struct {
	levels [3]uint16
	writes int
	fail   error
}

func (o *recordingOutput) Write(ch Channel, duty uint16) error {
	if o.fail != nil {
		return o.fail
	}
	o.levels[ch] = duty
	o.writes++
	return nil
}

type recordingReporter struct {
	power      []bool
	colors     []Color
	brightness []uint8
}

func (r *recordingReporter) PowerChanged(on bool)      { r.power = append(r.power, on) }
func (r *recordingReporter) ColorChanged(c Color)      { r.colors = append(r.colors, c) }
func (r *recordingReporter) BrightnessChanged(v uint8) { r.brightness = append(r.brightness, v) }

var errBroken = errors.New("broken pin")
