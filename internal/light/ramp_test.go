package light

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rgblight-controller/internal/gamma"
)

func stepAbs(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

func TestRampStartupState(t *testing.T) {
	r := NewRamp(0)
	assert.Equal(t, Color{}, r.Current())
	assert.Equal(t, White, r.Target())
	assert.Equal(t, uint8(255), r.Brightness())
	assert.Equal(t, DefaultRampInterval, r.interval)
}

func TestRampConverges(t *testing.T) {
	targets := []Color{
		{R: 10, G: 200, B: 0},
		{R: 255, G: 0, B: 77},
		{R: 3, G: 3, B: 3},
		{R: 0, G: 255, B: 255},
	}

	r := NewRamp(time.Millisecond)
	now := epoch
	for _, target := range targets {
		r.SetTargets(target)
		for i := 0; i < 255; i++ {
			now = now.Add(time.Millisecond)
			r.Tick(now)
		}
		assert.Equal(t, target, r.Current())
		assert.True(t, r.Converged())
	}
}

func TestRampStepsByOneWithoutOvershoot(t *testing.T) {
	r := NewRamp(time.Millisecond)
	r.SetTargets(Color{R: 5, G: 0, B: 2})
	now := epoch

	for i := 0; i < 20; i++ {
		before := r.Current()
		now = now.Add(time.Millisecond)
		fired, _ := r.Tick(now)
		require.True(t, fired)
		after := r.Current()

		b, a, tg := before.channels(), after.channels(), r.Target().channels()
		for ch := range a {
			assert.LessOrEqual(t, stepAbs(a[ch], b[ch]), 1)
			// Distance to target never grows and never crosses it.
			assert.LessOrEqual(t, stepAbs(a[ch], tg[ch]), stepAbs(b[ch], tg[ch]))
		}
	}
	assert.Equal(t, Color{R: 5, G: 0, B: 2}, r.Current())
}

func TestRampIndependentChannels(t *testing.T) {
	r := NewRamp(time.Millisecond)
	r.SetTargets(Color{R: 2, G: 4, B: 0})
	now := epoch

	for i := 0; i < 2; i++ {
		now = now.Add(time.Millisecond)
		r.Tick(now)
	}
	assert.Equal(t, Color{R: 2, G: 2, B: 0}, r.Current())

	now = now.Add(time.Millisecond)
	_, changed := r.Tick(now)
	assert.True(t, changed)
	assert.Equal(t, Color{R: 2, G: 3, B: 0}, r.Current())
}

func TestRampWaitsForInterval(t *testing.T) {
	r := NewRamp(time.Millisecond)

	fired, changed := r.Tick(epoch)
	assert.True(t, fired)
	assert.True(t, changed)
	assert.Equal(t, Color{R: 1, G: 1, B: 1}, r.Current())

	fired, changed = r.Tick(epoch.Add(999 * time.Microsecond))
	assert.False(t, fired)
	assert.False(t, changed)
	assert.Equal(t, Color{R: 1, G: 1, B: 1}, r.Current())

	fired, _ = r.Tick(epoch.Add(time.Millisecond))
	assert.True(t, fired)
	assert.Equal(t, Color{R: 2, G: 2, B: 2}, r.Current())
}

func TestRampRedirectMidway(t *testing.T) {
	r := NewRamp(time.Millisecond)
	now := epoch
	for i := 0; i < 10; i++ {
		now = now.Add(time.Millisecond)
		r.Tick(now)
	}
	require.Equal(t, Color{R: 10, G: 10, B: 10}, r.Current())

	r.SetTargets(Color{})
	now = now.Add(time.Millisecond)
	r.Tick(now)
	assert.Equal(t, Color{R: 9, G: 9, B: 9}, r.Current())
}

func TestRampConvergedTickIsQuiet(t *testing.T) {
	r := NewRamp(time.Millisecond)
	r.SetTargets(Color{})
	fired, changed := r.Tick(epoch)
	assert.True(t, fired)
	assert.False(t, changed)
}

func TestRampDutyCycles(t *testing.T) {
	r := NewRamp(time.Millisecond)
	r.current = [3]uint8{0, 128, 255}
	d := r.DutyCycles()
	assert.Equal(t, gamma.DutyCycle(0), d[0])
	assert.Equal(t, gamma.DutyCycle(128), d[1])
	assert.Equal(t, uint16(gamma.MaxDuty), d[2])
}
