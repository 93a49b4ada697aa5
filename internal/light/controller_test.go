package light

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rgblight-controller/internal/gamma"
)

type controllerFixture struct {
	ctrl   *Controller
	clock  *fakeClock
	out    *recordingOutput
	report *recordingReporter
}

func newFixture(t *testing.T, s Settings) *controllerFixture {
	t.Helper()
	f := &controllerFixture{
		clock:  newFakeClock(),
		out:    &recordingOutput{},
		report: &recordingReporter{},
	}
	ctrl, err := NewController(s, f.out, f.report, f.clock.Now)
	require.NoError(t, err)
	f.ctrl = ctrl
	return f
}

// run polls n times, one ramp interval apart.
func (f *controllerFixture) run(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, f.ctrl.Poll(f.clock.Advance(DefaultRampInterval)))
	}
}

func TestControllerStartupState(t *testing.T) {
	f := newFixture(t, Settings{})
	s := f.ctrl.Snapshot()
	assert.True(t, s.Power)
	assert.True(t, s.Auto)
	assert.Equal(t, uint8(255), s.Brightness)
	assert.Equal(t, White, s.Target)
	assert.Equal(t, Color{}, s.Current)
	assert.Equal(t, 0, s.Cursor)
}

func TestControllerConvergesToManualColor(t *testing.T) {
	f := newFixture(t, Settings{})
	target := Color{R: 10, G: 20, B: 30}
	f.ctrl.SetColor(target)
	f.run(t, 30)

	s := f.ctrl.Snapshot()
	assert.Equal(t, target, s.Current)
	assert.False(t, s.Auto)
	want := [3]uint16{gamma.DutyCycle(10), gamma.DutyCycle(20), gamma.DutyCycle(30)}
	assert.Equal(t, want, f.out.levels)
}

func TestControllerManualColorSuppressesCycle(t *testing.T) {
	f := newFixture(t, Settings{Palette: rgbPalette, CycleDuration: 3 * time.Second})
	f.run(t, 1)
	require.Equal(t, Color{R: 255}, f.ctrl.Snapshot().Target)

	f.ctrl.SetColor(Color{R: 10, G: 20, B: 30})
	require.False(t, f.ctrl.Snapshot().Auto)

	// Several cycle intervals pass; the palette must not take over again.
	for i := 0; i < 5; i++ {
		require.NoError(t, f.ctrl.Poll(f.clock.Advance(2*time.Second)))
	}
	s := f.ctrl.Snapshot()
	assert.Equal(t, Color{R: 10, G: 20, B: 30}, s.Target)
	assert.Equal(t, 1, s.Cursor)
}

func TestControllerAutoCycleFeedsTargets(t *testing.T) {
	f := newFixture(t, Settings{Palette: rgbPalette, CycleDuration: 120 * time.Second})

	require.NoError(t, f.ctrl.Poll(f.clock.Now()))
	assert.Equal(t, Color{R: 255}, f.ctrl.Snapshot().Target)

	require.NoError(t, f.ctrl.Poll(f.clock.Advance(40*time.Second)))
	assert.Equal(t, Color{G: 255}, f.ctrl.Snapshot().Target)

	require.NoError(t, f.ctrl.Poll(f.clock.Advance(40*time.Second)))
	assert.Equal(t, Color{B: 255}, f.ctrl.Snapshot().Target)

	require.NoError(t, f.ctrl.Poll(f.clock.Advance(40*time.Second)))
	assert.Equal(t, Color{R: 255}, f.ctrl.Snapshot().Target)
}

func TestControllerPowerCycleResumesAuto(t *testing.T) {
	f := newFixture(t, Settings{Palette: rgbPalette})
	f.ctrl.SetColor(Color{R: 1})
	require.False(t, f.ctrl.Snapshot().Auto)

	f.ctrl.SetPower(false)
	f.ctrl.SetPower(true)
	assert.True(t, f.ctrl.Snapshot().Auto)
	assert.Equal(t, []bool{false, true}, f.report.power)
}

func TestControllerBrightnessIsImmediate(t *testing.T) {
	f := newFixture(t, Settings{})
	f.ctrl.SetColor(White)
	f.run(t, 255)
	require.Equal(t, [3]uint16{1023, 1023, 1023}, f.out.levels)

	f.ctrl.SetBrightness(128)
	// Same instant: the ramp interval has not elapsed, the output still follows.
	require.NoError(t, f.ctrl.Poll(f.clock.Now()))
	assert.Equal(t, [3]uint16{513, 513, 513}, f.out.levels)
	assert.Equal(t, []uint8{128}, f.report.brightness)
}

func TestControllerPowerOffBlanksOutputs(t *testing.T) {
	f := newFixture(t, Settings{})
	f.ctrl.SetColor(White)
	f.run(t, 100)
	require.NotZero(t, f.out.levels[0])

	f.ctrl.SetPower(false)
	require.NoError(t, f.ctrl.Poll(f.clock.Now()))
	assert.Equal(t, [3]uint16{}, f.out.levels)

	// Ramp keeps converging while dark.
	f.run(t, 155)
	assert.Equal(t, White, f.ctrl.Snapshot().Current)
	assert.Equal(t, [3]uint16{}, f.out.levels)
}

func TestControllerSkipsIdleWrites(t *testing.T) {
	f := newFixture(t, Settings{})
	f.ctrl.SetColor(Color{})
	f.run(t, 1)
	writes := f.out.writes

	f.run(t, 10)
	assert.Equal(t, writes, f.out.writes)
}

func TestControllerThrottlesColorReports(t *testing.T) {
	f := newFixture(t, Settings{})

	for i := 0; i < 50; i++ {
		f.ctrl.SetColor(Color{R: uint8(i)})
		f.clock.Advance(10 * time.Millisecond)
	}
	assert.Equal(t, []Color{{R: 0}}, f.report.colors)
	assert.Equal(t, Color{R: 49}, f.ctrl.Snapshot().Target, "targets follow every command")

	f.clock.Advance(DefaultReportInterval)
	f.ctrl.SetColor(Color{G: 7})
	assert.Equal(t, []Color{{R: 0}, {G: 7}}, f.report.colors)
}

func TestControllerConnectedFiresOnce(t *testing.T) {
	f := newFixture(t, Settings{})
	f.ctrl.SetPower(false)

	f.ctrl.Connected()
	assert.True(t, f.ctrl.Snapshot().Power)
	f.ctrl.Connected()

	assert.Equal(t, []bool{false, true}, f.report.power)
}

func TestControllerSurfacesOutputErrors(t *testing.T) {
	f := newFixture(t, Settings{})
	f.out.fail = errBroken
	err := f.ctrl.Poll(f.clock.Now())
	assert.ErrorIs(t, err, errBroken)
}

func TestControllerRejectsEmptyCycle(t *testing.T) {
	_, err := NewController(Settings{CycleDuration: time.Nanosecond}, nil, nil, nil)
	assert.Error(t, err)
}
