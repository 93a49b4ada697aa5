package light

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArbiterStartsOnAndAuto(t *testing.T) {
	a := NewArbiter()
	assert.True(t, a.Power())
	assert.True(t, a.Auto())
}

func TestArbiterPowerToggleRestoresAuto(t *testing.T) {
	a := NewArbiter()
	a.ManualColor()
	assert.False(t, a.Auto())

	a.SetPower(false)
	assert.False(t, a.Power())
	assert.False(t, a.Auto())

	a.SetPower(true)
	assert.True(t, a.Power())
	assert.True(t, a.Auto())
}

func TestArbiterRepeatedPowerKeepsAuto(t *testing.T) {
	a := NewArbiter()
	a.ManualColor()
	a.SetPower(true)
	assert.False(t, a.Auto(), "power on while already on must not re-enable auto")

	a.SetPower(false)
	a.SetPower(false)
	assert.False(t, a.Auto())
}

func TestArbiterManualColorAlwaysDisablesAuto(t *testing.T) {
	for _, power := range []bool{true, false} {
		a := NewArbiter()
		a.SetPower(power)
		a.ManualColor()
		assert.False(t, a.Auto())
		assert.Equal(t, power, a.Power())
	}
}
