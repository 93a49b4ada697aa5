package light

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevel(t *testing.T) {
	assert.Equal(t, uint16(1023), Level(1023, 255, true))
	assert.Equal(t, uint16(513), Level(1023, 128, true))
	assert.Equal(t, uint16(0), Level(1023, 0, true))
	assert.Equal(t, uint16(0), Level(1023, 255, false))
	assert.Equal(t, uint16(0), Level(0, 255, true))
}

func TestDriveWritesAllChannels(t *testing.T) {
	out := &recordingOutput{}
	require.NoError(t, Drive(out, [3]uint16{1023, 500, 0}, 255, true))
	assert.Equal(t, [3]uint16{1023, 500, 0}, out.levels)
	assert.Equal(t, 3, out.writes)

	require.NoError(t, Drive(out, [3]uint16{1023, 500, 0}, 255, false))
	assert.Equal(t, [3]uint16{0, 0, 0}, out.levels)
}

func TestDriveReportsChannel(t *testing.T) {
	out := &recordingOutput{fail: errBroken}
	err := Drive(out, [3]uint16{1, 2, 3}, 255, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write red")
	assert.Contains(t, err.Error(), errBroken.Error())
}
