package device

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_SimulatedDevice_OpenCloseLifecycle(t *testing.T) {
	d := NewSimulatedDevice()
	assert.False(t, d.IsOpen())
	require.True(t, d.Open(0))
	assert.True(t, d.IsOpen())
	d.Close()
	assert.False(t, d.IsOpen())
}

func Test_SimulatedDevice_SetSampleRate_RejectsUnsupportedRate(t *testing.T) {
	d := NewSimulatedDevice()
	assert.False(t, d.SetSampleRate(12345))
	assert.True(t, d.SetSampleRate(2_048_000))
	assert.EqualValues(t, 2_048_000, d.SampleRate())
}

func Test_SimulatedDevice_SetGainAndAutoGain(t *testing.T) {
	d := NewSimulatedDevice()
	assert.True(t, d.SetGain(210))
	assert.Equal(t, 210, d.Gain())
	assert.True(t, d.SetAutoGain(true))
	assert.NotEmpty(t, d.GainValues())
}

func Test_SimulatedDevice_StartStreaming_RequiresOpenDevice(t *testing.T) {
	d := NewSimulatedDevice()
	started := d.StartStreaming(func([]byte) {}, 1024)
	assert.False(t, started)
}

func Test_SimulatedDevice_StartStreaming_DeliversEvenByteBlocks(t *testing.T) {
	d := NewSimulatedDevice()
	require.True(t, d.Open(0))
	require.True(t, d.SetSampleRate(2_048_000))
	d.ToneFreqHz = 0
	d.Amplitude = 1.0

	received := make(chan []byte, 4)
	started := d.StartStreaming(func(data []byte) {
		select {
		case received <- data:
		default:
		}
	}, 1023) // odd size, should be rounded up to even internally

	require.True(t, started)
	assert.True(t, d.IsStreaming())

	select {
	case data := <-received:
		assert.Equal(t, 0, len(data)%2)
		assert.NotEmpty(t, data)
	case <-time.After(2 * time.Second):
		t.Fatal("no streaming callback received in time")
	}

	d.StopStreaming()
	assert.False(t, d.IsStreaming())
}

func Test_SimulatedDevice_StartStreaming_RejectsSecondConcurrentStart(t *testing.T) {
	d := NewSimulatedDevice()
	require.True(t, d.Open(0))
	require.True(t, d.StartStreaming(func([]byte) {}, 1024))
	assert.False(t, d.StartStreaming(func([]byte) {}, 1024))
	d.StopStreaming()
}

func Test_SimulatedDevice_EnumerateDevices_ReturnsSelf(t *testing.T) {
	d := NewSimulatedDevice()
	devices := d.EnumerateDevices()
	require.Len(t, devices, 1)
	assert.Equal(t, "Simulated SDR", devices[0].Name)
}
