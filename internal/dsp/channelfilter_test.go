package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hz.tools/rf"
)

func complexTone(n int, freqHz, sampleRateHz float64) []complex64 {
	out := make([]complex64, n)
	for i := 0; i < n; i++ {
		phase := 2 * math.Pi * freqHz * float64(i) / sampleRateHz
		out[i] = complex(float32(math.Cos(phase)), float32(math.Sin(phase)))
	}
	return out
}

func meanMagnitude(samples []complex64) float64 {
	if len(samples) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range samples {
		sum += math.Hypot(float64(real(s)), float64(imag(s)))
	}
	return sum / float64(len(samples))
}

// Test_ChannelFilter_PassbandTone_HighMeanMagnitude and
// Test_ChannelFilter_StopbandTone_LowMeanMagnitude check the worked
// example: offset 100kHz, bandwidth 200kHz, input rate 2.048MHz. A tone
// at the channel center passes through near unity gain; a tone 400kHz
// away from the shifted center is rejected by over 40dB.
func Test_ChannelFilter_PassbandTone_HighMeanMagnitude(t *testing.T) {
	f := NewChannelFilter()
	f.Configure(100000, 200000, 2048000)
	f.SetEnabled(true)

	tone := complexTone(4096, 100000, 2048000)
	out := f.Process(tone)
	require.NotEmpty(t, out)
	assert.GreaterOrEqual(t, meanMagnitude(out), 0.9)
}

func Test_ChannelFilter_StopbandTone_LowMeanMagnitude(t *testing.T) {
	f := NewChannelFilter()
	f.Configure(100000, 200000, 2048000)
	f.SetEnabled(true)

	tone := complexTone(4096, 500000, 2048000)
	out := f.Process(tone)
	require.NotEmpty(t, out)
	assert.LessOrEqual(t, meanMagnitude(out), 0.01)
}

func Test_ChannelFilter_DisabledOrUnconfigured_ReturnsNil(t *testing.T) {
	f := NewChannelFilter()
	assert.Nil(t, f.Process(make([]complex64, 10)))

	f.Configure(0, 200000, 2048000)
	assert.Nil(t, f.Process(make([]complex64, 10)))

	f.SetEnabled(true)
	assert.NotNil(t, f.Process(make([]complex64, 10)))
}

func Test_ChannelFilter_OutputRate_CapsAtInputRateWhenBandwidthTooWide(t *testing.T) {
	f := NewChannelFilter()
	f.Configure(0, 5_000_000, 2048000)
	assert.Equal(t, rf.Hz(2048000), f.OutputSampleRate())
}

func Test_ChannelFilter_Reset_ClearsNcoPhaseButKeepsConfiguration(t *testing.T) {
	f := NewChannelFilter()
	f.Configure(100000, 200000, 2048000)
	f.SetEnabled(true)

	f.Process(complexTone(1024, 100000, 2048000))
	f.Reset()

	assert.Zero(t, f.ncoPhase)
	assert.True(t, f.IsConfigured())
	assert.Equal(t, rf.Hz(100000), f.CenterOffset())
	assert.Equal(t, rf.Hz(200000), f.ChannelBandwidth())
}
