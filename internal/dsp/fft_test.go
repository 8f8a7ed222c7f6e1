package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/sfestenstein/radiowizard/iq"
)

// newTestProcessor builds a Processor at a size below the public
// minimum (NewProcessor floors to 2048 below 64), for exercising the
// Process() math directly against literal small worked examples.
func newTestProcessor(fftSize int, win iq.WindowFunction) *Processor {
	p := &Processor{fftSize: fftSize, window: win}
	p.plan = fourier.NewCmplxFFT(fftSize)
	p.in = make([]complex128, fftSize)
	p.out = make([]complex128, fftSize)
	p.coeffs = buildWindow(fftSize, win)
	return p
}

func peakBin(spectrum []float32) int {
	peak := 0
	for i := 1; i < len(spectrum); i++ {
		if spectrum[i] > spectrum[peak] {
			peak = i
		}
	}
	return peak
}

// Test_Process_DCImpulse_FlatSpectrum checks the worked example: an 8
// point rectangular-windowed FFT of a unit impulse at sample 0 produces
// a flat magnitude spectrum at 20*log10(1/8) across every bin.
func Test_Process_DCImpulse_FlatSpectrum(t *testing.T) {
	p := newTestProcessor(8, iq.Rectangular)
	samples := make([]complex64, 8)
	samples[0] = complex(float32(1), float32(0))

	spectrum := p.Process(samples)
	require.Len(t, spectrum, 8)

	want := float32(20 * math.Log10(1.0/8))
	for i, v := range spectrum {
		assert.InDelta(t, want, v, 0.05, "bin %d", i)
	}
}

func Test_Process_ZeroPadsShortInput(t *testing.T) {
	p := NewProcessor(512, iq.Rectangular)
	samples := make([]complex64, 10)
	samples[0] = complex(float32(1), float32(0))
	spectrum := p.Process(samples)
	assert.Len(t, spectrum, 512)
}

func Test_NewProcessor_RejectsSizeBelowMinimum(t *testing.T) {
	p := NewProcessor(8, iq.Rectangular)
	assert.Equal(t, 2048, p.FFTSize())
}

func Test_NewProcessor_RejectsNonPowerOfTwo(t *testing.T) {
	p := NewProcessor(1000, iq.Hanning)
	assert.Equal(t, 2048, p.FFTSize())
}

// Test_Process_Sinusoid_PeaksWithinOneBin checks the general invariant:
// a pure complex-exponential tone at an integer bin offset produces a
// DC-centred spectrum whose peak lands within +/-1 bin of the expected
// index, for every supported window.
func Test_Process_Sinusoid_PeaksWithinOneBin(t *testing.T) {
	const fftSize = 512
	const freqBin = 64.0

	tone := make([]complex64, fftSize)
	for n := 0; n < fftSize; n++ {
		phase := 2 * math.Pi * freqBin * float64(n) / float64(fftSize)
		tone[n] = complex(float32(math.Cos(phase)), float32(math.Sin(phase)))
	}

	wantBin := fftSize/2 + freqBin

	for _, win := range []iq.WindowFunction{iq.Rectangular, iq.Hanning, iq.BlackmanHarris, iq.FlatTop} {
		spectrum := newTestProcessor(fftSize, win).Process(tone)
		got := peakBin(spectrum)
		assert.InDelta(t, wantBin, got, 1, "window %v", win)
	}
}

// Test_Process_WindowGainOrdering checks the stated invariant that peak
// magnitude for an exact-bin tone is non-increasing as the window's
// main lobe widens: Rectangular >= Hanning >= Blackman-Harris.
func Test_Process_WindowGainOrdering(t *testing.T) {
	const fftSize = 512
	const freqBin = 40.0

	tone := make([]complex64, fftSize)
	for n := 0; n < fftSize; n++ {
		phase := 2 * math.Pi * freqBin * float64(n) / float64(fftSize)
		tone[n] = complex(float32(math.Cos(phase)), float32(math.Sin(phase)))
	}

	rect := newTestProcessor(fftSize, iq.Rectangular).Process(tone)
	han := newTestProcessor(fftSize, iq.Hanning).Process(tone)
	bh := newTestProcessor(fftSize, iq.BlackmanHarris).Process(tone)

	peakRect := rect[peakBin(rect)]
	peakHan := han[peakBin(han)]
	peakBH := bh[peakBin(bh)]

	assert.GreaterOrEqual(t, peakRect, peakHan)
	assert.GreaterOrEqual(t, peakHan, peakBH)
}

func Test_SetFFTSize_ChangesOutputLength(t *testing.T) {
	p := NewProcessor(1024, iq.Hanning)
	p.SetFFTSize(2048)
	assert.Equal(t, 2048, p.FFTSize())
	spectrum := p.Process(make([]complex64, 2048))
	assert.Len(t, spectrum, 2048)
}

func Test_SetWindowFunction_IsRetrievable(t *testing.T) {
	p := NewProcessor(1024, iq.Rectangular)
	p.SetWindowFunction(iq.BlackmanHarris)
	assert.Equal(t, iq.BlackmanHarris, p.WindowFunction())
}
