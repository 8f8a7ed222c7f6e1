// Package dsp implements the real-time DSP core of the pipeline: the FFT
// processor, spectrum averager, channel filter, and demodulator. None of
// it depends on any GUI or audio-sink toolkit.
package dsp

import (
	"math"

	"gonum.org/v1/gonum/dsp/window"

	"github.com/sfestenstein/radiowizard/iq"
)

// buildWindow returns fftSize window coefficients for the requested
// function. Rectangular, Blackman-Harris and Flat-Top are hand-rolled
// (gonum's window package does not carry them); Hanning delegates to
// gonum's window.Hann.
func buildWindow(fftSize int, fn iq.WindowFunction) []float64 {
	coeffs := make([]float64, fftSize)
	for i := range coeffs {
		coeffs[i] = 1.0
	}

	switch fn {
	case iq.Rectangular:
		// coeffs already all-ones.
	case iq.Hanning:
		window.Hann(coeffs)
	case iq.BlackmanHarris:
		blackmanHarris(coeffs)
	case iq.FlatTop:
		flatTop(coeffs)
	default:
		window.Hann(coeffs)
	}
	return coeffs
}

// blackmanHarris applies the 4-term minimum 4-term Blackman-Harris
// window in place, with side lobes roughly 92 dB down.
func blackmanHarris(coeffs []float64) {
	const (
		a0 = 0.35875
		a1 = 0.48829
		a2 = 0.14128
		a3 = 0.01168
	)
	n := len(coeffs)
	if n == 1 {
		coeffs[0] = 1
		return
	}
	for i := range coeffs {
		x := 2 * math.Pi * float64(i) / float64(n-1)
		coeffs[i] = a0 - a1*math.Cos(x) + a2*math.Cos(2*x) - a3*math.Cos(3*x)
	}
}

// flatTop applies the 5-term flat-top window in place, which trades a
// very wide main lobe for an almost ripple-free passband — useful for
// amplitude-accurate peak measurement.
func flatTop(coeffs []float64) {
	const (
		a0 = 0.21557895
		a1 = 0.41663158
		a2 = 0.277263158
		a3 = 0.083578947
		a4 = 0.006947368
	)
	n := len(coeffs)
	if n == 1 {
		coeffs[0] = 1
		return
	}
	for i := range coeffs {
		x := 2 * math.Pi * float64(i) / float64(n-1)
		coeffs[i] = a0 - a1*math.Cos(x) + a2*math.Cos(2*x) - a3*math.Cos(3*x) + a4*math.Cos(4*x)
	}
}
