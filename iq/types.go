// Package iq holds the data types shared by every stage of the SDR
// processing pipeline: raw I/Q buffers, the FFT magnitude spectrum they
// feed, and the small enums that parameterize windowing and gain control.
package iq

import (
	"time"

	"hz.tools/rf"
	"hz.tools/sdr"
)

// Sample is a single complex baseband I/Q sample.
type Sample = complex64

// Buffer is a chunk of I/Q samples plus the metadata needed to interpret
// them: the center frequency and sample rate in effect when they were
// captured, and a monotonic capture timestamp.
type Buffer struct {
	Samples         sdr.SamplesC64
	CenterFrequency rf.Hz
	SampleRate      rf.Hz
	Timestamp       time.Time
}

// SpectrumData is a DC-centred magnitude-in-dB spectrum: index 0 is the
// lowest negative frequency, index len/2 is DC, and index len-1 is the
// highest positive frequency.
type SpectrumData struct {
	MagnitudesDb []float32
	CenterFreq   rf.Hz
	Bandwidth    rf.Hz
	FFTSize      int
}

// WindowFunction selects the FFT windowing function applied before the
// forward transform.
type WindowFunction uint8

const (
	Rectangular WindowFunction = iota
	Hanning
	BlackmanHarris
	FlatTop
)

// String implements fmt.Stringer.
func (w WindowFunction) String() string {
	switch w {
	case Rectangular:
		return "rectangular"
	case Hanning:
		return "hanning"
	case BlackmanHarris:
		return "blackman-harris"
	case FlatTop:
		return "flat-top"
	default:
		return "unknown"
	}
}

// GainMode selects automatic or manual tuner gain control.
type GainMode uint8

const (
	GainAutomatic GainMode = iota
	GainManual
)

// DeviceInfo describes one tuner enumerated by a Device implementation.
type DeviceInfo struct {
	Index        int
	Name         string
	Manufacturer string
	Product      string
	Serial       string
}

// SupportedSampleRates are the sample rates the RTL-SDR mapping accepts.
var SupportedSampleRates = []uint{
	250_000, 1_024_000, 1_400_000, 1_800_000,
	2_048_000, 2_400_000, 2_800_000, 3_200_000,
}

// SupportedFFTSizes are the FFT sizes exposed to callers.
var SupportedFFTSizes = []int{512, 1024, 2048, 4096, 8192, 16384, 32768}

// IsSupportedSampleRate reports whether rateHz is one of the RTL-SDR
// mapping's supported sample rates.
func IsSupportedSampleRate(rateHz uint) bool {
	for _, r := range SupportedSampleRates {
		if r == rateHz {
			return true
		}
	}
	return false
}

// IsSupportedFFTSize reports whether n is a power of two and one of the
// sizes the pipeline exposes.
func IsSupportedFFTSize(n int) bool {
	for _, s := range SupportedFFTSizes {
		if s == n {
			return true
		}
	}
	return false
}

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// DemodAudio is the stereo audio output of the Demodulator.
//
// For mono modes (FmMono, AM) Left and Right hold identical data.
type DemodAudio struct {
	Left  []float32
	Right []float32
}
