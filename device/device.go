// Package device abstracts the tuner: open-by-index, frequency/rate/gain
// control, and an asynchronous raw I/Q byte callback. Implementations
// wrap a specific hardware API behind this common surface so the rest of
// the pipeline is device-agnostic.
package device

import "github.com/sfestenstein/radiowizard/iq"

// RawIqCallback receives a block of interleaved unsigned 8-bit I/Q bytes
// from a device's I/O thread. len(data) is always even.
type RawIqCallback func(data []byte)

// Device is the tuner abstraction every SDR source implements, mirroring
// the boolean-return failure convention of the hardware layer it wraps:
// a setter returning false leaves the device in its prior state.
type Device interface {
	// Open opens the device at the given 0-based index.
	Open(deviceIndex int) bool

	// Close closes the device and releases its resources.
	Close()

	// IsOpen reports whether the device is currently open.
	IsOpen() bool

	// SetCenterFrequency sets the tuner center frequency in Hz.
	SetCenterFrequency(frequencyHz uint64) bool

	// CenterFrequency returns the current center frequency in Hz.
	CenterFrequency() uint64

	// SetSampleRate sets the tuner sample rate in samples per second.
	SetSampleRate(rateHz uint32) bool

	// SampleRate returns the current sample rate in Hz.
	SampleRate() uint32

	// SetAutoGain enables or disables automatic gain control.
	SetAutoGain(enabled bool) bool

	// SetGain sets manual gain in tenths of a dB (e.g. 496 == 49.6 dB).
	SetGain(tenthsDb int) bool

	// Gain returns the current gain in tenths of a dB.
	Gain() int

	// GainValues returns the sorted list of supported gain values, in
	// tenths of a dB.
	GainValues() []int

	// StartStreaming begins asynchronous streaming, invoking callback
	// from a device I/O thread with raw 8-bit unsigned I/Q pairs.
	// bufferSize is the requested buffer size per invocation, in bytes.
	StartStreaming(callback RawIqCallback, bufferSize int) bool

	// StopStreaming stops asynchronous streaming.
	StopStreaming()

	// IsStreaming reports whether the device is actively streaming.
	IsStreaming() bool

	// Name returns a human-readable device name/description.
	Name() string

	// EnumerateDevices lists available devices of this type.
	EnumerateDevices() []iq.DeviceInfo
}
