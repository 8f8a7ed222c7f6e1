package dsp

import (
	"errors"
	"math"
	"math/cmplx"
	"sync"

	"hz.tools/rf"
)

// ErrNotConfigured names the condition of calling Process before
// Configure. Process itself does not return it: it reports that
// condition by returning nil.
var ErrNotConfigured = errors.New("dsp: channel filter not configured")

// kaiserFIR holds a designed Kaiser-windowed low-pass FIR's taps along
// with the streaming history needed to filter consecutive blocks as one
// continuous signal.
type kaiserFIR struct {
	taps    []float64
	history []complex64 // last len(taps)-1 samples from the previous block
}

// designLowpass builds a Kaiser-windowed low-pass FIR for the given
// cutoff, transition width and stopband attenuation, all in the units of
// sampleRate.
func designLowpass(cutoffHz, transitionHz, sampleRateHz, stopbandDb float64) []float64 {
	if transitionHz <= 0 {
		transitionHz = sampleRateHz * 0.01
	}
	deltaOmega := 2 * math.Pi * transitionHz / sampleRateHz

	var beta float64
	switch {
	case stopbandDb > 50:
		beta = 0.1102 * (stopbandDb - 8.7)
	case stopbandDb >= 21:
		beta = 0.5842*math.Pow(stopbandDb-21, 0.4) + 0.07886*(stopbandDb-21)
	default:
		beta = 0
	}

	n := int(math.Ceil((stopbandDb-8)/(2.285*deltaOmega))) + 1
	if n < 5 {
		n = 5
	}
	if n%2 == 0 {
		n++ // keep the tap count odd for a Type-I linear-phase filter.
	}

	taps := make([]float64, n)
	m := float64(n-1) / 2
	fc := cutoffHz / sampleRateHz // normalized cutoff, cycles/sample
	i0Beta := besselI0(beta)

	sum := 0.0
	for i := 0; i < n; i++ {
		x := float64(i) - m
		var sinc float64
		if x == 0 {
			sinc = 2 * fc
		} else {
			sinc = math.Sin(2*math.Pi*fc*x) / (math.Pi * x)
		}
		kaiser := besselI0(beta*math.Sqrt(1-math.Pow((float64(i)-m)/m, 2))) / i0Beta
		taps[i] = sinc * kaiser
		sum += taps[i]
	}
	// Normalize to unity DC gain.
	if sum != 0 {
		for i := range taps {
			taps[i] /= sum
		}
	}
	return taps
}

// besselI0 evaluates the zeroth-order modified Bessel function of the
// first kind via its power series, accurate to float64 precision for the
// beta values a Kaiser window design produces.
func besselI0(x float64) float64 {
	sum := 1.0
	term := 1.0
	halfX := x / 2
	for k := 1; k < 40; k++ {
		term *= (halfX * halfX) / (float64(k) * float64(k))
		sum += term
		if term < 1e-16*sum {
			break
		}
	}
	return sum
}

func newKaiserFIR(taps []float64) *kaiserFIR {
	return &kaiserFIR{
		taps:    taps,
		history: make([]complex64, len(taps)-1),
	}
}

// filter runs the FIR over in, using and updating the carried-over
// history so consecutive calls filter one continuous stream.
func (f *kaiserFIR) filter(in []complex64) []complex64 {
	out := make([]complex64, len(in))
	ext := make([]complex64, len(f.history)+len(in))
	copy(ext, f.history)
	copy(ext[len(f.history):], in)

	ntaps := len(f.taps)
	for i := range in {
		var accR, accI float64
		for t := 0; t < ntaps; t++ {
			s := ext[i+ntaps-1-t]
			accR += f.taps[t] * float64(real(s))
			accI += f.taps[t] * float64(imag(s))
		}
		out[i] = complex(float32(accR), float32(accI))
	}

	if n := len(f.history); n > 0 {
		copy(f.history, ext[len(ext)-n:])
	}
	return out
}

func (f *kaiserFIR) reset() {
	for i := range f.history {
		f.history[i] = 0
	}
}

// resampler performs arbitrary-ratio linear-interpolation resampling,
// carrying fractional phase across calls so the output is a single
// continuous stream regardless of how process() is chunked.
type resampler struct {
	ratio      float64 // outputRate / inputRate
	phase      float64 // position, in input samples, of the next output sample
	prevSample complex64
}

func newResampler(ratio float64) *resampler {
	return &resampler{ratio: ratio}
}

func (r *resampler) reset() {
	r.phase = 0
	r.prevSample = 0
}

func (r *resampler) process(in []complex64) []complex64 {
	if r.ratio <= 0 {
		return nil
	}
	step := 1.0 / r.ratio

	b := make([]complex64, len(in)+1)
	b[0] = r.prevSample
	copy(b[1:], in)

	var out []complex64
	p := r.phase
	limit := float64(len(b) - 2)
	for p <= limit {
		idx := int(p)
		frac := p - float64(idx)
		s0, s1 := b[idx], b[idx+1]
		sample := complex(
			float32(float64(real(s0))+(float64(real(s1))-float64(real(s0)))*frac),
			float32(float64(imag(s0))+(float64(imag(s1))-float64(imag(s0)))*frac),
		)
		out = append(out, sample)
		p += step
	}

	r.phase = p - float64(len(b)-1)
	if len(in) > 0 {
		r.prevSample = in[len(in)-1]
	}
	return out
}

// ChannelFilter extracts a narrow channel from a wideband I/Q stream: an
// NCO frequency shift centers the channel, a Kaiser-windowed FIR low-pass
// filter rejects everything outside it, and an arbitrary-rate resampler
// decimates down to (at least) twice the channel bandwidth.
type ChannelFilter struct {
	mu sync.Mutex

	enabled    bool
	configured bool

	centerOffsetHz rf.Hz
	bandwidthHz    rf.Hz
	inputRateHz    rf.Hz
	outputRateHz   rf.Hz
	decimation     float64

	ncoPhase float64
	ncoStep  float64

	fir *kaiserFIR
	rs  *resampler
}

// NewChannelFilter creates a disabled, unconfigured ChannelFilter.
func NewChannelFilter() *ChannelFilter {
	return &ChannelFilter{}
}

// Configure sets (or re-sets) the channel to extract. It rebuilds the FIR
// and resampler, clearing any prior filter state.
func (c *ChannelFilter) Configure(centerOffsetHz, bandwidthHz, inputRateHz rf.Hz) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.centerOffsetHz = centerOffsetHz
	c.bandwidthHz = bandwidthHz
	c.inputRateHz = inputRateHz

	outputRate := float64(bandwidthHz) * 2
	if outputRate > float64(inputRateHz) || outputRate <= 0 {
		outputRate = float64(inputRateHz)
	}
	c.outputRateHz = rf.Hz(outputRate)
	c.decimation = outputRate / float64(inputRateHz)

	taps := designLowpass(
		float64(bandwidthHz)/2,
		float64(bandwidthHz)/4,
		float64(inputRateHz),
		60,
	)
	c.fir = newKaiserFIR(taps)
	c.rs = newResampler(c.decimation)

	c.ncoPhase = 0
	c.ncoStep = 2 * math.Pi * float64(centerOffsetHz) / float64(inputRateHz)

	c.configured = true
}

// IsConfigured reports whether Configure has been called. Configure does
// not validate its parameters.
func (c *ChannelFilter) IsConfigured() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.configured
}

// SetEnabled enables or disables the filter.
func (c *ChannelFilter) SetEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = enabled
}

// IsEnabled reports whether the filter is enabled.
func (c *ChannelFilter) IsEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// OutputSampleRate returns the output sample rate after decimation.
func (c *ChannelFilter) OutputSampleRate() rf.Hz {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outputRateHz
}

// ChannelBandwidth returns the configured channel bandwidth.
func (c *ChannelFilter) ChannelBandwidth() rf.Hz {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bandwidthHz
}

// CenterOffset returns the configured centre-frequency offset.
func (c *ChannelFilter) CenterOffset() rf.Hz {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.centerOffsetHz
}

// Process filters and decimates a block of wideband I/Q samples. It
// returns nil if the filter is disabled or has not been configured.
func (c *ChannelFilter) Process(input []complex64) []complex64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled || !c.configured {
		return nil
	}

	shifted := make([]complex64, len(input))
	for i, s := range input {
		osc := cmplx.Rect(1, -c.ncoPhase)
		shifted[i] = complex64(complex(float64(real(s)), float64(imag(s))) * osc)
		c.ncoPhase += c.ncoStep
		if c.ncoPhase > math.Pi {
			c.ncoPhase -= 2 * math.Pi
		} else if c.ncoPhase < -math.Pi {
			c.ncoPhase += 2 * math.Pi
		}
	}

	filtered := c.fir.filter(shifted)
	return c.rs.process(filtered)
}

// Reset clears NCO phase and filter/resampler memory but preserves the
// current configuration.
func (c *ChannelFilter) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ncoPhase = 0
	if c.fir != nil {
		c.fir.reset()
	}
	if c.rs != nil {
		c.rs.reset()
	}
}
