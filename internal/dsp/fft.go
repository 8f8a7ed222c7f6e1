package dsp

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/sfestenstein/radiowizard/iq"
)

// magnitudeFloor is the dB clamp applied to every bin so log10(0) never
// produces -Inf.
const magnitudeFloor = -180.0

// Processor performs a windowed forward FFT over a block of I/Q samples
// and returns a DC-centred magnitude-in-dB spectrum. All exported methods
// are safe for concurrent use; SetFFTSize/SetWindowFunction take effect
// on the next call to Process.
type Processor struct {
	mu sync.Mutex

	fftSize int
	window  iq.WindowFunction
	coeffs  []float64
	plan    *fourier.CmplxFFT

	in  []complex128
	out []complex128
}

// NewProcessor creates a Processor for the given FFT size and window
// function. fftSize must be a power of two >= 64.
func NewProcessor(fftSize int, win iq.WindowFunction) *Processor {
	p := &Processor{}
	p.setFFTSizeLocked(fftSize)
	p.setWindowFunctionLocked(win)
	return p
}

// SetFFTSize atomically replaces the plan and window. The next Process
// call uses the new size.
func (p *Processor) SetFFTSize(fftSize int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.setFFTSizeLocked(fftSize)
	p.coeffs = buildWindow(p.fftSize, p.window)
}

func (p *Processor) setFFTSizeLocked(fftSize int) {
	if fftSize < 64 || !iq.IsPowerOfTwo(fftSize) {
		fftSize = 2048
	}
	p.fftSize = fftSize
	p.plan = fourier.NewCmplxFFT(fftSize)
	p.in = make([]complex128, fftSize)
	p.out = make([]complex128, fftSize)
}

// FFTSize returns the current FFT size.
func (p *Processor) FFTSize() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fftSize
}

// SetWindowFunction changes the windowing function applied before each
// forward transform.
func (p *Processor) SetWindowFunction(win iq.WindowFunction) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.setWindowFunctionLocked(win)
}

func (p *Processor) setWindowFunctionLocked(win iq.WindowFunction) {
	p.window = win
	p.coeffs = buildWindow(p.fftSize, win)
}

// WindowFunction returns the current windowing function.
func (p *Processor) WindowFunction() iq.WindowFunction {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.window
}

// Process computes the magnitude spectrum of samples. If samples has
// fewer elements than the current FFT size the remainder is zero-padded;
// if it has more, only the first fftSize samples are used. The returned
// slice has length fftSize and is DC-centred (index fftSize/2 is DC).
func (p *Processor) Process(samples []complex64) []float32 {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := p.fftSize
	for i := 0; i < n; i++ {
		if i < len(samples) {
			w := p.coeffs[i]
			s := samples[i]
			p.in[i] = complex(float64(real(s))*w, float64(imag(s))*w)
		} else {
			p.in[i] = 0
		}
	}

	p.plan.Coefficients(p.out, p.in)

	mags := make([]float32, n)
	for k := 0; k < n; k++ {
		mag := cmplxAbs(p.out[k]) / float64(n)
		if mag < 1e-9 {
			mag = 1e-9
		}
		db := 20 * math.Log10(mag)
		if db < magnitudeFloor {
			db = magnitudeFloor
		}
		mags[k] = float32(db)
	}

	// Rotate so DC (bin 0 of the raw FFT) sits at index n/2.
	centered := make([]float32, n)
	half := n / 2
	copy(centered[0:half], mags[half:n])
	copy(centered[half:n], mags[0:half])
	return centered
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}
