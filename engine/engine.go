package engine

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"hz.tools/rf"

	"github.com/sfestenstein/radiowizard/device"
	"github.com/sfestenstein/radiowizard/internal/dsp"
	"github.com/sfestenstein/radiowizard/iq"
)

// defaultCallbackBufferSize is the buffer size requested from the device
// per streaming callback invocation, in bytes.
const defaultCallbackBufferSize = 16384

// Engine owns a device, the FFT/averaging/channel-filter/demodulator
// chain, and three output streams: spectrum, raw I/Q, and demodulated
// audio routed through the channel filter. It is created once, tuned by
// user controls, and torn down on exit.
type Engine struct {
	mu     sync.Mutex
	device device.Device

	fft      *dsp.Processor
	averager *dsp.Averager
	channel  *dsp.ChannelFilter
	demod    *dsp.Demodulator

	accum *Accumulator

	spectrumHandler *DataHandler[iq.SpectrumData]
	iqHandler       *DataHandler[iq.Buffer]
	audioHandler    *DataHandler[iq.DemodAudio]

	centerFreqHz   uint64
	sampleRateHz   uint32
	fftSize        int
	dcSpikeRemoval bool

	running  atomic.Bool
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New returns an Engine with the given initial FFT size, ready to have
// its device set and be started.
func New(fftSize int) *Engine {
	if !iq.IsPowerOfTwo(fftSize) {
		fftSize = 2048
	}
	e := &Engine{
		fft:             dsp.NewProcessor(fftSize, iq.Hanning),
		averager:        dsp.NewAverager(0),
		channel:         dsp.NewChannelFilter(),
		demod:           dsp.NewDemodulator(),
		accum:           NewAccumulator(fftSize),
		spectrumHandler: NewDataHandler[iq.SpectrumData](),
		iqHandler:       NewDataHandler[iq.Buffer](),
		audioHandler:    NewDataHandler[iq.DemodAudio](),
		centerFreqHz:    100_000_000,
		sampleRateHz:    2_400_000,
		fftSize:         fftSize,
		dcSpikeRemoval:  true,
	}
	e.accum.SetDcSpikeRemovalEnabled(true)
	return e
}

// SetDevice installs the device the engine will stream from. Must be
// called before Start.
func (e *Engine) SetDevice(d device.Device) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.device = d
}

// Device returns the currently installed device, or nil.
func (e *Engine) Device() device.Device {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.device
}

// EnumerateDevices lists devices visible to the current device
// implementation.
func (e *Engine) EnumerateDevices() []iq.DeviceInfo {
	e.mu.Lock()
	d := e.device
	e.mu.Unlock()
	if d == nil {
		return nil
	}
	return d.EnumerateDevices()
}

// SetCenterFrequency retunes the device. Returns false, leaving the
// engine's prior state intact, if the device rejects the frequency.
func (e *Engine) SetCenterFrequency(frequencyHz uint64) bool {
	e.mu.Lock()
	d := e.device
	e.mu.Unlock()
	if d == nil || !d.SetCenterFrequency(frequencyHz) {
		return false
	}
	e.mu.Lock()
	e.centerFreqHz = frequencyHz
	e.mu.Unlock()
	return true
}

// CenterFrequency returns the engine's cached center frequency.
func (e *Engine) CenterFrequency() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.centerFreqHz
}

// SetSampleRate changes the device's sample rate. Returns false, leaving
// the engine's prior state intact, if the rate is unsupported or the
// device rejects it.
func (e *Engine) SetSampleRate(rateHz uint32) bool {
	if !iq.IsSupportedSampleRate(uint(rateHz)) {
		return false
	}
	e.mu.Lock()
	d := e.device
	e.mu.Unlock()
	if d == nil || !d.SetSampleRate(rateHz) {
		return false
	}
	e.mu.Lock()
	e.sampleRateHz = rateHz
	e.mu.Unlock()
	return true
}

// SampleRate returns the engine's cached sample rate.
func (e *Engine) SampleRate() uint32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sampleRateHz
}

// SetAutoGain enables or disables the device's automatic gain control.
func (e *Engine) SetAutoGain(enabled bool) bool {
	e.mu.Lock()
	d := e.device
	e.mu.Unlock()
	if d == nil {
		return false
	}
	return d.SetAutoGain(enabled)
}

// SetGain sets the device's manual gain, in tenths of a dB.
func (e *Engine) SetGain(tenthsDb int) bool {
	e.mu.Lock()
	d := e.device
	e.mu.Unlock()
	if d == nil {
		return false
	}
	return d.SetGain(tenthsDb)
}

// GainValues returns the device's supported gain steps, in tenths of a
// dB.
func (e *Engine) GainValues() []int {
	e.mu.Lock()
	d := e.device
	e.mu.Unlock()
	if d == nil {
		return nil
	}
	return d.GainValues()
}

// SetFFTSize changes the FFT size used by the next processing cycle. n
// must be a power of two, at least 64; invalid sizes are ignored.
func (e *Engine) SetFFTSize(n int) {
	if !iq.IsPowerOfTwo(n) || n < 64 {
		return
	}
	e.fft.SetFFTSize(n)
	e.accum.SetFFTSize(n)
	e.averager.Reset()
	e.mu.Lock()
	e.fftSize = n
	e.mu.Unlock()
}

// FFTSize returns the current FFT size.
func (e *Engine) FFTSize() int {
	return e.fft.FFTSize()
}

// SetWindowFunction changes the FFT windowing function.
func (e *Engine) SetWindowFunction(w iq.WindowFunction) {
	e.fft.SetWindowFunction(w)
}

// WindowFunction returns the current FFT windowing function.
func (e *Engine) WindowFunction() iq.WindowFunction {
	return e.fft.WindowFunction()
}

// SetFFTAverageAlpha sets the exponential moving average coefficient
// applied to published spectra, in [0, 1].
func (e *Engine) SetFFTAverageAlpha(alpha float32) {
	e.averager.SetAlpha(alpha)
}

// FFTAverageAlpha returns the current averaging coefficient.
func (e *Engine) FFTAverageAlpha() float32 {
	return e.averager.Alpha()
}

// SetDcSpikeRemovalEnabled toggles per-block DC offset removal and
// center-bin interpolation.
func (e *Engine) SetDcSpikeRemovalEnabled(enabled bool) {
	e.accum.SetDcSpikeRemovalEnabled(enabled)
	e.mu.Lock()
	e.dcSpikeRemoval = enabled
	e.mu.Unlock()
}

// IsDcSpikeRemovalEnabled reports whether DC spike removal is active.
func (e *Engine) IsDcSpikeRemovalEnabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dcSpikeRemoval
}

// ConfigureChannel configures the channel filter feeding the audio
// stream; see dsp.ChannelFilter.Configure.
func (e *Engine) ConfigureChannel(centerOffsetHz, bandwidthHz rf.Hz) {
	e.channel.Configure(centerOffsetHz, bandwidthHz, rf.Hz(e.SampleRate()))
}

// SetChannelEnabled enables or disables channel filtering and
// demodulation.
func (e *Engine) SetChannelEnabled(enabled bool) {
	e.channel.SetEnabled(enabled)
}

// ConfigureDemodulator configures the demodulator driven by the channel
// filter's output.
func (e *Engine) ConfigureDemodulator(mode dsp.DemodMode, audioRateHz rf.Hz) {
	e.demod.Configure(mode, e.channel.OutputSampleRate(), audioRateHz)
}

// Start opens deviceIndex on the installed device and begins streaming
// and processing. Returns false, leaving the engine stopped, on failure.
func (e *Engine) Start(deviceIndex int) bool {
	e.mu.Lock()
	d := e.device
	e.mu.Unlock()
	if d == nil {
		log.Error().Msg("engine: start called with no device installed")
		return false
	}
	if e.running.Load() {
		return true
	}

	if !d.Open(deviceIndex) {
		log.Error().Int("deviceIndex", deviceIndex).Msg("engine: failed to open device")
		return false
	}
	if !d.SetCenterFrequency(e.CenterFrequency()) || !d.SetSampleRate(e.SampleRate()) {
		log.Error().Msg("engine: failed to apply cached tuning to device")
		d.Close()
		return false
	}

	e.accum.Reset()
	started := d.StartStreaming(e.onRawIqData, defaultCallbackBufferSize)
	if !started {
		log.Error().Msg("engine: device rejected startStreaming")
		d.Close()
		return false
	}

	e.running.Store(true)
	e.stopOnce = sync.Once{}
	e.wg.Add(1)
	go e.processingLoop()
	return true
}

// Stop halts streaming and processing and closes the device. Idempotent.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		if !e.running.Load() {
			return
		}
		e.running.Store(false)
		e.accum.Close()
		e.wg.Wait()

		e.mu.Lock()
		d := e.device
		e.mu.Unlock()
		if d != nil {
			d.StopStreaming()
			d.Close()
		}
	})
}

// IsRunning reports whether the engine is actively streaming.
func (e *Engine) IsRunning() bool {
	return e.running.Load()
}

// SpectrumHandler returns the DataHandler publishing SpectrumData after
// each FFT frame.
func (e *Engine) SpectrumHandler() *DataHandler[iq.SpectrumData] {
	return e.spectrumHandler
}

// IqHandler returns the DataHandler publishing raw IqBuffer chunks.
func (e *Engine) IqHandler() *DataHandler[iq.Buffer] {
	return e.iqHandler
}

// AudioHandler returns the DataHandler publishing demodulated audio,
// driven through the channel filter and demodulator. Empty until
// ConfigureChannel/ConfigureDemodulator have been called and the channel
// filter is enabled.
func (e *Engine) AudioHandler() *DataHandler[iq.DemodAudio] {
	return e.audioHandler
}

func (e *Engine) onRawIqData(data []byte) {
	e.accum.PushBytes(data)
}

func (e *Engine) processingLoop() {
	defer e.wg.Done()
	for e.running.Load() {
		block, ok := e.accum.Drain()
		if !ok {
			return
		}
		if len(block) == 0 {
			continue
		}

		centerFreq := e.CenterFrequency()
		sampleRate := e.SampleRate()

		e.iqHandler.SignalData(iq.Buffer{
			Samples:         block,
			CenterFrequency: rf.Hz(centerFreq),
			SampleRate:      rf.Hz(sampleRate),
			Timestamp:       time.Now(),
		})

		mags := e.fft.Process(block)
		mags = e.averager.Apply(mags)
		if e.IsDcSpikeRemovalEnabled() && len(mags) > 2 {
			mid := len(mags) / 2
			mags[mid] = (mags[mid-1] + mags[mid+1]) / 2
		}
		e.spectrumHandler.SignalData(iq.SpectrumData{
			MagnitudesDb: mags,
			CenterFreq:   rf.Hz(centerFreq),
			Bandwidth:    rf.Hz(sampleRate),
			FFTSize:      e.fft.FFTSize(),
		})

		if e.channel.IsEnabled() && e.channel.IsConfigured() {
			filtered := e.channel.Process(block)
			if len(filtered) > 0 && e.demod.IsConfigured() {
				audio := e.demod.Demodulate(filtered)
				if len(audio.Left) > 0 {
					e.audioHandler.SignalData(audio)
				}
			}
		}
	}
}
