package device

import (
	"math"
	"sync"
	"time"

	"github.com/sfestenstein/radiowizard/iq"
)

// SimulatedDevice is a software signal generator implementing Device, in
// place of hardware: a pure tone with no added noise, pushed through the
// same RawIqCallback contract a real tuner uses. Useful for exercising
// the engine and demodulator end to end without a physical device.
type SimulatedDevice struct {
	mu sync.Mutex

	open           bool
	centerFreqHz   uint64
	sampleRateHz   uint32
	autoGain       bool
	gainTenthsDb   int
	streaming      bool
	stopCh         chan struct{}
	wg             sync.WaitGroup

	// ToneFreqHz is the frequency, relative to the device's center
	// frequency, of the simulated carrier.
	ToneFreqHz float64

	// Amplitude is the simulated carrier amplitude, in [0, 1].
	Amplitude float64

	phase float64
}

// NewSimulatedDevice returns a SimulatedDevice generating a unit-amplitude
// tone at the center frequency (i.e. DC in the complex baseband).
func NewSimulatedDevice() *SimulatedDevice {
	return &SimulatedDevice{
		Amplitude:    1.0,
		gainTenthsDb: 300,
	}
}

func (d *SimulatedDevice) Open(deviceIndex int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = true
	return true
}

func (d *SimulatedDevice) Close() {
	d.StopStreaming()
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = false
}

func (d *SimulatedDevice) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}

func (d *SimulatedDevice) SetCenterFrequency(frequencyHz uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.centerFreqHz = frequencyHz
	return true
}

func (d *SimulatedDevice) CenterFrequency() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.centerFreqHz
}

func (d *SimulatedDevice) SetSampleRate(rateHz uint32) bool {
	if !iq.IsSupportedSampleRate(uint(rateHz)) {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sampleRateHz = rateHz
	return true
}

func (d *SimulatedDevice) SampleRate() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sampleRateHz
}

func (d *SimulatedDevice) SetAutoGain(enabled bool) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.autoGain = enabled
	return true
}

func (d *SimulatedDevice) SetGain(tenthsDb int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gainTenthsDb = tenthsDb
	return true
}

func (d *SimulatedDevice) Gain() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gainTenthsDb
}

func (d *SimulatedDevice) GainValues() []int {
	return []int{0, 90, 150, 210, 280, 300, 330, 420, 496}
}

// StartStreaming spawns a goroutine generating blocks of bufferSize bytes
// at a rate matched to the configured sample rate, until StopStreaming is
// called.
func (d *SimulatedDevice) StartStreaming(callback RawIqCallback, bufferSize int) bool {
	d.mu.Lock()
	if !d.open || d.streaming || bufferSize <= 0 {
		d.mu.Unlock()
		return false
	}
	if bufferSize%2 != 0 {
		bufferSize++
	}
	rate := d.sampleRateHz
	if rate == 0 {
		rate = 2_048_000
	}
	d.streaming = true
	d.stopCh = make(chan struct{})
	stopCh := d.stopCh
	d.mu.Unlock()

	samplesPerBlock := bufferSize / 2
	blockInterval := time.Duration(float64(samplesPerBlock) / float64(rate) * float64(time.Second))
	if blockInterval <= 0 {
		blockInterval = time.Millisecond
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ticker := time.NewTicker(blockInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				callback(d.generateBlock(samplesPerBlock, float64(rate)))
			}
		}
	}()
	return true
}

func (d *SimulatedDevice) generateBlock(numSamples int, sampleRateHz float64) []byte {
	d.mu.Lock()
	toneFreq := d.ToneFreqHz
	amp := d.Amplitude
	phase := d.phase
	d.mu.Unlock()

	step := 2 * math.Pi * toneFreq / sampleRateHz
	out := make([]byte, numSamples*2)
	for n := 0; n < numSamples; n++ {
		i := amp * math.Cos(phase)
		q := amp * math.Sin(phase)
		out[2*n] = floatToByte(i)
		out[2*n+1] = floatToByte(q)
		phase += step
	}
	if phase > math.Pi*1e6 {
		phase = math.Mod(phase, 2*math.Pi)
	}

	d.mu.Lock()
	d.phase = phase
	d.mu.Unlock()

	return out
}

func floatToByte(v float64) byte {
	b := v*127.5 + 127.5
	if b < 0 {
		b = 0
	}
	if b > 255 {
		b = 255
	}
	return byte(b)
}

func (d *SimulatedDevice) StopStreaming() {
	d.mu.Lock()
	if !d.streaming {
		d.mu.Unlock()
		return
	}
	close(d.stopCh)
	d.streaming = false
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *SimulatedDevice) IsStreaming() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.streaming
}

func (d *SimulatedDevice) Name() string {
	return "Simulated SDR"
}

func (d *SimulatedDevice) EnumerateDevices() []iq.DeviceInfo {
	return []iq.DeviceInfo{{
		Index:        0,
		Name:         "Simulated SDR",
		Manufacturer: "radiowizard",
		Product:      "sim0",
		Serial:       "SIM0001",
	}}
}
