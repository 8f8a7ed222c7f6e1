// Package config loads radiowizard's startup settings from a YAML file
// into a single typed struct, in place of the free-form
// map[string]interface{} doismellburning-samoyed's device-id loader
// unmarshals its own YAML data file into: this config has a fixed shape
// known at compile time, so a tagged struct replaces the map.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sfestenstein/radiowizard/internal/dsp"
	"github.com/sfestenstein/radiowizard/iq"
)

// DeviceConfig selects and tunes the SDR device the engine streams from.
type DeviceConfig struct {
	Driver          string `yaml:"driver"` // "simulated" or "rtlsdr"
	Index           int    `yaml:"index"`
	CenterFreqHz    uint64 `yaml:"center_freq_hz"`
	SampleRateHz    uint32 `yaml:"sample_rate_hz"`
	AutoGain        bool   `yaml:"auto_gain"`
	GainTenthsDb    int    `yaml:"gain_tenths_db"`
	SimToneOffsetHz int    `yaml:"sim_tone_offset_hz"`
}

// SpectrumConfig controls the FFT/averaging stage feeding the spectrum
// display stream.
type SpectrumConfig struct {
	FFTSize        int     `yaml:"fft_size"`
	Window         string  `yaml:"window"` // rectangular|hanning|blackman-harris|flat-top
	AverageAlpha   float32 `yaml:"average_alpha"`
	DcSpikeRemoval bool    `yaml:"dc_spike_removal"`
}

// ChannelConfig selects the demodulated channel relative to the device's
// center frequency.
type ChannelConfig struct {
	Enabled         bool    `yaml:"enabled"`
	CenterOffsetHz  float64 `yaml:"center_offset_hz"`
	BandwidthHz     float64 `yaml:"bandwidth_hz"`
	DemodMode       string  `yaml:"demod_mode"` // fm-mono|fm-stereo|am
	AudioSampleRate float64 `yaml:"audio_sample_rate_hz"`
}

// Vita49Config sets the wire defaults used when a VITA49 sink is enabled.
type Vita49Config struct {
	Enabled     bool    `yaml:"enabled"`
	ByteOrder   string  `yaml:"byte_order"` // big|little
	ScaleFactor float64 `yaml:"scale_factor"`
	StreamID    uint32  `yaml:"stream_id"`
}

// Config is radiowizard's full startup configuration, as loaded from a
// YAML file by Load.
type Config struct {
	Device    DeviceConfig   `yaml:"device"`
	Spectrum  SpectrumConfig `yaml:"spectrum"`
	Channel   ChannelConfig  `yaml:"channel"`
	Vita49    Vita49Config   `yaml:"vita49"`
	LogLevel  string         `yaml:"log_level"`
}

// Default returns radiowizard's built-in settings, suitable as a starting
// point before overriding from a file or flags. Tuning, FFT size, window
// and DC-spike removal match the Engine's own defaults; spectrum
// averaging starts at alpha 0.2, whereas a bare Engine starts with
// averaging off.
func Default() Config {
	return Config{
		Device: DeviceConfig{
			Driver:       "simulated",
			CenterFreqHz: 100_000_000,
			SampleRateHz: 2_400_000,
			AutoGain:     true,
		},
		Spectrum: SpectrumConfig{
			FFTSize:        2048,
			Window:         "hanning",
			AverageAlpha:   0.2,
			DcSpikeRemoval: true,
		},
		Channel: ChannelConfig{
			DemodMode:       "fm-mono",
			AudioSampleRate: 48000,
		},
		Vita49: Vita49Config{
			ByteOrder:   "big",
			ScaleFactor: 32768.0,
		},
		LogLevel: "info",
	}
}

// Load reads and parses a YAML config file at path, starting from
// Default and overriding whatever fields are present in the file.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks that the configured values are within ranges the
// engine and device layer accept, returning the first violation found.
func (c Config) Validate() error {
	if c.Device.Driver != "simulated" && c.Device.Driver != "rtlsdr" {
		return fmt.Errorf("config: device.driver must be \"simulated\" or \"rtlsdr\", got %q", c.Device.Driver)
	}
	if c.Device.SampleRateHz != 0 && !iq.IsSupportedSampleRate(uint(c.Device.SampleRateHz)) {
		return fmt.Errorf("config: device.sample_rate_hz %d is not a supported rate", c.Device.SampleRateHz)
	}
	if c.Spectrum.FFTSize != 0 && !iq.IsSupportedFFTSize(c.Spectrum.FFTSize) {
		return fmt.Errorf("config: spectrum.fft_size %d is not a supported size", c.Spectrum.FFTSize)
	}
	if _, err := c.Spectrum.windowFunction(); err != nil {
		return err
	}
	if _, err := c.Channel.demodMode(); err != nil {
		return err
	}
	if c.Vita49.ByteOrder != "big" && c.Vita49.ByteOrder != "little" {
		return fmt.Errorf("config: vita49.byte_order must be \"big\" or \"little\", got %q", c.Vita49.ByteOrder)
	}
	return nil
}

func (s SpectrumConfig) windowFunction() (iq.WindowFunction, error) {
	switch s.Window {
	case "", "rectangular":
		return iq.Rectangular, nil
	case "hanning":
		return iq.Hanning, nil
	case "blackman-harris":
		return iq.BlackmanHarris, nil
	case "flat-top":
		return iq.FlatTop, nil
	default:
		return 0, fmt.Errorf("config: spectrum.window %q is not recognized", s.Window)
	}
}

// WindowFunction returns the parsed FFT window selection. Validate must
// have already confirmed it is well-formed.
func (s SpectrumConfig) WindowFunction() iq.WindowFunction {
	w, _ := s.windowFunction()
	return w
}

func (c ChannelConfig) demodMode() (dsp.DemodMode, error) {
	switch c.DemodMode {
	case "", "fm-mono":
		return dsp.FmMono, nil
	case "fm-stereo":
		return dsp.FmStereo, nil
	case "am":
		return dsp.AM, nil
	default:
		return 0, fmt.Errorf("config: channel.demod_mode %q is not recognized", c.DemodMode)
	}
}

// DemodMode returns the parsed demodulation mode. Validate must have
// already confirmed it is well-formed.
func (c ChannelConfig) DemodMode() dsp.DemodMode {
	m, _ := c.demodMode()
	return m
}
