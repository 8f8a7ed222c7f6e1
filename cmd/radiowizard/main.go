// Command radiowizard drives the SDR processing pipeline end to end:
// it opens a device, starts the engine, and routes its published
// streams to log output and, optionally, a VITA49 signal-data file.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"hz.tools/rf"

	"github.com/sfestenstein/radiowizard/config"
	"github.com/sfestenstein/radiowizard/device"
	"github.com/sfestenstein/radiowizard/engine"
	"github.com/sfestenstein/radiowizard/iq"
	"github.com/sfestenstein/radiowizard/vita49"
)

func main() {
	var configPath = pflag.StringP("config", "c", "", "Path to a YAML config file. Unset runs with built-in defaults.")
	var deviceIndex = pflag.IntP("device-index", "i", 0, "Device index to open.")
	var centerFreq = pflag.Uint64P("center-freq", "f", 0, "Override center frequency in Hz (0 keeps config value).")
	var sampleRate = pflag.Uint32P("sample-rate", "r", 0, "Override sample rate in Hz (0 keeps config value).")
	var duration = pflag.DurationP("duration", "d", 0, "Run for this long then stop (0 runs until interrupted).")
	var vita49Out = pflag.String("vita49-out", "", "Write raw I/Q as a VITA49 signal-data stream to this file.")
	var help = pflag.Bool("help", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - SDR processing pipeline driver\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(0)
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", os.Args[0], err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *centerFreq != 0 {
		cfg.Device.CenterFreqHz = *centerFreq
	}
	if *sampleRate != 0 {
		cfg.Device.SampleRateHz = *sampleRate
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	eng := engine.New(cfg.Spectrum.FFTSize)
	eng.SetWindowFunction(cfg.Spectrum.WindowFunction())
	eng.SetFFTAverageAlpha(cfg.Spectrum.AverageAlpha)
	eng.SetDcSpikeRemovalEnabled(cfg.Spectrum.DcSpikeRemoval)

	var dev device.Device
	switch cfg.Device.Driver {
	case "rtlsdr":
		dev = newRtlSdrDevice()
		if dev == nil {
			log.Fatal().Msg("radiowizard: built without rtlsdr support; rebuild with -tags rtlsdr")
		}
	default:
		sim := device.NewSimulatedDevice()
		sim.ToneFreqHz = float64(cfg.Device.SimToneOffsetHz)
		dev = sim
	}
	eng.SetDevice(dev)

	if !eng.SetCenterFrequency(cfg.Device.CenterFreqHz) {
		log.Warn().Uint64("hz", cfg.Device.CenterFreqHz).Msg("radiowizard: center frequency rejected, using device default")
	}
	if !eng.SetSampleRate(cfg.Device.SampleRateHz) {
		log.Warn().Uint32("hz", cfg.Device.SampleRateHz).Msg("radiowizard: sample rate rejected, using device default")
	}
	eng.SetAutoGain(cfg.Device.AutoGain)
	if !cfg.Device.AutoGain {
		eng.SetGain(cfg.Device.GainTenthsDb)
	}

	if cfg.Channel.Enabled {
		eng.ConfigureChannel(rf.Hz(cfg.Channel.CenterOffsetHz), rf.Hz(cfg.Channel.BandwidthHz))
		eng.ConfigureDemodulator(cfg.Channel.DemodMode(), rf.Hz(cfg.Channel.AudioSampleRate))
		eng.SetChannelEnabled(true)
	}

	spectrumID := eng.SpectrumHandler().RegisterListener(func(s iq.SpectrumData) {
		log.Debug().
			Int("bins", len(s.MagnitudesDb)).
			Float64("centerHz", float64(s.CenterFreq)).
			Msg("radiowizard: spectrum frame")
	})
	defer eng.SpectrumHandler().UnregisterListener(spectrumID)

	if cfg.Channel.Enabled {
		audioID := eng.AudioHandler().RegisterListener(func(a iq.DemodAudio) {
			log.Debug().Int("samples", len(a.Left)).Msg("radiowizard: audio block")
		})
		defer eng.AudioHandler().UnregisterListener(audioID)
	}

	var vita49File *os.File
	if *vita49Out != "" {
		vita49File, err = os.Create(*vita49Out)
		if err != nil {
			log.Fatal().Err(err).Str("path", *vita49Out).Msg("radiowizard: failed to open VITA49 output file")
		}
		defer vita49File.Close()

		codec := vita49.NewCodec()
		if cfg.Vita49.ByteOrder == "little" {
			codec.SetByteOrder(vita49.LittleEndian)
		}
		if cfg.Vita49.ScaleFactor > 0 {
			codec.SetScaleFactor(cfg.Vita49.ScaleFactor)
		}
		iqID := eng.IqHandler().RegisterListener(func(buf iq.Buffer) {
			samples := vita49.IQSamples(buf.Samples)
			packets := codec.EncodeSignalData(cfg.Vita49.StreamID, samples, vita49.TSINone, vita49.TSFNone, 0, 0, false)
			for _, p := range packets {
				if _, err := vita49File.Write(p); err != nil {
					log.Error().Err(err).Msg("radiowizard: VITA49 write failed")
					return
				}
			}
		})
		defer eng.IqHandler().UnregisterListener(iqID)
	}

	if !eng.Start(*deviceIndex) {
		log.Fatal().Msg("radiowizard: engine failed to start")
	}
	log.Info().
		Uint64("centerHz", eng.CenterFrequency()).
		Uint32("sampleRateHz", eng.SampleRate()).
		Msg("radiowizard: streaming started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	if *duration > 0 {
		select {
		case <-time.After(*duration):
		case <-sigCh:
		}
	} else {
		<-sigCh
	}

	log.Info().Msg("radiowizard: stopping")
	eng.Stop()
}
