package iqpipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tphakala/go-iq-pipeline/internal/dsp"
	"github.com/tphakala/go-iq-pipeline/internal/pipeline"
)

// SampleFormat names an I/Q wire format.
type SampleFormat string

// Supported wire formats. Each frame is one I/Q pair.
const (
	// FormatU8 is unsigned 8-bit offset-binary, the RTL-SDR native
	// format.
	FormatU8 SampleFormat = "u8"

	// FormatS8 is signed 8-bit (HackRF native).
	FormatS8 SampleFormat = "s8"

	// FormatS16 is signed 16-bit little-endian.
	FormatS16 SampleFormat = "s16le"

	// FormatF32 is 32-bit little-endian float.
	FormatF32 SampleFormat = "f32le"
)

// ProgressFunc receives writer progress at a bounded rate. expected is
// negative when the input length is unknown (live streams).
type ProgressFunc func(framesWritten, expected, bytesWritten int64)

// SDRConfig selects an RTL-SDR dongle as the input.
type SDRConfig struct {
	// DeviceIndex is the dongle index, usually 0.
	DeviceIndex int

	// CenterFreqHz tunes the dongle.
	CenterFreqHz uint32

	// TunerGain is tenths of a dB; 0 selects automatic gain.
	TunerGain int

	// Buffered decouples hardware capture from processing through a
	// framed byte ring, trading latency for overrun resistance.
	Buffered bool
}

// Config describes one conversion run.
type Config struct {
	// Input is a file path, "-" for stdin, or a .wav file. Ignored
	// when SDR is set.
	Input string

	// Output is a file path, "-" for stdout, or a .wav file.
	Output string

	InputFormat  SampleFormat
	OutputFormat SampleFormat

	// InputRate and OutputRate are sample rates in Hz. For WAV input
	// the file's own rate wins and InputRate may be zero.
	InputRate  float64
	OutputRate float64

	// Gain scales input samples during conversion; 0 means unity.
	Gain float64

	// ShiftHz mixes the spectrum by this offset before resampling.
	ShiftHz float64

	// PostShiftHz mixes after resampling, at the output rate.
	PostShiftHz float64

	DCBlock      bool
	IQCorrection bool
	AGC          bool

	// FilterCutoffHz enables a low-pass filter before the resampler;
	// 0 disables it.
	FilterCutoffHz float64

	// FilterTaps is the filter length; 0 selects the default.
	FilterTaps int

	// FFTFilter selects overlap-save FFT convolution for the filter.
	FFTFilter bool

	// PostFilterCutoffHz enables a second low-pass after resampling,
	// specified in Hz at the output rate.
	PostFilterCutoffHz float64

	// Passthrough copies input bytes to the output untouched.
	Passthrough bool

	// NoResample keeps the DSP chain but skips rate conversion.
	NoResample bool

	SDR *SDRConfig

	// PoolChunks and ChunkSamples tune pipeline memory; zero selects
	// the defaults.
	PoolChunks   int
	ChunkSamples int

	// Verbose switches the logger to debug level.
	Verbose bool

	Progress ProgressFunc
}

var (
	// ErrInvalidConfig is wrapped by every configuration failure.
	ErrInvalidConfig = errors.New("iqpipeline: invalid config")
)

func (f SampleFormat) toDSP() (dsp.Format, error) {
	return dsp.ParseFormat(string(f))
}

// Validate checks the parts of the configuration that can be judged
// without opening the input. Option-combination rules (for example
// passthrough with a filter) are enforced when the pipeline is built.
func (c *Config) Validate() error {
	if c.Input == "" && c.SDR == nil {
		return fmt.Errorf("%w: no input", ErrInvalidConfig)
	}
	if c.Output == "" {
		return fmt.Errorf("%w: no output", ErrInvalidConfig)
	}
	if c.OutputRate <= 0 {
		return fmt.Errorf("%w: output rate %v", ErrInvalidConfig, c.OutputRate)
	}
	if c.InputRate <= 0 && !c.wavInput() && c.SDR == nil {
		return fmt.Errorf("%w: input rate %v", ErrInvalidConfig, c.InputRate)
	}
	if c.OutputFormat != "" {
		if _, err := c.OutputFormat.toDSP(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	if c.InputFormat != "" {
		if _, err := c.InputFormat.toDSP(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	if c.FilterCutoffHz < 0 || c.PostFilterCutoffHz < 0 {
		return fmt.Errorf("%w: negative filter cutoff", ErrInvalidConfig)
	}
	return nil
}

func (c *Config) wavInput() bool {
	return strings.HasSuffix(strings.ToLower(c.Input), ".wav")
}

func (c *Config) wavOutput() bool {
	return strings.HasSuffix(strings.ToLower(c.Output), ".wav")
}

// options maps the resolved config onto the engine options. inFormat
// and inRate are the resolved input parameters (WAV and SDR inputs
// dictate their own).
func (c *Config) options(inFormat dsp.Format, inRate float64, outFormat dsp.Format) *pipeline.Options {
	o := &pipeline.Options{
		InputFormat:     inFormat,
		OutputFormat:    outFormat,
		InputRate:       inRate,
		OutputRate:      c.OutputRate,
		Gain:            c.Gain,
		DCBlock:         c.DCBlock,
		IQCorrection:    c.IQCorrection,
		ShiftBeforeHz:   c.ShiftHz,
		ShiftAfterHz:    c.PostShiftHz,
		AGC:             c.AGC,
		Passthrough:     c.Passthrough,
		NoResample:      c.NoResample,
		BufferedSDR:     c.SDR != nil && c.SDR.Buffered,
		PoolChunks:      c.PoolChunks,
		BaselineSamples: c.ChunkSamples,
		Progress:        pipeline.ProgressFunc(c.Progress),
	}
	if c.FilterCutoffHz > 0 {
		o.PreFilter = &pipeline.FilterSpec{
			Cutoff: c.FilterCutoffHz / inRate,
			Taps:   c.FilterTaps,
			FFT:    c.FFTFilter,
		}
	}
	if c.PostFilterCutoffHz > 0 {
		o.PostFilter = &pipeline.FilterSpec{
			Cutoff: c.PostFilterCutoffHz / c.OutputRate,
			Taps:   c.FilterTaps,
			FFT:    c.FFTFilter,
		}
	}
	return o
}
