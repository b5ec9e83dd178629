// Package pipeline implements the concurrent chunk-processing engine:
// the stage graph built from the resolved options, the bounded queues
// and chunk pool connecting the stages, and the discontinuity, drain
// and shutdown coordination between them.
package pipeline

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/tphakala/go-iq-pipeline/internal/chunk"
	"github.com/tphakala/go-iq-pipeline/internal/dsp"
)

var (
	// ErrInvalidOptions is wrapped by every option validation failure.
	ErrInvalidOptions = errors.New("pipeline: invalid options")

	// ErrPassthroughConflict marks DSP options combined with raw
	// passthrough, which would otherwise be silently ignored.
	ErrPassthroughConflict = errors.New("pipeline: passthrough excludes processing options")
)

// FilterSpec describes one low-pass filter in the chain.
type FilterSpec struct {
	// Cutoff is the normalized cutoff frequency in (0, 0.5) relative
	// to the sample rate at the filter's position in the chain.
	Cutoff float64

	// Taps is the filter length; 0 selects the default.
	Taps int

	// FFT selects overlap-save FFT convolution over direct FIR.
	FFT bool
}

// ProgressFunc receives writer progress at a bounded rate. expected is
// negative when the source length is unknown.
type ProgressFunc func(framesWritten, expected, bytesWritten int64)

// Options is the resolved per-run configuration consumed by the stage
// graph builder. Callers fill it from their own config surface and
// must call Validate before New.
type Options struct {
	InputFormat  dsp.Format
	OutputFormat dsp.Format
	InputRate    float64
	OutputRate   float64

	// Gain scales input samples during format conversion. 0 means 1.
	Gain float64

	DCBlock       bool
	IQCorrection  bool
	ShiftBeforeHz float64
	ShiftAfterHz  float64
	PreFilter     *FilterSpec
	PostFilter    *FilterSpec
	AGC           bool

	// Passthrough copies raw input bytes straight to the sink.
	Passthrough bool

	// NoResample keeps the full processing chain but skips rate
	// conversion even when the rates differ nominally.
	NoResample bool

	// BufferedSDR decouples hardware capture from chunk granularity
	// through a framed byte ring.
	BufferedSDR bool

	// PoolChunks and BaselineSamples control pool sizing; zero picks
	// the defaults.
	PoolChunks      int
	BaselineSamples int

	// PaceOutput routes writer output through the pacing ring.
	PaceOutput bool

	Progress ProgressFunc
	Logger   *zap.Logger
}

// Validate rejects option combinations the graph builder would
// otherwise have to ignore silently.
func (o *Options) Validate() error {
	if o.InputRate <= 0 {
		return fmt.Errorf("%w: input rate %v", ErrInvalidOptions, o.InputRate)
	}
	if o.OutputRate <= 0 {
		return fmt.Errorf("%w: output rate %v", ErrInvalidOptions, o.OutputRate)
	}
	if o.Gain < 0 {
		return fmt.Errorf("%w: negative gain %v", ErrInvalidOptions, o.Gain)
	}
	if o.Passthrough {
		if o.PreFilter != nil || o.PostFilter != nil {
			return fmt.Errorf("%w: filter", ErrPassthroughConflict)
		}
		if o.DCBlock || o.IQCorrection || o.AGC {
			return fmt.Errorf("%w: correction", ErrPassthroughConflict)
		}
		if o.ShiftBeforeHz != 0 || o.ShiftAfterHz != 0 {
			return fmt.Errorf("%w: frequency shift", ErrPassthroughConflict)
		}
		if !o.NoResample && o.InputRate != o.OutputRate {
			return fmt.Errorf("%w: rate conversion", ErrPassthroughConflict)
		}
	}
	for _, f := range []*FilterSpec{o.PreFilter, o.PostFilter} {
		if f == nil {
			continue
		}
		if f.Cutoff <= 0 || f.Cutoff >= 0.5 {
			return fmt.Errorf("%w: filter cutoff %v outside (0, 0.5)",
				ErrInvalidOptions, f.Cutoff)
		}
		if f.Taps < 0 {
			return fmt.Errorf("%w: filter taps %d", ErrInvalidOptions, f.Taps)
		}
	}
	if o.PoolChunks < 0 || o.BaselineSamples < 0 {
		return fmt.Errorf("%w: negative pool sizing", ErrInvalidOptions)
	}
	return nil
}

func (o *Options) resampleActive() bool {
	return !o.NoResample && !o.Passthrough && o.InputRate != o.OutputRate
}

func (o *Options) ratio() float64 {
	return o.OutputRate / o.InputRate
}

func (o *Options) poolChunks() int {
	if o.PoolChunks > 0 {
		return o.PoolChunks
	}
	return defaultPoolChunks
}

func (o *Options) baselineSamples() int {
	if o.BaselineSamples > 0 {
		return o.BaselineSamples
	}
	return chunk.DefaultBaselineSamples
}

func (o *Options) filterTaps(f *FilterSpec) int {
	if f.Taps > 0 {
		return f.Taps
	}
	return dsp.DefaultFilterTaps
}

func (o *Options) logger() *zap.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return zap.NewNop()
}
