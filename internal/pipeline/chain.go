package pipeline

import (
	"fmt"

	"github.com/tphakala/go-iq-pipeline/internal/chunk"
	"github.com/tphakala/go-iq-pipeline/internal/dsp"
)

// chain holds the DSP collaborators the processing stages delegate to.
// Everything is constructed once before any stage thread starts; Apply
// calls on the hot path never allocate.
type chain struct {
	inputConv   *dsp.InputConverter
	dcBlock     *dsp.DCBlocker
	iqCorrector *dsp.IQCorrector
	iqEstimator *dsp.IQEstimator
	shiftPre    *dsp.FreqShifter
	preFilter   dsp.Stage

	resampler *dsp.Resampler

	postFilter dsp.Stage
	shiftPost  *dsp.FreqShifter
	agc        *dsp.AGC
	outputConv *dsp.OutputConverter
}

// deriveSizing maps options onto the pool sizing inputs. FFT filter
// block sizes are computed analytically so the pool can be sized
// before the filters exist.
func deriveSizing(o *Options) chunk.Sizing {
	s := chunk.Sizing{
		BaselineSamples:  o.baselineSamples(),
		ResampleRatio:    1,
		InputFrameBytes:  o.InputFormat.FrameBytes(),
		OutputFrameBytes: o.OutputFormat.FrameBytes(),
	}
	if o.resampleActive() {
		s.ResampleRatio = o.ratio()
	}
	if f := o.PreFilter; f != nil && f.FFT {
		s.PreFilterBlock = dsp.FFTBlockForTaps(o.filterTaps(f))
	}
	if f := o.PostFilter; f != nil && f.FFT {
		s.PostFilterBlock = dsp.FFTBlockForTaps(o.filterTaps(f))
	}
	return s
}

func buildFilter(o *Options, f *FilterSpec, maxBlock int) (dsp.Stage, error) {
	if f.FFT {
		return dsp.NewLowPassFFT(f.Cutoff, o.filterTaps(f), maxBlock)
	}
	return dsp.NewLowPassFIR(f.Cutoff, o.filterTaps(f), maxBlock)
}

// buildChain constructs every collaborator the planned stages need.
// maxBlock is the pool's working complex-sample capacity.
func buildChain(o *Options, f stageFlags, maxBlock int) (*chain, error) {
	c := &chain{}
	if o.Passthrough {
		return c, nil
	}

	var err error
	gain := o.Gain
	if gain == 0 {
		gain = 1
	}
	if c.inputConv, err = dsp.NewInputConverter(o.InputFormat, gain); err != nil {
		return nil, fmt.Errorf("pipeline: input conversion: %w", err)
	}
	if c.outputConv, err = dsp.NewOutputConverter(o.OutputFormat); err != nil {
		return nil, fmt.Errorf("pipeline: output conversion: %w", err)
	}

	if o.DCBlock {
		c.dcBlock = dsp.NewDCBlocker()
	}
	if o.IQCorrection {
		c.iqCorrector = dsp.NewIQCorrector()
		c.iqEstimator = dsp.NewIQEstimator(c.iqCorrector)
	}
	if o.ShiftBeforeHz != 0 {
		c.shiftPre = dsp.NewFreqShifter(o.ShiftBeforeHz, o.InputRate)
	}
	if o.PreFilter != nil {
		if c.preFilter, err = buildFilter(o, o.PreFilter, maxBlock); err != nil {
			return nil, fmt.Errorf("pipeline: pre-resample filter: %w", err)
		}
	}

	if f.resampler {
		c.resampler = dsp.NewResampler(o.ratio())
	}

	if o.PostFilter != nil {
		if c.postFilter, err = buildFilter(o, o.PostFilter, maxBlock); err != nil {
			return nil, fmt.Errorf("pipeline: post-resample filter: %w", err)
		}
	}
	if o.ShiftAfterHz != 0 {
		c.shiftPost = dsp.NewFreqShifter(o.ShiftAfterHz, o.OutputRate)
	}
	if o.AGC {
		c.agc = dsp.NewAGC()
	}
	return c, nil
}

// shiftPreStage returns the pre-resample shifter as a Stage, or a nil
// interface when shifting is off.
func (c *chain) shiftPreStage() dsp.Stage {
	if c.shiftPre == nil {
		return nil
	}
	return c.shiftPre
}

func (c *chain) shiftPostStage() dsp.Stage {
	if c.shiftPost == nil {
		return nil
	}
	return c.shiftPost
}

// resetPre clears the pre-processor's stateful collaborators after a
// stream discontinuity. The I/Q corrector keeps its coefficients: the
// imbalance is a hardware property, not stream history.
func (c *chain) resetPre() {
	if c.dcBlock != nil {
		c.dcBlock.Reset()
	}
	if c.iqCorrector != nil {
		c.iqCorrector.Reset()
	}
	if c.shiftPre != nil {
		c.shiftPre.Reset()
	}
	if c.preFilter != nil {
		c.preFilter.Reset()
	}
}

func (c *chain) resetResampler() {
	if c.resampler != nil {
		c.resampler.Reset()
	}
}

func (c *chain) resetPost() {
	if c.postFilter != nil {
		c.postFilter.Reset()
	}
	if c.shiftPost != nil {
		c.shiftPost.Reset()
	}
	if c.agc != nil {
		c.agc.Reset()
	}
}
