package dsp

import (
	"github.com/tphakala/simd/f32"

	"github.com/tphakala/go-iq-pipeline/internal/filter"
)

// FIRFilter is a streaming low-pass FIR applied independently to the
// I and Q planes. Convolution runs on deinterleaved float32 planes so
// the SIMD kernels can be used directly; tap history carries across
// blocks for seamless streaming.
type FIRFilter struct {
	taps     []float32
	maxBlock int

	// histI/histQ hold the trailing taps-1 samples of the previous
	// block; workI/workQ are the history-prefixed convolution inputs.
	histI []float32
	histQ []float32
	workI []float32
	workQ []float32
	outI  []float32
	outQ  []float32
}

// NewLowPassFIR designs a Kaiser-windowed sinc low-pass filter with
// numTaps coefficients and the given normalized cutoff (0..0.5), sized
// to process blocks of at most maxBlock samples.
func NewLowPassFIR(cutoff float64, numTaps, maxBlock int) (*FIRFilter, error) {
	coeffs, err := filter.DesignLowPass(filter.Params{
		NumTaps:     numTaps,
		CutoffFreq:  cutoff,
		Attenuation: DefaultFilterAttenuation,
		Gain:        1.0,
	})
	if err != nil {
		return nil, err
	}

	taps := make([]float32, len(coeffs))
	for i, c := range coeffs {
		taps[i] = float32(c)
	}

	overlap := len(taps) - 1
	return &FIRFilter{
		taps:     taps,
		maxBlock: maxBlock,
		histI:    make([]float32, overlap),
		histQ:    make([]float32, overlap),
		workI:    make([]float32, maxBlock+overlap),
		workQ:    make([]float32, maxBlock+overlap),
		outI:     make([]float32, maxBlock),
		outQ:     make([]float32, maxBlock),
	}, nil
}

// Apply filters buf[:n] in place.
func (f *FIRFilter) Apply(buf []complex64, n int) (int, error) {
	if n > f.maxBlock {
		return 0, ErrBlockTooLarge
	}
	if n == 0 {
		return 0, nil
	}
	overlap := len(f.taps) - 1

	copy(f.workI, f.histI)
	copy(f.workQ, f.histQ)
	for k := range n {
		f.workI[overlap+k] = real(buf[k])
		f.workQ[overlap+k] = imag(buf[k])
	}

	f32.ConvolveValid(f.outI[:n], f.workI[:n+overlap], f.taps)
	f32.ConvolveValid(f.outQ[:n], f.workQ[:n+overlap], f.taps)

	copy(f.histI, f.workI[n:n+overlap])
	copy(f.histQ, f.workQ[n:n+overlap])

	for k := range n {
		buf[k] = complex(f.outI[k], f.outQ[k])
	}
	return n, nil
}

// Reset clears the tap history.
func (f *FIRFilter) Reset() {
	clear(f.histI)
	clear(f.histQ)
}

// Len returns the filter length in taps.
func (f *FIRFilter) Len() int {
	return len(f.taps)
}
