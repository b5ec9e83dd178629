package dsp

import (
	"github.com/tphakala/simd/c128"
	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/tphakala/go-iq-pipeline/internal/filter"
)

// FFTFilter is a streaming low-pass filter using overlap-save FFT
// convolution on the complex signal. O(N log N) per block instead of
// O(N×M), worthwhile for long kernels.
//
// Overlap-save: each FFT block of fftSize samples yields
// fftSize-kernelLen+1 valid outputs; the first kernelLen-1 results of
// every block are circular-wrap artifacts and are discarded. The
// trailing kernelLen-1 input samples carry over as history so output
// is gapless across Apply calls.
type FFTFilter struct {
	fft       *fourier.CmplxFFT
	fftSize   int
	blockSize int
	kernelLen int
	scale     complex128
	maxBlock  int

	kernelFFT []complex128

	// pre-allocated working storage
	hist      []complex128
	work      []complex128
	block     []complex128
	signalFFT []complex128
	product   []complex128
	ifftOut   []complex128
}

// NewLowPassFFT designs a Kaiser low-pass kernel of numTaps
// coefficients and builds an overlap-save convolver for blocks of at
// most maxBlock samples.
func NewLowPassFFT(cutoff float64, numTaps, maxBlock int) (*FFTFilter, error) {
	coeffs, err := filter.DesignLowPass(filter.Params{
		NumTaps:     numTaps,
		CutoffFreq:  cutoff,
		Attenuation: DefaultFilterAttenuation,
		Gain:        1.0,
	})
	if err != nil {
		return nil, err
	}
	kernelLen := len(coeffs)
	fftSize := FFTBlockForTaps(kernelLen)
	blockSize := fftSize - kernelLen + 1

	fft := fourier.NewCmplxFFT(fftSize)

	// Reversed kernel turns the FFT's circular correlation into the
	// convolution we want.
	kernelPadded := make([]complex128, fftSize)
	for i := range kernelLen {
		kernelPadded[i] = complex(coeffs[kernelLen-1-i], 0)
	}
	kernelFFT := fft.Coefficients(nil, kernelPadded)

	overlap := kernelLen - 1
	return &FFTFilter{
		fft:       fft,
		fftSize:   fftSize,
		blockSize: blockSize,
		kernelLen: kernelLen,
		scale:     complex(1.0/float64(fftSize), 0),
		maxBlock:  maxBlock,
		kernelFFT: kernelFFT,
		hist:      make([]complex128, overlap),
		work:      make([]complex128, maxBlock+overlap),
		block:     make([]complex128, fftSize),
		signalFFT: make([]complex128, fftSize),
		product:   make([]complex128, fftSize),
		ifftOut:   make([]complex128, fftSize),
	}, nil
}

// FFTBlockForTaps returns the FFT size an overlap-save convolver uses
// for a kernel of numTaps coefficients. Buffer sizing needs this
// before the filter itself exists.
func FFTBlockForTaps(numTaps int) int {
	fftSize := minFFTKernelBlock
	for fftSize < 2*numTaps {
		fftSize *= 2
	}
	return fftSize
}

// Apply filters buf[:n] in place.
func (f *FFTFilter) Apply(buf []complex64, n int) (int, error) {
	if n > f.maxBlock {
		return 0, ErrBlockTooLarge
	}
	if n == 0 {
		return 0, nil
	}
	overlap := f.kernelLen - 1

	copy(f.work, f.hist)
	for k := range n {
		f.work[overlap+k] = complex128(buf[k])
	}
	signal := f.work[:overlap+n]

	for outIdx := 0; outIdx < n; outIdx += f.blockSize {
		clear(f.block)
		copy(f.block, signal[outIdx:min(outIdx+f.fftSize, len(signal))])

		f.signalFFT = f.fft.Coefficients(f.signalFFT, f.block)
		c128.Mul(f.product, f.signalFFT, f.kernelFFT)
		f.ifftOut = f.fft.Sequence(f.ifftOut, f.product)

		valid := min(f.blockSize, n-outIdx)
		for k := range valid {
			buf[outIdx+k] = complex64(f.ifftOut[overlap+k] * f.scale)
		}
	}

	copy(f.hist, f.work[n:n+overlap])
	return n, nil
}

// Reset clears the overlap history.
func (f *FFTFilter) Reset() {
	clear(f.hist)
}

// BlockSize returns the FFT block size, which the chunk pool must be
// able to hold in one working buffer.
func (f *FFTFilter) BlockSize() int {
	return f.fftSize
}
