package dsp

import "math"

// Resampler converts the sample rate by cubic Hermite interpolation
// over a sliding 4-point window, applied to the complex signal. The
// fractional phase carries across blocks for seamless streaming.
type Resampler struct {
	ratio   float64
	phase   float64
	history [4]complex64
	primed  int
}

// NewResampler creates a resampler with the given output/input ratio.
func NewResampler(ratio float64) *Resampler {
	return &Resampler{ratio: ratio}
}

// Ratio returns the configured output/input rate ratio.
func (r *Resampler) Ratio() float64 {
	return r.ratio
}

// WorstCaseOutput returns the largest output count Resample can
// produce for n input samples.
func (r *Resampler) WorstCaseOutput(n int) int {
	return int(math.Ceil(float64(n)*r.ratio)) + 1
}

// Resample converts src[:n] into dst and returns the number of output
// samples. dst must hold at least WorstCaseOutput(n) samples.
func (r *Resampler) Resample(dst, src []complex64, n int) (int, error) {
	if n == 0 {
		return 0, nil
	}
	if len(dst) < r.WorstCaseOutput(n) {
		return 0, ErrBlockTooLarge
	}

	out := 0
	step := 1.0 / r.ratio
	for k := range n {
		r.history[3] = r.history[2]
		r.history[2] = r.history[1]
		r.history[1] = r.history[0]
		r.history[0] = src[k]

		if r.primed < len(r.history) {
			// Interpolation needs a full 4-point window; swallow the
			// first samples after a cold start or reset.
			r.primed++
			continue
		}

		for r.phase < 1.0 {
			dst[out] = r.interpolate(float32(r.phase))
			out++
			r.phase += step
		}
		r.phase -= 1.0
	}
	return out, nil
}

// interpolate evaluates the cubic Hermite polynomial at fractional
// position x between the two center points of the window.
func (r *Resampler) interpolate(x float32) complex64 {
	y0 := r.history[3]
	y1 := r.history[2]
	y2 := r.history[1]
	y3 := r.history[0]

	h0 := complex64(complex(float32(hermiteHalf), 0))
	h1 := complex64(complex(float32(hermiteThreeHalves), 0))
	h2 := complex64(complex(float32(hermiteFiveHalves), 0))

	a := -h0*y0 + h1*y1 - h1*y2 + h0*y3
	b := y0 - h2*y1 + 2*y2 - h0*y3
	c := -h0*y0 + h0*y2
	d := y1

	cx := complex64(complex(x, 0))
	return ((a*cx+b)*cx+c)*cx + d
}

// Reset clears the interpolation window and phase.
func (r *Resampler) Reset() {
	r.phase = 0
	r.history = [4]complex64{}
	r.primed = 0
}
