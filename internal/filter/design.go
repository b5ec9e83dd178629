// Package filter provides FIR filter design for the I/Q processing
// stages, using the Kaiser window method.
package filter

import (
	"fmt"
	"math"

	"github.com/tphakala/simd/f64"

	"github.com/tphakala/go-iq-pipeline/internal/mathutil"
)

const (
	minFilterTaps = 3
	maxFilterTaps = 8191

	// Window normalization
	windowNormalizationFactor = 2.0

	// Sinc function constants
	sincCenterTap     = 1.0
	sincZeroThreshold = 1e-10
)

// KaiserWindow generates a Kaiser window of the specified length and β
// parameter. β controls the trade-off between main lobe width and
// sidelobe level; typical values are 0-15. The window is symmetric.
func KaiserWindow(length int, beta float64) []float64 {
	if length < 1 {
		return []float64{}
	}

	window := make([]float64, length)
	if length == 1 {
		window[0] = sincCenterTap
		return window
	}

	// w[n] = I₀(β · sqrt(1 - ((n - α)/α)²)) / I₀(β), α = (N-1)/2
	alpha := float64(length-1) / windowNormalizationFactor
	i0Beta := mathutil.BesselI0(beta)

	for n := range length {
		x := (float64(n) - alpha) / alpha
		arg := beta * math.Sqrt(1.0-x*x)
		window[n] = mathutil.BesselI0(arg) / i0Beta
	}

	return window
}

// Params holds low-pass filter design parameters.
type Params struct {
	// NumTaps is the filter length. Should be odd for a symmetric
	// linear-phase FIR.
	NumTaps int

	// CutoffFreq is the normalized cutoff frequency in (0, 0.5),
	// where 0.5 is Nyquist.
	CutoffFreq float64

	// Attenuation is the desired stopband attenuation in dB.
	Attenuation float64

	// Gain is the passband gain, typically 1.0.
	Gain float64
}

// Validate checks the design parameters.
func (p *Params) Validate() error {
	if p.NumTaps < minFilterTaps {
		return fmt.Errorf("filter too short: %d taps (minimum %d)", p.NumTaps, minFilterTaps)
	}
	if p.NumTaps > maxFilterTaps {
		return fmt.Errorf("filter too long: %d taps (maximum %d)", p.NumTaps, maxFilterTaps)
	}
	if p.CutoffFreq <= 0 || p.CutoffFreq >= 0.5 {
		return fmt.Errorf("invalid cutoff frequency: %f (must be in (0, 0.5))", p.CutoffFreq)
	}
	if p.Attenuation < 0 {
		return fmt.Errorf("invalid attenuation: %f dB (must be positive)", p.Attenuation)
	}
	if p.Gain <= 0 {
		return fmt.Errorf("invalid gain: %f (must be positive)", p.Gain)
	}
	return nil
}

// DesignLowPass designs a windowed-sinc low-pass FIR filter:
// ideal sinc response, truncated, Kaiser-windowed against Gibbs
// ringing, then normalized to the desired DC gain. The result has
// linear phase.
func DesignLowPass(params Params) ([]float64, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	beta := mathutil.KaiserBeta(params.Attenuation)
	window := KaiserWindow(params.NumTaps, beta)

	coeffs := make([]float64, params.NumTaps)
	center := float64(params.NumTaps-1) / windowNormalizationFactor

	for n := range params.NumTaps {
		x := float64(n) - center

		// sinc: sin(2πfc·x) / (πx); the x=0 limit is 2fc.
		var sincValue float64
		if math.Abs(x) < sincZeroThreshold {
			sincValue = windowNormalizationFactor * params.CutoffFreq
		} else {
			arg := windowNormalizationFactor * math.Pi * params.CutoffFreq * x
			sincValue = math.Sin(arg) / (math.Pi * x)
		}

		coeffs[n] = sincValue * window[n]
	}

	// Normalize DC gain with the SIMD sum/scale kernels.
	sum := f64.Sum(coeffs)
	if math.Abs(sum) > sincZeroThreshold {
		f64.Scale(coeffs, coeffs, params.Gain/sum)
	}

	return coeffs, nil
}

// DesignLowPassAuto designs a low-pass filter with the tap count
// derived from the attenuation and transition bandwidth requirements.
func DesignLowPassAuto(cutoffFreq, transitionBW, attenuation, gain float64) ([]float64, error) {
	numTaps := mathutil.EstimateFilterLength(attenuation, transitionBW)
	return DesignLowPass(Params{
		NumTaps:     numTaps,
		CutoffFreq:  cutoffFreq,
		Attenuation: attenuation,
		Gain:        gain,
	})
}
