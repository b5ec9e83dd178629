package dsp

import "math"

// Sample scaling constants.
const (
	// unsignedByteOffset centers unsigned 8-bit samples around zero.
	unsignedByteOffset = 127.5

	// int8Scale, int16Scale normalize signed fixed-point samples to
	// the [-1, 1) range.
	int8Scale  = 1.0 / 128.0
	int16Scale = 1.0 / 32768.0

	// maxInt16 and maxInt8 are the clipping bounds used when
	// converting back to fixed point.
	maxInt16 = 32767.0
	maxInt8  = 127.0
	maxUint8 = 255.0
)

// DC blocker constants.
const (
	// dcBlockAlpha is the tracking coefficient of the running-mean DC
	// estimate. Small enough to leave low-frequency signal content
	// intact at SDR sample rates.
	dcBlockAlpha = 1.0 / 4096.0
)

// Frequency shifter constants.
const (
	// oscRenormInterval bounds numeric drift of the recursive complex
	// oscillator by renormalizing its magnitude periodically.
	oscRenormInterval = 4096

	twoPi = 2 * math.Pi
)

// AGC constants.
const (
	// agcTargetAmplitude is the steady-state peak the AGC drives the
	// signal toward, leaving headroom below full scale.
	agcTargetAmplitude = 0.707

	// agcAttackRate and agcDecayRate are per-block gain adjustment
	// factors. Attack is fast to avoid clipping, decay is slow to
	// avoid pumping.
	agcAttackRate = 0.5
	agcDecayRate  = 0.01

	// agcMaxGain caps amplification of noise-only input.
	agcMaxGain = 1000.0

	agcMinPeak = 1e-9
)

// Filter defaults.
const (
	// DefaultFilterTaps is the FIR length used when the caller does
	// not specify one.
	DefaultFilterTaps = 129

	// DefaultFilterAttenuation is the stopband attenuation target in
	// dB for designed low-pass filters.
	DefaultFilterAttenuation = 80.0

	// minFFTKernelBlock is the smallest FFT block used by the
	// overlap-save filter.
	minFFTKernelBlock = 1024
)

// Cubic Hermite interpolation coefficients.
const (
	hermiteHalf        = 0.5
	hermiteThreeHalves = 1.5
	hermiteFiveHalves  = 2.5
)
