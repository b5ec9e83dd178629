// Package testutil provides shared helpers for the pipeline and DSP
// tests.
package testutil

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Default tolerances for the DSP tests.
const (
	DefaultTolerance = 1e-10
	SampleTolerance  = 1e-4
)

// AssertSymmetric verifies that a slice is symmetric (s[i] == s[n-1-i]).
func AssertSymmetric(t *testing.T, s []float64, tolerance float64, msgAndArgs ...any) bool {
	t.Helper()
	n := len(s)
	for i := 0; i < n/2; i++ {
		j := n - 1 - i
		if !assert.InDelta(t, s[i], s[j], tolerance,
			"slice not symmetric at i=%d: s[%d]=%f != s[%d]=%f", i, i, s[i], j, s[j]) {
			return false
		}
	}
	return true
}

// AssertNoNaNOrInf verifies that no elements in the slice are NaN or Inf.
func AssertNoNaNOrInf(t *testing.T, s []float64, msgAndArgs ...any) bool {
	t.Helper()
	for i, v := range s {
		if math.IsNaN(v) {
			return assert.Fail(t, "found NaN", "s[%d] is NaN", i)
		}
		if math.IsInf(v, 0) {
			return assert.Fail(t, "found Inf", "s[%d] is Inf", i)
		}
	}
	return true
}

// AssertRelativeError verifies that the relative error between actual and expected is within tolerance.
func AssertRelativeError(t *testing.T, expected, actual, tolerance float64, msgAndArgs ...any) bool {
	t.Helper()
	if expected == 0 {
		return assert.InDelta(t, expected, actual, tolerance, msgAndArgs...)
	}
	relError := math.Abs(actual-expected) / math.Abs(expected)
	return assert.LessOrEqual(t, relError, tolerance,
		"relative error %e exceeds tolerance %e (expected=%f, actual=%f)",
		relError, tolerance, expected, actual)
}

// AssertInRange verifies that a value is within [min, max].
func AssertInRange(t *testing.T, value, minVal, maxVal float64, msgAndArgs ...any) bool {
	t.Helper()
	if value < minVal || value > maxVal {
		return assert.Fail(t, "value out of range",
			"value %f is outside range [%f, %f]", value, minVal, maxVal)
	}
	return true
}

// ComplexTone generates n samples of a complex exponential at the
// given frequency (Hz) and sample rate, with unit amplitude.
func ComplexTone(n int, freqHz, sampleRate float64) []complex64 {
	out := make([]complex64, n)
	for k := range n {
		phase := 2 * math.Pi * freqHz * float64(k) / sampleRate
		out[k] = complex(float32(math.Cos(phase)), float32(math.Sin(phase)))
	}
	return out
}

// AssertComplexNear verifies two complex samples match within a
// per-component tolerance.
func AssertComplexNear(t *testing.T, expected, actual complex64, tolerance float64, msgAndArgs ...any) bool {
	t.Helper()
	okR := assert.InDelta(t, float64(real(expected)), float64(real(actual)), tolerance, msgAndArgs...)
	okI := assert.InDelta(t, float64(imag(expected)), float64(imag(actual)), tolerance, msgAndArgs...)
	return okR && okI
}

// MeanPower returns the average power of buf[:n].
func MeanPower(buf []complex64, n int) float64 {
	if n == 0 {
		return 0
	}
	var sum float64
	for k := range n {
		i := float64(real(buf[k]))
		q := float64(imag(buf[k]))
		sum += i*i + q*q
	}
	return sum / float64(n)
}
