// Package dsp implements the transform collaborators invoked by the
// pipeline stages: sample format conversion, DC removal, I/Q imbalance
// correction, frequency shifting, FIR and FFT filtering, sample-rate
// conversion and AGC.
//
// Every collaborator is created once during pipeline setup with its
// working buffers pre-allocated; Apply never allocates.
package dsp

import "errors"

// Stage is an in-place transform applied to a block of complex
// baseband samples.
type Stage interface {
	// Apply transforms buf[:n] in place and returns the number of
	// valid samples, unchanged for all in-place stages.
	Apply(buf []complex64, n int) (int, error)

	// Reset clears internal state after a stream discontinuity so no
	// samples spanning a gap are filtered with stale memory.
	Reset()
}

// ErrUnsupportedFormat indicates a sample format the converter cannot
// handle. This is a configuration defect, not a transient condition.
var ErrUnsupportedFormat = errors.New("dsp: unsupported sample format")

// ErrBlockTooLarge indicates an input block exceeding the capacity a
// collaborator pre-allocated for.
var ErrBlockTooLarge = errors.New("dsp: block exceeds configured capacity")
