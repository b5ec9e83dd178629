package dsp

import "math"

// FreqShifter translates the signal in frequency by mixing it with a
// complex oscillator. The oscillator advances by recursive rotation
// with periodic renormalization to bound numeric drift.
type FreqShifter struct {
	step complex128
	osc  complex128
	n    int
}

// NewFreqShifter creates a shifter moving the spectrum by shiftHz at
// the given sample rate. Negative shiftHz shifts down.
func NewFreqShifter(shiftHz, sampleRate float64) *FreqShifter {
	phaseInc := twoPi * shiftHz / sampleRate
	return &FreqShifter{
		step: complex(math.Cos(phaseInc), math.Sin(phaseInc)),
		osc:  complex(1, 0),
	}
}

// Apply mixes buf[:n] with the oscillator in place.
func (s *FreqShifter) Apply(buf []complex64, n int) (int, error) {
	osc := s.osc
	count := s.n
	for k := range n {
		v := complex128(buf[k]) * osc
		buf[k] = complex64(v)

		osc *= s.step
		count++
		if count >= oscRenormInterval {
			// Rotation accumulates magnitude error; pull back to the
			// unit circle.
			mag := math.Hypot(real(osc), imag(osc))
			osc = complex(real(osc)/mag, imag(osc)/mag)
			count = 0
		}
	}
	s.osc = osc
	s.n = count
	return n, nil
}

// Reset rewinds the oscillator phase to zero.
func (s *FreqShifter) Reset() {
	s.osc = complex(1, 0)
	s.n = 0
}
