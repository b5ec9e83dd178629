package dsp

import (
	"math"
	"sync"
)

// IQCorrector compensates gain and phase imbalance between the I and
// Q branches of a quadrature front end:
//
//	i' = i
//	q' = (q - phase*i) * gain
//
// Coefficients are updated asynchronously by an IQEstimator running on
// the optimizer thread, so access is mutex-guarded. The per-sample
// math reads a local copy once per block.
type IQCorrector struct {
	mu    sync.Mutex
	gain  float32
	phase float32
}

// NewIQCorrector creates a corrector with identity coefficients.
func NewIQCorrector() *IQCorrector {
	return &IQCorrector{gain: 1}
}

// Apply corrects buf[:n] in place using the current coefficients.
func (c *IQCorrector) Apply(buf []complex64, n int) (int, error) {
	c.mu.Lock()
	gain, phase := c.gain, c.phase
	c.mu.Unlock()

	if gain == 1 && phase == 0 {
		return n, nil
	}
	for k := range n {
		i := real(buf[k])
		q := (imag(buf[k]) - phase*i) * gain
		buf[k] = complex(i, q)
	}
	return n, nil
}

// Reset keeps the trained coefficients: imbalance is a hardware
// property, not per-stream DSP state.
func (c *IQCorrector) Reset() {}

// SetCoefficients installs new correction coefficients.
func (c *IQCorrector) SetCoefficients(gain, phase float32) {
	c.mu.Lock()
	c.gain = gain
	c.phase = phase
	c.mu.Unlock()
}

// Coefficients returns the current gain and phase coefficients.
func (c *IQCorrector) Coefficients() (gain, phase float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gain, c.phase
}

// IQEstimator derives correction coefficients from training blocks by
// second-moment analysis: branch power ratio gives the gain error,
// cross-correlation gives the phase error. Estimates are smoothed
// across blocks before being installed on the corrector.
type IQEstimator struct {
	corrector *IQCorrector

	// smoothed moment accumulators
	powerI float64
	powerQ float64
	crossIQ float64
	blocks int
}

// estimatorSmoothing blends each new block into the running moments.
const estimatorSmoothing = 0.1

// minTrainingPower guards against training on silence.
const minTrainingPower = 1e-12

// NewIQEstimator creates an estimator feeding the given corrector.
func NewIQEstimator(corrector *IQCorrector) *IQEstimator {
	return &IQEstimator{corrector: corrector}
}

// Train consumes one snapshot block and updates the corrector.
func (e *IQEstimator) Train(buf []complex64, n int) {
	if n == 0 {
		return
	}

	var pi, pq, cross float64
	for k := range n {
		i := float64(real(buf[k]))
		q := float64(imag(buf[k]))
		pi += i * i
		pq += q * q
		cross += i * q
	}
	inv := 1.0 / float64(n)
	pi *= inv
	pq *= inv
	cross *= inv

	if pi < minTrainingPower || pq < minTrainingPower {
		return
	}

	if e.blocks == 0 {
		e.powerI, e.powerQ, e.crossIQ = pi, pq, cross
	} else {
		e.powerI += (pi - e.powerI) * estimatorSmoothing
		e.powerQ += (pq - e.powerQ) * estimatorSmoothing
		e.crossIQ += (cross - e.crossIQ) * estimatorSmoothing
	}
	e.blocks++

	phase := float32(e.crossIQ / e.powerI)
	gain := float32(math.Sqrt(e.powerI / e.powerQ))
	e.corrector.SetCoefficients(gain, phase)
}

// Reset drops the accumulated statistics.
func (e *IQEstimator) Reset() {
	e.powerI = 0
	e.powerQ = 0
	e.crossIQ = 0
	e.blocks = 0
}
