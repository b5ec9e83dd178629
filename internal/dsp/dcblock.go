package dsp

// DCBlocker removes the DC offset common to zero-IF SDR front ends by
// subtracting a slowly tracking running mean from each sample.
type DCBlocker struct {
	avgI float64
	avgQ float64
}

// NewDCBlocker creates a DC blocker with zeroed history.
func NewDCBlocker() *DCBlocker {
	return &DCBlocker{}
}

// Apply removes the tracked DC component from buf[:n] in place.
func (d *DCBlocker) Apply(buf []complex64, n int) (int, error) {
	avgI, avgQ := d.avgI, d.avgQ
	for k := range n {
		i := float64(real(buf[k]))
		q := float64(imag(buf[k]))
		avgI += (i - avgI) * dcBlockAlpha
		avgQ += (q - avgQ) * dcBlockAlpha
		buf[k] = complex(float32(i-avgI), float32(q-avgQ))
	}
	d.avgI, d.avgQ = avgI, avgQ
	return n, nil
}

// Reset clears the running mean.
func (d *DCBlocker) Reset() {
	d.avgI = 0
	d.avgQ = 0
}
