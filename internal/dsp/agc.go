package dsp

// AGC levels the signal toward a target peak amplitude with a fast
// attack and slow decay, adjusting gain once per block so the hot
// path stays a single multiply per sample.
type AGC struct {
	gain float32
}

// NewAGC creates an AGC with unity starting gain.
func NewAGC() *AGC {
	return &AGC{gain: 1}
}

// Apply levels buf[:n] in place.
func (a *AGC) Apply(buf []complex64, n int) (int, error) {
	if n == 0 {
		return 0, nil
	}

	var peak float32
	for k := range n {
		i := real(buf[k])
		if i < 0 {
			i = -i
		}
		q := imag(buf[k])
		if q < 0 {
			q = -q
		}
		if i > peak {
			peak = i
		}
		if q > peak {
			peak = q
		}
	}
	if peak < agcMinPeak {
		return n, nil
	}

	desired := float32(agcTargetAmplitude) / peak
	if desired > agcMaxGain {
		desired = agcMaxGain
	}

	// Fast attack when the leveled signal would clip, slow decay
	// otherwise.
	rate := float32(agcDecayRate)
	if desired < a.gain {
		rate = agcAttackRate
	}
	a.gain += (desired - a.gain) * rate

	g := complex64(complex(a.gain, 0))
	for k := range n {
		buf[k] *= g
	}
	return n, nil
}

// Reset returns the gain to unity.
func (a *AGC) Reset() {
	a.gain = 1
}

// Gain returns the current gain, for diagnostics.
func (a *AGC) Gain() float32 {
	return a.gain
}
