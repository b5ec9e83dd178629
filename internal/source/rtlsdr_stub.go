//go:build !rtlsdr

package source

import "errors"

// ErrNoRTLSDR is returned when RTL-SDR support was not compiled in.
var ErrNoRTLSDR = errors.New("source: built without rtlsdr support (use -tags rtlsdr)")

// OpenRTLSDR reports missing driver support in this build.
func OpenRTLSDR(index int, centerFreq, sampleRate uint32, tunerGain int) (Source, error) {
	return nil, ErrNoRTLSDR
}
