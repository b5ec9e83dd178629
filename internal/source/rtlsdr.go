//go:build rtlsdr

package source

import (
	"context"
	"fmt"
	"sync/atomic"

	rtl "github.com/jpoirier/gortlsdr"

	"github.com/tphakala/go-iq-pipeline/internal/dsp"
)

// RTL-SDR async read geometry.
const (
	rtlBufferCount = 15
	rtlBufferBytes = 16 * 32 * 512
)

// RTLSDRSource streams unsigned 8-bit I/Q from an RTL-SDR dongle via
// the librtlsdr async interface.
type RTLSDRSource struct {
	index      int
	centerFreq uint32
	sampleRate uint32
	tunerGain  int // tenths of dB, 0 means hardware AGC

	dev     *rtl.Context
	stopped atomic.Bool
}

// OpenRTLSDR creates a source for dongle index tuned to centerFreq.
func OpenRTLSDR(index int, centerFreq, sampleRate uint32, tunerGain int) (Source, error) {
	return NewRTLSDRSource(index, centerFreq, sampleRate, tunerGain), nil
}

// NewRTLSDRSource creates a source for dongle index tuned to
// centerFreq at sampleRate. tunerGain is in tenths of dB; zero
// enables hardware AGC.
func NewRTLSDRSource(index int, centerFreq, sampleRate uint32, tunerGain int) *RTLSDRSource {
	return &RTLSDRSource{
		index:      index,
		centerFreq: centerFreq,
		sampleRate: sampleRate,
		tunerGain:  tunerGain,
	}
}

// Initialize opens and tunes the dongle.
func (s *RTLSDRSource) Initialize(ctx context.Context) error {
	dev, err := rtl.Open(s.index)
	if err != nil {
		return fmt.Errorf("source: rtlsdr open #%d: %w", s.index, err)
	}

	if err := dev.SetSampleRate(int(s.sampleRate)); err != nil {
		dev.Close()
		return fmt.Errorf("source: rtlsdr sample rate: %w", err)
	}
	if err := dev.SetCenterFreq(int(s.centerFreq)); err != nil {
		dev.Close()
		return fmt.Errorf("source: rtlsdr center freq: %w", err)
	}
	if s.tunerGain > 0 {
		if err := dev.SetTunerGainMode(true); err == nil {
			_ = dev.SetTunerGain(s.tunerGain)
		}
	} else {
		_ = dev.SetTunerGainMode(false)
	}
	if err := dev.ResetBuffer(); err != nil {
		dev.Close()
		return fmt.Errorf("source: rtlsdr reset buffer: %w", err)
	}

	s.dev = dev
	s.stopped.Store(false)
	return nil
}

// StartStream runs the blocking async read loop, relaying every
// hardware buffer to deliver. The callback runs on the driver thread;
// deliver must not block it.
func (s *RTLSDRSource) StartStream(ctx context.Context, deliver DeliverFunc) error {
	if s.dev == nil {
		return ErrNotInitialized
	}

	cb := func(buf []byte) {
		if s.stopped.Load() {
			return
		}
		if !deliver(buf, false) {
			s.stopped.Store(true)
			_ = s.dev.CancelAsync()
		}
	}

	if err := s.dev.ReadAsync(cb, nil, rtlBufferCount, rtlBufferBytes); err != nil {
		if s.stopped.Load() {
			return nil
		}
		return fmt.Errorf("source: rtlsdr read: %w", err)
	}
	return nil
}

// StopStream cancels the async read. This direct cancel is required:
// the driver read does not observe the pipeline shutdown flag.
func (s *RTLSDRSource) StopStream(ctx context.Context) error {
	s.stopped.Store(true)
	if s.dev == nil {
		return nil
	}
	return s.dev.CancelAsync()
}

// Cleanup closes the dongle.
func (s *RTLSDRSource) Cleanup(ctx context.Context) error {
	if s.dev == nil {
		return nil
	}
	err := s.dev.Close()
	s.dev = nil
	return err
}

// Format returns the RTL-SDR native unsigned 8-bit format.
func (s *RTLSDRSource) Format() dsp.Format { return dsp.FormatU8 }

// SampleRate returns the configured device rate.
func (s *RTLSDRSource) SampleRate() float64 { return float64(s.sampleRate) }

// KnownFrames is unknown for live hardware.
func (s *RTLSDRSource) KnownFrames() (int64, bool) { return 0, false }

// Realtime is true for hardware devices.
func (s *RTLSDRSource) Realtime() bool { return true }
