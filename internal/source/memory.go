package source

import (
	"context"
	"sync/atomic"

	"github.com/tphakala/go-iq-pipeline/internal/dsp"
)

// MemorySource delivers canned bursts, optionally flagged with
// discontinuities. Used by the pipeline tests and benchmarks.
type MemorySource struct {
	bursts     []MemoryBurst
	format     dsp.Format
	sampleRate float64
	realtime   bool

	stopped atomic.Bool
}

// MemoryBurst is one scripted delivery.
type MemoryBurst struct {
	Data          []byte
	Discontinuity bool
}

// NewMemorySource creates a source that replays the given bursts once.
func NewMemorySource(format dsp.Format, sampleRate float64, bursts ...MemoryBurst) *MemorySource {
	return &MemorySource{
		bursts:     bursts,
		format:     format,
		sampleRate: sampleRate,
	}
}

// SetRealtime marks the source as SDR-class for drop-policy tests.
func (s *MemorySource) SetRealtime(v bool) { s.realtime = v }

// Initialize resets replay state.
func (s *MemorySource) Initialize(ctx context.Context) error {
	s.stopped.Store(false)
	return nil
}

// StartStream replays every burst, then returns nil for clean EOF.
func (s *MemorySource) StartStream(ctx context.Context, deliver DeliverFunc) error {
	for _, b := range s.bursts {
		if s.stopped.Load() || ctx.Err() != nil {
			return nil
		}
		if !deliver(b.Data, b.Discontinuity) {
			return nil
		}
	}
	return nil
}

// StopStream stops the replay.
func (s *MemorySource) StopStream(ctx context.Context) error {
	s.stopped.Store(true)
	return nil
}

// Cleanup is a no-op.
func (s *MemorySource) Cleanup(ctx context.Context) error { return nil }

// Format returns the configured format.
func (s *MemorySource) Format() dsp.Format { return s.format }

// SampleRate returns the configured rate.
func (s *MemorySource) SampleRate() float64 { return s.sampleRate }

// KnownFrames sums the scripted burst sizes.
func (s *MemorySource) KnownFrames() (int64, bool) {
	var total int64
	for _, b := range s.bursts {
		total += int64(len(b.Data) / s.format.FrameBytes())
	}
	return total, true
}

// Realtime reports the configured device class.
func (s *MemorySource) Realtime() bool { return s.realtime }
