// Package source implements the input collaborators the pipeline
// reads from: raw I/Q files, WAV files, stdin and SDR hardware, plus
// the packet framing used by the buffered SDR capture path.
package source

import (
	"context"
	"errors"

	"github.com/tphakala/go-iq-pipeline/internal/dsp"
)

// DeliverFunc receives one burst of raw wire-format bytes from a
// streaming source. discontinuity marks data loss preceding this
// burst. Returning false tells the source to stop streaming.
type DeliverFunc func(data []byte, discontinuity bool) bool

// Source is an input device or file. The pipeline calls Initialize
// once, runs StartStream on the reading goroutine (it blocks until the
// stream ends or StopStream is called), and Cleanup at teardown.
type Source interface {
	// Initialize opens the underlying device or file.
	Initialize(ctx context.Context) error

	// StartStream blocks, delivering bursts until end of input, a
	// device error, StopStream, or ctx cancellation. A clean end of
	// input returns nil.
	StartStream(ctx context.Context, deliver DeliverFunc) error

	// StopStream unblocks a running StartStream. Safe to call from
	// another goroutine.
	StopStream(ctx context.Context) error

	// Cleanup releases the device or file.
	Cleanup(ctx context.Context) error

	// Format returns the wire format of delivered bytes.
	Format() dsp.Format

	// SampleRate returns the source sample rate in Hz, or zero when
	// unknown.
	SampleRate() float64

	// KnownFrames returns the total frame count when the input length
	// is known up front (files), for progress reporting.
	KnownFrames() (int64, bool)

	// Realtime reports whether this is an SDR-class device: bursts
	// are dropped rather than blocked on backpressure, and the
	// watchdog supervises its heartbeat.
	Realtime() bool
}

// ErrNotInitialized is returned when streaming starts before
// Initialize succeeded.
var ErrNotInitialized = errors.New("source: not initialized")

// ErrCorruptStream indicates a truncated packet in the buffered SDR
// byte stream. Unrecoverable for the current run.
var ErrCorruptStream = errors.New("source: corrupt framed stream")
