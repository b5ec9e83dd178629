// Package sink provides the output destinations a pipeline can write
// processed I/Q bytes to: raw files, WAV containers, stdout, and an
// in-memory sink for tests.
package sink

import "errors"

// ErrClosed is returned by writes after Close.
var ErrClosed = errors.New("sink: closed")

// Sink consumes interleaved output-format bytes produced by the
// writer stage. Implementations are used by a single goroutine.
type Sink interface {
	// Open prepares the destination. Called once before any Write.
	Open() error

	// Write appends frame-aligned output bytes.
	Write(p []byte) error

	// Close flushes and finalizes the destination.
	Close() error

	// BytesWritten reports the total payload bytes accepted so far.
	BytesWritten() int64
}
