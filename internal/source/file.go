package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/tphakala/go-iq-pipeline/internal/dsp"
)

// defaultReadBlockBytes is the burst size used when reading stream
// inputs from files and pipes.
const defaultReadBlockBytes = 256 * 1024

// ReaderSource streams raw wire-format I/Q bytes from an io.Reader.
// It is the base for the file and stdin sources.
type ReaderSource struct {
	r          io.Reader
	format     dsp.Format
	sampleRate float64
	frames     int64
	hasFrames  bool
	blockBytes int

	stopped atomic.Bool
	buf     []byte
}

// NewReaderSource wraps r delivering bursts in the given format.
func NewReaderSource(r io.Reader, format dsp.Format, sampleRate float64) *ReaderSource {
	return &ReaderSource{
		r:          r,
		format:     format,
		sampleRate: sampleRate,
		blockBytes: defaultReadBlockBytes,
	}
}

// Initialize prepares the read buffer.
func (s *ReaderSource) Initialize(ctx context.Context) error {
	if s.r == nil {
		return ErrNotInitialized
	}
	// Align bursts to whole frames.
	fb := s.format.FrameBytes()
	s.buf = make([]byte, s.blockBytes-s.blockBytes%fb)
	s.stopped.Store(false)
	return nil
}

// StartStream reads bursts until EOF, error or stop.
func (s *ReaderSource) StartStream(ctx context.Context, deliver DeliverFunc) error {
	if s.buf == nil {
		return ErrNotInitialized
	}
	for {
		if s.stopped.Load() || ctx.Err() != nil {
			return nil
		}
		n, err := io.ReadFull(s.r, s.buf)
		if n > 0 {
			// Trim a trailing partial frame on short reads.
			fb := s.format.FrameBytes()
			n -= n % fb
			if n > 0 && !deliver(s.buf[:n], false) {
				return nil
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil
			}
			return fmt.Errorf("source: read: %w", err)
		}
	}
}

// StopStream makes StartStream return after the in-flight read.
func (s *ReaderSource) StopStream(ctx context.Context) error {
	s.stopped.Store(true)
	return nil
}

// Cleanup is a no-op for plain readers.
func (s *ReaderSource) Cleanup(ctx context.Context) error { return nil }

// Format returns the configured wire format.
func (s *ReaderSource) Format() dsp.Format { return s.format }

// SampleRate returns the configured sample rate.
func (s *ReaderSource) SampleRate() float64 { return s.sampleRate }

// KnownFrames reports the total frame count when known.
func (s *ReaderSource) KnownFrames() (int64, bool) { return s.frames, s.hasFrames }

// Realtime is false for stream readers.
func (s *ReaderSource) Realtime() bool { return false }

// FileSource streams a raw I/Q capture file.
type FileSource struct {
	ReaderSource
	path string
	file *os.File
}

// NewFileSource creates a source for the raw capture at path.
func NewFileSource(path string, format dsp.Format, sampleRate float64) *FileSource {
	s := &FileSource{path: path}
	s.format = format
	s.sampleRate = sampleRate
	s.blockBytes = defaultReadBlockBytes
	return s
}

// Initialize opens the file and derives the total frame count from
// its size.
func (s *FileSource) Initialize(ctx context.Context) error {
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("source: open %s: %w", s.path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("source: stat %s: %w", s.path, err)
	}

	s.file = f
	s.r = f
	s.frames = info.Size() / int64(s.format.FrameBytes())
	s.hasFrames = true
	return s.ReaderSource.Initialize(ctx)
}

// Cleanup closes the file.
func (s *FileSource) Cleanup(ctx context.Context) error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// NewStdinSource creates a source reading raw I/Q from standard input.
func NewStdinSource(format dsp.Format, sampleRate float64) *ReaderSource {
	return NewReaderSource(os.Stdin, format, sampleRate)
}
