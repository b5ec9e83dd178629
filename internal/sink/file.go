package sink

import (
	"bufio"
	"fmt"
	"os"
)

const fileWriterBufBytes = 256 * 1024

// FileSink writes raw interleaved bytes to a file through a buffered
// writer.
type FileSink struct {
	path string
	f    *os.File
	w    *bufio.Writer

	written int64
	closed  bool
}

// NewFileSink creates a sink writing to path. The file is created or
// truncated on Open.
func NewFileSink(path string) *FileSink {
	return &FileSink{path: path}
}

func (s *FileSink) Open() error {
	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("sink: create %s: %w", s.path, err)
	}
	s.f = f
	s.w = bufio.NewWriterSize(f, fileWriterBufBytes)
	return nil
}

func (s *FileSink) Write(p []byte) error {
	if s.closed || s.w == nil {
		return ErrClosed
	}
	n, err := s.w.Write(p)
	s.written += int64(n)
	if err != nil {
		return fmt.Errorf("sink: write %s: %w", s.path, err)
	}
	return nil
}

func (s *FileSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.w == nil {
		return nil
	}
	if err := s.w.Flush(); err != nil {
		_ = s.f.Close()
		return fmt.Errorf("sink: flush %s: %w", s.path, err)
	}
	if err := s.f.Close(); err != nil {
		return fmt.Errorf("sink: close %s: %w", s.path, err)
	}
	return nil
}

func (s *FileSink) BytesWritten() int64 { return s.written }
