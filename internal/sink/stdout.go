package sink

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// StreamSink writes raw bytes to an already-open stream, typically
// stdout for piping into another tool. Close flushes but does not
// close the underlying stream.
type StreamSink struct {
	w   *bufio.Writer
	out io.Writer

	written int64
	closed  bool
}

// NewStdoutSink creates a sink writing to standard output.
func NewStdoutSink() *StreamSink {
	return NewStreamSink(os.Stdout)
}

// NewStreamSink creates a sink writing to w.
func NewStreamSink(w io.Writer) *StreamSink {
	return &StreamSink{out: w}
}

func (s *StreamSink) Open() error {
	s.w = bufio.NewWriterSize(s.out, fileWriterBufBytes)
	return nil
}

func (s *StreamSink) Write(p []byte) error {
	if s.closed || s.w == nil {
		return ErrClosed
	}
	n, err := s.w.Write(p)
	s.written += int64(n)
	if err != nil {
		return fmt.Errorf("sink: stream write: %w", err)
	}
	return nil
}

func (s *StreamSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.w == nil {
		return nil
	}
	if err := s.w.Flush(); err != nil {
		return fmt.Errorf("sink: stream flush: %w", err)
	}
	return nil
}

func (s *StreamSink) BytesWritten() int64 { return s.written }
