package sink

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/tphakala/go-iq-pipeline/internal/dsp"
)

// WAVSink writes I/Q output as a two-channel PCM WAV file, I on the
// left channel and Q on the right. Only integer output formats can be
// containerized.
type WAVSink struct {
	path       string
	format     dsp.Format
	sampleRate int

	f   *os.File
	enc *wav.Encoder
	buf *audio.IntBuffer

	written int64
	closed  bool
}

// NewWAVSink creates a WAV sink for the given output format and rate.
func NewWAVSink(path string, format dsp.Format, sampleRate int) (*WAVSink, error) {
	switch format {
	case dsp.FormatU8, dsp.FormatS8, dsp.FormatS16:
	default:
		return nil, fmt.Errorf("sink: %w: %s cannot be written as WAV PCM",
			dsp.ErrUnsupportedFormat, format)
	}
	return &WAVSink{path: path, format: format, sampleRate: sampleRate}, nil
}

func (s *WAVSink) Open() error {
	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("sink: create %s: %w", s.path, err)
	}
	s.f = f
	s.enc = wav.NewEncoder(f, s.sampleRate, s.bitDepth(), 2, 1)
	s.buf = &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: s.sampleRate},
		SourceBitDepth: s.bitDepth(),
	}
	return nil
}

func (s *WAVSink) Write(p []byte) error {
	if s.closed || s.enc == nil {
		return ErrClosed
	}
	fb := s.format.FrameBytes()
	frames := len(p) / fb
	if cap(s.buf.Data) < frames*2 {
		s.buf.Data = make([]int, frames*2)
	}
	s.buf.Data = s.buf.Data[:frames*2]

	switch s.format {
	case dsp.FormatU8:
		// WAV 8-bit PCM is unsigned, matching the wire bytes.
		for i, b := range p {
			s.buf.Data[i] = int(b)
		}
	case dsp.FormatS8:
		// Shift to the unsigned 8-bit range the container expects.
		for i, b := range p {
			s.buf.Data[i] = int(int8(b)) + 128
		}
	case dsp.FormatS16:
		for i := 0; i < frames*2; i++ {
			s.buf.Data[i] = int(int16(binary.LittleEndian.Uint16(p[i*2:])))
		}
	}

	if err := s.enc.Write(s.buf); err != nil {
		return fmt.Errorf("sink: wav write %s: %w", s.path, err)
	}
	s.written += int64(frames * fb)
	return nil
}

func (s *WAVSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.enc == nil {
		return nil
	}
	if err := s.enc.Close(); err != nil {
		_ = s.f.Close()
		return fmt.Errorf("sink: wav finalize %s: %w", s.path, err)
	}
	if err := s.f.Close(); err != nil {
		return fmt.Errorf("sink: close %s: %w", s.path, err)
	}
	return nil
}

func (s *WAVSink) BytesWritten() int64 { return s.written }

func (s *WAVSink) bitDepth() int {
	if s.format == dsp.FormatS16 {
		return 16
	}
	return 8
}
