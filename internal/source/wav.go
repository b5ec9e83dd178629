package source

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/tphakala/go-iq-pipeline/internal/dsp"
)

// wavBlockFrames is the number of frames decoded per burst.
const wavBlockFrames = 65536

// iqChannels is the channel layout of an I/Q WAV capture: I on the
// left channel, Q on the right.
const iqChannels = 2

// WAVSource streams an I/Q recording stored as a two-channel WAV file
// (SDR# and friends write this layout). Samples are delivered as
// s16le interleaved pairs regardless of the file's bit depth.
type WAVSource struct {
	path string

	file    *os.File
	decoder *wav.Decoder

	sampleRate float64
	frames     int64
	hasFrames  bool

	stopped atomic.Bool
	pcm     *audio.IntBuffer
	out     []byte
	shift   uint // right-shift from file bit depth down to 16 bits
}

// NewWAVSource creates a source for the WAV capture at path.
func NewWAVSource(path string) *WAVSource {
	return &WAVSource{path: path}
}

// Initialize opens and validates the file. Calling it again rewinds
// the stream to the beginning.
func (s *WAVSource) Initialize(ctx context.Context) error {
	if s.file != nil {
		s.file.Close()
		s.file = nil
		s.decoder = nil
	}
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("source: open %s: %w", s.path, err)
	}

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		f.Close()
		return fmt.Errorf("source: %s is not a valid WAV file", s.path)
	}

	format := dec.Format()
	if format.NumChannels != iqChannels {
		f.Close()
		return fmt.Errorf("source: %s has %d channels, I/Q capture requires %d",
			s.path, format.NumChannels, iqChannels)
	}
	bitDepth := int(dec.BitDepth)
	if bitDepth != 8 && bitDepth != 16 && bitDepth != 24 && bitDepth != 32 {
		f.Close()
		return fmt.Errorf("source: unsupported WAV bit depth %d", bitDepth)
	}

	s.file = f
	s.decoder = dec
	s.sampleRate = float64(format.SampleRate)
	if bitDepth > 16 {
		s.shift = uint(bitDepth - 16)
	}

	if duration, err := dec.Duration(); err == nil {
		s.frames = int64(duration.Seconds() * s.sampleRate)
		s.hasFrames = true
	}

	s.pcm = &audio.IntBuffer{
		Data:   make([]int, wavBlockFrames*iqChannels),
		Format: format,
	}
	s.out = make([]byte, wavBlockFrames*dsp.FormatS16.FrameBytes())
	s.stopped.Store(false)
	return nil
}

// StartStream decodes and delivers bursts until EOF or stop.
func (s *WAVSource) StartStream(ctx context.Context, deliver DeliverFunc) error {
	if s.decoder == nil {
		return ErrNotInitialized
	}
	shift := s.shift
	upshift := uint(0)
	if bd := int(s.decoder.BitDepth); bd < 16 {
		upshift = uint(16 - bd)
	}

	for {
		if s.stopped.Load() || ctx.Err() != nil {
			return nil
		}
		n, err := s.decoder.PCMBuffer(s.pcm)
		if n > 0 {
			frames := n / iqChannels
			for k := range frames {
				i := s.pcm.Data[iqChannels*k]
				q := s.pcm.Data[iqChannels*k+1]
				if shift > 0 {
					i >>= shift
					q >>= shift
				} else if upshift > 0 {
					i <<= upshift
					q <<= upshift
				}
				binary.LittleEndian.PutUint16(s.out[4*k:], uint16(int16(i)))
				binary.LittleEndian.PutUint16(s.out[4*k+2:], uint16(int16(q)))
			}
			if !deliver(s.out[:frames*4], false) {
				return nil
			}
		}
		if err != nil {
			return fmt.Errorf("source: wav decode: %w", err)
		}
		if n == 0 {
			return nil
		}
	}
}

// StopStream makes StartStream return after the in-flight block.
func (s *WAVSource) StopStream(ctx context.Context) error {
	s.stopped.Store(true)
	return nil
}

// Cleanup closes the file.
func (s *WAVSource) Cleanup(ctx context.Context) error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// Format returns s16le, the normalized delivery format.
func (s *WAVSource) Format() dsp.Format { return dsp.FormatS16 }

// SampleRate returns the rate recorded in the WAV header.
func (s *WAVSource) SampleRate() float64 { return s.sampleRate }

// KnownFrames reports the frame count from the header.
func (s *WAVSource) KnownFrames() (int64, bool) { return s.frames, s.hasFrames }

// Realtime is false for recorded captures.
func (s *WAVSource) Realtime() bool { return false }
