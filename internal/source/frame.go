package source

import (
	"encoding/binary"
	"fmt"

	"github.com/tphakala/go-iq-pipeline/internal/ring"
)

// Buffered SDR packet framing. The capture goroutine frames every
// hardware burst into the byte ring; the reader parses the ring as a
// strict byte stream. Header layout:
//
//	u32  sample count (little endian)
//	u8   flags: bit0 = interleaved payload, bit1 = reset event
//
// An interleaved payload is one I/Q block; a planar payload is two
// equal-length blocks (all I, then all Q). A zero-sample reset frame
// carries no payload and signals a discontinuity without data.
const (
	frameHeaderLen = 5

	// FlagInterleaved marks one interleaved I/Q payload block.
	FlagInterleaved = 1 << 0

	// FlagReset marks a stream reset (device overrun).
	FlagReset = 1 << 1
)

// FrameWriter frames bursts into a ring buffer. Single producer.
type FrameWriter struct {
	rb  *ring.Buffer
	hdr [frameHeaderLen]byte
}

// NewFrameWriter creates a writer targeting rb.
func NewFrameWriter(rb *ring.Buffer) *FrameWriter {
	return &FrameWriter{rb: rb}
}

// WriteInterleaved frames one interleaved burst of sampleCount I/Q
// pairs. It returns false when the ring cannot hold the whole frame;
// the caller drops the burst and should follow up with WriteReset so
// the consumer learns about the gap.
func (w *FrameWriter) WriteInterleaved(payload []byte, sampleCount int) bool {
	return w.write(payload, nil, sampleCount, FlagInterleaved)
}

// WritePlanar frames one planar burst: all I bytes, then all Q bytes.
func (w *FrameWriter) WritePlanar(iBlock, qBlock []byte, sampleCount int) bool {
	return w.write(iBlock, qBlock, sampleCount, 0)
}

// WriteReset frames a zero-sample reset marker.
func (w *FrameWriter) WriteReset() bool {
	return w.write(nil, nil, 0, FlagReset)
}

func (w *FrameWriter) write(a, b []byte, sampleCount int, flags byte) bool {
	total := frameHeaderLen + len(a) + len(b)
	if w.rb.Free() < total {
		return false
	}

	binary.LittleEndian.PutUint32(w.hdr[:4], uint32(sampleCount))
	w.hdr[4] = flags

	// Single producer and the free-space check above make these
	// writes complete without short counts.
	w.rb.Write(w.hdr[:])
	if len(a) > 0 {
		w.rb.Write(a)
	}
	if len(b) > 0 {
		w.rb.Write(b)
	}
	return true
}

// Close signals clean end-of-stream on the ring.
func (w *FrameWriter) Close() {
	w.rb.CloseWrite()
}

// Frame is one parsed packet.
type Frame struct {
	// Samples is the number of I/Q pairs in the payload.
	Samples int

	// Reset marks a stream discontinuity.
	Reset bool
}

// FrameReader parses frames from a ring buffer. Single consumer.
type FrameReader struct {
	rb         *ring.Buffer
	frameBytes int
	hdr        [frameHeaderLen]byte
	planar     []byte
}

// NewFrameReader creates a reader for frames of I/Q pairs that are
// frameBytes wide, with payloads of at most maxSamples pairs.
func NewFrameReader(rb *ring.Buffer, frameBytes, maxSamples int) *FrameReader {
	return &FrameReader{
		rb:         rb,
		frameBytes: frameBytes,
		planar:     make([]byte, maxSamples*frameBytes),
	}
}

// Next parses the next frame into dst as interleaved I/Q bytes and
// returns it. eos is true on clean end-of-stream with no pending
// frame. A header or payload truncated by end-of-stream is stream
// corruption and returns an error; a ring shutdown mid-frame returns
// eos=false, frame=nil with no error, letting the caller observe the
// shutdown flag instead.
func (r *FrameReader) Next(dst []byte) (frame *Frame, eos bool, err error) {
	n, ringEOS := r.readFull(r.hdr[:])
	if n == 0 {
		return nil, ringEOS, nil
	}
	if n < frameHeaderLen {
		if !ringEOS {
			// Shutdown cut the header short; not corruption.
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%w: truncated header (%d of %d bytes)",
			ErrCorruptStream, n, frameHeaderLen)
	}

	samples := int(binary.LittleEndian.Uint32(r.hdr[:4]))
	flags := r.hdr[4]
	f := &Frame{Samples: samples, Reset: flags&FlagReset != 0}

	if samples == 0 {
		return f, false, nil
	}
	payloadLen := samples * r.frameBytes
	if payloadLen > len(r.planar) || payloadLen > len(dst) {
		return nil, false, fmt.Errorf("%w: frame of %d samples exceeds capacity",
			ErrCorruptStream, samples)
	}

	if flags&FlagInterleaved != 0 {
		n, ringEOS = r.readFull(dst[:payloadLen])
		if n < payloadLen {
			if !ringEOS {
				return nil, false, nil
			}
			return nil, false, fmt.Errorf("%w: truncated payload (%d of %d bytes)",
				ErrCorruptStream, n, payloadLen)
		}
		return f, false, nil
	}

	// Planar: read both blocks, then interleave into dst.
	n, ringEOS = r.readFull(r.planar[:payloadLen])
	if n < payloadLen {
		if !ringEOS {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%w: truncated planar payload (%d of %d bytes)",
			ErrCorruptStream, n, payloadLen)
	}
	half := r.frameBytes / 2
	iBlock := r.planar[:samples*half]
	qBlock := r.planar[samples*half : payloadLen]
	for k := range samples {
		copy(dst[k*r.frameBytes:], iBlock[k*half:(k+1)*half])
		copy(dst[k*r.frameBytes+half:], qBlock[k*half:(k+1)*half])
	}
	return f, false, nil
}

// readFull reads exactly len(p) bytes unless the stream ends or shuts
// down first. Returns bytes read and whether a clean EOS was seen.
func (r *FrameReader) readFull(p []byte) (int, bool) {
	read := 0
	for read < len(p) {
		n, eos := r.rb.Read(p[read:])
		if n == 0 {
			return read, eos
		}
		read += n
	}
	return read, false
}
