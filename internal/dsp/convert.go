package dsp

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Format identifies a raw I/Q wire format: one interleaved I/Q pair
// per frame.
type Format int

const (
	// FormatU8 is unsigned 8-bit interleaved I/Q (RTL-SDR native).
	FormatU8 Format = iota

	// FormatS8 is signed 8-bit interleaved I/Q (HackRF native).
	FormatS8

	// FormatS16 is signed 16-bit little-endian interleaved I/Q.
	FormatS16

	// FormatF32 is 32-bit little-endian IEEE float interleaved I/Q.
	FormatF32
)

// String returns the format's wire name.
func (f Format) String() string {
	switch f {
	case FormatU8:
		return "u8"
	case FormatS8:
		return "s8"
	case FormatS16:
		return "s16"
	case FormatF32:
		return "f32"
	default:
		return "unknown"
	}
}

// FrameBytes returns the byte width of one I/Q pair in this format.
func (f Format) FrameBytes() int {
	switch f {
	case FormatU8, FormatS8:
		return 2
	case FormatS16:
		return 4
	case FormatF32:
		return 8
	default:
		return 0
	}
}

// ParseFormat maps a wire name to a Format.
func ParseFormat(name string) (Format, error) {
	switch name {
	case "u8", "uint8":
		return FormatU8, nil
	case "s8", "int8":
		return FormatS8, nil
	case "s16", "int16", "s16le":
		return FormatS16, nil
	case "f32", "float32", "f32le":
		return FormatF32, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
}

// InputConverter turns raw wire bytes into normalized complex samples,
// applying a linear gain.
type InputConverter struct {
	format Format
	gain   float32
}

// NewInputConverter creates a converter for the given format. A gain
// of zero means unity.
func NewInputConverter(format Format, gain float64) (*InputConverter, error) {
	if format.FrameBytes() == 0 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedFormat, format)
	}
	g := float32(gain)
	if g == 0 {
		g = 1
	}
	return &InputConverter{format: format, gain: g}, nil
}

// Convert decodes frames I/Q pairs from raw into dst and returns the
// number of samples produced.
func (c *InputConverter) Convert(dst []complex64, raw []byte, frames int) (int, error) {
	if frames > len(dst) {
		return 0, ErrBlockTooLarge
	}
	g := c.gain

	switch c.format {
	case FormatU8:
		for n := range frames {
			i := (float32(raw[2*n]) - unsignedByteOffset) / unsignedByteOffset
			q := (float32(raw[2*n+1]) - unsignedByteOffset) / unsignedByteOffset
			dst[n] = complex(i*g, q*g)
		}
	case FormatS8:
		for n := range frames {
			i := float32(int8(raw[2*n])) * int8Scale
			q := float32(int8(raw[2*n+1])) * int8Scale
			dst[n] = complex(i*g, q*g)
		}
	case FormatS16:
		for n := range frames {
			i := float32(int16(binary.LittleEndian.Uint16(raw[4*n:]))) * int16Scale
			q := float32(int16(binary.LittleEndian.Uint16(raw[4*n+2:]))) * int16Scale
			dst[n] = complex(i*g, q*g)
		}
	case FormatF32:
		for n := range frames {
			i := math.Float32frombits(binary.LittleEndian.Uint32(raw[8*n:]))
			q := math.Float32frombits(binary.LittleEndian.Uint32(raw[8*n+4:]))
			dst[n] = complex(i*g, q*g)
		}
	default:
		return 0, fmt.Errorf("%w: %d", ErrUnsupportedFormat, c.format)
	}
	return frames, nil
}

// OutputConverter turns complex samples back into a raw wire format.
type OutputConverter struct {
	format Format
}

// NewOutputConverter creates a converter to the given format.
func NewOutputConverter(format Format) (*OutputConverter, error) {
	if format.FrameBytes() == 0 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedFormat, format)
	}
	return &OutputConverter{format: format}, nil
}

// Convert encodes src[:n] into dst and returns the number of bytes
// written. Fixed-point formats clip rather than wrap.
func (c *OutputConverter) Convert(dst []byte, src []complex64, n int) (int, error) {
	fb := c.format.FrameBytes()
	if n*fb > len(dst) {
		return 0, ErrBlockTooLarge
	}

	switch c.format {
	case FormatU8:
		for k := range n {
			dst[2*k] = clipU8(real(src[k]))
			dst[2*k+1] = clipU8(imag(src[k]))
		}
	case FormatS8:
		for k := range n {
			dst[2*k] = byte(clipS8(real(src[k])))
			dst[2*k+1] = byte(clipS8(imag(src[k])))
		}
	case FormatS16:
		for k := range n {
			binary.LittleEndian.PutUint16(dst[4*k:], uint16(clipS16(real(src[k]))))
			binary.LittleEndian.PutUint16(dst[4*k+2:], uint16(clipS16(imag(src[k]))))
		}
	case FormatF32:
		for k := range n {
			binary.LittleEndian.PutUint32(dst[8*k:], math.Float32bits(real(src[k])))
			binary.LittleEndian.PutUint32(dst[8*k+4:], math.Float32bits(imag(src[k])))
		}
	default:
		return 0, fmt.Errorf("%w: %d", ErrUnsupportedFormat, c.format)
	}
	return n * fb, nil
}

func clipS16(v float32) int16 {
	s := v * maxInt16
	if s > maxInt16 {
		s = maxInt16
	} else if s < -maxInt16 {
		s = -maxInt16
	}
	return int16(s)
}

func clipS8(v float32) int8 {
	s := v * maxInt8
	if s > maxInt8 {
		s = maxInt8
	} else if s < -maxInt8 {
		s = -maxInt8
	}
	return int8(s)
}

func clipU8(v float32) byte {
	s := v*unsignedByteOffset + unsignedByteOffset
	if s > maxUint8 {
		s = maxUint8
	} else if s < 0 {
		s = 0
	}
	return byte(s)
}
