package dsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name    string
		want    Format
		wantErr bool
	}{
		{"u8", FormatU8, false},
		{"uint8", FormatU8, false},
		{"s8", FormatS8, false},
		{"s16", FormatS16, false},
		{"s16le", FormatS16, false},
		{"f32", FormatF32, false},
		{"float32", FormatF32, false},
		{"pcm24", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		f, err := ParseFormat(tt.name)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrUnsupportedFormat, "format %q", tt.name)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, f)
	}
}

func TestFormat_FrameBytes(t *testing.T) {
	assert.Equal(t, 2, FormatU8.FrameBytes())
	assert.Equal(t, 2, FormatS8.FrameBytes())
	assert.Equal(t, 4, FormatS16.FrameBytes())
	assert.Equal(t, 8, FormatF32.FrameBytes())
}

func TestInputConverter_U8(t *testing.T) {
	c, err := NewInputConverter(FormatU8, 0)
	require.NoError(t, err)

	// 255 maps near +1, 0 maps near -1, 127/128 straddle zero.
	raw := []byte{255, 0, 127, 128}
	dst := make([]complex64, 2)
	n, err := c.Convert(dst, raw, 2)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	assert.InDelta(t, 1.0, float64(real(dst[0])), 0.01)
	assert.InDelta(t, -1.0, float64(imag(dst[0])), 0.01)
	assert.InDelta(t, 0.0, float64(real(dst[1])), 0.01)
	assert.InDelta(t, 0.0, float64(imag(dst[1])), 0.01)
}

func TestInputConverter_Gain(t *testing.T) {
	c, err := NewInputConverter(FormatS8, 2.0)
	require.NoError(t, err)

	raw := []byte{64, 0xC0} // +64, -64 as signed bytes
	dst := make([]complex64, 1)
	_, err = c.Convert(dst, raw, 1)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, float64(real(dst[0])), 0.01)
	assert.InDelta(t, -1.0, float64(imag(dst[0])), 0.01)
}

func TestInputConverter_BlockTooLarge(t *testing.T) {
	c, err := NewInputConverter(FormatS16, 0)
	require.NoError(t, err)
	_, err = c.Convert(make([]complex64, 4), make([]byte, 64), 8)
	assert.ErrorIs(t, err, ErrBlockTooLarge)
}

// TestConverters_RoundTrip verifies the fixed-point formats survive an
// encode/decode cycle within their quantization step.
func TestConverters_RoundTrip(t *testing.T) {
	samples := []complex64{
		complex(0.5, -0.5),
		complex(-0.25, 0.75),
		complex(0, 0),
		complex(0.99, -0.99),
	}

	tests := []struct {
		format Format
		tol    float64
	}{
		{FormatU8, 1.0 / 120.0},
		{FormatS8, 1.0 / 120.0},
		{FormatS16, 1.0 / 30000.0},
		{FormatF32, 1e-7},
	}

	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			out, err := NewOutputConverter(tt.format)
			require.NoError(t, err)
			in, err := NewInputConverter(tt.format, 0)
			require.NoError(t, err)

			raw := make([]byte, len(samples)*tt.format.FrameBytes())
			written, err := out.Convert(raw, samples, len(samples))
			require.NoError(t, err)
			require.Equal(t, len(raw), written)

			decoded := make([]complex64, len(samples))
			n, err := in.Convert(decoded, raw, len(samples))
			require.NoError(t, err)
			require.Equal(t, len(samples), n)

			for k := range samples {
				assert.InDelta(t, float64(real(samples[k])), float64(real(decoded[k])), tt.tol, "sample %d I", k)
				assert.InDelta(t, float64(imag(samples[k])), float64(imag(decoded[k])), tt.tol, "sample %d Q", k)
			}
		})
	}
}

func TestOutputConverter_Clips(t *testing.T) {
	out, err := NewOutputConverter(FormatS16)
	require.NoError(t, err)

	raw := make([]byte, 4)
	_, err = out.Convert(raw, []complex64{complex(2.0, -2.0)}, 1)
	require.NoError(t, err)

	in, err := NewInputConverter(FormatS16, 0)
	require.NoError(t, err)
	decoded := make([]complex64, 1)
	_, err = in.Convert(decoded, raw, 1)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, float64(real(decoded[0])), 0.001, "overdriven I must clip, not wrap")
	assert.InDelta(t, -1.0, float64(imag(decoded[0])), 0.001, "overdriven Q must clip, not wrap")
}
