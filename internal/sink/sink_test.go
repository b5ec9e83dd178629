package sink

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-iq-pipeline/internal/dsp"
)

func TestFileSink_WritesAndCounts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.iq")
	s := NewFileSink(path)
	require.NoError(t, s.Open())

	payload := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	require.NoError(t, s.Write(payload))
	require.NoError(t, s.Write(payload))
	require.NoError(t, s.Close())

	assert.Equal(t, int64(16), s.BytesWritten())
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, append(payload, payload...), got)

	assert.ErrorIs(t, s.Write(payload), ErrClosed)
	assert.NoError(t, s.Close(), "double close is harmless")
}

func TestStreamSink_FlushOnClose(t *testing.T) {
	var buf bytes.Buffer
	s := NewStreamSink(&buf)
	require.NoError(t, s.Open())
	require.NoError(t, s.Write([]byte("abcd")))

	require.NoError(t, s.Close())
	assert.Equal(t, "abcd", buf.String())
	assert.Equal(t, int64(4), s.BytesWritten())
}

func TestWAVSink_RoundTripS16(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	s, err := NewWAVSink(path, dsp.FormatS16, 48000)
	require.NoError(t, err)
	require.NoError(t, s.Open())

	// Two frames: (100, -200) and (300, -400), little-endian s16 pairs.
	payload := []byte{
		100, 0, 0x38, 0xFF,
		0x2C, 0x01, 0x70, 0xFE,
	}
	require.NoError(t, s.Write(payload))
	require.NoError(t, s.Close())
	assert.Equal(t, int64(8), s.BytesWritten())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	require.NoError(t, err)
	assert.Equal(t, 2, buf.Format.NumChannels)
	assert.Equal(t, 48000, buf.Format.SampleRate)
	assert.Equal(t, []int{100, -200, 300, -400}, buf.Data)
}

func TestWAVSink_SignedBytesShiftToContainerRange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out8.wav")
	s, err := NewWAVSink(path, dsp.FormatS8, 1_000_000)
	require.NoError(t, err)
	require.NoError(t, s.Open())

	require.NoError(t, s.Write([]byte{0x00, 0x80})) // 0, -128
	require.NoError(t, s.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	buf, err := wav.NewDecoder(f).FullPCMBuffer()
	require.NoError(t, err)
	assert.Equal(t, []int{128, 0}, buf.Data)
}

func TestWAVSink_RejectsFloatOutput(t *testing.T) {
	_, err := NewWAVSink("x.wav", dsp.FormatF32, 48000)
	assert.ErrorIs(t, err, dsp.ErrUnsupportedFormat)
}

func TestMemorySink_CapturesAndFails(t *testing.T) {
	s := NewMemorySink()
	require.NoError(t, s.Open())
	require.NoError(t, s.Write([]byte{9, 9}))

	s.FailWrite = ErrClosed
	assert.Error(t, s.Write([]byte{1}))
	require.NoError(t, s.Write([]byte{8}), "failure injection is one-shot")

	assert.Equal(t, []byte{9, 9, 8}, s.Bytes())
	assert.Equal(t, int64(3), s.BytesWritten())
}
