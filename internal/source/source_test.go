package source

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-iq-pipeline/internal/dsp"
)

func TestReaderSource_DeliversAllBytes(t *testing.T) {
	raw := make([]byte, 1000*4) // 1000 s16le frames
	for i := range raw {
		raw[i] = byte(i)
	}
	src := NewReaderSource(bytes.NewReader(raw), dsp.FormatS16, 48000)
	require.NoError(t, src.Initialize(context.Background()))

	var got []byte
	err := src.StartStream(context.Background(), func(data []byte, discontinuity bool) bool {
		assert.False(t, discontinuity)
		assert.Zero(t, len(data)%4, "bursts must be frame aligned")
		got = append(got, data...)
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, raw, got)
	assert.False(t, src.Realtime())
}

func TestReaderSource_StopCutsStreamShort(t *testing.T) {
	raw := make([]byte, 1<<20)
	src := NewReaderSource(bytes.NewReader(raw), dsp.FormatU8, 48000)
	require.NoError(t, src.Initialize(context.Background()))

	delivered := 0
	err := src.StartStream(context.Background(), func(data []byte, _ bool) bool {
		delivered += len(data)
		require.NoError(t, src.StopStream(context.Background()))
		return true
	})
	require.NoError(t, err)
	assert.Less(t, delivered, len(raw))
}

func TestFileSource_KnownFrames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.iq")
	require.NoError(t, os.WriteFile(path, make([]byte, 256*8), 0o644))

	src := NewFileSource(path, dsp.FormatF32, 2_400_000)
	require.NoError(t, src.Initialize(context.Background()))
	defer src.Cleanup(context.Background())

	frames, ok := src.KnownFrames()
	require.True(t, ok)
	assert.Equal(t, int64(256), frames)
	assert.Equal(t, 2_400_000.0, src.SampleRate())
}

func TestFileSource_MissingFile(t *testing.T) {
	src := NewFileSource(filepath.Join(t.TempDir(), "nope.iq"), dsp.FormatU8, 48000)
	assert.Error(t, src.Initialize(context.Background()))
}

func TestMemorySource_ScriptedBursts(t *testing.T) {
	src := NewMemorySource(dsp.FormatU8, 1000,
		MemoryBurst{Data: []byte{1, 2, 3, 4}},
		MemoryBurst{Data: []byte{5, 6}, Discontinuity: true},
	)
	require.NoError(t, src.Initialize(context.Background()))

	type burst struct {
		n    int
		disc bool
	}
	var seen []burst
	err := src.StartStream(context.Background(), func(data []byte, disc bool) bool {
		seen = append(seen, burst{len(data), disc})
		return true
	})
	require.NoError(t, err)
	require.Len(t, seen, 2)
	assert.Equal(t, burst{4, false}, seen[0])
	assert.Equal(t, burst{2, true}, seen[1])

	frames, ok := src.KnownFrames()
	require.True(t, ok)
	assert.Equal(t, int64(3), frames) // 6 bytes of u8 pairs
}
