package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tphakala/go-iq-pipeline/internal/ring"
	"github.com/tphakala/go-iq-pipeline/internal/source"
)

func TestCaptureFramer_DefersResetWhenRingFull(t *testing.T) {
	rb := ring.New(16)
	cf := &captureFramer{
		fw:       source.NewFrameWriter(rb),
		fb:       2,
		maxBurst: 16,
		log:      zap.NewNop(),
	}
	fr := source.NewFrameReader(rb, 2, 8)

	// Nearly fill the ring, then hit it with a discontinuity burst
	// for which not even the reset marker fits.
	cf.deliver(make([]byte, 8), false)
	cf.deliver(make([]byte, 4), true)
	require.True(t, cf.resetPending, "marker must be remembered, not lost")

	// Drain the buffered data frame to free ring space.
	frame, eos, err := fr.Next(make([]byte, 16))
	require.NoError(t, err)
	require.False(t, eos)
	require.NotNil(t, frame)
	assert.Equal(t, 4, frame.Samples)
	assert.False(t, frame.Reset)

	// The next callback flushes the deferred marker ahead of its data.
	cf.deliver(make([]byte, 4), false)
	assert.False(t, cf.resetPending)

	frame, _, err = fr.Next(make([]byte, 16))
	require.NoError(t, err)
	require.NotNil(t, frame)
	assert.True(t, frame.Reset, "deferred reset marker must arrive before new data")

	frame, _, err = fr.Next(make([]byte, 16))
	require.NoError(t, err)
	require.NotNil(t, frame)
	assert.Equal(t, 2, frame.Samples)
	assert.False(t, frame.Reset)
}
