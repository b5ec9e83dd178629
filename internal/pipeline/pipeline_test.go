package pipeline

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tphakala/go-iq-pipeline/internal/dsp"
	"github.com/tphakala/go-iq-pipeline/internal/sink"
	"github.com/tphakala/go-iq-pipeline/internal/source"
)

func baseOptions() *Options {
	return &Options{
		InputFormat:     dsp.FormatS16,
		OutputFormat:    dsp.FormatS16,
		InputRate:       48000,
		OutputRate:      48000,
		BaselineSamples: 4096,
		PoolChunks:      8,
	}
}

// toneBytes builds interleaved s16le I/Q frames of a complex tone.
func toneBytes(frames int, freq, rate float64) []byte {
	out := make([]byte, frames*4)
	for k := range frames {
		phase := 2 * math.Pi * freq * float64(k) / rate
		i := int16(10000 * math.Cos(phase))
		q := int16(10000 * math.Sin(phase))
		binary.LittleEndian.PutUint16(out[k*4:], uint16(i))
		binary.LittleEndian.PutUint16(out[k*4+2:], uint16(q))
	}
	return out
}

func runOnce(t *testing.T, o *Options, src source.Source, snk sink.Sink) (Summary, *Pipeline) {
	t.Helper()
	p, err := New(o, src, snk)
	require.NoError(t, err)
	s, err := p.Run(context.Background())
	require.NoError(t, err)
	return s, p
}

// -----------------------------------------------------------------------------
// End-to-end runs
// -----------------------------------------------------------------------------

func TestRun_PassthroughCopiesBytes(t *testing.T) {
	o := baseOptions()
	o.Passthrough = true
	raw := toneBytes(3000, 1000, 48000)
	src := source.NewMemorySource(dsp.FormatS16, 48000, source.MemoryBurst{Data: raw})
	snk := sink.NewMemorySink()

	s, p := runOnce(t, o, src, snk)

	assert.Equal(t, raw, snk.Bytes())
	assert.Equal(t, int64(3000), s.FramesRead)
	assert.Equal(t, int64(3000), s.FramesWritten)
	assert.Equal(t, int64(len(raw)), s.BytesWritten)
	assert.False(t, s.Cancelled)
	assert.Equal(t, p.PoolSize(), p.FreeChunks(),
		"every chunk must be home after a clean drain")
}

func TestRun_FullChainDownsamples(t *testing.T) {
	o := baseOptions()
	o.OutputRate = 24000
	o.DCBlock = true
	o.PreFilter = &FilterSpec{Cutoff: 0.2, Taps: 65}
	frames := 8192
	src := source.NewMemorySource(dsp.FormatS16, 48000,
		source.MemoryBurst{Data: toneBytes(frames, 1000, 48000)})
	snk := sink.NewMemorySink()

	s, p := runOnce(t, o, src, snk)

	assert.Equal(t, int64(frames), s.FramesRead)
	// Half-rate conversion: output within one interpolation point per
	// chunk of the ideal count.
	assert.InDelta(t, float64(frames)/2, float64(s.FramesWritten), 8)
	assert.Equal(t, s.FramesWritten*4, s.BytesWritten)
	assert.Equal(t, p.PoolSize(), p.FreeChunks())
}

func TestRun_ZeroInputEmitsOneMarkerAndRestoresPool(t *testing.T) {
	o := baseOptions()
	o.PoolChunks = 32
	src := source.NewMemorySource(dsp.FormatS16, 48000)
	snk := sink.NewMemorySink()

	s, p := runOnce(t, o, src, snk)

	assert.Zero(t, s.FramesRead)
	assert.Zero(t, s.FramesWritten)
	assert.Zero(t, s.BytesWritten)
	assert.Equal(t, 32, p.FreeChunks(),
		"the end-of-stream marker chunk must return to the pool")
}

// TestRun_DiscontinuityRestartsChain feeds the same burst twice with a
// discontinuity between them. Every stage resets its own state on the
// marker, so the second burst must produce byte-identical output to
// the first, which ran from fresh state.
func TestRun_DiscontinuityRestartsChain(t *testing.T) {
	o := baseOptions()
	o.OutputRate = 24000
	o.DCBlock = true
	o.PreFilter = &FilterSpec{Cutoff: 0.2, Taps: 65}
	burst := toneBytes(2048, 3000, 48000)
	src := source.NewMemorySource(dsp.FormatS16, 48000,
		source.MemoryBurst{Data: burst},
		source.MemoryBurst{Data: burst, Discontinuity: true},
	)
	snk := sink.NewMemorySink()

	s, _ := runOnce(t, o, src, snk)

	out := snk.Bytes()
	require.Equal(t, int64(len(out)), s.BytesWritten)
	require.Zero(t, len(out)%2, "two identical passes")
	half := len(out) / 2
	assert.Equal(t, out[:half], out[half:],
		"post-discontinuity output must match a fresh-state run")
}

func TestRun_BufferedCaptureDeliversThroughFraming(t *testing.T) {
	o := baseOptions()
	o.Passthrough = true
	o.BufferedSDR = true
	raw := toneBytes(5000, 2000, 48000)
	src := source.NewMemorySource(dsp.FormatS16, 48000,
		source.MemoryBurst{Data: raw[:8000]},
		source.MemoryBurst{Data: raw[8000:], Discontinuity: true},
	)
	snk := sink.NewMemorySink()

	s, p := runOnce(t, o, src, snk)

	assert.Equal(t, raw, snk.Bytes())
	assert.Equal(t, int64(5000), s.FramesWritten)
	assert.Equal(t, p.PoolSize(), p.FreeChunks())
}

// TestReadFramedStream_LeavesMarkerToReaderLoop pins the end-of-stream
// marker to a single emission point: the framed reader returns on ring
// EOS without synthesizing a marker of its own, so a run never carries
// two end markers.
func TestReadFramedStream_LeavesMarkerToReaderLoop(t *testing.T) {
	o := baseOptions()
	o.Passthrough = true
	o.BufferedSDR = true
	src := source.NewMemorySource(dsp.FormatS16, 48000)
	p, err := New(o, src, sink.NewMemorySink())
	require.NoError(t, err)

	p.captureRing.CloseWrite()
	require.NoError(t, p.readFramedStream())

	_, ok := p.graph.readerOut.TryDequeue()
	assert.False(t, ok, "no marker before the reader loop emits it")
	assert.Equal(t, p.PoolSize(), p.FreeChunks())
}

func TestRun_SinkFailureStopsRun(t *testing.T) {
	o := baseOptions()
	o.Passthrough = true
	src := source.NewMemorySource(dsp.FormatS16, 48000,
		source.MemoryBurst{Data: toneBytes(100, 1000, 48000)})
	snk := sink.NewMemorySink()
	wantErr := errors.New("disk full")
	snk.FailWrite = wantErr

	p, err := New(o, src, snk)
	require.NoError(t, err)
	s, err := p.Run(context.Background())

	assert.ErrorIs(t, err, wantErr)
	assert.False(t, s.Cancelled)
}

func TestRun_ContextCancelReportsCancelled(t *testing.T) {
	o := baseOptions()
	o.Passthrough = true
	bursts := make([]source.MemoryBurst, 64)
	for i := range bursts {
		bursts[i] = source.MemoryBurst{Data: toneBytes(4096, 1000, 48000)}
	}
	src := source.NewMemorySource(dsp.FormatS16, 48000, bursts...)
	snk := sink.NewMemorySink()

	p, err := New(o, src, snk)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s, err := p.Run(ctx)

	require.NoError(t, err)
	assert.True(t, s.Cancelled)
}

func TestRun_PacedOutputMatchesDirect(t *testing.T) {
	o := baseOptions()
	o.Passthrough = true
	o.PaceOutput = true
	raw := toneBytes(6000, 500, 48000)
	src := source.NewMemorySource(dsp.FormatS16, 48000, source.MemoryBurst{Data: raw})
	snk := sink.NewMemorySink()

	s, _ := runOnce(t, o, src, snk)

	assert.Equal(t, raw, snk.Bytes())
	assert.Equal(t, int64(len(raw)), s.BytesWritten)
}

func TestRun_ProgressReported(t *testing.T) {
	o := baseOptions()
	o.Passthrough = true
	var calls int
	var lastFrames, lastExpected int64
	o.Progress = func(frames, expected, bytes int64) {
		calls++
		lastFrames, lastExpected = frames, expected
	}
	src := source.NewMemorySource(dsp.FormatS16, 48000,
		source.MemoryBurst{Data: toneBytes(2000, 1000, 48000)})
	snk := sink.NewMemorySink()

	runOnce(t, o, src, snk)

	assert.GreaterOrEqual(t, calls, 1, "final report always fires")
	assert.Equal(t, int64(2000), lastFrames)
	assert.Equal(t, int64(2000), lastExpected)
}

// TestSnapshotTraining_FeedsOptimizer drives the training side channel
// directly: a snapshot of gain-skewed samples must reach the optimizer
// and move the corrector's coefficients, and the spare chunk must come
// home afterwards.
func TestSnapshotTraining_FeedsOptimizer(t *testing.T) {
	o := baseOptions()
	o.IQCorrection = true
	src := source.NewMemorySource(dsp.FormatS16, 48000)
	p, err := New(o, src, sink.NewMemorySink())
	require.NoError(t, err)

	// Q channel runs 25% hot.
	buf := make([]complex64, 4096)
	for k := range buf {
		phase := 2 * math.Pi * 1000 * float64(k) / 48000
		buf[k] = complex(float32(0.5*math.Cos(phase)), float32(0.625*math.Sin(phase)))
	}
	p.snapshotTraining(buf, len(buf))
	require.Equal(t, 1, p.graph.iqTraining.Len(), "snapshot must be queued")

	// Dequeue drains remaining items after shutdown, so the loop runs
	// the backlog and exits without a second goroutine.
	p.graph.iqTraining.Shutdown()
	p.optimizerLoop()

	gain, _ := p.chain.iqCorrector.Coefficients()
	assert.Less(t, gain, float32(1.0),
		"corrector gain must move below 1 to counter the hot Q channel")
	assert.Equal(t, p.PoolSize(), p.FreeChunks(),
		"the spare training chunk must be recycled")
}

// TestSnapshotTraining_SkipsUnderBackpressure verifies the acquisition
// is strictly non-blocking: with no free chunk available the snapshot
// is dropped, not waited for.
func TestSnapshotTraining_SkipsUnderBackpressure(t *testing.T) {
	o := baseOptions()
	o.IQCorrection = true
	src := source.NewMemorySource(dsp.FormatS16, 48000)
	p, err := New(o, src, sink.NewMemorySink())
	require.NoError(t, err)

	// Drain the free queue so no spare exists.
	for {
		if _, ok := p.graph.free.TryDequeue(); !ok {
			break
		}
	}
	p.snapshotTraining(make([]complex64, 128), 128)
	assert.Zero(t, p.graph.iqTraining.Len())
}

// -----------------------------------------------------------------------------
// Validation and planning
// -----------------------------------------------------------------------------

func TestOptions_PassthroughConflicts(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Options)
	}{
		{"filter", func(o *Options) { o.PreFilter = &FilterSpec{Cutoff: 0.1} }},
		{"post filter", func(o *Options) { o.PostFilter = &FilterSpec{Cutoff: 0.1} }},
		{"dc block", func(o *Options) { o.DCBlock = true }},
		{"agc", func(o *Options) { o.AGC = true }},
		{"iq correction", func(o *Options) { o.IQCorrection = true }},
		{"shift", func(o *Options) { o.ShiftBeforeHz = 1000 }},
		{"rate change", func(o *Options) { o.OutputRate = 24000 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			o := baseOptions()
			o.Passthrough = true
			tc.mutate(o)
			assert.ErrorIs(t, o.Validate(), ErrPassthroughConflict)
		})
	}
}

func TestOptions_Validate(t *testing.T) {
	o := baseOptions()
	require.NoError(t, o.Validate())

	o = baseOptions()
	o.InputRate = 0
	assert.ErrorIs(t, o.Validate(), ErrInvalidOptions)

	o = baseOptions()
	o.PreFilter = &FilterSpec{Cutoff: 0.7}
	assert.ErrorIs(t, o.Validate(), ErrInvalidOptions)

	o = baseOptions()
	o.Gain = -1
	assert.ErrorIs(t, o.Validate(), ErrInvalidOptions)
}

func TestPlanStages_DecisionTable(t *testing.T) {
	src := source.NewMemorySource(dsp.FormatS16, 48000)

	o := baseOptions()
	o.OutputRate = 24000
	f := planStages(o, src)
	assert.True(t, f.preProcessor)
	assert.True(t, f.resampler)
	assert.True(t, f.postProcessor)
	assert.False(t, f.sdrCapture)
	assert.False(t, f.sdrWatchdog)
	assert.False(t, f.iqOptimizer)

	o = baseOptions()
	o.OutputRate = 24000
	o.NoResample = true
	f = planStages(o, src)
	assert.True(t, f.preProcessor)
	assert.False(t, f.resampler, "no-resample elides the resampler only")
	assert.True(t, f.postProcessor)

	o = baseOptions()
	o.Passthrough = true
	f = planStages(o, src)
	assert.False(t, f.preProcessor)
	assert.False(t, f.resampler)
	assert.False(t, f.postProcessor)

	o = baseOptions()
	o.BufferedSDR = true
	o.IQCorrection = true
	rt := source.NewMemorySource(dsp.FormatS16, 48000)
	rt.SetRealtime(true)
	f = planStages(o, rt)
	assert.True(t, f.sdrCapture)
	assert.True(t, f.sdrWatchdog)
	assert.True(t, f.iqOptimizer)
}

func TestBuildGraph_Wiring(t *testing.T) {
	o := baseOptions()
	o.OutputRate = 24000
	src := source.NewMemorySource(dsp.FormatS16, 48000)
	snk := sink.NewMemorySink()
	p, err := New(o, src, snk)
	require.NoError(t, err)

	g, f := p.graph, p.flags
	assert.Equal(t, p.PoolSize(), g.free.Len(), "free queue pre-filled")
	assert.Same(t, g.readerOut, g.preIn())
	assert.Same(t, g.preOut, g.resampIn())
	assert.Same(t, g.resampOut, g.postIn(f))
	assert.NotSame(t, g.writerIn, g.readerOut)

	// Without a resampler the post-processor reads the pre-processor
	// output directly.
	o2 := baseOptions()
	p2, err := New(o2, src, snk)
	require.NoError(t, err)
	assert.Same(t, p2.graph.preOut, p2.graph.postIn(p2.flags))

	// Passthrough wires reader straight to writer.
	o3 := baseOptions()
	o3.Passthrough = true
	p3, err := New(o3, src, snk)
	require.NoError(t, err)
	assert.Same(t, p3.graph.readerOut, p3.graph.writerIn)
}

// -----------------------------------------------------------------------------
// Run state
// -----------------------------------------------------------------------------

func TestRunState_FirstErrorWins(t *testing.T) {
	stops := 0
	s := newRunState(zap.NewNop(), func() { stops++ })

	first := errors.New("first")
	s.fail("a", first)
	s.fail("b", errors.New("second"))

	assert.ErrorIs(t, s.failure(), first)
	assert.True(t, s.shuttingDown())
	assert.Equal(t, 1, stops, "stopAll runs once")
}

func TestRunState_Heartbeat(t *testing.T) {
	s := newRunState(zap.NewNop(), func() {})
	_, ok := s.sinceBeat()
	assert.False(t, ok, "no heartbeat before the first receive")

	s.beat()
	d, ok := s.sinceBeat()
	require.True(t, ok)
	assert.Less(t, d, time.Second)
}
