package pipeline

import (
	"context"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/tphakala/go-iq-pipeline/internal/chunk"
	"github.com/tphakala/go-iq-pipeline/internal/ring"
	"github.com/tphakala/go-iq-pipeline/internal/sink"
	"github.com/tphakala/go-iq-pipeline/internal/source"
)

// Pipeline is one configured processing run: the chunk pool, the queue
// graph, the DSP chain and the stage goroutines that move chunks from
// source to sink. A Pipeline runs exactly once.
type Pipeline struct {
	opts  *Options
	src   source.Source
	snk   sink.Sink
	flags stageFlags

	chain *chain
	pool  *chunk.Pool
	graph *graph

	captureRing *ring.Buffer
	pacingRing  *ring.Buffer

	state        *runState
	watchdogStop chan struct{}
	terminate    func(code int)

	// dropPending marks a realtime burst lost to backpressure whose
	// discontinuity still has to be injected. Reader-thread only.
	dropPending bool

	expectedOut int64
}

// New validates the options, sizes and allocates the chunk pool,
// builds the DSP chain and wires the stage queues. Everything that can
// fail does so here, before any goroutine exists.
func New(o *Options, src source.Source, snk sink.Sink) (*Pipeline, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}

	flags := planStages(o, src)
	sizing := deriveSizing(o)
	caps, err := chunk.DeriveCapacities(sizing)
	if err != nil {
		return nil, err
	}
	ch, err := buildChain(o, flags, caps.ComplexSamples)
	if err != nil {
		return nil, err
	}
	pool, err := chunk.NewPool(o.poolChunks(), sizing)
	if err != nil {
		return nil, err
	}
	g, err := buildGraph(flags, pool)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		opts:         o,
		src:          src,
		snk:          snk,
		flags:        flags,
		chain:        ch,
		pool:         pool,
		graph:        g,
		watchdogStop: make(chan struct{}),
		terminate:    os.Exit,
		expectedOut:  unknownTotal,
	}
	if flags.sdrCapture {
		p.captureRing = ring.New(sdrCaptureRingBytes)
	}
	if o.PaceOutput {
		p.pacingRing = ring.New(pacingRingBytes)
	}
	p.state = newRunState(o.logger(), func() {
		g.shutdownAll()
		if p.captureRing != nil {
			p.captureRing.Shutdown()
		}
		if p.pacingRing != nil {
			p.pacingRing.Shutdown()
		}
	})
	return p, nil
}

// Summary is the final accounting for one run.
type Summary struct {
	FramesRead    int64
	FramesWritten int64
	BytesWritten  int64

	// Cancelled is true when the run stopped on user request rather
	// than completing or failing.
	Cancelled bool
}

// Run executes the pipeline until the source drains, the context is
// cancelled, or a stage fails. The returned error is nil both on
// completion and on cancellation; the summary tells them apart.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	if err := p.snk.Open(); err != nil {
		return Summary{}, fmt.Errorf("pipeline: open sink: %w", err)
	}
	if err := p.src.Initialize(ctx); err != nil {
		_ = p.snk.Close()
		return Summary{}, fmt.Errorf("pipeline: initialize source: %w", err)
	}
	if frames, known := p.src.KnownFrames(); known {
		p.expectedOut = frames
		if p.flags.resampler {
			p.expectedOut = int64(float64(frames) * p.opts.ratio())
		}
	}

	var wg sync.WaitGroup
	spawn := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
		}()
	}

	if p.flags.sdrCapture {
		spawn(func() { p.captureLoop(ctx) })
	}
	spawn(func() { p.readerLoop(ctx) })
	if p.flags.preProcessor {
		spawn(p.preProcessLoop)
	}
	if p.flags.resampler {
		spawn(p.resampleLoop)
	}
	if p.flags.postProcessor {
		spawn(p.postProcessLoop)
	}
	spawn(p.writerLoop)
	if p.pacingRing != nil {
		spawn(p.diskWriterLoop)
	}
	if p.flags.iqOptimizer {
		spawn(p.optimizerLoop)
	}
	if p.flags.sdrWatchdog {
		go p.watchdogLoop()
	}

	// The watcher turns context cancellation into shutdown and kicks
	// a synchronous driver read loose with StopStream.
	watcherDone := make(chan struct{})
	stagesDone := make(chan struct{})
	go func() {
		defer close(watcherDone)
		select {
		case <-ctx.Done():
			p.state.shutdown()
			_ = p.src.StopStream(context.Background())
		case <-stagesDone:
		}
	}()

	wg.Wait()
	close(stagesDone)
	close(p.watchdogStop)

	// A clean drain leaves the queues live; release anything still
	// parked on them before teardown.
	p.state.shutdown()
	<-watcherDone

	_ = p.src.StopStream(context.Background())
	if err := p.src.Cleanup(context.Background()); err != nil {
		p.state.log.Warn("source cleanup failed", zap.Error(err))
	}
	closeErr := p.snk.Close()

	read, out := p.state.counters()
	s := Summary{
		FramesRead:    read,
		FramesWritten: out,
		BytesWritten:  p.snk.BytesWritten(),
	}
	if err := p.state.failure(); err != nil {
		return s, err
	}
	if closeErr != nil {
		return s, fmt.Errorf("pipeline: close sink: %w", closeErr)
	}
	s.Cancelled = ctx.Err() != nil
	return s, nil
}

// FreeChunks reports how many chunks sit in the free queue. Exposed
// for accounting checks.
func (p *Pipeline) FreeChunks() int {
	return p.graph.free.Len()
}

// PoolSize reports the total number of pool chunks.
func (p *Pipeline) PoolSize() int {
	return p.pool.Size()
}
