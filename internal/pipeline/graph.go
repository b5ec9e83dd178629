package pipeline

import (
	"github.com/tphakala/go-iq-pipeline/internal/chunk"
	"github.com/tphakala/go-iq-pipeline/internal/queue"
	"github.com/tphakala/go-iq-pipeline/internal/source"
)

// stageFlags records which optional stages run for this graph. Reader
// and writer always run.
type stageFlags struct {
	preProcessor  bool
	resampler     bool
	postProcessor bool
	sdrCapture    bool
	sdrWatchdog   bool
	iqOptimizer   bool
}

// planStages evaluates the option-to-stage decision table.
func planStages(o *Options, src source.Source) stageFlags {
	f := stageFlags{
		sdrCapture:  o.BufferedSDR,
		sdrWatchdog: src.Realtime(),
		iqOptimizer: o.IQCorrection,
	}
	if o.Passthrough {
		return f
	}
	f.preProcessor = true
	f.postProcessor = true
	f.resampler = o.resampleActive()
	return f
}

// chunkQueue is the queue type every stage edge uses.
type chunkQueue = queue.Queue[*chunk.SampleChunk]

// graph is the queue wiring for one run. Each optional stage's input
// is the previous active stage's output; disabled stages are elided so
// the chain stays gap-free from reader to writer.
type graph struct {
	free *chunkQueue

	readerOut *chunkQueue
	preOut    *chunkQueue
	resampOut *chunkQueue
	writerIn  *chunkQueue

	// iqTraining is the unordered side channel for imbalance
	// training snapshots.
	iqTraining *chunkQueue

	all []*chunkQueue
}

// buildGraph wires queues for the planned stages and pre-fills the
// free queue with every pool chunk. Queue capacity equals the pool
// size, so a stage can never block pushing to the training channel.
func buildGraph(f stageFlags, pool *chunk.Pool) (*graph, error) {
	g := &graph{}
	capacity := pool.Size()

	newQ := func() (*chunkQueue, error) {
		q, err := queue.New[*chunk.SampleChunk](capacity)
		if err != nil {
			return nil, err
		}
		g.all = append(g.all, q)
		return q, nil
	}

	var err error
	if g.free, err = newQ(); err != nil {
		return nil, err
	}
	for _, c := range pool.Chunks() {
		if err := g.free.Enqueue(c); err != nil {
			return nil, err
		}
	}

	if g.readerOut, err = newQ(); err != nil {
		return nil, err
	}
	last := g.readerOut
	if f.preProcessor {
		if g.preOut, err = newQ(); err != nil {
			return nil, err
		}
		last = g.preOut
	}
	if f.resampler {
		if g.resampOut, err = newQ(); err != nil {
			return nil, err
		}
		last = g.resampOut
	}
	// The post-processor transforms in place and forwards on a fresh
	// queue only when it is active; otherwise the writer consumes the
	// last queue directly.
	if f.postProcessor {
		if g.writerIn, err = newQ(); err != nil {
			return nil, err
		}
	} else {
		g.writerIn = last
	}

	if f.iqOptimizer {
		if g.iqTraining, err = newQ(); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// preIn is the pre-processor's input queue.
func (g *graph) preIn() *chunkQueue { return g.readerOut }

// resampIn is the resampler's input queue.
func (g *graph) resampIn() *chunkQueue { return g.preOut }

// postIn is the post-processor's input queue: the resampler's output
// when one runs, else the pre-processor's.
func (g *graph) postIn(f stageFlags) *chunkQueue {
	if f.resampler {
		return g.resampOut
	}
	return g.preOut
}

// shutdownAll signals every queue, waking all blocked stages.
func (g *graph) shutdownAll() {
	for _, q := range g.all {
		q.Shutdown()
	}
}
