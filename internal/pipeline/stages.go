package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/tphakala/go-iq-pipeline/internal/chunk"
	"github.com/tphakala/go-iq-pipeline/internal/dsp"
	"github.com/tphakala/go-iq-pipeline/internal/source"
)

// recycle returns a chunk to the free queue. During shutdown the free
// queue may already reject enqueues; the chunk still belongs to the
// pool arena and is released with it.
func (p *Pipeline) recycle(c *chunk.SampleChunk) {
	c.Clear()
	_ = p.graph.free.Enqueue(c)
}

// forward hands a chunk to the next queue; on rejection (shutdown) the
// chunk goes back to the free queue and the stage must exit.
func (p *Pipeline) forward(out *chunkQueue, c *chunk.SampleChunk) bool {
	if err := out.Enqueue(c); err != nil {
		p.recycle(c)
		return false
	}
	return true
}

// emitMarker sends a flag-only chunk down the reader's output queue.
func (p *Pipeline) emitMarker(last bool) bool {
	c, ok := p.graph.free.Dequeue()
	if !ok {
		return false
	}
	c.Clear()
	c.Last = last
	c.Discontinuity = !last
	return p.forward(p.graph.readerOut, c)
}

// readerLoop fills chunks from the input source and, once input is
// exhausted, synthesizes the single end-of-stream marker. The marker
// chunk is pulled fresh from the free queue so it is never confused
// with a data chunk.
func (p *Pipeline) readerLoop(ctx context.Context) {
	var err error
	if p.flags.sdrCapture {
		err = p.readFramedStream()
	} else if p.src.Realtime() {
		err = p.src.StartStream(ctx, p.deliverRealtime)
	} else {
		err = p.src.StartStream(ctx, p.deliverBlocking)
	}
	if err != nil {
		p.state.fail("reader", err)
		return
	}
	if p.state.shuttingDown() {
		return
	}
	p.emitMarker(true)
}

// deliverBlocking is the file-mode delivery path: it blocks on the
// free queue, so source reads pace themselves to pipeline throughput.
func (p *Pipeline) deliverBlocking(data []byte, discontinuity bool) bool {
	if discontinuity && !p.emitMarker(false) {
		return false
	}
	fb := p.opts.InputFormat.FrameBytes()
	for len(data) > 0 {
		if p.state.shuttingDown() {
			return false
		}
		c, ok := p.graph.free.Dequeue()
		if !ok {
			return false
		}
		c.Clear()
		n := min(len(data), len(c.Raw))
		n -= n % fb
		copy(c.Raw, data[:n])
		c.InFrames = n / fb
		c.FrameBytes = fb
		p.state.addFramesRead(c.InFrames)
		if !p.forward(p.graph.readerOut, c) {
			return false
		}
		data = data[n:]
	}
	return true
}

// deliverRealtime is the hardware callback relay. It must never block
// the driver: when no free chunk is available the burst is dropped
// with a warning and the gap is flagged as a discontinuity.
func (p *Pipeline) deliverRealtime(data []byte, discontinuity bool) bool {
	if p.state.shuttingDown() {
		return false
	}
	p.state.beat()

	if p.dropPending || discontinuity {
		if c, ok := p.graph.free.TryDequeue(); ok {
			c.Clear()
			c.Discontinuity = true
			if !p.forward(p.graph.readerOut, c) {
				return false
			}
			p.dropPending = false
		} else if discontinuity {
			p.dropPending = true
		}
	}

	fb := p.opts.InputFormat.FrameBytes()
	for len(data) > 0 {
		c, ok := p.graph.free.TryDequeue()
		if !ok {
			p.state.log.Warn("no free chunk, dropping hardware burst",
				zap.Int("bytes", len(data)))
			p.dropPending = true
			return true
		}
		c.Clear()
		n := min(len(data), len(c.Raw))
		n -= n % fb
		copy(c.Raw, data[:n])
		c.InFrames = n / fb
		c.FrameBytes = fb
		p.state.addFramesRead(c.InFrames)
		if !p.forward(p.graph.readerOut, c) {
			return false
		}
		data = data[n:]
	}
	return true
}

// readFramedStream parses the capture thread's framed byte ring into
// chunks. A truncated header or payload is stream corruption and fatal
// to the run. On clean ring end-of-stream it returns nil and leaves
// the end-of-stream marker to readerLoop, the single emission point
// for all delivery modes.
func (p *Pipeline) readFramedStream() error {
	fb := p.opts.InputFormat.FrameBytes()
	fr := source.NewFrameReader(p.captureRing, fb, p.opts.baselineSamples())
	for {
		if p.state.shuttingDown() {
			return nil
		}
		c, ok := p.graph.free.Dequeue()
		if !ok {
			return nil
		}
		c.Clear()
		frame, _, err := fr.Next(c.Raw)
		if err != nil {
			p.recycle(c)
			return err
		}
		if frame == nil {
			p.recycle(c)
			return nil
		}
		if frame.Reset {
			c.Discontinuity = true
			c.InFrames = 0
		} else {
			c.InFrames = frame.Samples
			c.FrameBytes = fb
			p.state.addFramesRead(frame.Samples)
		}
		if c.InFrames == 0 && !c.Discontinuity {
			p.recycle(c)
			continue
		}
		if !p.forward(p.graph.readerOut, c) {
			return nil
		}
	}
}

// applyStage runs one collaborator over the active buffer, failing the
// run on a transform error. The chunk's frame count is forced to zero
// on failure so it is recycled rather than forwarded with garbage.
func (p *Pipeline) applyStage(name string, st dsp.Stage, buf []complex64, n int) (int, bool) {
	if st == nil {
		return n, true
	}
	out, err := st.Apply(buf, n)
	if err != nil {
		p.state.fail(name, err)
		return 0, false
	}
	return out, true
}

// preProcessLoop converts raw bytes to complex samples and runs the
// pre-resample collaborators: DC block, I/Q correction, frequency
// shift, pre-filter, in that fixed order.
func (p *Pipeline) preProcessLoop() {
	in, out := p.graph.preIn(), p.graph.preOut
	chunksSinceSnapshot := 0
	for {
		c, ok := in.Dequeue()
		if !ok {
			return
		}
		if c.Last {
			p.forward(out, c)
			return
		}
		if c.Discontinuity {
			p.chain.resetPre()
			if !p.forward(out, c) {
				return
			}
			continue
		}

		buf := c.Input()
		n, err := p.chain.inputConv.Convert(buf, c.Raw, c.InFrames)
		if err != nil {
			p.recycle(c)
			p.state.fail("pre-processor", err)
			return
		}
		if p.chain.dcBlock != nil {
			if n, ok = p.applyStage("pre-processor", p.chain.dcBlock, buf, n); !ok {
				p.recycle(c)
				return
			}
		}
		if p.chain.iqEstimator != nil {
			chunksSinceSnapshot++
			if chunksSinceSnapshot >= trainingSnapshotEvery {
				chunksSinceSnapshot = 0
				p.snapshotTraining(buf, n)
			}
		}
		if p.chain.iqCorrector != nil {
			if n, ok = p.applyStage("pre-processor", p.chain.iqCorrector, buf, n); !ok {
				p.recycle(c)
				return
			}
		}
		if n, ok = p.applyStage("pre-processor", p.chain.shiftPreStage(), buf, n); !ok {
			p.recycle(c)
			return
		}
		if n, ok = p.applyStage("pre-processor", p.chain.preFilter, buf, n); !ok {
			p.recycle(c)
			return
		}

		c.OutFrames = n
		if n > 0 {
			if !p.forward(out, c) {
				return
			}
		} else {
			p.recycle(c)
		}
	}
}

// snapshotTraining copies a window of uncorrected samples to the
// optimizer's side queue. Acquisition is strictly non-blocking: under
// backpressure the snapshot is skipped, never the main path stalled.
func (p *Pipeline) snapshotTraining(buf []complex64, n int) {
	spare, ok := p.graph.free.TryDequeue()
	if !ok {
		return
	}
	spare.Clear()
	m := min(n, trainingSnapshotSamples, spare.ComplexCapacity())
	copy(spare.Input()[:m], buf[:m])
	spare.InFrames = m
	if err := p.graph.iqTraining.Enqueue(spare); err != nil {
		p.recycle(spare)
	}
}

// resampleLoop converts sample rate from the active buffer into the
// scratch buffer, then swaps the buffer roles exactly once so the next
// stage reads the converted data as its input.
func (p *Pipeline) resampleLoop() {
	in, out := p.graph.resampIn(), p.graph.resampOut
	for {
		c, ok := in.Dequeue()
		if !ok {
			return
		}
		if c.Last {
			p.forward(out, c)
			return
		}
		if c.Discontinuity {
			p.chain.resetResampler()
			if !p.forward(out, c) {
				return
			}
			continue
		}

		n, err := p.chain.resampler.Resample(c.Scratch(), c.Input(), c.OutFrames)
		if err != nil {
			p.recycle(c)
			p.state.fail("resampler", err)
			return
		}
		c.Swap()
		c.OutFrames = n
		if n > 0 {
			if !p.forward(out, c) {
				return
			}
		} else {
			p.recycle(c)
		}
	}
}

// postProcessLoop runs the post-resample collaborators and the final
// conversion to the output wire format.
func (p *Pipeline) postProcessLoop() {
	in, out := p.graph.postIn(p.flags), p.graph.writerIn
	for {
		c, ok := in.Dequeue()
		if !ok {
			return
		}
		if c.Last {
			p.forward(out, c)
			return
		}
		if c.Discontinuity {
			p.chain.resetPost()
			if !p.forward(out, c) {
				return
			}
			continue
		}

		buf := c.Input()
		n := c.OutFrames
		if n, ok = p.applyStage("post-processor", p.chain.postFilter, buf, n); !ok {
			p.recycle(c)
			return
		}
		if n, ok = p.applyStage("post-processor", p.chain.shiftPostStage(), buf, n); !ok {
			p.recycle(c)
			return
		}
		if p.chain.agc != nil {
			if n, ok = p.applyStage("post-processor", p.chain.agc, buf, n); !ok {
				p.recycle(c)
				return
			}
		}
		if _, err := p.chain.outputConv.Convert(c.Out, buf, n); err != nil {
			p.recycle(c)
			p.state.fail("post-processor", err)
			return
		}

		c.OutFrames = n
		if n > 0 {
			if !p.forward(out, c) {
				return
			}
		} else {
			p.recycle(c)
		}
	}
}

// writerLoop drains the tail of the chain into the sink, directly or
// through the pacing ring, and drives the progress callback.
func (p *Pipeline) writerLoop() {
	in := p.graph.writerIn
	outFB := p.opts.OutputFormat.FrameBytes()
	var lastReport time.Time
	for {
		c, ok := in.Dequeue()
		if !ok {
			return
		}
		if c.Last {
			p.recycle(c)
			p.reportProgress(&lastReport, true)
			if p.pacingRing != nil {
				p.pacingRing.CloseWrite()
			}
			// The main path has drained; let the optimizer finish
			// its backlog and exit.
			if p.graph.iqTraining != nil {
				p.graph.iqTraining.Shutdown()
			}
			return
		}
		if c.Discontinuity {
			p.recycle(c)
			continue
		}

		var payload []byte
		frames := 0
		if p.opts.Passthrough {
			frames = c.InFrames
			payload = c.Raw[:frames*c.FrameBytes]
		} else {
			frames = c.OutFrames
			payload = c.Out[:frames*outFB]
		}
		if err := p.writeOut(payload); err != nil {
			p.recycle(c)
			p.state.fail("writer", err)
			return
		}
		p.state.addFramesOut(frames)
		p.recycle(c)
		p.reportProgress(&lastReport, false)
	}
}

// writeOut pushes payload to the pacing ring (throttling when full) or
// straight to the sink.
func (p *Pipeline) writeOut(payload []byte) error {
	if p.pacingRing == nil {
		return p.snk.Write(payload)
	}
	for len(payload) > 0 {
		if p.state.shuttingDown() {
			return nil
		}
		n := p.pacingRing.Write(payload)
		if n == 0 {
			time.Sleep(pacingRetryInterval)
			continue
		}
		payload = payload[n:]
	}
	return nil
}

// diskWriterLoop drains the pacing ring into the sink at disk pace.
func (p *Pipeline) diskWriterLoop() {
	buf := make([]byte, 64*1024)
	for {
		n, eos := p.pacingRing.Read(buf)
		if n > 0 {
			if err := p.snk.Write(buf[:n]); err != nil {
				p.state.fail("disk-writer", err)
				return
			}
			continue
		}
		if eos {
			return
		}
		// Shutdown with nothing buffered.
		return
	}
}

// reportProgress invokes the user callback at a bounded rate; force
// bypasses the rate limit for the final report.
func (p *Pipeline) reportProgress(last *time.Time, force bool) {
	if p.opts.Progress == nil {
		return
	}
	now := time.Now()
	if !force && now.Sub(*last) < progressMinInterval {
		return
	}
	*last = now
	_, out := p.state.counters()
	p.opts.Progress(out, p.expectedOut, p.snk.BytesWritten())
}

// optimizerLoop consumes training snapshots in the background. It
// never touches the main chain's queues except to recycle chunks.
func (p *Pipeline) optimizerLoop() {
	for {
		c, ok := p.graph.iqTraining.Dequeue()
		if !ok {
			return
		}
		p.chain.iqEstimator.Train(c.Input(), c.InFrames)
		p.recycle(c)
	}
}
