// Package chunk provides the reusable sample buffers that circulate
// through the pipeline, and the fixed pool they are allocated from.
//
// A chunk bundles the raw source bytes, two complex working buffers
// used ping-pong fashion across transform stages, and the final output
// bytes. All capacities are fixed when the pool is built; nothing is
// allocated per chunk after that.
package chunk

// SampleChunk is the unit of work flowing between stages. Ownership
// transfers only by queue handoff; the owning stage has exclusive
// access until it enqueues the chunk onward.
type SampleChunk struct {
	// Raw holds unconverted source bytes as delivered by the reader.
	Raw []byte

	// bufA and bufB are the complex working buffers. Stages read the
	// active buffer and write the scratch buffer, then call Swap.
	bufA []complex64
	bufB []complex64

	// active selects which of bufA/bufB currently holds stage input.
	active int

	// Out holds the final wire-format bytes produced by the
	// post-processor for the writer.
	Out []byte

	// InFrames is the number of valid complex frames in the active
	// buffer (or raw frames before conversion).
	InFrames int

	// OutFrames is the number of valid frames to emit downstream.
	OutFrames int

	// Last marks the single clean end-of-stream sentinel. A last chunk
	// carries zero valid frames.
	Last bool

	// Discontinuity marks a stream reset (for example an SDR overrun).
	// It carries zero valid frames; stages reset their own DSP state
	// and forward it unchanged.
	Discontinuity bool

	// FrameBytes is the size of one raw source frame (I/Q pair) in
	// bytes for the active input format.
	FrameBytes int
}

// Input returns the complex buffer currently holding stage input.
func (c *SampleChunk) Input() []complex64 {
	if c.active == 0 {
		return c.bufA
	}
	return c.bufB
}

// Scratch returns the complex buffer a transforming stage should write
// its output into.
func (c *SampleChunk) Scratch() []complex64 {
	if c.active == 0 {
		return c.bufB
	}
	return c.bufA
}

// Swap makes the scratch buffer the input buffer for the next stage.
// It must be applied exactly once per buffer-switching transform.
func (c *SampleChunk) Swap() {
	c.active ^= 1
}

// ComplexCapacity returns the shared capacity of the working buffers
// in samples.
func (c *SampleChunk) ComplexCapacity() int {
	return len(c.bufA)
}

// Clear resets per-traversal state so a recycled chunk starts clean.
// Buffer contents are left as-is; capacities never change.
func (c *SampleChunk) Clear() {
	c.active = 0
	c.InFrames = 0
	c.OutFrames = 0
	c.Last = false
	c.Discontinuity = false
}
