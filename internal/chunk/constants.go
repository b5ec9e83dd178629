package chunk

// Pool sizing constants.
const (
	// DefaultPoolChunks is the number of chunks cycled through the
	// pipeline. Enough to keep every stage busy without unbounded
	// buffering.
	DefaultPoolChunks = 32

	// DefaultBaselineSamples is the nominal block size in complex
	// samples for one chunk of source data.
	DefaultBaselineSamples = 65536

	// ResampleSafetyMargin pads the worst-case resampler output
	// capacity to absorb ratio rounding and interpolation carry-over.
	ResampleSafetyMargin = 1024

	// MaxChunkSamples is the hard ceiling on the per-chunk complex
	// capacity. Configurations that derive a larger capacity are
	// rejected rather than truncated.
	MaxChunkSamples = 1 << 22

	// ComplexSampleBytes is the in-memory size of one complex64 sample.
	ComplexSampleBytes = 8

	// pingPongBuffers is the number of complex working buffers per chunk.
	pingPongBuffers = 2
)
