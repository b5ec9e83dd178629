package chunk

import (
	"errors"
	"fmt"
	"math"
)

// ErrCapacityExceeded indicates the derived per-chunk capacity passed
// the hard maximum. The configuration is rejected rather than truncated.
var ErrCapacityExceeded = errors.New("chunk: derived capacity exceeds maximum")

// ErrInvalidSizing indicates degenerate sizing parameters.
var ErrInvalidSizing = errors.New("chunk: invalid sizing parameters")

// Sizing describes the resolved configuration inputs that determine
// per-chunk buffer capacities.
type Sizing struct {
	// BaselineSamples is the nominal chunk size in complex samples.
	BaselineSamples int

	// PreFilterBlock is the FFT block size of the pre-resample filter,
	// or zero when that filter is absent or not FFT-block-based.
	PreFilterBlock int

	// PostFilterBlock is the FFT block size of the post-resample
	// filter, or zero.
	PostFilterBlock int

	// ResampleRatio is output rate over input rate. Zero or one means
	// no rate change.
	ResampleRatio float64

	// InputFrameBytes is the byte width of one raw source I/Q pair.
	InputFrameBytes int

	// OutputFrameBytes is the byte width of one output I/Q pair.
	OutputFrameBytes int
}

// Capacities holds the derived per-chunk buffer sizes.
type Capacities struct {
	// PreResampleSamples is the capacity fed to pre-resample stages.
	PreResampleSamples int

	// ComplexSamples is the shared working capacity of both ping-pong
	// buffers, covering the worst case across the whole graph.
	ComplexSamples int

	// RawBytes is the raw input buffer size.
	RawBytes int

	// OutBytes is the final output buffer size.
	OutBytes int
}

// DeriveCapacities computes the largest per-chunk footprint needed by
// the active pipeline graph:
//
//  1. start from the baseline chunk size
//  2. raise the pre-resample capacity to an FFT pre-filter's block size
//  3. worst-case resampler output = ceil(pre * max(1, ratio)) + margin
//  4. working capacity = max(pre-resample, resampler output)
//  5. raise to an FFT post-filter's block size
//  6. fail closed past the hard maximum
func DeriveCapacities(s Sizing) (Capacities, error) {
	if s.BaselineSamples <= 0 || s.InputFrameBytes <= 0 || s.OutputFrameBytes <= 0 {
		return Capacities{}, fmt.Errorf("%w: baseline=%d inBytes=%d outBytes=%d",
			ErrInvalidSizing, s.BaselineSamples, s.InputFrameBytes, s.OutputFrameBytes)
	}
	if s.ResampleRatio < 0 || math.IsNaN(s.ResampleRatio) || math.IsInf(s.ResampleRatio, 0) {
		return Capacities{}, fmt.Errorf("%w: ratio=%v", ErrInvalidSizing, s.ResampleRatio)
	}

	preSamples := s.BaselineSamples
	if s.PreFilterBlock > preSamples {
		preSamples = s.PreFilterBlock
	}

	ratio := s.ResampleRatio
	if ratio < 1 {
		ratio = 1
	}
	resampleOut := int(math.Ceil(float64(preSamples)*ratio)) + ResampleSafetyMargin

	working := preSamples
	if resampleOut > working {
		working = resampleOut
	}
	if s.PostFilterBlock > working {
		working = s.PostFilterBlock
	}

	if working > MaxChunkSamples {
		return Capacities{}, fmt.Errorf("%w: %d samples (max %d)",
			ErrCapacityExceeded, working, MaxChunkSamples)
	}

	return Capacities{
		PreResampleSamples: preSamples,
		ComplexSamples:     working,
		RawBytes:           s.BaselineSamples * s.InputFrameBytes,
		OutBytes:           working * s.OutputFrameBytes,
	}, nil
}

// Pool is the fixed arena of chunks for one pipeline run. Chunks are
// sliced out of a single backing allocation and recycled through the
// free queue until teardown releases the whole pool at once.
type Pool struct {
	chunks []*SampleChunk
	caps   Capacities

	// backing allocations, one block each for bytes and samples
	byteArena    []byte
	complexArena []complex64
}

// NewPool derives capacities from s and allocates n chunks.
func NewPool(n int, s Sizing) (*Pool, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: pool size %d", ErrInvalidSizing, n)
	}
	caps, err := DeriveCapacities(s)
	if err != nil {
		return nil, err
	}

	bytesPerChunk := caps.RawBytes + caps.OutBytes
	samplesPerChunk := pingPongBuffers * caps.ComplexSamples

	p := &Pool{
		chunks:       make([]*SampleChunk, n),
		caps:         caps,
		byteArena:    make([]byte, n*bytesPerChunk),
		complexArena: make([]complex64, n*samplesPerChunk),
	}

	for i := range n {
		bo := i * bytesPerChunk
		so := i * samplesPerChunk
		p.chunks[i] = &SampleChunk{
			Raw:        p.byteArena[bo : bo+caps.RawBytes : bo+caps.RawBytes],
			Out:        p.byteArena[bo+caps.RawBytes : bo+bytesPerChunk : bo+bytesPerChunk],
			bufA:       p.complexArena[so : so+caps.ComplexSamples : so+caps.ComplexSamples],
			bufB:       p.complexArena[so+caps.ComplexSamples : so+samplesPerChunk : so+samplesPerChunk],
			FrameBytes: s.InputFrameBytes,
		}
	}
	return p, nil
}

// Chunks returns every chunk in the pool, used to pre-fill the free
// queue before any stage starts.
func (p *Pool) Chunks() []*SampleChunk {
	return p.chunks
}

// Size returns the number of chunks in the pool.
func (p *Pool) Size() int {
	return len(p.chunks)
}

// Caps returns the derived capacities the pool was built with.
func (p *Pool) Caps() Capacities {
	return p.caps
}
