// Package ring implements the byte-oriented circular buffer used to
// decouple producers and consumers that move raw bytes rather than
// chunk references: the buffered-SDR capture ring on the input side
// and the output pacing ring on the file-writer side.
//
// The writer side never blocks and may short-write when the ring is
// full; the reader side blocks until data arrives, the stream ends, or
// shutdown is signaled.
package ring

import "sync"

// Buffer is a fixed-capacity byte ring with non-blocking writes and
// blocking reads.
type Buffer struct {
	mu      sync.Mutex
	notEmpty *sync.Cond

	data     []byte
	capacity int
	readPos  int
	writePos int
	size     int

	eos      bool
	shutdown bool
}

// New creates a ring buffer with the given capacity in bytes.
func New(capacity int) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	b := &Buffer{
		data:     make([]byte, capacity),
		capacity: capacity,
	}
	b.notEmpty = sync.NewCond(&b.mu)
	return b
}

// Write copies as much of p as fits and returns the number of bytes
// written. It never blocks; a short write signals overrun to the
// caller. Writes after CloseWrite or Shutdown are discarded.
func (b *Buffer) Write(p []byte) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.eos || b.shutdown {
		return 0
	}

	n := len(p)
	free := b.capacity - b.size
	if n > free {
		n = free
	}
	if n == 0 {
		return 0
	}

	first := b.capacity - b.writePos
	if first > n {
		first = n
	}
	copy(b.data[b.writePos:], p[:first])
	copy(b.data, p[first:n])
	b.writePos = (b.writePos + n) % b.capacity
	b.size += n

	b.notEmpty.Signal()
	return n
}

// Read copies up to len(p) bytes into p, blocking while the ring is
// empty. It returns n=0, eos=true once the stream has ended and the
// ring has drained, and n=0, eos=false on shutdown.
func (b *Buffer) Read(p []byte) (n int, eos bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for b.size == 0 && !b.eos && !b.shutdown {
		b.notEmpty.Wait()
	}
	if b.size == 0 {
		return 0, b.eos && !b.shutdown
	}

	n = len(p)
	if n > b.size {
		n = b.size
	}

	first := b.capacity - b.readPos
	if first > n {
		first = n
	}
	copy(p[:first], b.data[b.readPos:])
	copy(p[first:n], b.data)
	b.readPos = (b.readPos + n) % b.capacity
	b.size -= n

	return n, false
}

// CloseWrite marks clean end-of-stream. Readers drain remaining bytes
// and then observe eos.
func (b *Buffer) CloseWrite() {
	b.mu.Lock()
	b.eos = true
	b.mu.Unlock()
	b.notEmpty.Broadcast()
}

// Shutdown aborts the stream, waking blocked readers immediately.
// Idempotent.
func (b *Buffer) Shutdown() {
	b.mu.Lock()
	b.shutdown = true
	b.mu.Unlock()
	b.notEmpty.Broadcast()
}

// Buffered returns the number of unread bytes.
func (b *Buffer) Buffered() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Free returns the writable space in bytes.
func (b *Buffer) Free() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.capacity - b.size
}
