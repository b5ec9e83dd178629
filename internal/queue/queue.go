// Package queue implements the bounded blocking queue that connects
// pipeline stages. Items are delivered strictly FIFO; a shutdown signal
// wakes every blocked producer and consumer.
package queue

import (
	"errors"
	"sync"
)

// ErrShutdown is returned by Enqueue after Shutdown has been signaled.
var ErrShutdown = errors.New("queue: shut down")

// ErrInvalidCapacity is returned by New for a non-positive capacity.
var ErrInvalidCapacity = errors.New("queue: capacity must be positive")

// Queue is a fixed-capacity FIFO of items shared between exactly the
// goroutines wired to it by the stage graph. Enqueue blocks while full,
// Dequeue blocks while empty; both resolve immediately once Shutdown
// has been signaled.
type Queue[T any] struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond

	items    []T
	capacity int
	head     int
	tail     int
	count    int
	shutdown bool
}

// New creates a queue holding at most capacity items.
func New[T any](capacity int) (*Queue[T], error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	q := &Queue[T]{
		items:    make([]T, capacity),
		capacity: capacity,
	}
	q.notEmpty = sync.NewCond(&q.mu)
	q.notFull = sync.NewCond(&q.mu)
	return q, nil
}

// Enqueue inserts item at the tail, blocking while the queue is full.
// It returns ErrShutdown without inserting if shutdown is signaled
// before space becomes available.
func (q *Queue[T]) Enqueue(item T) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.count == q.capacity && !q.shutdown {
		q.notFull.Wait()
	}
	if q.shutdown {
		return ErrShutdown
	}

	q.items[q.tail] = item
	q.tail = (q.tail + 1) % q.capacity
	q.count++
	q.notEmpty.Signal()
	return nil
}

// Dequeue removes and returns the head item, blocking while the queue
// is empty. It returns ok=false once shutdown is signaled and the queue
// has drained.
func (q *Queue[T]) Dequeue() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.count == 0 && !q.shutdown {
		q.notEmpty.Wait()
	}
	if q.count == 0 {
		var zero T
		return zero, false
	}
	return q.removeLocked(), true
}

// TryDequeue removes and returns the head item if one is available.
// It never blocks, regardless of shutdown state.
func (q *Queue[T]) TryDequeue() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		var zero T
		return zero, false
	}
	return q.removeLocked(), true
}

func (q *Queue[T]) removeLocked() T {
	item := q.items[q.head]
	var zero T
	q.items[q.head] = zero
	q.head = (q.head + 1) % q.capacity
	q.count--
	q.notFull.Signal()
	return item
}

// Shutdown marks the queue as shut down and wakes every blocked
// goroutine on both conditions. Idempotent.
func (q *Queue[T]) Shutdown() {
	q.mu.Lock()
	q.shutdown = true
	q.mu.Unlock()
	q.notEmpty.Broadcast()
	q.notFull.Broadcast()
}

// Len returns the number of items currently queued.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Cap returns the queue capacity.
func (q *Queue[T]) Cap() int {
	return q.capacity
}
