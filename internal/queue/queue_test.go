package queue

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestQueue_FIFO verifies items come out in insertion order.
func TestQueue_FIFO(t *testing.T) {
	q, err := New[int](8)
	require.NoError(t, err)

	for i := 1; i <= 5; i++ {
		require.NoError(t, q.Enqueue(i))
	}

	for i := 1; i <= 5; i++ {
		item, ok := q.Dequeue()
		require.True(t, ok)
		assert.Equal(t, i, item, "FIFO order violated at position %d", i)
	}
}

func TestQueue_InvalidCapacity(t *testing.T) {
	_, err := New[int](0)
	assert.ErrorIs(t, err, ErrInvalidCapacity)

	_, err = New[int](-3)
	assert.ErrorIs(t, err, ErrInvalidCapacity)
}

// TestQueue_BlockingEnqueue verifies a producer blocked on a full queue
// resumes once a slot frees up.
func TestQueue_BlockingEnqueue(t *testing.T) {
	q, err := New[int](1)
	require.NoError(t, err)
	require.NoError(t, q.Enqueue(1))

	done := make(chan error, 1)
	go func() {
		done <- q.Enqueue(2)
	}()

	// Producer must still be blocked.
	select {
	case <-done:
		t.Fatal("enqueue on full queue did not block")
	case <-time.After(20 * time.Millisecond):
	}

	item, ok := q.Dequeue()
	require.True(t, ok)
	assert.Equal(t, 1, item)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("blocked producer never resumed")
	}

	item, ok = q.Dequeue()
	require.True(t, ok)
	assert.Equal(t, 2, item)
}

func TestQueue_TryDequeue(t *testing.T) {
	q, err := New[string](4)
	require.NoError(t, err)

	_, ok := q.TryDequeue()
	assert.False(t, ok, "TryDequeue on empty queue must not block or succeed")

	require.NoError(t, q.Enqueue("a"))
	item, ok := q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, "a", item)

	// TryDequeue still drains items after shutdown.
	require.NoError(t, q.Enqueue("b"))
	q.Shutdown()
	item, ok = q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, "b", item)
}

// TestQueue_ShutdownUnblocksAllWaiters stresses the missed-wakeup case:
// every consumer blocked on an empty queue must observe shutdown.
func TestQueue_ShutdownUnblocksAllWaiters(t *testing.T) {
	const waiters = 8

	q, err := New[int](4)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make(chan bool, waiters)
	for range waiters {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok := q.Dequeue()
			results <- ok
		}()
	}

	// Give the waiters time to block.
	time.Sleep(20 * time.Millisecond)
	q.Shutdown()

	doneCh := make(chan struct{})
	go func() {
		wg.Wait()
		close(doneCh)
	}()

	select {
	case <-doneCh:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown did not unblock all waiters")
	}

	close(results)
	for ok := range results {
		assert.False(t, ok, "waiter received an item from an empty shut-down queue")
	}
}

func TestQueue_ShutdownRejectsEnqueue(t *testing.T) {
	q, err := New[int](2)
	require.NoError(t, err)

	q.Shutdown()
	assert.ErrorIs(t, q.Enqueue(1), ErrShutdown)

	// Idempotent.
	q.Shutdown()
	assert.ErrorIs(t, q.Enqueue(2), ErrShutdown)
}

// TestQueue_ShutdownDrains verifies queued items remain dequeueable
// after shutdown, and only then does Dequeue report no-item.
func TestQueue_ShutdownDrains(t *testing.T) {
	q, err := New[int](4)
	require.NoError(t, err)
	require.NoError(t, q.Enqueue(7))
	require.NoError(t, q.Enqueue(8))

	q.Shutdown()

	item, ok := q.Dequeue()
	require.True(t, ok)
	assert.Equal(t, 7, item)
	item, ok = q.Dequeue()
	require.True(t, ok)
	assert.Equal(t, 8, item)

	_, ok = q.Dequeue()
	assert.False(t, ok)
}

// TestQueue_ConcurrentProducersConsumers pushes a few thousand items
// through concurrently and checks nothing is lost or duplicated.
func TestQueue_ConcurrentProducersConsumers(t *testing.T) {
	const (
		producers    = 4
		perProducer  = 1000
		consumers    = 4
		totalItems   = producers * perProducer
		queueDepth   = 16
		testDeadline = 5 * time.Second
	)

	q, err := New[int](queueDepth)
	require.NoError(t, err)

	var prodWg sync.WaitGroup
	for p := range producers {
		prodWg.Add(1)
		go func(base int) {
			defer prodWg.Done()
			for i := range perProducer {
				_ = q.Enqueue(base*perProducer + i)
			}
		}(p)
	}

	seen := make(chan int, totalItems)
	var consWg sync.WaitGroup
	for range consumers {
		consWg.Add(1)
		go func() {
			defer consWg.Done()
			for {
				item, ok := q.Dequeue()
				if !ok {
					return
				}
				seen <- item
			}
		}()
	}

	prodWg.Wait()
	q.Shutdown()

	done := make(chan struct{})
	go func() {
		consWg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(testDeadline):
		t.Fatal("consumers did not drain after shutdown")
	}

	close(seen)
	unique := make(map[int]bool, totalItems)
	for item := range seen {
		assert.False(t, unique[item], "item %d delivered twice", item)
		unique[item] = true
	}
	assert.Len(t, unique, totalItems, "items lost in transit")
}
