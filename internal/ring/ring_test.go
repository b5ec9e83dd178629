package ring

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuffer_WriteReadWrap(t *testing.T) {
	b := New(8)

	n := b.Write([]byte{1, 2, 3, 4, 5, 6})
	assert.Equal(t, 6, n)

	out := make([]byte, 4)
	n, eos := b.Read(out)
	require.False(t, eos)
	assert.Equal(t, 4, n)
	assert.Equal(t, []byte{1, 2, 3, 4}, out[:n])

	// Wraps around the end of the backing array.
	n = b.Write([]byte{7, 8, 9, 10})
	assert.Equal(t, 4, n)

	out = make([]byte, 8)
	n, eos = b.Read(out)
	require.False(t, eos)
	assert.Equal(t, 6, n)
	assert.Equal(t, []byte{5, 6, 7, 8, 9, 10}, out[:n])
}

// TestBuffer_ShortWrite verifies the writer side never blocks and
// reports overrun via a short count.
func TestBuffer_ShortWrite(t *testing.T) {
	b := New(4)

	n := b.Write([]byte{1, 2, 3, 4, 5, 6})
	assert.Equal(t, 4, n, "write past capacity must be truncated, not blocked")
	assert.Zero(t, b.Free())

	n = b.Write([]byte{7})
	assert.Zero(t, n)
}

func TestBuffer_BlockingRead(t *testing.T) {
	b := New(16)

	got := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 4)
		n, _ := b.Read(buf)
		got <- buf[:n]
	}()

	select {
	case <-got:
		t.Fatal("read on empty ring did not block")
	case <-time.After(20 * time.Millisecond):
	}

	b.Write([]byte{42, 43})
	select {
	case data := <-got:
		assert.Equal(t, []byte{42, 43}, data)
	case <-time.After(time.Second):
		t.Fatal("blocked reader never resumed")
	}
}

func TestBuffer_EndOfStream(t *testing.T) {
	b := New(16)
	b.Write([]byte{1, 2, 3})
	b.CloseWrite()

	// Remaining bytes drain first.
	out := make([]byte, 16)
	n, eos := b.Read(out)
	assert.False(t, eos)
	assert.Equal(t, 3, n)

	// Then end-of-stream is reported.
	n, eos = b.Read(out)
	assert.Zero(t, n)
	assert.True(t, eos)

	// Writes after close are discarded.
	assert.Zero(t, b.Write([]byte{9}))
}

func TestBuffer_ShutdownUnblocksReader(t *testing.T) {
	b := New(16)

	done := make(chan bool, 1)
	go func() {
		n, eos := b.Read(make([]byte, 4))
		done <- n == 0 && !eos
	}()

	time.Sleep(20 * time.Millisecond)
	b.Shutdown()

	select {
	case aborted := <-done:
		assert.True(t, aborted, "shutdown read must report neither data nor eos")
	case <-time.After(time.Second):
		t.Fatal("shutdown did not unblock reader")
	}
}

// TestBuffer_Streaming pushes a payload through a small ring with a
// concurrent reader and verifies bytes arrive intact and in order.
func TestBuffer_Streaming(t *testing.T) {
	const payloadLen = 64 * 1024

	payload := make([]byte, payloadLen)
	for i := range payload {
		payload[i] = byte(i * 31)
	}

	b := New(1024)
	var received bytes.Buffer
	done := make(chan struct{})
	go func() {
		defer close(done)
		buf := make([]byte, 400)
		for {
			n, eos := b.Read(buf)
			if n == 0 {
				if eos {
					return
				}
				return // shutdown, not expected here
			}
			received.Write(buf[:n])
		}
	}()

	remaining := payload
	for len(remaining) > 0 {
		n := b.Write(remaining)
		remaining = remaining[n:]
		if n == 0 {
			time.Sleep(time.Millisecond)
		}
	}
	b.CloseWrite()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("reader did not finish")
	}
	require.Equal(t, payloadLen, received.Len())
	assert.True(t, bytes.Equal(payload, received.Bytes()), "payload corrupted in transit")
}
