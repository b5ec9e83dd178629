package sink

import "sync"

// MemorySink captures output bytes in memory for tests.
type MemorySink struct {
	mu     sync.Mutex
	data   []byte
	closed bool

	// FailWrite, when set, makes the next Write return it once.
	FailWrite error
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink { return &MemorySink{} }

func (s *MemorySink) Open() error { return nil }

func (s *MemorySink) Write(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err := s.FailWrite; err != nil {
		s.FailWrite = nil
		return err
	}
	s.data = append(s.data, p...)
	return nil
}

func (s *MemorySink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *MemorySink) BytesWritten() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.data))
}

// Bytes returns a copy of everything written so far.
func (s *MemorySink) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]byte, len(s.data))
	copy(out, s.data)
	return out
}
