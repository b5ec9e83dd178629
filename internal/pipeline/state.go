package pipeline

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// runState is the only cross-stage shared mutable state besides the
// queues themselves: the shutdown flag, the first-error gate, the
// progress counters and the hardware heartbeat. It is passed to every
// stage at spawn time.
type runState struct {
	log *zap.Logger

	down    atomic.Bool
	errOnce sync.Once
	errMu   sync.Mutex
	err     error

	// stopOnce guards stopAll so cancellation and failure can race.
	stopOnce sync.Once
	stopAll  func()

	countersMu sync.Mutex
	framesRead int64
	framesOut  int64

	heartbeatMu sync.Mutex
	heartbeat   time.Time
}

func newRunState(log *zap.Logger, stopAll func()) *runState {
	return &runState{log: log, stopAll: stopAll}
}

// fail latches the first unrecoverable error, logs it once and
// triggers global shutdown. Later calls are ignored so a single root
// cause never becomes a log storm.
func (s *runState) fail(stage string, err error) {
	s.errOnce.Do(func() {
		s.errMu.Lock()
		s.err = err
		s.errMu.Unlock()
		s.log.Error("pipeline stage failed",
			zap.String("stage", stage),
			zap.Error(err))
		s.shutdown()
	})
}

// shutdown signals every queue and ring without recording an error.
// Used directly for user cancellation.
func (s *runState) shutdown() {
	s.down.Store(true)
	s.stopOnce.Do(s.stopAll)
}

func (s *runState) shuttingDown() bool { return s.down.Load() }

func (s *runState) failure() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *runState) addFramesRead(n int) {
	s.countersMu.Lock()
	s.framesRead += int64(n)
	s.countersMu.Unlock()
}

func (s *runState) addFramesOut(n int) {
	s.countersMu.Lock()
	s.framesOut += int64(n)
	s.countersMu.Unlock()
}

func (s *runState) counters() (read, out int64) {
	s.countersMu.Lock()
	defer s.countersMu.Unlock()
	return s.framesRead, s.framesOut
}

// beat records a successful hardware receive for the watchdog.
func (s *runState) beat() {
	s.heartbeatMu.Lock()
	s.heartbeat = time.Now()
	s.heartbeatMu.Unlock()
}

// sinceBeat reports the time since the last heartbeat; ok is false
// until the first beat.
func (s *runState) sinceBeat() (d time.Duration, ok bool) {
	s.heartbeatMu.Lock()
	defer s.heartbeatMu.Unlock()
	if s.heartbeat.IsZero() {
		return 0, false
	}
	return time.Since(s.heartbeat), true
}
