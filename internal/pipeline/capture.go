package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/tphakala/go-iq-pipeline/internal/source"
)

// captureFramer frames hardware bursts into the capture ring. A burst
// that does not fit is dropped and the gap marked with a reset frame;
// when the ring cannot hold even the 5-byte marker, the marker is
// deferred and retried on the next callback so the gap is never lost.
type captureFramer struct {
	fw           *source.FrameWriter
	fb           int
	maxBurst     int
	log          *zap.Logger
	resetPending bool
}

func (cf *captureFramer) deliver(data []byte, discontinuity bool) {
	if discontinuity || cf.resetPending {
		cf.markReset()
	}
	for len(data) > 0 {
		n := min(len(data), cf.maxBurst)
		n -= n % cf.fb
		if n == 0 {
			return
		}
		if !cf.fw.WriteInterleaved(data[:n], n/cf.fb) {
			cf.log.Warn("capture ring full, dropping hardware burst",
				zap.Int("bytes", len(data)))
			cf.markReset()
			return
		}
		data = data[n:]
	}
}

func (cf *captureFramer) markReset() {
	if cf.fw.WriteReset() {
		cf.resetPending = false
		return
	}
	if !cf.resetPending {
		cf.log.Warn("capture ring full, reset marker deferred")
	}
	cf.resetPending = true
}

// captureLoop runs the blocking hardware read loop in buffered mode.
// Received bursts are framed into the capture ring instead of chunk
// queues, so hardware timing never depends on chunk granularity.
func (p *Pipeline) captureLoop(ctx context.Context) {
	fb := p.opts.InputFormat.FrameBytes()
	cf := &captureFramer{
		fw:       source.NewFrameWriter(p.captureRing),
		fb:       fb,
		maxBurst: p.opts.baselineSamples() * fb,
		log:      p.state.log,
	}
	err := p.src.StartStream(ctx, func(data []byte, discontinuity bool) bool {
		p.state.beat()
		cf.deliver(data, discontinuity)
		return !p.state.shuttingDown()
	})
	if err != nil {
		p.state.fail("sdr-capture", err)
	}
	cf.fw.Close()
}

// watchdogLoop force-terminates the process when the hardware-facing
// thread stops heartbeating, since a thread hung inside a driver call
// cannot be signaled cooperatively. It prints straight to stderr: this
// is the one sanctioned abrupt-termination path and normal logging may
// itself be wedged.
func (p *Pipeline) watchdogLoop() {
	ticker := time.NewTicker(watchdogInterval)
	defer ticker.Stop()
	for {
		select {
		case <-p.watchdogStop:
			return
		case <-ticker.C:
			if p.state.shuttingDown() {
				return
			}
			if d, ok := p.state.sinceBeat(); ok && d > watchdogTimeout {
				fmt.Fprintf(os.Stderr,
					"hardware stream stalled for %v, terminating\n", d.Round(time.Second))
				p.terminate(watchdogExitCode)
				return
			}
		}
	}
}
