package pipeline

import "time"

const (
	// defaultPoolChunks is the number of chunks cycling through the
	// pipeline when the caller does not choose one.
	defaultPoolChunks = 32

	// sdrCaptureRingBytes sizes the byte ring between the hardware
	// capture loop and the reader in buffered SDR mode.
	sdrCaptureRingBytes = 8 * 1024 * 1024

	// pacingRingBytes sizes the output pacing ring between the writer
	// stage and the disk writer in file-output mode.
	pacingRingBytes = 4 * 1024 * 1024

	// pacingRetryInterval is how long the writer sleeps when the
	// pacing ring is full before retrying the remaining bytes.
	pacingRetryInterval = time.Millisecond

	// progressMinInterval bounds the progress callback rate.
	progressMinInterval = 100 * time.Millisecond

	// trainingSnapshotSamples is the size of the window copied to the
	// imbalance optimizer per snapshot.
	trainingSnapshotSamples = 16384

	// trainingSnapshotEvery takes one snapshot per this many data
	// chunks so the optimizer sees the stream without shadowing it.
	trainingSnapshotEvery = 16

	// watchdogInterval is how often the hardware heartbeat is checked.
	watchdogInterval = time.Second

	// watchdogTimeout is the silence after which a hardware-facing
	// thread is declared hung.
	watchdogTimeout = 5 * time.Second

	// watchdogExitCode is used on forced termination.
	watchdogExitCode = 2

	// unknownTotal is reported to the progress callback when the
	// source cannot say how many frames it will produce.
	unknownTotal = int64(-1)
)
