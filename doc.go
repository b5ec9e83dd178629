// Package iqpipeline converts streams of I/Q (complex baseband)
// samples between sample rates and wire formats in real time.
//
// A pipeline reads from a file, stdin or an RTL-SDR dongle, runs a
// configurable chain of DSP operations (format conversion, DC removal,
// I/Q imbalance correction, frequency shifting, low-pass filtering,
// rate conversion, AGC) and writes the result to a file, stdout or a
// WAV container. Processing is concurrent: each active stage runs on
// its own goroutine, connected by bounded queues over a fixed pool of
// reusable sample chunks, so throughput is sustained with bounded
// memory and no allocation on the hot path.
//
// # Quick start
//
// One-shot conversion of a raw capture:
//
//	summary, err := iqpipeline.Run(ctx, &iqpipeline.Config{
//		Input:        "capture.iq",
//		Output:       "out.iq",
//		InputFormat:  iqpipeline.FormatU8,
//		OutputFormat: iqpipeline.FormatS16,
//		InputRate:    iqpipeline.Rate2M4,
//		OutputRate:   iqpipeline.Rate1M024,
//	})
//
// For more control build the pipeline explicitly with New and drive
// Run yourself; cancel the context to stop a live stream cleanly.
package iqpipeline
