// Command iqpipe converts I/Q sample streams between rates and wire
// formats: files, stdin/stdout pipes, WAV captures and RTL-SDR input.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	iqpipeline "github.com/tphakala/go-iq-pipeline"
	"github.com/tphakala/go-iq-pipeline/internal/preset"
)

func main() {
	cmd, _, _ := newRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

type cliFlags struct {
	presetPath string

	sdrDevice     int
	sdrFreqHz     uint32
	sdrGainTenths int
	sdrBuffered   bool
	useSDR        bool

	inFormat  string
	outFormat string
	progress  bool
}

func newRootCmd() (*cobra.Command, *iqpipeline.Config, *cliFlags) {
	cfg := &iqpipeline.Config{}
	fl := &cliFlags{}

	cmd := &cobra.Command{
		Use:   "iqpipe",
		Short: "Resample and reformat I/Q sample streams",
		Long: `iqpipe reads I/Q samples from a file, stdin, a WAV capture or an
RTL-SDR dongle, runs a configurable DSP chain (DC removal, I/Q
imbalance correction, frequency shift, low-pass filter, rate
conversion, AGC) and writes the result to a file, stdout or WAV.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, cfg, fl)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&cfg.Input, "input", "i", "", "input path, '-' for stdin, or .wav")
	f.StringVarP(&cfg.Output, "output", "o", "", "output path, '-' for stdout, or .wav")
	f.StringVar(&fl.inFormat, "input-format", "u8", "input sample format (u8, s8, s16le, f32le)")
	f.StringVar(&fl.outFormat, "output-format", "s16le", "output sample format")
	f.Float64VarP(&cfg.InputRate, "input-rate", "r", 0, "input sample rate in Hz")
	f.Float64VarP(&cfg.OutputRate, "output-rate", "R", 0, "output sample rate in Hz")
	f.Float64Var(&cfg.Gain, "gain", 0, "linear input gain (0 = unity)")
	f.Float64Var(&cfg.ShiftHz, "shift", 0, "frequency shift in Hz before resampling")
	f.Float64Var(&cfg.PostShiftHz, "post-shift", 0, "frequency shift in Hz after resampling")
	f.BoolVar(&cfg.DCBlock, "dc-block", false, "remove DC offset")
	f.BoolVar(&cfg.IQCorrection, "iq-correction", false, "correct I/Q imbalance with background training")
	f.BoolVar(&cfg.AGC, "agc", false, "automatic gain control")
	f.Float64Var(&cfg.FilterCutoffHz, "filter", 0, "low-pass cutoff in Hz before resampling (0 = off)")
	f.IntVar(&cfg.FilterTaps, "filter-taps", 0, "filter length (0 = default)")
	f.BoolVar(&cfg.FFTFilter, "fft-filter", false, "use FFT convolution for the filter")
	f.Float64Var(&cfg.PostFilterCutoffHz, "post-filter", 0, "low-pass cutoff in Hz after resampling (0 = off)")
	f.BoolVar(&cfg.Passthrough, "passthrough", false, "copy input bytes untouched")
	f.BoolVar(&cfg.NoResample, "no-resample", false, "run the DSP chain without rate conversion")
	f.IntVar(&cfg.PoolChunks, "pool-chunks", 0, "chunk pool size (0 = default)")
	f.IntVar(&cfg.ChunkSamples, "chunk-samples", 0, "samples per chunk (0 = default)")
	f.BoolVarP(&cfg.Verbose, "verbose", "v", false, "debug logging")
	f.BoolVar(&fl.progress, "progress", false, "print progress to stderr")
	f.StringVar(&fl.presetPath, "preset", "", "YAML preset file applied before other flags")

	f.BoolVar(&fl.useSDR, "sdr", false, "read from an RTL-SDR dongle")
	f.IntVar(&fl.sdrDevice, "sdr-device", 0, "dongle index")
	f.Uint32Var(&fl.sdrFreqHz, "sdr-freq", 0, "center frequency in Hz")
	f.IntVar(&fl.sdrGainTenths, "sdr-gain", 0, "tuner gain in tenths of dB (0 = auto)")
	f.BoolVar(&fl.sdrBuffered, "sdr-buffered", false, "buffer hardware capture through a framed ring")

	return cmd, cfg, fl
}

func run(cmd *cobra.Command, cfg *iqpipeline.Config, fl *cliFlags) error {
	if err := resolveConfig(cmd, cfg, fl); err != nil {
		return err
	}
	if fl.progress {
		cfg.Progress = printProgress
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := iqpipeline.Run(ctx, cfg)
	if fl.progress {
		fmt.Fprintln(os.Stderr)
	}
	switch {
	case err != nil:
		if summary != nil {
			fmt.Fprintf(os.Stderr, "Stopped due to error after %d frames (%d bytes written)\n",
				summary.FramesWritten, summary.BytesWritten)
		}
		return err
	case summary.Cancelled:
		fmt.Fprintf(os.Stderr, "Cancelled by user: %d frames in, %d frames out (%d bytes)\n",
			summary.FramesRead, summary.FramesWritten, summary.BytesWritten)
	default:
		fmt.Fprintf(os.Stderr, "Completed successfully: %d frames in, %d frames out (%d bytes)\n",
			summary.FramesRead, summary.FramesWritten, summary.BytesWritten)
	}
	return nil
}

// resolveConfig settles the final configuration. Precedence: flag
// defaults, then preset keys, then flags the user actually passed.
// Flags are parsed before RunE, so cfg holds the command-line values
// on entry; the preset is overlaid and every explicitly changed flag
// restored on top.
func resolveConfig(cmd *cobra.Command, cfg *iqpipeline.Config, fl *cliFlags) error {
	if fl.presetPath != "" {
		p, err := preset.Load(fl.presetPath)
		if err != nil {
			return err
		}
		flagged := *cfg
		p.Apply(cfg)
		restoreChangedFlags(cmd, cfg, &flagged)
	}
	if cmd.Flags().Changed("input-format") || cfg.InputFormat == "" {
		cfg.InputFormat = iqpipeline.SampleFormat(fl.inFormat)
	}
	if cmd.Flags().Changed("output-format") || cfg.OutputFormat == "" {
		cfg.OutputFormat = iqpipeline.SampleFormat(fl.outFormat)
	}
	if fl.useSDR {
		cfg.SDR = &iqpipeline.SDRConfig{
			DeviceIndex:  fl.sdrDevice,
			CenterFreqHz: fl.sdrFreqHz,
			TunerGain:    fl.sdrGainTenths,
			Buffered:     fl.sdrBuffered,
		}
	}
	return nil
}

// restoreChangedFlags copies back the fields whose flags the user set
// explicitly, so they win over preset keys. Format flags live outside
// cfg and are resolved by the caller.
func restoreChangedFlags(cmd *cobra.Command, cfg, flagged *iqpipeline.Config) {
	restore := map[string]func(){
		"input":         func() { cfg.Input = flagged.Input },
		"output":        func() { cfg.Output = flagged.Output },
		"input-rate":    func() { cfg.InputRate = flagged.InputRate },
		"output-rate":   func() { cfg.OutputRate = flagged.OutputRate },
		"gain":          func() { cfg.Gain = flagged.Gain },
		"shift":         func() { cfg.ShiftHz = flagged.ShiftHz },
		"post-shift":    func() { cfg.PostShiftHz = flagged.PostShiftHz },
		"dc-block":      func() { cfg.DCBlock = flagged.DCBlock },
		"iq-correction": func() { cfg.IQCorrection = flagged.IQCorrection },
		"agc":           func() { cfg.AGC = flagged.AGC },
		"filter":        func() { cfg.FilterCutoffHz = flagged.FilterCutoffHz },
		"filter-taps":   func() { cfg.FilterTaps = flagged.FilterTaps },
		"fft-filter":    func() { cfg.FFTFilter = flagged.FFTFilter },
		"post-filter":   func() { cfg.PostFilterCutoffHz = flagged.PostFilterCutoffHz },
		"passthrough":   func() { cfg.Passthrough = flagged.Passthrough },
		"no-resample":   func() { cfg.NoResample = flagged.NoResample },
		"pool-chunks":   func() { cfg.PoolChunks = flagged.PoolChunks },
		"chunk-samples": func() { cfg.ChunkSamples = flagged.ChunkSamples },
	}
	for name, fn := range restore {
		if cmd.Flags().Changed(name) {
			fn()
		}
	}
}

func printProgress(frames, expected, bytes int64) {
	if expected > 0 {
		pct := float64(frames) / float64(expected) * 100
		fmt.Fprintf(os.Stderr, "\r%6.2f%%  %d frames  %d bytes", pct, frames, bytes)
		return
	}
	fmt.Fprintf(os.Stderr, "\r%d frames  %d bytes", frames, bytes)
}
