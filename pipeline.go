package iqpipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/tphakala/go-iq-pipeline/internal/dsp"
	"github.com/tphakala/go-iq-pipeline/internal/logging"
	"github.com/tphakala/go-iq-pipeline/internal/pipeline"
	"github.com/tphakala/go-iq-pipeline/internal/sink"
	"github.com/tphakala/go-iq-pipeline/internal/source"
)

// Summary is the final accounting of one run.
type Summary struct {
	// RunID identifies the run in the logs.
	RunID string

	FramesRead    int64
	FramesWritten int64
	BytesWritten  int64

	// Cancelled is true when the run stopped on user request rather
	// than completing or failing.
	Cancelled bool
}

// Pipeline is one configured conversion, ready to run exactly once.
type Pipeline struct {
	engine *pipeline.Pipeline
	logger *zap.Logger
	runID  string
}

// New resolves the configuration, opens the collaborators and builds
// the processing graph. Everything that can fail up front fails here.
func New(cfg *Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger, runID, err := logging.New(cfg.Verbose)
	if err != nil {
		return nil, fmt.Errorf("iqpipeline: logger: %w", err)
	}

	src, inFormat, inRate, err := buildSource(cfg)
	if err != nil {
		return nil, err
	}
	outFormat := dsp.FormatS16
	if cfg.OutputFormat != "" {
		if outFormat, err = cfg.OutputFormat.toDSP(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	snk, paced, err := buildSink(cfg, outFormat)
	if err != nil {
		return nil, err
	}

	opts := cfg.options(inFormat, inRate, outFormat)
	opts.PaceOutput = paced
	opts.Logger = logger

	engine, err := pipeline.New(opts, src, snk)
	if err != nil {
		return nil, err
	}
	return &Pipeline{engine: engine, logger: logger, runID: runID}, nil
}

// Run processes the stream until the input drains, ctx is cancelled,
// or a stage fails. The error is nil on completion and cancellation.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	defer func() { _ = p.logger.Sync() }()

	s, err := p.engine.Run(ctx)
	out := &Summary{
		RunID:         p.runID,
		FramesRead:    s.FramesRead,
		FramesWritten: s.FramesWritten,
		BytesWritten:  s.BytesWritten,
		Cancelled:     s.Cancelled,
	}
	if err != nil {
		return out, err
	}
	switch {
	case out.Cancelled:
		p.logger.Info("run cancelled",
			zap.Int64("frames_written", out.FramesWritten))
	default:
		p.logger.Info("run completed",
			zap.Int64("frames_read", out.FramesRead),
			zap.Int64("frames_written", out.FramesWritten),
			zap.Int64("bytes_written", out.BytesWritten))
	}
	return out, nil
}

// Run is the one-shot convenience wrapper: build and run in one call.
func Run(ctx context.Context, cfg *Config) (*Summary, error) {
	p, err := New(cfg)
	if err != nil {
		return nil, err
	}
	return p.Run(ctx)
}

func buildSource(cfg *Config) (source.Source, dsp.Format, float64, error) {
	if cfg.SDR != nil {
		src, err := source.OpenRTLSDR(cfg.SDR.DeviceIndex, cfg.SDR.CenterFreqHz,
			uint32(cfg.InputRate), cfg.SDR.TunerGain)
		if err != nil {
			return nil, 0, 0, err
		}
		return src, src.Format(), src.SampleRate(), nil
	}

	inFormat := dsp.FormatU8
	if cfg.InputFormat != "" {
		f, err := cfg.InputFormat.toDSP()
		if err != nil {
			return nil, 0, 0, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		inFormat = f
	}

	switch {
	case cfg.wavInput():
		src := source.NewWAVSource(cfg.Input)
		// Probe the header now: the file's own rate drives sizing.
		if err := src.Initialize(context.Background()); err != nil {
			return nil, 0, 0, err
		}
		return src, src.Format(), src.SampleRate(), nil
	case cfg.Input == "-":
		return source.NewStdinSource(inFormat, cfg.InputRate), inFormat, cfg.InputRate, nil
	default:
		return source.NewFileSource(cfg.Input, inFormat, cfg.InputRate), inFormat, cfg.InputRate, nil
	}
}

func buildSink(cfg *Config, outFormat dsp.Format) (s sink.Sink, paced bool, err error) {
	switch {
	case cfg.wavOutput():
		ws, err := sink.NewWAVSink(cfg.Output, outFormat, int(cfg.OutputRate))
		if err != nil {
			return nil, false, err
		}
		return ws, true, nil
	case cfg.Output == "-":
		return sink.NewStdoutSink(), false, nil
	default:
		return sink.NewFileSink(cfg.Output), true, nil
	}
}
