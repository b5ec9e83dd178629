// Package logging builds the zap loggers used across the pipeline.
package logging

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a logger writing to stderr. verbose selects debug level
// with the development encoder; otherwise info level with the
// production encoder. The returned run ID tags every record and is
// reported in the run summary.
func New(verbose bool) (*zap.Logger, string, error) {
	var cfg zap.Config
	if verbose {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	logger, err := cfg.Build()
	if err != nil {
		return nil, "", err
	}
	runID := uuid.NewString()
	return logger.With(zap.String("run_id", runID)), runID, nil
}

// Nop returns a discard-all logger for tests and library callers that
// pass no logger of their own.
func Nop() *zap.Logger { return zap.NewNop() }
