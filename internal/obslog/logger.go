// Package obslog builds the *zap.Logger threaded through the model
// builder. It is deliberately a single constructor, not a package-level
// global, so a caller embedding the builder controls its own log sink.
package obslog

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production logger, switched to debug level when verbose
// is true.
func New(verbose bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return config.Build()
}

// NewNop returns a logger that discards everything, for callers (and
// tests) that don't want build diagnostics.
func NewNop() *zap.Logger {
	return zap.NewNop()
}
