// Package logging builds the zap loggers used across the catalog.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/baltrad/baltrad-db-sub003/internal/errs"
)

// New builds a logger writing to stderr. format is "console" for a
// human-readable development encoder or "json" for production output.
func New(level, format string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, errs.Value("invalid log level %q", level)
	}

	var cfg zap.Config
	switch format {
	case "json":
		cfg = zap.NewProductionConfig()
	case "console", "":
		cfg = zap.NewDevelopmentConfig()
		cfg.Development = false
	default:
		return nil, errs.Value("invalid log format %q", format)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}

// Must is New for callers that cannot proceed without a logger; it falls
// back to a no-op logger.
func Must(level, format string) *zap.Logger {
	l, err := New(level, format)
	if err != nil {
		return zap.NewNop()
	}
	return l
}
