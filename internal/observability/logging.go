// Package observability builds the combat daemon's structured logger.
package observability

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cory-johannsen/melee/internal/config"
)

// Output formats accepted by NewLogger.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// NewLogger builds the root logger of a combat process. Engine subsystems
// derive theirs with Named, so resolution, dice and script lines from one
// process all carry the same "service" field when service is non-empty.
//
// Precondition: cfg.Level is one of "debug", "info", "warn", "error";
// cfg.Format is FormatJSON or FormatConsole.
// Postcondition: Returns a logger at cfg.Level, or a non-nil error.
func NewLogger(cfg config.LoggingConfig, service string) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("observability: log level %q: %w", cfg.Level, err)
	}
	zc, err := preset(cfg.Format)
	if err != nil {
		return nil, err
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	if service != "" {
		zc.InitialFields = map[string]any{"service": service}
	}

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("observability: building %s logger: %w", cfg.Format, err)
	}
	return logger, nil
}

// preset returns the zap base configuration for format. JSON output is never
// sampled; every dice line of a tick must survive for replay comparison.
func preset(format string) (zap.Config, error) {
	switch format {
	case FormatJSON:
		zc := zap.NewProductionConfig()
		zc.Sampling = nil
		return zc, nil
	case FormatConsole:
		return zap.NewDevelopmentConfig(), nil
	}
	return zap.Config{}, fmt.Errorf("observability: unknown log format %q", format)
}
