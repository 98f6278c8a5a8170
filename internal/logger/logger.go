// Package logger builds zap loggers and carries them through contexts.
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger creates a zap logger for the given environment.
// prod writes JSON, local/dev/docker write colored console output, test discards.
// level (if non-empty) overrides the environment default: debug, info, warn, error.
func NewLogger(env string, level ...string) (*zap.Logger, error) {
	var cfg zap.Config
	switch env {
	case "prod":
		cfg = zap.NewProductionConfig()
	case "local", "dev", "docker":
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	case "test":
		return zap.NewNop(), nil
	default:
		return nil, fmt.Errorf("unknown environment %q for logger", env)
	}

	if len(level) > 0 && level[0] != "" {
		var lvl zapcore.Level
		if err := lvl.UnmarshalText([]byte(level[0])); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level[0], err)
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	l, err := cfg.Build(
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.Fields(zap.String("service", "pdfrag")),
	)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return l, nil
}
