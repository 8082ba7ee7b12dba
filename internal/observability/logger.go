package observability

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggerConfig controls logger construction.
type LoggerConfig struct {
	Level       string // debug, info, warn, error
	Format      string // json or text
	Environment string
	// Production forces JSON output regardless of Format.
	Production bool
}

// NewLogger builds a zap logger. JSON output is used unless Format is "text"
// outside production, in which case a human-readable console encoder is used.
func NewLogger(cfg LoggerConfig) (*zap.Logger, error) {
	zcfg, err := zapConfig(cfg)
	if err != nil {
		return nil, err
	}

	logger, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	if cfg.Environment != "" {
		logger = logger.With(zap.String("env", cfg.Environment))
	}
	return logger, nil
}

func zapConfig(cfg LoggerConfig) (zap.Config, error) {
	level, err := zap.ParseAtomicLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return zap.Config{}, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	var zcfg zap.Config
	if strings.EqualFold(cfg.Format, "text") && !cfg.Production {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zcfg = zap.NewProductionConfig()
		zcfg.EncoderConfig.TimeKey = "ts"
		zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	zcfg.Level = level
	return zcfg, nil
}
