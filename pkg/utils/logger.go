package utils

import (
	"fmt"

	"go.uber.org/zap"
)

// LoggerName names every logger built by NewLogger.
const LoggerName = "tally"

// NewLogger builds the service logger. Debug selects zap's development config
// (console output, debug level); otherwise the production config is used
// (JSON, info level).
func NewLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger.Named(LoggerName), nil
}
