// cmd/jsymeter/logger.go
package main

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tamzrod/jsy-meter/internal/config"
)

// newLogger builds the process logger: JSON in production, console when
// development is set. Level was validated by config.Validate.
func newLogger(c config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}

	zc := zap.NewProductionConfig()
	if c.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	return zc.Build()
}
