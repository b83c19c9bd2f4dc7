package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process logger. Production-like environments get JSON output,
// everything else the coloured development console encoder. An explicit level
// (debug, info, warn, error) overrides the environment default.
func New(environment, level string) (*zap.Logger, error) {
	var config zap.Config

	switch environment {
	case "prod", "production", "release":
		config = zap.NewProductionConfig()
	default:
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	config.OutputPaths = []string{"stdout"}
	config.ErrorOutputPaths = []string{"stderr"}
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if level != "" {
		var lvl zapcore.Level
		if err := lvl.UnmarshalText([]byte(level)); err == nil {
			config.Level.SetLevel(lvl)
		}
	}

	return config.Build()
}
