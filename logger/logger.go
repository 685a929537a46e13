package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewProductionLogger returns a json logger at the level set in LOG_LEVEL, debug by default
func NewProductionLogger() (*zap.Logger, error) {
	level := zap.NewAtomicLevelAt(zap.DebugLevel)
	if value, ok := os.LookupEnv("LOG_LEVEL"); ok && value != "" {
		lvl, err := zapcore.ParseLevel(value)
		if err != nil {
			return nil, err
		}
		level.SetLevel(lvl)
	}

	config := zap.NewProductionConfig()
	config.Level = level
	return config.Build()
}

func Suggar(logger *zap.Logger) *zap.SugaredLogger {
	return logger.Sugar()
}
