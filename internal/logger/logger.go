// Package logger builds the zap logger shared by the server and the ops programs.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds configuration for the logger.
type Config struct {
	Environment string
	LogLevel    string
	ServiceName string
}

// New creates a JSON logger tagged with service and environment.
func New(cfg Config) *zap.Logger {
	if cfg.Environment == "" {
		cfg.Environment = "dev"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	config := zap.Config{
		Level:            level(cfg.LogLevel),
		Development:      cfg.Environment == "dev",
		Encoding:         "json",
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	log, err := config.Build()
	if err != nil {
		panic(err)
	}
	return log.With(
		zap.String("service", cfg.ServiceName),
		zap.String("environment", cfg.Environment),
	)
}

func level(s string) zap.AtomicLevel {
	switch s {
	case "debug":
		return zap.NewAtomicLevelAt(zapcore.DebugLevel)
	case "warn":
		return zap.NewAtomicLevelAt(zapcore.WarnLevel)
	case "error":
		return zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	default:
		return zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
}
