package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestNewAppliesLevel(t *testing.T) {
	log := New(Config{Environment: "prod", LogLevel: "warn", ServiceName: "script-review"})
	assert.False(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, log.Core().Enabled(zapcore.WarnLevel))
}

func TestNewDefaultsToInfo(t *testing.T) {
	log := New(Config{})
	assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
}
