package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestInitLogger_Level(t *testing.T) {
	logger := InitLogger("debug")
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	logger = InitLogger("warn")
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.ErrorLevel))
}

func TestInitLogger_UnknownLevelFallsBackToInfo(t *testing.T) {
	logger := InitLogger("chatty")
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
}
