package logger_test

import (
	"pipegen-cli/internal/logger"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestGetLogger(t *testing.T) {
	t.Parallel()

	log := logger.GetLogger()
	assert.NotNil(t, log)

	// singleton
	log2 := logger.GetLogger()
	assert.Equal(t, log, log2)

	log.Info("Test log message")
	log.Warn("Test warning message")
}

//nolint:paralleltest // Changes the process-wide level
func TestSetLevel(t *testing.T) {
	logger.SetLevel(zapcore.DebugLevel)
	log := logger.GetLogger()
	assert.True(t, log.Core().Enabled(zapcore.DebugLevel))

	logger.SetLevel(zapcore.ErrorLevel)
	assert.False(t, log.Core().Enabled(zapcore.WarnLevel))
	assert.True(t, log.Core().Enabled(zapcore.ErrorLevel))

	// the same instance observes level changes
	assert.Equal(t, log, logger.GetLogger())

	logger.SetLevel(zapcore.InfoLevel)
	assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
}

func TestLoggerConcurrency(t *testing.T) {
	t.Parallel()

	done := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		go func() {
			defer func() { done <- true }()

			log := logger.GetLogger()
			assert.NotNil(t, log)
			log.Info("Concurrent log message")
		}()
	}

	for i := 0; i < 10; i++ {
		<-done
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected zapcore.Level
	}{
		{"", zapcore.InfoLevel},
		{"info", zapcore.InfoLevel},
		{"DEBUG", zapcore.DebugLevel},
		{" warn ", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			level, err := logger.ParseLevel(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, level)
		})
	}

	_, err := logger.ParseLevel("verbose")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown log level")
}
