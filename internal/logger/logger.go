package logger

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger struct {
	atomicLevel zap.AtomicLevel
	logger      *zap.Logger
	mu          sync.RWMutex
}

var (
	instance *Logger   //nolint:gochecknoglobals // Singleton pattern for logger
	once     sync.Once //nolint:gochecknoglobals // Singleton pattern for logger
)

// initLogger builds the singleton. Logs go to stderr so that pipelines and
// reports printed to stdout stay clean.
func initLogger() {
	instance = &Logger{
		atomicLevel: zap.NewAtomicLevelAt(zap.InfoLevel),
	}

	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000") // HH:MM:SS.mmm format
	encoderCfg.CallerKey = ""                                           // remove caller
	encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.AddSync(os.Stderr),
		instance.atomicLevel,
	)

	instance.logger = zap.New(core)
}

func GetLogger() *zap.Logger {
	once.Do(initLogger)

	instance.mu.RLock()
	defer instance.mu.RUnlock()
	return instance.logger
}

func SetLevel(level zapcore.Level) {
	once.Do(initLogger)

	instance.mu.Lock()
	defer instance.mu.Unlock()
	instance.atomicLevel.SetLevel(level)
}

// ParseLevel converts a configured level name into a zap level
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
}
