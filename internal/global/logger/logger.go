package logger

import (
	"gitlab.com/icecc-go.net/internal/adapter/logging"
	"gitlab.com/icecc-go.net/internal/core/ports/primary"
)

// Logger is the process-wide logger. Binaries replace it once their
// configuration is known.
var Logger primary.Logger = logging.NewZapLogger()

// Set replaces the process-wide logger.
func Set(l primary.Logger) {
	Logger = l
}

func Info(msg string, args ...interface{}) {
	Logger.Info(msg, args...)
}

func Error(msg string, args ...interface{}) {
	Logger.Error(msg, args...)
}

func Debug(msg string, args ...interface{}) {
	Logger.Debug(msg, args...)
}

func Warn(msg string, args ...interface{}) {
	Logger.Warn(msg, args...)
}
