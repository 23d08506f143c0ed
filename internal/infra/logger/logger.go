// Package logger provides a leveled, module-scoped logger backed by zerolog.
// It implements whatsmeow's waLog.Logger so protocol-library internals log
// through the same sink as the application.
package logger

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	waLog "go.mau.fi/whatsmeow/util/log"
)

// Logger implements waLog.Logger on top of zerolog.
type Logger struct {
	module string
	zl     zerolog.Logger
}

// New creates a root Logger writing to stderr at the given level.
func New(module string, level string) *Logger {
	zl := zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05.000",
	}).Level(parseLevel(level)).With().Timestamp().Logger()

	return &Logger{module: module, zl: zl}
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return zerolog.DebugLevel
	case "INFO":
		return zerolog.InfoLevel
	case "WARN", "WARNING":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Sub creates a sub-logger with a nested module name.
func (l *Logger) Sub(module string) waLog.Logger {
	newModule := module
	if l.module != "" {
		newModule = l.module + "/" + module
	}
	return &Logger{module: newModule, zl: l.zl}
}

// Debugf logs a debug message.
func (l *Logger) Debugf(msg string, args ...interface{}) {
	l.zl.Debug().Str("module", l.module).Msgf(msg, args...)
}

// Infof logs an info message.
func (l *Logger) Infof(msg string, args ...interface{}) {
	l.zl.Info().Str("module", l.module).Msgf(msg, args...)
}

// Warnf logs a warning message.
func (l *Logger) Warnf(msg string, args ...interface{}) {
	l.zl.Warn().Str("module", l.module).Msgf(msg, args...)
}

// Errorf logs an error message.
func (l *Logger) Errorf(msg string, args ...interface{}) {
	l.zl.Error().Str("module", l.module).Msgf(msg, args...)
}

// Ensure Logger implements waLog.Logger.
var _ waLog.Logger = (*Logger)(nil)
