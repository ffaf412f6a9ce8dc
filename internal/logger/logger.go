// Package logger provides the process-wide structured logger used by
// every pipeline stage. It wraps zerolog behind the same singleton shape
// the rest of this codebase expects (Init once, Get anywhere).
package logger

import (
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	defaultLogger zerolog.Logger
	once          sync.Once
)

// Init initializes the default logger writing JSON lines to os.Stdout. It
// ensures initialization happens exactly once.
func Init() {
	once.Do(func() {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		defaultLogger = zerolog.New(os.Stdout).With().Timestamp().Logger().Level(zerolog.DebugLevel)
		defaultLogger.Info().Msg("logger initialized")
	})
}

// Get returns the initialized default logger, initializing it on first
// call.
func Get() zerolog.Logger {
	Init()
	return defaultLogger
}

// SetLevel adjusts the minimum level of the default logger. Accepted
// values: "debug", "info", "warn", "error".
func SetLevel(level string) {
	Init()
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return
	}
	defaultLogger = defaultLogger.Level(lvl)
}

// Stage returns a logger with a "stage" field pre-populated, used by the
// orchestrator and each component to tag its output.
func Stage(name string) zerolog.Logger {
	return Get().With().Str("stage", name).Logger()
}

// Info logs an informational message using the default logger.
func Info(msg string) {
	Get().Info().Msg(msg)
}

// Warn logs a warning message using the default logger.
func Warn(msg string) {
	Get().Warn().Msg(msg)
}

// Error logs an error message using the default logger.
func Error(msg string, err error) {
	Get().Error().Err(err).Msg(msg)
}

// Debug logs a debug message using the default logger.
func Debug(msg string) {
	Get().Debug().Msg(msg)
}
