// Package log provides the structured logging interface used across stepml.
//
// Components never talk to a logging backend directly. They obtain a Logger
// from GetLogger or GetLoggerWithName and log with the attribute keys defined
// in attributes.go:
//
//	logger := log.GetLoggerWithName("workflow")
//	logger.Info("Dataset loaded",
//	    log.OperationKey, log.OperationLoad,
//	    log.SamplesKey, 100,
//	    log.FeaturesKey, 5,
//	)
//
// The default backend is zerolog (see logger.go); tests use TestLogger.

package log

import (
	"context"
)

// Logger defines a structured logging interface with key/value fields.
type Logger interface {
	// Debug logs a debug-level message with optional key/value fields.
	Debug(msg string, fields ...any)

	// Info logs an info-level message with optional key/value fields.
	Info(msg string, fields ...any)

	// Warn logs a warning-level message with optional key/value fields.
	Warn(msg string, fields ...any)

	// Error logs an error-level message. If the first field is an error it is
	// logged under the "error" key together with its stack trace.
	//
	//	logger.Error("Training failed", err, log.OperationKey, log.OperationFit)
	Error(msg string, fields ...any)

	// With returns a new Logger with the given fields pre-populated.
	With(fields ...any) Logger

	// Enabled reports whether the logger emits records at the given level.
	Enabled(ctx context.Context, level Level) bool
}

// Level represents a logging level, values are compatible with slog.Level.
type Level int

const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// LoggerProvider creates loggers. It allows swapping the backend in tests.
type LoggerProvider interface {
	// GetLogger returns the default logger instance.
	GetLogger() Logger

	// GetLoggerWithName returns a logger tagged with a component name.
	GetLoggerWithName(name string) Logger

	// SetLevel sets the minimum log level for all loggers created by this provider.
	SetLevel(level Level)
}
