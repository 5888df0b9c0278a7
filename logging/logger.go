// Package logging provides a tiny abstraction over slog so the engine can
// depend on a minimal interface while callers plug in any structured logger.
package logging

import (
	"log/slog"
	"time"
)

// Logger is the minimal structured logging interface used across the engine.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// SlogAdapter wraps *slog.Logger to implement the Logger interface.
type SlogAdapter struct {
	*slog.Logger
}

// Debug logs a debug message.
func (s *SlogAdapter) Debug(msg string, args ...any) { s.Logger.Debug(msg, args...) }

// Info logs an informational message.
func (s *SlogAdapter) Info(msg string, args ...any) { s.Logger.Info(msg, args...) }

// Warn logs a warning message.
func (s *SlogAdapter) Warn(msg string, args ...any) { s.Logger.Warn(msg, args...) }

// Error logs an error message.
func (s *SlogAdapter) Error(msg string, args ...any) { s.Logger.Error(msg, args...) }

// NewSlogAdapter creates a Logger from *slog.Logger.
func NewSlogAdapter(logger *slog.Logger) Logger {
	return &SlogAdapter{Logger: logger}
}

// NewDefaultSlogLogger creates a Logger using slog.Default().
func NewDefaultSlogLogger() Logger {
	return NewSlogAdapter(slog.Default())
}

// NoOpLogger discards all log output. Used as the default so library users
// opt in to logging explicitly.
type NoOpLogger struct{}

// NewNoOpLogger creates a Logger that discards everything.
func NewNoOpLogger() Logger { return NoOpLogger{} }

// Debug implements Logger.
func (NoOpLogger) Debug(string, ...any) {}

// Info implements Logger.
func (NoOpLogger) Info(string, ...any) {}

// Warn implements Logger.
func (NoOpLogger) Warn(string, ...any) {}

// Error implements Logger.
func (NoOpLogger) Error(string, ...any) {}

// ToolCall logs one tool invocation outcome with a uniform attribute set.
func ToolCall(l Logger, toolName string, dur time.Duration, err error) {
	if err != nil {
		l.Error("tool execution failed", "tool_name", toolName, "duration", dur, "error", err.Error())
		return
	}
	l.Info("tool execution completed", "tool_name", toolName, "duration", dur)
}
