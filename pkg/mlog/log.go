// Package mlog defines the logging interface carried through the service,
// decoupling callers from the concrete backend (zap in production, a plain
// stdlib logger in tests).
package mlog

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// Logger is the common interface for log implementations used across the
// service. Every component logs through this interface rather than a
// concrete backend.
type Logger interface {
	Info(args ...any)
	Infof(format string, args ...any)
	Infoln(args ...any)

	Error(args ...any)
	Errorf(format string, args ...any)
	Errorln(args ...any)

	Warn(args ...any)
	Warnf(format string, args ...any)
	Warnln(args ...any)

	Debug(args ...any)
	Debugf(format string, args ...any)
	Debugln(args ...any)

	Fatal(args ...any)
	Fatalf(format string, args ...any)
	Fatalln(args ...any)

	WithFields(fields ...any) Logger

	Sync() error
}

// LogLevel represents the severity threshold of the logger.
type LogLevel int8

const (
	// PanicLevel is the highest severity; logs then panics.
	PanicLevel LogLevel = iota
	// FatalLevel logs then exits the process.
	FatalLevel
	// ErrorLevel is for errors that should definitely be noted.
	ErrorLevel
	// WarnLevel is for non-critical entries that deserve attention.
	WarnLevel
	// InfoLevel is for general operational entries.
	InfoLevel
	// DebugLevel is verbose, development-only logging.
	DebugLevel
)

// ParseLevel takes a string level and returns a LogLevel constant.
func ParseLevel(lvl string) (LogLevel, error) {
	switch strings.ToLower(lvl) {
	case "fatal":
		return FatalLevel, nil
	case "error":
		return ErrorLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "info":
		return InfoLevel, nil
	case "debug":
		return DebugLevel, nil
	}

	var l LogLevel

	return l, fmt.Errorf("mlog: not a valid level: %q", lvl)
}

// GoLogger is a stdlib-backed Logger, used as a dependency-free fallback
// (primarily in tests) when the zap-backed logger isn't wired.
type GoLogger struct {
	fields []any
	Level  LogLevel
}

// NewGoLogger builds a GoLogger at the given level.
func NewGoLogger(level LogLevel) *GoLogger {
	return &GoLogger{Level: level}
}

// IsLevelEnabled reports whether level would be emitted by this logger.
func (l *GoLogger) IsLevelEnabled(level LogLevel) bool {
	return l.Level >= level
}

func (l *GoLogger) logLine(level LogLevel, args ...any) {
	if !l.IsLevelEnabled(level) {
		return
	}

	all := append(append([]any{}, l.fields...), args...)
	log.Print(all...)
}

func (l *GoLogger) logLinef(level LogLevel, format string, args ...any) {
	if !l.IsLevelEnabled(level) {
		return
	}

	all := append(append([]any{}, l.fields...), fmt.Sprintf(format, args...))
	log.Print(all...)
}

// Info logs at InfoLevel.
func (l *GoLogger) Info(args ...any) { l.logLine(InfoLevel, args...) }

// Infof logs at InfoLevel with formatting.
func (l *GoLogger) Infof(format string, args ...any) { l.logLinef(InfoLevel, format, args...) }

// Infoln logs at InfoLevel.
func (l *GoLogger) Infoln(args ...any) { l.logLine(InfoLevel, args...) }

// Error logs at ErrorLevel.
func (l *GoLogger) Error(args ...any) { l.logLine(ErrorLevel, args...) }

// Errorf logs at ErrorLevel with formatting.
func (l *GoLogger) Errorf(format string, args ...any) { l.logLinef(ErrorLevel, format, args...) }

// Errorln logs at ErrorLevel.
func (l *GoLogger) Errorln(args ...any) { l.logLine(ErrorLevel, args...) }

// Warn logs at WarnLevel.
func (l *GoLogger) Warn(args ...any) { l.logLine(WarnLevel, args...) }

// Warnf logs at WarnLevel with formatting.
func (l *GoLogger) Warnf(format string, args ...any) { l.logLinef(WarnLevel, format, args...) }

// Warnln logs at WarnLevel.
func (l *GoLogger) Warnln(args ...any) { l.logLine(WarnLevel, args...) }

// Debug logs at DebugLevel.
func (l *GoLogger) Debug(args ...any) { l.logLine(DebugLevel, args...) }

// Debugf logs at DebugLevel with formatting.
func (l *GoLogger) Debugf(format string, args ...any) { l.logLinef(DebugLevel, format, args...) }

// Debugln logs at DebugLevel.
func (l *GoLogger) Debugln(args ...any) { l.logLine(DebugLevel, args...) }

// Fatal logs then exits the process.
func (l *GoLogger) Fatal(args ...any) {
	all := append(append([]any{}, l.fields...), args...)
	log.Fatal(all...)
}

// Fatalf logs with formatting then exits the process.
func (l *GoLogger) Fatalf(format string, args ...any) {
	all := append(append([]any{}, l.fields...), fmt.Sprintf(format, args...))
	log.Fatal(all...)
}

// Fatalln logs then exits the process.
func (l *GoLogger) Fatalln(args ...any) {
	all := append(append([]any{}, l.fields...), args...)
	log.Fatalln(all...)
}

// WithFields returns a child logger with fields appended to every entry.
func (l *GoLogger) WithFields(fields ...any) Logger {
	return &GoLogger{
		fields: append(append([]any{}, l.fields...), fields...),
		Level:  l.Level,
	}
}

// Sync is a no-op for GoLogger; present to satisfy Logger.
func (l *GoLogger) Sync() error { return nil }

type loggerContextKey string

const loggerKey loggerContextKey = "mlog.logger"

// ContextWithLogger returns a context carrying logger.
func ContextWithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the logger stored in ctx, or a default GoLogger at
// InfoLevel if none was set.
func FromContext(ctx context.Context) Logger {
	if logger, ok := ctx.Value(loggerKey).(Logger); ok && logger != nil {
		return logger
	}

	return NewGoLogger(InfoLevel)
}
