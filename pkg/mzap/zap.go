// Package mzap adapts go.uber.org/zap to the mlog.Logger interface. Entries
// carry the OpenTelemetry trace/span id only when logged through a child
// logger obtained from WithTraceFields.
package mzap

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/walletledger/service/pkg/mlog"
)

// ZapLogger adapts a *zap.SugaredLogger to mlog.Logger.
type ZapLogger struct {
	Logger *zap.SugaredLogger
}

// NewZapLogger wraps a configured zap logger.
func NewZapLogger(l *zap.Logger) *ZapLogger {
	return &ZapLogger{Logger: l.Sugar()}
}

func (l *ZapLogger) Info(args ...any)                  { l.Logger.Info(args...) }
func (l *ZapLogger) Infof(format string, args ...any)   { l.Logger.Infof(format, args...) }
func (l *ZapLogger) Infoln(args ...any)                 { l.Logger.Info(args...) }
func (l *ZapLogger) Error(args ...any)                  { l.Logger.Error(args...) }
func (l *ZapLogger) Errorf(format string, args ...any)  { l.Logger.Errorf(format, args...) }
func (l *ZapLogger) Errorln(args ...any)                { l.Logger.Error(args...) }
func (l *ZapLogger) Warn(args ...any)                   { l.Logger.Warn(args...) }
func (l *ZapLogger) Warnf(format string, args ...any)   { l.Logger.Warnf(format, args...) }
func (l *ZapLogger) Warnln(args ...any)                 { l.Logger.Warn(args...) }
func (l *ZapLogger) Debug(args ...any)                  { l.Logger.Debug(args...) }
func (l *ZapLogger) Debugf(format string, args ...any)  { l.Logger.Debugf(format, args...) }
func (l *ZapLogger) Debugln(args ...any)                { l.Logger.Debug(args...) }
func (l *ZapLogger) Fatal(args ...any)                  { l.Logger.Fatal(args...) }
func (l *ZapLogger) Fatalf(format string, args ...any)  { l.Logger.Fatalf(format, args...) }
func (l *ZapLogger) Fatalln(args ...any)                { l.Logger.Fatal(args...) }

// WithFields returns a child logger with the given key/value pairs attached
// to every subsequent entry.
func (l *ZapLogger) WithFields(fields ...any) mlog.Logger {
	return &ZapLogger{Logger: l.Logger.With(fields...)}
}

// Sync flushes any buffered log entries.
func (l *ZapLogger) Sync() error {
	return l.Logger.Sync()
}

// WithTraceFields returns a child logger annotated with the trace id and
// span id of the active OpenTelemetry span in ctx, if any; every entry
// logged through the returned logger carries those correlation ids. When
// ctx has no valid span, l itself is returned.
func (l *ZapLogger) WithTraceFields(ctx context.Context) mlog.Logger {
	span := trace.SpanContextFromContext(ctx)
	if !span.IsValid() {
		return l
	}

	return l.WithFields("trace_id", span.TraceID().String(), "span_id", span.SpanID().String())
}
