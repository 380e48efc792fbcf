// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package telemetry

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Cloud Logging field names used for trace correlation.
const (
	TraceKey        = "logging.googleapis.com/trace"
	SpanIDKey       = "logging.googleapis.com/spanId"
	TraceSampledKey = "logging.googleapis.com/trace_sampled"
)

// Logger writes one JSON line per record using the field names understood
// by Cloud Logging, so entries are joined to the trace that produced them.
type Logger struct {
	projectID string
	handler   slog.Handler
	diag      *zap.Logger
}

type loggerOptions struct {
	level slog.Leveler
	diag  *zap.Logger
}

// LoggerOption configures a [Logger].
type LoggerOption func(*loggerOptions)

// LogLevel sets the minimum level written. Defaults to [slog.LevelDebug].
func LogLevel(l slog.Leveler) LoggerOption {
	return func(lo *loggerOptions) {
		lo.level = l
	}
}

// LogDiagnostics sets the logger which receives sink failures.
func LogDiagnostics(l *zap.Logger) LoggerOption {
	return func(lo *loggerOptions) {
		lo.diag = l
	}
}

// NewLogger returns a [Logger] writing to w. The projectID is used to build
// the fully qualified trace name.
func NewLogger(w io.Writer, projectID string, opts ...LoggerOption) *Logger {
	lo := &loggerOptions{
		level: slog.LevelDebug,
		diag:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(lo)
	}

	return &Logger{
		projectID: projectID,
		handler: slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:       lo.level,
			ReplaceAttr: cloudLoggingAttr,
		}),
		diag: lo.diag,
	}
}

func cloudLoggingAttr(groups []string, a slog.Attr) slog.Attr {
	if len(groups) > 0 {
		return a
	}
	switch a.Key {
	case slog.LevelKey:
		lvl, ok := a.Value.Any().(slog.Level)
		if !ok {
			return a
		}
		return slog.String("severity", Severity(lvl))
	case slog.MessageKey:
		a.Key = "message"
	case slog.TimeKey:
		a.Key = "timestamp"
	}
	return a
}

// Severity maps a [slog.Level] onto a Cloud Logging severity name.
func Severity(lvl slog.Level) string {
	switch {
	case lvl < slog.LevelInfo:
		return "DEBUG"
	case lvl < slog.LevelWarn:
		return "INFO"
	case lvl < slog.LevelError:
		return "WARNING"
	default:
		return "ERROR"
	}
}

// ParseLevel parses level names such as "debug" or "WARNING".
func ParseLevel(s string) (slog.Level, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "warning") {
		return slog.LevelWarn, nil
	}
	var lvl slog.Level
	err := lvl.UnmarshalText([]byte(s))
	return lvl, err
}

// Emit writes a single record correlated with sc. The trace and span id
// fields are always present, carrying "undefined" when sc is the sentinel.
// Emit never fails: sink errors and panics are reported to the diagnostics
// logger and the record is dropped.
func (l *Logger) Emit(ctx context.Context, level slog.Level, msg string, sc SpanContext, attrs ...slog.Attr) {
	defer l.recover()

	if ctx == nil {
		ctx = context.Background()
	}
	if !l.handler.Enabled(ctx, level) {
		return
	}

	r := slog.NewRecord(time.Now(), level, msg, 0)
	r.AddAttrs(attrs...)
	r.AddAttrs(l.correlation(sc)...)

	err := l.handler.Handle(ctx, r)
	if err != nil {
		l.diag.Warn("failed to write log record", zap.Error(err))
	}
}

func (l *Logger) recover() {
	r := recover()
	if r == nil {
		return
	}
	l.diag.Error("recovered from panic while writing log record", zap.Any("panic", r))
}

func (l *Logger) correlation(sc SpanContext) []slog.Attr {
	return []slog.Attr{
		slog.String(TraceKey, "projects/"+l.projectID+"/traces/"+sc.TraceID),
		slog.String(SpanIDKey, sc.SpanID),
		slog.Bool(TraceSampledKey, sc.Sampled()),
	}
}

// Handler returns an [slog.Handler] which derives the [SpanContext] from the
// context of every record, so plain [slog.Logger] calls are correlated too.
func (l *Logger) Handler() slog.Handler {
	return &correlatingHandler{
		log:  l,
		next: l.handler,
	}
}

type correlatingHandler struct {
	log  *Logger
	next slog.Handler
}

// Enabled implements the [slog.Handler] interface.
func (h *correlatingHandler) Enabled(ctx context.Context, lvl slog.Level) bool {
	return h.next.Enabled(ctx, lvl)
}

// Handle implements the [slog.Handler] interface.
func (h *correlatingHandler) Handle(ctx context.Context, record slog.Record) error {
	r := record.Clone()
	r.AddAttrs(h.log.correlation(CurrentSpan(ctx))...)
	return h.next.Handle(ctx, r)
}

// WithAttrs implements the [slog.Handler] interface.
func (h *correlatingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &correlatingHandler{log: h.log, next: h.next.WithAttrs(attrs)}
}

// WithGroup implements the [slog.Handler] interface.
func (h *correlatingHandler) WithGroup(name string) slog.Handler {
	return &correlatingHandler{log: h.log, next: h.next.WithGroup(name)}
}

// NewDiagnosticLogger returns the JSON zap logger used for the pipeline's
// own failures. It is kept apart from [Logger] so export problems never
// recurse into the correlated log stream.
func NewDiagnosticLogger(w io.Writer) *zap.Logger {
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.Lock(zapcore.AddSync(w)),
		zap.InfoLevel,
	)
	return zap.New(core).Named("telemetry")
}
