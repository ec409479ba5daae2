package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

type ctxKey int

const (
	metaKey ctxKey = iota
	loggerKey
)

// meta is the per-request identity copied into every log line.
type meta struct {
	correlationID string
	userID        int64
}

const redacted = "[REDACTED]"

// Attribute keys whose values never reach the log sink.
var sensitiveKeys = map[string]struct{}{
	"password":      {},
	"new_password":  {},
	"token":         {},
	"access_token":  {},
	"refresh_token": {},
	"authorization": {},
	"jwt_secret":    {},
}

// New returns a JSON logger on stdout tagged with serviceName.
func New(serviceName, level string) *slog.Logger {
	return NewWithWriter(serviceName, level, os.Stdout)
}

// NewWithWriter is New with an explicit sink. Source locations are added at
// debug level; credential-bearing attributes are masked at every level.
func NewWithWriter(serviceName, level string, w io.Writer) *slog.Logger {
	lvl := ParseLevel(level)
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       lvl,
		AddSource:   lvl == slog.LevelDebug,
		ReplaceAttr: redact,
	})
	return slog.New(h).With(slog.String("service", serviceName))
}

func redact(_ []string, a slog.Attr) slog.Attr {
	if _, ok := sensitiveKeys[strings.ToLower(a.Key)]; ok {
		return slog.String(a.Key, redacted)
	}
	return a
}

// Nop discards everything. Tests use it where output is irrelevant.
func Nop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// ParseLevel maps LOG_LEVEL to a slog level; unknown values mean info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func metaFrom(ctx context.Context) meta {
	m, _ := ctx.Value(metaKey).(meta)
	return m
}

func WithCorrelationID(ctx context.Context, id string) context.Context {
	m := metaFrom(ctx)
	m.correlationID = id
	return context.WithValue(ctx, metaKey, m)
}

func CorrelationIDFromContext(ctx context.Context) string {
	return metaFrom(ctx).correlationID
}

// WithUserID records the authenticated caller. Only the auth middleware
// should set it.
func WithUserID(ctx context.Context, id int64) context.Context {
	m := metaFrom(ctx)
	m.userID = id
	return context.WithValue(ctx, metaKey, m)
}

// UserIDFromContext returns zero for anonymous requests.
func UserIDFromContext(ctx context.Context) int64 {
	return metaFrom(ctx).userID
}

// NewContext stores the request-scoped logger.
func NewContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext returns the request-scoped logger, or slog.Default outside a
// request.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// WithContext derives a logger carrying whichever of correlation_id,
// user_id, trace_id and span_id ctx holds.
func WithContext(ctx context.Context, l *slog.Logger) *slog.Logger {
	var attrs []any
	m := metaFrom(ctx)
	if m.correlationID != "" {
		attrs = append(attrs, slog.String("correlation_id", m.correlationID))
	}
	if m.userID != 0 {
		attrs = append(attrs, slog.Int64("user_id", m.userID))
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		attrs = append(attrs,
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	if len(attrs) == 0 {
		return l
	}
	return l.With(attrs...)
}
