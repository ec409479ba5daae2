package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/ContactsGo/pkg/logger"
)

const (
	correlationHeader   = "X-Correlation-ID"
	maxCorrelationIDLen = 128
)

// RequestLogging tags each request with a correlation ID, echoed in the
// response, and writes one access log line when it completes. Successful
// requests to quietPaths log at debug so probes and scrapes stay out of the
// default output.
func RequestLogging(l *slog.Logger, quietPaths ...string) func(http.Handler) http.Handler {
	quiet := make(map[string]struct{}, len(quietPaths))
	for _, p := range quietPaths {
		quiet[p] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			id := correlationID(r.Header.Get(correlationHeader))
			w.Header().Set(correlationHeader, id)

			ctx := logger.WithCorrelationID(r.Context(), id)
			r = r.WithContext(ctx)
			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r)

			_, isQuiet := quiet[r.URL.Path]
			l.LogAttrs(ctx, accessLevel(rec.status, isQuiet), "http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.status),
				slog.Int("bytes", rec.bytes),
				slog.Duration("duration", time.Since(start)),
				slog.String("remote_addr", ClientIP(r)),
				slog.String("user_agent", r.UserAgent()),
				slog.String("correlation_id", id),
			)
		})
	}
}

func accessLevel(status int, quiet bool) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	case quiet:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// correlationID keeps an inbound id when it is short printable ASCII and
// mints a new one otherwise, so a client cannot inject arbitrary text into
// logs and response headers.
func correlationID(inbound string) string {
	if inbound == "" || len(inbound) > maxCorrelationIDLen {
		return uuid.NewString()
	}
	for i := 0; i < len(inbound); i++ {
		if c := inbound[i]; c < 0x21 || c > 0x7e {
			return uuid.NewString()
		}
	}
	return inbound
}
