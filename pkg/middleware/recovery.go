package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	apperrors "github.com/utafrali/ContactsGo/pkg/errors"
	"github.com/utafrali/ContactsGo/pkg/httputil"
)

var panicsRecovered = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "http_server",
	Name:      "panics_recovered_total",
	Help:      "Handler panics turned into 500 responses.",
})

// Recovery turns a handler panic into a logged 500. When the handler had
// already started its response the connection is aborted instead, since a
// second status line cannot be sent.
func Recovery(l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := newStatusRecorder(w)
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if err, ok := v.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(v)
				}

				panicsRecovered.Inc()
				l.ErrorContext(r.Context(), "panic recovered",
					slog.Any("panic", v),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Bool("response_started", rec.wroteHeader),
					slog.String("stack", string(debug.Stack())),
				)
				if rec.wroteHeader {
					panic(http.ErrAbortHandler)
				}
				c := apperrors.Classify(apperrors.ErrInternal)
				httputil.WriteJSON(rec, c.Status, httputil.ErrorResponse{Detail: c.Detail, Code: c.Code})
			}()

			next.ServeHTTP(rec, r)
		})
	}
}
