package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/utafrali/ContactsGo/internal/ratelimit"
	"github.com/utafrali/ContactsGo/pkg/httputil"
	"github.com/utafrali/ContactsGo/pkg/middleware"
)

// quotaRetryAfter is advertised in Retry-After on quota rejections.
const quotaRetryAfter = 60

// Quota admits at most the limiter's budget of requests per caller. The caller
// is the authenticated user when there is one, the client IP otherwise. A
// limiter backend error lets the request through.
func Quota(limiter ratelimit.Limiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := quotaKey(r)

			allowed, err := limiter.Allow(r.Context(), key)
			if err != nil {
				logger.WarnContext(r.Context(), "quota check failed, allowing request",
					slog.String("key", key),
					slog.String("error", err.Error()),
				)
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				logger.InfoContext(r.Context(), "quota exceeded",
					slog.String("key", key),
					slog.String("path", r.URL.Path),
				)
				httputil.WriteRateLimited(w, quotaRetryAfter)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func quotaKey(r *http.Request) string {
	if id, ok := middleware.UserIDFromContext(r.Context()); ok {
		return "user:" + strconv.FormatInt(id, 10)
	}
	return "ip:" + middleware.ClientIP(r)
}
