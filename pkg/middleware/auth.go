package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/utafrali/ContactsGo/pkg/httputil"
	"github.com/utafrali/ContactsGo/pkg/logger"
)

type contextKeyType string

const principalKey contextKeyType = "principal"

// Principal is the authenticated caller resolved from a bearer token.
type Principal struct {
	UserID int64
	Email  string
}

// Authenticator resolves a raw bearer token into a Principal. Any error
// rejects the request.
type Authenticator func(ctx context.Context, token string) (*Principal, error)

// Auth rejects requests without a valid bearer token. Every failure gets the
// same 401 response with a Bearer challenge; the reason is only logged.
func Auth(authenticate Authenticator, l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				l.DebugContext(r.Context(), "missing or malformed authorization header",
					slog.String("path", r.URL.Path),
				)
				httputil.WriteUnauthorized(w, httputil.MsgCouldNotValidate)
				return
			}

			principal, err := authenticate(r.Context(), token)
			if err != nil {
				l.DebugContext(r.Context(), "credential validation failed",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				httputil.WriteUnauthorized(w, httputil.MsgCouldNotValidate)
				return
			}

			ctx := context.WithValue(r.Context(), principalKey, principal)
			ctx = logger.WithUserID(ctx, principal.UserID)
			// Refresh the request-scoped logger so downstream logs carry user_id.
			ctx = logger.NewContext(ctx, logger.FromContext(ctx).With(slog.Int64("user_id", principal.UserID)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) (string, bool) {
	scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// PrincipalFromContext returns the principal stored by Auth.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey).(*Principal)
	return p, ok && p != nil
}

// UserIDFromContext returns the authenticated user id, or false when the
// request is anonymous.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	if p, ok := PrincipalFromContext(ctx); ok {
		return p.UserID, true
	}
	return 0, false
}

// WithPrincipal stores p in ctx. Handlers tests use it to skip Auth.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}
