package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/ContactsGo/internal/ratelimit"
	"github.com/utafrali/ContactsGo/internal/service"
	"github.com/utafrali/ContactsGo/pkg/health"
	"github.com/utafrali/ContactsGo/pkg/middleware"
)

const serviceName = "contacts"

// Deps carries everything the router needs.
type Deps struct {
	Auth     *service.AuthService
	Users    *service.UserService
	Contacts *service.ContactService

	// Limiter enforces the per-caller write quota.
	Limiter ratelimit.Limiter
	// FloodGuard sheds per-IP bursts on /auth. Optional.
	FloodGuard *middleware.FloodGuard

	Health     *health.Handler
	CORS       middleware.CORSConfig
	PprofCIDRs []string
	// TrustedProxies may set X-Forwarded-For; everyone else is keyed by
	// socket address for quota and flood decisions.
	TrustedProxies []string
	// Avatars serves uploaded files under AvatarsPath when the object store
	// does not serve them itself. Optional.
	Avatars http.Handler
	Logger  *slog.Logger
}

// AvatarsPath is where locally stored avatars are served.
const AvatarsPath = "/avatars"

// NewRouter creates a chi router with all contacts service routes registered.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	logger := d.Logger

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.TrustedProxies(d.TrustedProxies, logger))
	r.Use(middleware.RequestLogging(logger, "/health/live", "/health/ready", "/metrics"))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics(serviceName))
	r.Use(middleware.CORS(d.CORS))

	r.Get("/", Root)
	r.Get("/api/healthchecker", DatabaseHealth(d.Health, logger))
	r.Get("/health/live", d.Health.LivenessHandler())
	r.Get("/health/ready", d.Health.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())
	middleware.RegisterPprof(r, d.PprofCIDRs, logger)
	if d.Avatars != nil {
		r.Get(AvatarsPath+"/*", http.StripPrefix(AvatarsPath, d.Avatars).ServeHTTP)
	}

	quota := Quota(d.Limiter, logger)
	authenticated := middleware.Auth(d.Auth.Authenticate, logger)

	authHandler := NewAuthHandler(d.Auth, logger)
	r.Route("/auth", func(r chi.Router) {
		r.Use(middleware.NoStore)
		if d.FloodGuard != nil {
			r.Use(d.FloodGuard.Middleware(logger))
		}

		r.Get("/verify", authHandler.Verify)
		r.Post("/reset/confirm", authHandler.ConfirmPasswordReset)

		r.Group(func(r chi.Router) {
			r.Use(quota)
			r.Post("/register", authHandler.Register)
			r.Post("/token", authHandler.Token)
			r.Post("/refresh", authHandler.Refresh)
			r.Post("/verify/request", authHandler.RequestVerification)
			r.Post("/reset/request", authHandler.RequestPasswordReset)
		})
	})

	userHandler := NewUserHandler(d.Users, logger)
	r.Route("/users", func(r chi.Router) {
		r.Use(middleware.NoStore)
		r.Use(authenticated)

		r.Get("/me", userHandler.Me)
		r.With(quota).Post("/me/avatar", userHandler.UploadAvatar)
	})

	contactHandler := NewContactHandler(d.Contacts, logger)
	r.Route("/contacts", func(r chi.Router) {
		r.Use(middleware.NoStore)
		r.Use(authenticated)

		r.Get("/", contactHandler.List)
		r.Get("/birthdays", contactHandler.Birthdays)
		r.Get("/{id}", contactHandler.Get)

		r.Group(func(r chi.Router) {
			r.Use(quota)
			r.Post("/", contactHandler.Create)
			r.Put("/{id}", contactHandler.Replace)
			r.Patch("/{id}", contactHandler.Patch)
			r.Delete("/{id}", contactHandler.Delete)
		})
	})

	return r
}
