package http

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/ContactsGo/pkg/health"
	"github.com/utafrali/ContactsGo/pkg/httputil"
)

// Root handles GET /
func Root(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteMessage(w, http.StatusOK, "Contacts API")
}

// DatabaseHealth handles GET /api/healthchecker by running the registered
// postgres check.
func DatabaseHealth(h *health.Handler, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.Check(r.Context(), "postgres"); err != nil {
			logger.ErrorContext(r.Context(), "database health check failed", slog.String("error", err.Error()))
			httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Detail: "Error connecting to the database"})
			return
		}
		httputil.WriteMessage(w, http.StatusOK, "Database is healthy")
	}
}
