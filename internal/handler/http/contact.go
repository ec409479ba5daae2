package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/ContactsGo/internal/domain"
	"github.com/utafrali/ContactsGo/internal/service"
	"github.com/utafrali/ContactsGo/pkg/httputil"
	"github.com/utafrali/ContactsGo/pkg/middleware"
	"github.com/utafrali/ContactsGo/pkg/pagination"
	"github.com/utafrali/ContactsGo/pkg/validator"
)

// ContactHandler handles HTTP requests for contact endpoints. The owner is
// always the authenticated user.
type ContactHandler struct {
	service *service.ContactService
	logger  *slog.Logger
}

// NewContactHandler creates a new contact HTTP handler.
func NewContactHandler(svc *service.ContactService, logger *slog.Logger) *ContactHandler {
	return &ContactHandler{service: svc, logger: logger}
}

// Create handles POST /contacts
func (h *ContactHandler) Create(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := middleware.UserIDFromContext(r.Context())
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)

	var req ContactRequest
	if body, err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err, body)
		return
	}

	c, err := h.service.Create(r.Context(), ownerID, req.fields())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, toContactResponse(c))
}

// List handles GET /contacts?skip=&limit=
func (h *ContactHandler) List(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := middleware.UserIDFromContext(r.Context())

	page, err := pagination.FromRequest(r)
	if err != nil {
		httputil.WriteValidationError(w, err, nil)
		return
	}

	contacts, err := h.service.List(r.Context(), ownerID, page.Skip, page.Limit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toContactResponses(contacts))
}

// Birthdays handles GET /contacts/birthdays?days=
func (h *ContactHandler) Birthdays(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := middleware.UserIDFromContext(r.Context())

	days := domain.DefaultBirthdayWindow
	if raw := r.URL.Query().Get("days"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			httputil.WriteValidationError(w, validator.NewValidationError("days", "must be an integer"), nil)
			return
		}
		days = v
	}

	contacts, err := h.service.UpcomingBirthdays(r.Context(), ownerID, days)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toContactResponses(contacts))
}

// Get handles GET /contacts/{id}
func (h *ContactHandler) Get(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := middleware.UserIDFromContext(r.Context())
	id, ok := httputil.ParseID(w, "contact_id", chi.URLParam(r, "id"))
	if !ok {
		return
	}

	c, err := h.service.Get(r.Context(), ownerID, id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toContactResponse(c))
}

// Replace handles PUT /contacts/{id}
func (h *ContactHandler) Replace(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := middleware.UserIDFromContext(r.Context())
	id, ok := httputil.ParseID(w, "contact_id", chi.URLParam(r, "id"))
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)

	var req ContactRequest
	if body, err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err, body)
		return
	}

	c, err := h.service.UpdateFull(r.Context(), ownerID, id, req.fields())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toContactResponse(c))
}

// Patch handles PATCH /contacts/{id}
func (h *ContactHandler) Patch(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := middleware.UserIDFromContext(r.Context())
	id, ok := httputil.ParseID(w, "contact_id", chi.URLParam(r, "id"))
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)

	var req ContactPatchRequest
	body, err := validator.DecodeAndValidate(r, &req)
	if err != nil {
		httputil.WriteValidationError(w, err, body)
		return
	}
	patch, err := req.patch()
	if err != nil {
		httputil.WriteValidationError(w, err, body)
		return
	}

	c, err := h.service.UpdatePartial(r.Context(), ownerID, id, patch)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toContactResponse(c))
}

// Delete handles DELETE /contacts/{id}
func (h *ContactHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := middleware.UserIDFromContext(r.Context())
	id, ok := httputil.ParseID(w, "contact_id", chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), ownerID, id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
