package http

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/ContactsGo/internal/service"
	"github.com/utafrali/ContactsGo/pkg/httputil"
	"github.com/utafrali/ContactsGo/pkg/validator"
)

// maxJSONBody bounds every JSON request body.
const maxJSONBody = 1 << 20

// AuthHandler handles HTTP requests for auth endpoints.
type AuthHandler struct {
	service *service.AuthService
	logger  *slog.Logger
}

// NewAuthHandler creates a new auth HTTP handler.
func NewAuthHandler(svc *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{service: svc, logger: logger}
}

// Register handles POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)

	var req RegisterRequest
	if body, err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err, body)
		return
	}

	user, err := h.service.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, toUserResponse(user.Summary()))
}

// Token handles POST /auth/token. The body is an OAuth2 password-grant
// form with the email in username.
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := r.ParseForm(); err != nil {
		httputil.WriteValidationError(w, validator.NewValidationError("body", "invalid form body"), nil)
		return
	}

	form := TokenForm{
		Username: r.PostForm.Get("username"),
		Password: r.PostForm.Get("password"),
	}
	if err := validator.Validate(form); err != nil {
		httputil.WriteValidationError(w, err, nil)
		return
	}

	pair, err := h.service.Login(r.Context(), form.Username, form.Password)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toTokenResponse(pair))
}

// Refresh handles POST /auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)

	var req RefreshRequest
	if body, err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err, body)
		return
	}

	pair, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toTokenResponse(pair))
}

// Verify handles GET /auth/verify?token=
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if err := validator.Var("token", token, "required"); err != nil {
		httputil.WriteValidationError(w, err, nil)
		return
	}

	if _, err := h.service.VerifyEmail(r.Context(), token); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteMessage(w, http.StatusOK, "Email verified")
}

// RequestVerification handles POST /auth/verify/request
func (h *AuthHandler) RequestVerification(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)

	var req EmailRequest
	if body, err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err, body)
		return
	}

	if err := h.service.RequestVerification(r.Context(), req.Email); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteMessage(w, http.StatusAccepted, "If the account exists, a verification email has been sent")
}

// RequestPasswordReset handles POST /auth/reset/request
func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)

	var req EmailRequest
	if body, err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err, body)
		return
	}

	if err := h.service.RequestPasswordReset(r.Context(), req.Email); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteMessage(w, http.StatusAccepted, "If the account exists, a password reset email has been sent")
}

// ConfirmPasswordReset handles POST /auth/reset/confirm?token=&new_password=
func (h *AuthHandler) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	token := q.Get("token")
	if err := validator.Var("token", token, "required"); err != nil {
		httputil.WriteValidationError(w, err, nil)
		return
	}

	if err := h.service.ResetPassword(r.Context(), token, q.Get("new_password")); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteMessage(w, http.StatusOK, "Password updated")
}
