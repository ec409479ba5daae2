package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	apperrors "github.com/utafrali/ContactsGo/pkg/errors"
	"github.com/utafrali/ContactsGo/pkg/logger"
	"github.com/utafrali/ContactsGo/pkg/validator"
)

// Messages shared by every service that writes auth and quota rejections.
const (
	MsgCouldNotValidate  = "Could not validate credentials"
	MsgRateLimitExceeded = "Rate limit exceeded"
	msgValidationError   = "Validation Error"
	msgInternalError     = "Internal server error"
)

// ErrorResponse is the body of every non-validation error.
type ErrorResponse struct {
	Detail    string `json:"detail"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// ValidationErrorResponse is the 422 body. Body echoes the request payload:
// raw JSON when it parsed, the raw text otherwise, null when empty.
type ValidationErrorResponse struct {
	Message string                 `json:"message"`
	Errors  []validator.FieldError `json:"errors"`
	Body    any                    `json:"body"`
}

// MessageResponse is a plain acknowledgement body.
type MessageResponse struct {
	Message string `json:"message"`
}

// WriteJSON writes a JSON response with the given status code.
// If encoding fails, the error is logged but headers are already sent so nothing can be done.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteMessage writes {"message": msg}.
func WriteMessage(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, MessageResponse{Message: msg})
}

// WriteError writes a standardized error response based on the error type.
// Validation errors get the 422 envelope, AppErrors their own status and
// message, sentinels a generic message for their class. Internal errors are
// logged and never leak detail. It prefers the request-scoped logger from
// context (set by the RequestLogger middleware) over the fallback logger.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	l := logger.FromContext(r.Context())
	if l == slog.Default() && fallback != nil {
		l = fallback
	}

	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		WriteValidationError(w, err, nil)
		return
	}

	requestID := logger.CorrelationIDFromContext(r.Context())

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Status >= http.StatusInternalServerError {
			l.ErrorContext(r.Context(), "request failed",
				slog.String("code", appErr.Code),
				slog.String("error", appErr.Error()),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
			)
		}
		if appErr.Status == http.StatusUnauthorized {
			w.Header().Set("WWW-Authenticate", "Bearer")
		}
		detail := appErr.Message
		if appErr.Status == http.StatusInternalServerError {
			detail = msgInternalError
		}
		WriteJSON(w, appErr.Status, ErrorResponse{Detail: detail, Code: appErr.Code, RequestID: requestID})
		return
	}

	// Bare sentinels get their class's generic detail; only input errors
	// carry their own text to the client.
	class := apperrors.Classify(err)
	switch {
	case class.Status == http.StatusUnauthorized:
		WriteUnauthorized(w, MsgCouldNotValidate)
		return
	case class.Status == http.StatusTooManyRequests:
		WriteRateLimited(w, 0)
		return
	case errors.Is(err, apperrors.ErrInvalidInput):
		class.Detail = err.Error()
	case class.Status >= http.StatusInternalServerError:
		l.ErrorContext(r.Context(), "internal error",
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
		if class.Status == http.StatusInternalServerError {
			class.Detail = msgInternalError
		}
	}

	WriteJSON(w, class.Status, ErrorResponse{Detail: class.Detail, Code: class.Code, RequestID: requestID})
}

// WriteValidationError writes the 422 validation envelope. Errors that are
// not a *validator.ValidationError are reported against the "body" field.
func WriteValidationError(w http.ResponseWriter, err error, body []byte) {
	resp := ValidationErrorResponse{Message: msgValidationError, Body: echoBody(body)}

	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		resp.Errors = valErr.Errors
	} else {
		resp.Errors = []validator.FieldError{{Field: "body", Message: err.Error()}}
	}

	WriteJSON(w, http.StatusUnprocessableEntity, resp)
}

func echoBody(body []byte) any {
	switch {
	case len(body) == 0:
		return nil
	case json.Valid(body):
		return json.RawMessage(body)
	default:
		return string(body)
	}
}

// WriteUnauthorized writes a 401 with the Bearer challenge header.
func WriteUnauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	WriteJSON(w, http.StatusUnauthorized, ErrorResponse{Detail: detail})
}

// WriteRateLimited writes the 429 quota rejection. retryAfterSeconds is
// advertised in Retry-After when positive.
func WriteRateLimited(w http.ResponseWriter, retryAfterSeconds int) {
	if retryAfterSeconds > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	}
	WriteJSON(w, http.StatusTooManyRequests, ErrorResponse{Detail: MsgRateLimitExceeded})
}

// ParseID parses a positive integer path parameter. On failure it writes a
// 422 validation response naming the parameter and returns false, signaling
// the caller to return early.
func ParseID(w http.ResponseWriter, name, param string) (int64, bool) {
	id, err := strconv.ParseInt(param, 10, 64)
	if err != nil || id <= 0 {
		WriteValidationError(w, validator.NewValidationError(name, "must be a positive integer"), nil)
		return 0, false
	}
	return id, true
}
