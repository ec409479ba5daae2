package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinels classify failures independently of any message. Every AppError
// wraps exactly one of them.
var (
	ErrNotFound       = errors.New("resource not found")
	ErrAlreadyExists  = errors.New("resource already exists")
	ErrInvalidInput   = errors.New("invalid input")
	ErrTooLarge       = errors.New("payload too large")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrInternal       = errors.New("internal error")
	ErrConflict       = errors.New("conflict")
	ErrRateLimited    = errors.New("rate limited")
	ErrServiceUnavail = errors.New("service unavailable")
)

// Class is the HTTP rendering of a sentinel: its status, machine code and
// the detail shown when no more specific message is available.
type Class struct {
	Status int
	Code   string
	Detail string
}

// Checked in order; the first sentinel err matches wins.
var classes = []struct {
	sentinel error
	class    Class
}{
	{ErrNotFound, Class{http.StatusNotFound, "NOT_FOUND", "Not found"}},
	{ErrAlreadyExists, Class{http.StatusConflict, "ALREADY_EXISTS", "resource already exists"}},
	{ErrConflict, Class{http.StatusConflict, "CONFLICT", "conflict"}},
	{ErrTooLarge, Class{http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "payload too large"}},
	{ErrInvalidInput, Class{http.StatusBadRequest, "INVALID_INPUT", "invalid input"}},
	{ErrUnauthorized, Class{http.StatusUnauthorized, "UNAUTHORIZED", "Could not validate credentials"}},
	{ErrForbidden, Class{http.StatusForbidden, "FORBIDDEN", "forbidden"}},
	{ErrRateLimited, Class{http.StatusTooManyRequests, "RATE_LIMITED", "Rate limit exceeded"}},
	{ErrServiceUnavail, Class{http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "service temporarily unavailable"}},
}

var internalClass = Class{http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error"}

// Classify maps any error to its HTTP class. Unclassified errors are 500.
func Classify(err error) Class {
	for _, c := range classes {
		if errors.Is(err, c.sentinel) {
			return c.class
		}
	}
	return internalClass
}

// AppError is a classified error with a client-facing message.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New builds an AppError whose status and code come from sentinel's class.
func New(sentinel error, message string) *AppError {
	c := Classify(sentinel)
	return &AppError{Code: c.Code, Message: message, Status: c.Status, Err: sentinel}
}

// Newf is New with a formatted message.
func Newf(sentinel error, format string, args ...any) *AppError {
	return New(sentinel, fmt.Sprintf(format, args...))
}

// Caused attaches the underlying cause while keeping the sentinel matchable.
func (e *AppError) Caused(cause error) *AppError {
	if cause == nil {
		return e
	}
	cp := *e
	cp.Err = errors.Join(e.Err, cause)
	return &cp
}

func Conflict(message string) *AppError { return New(ErrConflict, message) }

func Unauthorized(message string) *AppError { return New(ErrUnauthorized, message) }

func Forbidden(message string) *AppError { return New(ErrForbidden, message) }

// InvalidToken is the 400 for a verification or reset token that cannot be
// redeemed. The cause is kept for logs only.
func InvalidToken(cause error) *AppError {
	e := New(ErrInvalidInput, "Invalid or expired token").Caused(cause)
	e.Code = "INVALID_TOKEN"
	return e
}

// ServiceUnavailable reports a downstream dependency that is failing fast.
func ServiceUnavailable(message string, cause error) *AppError {
	return New(ErrServiceUnavail, message).Caused(cause)
}

// Internal hides cause behind a generic 500.
func Internal(cause error) *AppError {
	return &AppError{
		Code:    internalClass.Code,
		Message: internalClass.Detail,
		Status:  internalClass.Status,
		Err:     cause,
	}
}

func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// HTTPStatus returns the status an error renders with.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return Classify(err).Status
}
