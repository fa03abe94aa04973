// Package apperr classifies service errors so handlers can turn them into
// HTTP responses with one call.
package apperr

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"gochangi/internal/store"
	"gochangi/pkg/respond"
	"gochangi/pkg/storage"
)

// Kinds. Service errors wrap exactly one of these.
var (
	ErrInvalid         = errors.New("invalid")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = store.ErrNotFound
	ErrConflict        = errors.New("conflict")
	ErrUnprocessable   = errors.New("unprocessable")
	ErrTooManyRequests = errors.New("too many requests")
)

// Error carries a client-facing message and the kind it belongs to.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.Kind }

func New(kind error, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Invalid builds a validation error.
func Invalid(format string, args ...any) error {
	return &Error{Kind: ErrInvalid, Message: fmt.Sprintf(format, args...)}
}

func NotFound(what string) error {
	return &Error{Kind: ErrNotFound, Message: what + " not found"}
}

// Status maps err to an HTTP status code.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrInvalid), errors.Is(err, storage.ErrEmpty):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict), errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, storage.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, storage.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, ErrUnprocessable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrTooManyRequests):
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

// Write sends err as a JSON error body. Unclassified errors are logged and
// hidden behind a generic message.
func Write(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := Status(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed", "err", err)
		respond.Error(w, status, "internal server error")
		return
	}

	msg := err.Error()
	var appErr *Error
	switch {
	case errors.As(err, &appErr):
		msg = appErr.Message
	case errors.Is(err, store.ErrNotFound):
		msg = "not found"
	case errors.Is(err, store.ErrDuplicate):
		msg = "already exists"
	}
	respond.Error(w, status, msg)
}
