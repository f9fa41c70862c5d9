package api

import (
	"errors"
	"net/http"

	"github.com/phrazzld/taskboss-api/internal/domain"
	"github.com/phrazzld/taskboss-api/internal/service"
	"github.com/phrazzld/taskboss-api/internal/service/auth"
	"github.com/phrazzld/taskboss-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status
// codes without leaking internal error types to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized

	case errors.Is(err, service.ErrTaskNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, service.ErrConflict),
		errors.Is(err, store.ErrVersionConflict),
		errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict

	case errors.Is(err, service.ErrNoPendingDeferral),
		errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrTaskTextEmpty):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrMissingToken):
		return "Invalid token"

	case errors.Is(err, auth.ErrInvalidCredentials):
		return "Invalid credentials"

	case errors.Is(err, service.ErrTaskNotFound),
		errors.Is(err, store.ErrNotFound):
		return "Task not found"

	case errors.Is(err, service.ErrConflict),
		errors.Is(err, store.ErrVersionConflict):
		return "Concurrent update conflict, retry the request"

	case errors.Is(err, service.ErrNoPendingDeferral):
		return "No deferral is awaiting a reason"

	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid task data"

	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidID):
		return "Invalid request"

	case errors.Is(err, domain.ErrTaskTextEmpty):
		return "Task text cannot be empty"

	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError writes the standard error response for err, using the
// safe message unless a more specific one is given.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, message string) {
	if message == "" {
		message = GetSafeErrorMessage(err)
	}
	respondError(w, r, MapErrorToStatusCode(err), message, err)
}
