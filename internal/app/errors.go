package app

import (
	"context"
	"errors"
	"net/http"

	"github.com/reprodlocal/reprod/internal/types"
)

// Message converts an error into the text shown to the user.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case types.IsInvalidInput(err):
		return "Invalid input: " + err.Error()
	case types.IsNotFound(err):
		return "Not found: " + err.Error()
	case types.IsConstraint(err):
		return "Conflict: " + err.Error()
	case types.IsIOFailure(err):
		return "Filesystem error: " + err.Error()
	case errors.Is(err, context.Canceled):
		return "Cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return "Timed out"
	default:
		return "Error: " + err.Error()
	}
}

// HTTPStatus maps an error to a response status code.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case types.IsInvalidInput(err):
		return http.StatusBadRequest
	case types.IsNotFound(err):
		return http.StatusNotFound
	case types.IsConstraint(err):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
