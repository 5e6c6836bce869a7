package types

import (
	"errors"
	"net/http"

	appErr "github.com/stackcanvas/engine/pkg/errors"
)

func FromAppError(err error) *APIError {
	if err == nil {
		return nil
	}
	var e *appErr.AppError
	if errors.As(err, &e) {
		return &APIError{Code: string(e.Code), Message: e.Message}
	}
	return &APIError{Code: string(appErr.CodeUnknown), Message: err.Error()}
}

// StatusFromError maps an error's code onto an HTTP status.
func StatusFromError(err error) int {
	var e *appErr.AppError
	if errors.As(err, &e) {
		switch e.Code {
		case appErr.CodeInvalid:
			return http.StatusBadRequest
		case appErr.CodeNotFound:
			return http.StatusNotFound
		case appErr.CodeConflict:
			return http.StatusConflict
		case appErr.CodeUnsupported:
			return http.StatusUnprocessableEntity
		case appErr.CodeUnavailable:
			return http.StatusServiceUnavailable
		}
	}
	return http.StatusInternalServerError
}
