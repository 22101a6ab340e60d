// errors.go - Structured error handling for API responses
package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pano-hotspots/backend/internal/editor"
	"github.com/pano-hotspots/backend/internal/models"
	"github.com/pano-hotspots/backend/internal/session"
	"github.com/pano-hotspots/backend/internal/store"
)

// ExposeErrorDetails controls whether 500 responses carry the cause. The
// server enables it at debug log level only.
var ExposeErrorDetails bool

// APIError represents a structured API error response
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewBadRequestError creates a 400 Bad Request error
func NewBadRequestError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusBadRequest,
		Code:    "BAD_REQUEST",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewValidationError creates a 400 validation error for a specific field
func NewValidationError(field string) *APIError {
	return &APIError{
		Status:  http.StatusBadRequest,
		Code:    "VALIDATION_ERROR",
		Message: fmt.Sprintf("validation failed for field: %s", field),
	}
}

// NewNotFoundError creates a 404 Not Found error
func NewNotFoundError(resource string, id string) *APIError {
	return &APIError{
		Status:  http.StatusNotFound,
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s not found: %s", resource, id),
	}
}

// NewConflictError creates a 409 Conflict error
func NewConflictError(message string) *APIError {
	return &APIError{
		Status:  http.StatusConflict,
		Code:    "CONFLICT",
		Message: message,
	}
}

// NewInternalError creates a 500 Internal Server Error
func NewInternalError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusInternalServerError,
		Code:    "INTERNAL_ERROR",
		Message: message,
	}
	if cause != nil && ExposeErrorDetails {
		err.Details = cause.Error()
	}
	return err
}

// NewServiceUnavailableError creates a 503 Service Unavailable error
func NewServiceUnavailableError(message string) *APIError {
	return &APIError{
		Status:  http.StatusServiceUnavailable,
		Code:    "SERVICE_UNAVAILABLE",
		Message: message,
	}
}

// FromSourceError carries a retrieval rejection over unchanged: its code
// and status become the response's.
func FromSourceError(err error) *APIError {
	var rej *models.APIErrorResponse
	if !errors.As(err, &rej) {
		return NewServiceUnavailableError("panorama source unavailable: " + err.Error())
	}
	status := rej.StatusCode
	if status < 400 || status > 599 {
		status = http.StatusBadGateway
	}
	return &APIError{Status: status, Code: rej.Code, Message: rej.Message}
}

// FromDomainError maps editor, store and session errors onto the envelope.
// Guard rejections leave state untouched and report as conflicts.
func FromDomainError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	switch {
	case errors.Is(err, store.ErrPanoramaNotFound),
		errors.Is(err, session.ErrHotspotNotFound):
		return &APIError{Status: http.StatusNotFound, Code: "NOT_FOUND", Message: err.Error()}
	case errors.Is(err, editor.ErrNoDraft),
		errors.Is(err, editor.ErrNoPanorama),
		errors.Is(err, editor.ErrTooFewPoints),
		errors.Is(err, editor.ErrNotConfirmed),
		errors.Is(err, editor.ErrDuplicateID),
		errors.Is(err, editor.ErrStaleDraft),
		errors.Is(err, editor.ErrNotPolygon),
		errors.Is(err, session.ErrNotEditMode),
		errors.Is(err, session.ErrNoViewer),
		errors.Is(err, session.ErrNoPanoramaLoaded):
		return NewConflictError(err.Error())
	case errors.Is(err, editor.ErrUnknownField),
		errors.Is(err, editor.ErrInvalidValue),
		errors.Is(err, editor.ErrPointIndex),
		errors.Is(err, models.ErrInvalidHotspot),
		errors.Is(err, models.ErrInvalidShape):
		return &APIError{Status: http.StatusBadRequest, Code: "VALIDATION_ERROR", Message: err.Error()}
	}
	var rej *models.APIErrorResponse
	if errors.As(err, &rej) {
		return FromSourceError(rej)
	}
	return NewInternalError("unexpected error", err)
}

// ErrorHandler middleware for Echo
// Usage: e.HTTPErrorHandler = api.ErrorHandler
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var apiErr *APIError

	switch e := err.(type) {
	case *APIError:
		apiErr = e
	case *echo.HTTPError:
		apiErr = &APIError{
			Status:  e.Code,
			Code:    "HTTP_ERROR",
			Message: fmt.Sprintf("%v", e.Message),
		}
	default:
		apiErr = &APIError{
			Status:  http.StatusInternalServerError,
			Code:    "UNKNOWN_ERROR",
			Message: "An unexpected error occurred",
		}
		if ExposeErrorDetails {
			apiErr.Details = err.Error()
		}
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(apiErr.Status)
		return
	}
	_ = c.JSON(apiErr.Status, apiErr)
}
