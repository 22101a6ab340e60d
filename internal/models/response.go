package models

import "fmt"

// PanoramasListResponse is the envelope for list and search results.
type PanoramasListResponse struct {
	Success bool       `json:"success" msgpack:"success"`
	Data    []Panorama `json:"data" msgpack:"data"`
	Total   int        `json:"total" msgpack:"total"`
	Message string     `json:"message,omitempty" msgpack:"message,omitempty"`
}

// PanoramaDetailResponse is the envelope for a single panorama.
type PanoramaDetailResponse struct {
	Success bool     `json:"success"`
	Data    Panorama `json:"data"`
	Message string   `json:"message,omitempty"`
}

// APIErrorResponse is the rejection carried by a failed retrieval.
type APIErrorResponse struct {
	Success    bool   `json:"success"`
	Code       string `json:"error"`
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
}

// Retrieval error codes.
const (
	ErrCodeNotFound = "NOT_FOUND"
	ErrCodeUnknown  = "UNKNOWN_ERROR"
	ErrCodeHTTP     = "HTTP_ERROR"
)

// Error implements the error interface
func (e *APIErrorResponse) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.StatusCode, e.Message)
}
