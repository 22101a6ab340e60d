// Package source retrieves panoramas and their hotspots. Implementations are
// injected into the server; nothing here is process-global.
package source

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/pano-hotspots/backend/internal/models"
)

// PanoramaSource is the data-retrieval collaborator. Failures are returned
// as *models.APIErrorResponse.
type PanoramaSource interface {
	GetAllPanoramas(ctx context.Context) ([]models.Panorama, error)
	GetPanoramaByID(ctx context.Context, id int) (models.Panorama, error)
	SearchPanoramas(ctx context.Context, query string) ([]models.Panorama, error)
}

// NotFound returns the error reported for a missing panorama.
func NotFound(id int) *models.APIErrorResponse {
	return &models.APIErrorResponse{
		Code:       models.ErrCodeNotFound,
		Message:    "Panorama with ID " + strconv.Itoa(id) + " not found",
		StatusCode: http.StatusNotFound,
	}
}

// Normalize converts any error into an API error response. Errors that
// already are one, at any depth of wrapping, pass through unchanged.
func Normalize(err error) *models.APIErrorResponse {
	if err == nil {
		return nil
	}
	var apiErr *models.APIErrorResponse
	if errors.As(err, &apiErr) {
		return apiErr
	}
	msg := err.Error()
	if msg == "" {
		msg = "An unknown error occurred"
	}
	return &models.APIErrorResponse{
		Code:       models.ErrCodeUnknown,
		Message:    msg,
		StatusCode: http.StatusInternalServerError,
	}
}

// Matches reports whether a panorama's title or description contains query,
// ignoring case.
func Matches(p models.Panorama, query string) bool {
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(p.Title), q) ||
		strings.Contains(strings.ToLower(p.Description), q)
}

// Filter returns the panoramas matching query, in order.
func Filter(panoramas []models.Panorama, query string) []models.Panorama {
	out := make([]models.Panorama, 0, len(panoramas))
	for _, p := range panoramas {
		if Matches(p, query) {
			out = append(out, p.Clone())
		}
	}
	return out
}
