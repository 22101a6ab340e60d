package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/pano-hotspots/backend/internal/models"
)

// HTTPSource reads panoramas from a remote JSON API exposing /panoramas,
// /panoramas/:id and /panoramas/search?q=.
type HTTPSource struct {
	baseURL string
	client  *http.Client
}

// NewHTTPSource returns a source for the API rooted at baseURL.
func NewHTTPSource(baseURL string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (s *HTTPSource) GetAllPanoramas(ctx context.Context) ([]models.Panorama, error) {
	var resp models.PanoramasListResponse
	if err := s.get(ctx, "/panoramas", &resp); err != nil {
		return nil, Normalize(errors.Wrap(err, "error fetching panoramas"))
	}
	return resp.Data, nil
}

func (s *HTTPSource) GetPanoramaByID(ctx context.Context, id int) (models.Panorama, error) {
	var resp models.PanoramaDetailResponse
	if err := s.get(ctx, "/panoramas/"+strconv.Itoa(id), &resp); err != nil {
		var status *statusError
		if errors.As(err, &status) && status.code == http.StatusNotFound {
			return models.Panorama{}, NotFound(id)
		}
		return models.Panorama{}, Normalize(errors.Wrapf(err, "error fetching panorama %d", id))
	}
	return resp.Data, nil
}

func (s *HTTPSource) SearchPanoramas(ctx context.Context, query string) ([]models.Panorama, error) {
	var resp models.PanoramasListResponse
	if err := s.get(ctx, "/panoramas/search?q="+url.QueryEscape(query), &resp); err != nil {
		return nil, Normalize(errors.Wrap(err, "error searching panoramas"))
	}
	return resp.Data, nil
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("HTTP error! status: %d", e.code)
}

func (s *HTTPSource) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Pass through a structured error body when the API sends one.
		var apiErr models.APIErrorResponse
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Code != "" {
			if apiErr.StatusCode == 0 {
				apiErr.StatusCode = resp.StatusCode
			}
			return &apiErr
		}
		return &statusError{code: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "failed to decode response")
	}
	return nil
}
