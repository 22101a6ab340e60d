package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pano-hotspots/backend/internal/models"
)

func TestDefaultSeed(t *testing.T) {
	s, err := NewFileSource("")
	require.NoError(t, err)

	all, err := s.GetAllPanoramas(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.GreaterOrEqual(t, all[0].FindHotspot("weapon"), 0)

	courtyard, err := s.GetPanoramaByID(context.Background(), 2)
	require.NoError(t, err)
	gate := courtyard.Hotspots[courtyard.FindHotspot("gate")]
	assert.Equal(t, models.Circle{Radius: models.FallbackRadius}, gate.Shape.Geometry)
	assert.Equal(t, models.DefaultPaint(), gate.Shape.Paint)
}

func TestFileSource_NotFound(t *testing.T) {
	s, err := NewFileSource("")
	require.NoError(t, err)

	_, err = s.GetPanoramaByID(context.Background(), 99)
	var apiErr *models.APIErrorResponse
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, models.ErrCodeNotFound, apiErr.Code)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "Panorama with ID 99 not found", apiErr.Message)
}

func TestFileSource_Search(t *testing.T) {
	s, err := NewFileSource("")
	require.NoError(t, err)

	tests := []struct {
		query string
		want  int
	}{
		{"ARMORY", 1},
		{"courtyard", 1},
		{"castle", 2},
		{"", 2},
		{"nothing matches", 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := s.SearchPanoramas(context.Background(), tt.query)
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}
}

func TestFileSource_ReturnsCopies(t *testing.T) {
	s, err := NewFileSource("")
	require.NoError(t, err)
	all, _ := s.GetAllPanoramas(context.Background())
	all[0].Hotspots[0].Label = "mutated"

	again, _ := s.GetAllPanoramas(context.Background())
	assert.NotEqual(t, "mutated", again[0].Hotspots[0].Label)
}

func TestNewFileSource_Errors(t *testing.T) {
	_, err := NewFileSource(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "dup.yaml")
	require.NoError(t, os.WriteFile(path, []byte("panoramas:\n  - id: 1\n  - id: 1\n"), 0644))
	_, err = NewFileSource(path)
	assert.ErrorContains(t, err, "duplicate panorama id 1")

	path = filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("panoramas:\n  - id: 1\n    hotspots:\n      - id: a\n        type: info\n        shape: {type: hexagon}\n"), 0644))
	_, err = NewFileSource(path)
	assert.ErrorIs(t, err, models.ErrUnknownShapeKind)
}

func TestFileSource_CancelledContext(t *testing.T) {
	s, err := NewFileSource("")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = s.GetAllPanoramas(ctx)
	var apiErr *models.APIErrorResponse
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, models.ErrCodeUnknown, apiErr.Code)
}

func TestNormalize(t *testing.T) {
	assert.Nil(t, Normalize(nil))

	apiErr := NotFound(3)
	assert.Same(t, apiErr, Normalize(fmt.Errorf("wrapped: %w", apiErr)))

	got := Normalize(fmt.Errorf("boom"))
	assert.Equal(t, models.ErrCodeUnknown, got.Code)
	assert.Equal(t, "boom", got.Message)
	assert.Equal(t, http.StatusInternalServerError, got.StatusCode)
}

func newAPIServer(t *testing.T) *httptest.Server {
	t.Helper()
	fs, err := NewFileSource("")
	require.NoError(t, err)
	all, _ := fs.GetAllPanoramas(context.Background())

	mux := http.NewServeMux()
	mux.HandleFunc("/api/panoramas", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.PanoramasListResponse{Success: true, Data: all, Total: len(all)})
	})
	mux.HandleFunc("/api/panoramas/search", func(w http.ResponseWriter, r *http.Request) {
		got := Filter(all, r.URL.Query().Get("q"))
		json.NewEncoder(w).Encode(models.PanoramasListResponse{Success: true, Data: got, Total: len(got)})
	})
	mux.HandleFunc("/api/panoramas/1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.PanoramaDetailResponse{Success: true, Data: all[0]})
	})
	mux.HandleFunc("/api/panoramas/7", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	mux.HandleFunc("/api/panoramas/8", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(models.APIErrorResponse{Code: "BAD_ID", Message: "bad id"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPSource(t *testing.T) {
	srv := newAPIServer(t)
	s := NewHTTPSource(srv.URL+"/api/", time.Second)
	ctx := context.Background()

	all, err := s.GetAllPanoramas(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	p, err := s.GetPanoramaByID(ctx, 1)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, p.FindHotspot("weapon"), 0)

	found, err := s.SearchPanoramas(ctx, "court yard")
	require.NoError(t, err)
	assert.Empty(t, found)
	found, err = s.SearchPanoramas(ctx, "Courtyard")
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

func TestHTTPSource_Errors(t *testing.T) {
	srv := newAPIServer(t)
	s := NewHTTPSource(srv.URL+"/api", time.Second)
	ctx := context.Background()

	var apiErr *models.APIErrorResponse

	_, err := s.GetPanoramaByID(ctx, 404)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, models.ErrCodeNotFound, apiErr.Code)

	_, err = s.GetPanoramaByID(ctx, 7)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, models.ErrCodeUnknown, apiErr.Code)
	assert.Contains(t, apiErr.Message, "HTTP error! status: 503")

	_, err = s.GetPanoramaByID(ctx, 8)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "BAD_ID", apiErr.Code)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)

	_, err = NewHTTPSource("http://127.0.0.1:1", time.Second).GetAllPanoramas(ctx)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, models.ErrCodeUnknown, apiErr.Code)
}
