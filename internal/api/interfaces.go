// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/pano-hotspots/backend/internal/session"
)

// PanoramaHandler serves the panorama collection and rendered markup
type PanoramaHandler interface {
	HandleListPanoramas(c echo.Context) error
	HandleListPanoramasMsgpack(c echo.Context) error
	HandleSearchPanoramas(c echo.Context) error
	HandleGetPanorama(c echo.Context) error
	HandleSelectPanorama(c echo.Context) error
	HandleGetMarker(c echo.Context) error
	HandlePreviewShape(c echo.Context) error
}

// SessionHandler handles overlay session lifecycle and viewer controls
type SessionHandler interface {
	HandleCreateSession(c echo.Context) error
	HandleGetSession(c echo.Context) error
	HandleDeleteSession(c echo.Context) error
	HandleSessionKeepAlive(c echo.Context) error
	HandleSetEditMode(c echo.Context) error
	HandleGetViewer(c echo.Context) error
	HandleResetView(c echo.Context) error
	HandleSetAutoRotate(c echo.Context) error
	HandleToggleFullscreen(c echo.Context) error
}

// EditorHandler handles the per-session hotspot draft
type EditorHandler interface {
	HandleGetDraft(c echo.Context) error
	HandleStartCreate(c echo.Context) error
	HandleSelectHotspot(c echo.Context) error
	HandleUpdateFields(c echo.Context) error
	HandleUpdateShape(c echo.Context) error
	HandleChangeShapeKind(c echo.Context) error
	HandleAddPoint(c echo.Context) error
	HandleMovePoint(c echo.Context) error
	HandleRemovePoint(c echo.Context) error
	HandleSaveDraft(c echo.Context) error
	HandleDeleteDraft(c echo.Context) error
	HandleCancelDraft(c echo.Context) error
}

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// ViewerSocketHandler bridges a browser viewer to its session
type ViewerSocketHandler interface {
	HandleViewerSocket(c echo.Context) error
}

// SessionManager defines the interface for session management
// This allows mocking in tests
type SessionManager interface {
	Create(ctx context.Context) (*session.Session, error)
	Get(id string) (*session.Session, bool)
	TouchSession(id string) bool
	Delete(id string) bool
	Count() int
}
