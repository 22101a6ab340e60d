// handlers_session.go - Overlay session lifecycle and viewer control handlers
package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/pano-hotspots/backend/internal/models"
	"github.com/pano-hotspots/backend/internal/overlay"
	"github.com/pano-hotspots/backend/internal/session"
)

// SessionHandlerImpl implements the SessionHandler interface
type SessionHandlerImpl struct {
	sessions SessionManager
}

// NewSessionHandler creates a new session handler instance
func NewSessionHandler(sessions SessionManager) SessionHandler {
	return &SessionHandlerImpl{sessions: sessions}
}

// sessionSummary describes a session to the client that owns it
type sessionSummary struct {
	SessionID          string                `json:"sessionId"`
	CreatedAt          time.Time             `json:"createdAt"`
	EditMode           bool                  `json:"editMode"`
	SelectedPanoramaID *int                  `json:"selectedPanoramaId"`
	Panoramas          []models.Panorama     `json:"panoramas"`
	Error              string                `json:"error,omitempty"`
	Viewer             *session.ViewerConfig `json:"viewer,omitempty"`
}

// viewerState is the live viewer readout
type viewerState struct {
	Status     overlay.Status   `json:"status"`
	Error      string           `json:"error,omitempty"`
	View       models.ViewState `json:"view"`
	Scale      float64          `json:"scale"`
	AutoRotate bool             `json:"autoRotate"`
}

// lookupSession resolves the :sessionId path parameter
func lookupSession(sessions SessionManager, c echo.Context) (*session.Session, error) {
	id := c.Param("sessionId")
	if id == "" {
		return nil, NewValidationError("sessionId")
	}
	s, ok := sessions.Get(id)
	if !ok {
		return nil, NewNotFoundError("session", id)
	}
	return s, nil
}

func summarize(s *session.Session) sessionSummary {
	sum := sessionSummary{
		SessionID: s.ID,
		CreatedAt: s.CreatedAt,
		EditMode:  s.EditMode(),
		Panoramas: s.Store().Panoramas(),
		Error:     s.LoadError(),
	}
	if p, ok := s.Store().Selected(); ok {
		id := p.ID
		sum.SelectedPanoramaID = &id
	}
	if cfg, err := s.ViewerConfig(); err == nil {
		sum.Viewer = &cfg
	}
	return sum
}

func readViewer(s *session.Session) viewerState {
	status, msg := s.Overlay().Status()
	return viewerState{
		Status:     status,
		Error:      msg,
		View:       s.Overlay().ViewState().Rounded(),
		Scale:      s.Overlay().Scale(),
		AutoRotate: s.AutoRotate(),
	}
}

// HandleCreateSession loads the collection into a new session
func (h *SessionHandlerImpl) HandleCreateSession(c echo.Context) error {
	s, err := h.sessions.Create(c.Request().Context())
	if err != nil {
		return FromSourceError(err)
	}
	return c.JSON(http.StatusCreated, summarize(s))
}

// HandleGetSession returns the session's collection and viewer
func (h *SessionHandlerImpl) HandleGetSession(c echo.Context) error {
	s, err := lookupSession(h.sessions, c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summarize(s))
}

// HandleDeleteSession closes a session
func (h *SessionHandlerImpl) HandleDeleteSession(c echo.Context) error {
	id := c.Param("sessionId")
	if !h.sessions.Delete(id) {
		return NewNotFoundError("session", id)
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleSessionKeepAlive updates the session's last accessed time
func (h *SessionHandlerImpl) HandleSessionKeepAlive(c echo.Context) error {
	id := c.Param("sessionId")
	if !h.sessions.TouchSession(id) {
		return NewNotFoundError("session", id)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"sessionId": id,
		"status":    "alive",
	})
}

type editModeRequest struct {
	EditMode *bool `json:"editMode"`
}

// HandleSetEditMode toggles edit mode, discarding any open draft
func (h *SessionHandlerImpl) HandleSetEditMode(c echo.Context) error {
	s, err := lookupSession(h.sessions, c)
	if err != nil {
		return err
	}
	var req editModeRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if req.EditMode == nil {
		return NewValidationError("editMode")
	}
	if err := s.SetEditMode(*req.EditMode); err != nil {
		return FromDomainError(err)
	}
	return c.JSON(http.StatusOK, summarize(s))
}

// HandleGetViewer returns the viewer status and view readout
func (h *SessionHandlerImpl) HandleGetViewer(c echo.Context) error {
	s, err := lookupSession(h.sessions, c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, readViewer(s))
}

// HandleResetView returns the viewer to pitch 0, yaw 0 and the default zoom
func (h *SessionHandlerImpl) HandleResetView(c echo.Context) error {
	s, err := lookupSession(h.sessions, c)
	if err != nil {
		return err
	}
	if _, err := s.ResetView(); err != nil {
		return FromDomainError(err)
	}
	return c.JSON(http.StatusOK, readViewer(s))
}

type autoRotateRequest struct {
	Enabled *bool `json:"enabled"`
}

// HandleSetAutoRotate starts or stops rotation
func (h *SessionHandlerImpl) HandleSetAutoRotate(c echo.Context) error {
	s, err := lookupSession(h.sessions, c)
	if err != nil {
		return err
	}
	var req autoRotateRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if req.Enabled == nil {
		return NewValidationError("enabled")
	}
	s.SetAutoRotate(*req.Enabled)
	return c.JSON(http.StatusOK, readViewer(s))
}

// HandleToggleFullscreen flips the viewer's fullscreen state
func (h *SessionHandlerImpl) HandleToggleFullscreen(c echo.Context) error {
	s, err := lookupSession(h.sessions, c)
	if err != nil {
		return err
	}
	on, err := s.ToggleFullscreen()
	if err != nil {
		return FromDomainError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"fullscreen": on})
}
