// handlers_panorama.go - Panorama collection and markup handlers
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/pano-hotspots/backend/internal/models"
	"github.com/pano-hotspots/backend/internal/overlay"
	"github.com/pano-hotspots/backend/internal/render"
	"github.com/pano-hotspots/backend/internal/session"
	"github.com/pano-hotspots/backend/internal/source"
)

// PanoramaHandlerImpl implements the PanoramaHandler interface
type PanoramaHandlerImpl struct {
	source   source.PanoramaSource
	sessions SessionManager
}

// NewPanoramaHandler creates a new panorama handler instance
func NewPanoramaHandler(src source.PanoramaSource, sessions SessionManager) PanoramaHandler {
	return &PanoramaHandlerImpl{source: src, sessions: sessions}
}

// optionalSession returns the session named by the sessionId query
// parameter, or nil when none is given.
func (h *PanoramaHandlerImpl) optionalSession(c echo.Context) (*session.Session, error) {
	id := c.QueryParam("sessionId")
	if id == "" {
		return nil, nil
	}
	s, ok := h.sessions.Get(id)
	if !ok {
		return nil, NewNotFoundError("session", id)
	}
	return s, nil
}

func panoramaID(c echo.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return 0, NewValidationError("id")
	}
	return id, nil
}

// panoramas returns the session's edited collection when a session is named,
// or the source's collection otherwise.
func (h *PanoramaHandlerImpl) panoramas(c echo.Context) ([]models.Panorama, error) {
	s, err := h.optionalSession(c)
	if err != nil {
		return nil, err
	}
	if s != nil {
		return s.Store().Panoramas(), nil
	}
	list, err := h.source.GetAllPanoramas(c.Request().Context())
	if err != nil {
		return nil, FromSourceError(source.Normalize(err))
	}
	return list, nil
}

func (h *PanoramaHandlerImpl) panorama(c echo.Context, id int) (models.Panorama, error) {
	s, err := h.optionalSession(c)
	if err != nil {
		return models.Panorama{}, err
	}
	if s != nil {
		p, err := s.Store().Panorama(id)
		if err != nil {
			return models.Panorama{}, FromSourceError(source.NotFound(id))
		}
		return p, nil
	}
	p, err := h.source.GetPanoramaByID(c.Request().Context(), id)
	if err != nil {
		return models.Panorama{}, FromSourceError(source.Normalize(err))
	}
	return p, nil
}

// HandleListPanoramas returns every panorama
func (h *PanoramaHandlerImpl) HandleListPanoramas(c echo.Context) error {
	list, err := h.panoramas(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, models.PanoramasListResponse{Success: true, Data: list, Total: len(list)})
}

// HandleListPanoramasMsgpack returns the listing msgpack-encoded
func (h *PanoramaHandlerImpl) HandleListPanoramasMsgpack(c echo.Context) error {
	list, err := h.panoramas(c)
	if err != nil {
		return err
	}
	data, err := msgpack.Marshal(models.PanoramasListResponse{Success: true, Data: list, Total: len(list)})
	if err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}
	return c.Blob(http.StatusOK, "application/msgpack", data)
}

// HandleSearchPanoramas matches q against titles and descriptions
func (h *PanoramaHandlerImpl) HandleSearchPanoramas(c echo.Context) error {
	q := c.QueryParam("q")
	s, err := h.optionalSession(c)
	if err != nil {
		return err
	}
	var list []models.Panorama
	if s != nil {
		list = source.Filter(s.Store().Panoramas(), q)
	} else {
		list, err = h.source.SearchPanoramas(c.Request().Context(), q)
		if err != nil {
			return FromSourceError(source.Normalize(err))
		}
	}
	return c.JSON(http.StatusOK, models.PanoramasListResponse{Success: true, Data: list, Total: len(list)})
}

// HandleGetPanorama returns one panorama
func (h *PanoramaHandlerImpl) HandleGetPanorama(c echo.Context) error {
	id, err := panoramaID(c)
	if err != nil {
		return err
	}
	p, err := h.panorama(c, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, models.PanoramaDetailResponse{Success: true, Data: p})
}

// HandleSelectPanorama switches a session to another panorama
func (h *PanoramaHandlerImpl) HandleSelectPanorama(c echo.Context) error {
	id, err := panoramaID(c)
	if err != nil {
		return err
	}
	s, err := h.optionalSession(c)
	if err != nil {
		return err
	}
	if s == nil {
		return NewValidationError("sessionId")
	}
	p, err := s.SelectPanorama(id)
	if err != nil {
		return FromDomainError(err)
	}
	viewer, err := s.ViewerConfig()
	if err != nil {
		return FromDomainError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"panorama": p,
		"viewer":   viewer,
	})
}

// HandleGetMarker renders the marker and tooltip markup of one hotspot
func (h *PanoramaHandlerImpl) HandleGetMarker(c echo.Context) error {
	id, err := panoramaID(c)
	if err != nil {
		return err
	}
	p, err := h.panorama(c, id)
	if err != nil {
		return err
	}
	hotspotID := c.Param("hotspotId")
	i := p.FindHotspot(hotspotID)
	if i < 0 {
		return NewNotFoundError("hotspot", hotspotID)
	}
	editMode, _ := strconv.ParseBool(c.QueryParam("editMode"))
	selected, _ := strconv.ParseBool(c.QueryParam("selected"))

	div := render.NewElement("div")
	div.Class = overlay.HotspotCSSClass
	overlay.BuildMarker(div, p.Hotspots[i], editMode, selected)
	markup, err := div.HTML()
	if err != nil {
		return NewInternalError("failed to render marker", err)
	}
	return c.HTML(http.StatusOK, markup)
}

// shapePreview is the rendered form of a posted shape
type shapePreview struct {
	Kind     models.ShapeKind      `json:"kind"`
	Degraded bool                  `json:"degraded"`
	Width    float64               `json:"width"`
	Height   float64               `json:"height"`
	Polygon  *render.PolygonLayout `json:"polygon,omitempty"`
	HTML     string                `json:"html"`
}

// HandlePreviewShape renders a shape without storing it
func (h *PanoramaHandlerImpl) HandlePreviewShape(c echo.Context) error {
	var shape models.Shape
	if err := json.NewDecoder(c.Request().Body).Decode(&shape); err != nil {
		return NewBadRequestError("invalid shape", err)
	}
	mount := render.NewElement("div")
	view := render.Render(shape, mount)
	markup, err := view.Element.HTML()
	if err != nil {
		return NewInternalError("failed to render shape", err)
	}
	return c.JSON(http.StatusOK, shapePreview{
		Kind:     view.Kind,
		Degraded: view.Degraded,
		Width:    view.Width,
		Height:   view.Height,
		Polygon:  view.Polygon,
		HTML:     markup,
	})
}
