// handlers_editor.go - Hotspot draft handlers
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/pano-hotspots/backend/internal/editor"
	"github.com/pano-hotspots/backend/internal/models"
	"github.com/pano-hotspots/backend/internal/session"
)

// EditorHandlerImpl implements the EditorHandler interface
type EditorHandlerImpl struct {
	sessions SessionManager
}

// NewEditorHandler creates a new editor handler instance
func NewEditorHandler(sessions SessionManager) EditorHandler {
	return &EditorHandlerImpl{sessions: sessions}
}

// draftResponse is the editor state after an operation
type draftResponse struct {
	State editor.State  `json:"state"`
	Draft *editor.Draft `json:"draft"`
}

// saveResponse carries the panorama as committed
type saveResponse struct {
	Panorama models.Panorama `json:"panorama"`
	Message  string          `json:"message"`
}

func respondDraft(c echo.Context, s *session.Session) error {
	resp := draftResponse{State: s.Editor().State()}
	if d, ok := s.Editor().Draft(); ok {
		resp.Draft = &d
	}
	return c.JSON(http.StatusOK, resp)
}

// editDraft runs fn against the session's editor and responds with the
// resulting draft.
func (h *EditorHandlerImpl) editDraft(c echo.Context, fn func(s *session.Session) error) error {
	s, err := lookupSession(h.sessions, c)
	if err != nil {
		return err
	}
	if err := fn(s); err != nil {
		return FromDomainError(err)
	}
	return respondDraft(c, s)
}

func decodeFields(c echo.Context) (map[string]any, error) {
	var fields map[string]any
	if err := json.NewDecoder(c.Request().Body).Decode(&fields); err != nil {
		return nil, NewBadRequestError("invalid request body", err)
	}
	if len(fields) == 0 {
		return nil, NewValidationError("fields")
	}
	return fields, nil
}

func pointIndex(c echo.Context) (int, error) {
	i, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return 0, NewValidationError("index")
	}
	return i, nil
}

// HandleGetDraft returns the editor state
func (h *EditorHandlerImpl) HandleGetDraft(c echo.Context) error {
	s, err := lookupSession(h.sessions, c)
	if err != nil {
		return err
	}
	return respondDraft(c, s)
}

// HandleStartCreate opens a blank draft
func (h *EditorHandlerImpl) HandleStartCreate(c echo.Context) error {
	return h.editDraft(c, func(s *session.Session) error {
		_, err := s.StartCreate()
		return err
	})
}

// HandleSelectHotspot opens an existing hotspot for editing
func (h *EditorHandlerImpl) HandleSelectHotspot(c echo.Context) error {
	return h.editDraft(c, func(s *session.Session) error {
		_, err := s.SelectHotspot(c.Param("hotspotId"))
		return err
	})
}

// HandleUpdateFields patches hotspot fields. All fields apply or none do.
func (h *EditorHandlerImpl) HandleUpdateFields(c echo.Context) error {
	fields, err := decodeFields(c)
	if err != nil {
		return err
	}
	return h.editDraft(c, func(s *session.Session) error {
		_, err := s.Editor().UpdateFields(fields)
		return err
	})
}

// HandleUpdateShape patches shape fields. All fields apply or none do.
func (h *EditorHandlerImpl) HandleUpdateShape(c echo.Context) error {
	fields, err := decodeFields(c)
	if err != nil {
		return err
	}
	return h.editDraft(c, func(s *session.Session) error {
		_, err := s.Editor().UpdateShapeFields(fields)
		return err
	})
}

type shapeKindRequest struct {
	Kind models.ShapeKind `json:"kind"`
}

// HandleChangeShapeKind swaps the draft's geometry for the kind's default
func (h *EditorHandlerImpl) HandleChangeShapeKind(c echo.Context) error {
	var req shapeKindRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if req.Kind == "" {
		return NewValidationError("kind")
	}
	return h.editDraft(c, func(s *session.Session) error {
		_, err := s.Editor().ChangeShapeKind(req.Kind)
		return err
	})
}

// HandleAddPoint appends a vertex to the draft polygon
func (h *EditorHandlerImpl) HandleAddPoint(c echo.Context) error {
	return h.editDraft(c, func(s *session.Session) error {
		_, err := s.Editor().AddPoint()
		return err
	})
}

type movePointRequest struct {
	Axis  string   `json:"axis"`
	Value *float64 `json:"value"`
}

// HandleMovePoint sets one coordinate of a vertex
func (h *EditorHandlerImpl) HandleMovePoint(c echo.Context) error {
	i, err := pointIndex(c)
	if err != nil {
		return err
	}
	var req movePointRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if req.Value == nil {
		return NewValidationError("value")
	}
	return h.editDraft(c, func(s *session.Session) error {
		_, err := s.Editor().MovePoint(i, req.Axis, *req.Value)
		return err
	})
}

// HandleRemovePoint removes a vertex. A polygon keeps at least three.
func (h *EditorHandlerImpl) HandleRemovePoint(c echo.Context) error {
	i, err := pointIndex(c)
	if err != nil {
		return err
	}
	return h.editDraft(c, func(s *session.Session) error {
		_, err := s.Editor().RemovePoint(i)
		return err
	})
}

// HandleSaveDraft commits the draft into the session's collection
func (h *EditorHandlerImpl) HandleSaveDraft(c echo.Context) error {
	s, err := lookupSession(h.sessions, c)
	if err != nil {
		return err
	}
	p, err := s.SaveDraft()
	if err != nil {
		return FromDomainError(err)
	}
	return c.JSON(http.StatusOK, saveResponse{Panorama: p, Message: editor.MsgSaved})
}

// HandleDeleteDraft removes the edited hotspot. The client confirms with
// ?confirm=true after showing the delete prompt.
func (h *EditorHandlerImpl) HandleDeleteDraft(c echo.Context) error {
	s, err := lookupSession(h.sessions, c)
	if err != nil {
		return err
	}
	confirmed, _ := strconv.ParseBool(c.QueryParam("confirm"))
	p, err := s.DeleteDraft(editor.ConfirmFunc(func(string) bool { return confirmed }))
	if err != nil {
		apiErr := FromDomainError(err)
		if errors.Is(err, editor.ErrNotConfirmed) {
			apiErr.Details = editor.DeletePrompt
		}
		return apiErr
	}
	return c.JSON(http.StatusOK, saveResponse{Panorama: p, Message: editor.MsgDeleted})
}

// HandleCancelDraft discards the draft
func (h *EditorHandlerImpl) HandleCancelDraft(c echo.Context) error {
	return h.editDraft(c, func(s *session.Session) error {
		return s.CancelDraft()
	})
}
