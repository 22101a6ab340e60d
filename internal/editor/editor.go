// Package editor implements the hotspot edit state machine. A draft is a
// private copy of a hotspot; the collection is only written on Save or
// Delete.
package editor

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/labstack/gommon/log"

	"github.com/pano-hotspots/backend/internal/metrics"
	"github.com/pano-hotspots/backend/internal/models"
)

// State of the machine.
type State string

const (
	StateIdle    State = "idle"
	StateEditing State = "editing"
)

// User-facing messages.
const (
	MsgTooFewPoints = "Polygon must have at least 3 points"
	MsgNoPanorama   = "No panorama selected"
	MsgSaved        = "✅ Changes saved successfully!"
	MsgDeleted      = "🗑️ Hotspot deleted successfully!"
	DeletePrompt    = "Are you sure you want to delete this hotspot?"
	NewHotspotLabel = "New Hotspot"
)

var (
	ErrNoDraft      = errors.New("no hotspot is being edited")
	ErrNoPanorama   = errors.New("no panorama selected")
	ErrTooFewPoints = errors.New("polygon must keep at least 3 points")
	ErrNotConfirmed = errors.New("delete not confirmed")
	ErrDuplicateID  = errors.New("hotspot id already exists")
	ErrStaleDraft   = errors.New("edited hotspot no longer exists")
	ErrNotPolygon   = errors.New("shape is not a polygon")
	ErrPointIndex   = errors.New("point index out of range")
	ErrUnknownField = errors.New("unknown field")
	ErrInvalidValue = errors.New("invalid value")
)

// Store is the collection the editor commits to.
type Store interface {
	Selected() (models.Panorama, bool)
	ReplaceHotspots(panoramaID int, hotspots []models.Hotspot) (models.Panorama, error)
}

// Notifier shows a transient message to the user.
type Notifier interface {
	Notify(title, body string)
}

// Confirmer asks the user to approve a destructive action.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

// Confirmed is a Confirmer that always approves.
var Confirmed Confirmer = ConfirmFunc(func(string) bool { return true })

// NewID returns a fresh, time-ordered hotspot id.
func NewID() string {
	return "hotspot_" + uuid.Must(uuid.NewV7()).String()
}

// Draft is the hotspot being edited.
type Draft struct {
	Hotspot models.Hotspot `json:"hotspot"`
	IsNew   bool           `json:"isNew"`
	// OriginalID is the id the hotspot had when it was selected. Save and
	// Delete match on it, so the id itself may be edited.
	OriginalID string `json:"originalId,omitempty"`
}

func (d Draft) clone() Draft {
	d.Hotspot = d.Hotspot.Clone()
	return d
}

// Options configure an Editor.
type Options struct {
	Store    Store
	Notifier Notifier
	Logger   *log.Logger
	Metrics  *metrics.Recorder
	NewID    func() string
}

// Editor is safe for concurrent use. The notifier is called with the editor
// lock held and must not call back into the editor.
type Editor struct {
	mu       sync.Mutex
	store    Store
	notifier Notifier
	logger   *log.Logger
	metrics  *metrics.Recorder
	newID    func() string
	draft    *Draft
}

// New returns an idle editor.
func New(opts Options) *Editor {
	if opts.NewID == nil {
		opts.NewID = NewID
	}
	if opts.Logger == nil {
		opts.Logger = log.New("editor")
	}
	return &Editor{
		store:    opts.Store,
		notifier: opts.Notifier,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		newID:    opts.NewID,
	}
}

func (e *Editor) notify(title, body string) {
	if e.notifier != nil {
		e.notifier.Notify(title, body)
	}
}

// State returns the current state.
func (e *Editor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.draft == nil {
		return StateIdle
	}
	return StateEditing
}

// Draft returns a copy of the current draft.
func (e *Editor) Draft() (Draft, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.draft == nil {
		return Draft{}, false
	}
	return e.draft.clone(), true
}

// SelectedID returns the id of the hotspot being edited, or "" when idle or
// creating a new one.
func (e *Editor) SelectedID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.draft == nil || e.draft.IsNew {
		return ""
	}
	return e.draft.OriginalID
}

// StartCreate opens a draft for a new hotspot at the view origin. Any open
// draft is discarded.
func (e *Editor) StartCreate() Draft {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.draft = &Draft{
		Hotspot: models.Hotspot{
			ID:    e.newID(),
			Kind:  models.HotspotInfo,
			Label: NewHotspotLabel,
			Shape: models.NewShape(models.Circle{Radius: 30}),
		},
		IsNew: true,
	}
	e.logger.Debugf("draft created: %s", e.draft.Hotspot.ID)
	return e.draft.clone()
}

// Select copies h into the draft.
func (e *Editor) Select(h models.Hotspot) Draft {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.draft = &Draft{Hotspot: h.Clone(), OriginalID: h.ID}
	e.logger.Debugf("draft selected: %s", h.ID)
	return e.draft.clone()
}

// edit applies fn to a copy of the draft and keeps the result only when fn
// succeeds.
func (e *Editor) edit(fn func(h *models.Hotspot) error) (Draft, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.draft == nil {
		return Draft{}, ErrNoDraft
	}
	next := e.draft.clone()
	if err := fn(&next.Hotspot); err != nil {
		return e.draft.clone(), err
	}
	e.draft = &next
	return next.clone(), nil
}

// UpdateField replaces one hotspot field on the draft.
func (e *Editor) UpdateField(name string, value any) (Draft, error) {
	return e.UpdateFields(map[string]any{name: value})
}

// UpdateFields replaces several hotspot fields at once. Either every field
// is applied or none is.
func (e *Editor) UpdateFields(fields map[string]any) (Draft, error) {
	return e.edit(func(h *models.Hotspot) error {
		for name, v := range fields {
			if err := setHotspotField(h, name, v); err != nil {
				return err
			}
		}
		return nil
	})
}

// UpdateShapeField replaces one shape field on the draft. Size fields must
// belong to the current kind; for a square, "width" sets the side.
func (e *Editor) UpdateShapeField(name string, value any) (Draft, error) {
	return e.UpdateShapeFields(map[string]any{name: value})
}

// UpdateShapeFields replaces several shape fields at once.
func (e *Editor) UpdateShapeFields(fields map[string]any) (Draft, error) {
	return e.edit(func(h *models.Hotspot) error {
		for name, v := range fields {
			if err := setShapeField(&h.Shape, name, v); err != nil {
				return err
			}
		}
		return nil
	})
}

// ChangeShapeKind swaps the payload for the fixed defaults of kind. Paint is
// kept; fields of the previous kind are gone.
func (e *Editor) ChangeShapeKind(kind models.ShapeKind) (Draft, error) {
	return e.edit(func(h *models.Hotspot) error {
		g, err := models.DefaultGeometry(kind)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		h.Shape = h.Shape.WithGeometry(g)
		return nil
	})
}

func polygonOf(h *models.Hotspot) (models.Polygon, error) {
	p, ok := h.Shape.Geometry.(models.Polygon)
	if !ok {
		return models.Polygon{}, ErrNotPolygon
	}
	return p, nil
}

// AddPoint appends a copy of the last point, or the origin when empty.
func (e *Editor) AddPoint() (Draft, error) {
	return e.edit(func(h *models.Hotspot) error {
		p, err := polygonOf(h)
		if err != nil {
			return err
		}
		next := models.Point{}
		if n := len(p.Points); n > 0 {
			next = p.Points[n-1]
		}
		pts := append(h.Shape.Points(), next)
		h.Shape = h.Shape.WithGeometry(models.Polygon{Points: pts})
		return nil
	})
}

// MovePoint replaces the x or y coordinate of one point.
func (e *Editor) MovePoint(index int, axis string, value float64) (Draft, error) {
	return e.edit(func(h *models.Hotspot) error {
		p, err := polygonOf(h)
		if err != nil {
			return err
		}
		if index < 0 || index >= len(p.Points) {
			return fmt.Errorf("%w: %d", ErrPointIndex, index)
		}
		pts := h.Shape.Points()
		switch axis {
		case "x":
			pts[index].X = value
		case "y":
			pts[index].Y = value
		default:
			return fmt.Errorf("%w: axis %q", ErrInvalidValue, axis)
		}
		h.Shape = h.Shape.WithGeometry(models.Polygon{Points: pts})
		return nil
	})
}

// RemovePoint deletes one point. Polygons at the minimum point count are
// left untouched and the user is warned.
func (e *Editor) RemovePoint(index int) (Draft, error) {
	d, err := e.edit(func(h *models.Hotspot) error {
		p, err := polygonOf(h)
		if err != nil {
			return err
		}
		if len(p.Points) <= models.MinPolygonPoints {
			e.notify(MsgTooFewPoints, "")
			return ErrTooFewPoints
		}
		if index < 0 || index >= len(p.Points) {
			return fmt.Errorf("%w: %d", ErrPointIndex, index)
		}
		pts := h.Shape.Points()
		pts = append(pts[:index], pts[index+1:]...)
		h.Shape = h.Shape.WithGeometry(models.Polygon{Points: pts})
		return nil
	})
	if errors.Is(err, ErrTooFewPoints) {
		e.metrics.EditRejected("too_few_points")
	}
	return d, err
}

// Save commits the draft to the selected panorama and returns to Idle.
func (e *Editor) Save() (models.Panorama, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.draft == nil {
		return models.Panorama{}, ErrNoDraft
	}
	pano, ok := e.store.Selected()
	if !ok {
		e.notify(MsgNoPanorama, "")
		e.metrics.EditRejected("no_panorama")
		return models.Panorama{}, ErrNoPanorama
	}

	h := e.draft.Hotspot.Clone()
	h.Normalize()
	if err := h.Validate(); err != nil {
		return models.Panorama{}, err
	}

	hotspots := models.CloneHotspots(pano.Hotspots)
	if e.draft.IsNew {
		if pano.FindHotspot(h.ID) >= 0 {
			return models.Panorama{}, fmt.Errorf("%w: %s", ErrDuplicateID, h.ID)
		}
		hotspots = append(hotspots, h)
	} else {
		i := pano.FindHotspot(e.draft.OriginalID)
		if i < 0 {
			return models.Panorama{}, fmt.Errorf("%w: %s", ErrStaleDraft, e.draft.OriginalID)
		}
		if j := pano.FindHotspot(h.ID); j >= 0 && j != i {
			return models.Panorama{}, fmt.Errorf("%w: %s", ErrDuplicateID, h.ID)
		}
		hotspots[i] = h
	}

	updated, err := e.store.ReplaceHotspots(pano.ID, hotspots)
	if err != nil {
		return models.Panorama{}, fmt.Errorf("save hotspot %s: %w", h.ID, err)
	}

	op := metrics.OpSave
	if e.draft.IsNew {
		op = metrics.OpCreate
	}
	e.logger.Infof("hotspot %s saved to panorama %d (new=%t)", h.ID, pano.ID, e.draft.IsNew)
	e.draft = nil
	e.metrics.EditCommitted(op)
	e.notify(MsgSaved, "")
	return updated, nil
}

// Delete removes the edited hotspot after the user confirms, and returns to
// Idle. Without confirmation nothing changes.
func (e *Editor) Delete(c Confirmer) (models.Panorama, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.draft == nil {
		return models.Panorama{}, ErrNoDraft
	}
	pano, ok := e.store.Selected()
	if !ok {
		e.notify(MsgNoPanorama, "")
		e.metrics.EditRejected("no_panorama")
		return models.Panorama{}, ErrNoPanorama
	}
	if c == nil || !c.Confirm(DeletePrompt) {
		return models.Panorama{}, ErrNotConfirmed
	}

	// A new draft was never stored, so its id may collide with a saved hotspot.
	if e.draft.IsNew {
		e.logger.Debugf("unsaved draft deleted: %s", e.draft.Hotspot.ID)
		e.draft = nil
		e.notify(MsgDeleted, "")
		return pano, nil
	}

	id := e.draft.OriginalID
	hotspots := make([]models.Hotspot, 0, len(pano.Hotspots))
	for _, h := range pano.Hotspots {
		if h.ID != id {
			hotspots = append(hotspots, h)
		}
	}

	updated, err := e.store.ReplaceHotspots(pano.ID, hotspots)
	if err != nil {
		return models.Panorama{}, fmt.Errorf("delete hotspot %s: %w", id, err)
	}

	e.logger.Infof("hotspot %s deleted from panorama %d", id, pano.ID)
	e.draft = nil
	e.metrics.EditCommitted(metrics.OpDelete)
	e.notify(MsgDeleted, "")
	return updated, nil
}

// Cancel discards the draft. It is a no-op when idle.
func (e *Editor) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.draft == nil {
		return
	}
	e.logger.Debugf("draft discarded: %s", e.draft.Hotspot.ID)
	e.draft = nil
	e.metrics.EditCommitted(metrics.OpCancel)
}
