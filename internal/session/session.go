package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/pano-hotspots/backend/internal/editor"
	"github.com/pano-hotspots/backend/internal/metrics"
	"github.com/pano-hotspots/backend/internal/models"
	"github.com/pano-hotspots/backend/internal/overlay"
	"github.com/pano-hotspots/backend/internal/store"
	"github.com/pano-hotspots/backend/internal/viewport"
)

var (
	ErrNoViewer         = errors.New("no viewer is mounted")
	ErrHotspotNotFound  = errors.New("hotspot not found")
	ErrNoPanoramaLoaded = errors.New("no panoramas found")
	ErrNotEditMode      = errors.New("edit mode is off")
)

// ViewerOptions are the viewer settings applied to every session.
type ViewerOptions struct {
	Defaults          overlay.Defaults
	AutoLoad          bool
	ShowControls      bool
	MouseZoom         bool
	InitialAutoRotate bool
}

// DefaultViewerOptions returns the stock viewer settings.
func DefaultViewerOptions() ViewerOptions {
	return ViewerOptions{
		Defaults:          overlay.DefaultViewerDefaults(),
		AutoLoad:          true,
		ShowControls:      true,
		MouseZoom:         true,
		InitialAutoRotate: false,
	}
}

// Session is one client's overlay: its own copy of the collection, the
// editor bound to it, and the viewer mirror.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu           sync.Mutex
	lastAccessed time.Time
	editMode     bool
	autoRotate   bool
	sim          *viewport.Sim
	loadErr      string

	viewer  ViewerOptions
	store   *store.Store
	editor  *editor.Editor
	overlay *overlay.Overlay
	outbox  *Outbox
	logger  *log.Logger
	onView  func(overlay.HotspotViewed)
}

func newSession(id string, panoramas []models.Panorama, viewer ViewerOptions, logger *log.Logger, rec *metrics.Recorder, onView func(overlay.HotspotViewed)) *Session {
	now := time.Now()
	s := &Session{
		ID:           id,
		CreatedAt:    now,
		lastAccessed: now,
		autoRotate:   viewer.InitialAutoRotate,
		viewer:       viewer,
		store:        store.New(panoramas),
		outbox:       NewOutbox(OutboxSize),
		logger:       logger,
		onView:       onView,
	}
	if len(panoramas) == 0 {
		s.loadErr = "No panoramas found"
	}
	s.editor = editor.New(editor.Options{
		Store:    s.store,
		Notifier: s.outbox,
		Logger:   logger,
		Metrics:  rec,
	})
	s.overlay = overlay.New(overlay.Options{
		Factory:  viewport.NewSimFactory(s.attach),
		Defaults: viewer.Defaults,
		Notifier: s.outbox,
		Logger:   logger,
		Metrics:  rec,
	})
	s.store.OnChange(func(p models.Panorama) {
		s.logger.Debugf("[Session %s] panorama %d now has %d hotspots", shortID(s.ID), p.ID, len(p.Hotspots))
	})
	return s
}

// shortID truncates an id for logging.
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

func (s *Session) attach(sim *viewport.Sim) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sim = sim
}

func (s *Session) touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastAccessed = time.Now()
}

// LastAccessed returns the time of the last request on the session.
func (s *Session) LastAccessed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccessed
}

// Store returns the session's collection.
func (s *Session) Store() *store.Store { return s.store }

// Editor returns the session's edit state machine.
func (s *Session) Editor() *editor.Editor { return s.editor }

// Overlay returns the session's marker adapter.
func (s *Session) Overlay() *overlay.Overlay { return s.overlay }

// Outbox returns the events queued for the viewer connection.
func (s *Session) Outbox() *Outbox { return s.outbox }

// LoadError returns the data error reported at load, or "".
func (s *Session) LoadError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadErr
}

// EditMode reports whether clicks select hotspots for editing.
func (s *Session) EditMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editMode
}

// Rebuild reconstructs the viewer from the selected panorama, the edit mode
// and the hotspot being edited, and queues the new configuration.
func (s *Session) Rebuild() error {
	pano, ok := s.store.Selected()
	if !ok {
		return ErrNoPanoramaLoaded
	}
	s.mu.Lock()
	editMode := s.editMode
	autoRotate := s.autoRotate
	s.mu.Unlock()

	props := overlay.Props{
		PanoramaID:        pano.ID,
		ImageURL:          pano.ImageURL,
		Hotspots:          pano.Hotspots,
		EditMode:          editMode,
		SelectedHotspotID: s.editor.SelectedID(),
		AutoLoad:          s.viewer.AutoLoad,
		ShowControls:      s.viewer.ShowControls,
		MouseZoom:         s.viewer.MouseZoom,
		AutoRotate:        autoRotate,
		OnError: func(msg string) {
			s.outbox.Push(EventError, ErrorPayload{Message: msg})
		},
		OnSelect:        s.selectForEdit,
		OnHotspotViewed: s.hotspotViewed,
	}
	if err := s.overlay.Reconfigure(props); err != nil {
		return err
	}

	markers, err := s.overlay.RenderedMarkers()
	if err != nil {
		return err
	}
	s.outbox.Push(EventViewerConfig, ViewerConfig{
		PanoramaID:        pano.ID,
		Config:            s.overlay.Config(),
		Markers:           markers,
		EditMode:          editMode,
		SelectedHotspotID: props.SelectedHotspotID,
	})
	return nil
}

// ViewerConfig returns the configuration of the live viewer.
func (s *Session) ViewerConfig() (ViewerConfig, error) {
	if s.overlay.Viewport() == nil {
		return ViewerConfig{}, ErrNoViewer
	}
	p := s.overlay.Props()
	markers, err := s.overlay.RenderedMarkers()
	if err != nil {
		return ViewerConfig{}, err
	}
	return ViewerConfig{
		PanoramaID:        p.PanoramaID,
		Config:            s.overlay.Config(),
		Markers:           markers,
		EditMode:          p.EditMode,
		SelectedHotspotID: p.SelectedHotspotID,
	}, nil
}

func (s *Session) selectForEdit(h models.Hotspot) {
	d := s.editor.Select(h)
	if err := s.Rebuild(); err != nil {
		s.logger.Warnf("[Session %s] rebuild after select failed: %v", shortID(s.ID), err)
	}
	s.outbox.Push(EventSelected, Selected{Draft: d})
}

func (s *Session) hotspotViewed(ev overlay.HotspotViewed) {
	s.logger.Infof("[Session %s] hotspot %s viewed on panorama %d", shortID(s.ID), ev.HotspotID, ev.PanoramaID)
	s.outbox.Push(EventViewed, ev)
	if s.onView != nil {
		s.onView(ev)
	}
}

// SelectPanorama switches panorama. Any open draft is discarded.
func (s *Session) SelectPanorama(id int) (models.Panorama, error) {
	p, err := s.store.Select(id)
	if err != nil {
		return models.Panorama{}, err
	}
	s.editor.Cancel()
	return p, s.Rebuild()
}

// SetEditMode toggles edit mode. Any open draft is discarded.
func (s *Session) SetEditMode(on bool) error {
	s.mu.Lock()
	s.editMode = on
	s.mu.Unlock()
	s.editor.Cancel()
	return s.Rebuild()
}

// SelectHotspot opens the hotspot with id on the selected panorama for
// editing, as a click in edit mode does.
func (s *Session) SelectHotspot(id string) (editor.Draft, error) {
	if !s.EditMode() {
		return editor.Draft{}, ErrNotEditMode
	}
	pano, ok := s.store.Selected()
	if !ok {
		return editor.Draft{}, ErrNoPanoramaLoaded
	}
	i := pano.FindHotspot(id)
	if i < 0 {
		return editor.Draft{}, fmt.Errorf("%w: %s", ErrHotspotNotFound, id)
	}
	d := s.editor.Select(pano.Hotspots[i])
	return d, s.Rebuild()
}

// SaveDraft commits the draft and rebuilds the viewer.
func (s *Session) SaveDraft() (models.Panorama, error) {
	p, err := s.editor.Save()
	if err != nil {
		return models.Panorama{}, err
	}
	return p, s.Rebuild()
}

// DeleteDraft removes the edited hotspot once c confirms.
func (s *Session) DeleteDraft(c editor.Confirmer) (models.Panorama, error) {
	p, err := s.editor.Delete(c)
	if err != nil {
		return models.Panorama{}, err
	}
	return p, s.Rebuild()
}

// CancelDraft discards the draft and clears the selection ring.
func (s *Session) CancelDraft() error {
	hadSelection := s.editor.SelectedID() != ""
	s.editor.Cancel()
	if !hadSelection {
		return nil
	}
	return s.Rebuild()
}

// StartCreate opens a blank draft. Only allowed in edit mode.
func (s *Session) StartCreate() (editor.Draft, error) {
	if !s.EditMode() {
		return editor.Draft{}, ErrNotEditMode
	}
	if _, ok := s.store.Selected(); !ok {
		return editor.Draft{}, ErrNoPanoramaLoaded
	}
	return s.editor.StartCreate(), nil
}

// SetAutoRotate toggles rotation on the live viewer and for later rebuilds.
func (s *Session) SetAutoRotate(on bool) {
	s.mu.Lock()
	s.autoRotate = on
	s.mu.Unlock()
	s.overlay.SetAutoRotate(on)
}

// AutoRotate reports whether rotation is on.
func (s *Session) AutoRotate() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.autoRotate
}

// ResetView returns the viewer to its initial direction and zoom.
func (s *Session) ResetView() (models.ViewState, error) {
	if !s.overlay.ResetView() {
		return models.ViewState{}, ErrNoViewer
	}
	s.pushRescale()
	return s.overlay.ViewState(), nil
}

// ToggleFullscreen flips the viewer's fullscreen state.
func (s *Session) ToggleFullscreen() (bool, error) {
	if !s.overlay.ToggleFullscreen() {
		return false, ErrNoViewer
	}
	sim, err := s.currentSim()
	if err != nil {
		return false, err
	}
	return sim.Fullscreen(), nil
}

func (s *Session) currentSim() (*viewport.Sim, error) {
	s.mu.Lock()
	sim := s.sim
	s.mu.Unlock()
	if sim == nil || sim.Destroyed() || s.overlay.Viewport() != viewport.Viewport(sim) {
		return nil, ErrNoViewer
	}
	return sim, nil
}

func (s *Session) pushRescale() {
	s.outbox.Push(EventRescale, Rescale{Scale: s.overlay.Scale(), HFOV: s.overlay.ViewState().HFOV})
}

// ViewerLoaded forwards the browser viewer's load event.
func (s *Session) ViewerLoaded(v models.ViewState) error {
	sim, err := s.currentSim()
	if err != nil {
		return err
	}
	sim.Apply(v)
	sim.Fire(viewport.EventLoad)
	s.pushRescale()
	return nil
}

// ViewerFailed forwards the browser viewer's error event.
func (s *Session) ViewerFailed(msg string) error {
	sim, err := s.currentSim()
	if err != nil {
		return err
	}
	sim.Fire(viewport.EventError, msg)
	return nil
}

// ViewChanged forwards a mouseup, touchend or zoomchange event with the view
// state the browser reported.
func (s *Session) ViewChanged(event string, v models.ViewState) error {
	switch event {
	case viewport.EventMouseUp, viewport.EventTouchEnd, viewport.EventZoomChange:
	default:
		return fmt.Errorf("unsupported viewer event %q", event)
	}
	sim, err := s.currentSim()
	if err != nil {
		return err
	}
	sim.Apply(v)
	sim.Fire(event, v.HFOV)
	s.pushRescale()
	return nil
}

// ClickHotspot forwards a click on a hotspot marker.
func (s *Session) ClickHotspot(id string) error {
	sim, err := s.currentSim()
	if err != nil {
		return err
	}
	return sim.Click(id)
}

// HoverHotspot forwards pointer enter or leave on a hotspot marker.
func (s *Session) HoverHotspot(id string, enter bool) error {
	if _, err := s.currentSim(); err != nil {
		return err
	}
	if err := s.overlay.Hover(id, enter); err != nil {
		if errors.Is(err, overlay.ErrNoViewer) {
			return ErrNoViewer
		}
		return err
	}
	return nil
}

// Close releases the viewer and stops event delivery.
func (s *Session) Close() {
	s.overlay.Close()
	s.outbox.Close()
}
