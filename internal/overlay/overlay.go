// Package overlay adapts a hotspot collection onto a panorama viewer: it
// builds one marker per hotspot, routes clicks by mode, keeps markers at a
// constant apparent size across zoom and rebuilds the viewer whenever its
// inputs change.
package overlay

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/pano-hotspots/backend/internal/metrics"
	"github.com/pano-hotspots/backend/internal/models"
	"github.com/pano-hotspots/backend/internal/render"
	"github.com/pano-hotspots/backend/internal/viewport"
	"github.com/pano-hotspots/backend/internal/zoom"
)

// Status is the viewer lifecycle state.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusError   Status = "error"
)

// MountClass is the class of the default mount element.
const MountClass = "panorama-viewer"

var (
	// ErrClosed is returned by Reconfigure after Close.
	ErrClosed = errors.New("overlay: closed")
	// ErrNoViewer is returned by Hover when no hoverable viewer is mounted.
	ErrNoViewer = errors.New("overlay: no live viewer")
)

// Notifier shows a transient notification to the user.
type Notifier interface {
	Notify(title, body string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(title, body string)

func (f NotifierFunc) Notify(title, body string) { f(title, body) }

// HotspotViewed is emitted for every view-mode click.
type HotspotViewed struct {
	PanoramaID  int       `json:"panoramaId"`
	HotspotID   string    `json:"hotspotId"`
	Label       string    `json:"text"`
	Description string    `json:"description,omitempty"`
	At          time.Time `json:"at"`
}

// Props are the adapter inputs. Any change is applied with Reconfigure.
type Props struct {
	PanoramaID        int
	ImageURL          string
	Hotspots          []models.Hotspot
	EditMode          bool
	SelectedHotspotID string
	AutoLoad          bool
	ShowControls      bool
	MouseZoom         bool
	AutoRotate        bool

	OnLoad          func()
	OnError         func(msg string)
	OnSelect        func(models.Hotspot)
	OnHotspotViewed func(HotspotViewed)
}

// Defaults are the viewer settings not carried by Props.
type Defaults struct {
	HFOV            float64
	MinHFOV         float64
	MaxHFOV         float64
	AutoRotateSpeed float64
}

// DefaultViewerDefaults returns the stock viewer settings.
func DefaultViewerDefaults() Defaults {
	return Defaults{HFOV: 100, MinHFOV: 50, MaxHFOV: 120, AutoRotateSpeed: -8}
}

// Options configure an Overlay.
type Options struct {
	Factory  viewport.Factory
	Mount    *render.Element
	Defaults Defaults
	Notifier Notifier
	Logger   *log.Logger
	Metrics  *metrics.Recorder
}

// Overlay owns at most one live viewer on its mount.
type Overlay struct {
	mu       sync.Mutex
	factory  viewport.Factory
	mount    *render.Element
	defaults Defaults
	notifier Notifier
	logger   *log.Logger
	metrics  *metrics.Recorder

	props   Props
	vp      viewport.Viewport
	cfg     viewport.Config
	markers map[string]*Marker
	comp    *zoom.Compensator
	view    models.ViewState
	status  Status
	errMsg  string
	closed  bool
}

// New returns an overlay with no viewer. Call Reconfigure to mount one.
func New(opts Options) *Overlay {
	if opts.Factory == nil {
		opts.Factory = viewport.NewSimFactory(nil)
	}
	if opts.Mount == nil {
		opts.Mount = render.NewElement("div")
		opts.Mount.Class = MountClass
	}
	if opts.Defaults == (Defaults{}) {
		opts.Defaults = DefaultViewerDefaults()
	}
	if opts.Logger == nil {
		opts.Logger = log.New("overlay")
	}
	return &Overlay{
		factory:  opts.Factory,
		mount:    opts.Mount,
		defaults: opts.Defaults,
		notifier: opts.Notifier,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		markers:  make(map[string]*Marker),
		comp:     zoom.NewCompensator(),
		status:   StatusIdle,
	}
}

// Reconfigure disposes the current viewer, if any, and constructs a new one
// from p. The mount never hosts two viewers.
func (o *Overlay) Reconfigure(p Props) error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ErrClosed
	}
	o.disposeLocked()

	p.Hotspots = models.CloneHotspots(p.Hotspots)
	o.props = p
	o.cfg = o.configLocked()
	o.status = StatusLoading
	o.errMsg = ""

	vp, err := o.factory(o.mount, o.cfg)
	if err != nil {
		o.status = StatusError
		o.errMsg = err.Error()
		onError := p.OnError
		o.mu.Unlock()

		o.metrics.ViewerFailed()
		o.logger.Errorf("viewer construction failed: %v", err)
		if onError != nil {
			onError(err.Error())
		}
		return fmt.Errorf("overlay: construct viewer: %w", err)
	}
	o.vp = vp
	o.view = models.ViewState{Pitch: vp.Pitch(), Yaw: vp.Yaw(), HFOV: vp.HFOV()}

	vp.On(viewport.EventLoad, func(...any) { o.handleLoad(vp) })
	vp.On(viewport.EventError, func(args ...any) { o.handleError(vp, args...) })
	for _, ev := range viewport.ViewChangeEvents {
		vp.On(ev, func(...any) { o.handleViewChange(vp) })
	}
	n := len(o.markers)
	o.mu.Unlock()

	o.metrics.ViewerRebuilt()
	o.logger.Debugf("viewer mounted for panorama %d with %d markers", p.PanoramaID, n)
	return nil
}

// configLocked builds the construction record from the current props.
func (o *Overlay) configLocked() viewport.Config {
	p := o.props
	cfg := viewport.Config{
		Projection:       viewport.ProjectionEquirectangular,
		ImageURL:         p.ImageURL,
		AutoLoad:         p.AutoLoad,
		ShowControls:     p.ShowControls,
		MouseZoomEnabled: p.MouseZoom,
		HFOV:             o.defaults.HFOV,
		MinHFOV:          o.defaults.MinHFOV,
		MaxHFOV:          o.defaults.MaxHFOV,
	}
	if p.AutoRotate {
		cfg.AutoRotateSpeed = o.defaults.AutoRotateSpeed
	}
	cfg.Markers = make([]viewport.MarkerDef, 0, len(p.Hotspots))
	for _, h := range p.Hotspots {
		h := h
		cfg.Markers = append(cfg.Markers, viewport.MarkerDef{
			ID:       h.ID,
			Pitch:    h.Pitch,
			Yaw:      h.Yaw,
			Text:     h.Label,
			CSSClass: HotspotCSSClass,
			// Runs inside the factory call, with o.mu held by Reconfigure.
			CreateTooltip: func(div *render.Element) *render.Element {
				m := BuildMarker(div, h, p.EditMode, p.SelectedHotspotID == h.ID)
				o.markers[h.ID] = m
				return m.Tooltip
			},
			Click: func() { o.handleClick(h) },
		})
	}
	return cfg
}

func (o *Overlay) disposeLocked() {
	if o.vp != nil {
		o.vp.Destroy()
		o.vp = nil
	}
	o.markers = make(map[string]*Marker)
}

// Close destroys the viewer. A closed overlay cannot be reconfigured.
func (o *Overlay) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.disposeLocked()
	o.closed = true
	o.status = StatusIdle
}

func (o *Overlay) handleClick(h models.Hotspot) {
	o.mu.Lock()
	p := o.props
	n := o.notifier
	o.mu.Unlock()

	if p.EditMode {
		o.logger.Debugf("hotspot %s selected for edit", h.ID)
		if p.OnSelect != nil {
			p.OnSelect(h.Clone())
		}
		return
	}

	if n != nil {
		n.Notify("📍 "+h.Label, h.Description)
	}
	o.metrics.HotspotViewed(p.PanoramaID, h.ID)
	if p.OnHotspotViewed != nil {
		p.OnHotspotViewed(HotspotViewed{
			PanoramaID:  p.PanoramaID,
			HotspotID:   h.ID,
			Label:       h.Label,
			Description: h.Description,
			At:          time.Now().UTC(),
		})
	}
}

// current reports whether vp is still the live viewer. Events from disposed
// viewers are dropped.
func (o *Overlay) currentLocked(vp viewport.Viewport) bool {
	return o.vp != nil && o.vp == vp
}

func (o *Overlay) handleLoad(vp viewport.Viewport) {
	o.mu.Lock()
	if !o.currentLocked(vp) {
		o.mu.Unlock()
		return
	}
	o.status = StatusReady
	o.errMsg = ""
	hfov := vp.HFOV()
	o.comp.CaptureBase(hfov)
	o.view = models.ViewState{Pitch: vp.Pitch(), Yaw: vp.Yaw(), HFOV: hfov}
	o.rescaleLocked(hfov)
	onLoad := o.props.OnLoad
	o.mu.Unlock()

	if onLoad != nil {
		onLoad()
	}
}

func (o *Overlay) handleError(vp viewport.Viewport, args ...any) {
	msg := "Unknown error"
	if len(args) > 0 {
		switch v := args[0].(type) {
		case string:
			if v != "" {
				msg = v
			}
		case error:
			msg = v.Error()
		}
	}

	o.mu.Lock()
	if !o.currentLocked(vp) {
		o.mu.Unlock()
		return
	}
	o.status = StatusError
	o.errMsg = msg
	onError := o.props.OnError
	o.mu.Unlock()

	o.metrics.ViewerFailed()
	o.logger.Warnf("viewer error: %s", msg)
	if onError != nil {
		onError(msg)
	}
}

func (o *Overlay) handleViewChange(vp viewport.Viewport) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.currentLocked(vp) {
		return
	}
	o.view = models.ViewState{Pitch: vp.Pitch(), Yaw: vp.Yaw(), HFOV: vp.HFOV()}
	o.rescaleLocked(o.view.HFOV)
}

func (o *Overlay) rescaleLocked(hfov float64) {
	els := o.mount.FindByClass(MarkerClass)
	targets := make([]zoom.Scalable, len(els))
	for i, el := range els {
		el := el
		targets[i] = zoom.ScalableFunc(func(s float64) { render.ApplyScale(el, s) })
	}
	scale, ok := o.comp.RescaleAll(hfov, targets)
	if !ok {
		o.metrics.InvalidZoom()
		o.logger.Debugf("skipping rescale for field of view %v", hfov)
		return
	}
	o.metrics.Rescaled(scale)
}

// viewer returns the live viewer or nil.
func (o *Overlay) viewer() viewport.Viewport {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.vp
}

// ResetView returns to pitch 0, yaw 0 and the default field of view.
func (o *Overlay) ResetView() bool {
	vp := o.viewer()
	if vp == nil {
		return false
	}
	vp.SetPitch(0, true)
	vp.SetYaw(0, true)
	vp.SetHFOV(o.defaults.HFOV, true)

	o.mu.Lock()
	if o.currentLocked(vp) {
		o.view = models.ViewState{Pitch: vp.Pitch(), Yaw: vp.Yaw(), HFOV: vp.HFOV()}
	}
	o.mu.Unlock()
	return true
}

// SetAutoRotate starts or stops rotation. The choice survives rebuilds.
func (o *Overlay) SetAutoRotate(on bool) bool {
	o.mu.Lock()
	o.props.AutoRotate = on
	vp := o.vp
	speed := o.defaults.AutoRotateSpeed
	o.mu.Unlock()
	if vp == nil {
		return false
	}
	if on {
		vp.StartAutoRotate(speed)
	} else {
		vp.StopAutoRotate()
	}
	return true
}

// ToggleFullscreen toggles the viewer's fullscreen state.
func (o *Overlay) ToggleFullscreen() bool {
	vp := o.viewer()
	if vp == nil {
		return false
	}
	vp.ToggleFullscreen()
	return true
}

// Status returns the lifecycle state and, for StatusError, the message.
func (o *Overlay) Status() (Status, string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status, o.errMsg
}

// ViewState returns the last view read from the viewer.
func (o *Overlay) ViewState() models.ViewState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.view
}

// Scale returns the zoom compensation scale in effect.
func (o *Overlay) Scale() float64 {
	return o.comp.Scale()
}

// EffectiveScale composes the zoom scale with the hover scale of the
// hotspot's shape.
func (o *Overlay) EffectiveScale(hotspotID string) (float64, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	m, ok := o.markers[hotspotID]
	if !ok {
		return 0, false
	}
	return o.comp.Scale() * m.Shape.HoverScale(), true
}

type hoverer interface {
	Hover(id string, enter bool) error
}

// Hover dispatches pointer enter or leave on a hotspot marker. Marker trees
// are only mutated with o.mu held, so hovering is serialised with rescale
// passes and markup rendering.
func (o *Overlay) Hover(hotspotID string, enter bool) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	hv, ok := o.vp.(hoverer)
	if !ok {
		return ErrNoViewer
	}
	return hv.Hover(hotspotID, enter)
}

// Marker returns the tree built for a hotspot on the live viewer.
func (o *Overlay) Marker(hotspotID string) (*Marker, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	m, ok := o.markers[hotspotID]
	return m, ok
}

// Props returns a copy of the inputs last applied.
func (o *Overlay) Props() Props {
	o.mu.Lock()
	defer o.mu.Unlock()
	p := o.props
	p.Hotspots = models.CloneHotspots(p.Hotspots)
	return p
}

// Config returns the construction record of the live viewer.
func (o *Overlay) Config() viewport.Config {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cfg
}

// Viewport returns the live viewer, or nil.
func (o *Overlay) Viewport() viewport.Viewport {
	return o.viewer()
}

// Mount returns the element viewers are mounted on.
func (o *Overlay) Mount() *render.Element {
	return o.mount
}

// RenderedMarker is the serialised marker markup for one hotspot.
type RenderedMarker struct {
	ID    string  `json:"id"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
	HTML  string  `json:"html"`
}

// RenderedMarkers serialises every hotspot container in collection order.
func (o *Overlay) RenderedMarkers() ([]RenderedMarker, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]RenderedMarker, 0, len(o.props.Hotspots))
	for _, h := range o.props.Hotspots {
		m, ok := o.markers[h.ID]
		if !ok || m.Marker.Parent == nil {
			continue
		}
		markup, err := m.Marker.Parent.HTML()
		if err != nil {
			return nil, fmt.Errorf("overlay: render marker %s: %w", h.ID, err)
		}
		out = append(out, RenderedMarker{ID: h.ID, Pitch: h.Pitch, Yaw: h.Yaw, HTML: markup})
	}
	return out, nil
}
