// Package viewport describes the spherical panorama viewer the overlay
// drives, and provides Sim, an in-memory viewer that mirrors the state of a
// remote browser viewer.
package viewport

import (
	"errors"

	"github.com/pano-hotspots/backend/internal/render"
)

// Viewer events.
const (
	EventLoad       = "load"
	EventError      = "error"
	EventMouseUp    = "mouseup"
	EventTouchEnd   = "touchend"
	EventZoomChange = "zoomchange"
)

// ViewChangeEvents are the events after which the view state is re-read.
var ViewChangeEvents = []string{EventMouseUp, EventTouchEnd, EventZoomChange}

// ProjectionEquirectangular is the only projection the overlay uses.
const ProjectionEquirectangular = "equirectangular"

var (
	ErrNoMount   = errors.New("viewport: mount element is required")
	ErrNoImage   = errors.New("viewport: image url is required")
	ErrMountBusy = errors.New("viewport: mount element already hosts a live viewer")
	ErrDestroyed = errors.New("viewport: viewer destroyed")
)

// MarkerDef anchors one hotspot. CreateTooltip is called by the viewer at
// render time with the hotspot's container and must return the tooltip
// element synchronously.
type MarkerDef struct {
	ID            string
	Pitch         float64
	Yaw           float64
	Text          string
	CSSClass      string
	CreateTooltip func(hotSpotDiv *render.Element) *render.Element
	Click         func()
}

// Config is the viewer construction record.
type Config struct {
	Projection       string      `json:"type"`
	ImageURL         string      `json:"panorama"`
	AutoLoad         bool        `json:"autoLoad"`
	AutoRotateSpeed  float64     `json:"autoRotate"`
	ShowControls     bool        `json:"showControls"`
	MouseZoomEnabled bool        `json:"mouseZoom"`
	HFOV             float64     `json:"hfov"`
	MinHFOV          float64     `json:"minHfov"`
	MaxHFOV          float64     `json:"maxHfov"`
	InitialPitch     float64     `json:"pitch"`
	InitialYaw       float64     `json:"yaw"`
	Markers          []MarkerDef `json:"-"`
}

// Handler receives event arguments.
type Handler func(args ...any)

// Viewport is the external spherical viewer.
type Viewport interface {
	Destroy()
	Pitch() float64
	SetPitch(pitch float64, animated bool)
	Yaw() float64
	SetYaw(yaw float64, animated bool)
	HFOV() float64
	SetHFOV(hfov float64, animated bool)
	StartAutoRotate(speed float64)
	StopAutoRotate()
	ToggleFullscreen()
	On(event string, h Handler)
}

// Factory constructs a viewer on mount.
type Factory func(mount *render.Element, cfg Config) (Viewport, error)
