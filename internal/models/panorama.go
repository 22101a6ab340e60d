package models

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// HotspotKind is the behaviour class of a hotspot.
type HotspotKind string

const (
	HotspotInfo  HotspotKind = "info"
	HotspotScene HotspotKind = "scene"
)

// Angle bounds for hotspot anchors, in degrees.
const (
	MinPitch = -90.0
	MaxPitch = 90.0
	MinYaw   = -180.0
	MaxYaw   = 180.0
)

var ErrInvalidHotspot = errors.New("invalid hotspot")

// Hotspot is a labeled point of interest anchored to spherical coordinates.
type Hotspot struct {
	ID          string      `json:"id" yaml:"id" msgpack:"id"`
	Pitch       float64     `json:"pitch" yaml:"pitch" msgpack:"pitch"`
	Yaw         float64     `json:"yaw" yaml:"yaw" msgpack:"yaw"`
	Kind        HotspotKind `json:"type" yaml:"type" msgpack:"type"`
	Label       string      `json:"text" yaml:"text" msgpack:"text"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty" msgpack:"description,omitempty"`
	Shape       Shape       `json:"shape" yaml:"shape" msgpack:"shape"`
}

// Clone returns a deep copy.
func (h Hotspot) Clone() Hotspot {
	h.Shape = h.Shape.Clone()
	return h
}

// Normalize clamps the anchor angles and paint values into range.
func (h *Hotspot) Normalize() {
	h.Pitch = clamp(h.Pitch, MinPitch, MaxPitch)
	h.Yaw = clamp(h.Yaw, MinYaw, MaxYaw)
	h.Shape.Paint.Opacity = clamp(h.Shape.Paint.Opacity, 0, 1)
	h.Shape.Paint.BorderWidth = math.Max(h.Shape.Paint.BorderWidth, 0)
	if h.Kind == "" {
		h.Kind = HotspotInfo
	}
}

// Validate checks the record invariants.
func (h Hotspot) Validate() error {
	if h.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidHotspot)
	}
	if h.Pitch < MinPitch || h.Pitch > MaxPitch {
		return fmt.Errorf("%w: pitch %v out of range", ErrInvalidHotspot, h.Pitch)
	}
	if h.Yaw < MinYaw || h.Yaw > MaxYaw {
		return fmt.Errorf("%w: yaw %v out of range", ErrInvalidHotspot, h.Yaw)
	}
	switch h.Kind {
	case HotspotInfo, HotspotScene:
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidHotspot, h.Kind)
	}
	if err := h.Shape.Validate(); err != nil {
		return fmt.Errorf("hotspot %s: %w", h.ID, err)
	}
	return nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

// Panorama is an equirectangular image with its ordered hotspots.
type Panorama struct {
	ID           int        `json:"id" yaml:"id" msgpack:"id"`
	Title        string     `json:"title" yaml:"title" msgpack:"title"`
	ImageURL     string     `json:"imageUrl" yaml:"imageUrl" msgpack:"imageUrl"`
	ThumbnailURL string     `json:"thumbnailUrl,omitempty" yaml:"thumbnailUrl,omitempty" msgpack:"thumbnailUrl,omitempty"`
	Description  string     `json:"description,omitempty" yaml:"description,omitempty" msgpack:"description,omitempty"`
	CreatedAt    *time.Time `json:"createdAt,omitempty" yaml:"createdAt,omitempty" msgpack:"createdAt,omitempty"`
	UpdatedAt    *time.Time `json:"updatedAt,omitempty" yaml:"updatedAt,omitempty" msgpack:"updatedAt,omitempty"`
	Hotspots     []Hotspot  `json:"hotspots" yaml:"hotspots" msgpack:"hotspots"`
}

// Clone returns a deep copy, including every hotspot.
func (p Panorama) Clone() Panorama {
	p.Hotspots = CloneHotspots(p.Hotspots)
	if p.CreatedAt != nil {
		t := *p.CreatedAt
		p.CreatedAt = &t
	}
	if p.UpdatedAt != nil {
		t := *p.UpdatedAt
		p.UpdatedAt = &t
	}
	return p
}

// FindHotspot returns the index of the hotspot with id, or -1.
func (p Panorama) FindHotspot(id string) int {
	for i, h := range p.Hotspots {
		if h.ID == id {
			return i
		}
	}
	return -1
}

// CloneHotspots deep-copies a hotspot slice. A nil input yields an empty slice.
func CloneHotspots(in []Hotspot) []Hotspot {
	out := make([]Hotspot, len(in))
	for i, h := range in {
		out[i] = h.Clone()
	}
	return out
}

// ViewState is the viewport's current direction and zoom.
type ViewState struct {
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
	HFOV  float64 `json:"hfov"`
}

// Rounded returns the whole-degree readout shown to users.
func (v ViewState) Rounded() ViewState {
	return ViewState{Pitch: math.Round(v.Pitch), Yaw: math.Round(v.Yaw), HFOV: math.Round(v.HFOV)}
}
