package overlay

import (
	"github.com/pano-hotspots/backend/internal/models"
	"github.com/pano-hotspots/backend/internal/render"
)

// Class names of the marker tree built into each hotspot container.
const (
	MarkerClass         = "hotspot-marker"
	MarkerEditClass     = "hotspot-marker-edit"
	MarkerSelectedClass = "hotspot-marker-selected"
	EditIndicatorClass  = "hotspot-edit-indicator"
	SelectionRingClass  = "hotspot-selection-ring"
	TooltipClass        = "custom-tooltip"
	HotspotCSSClass     = "custom-hotspot"
)

// Marker is the tree built for one hotspot.
type Marker struct {
	HotspotID string
	// Marker is the element zoom compensation scales.
	Marker  *render.Element
	Tooltip *render.Element
	Shape   *render.ShapeView
}

// BuildMarker appends the marker container and the tooltip body to div.
func BuildMarker(div *render.Element, h models.Hotspot, editMode, selected bool) *Marker {
	marker := render.NewElement("div")
	marker.Class = MarkerClass
	if editMode {
		marker.Class += " " + MarkerEditClass
	}
	if selected {
		marker.Class += " " + MarkerSelectedClass
	}
	marker.Attrs["data-hotspot-id"] = h.ID
	marker.Style["position"] = "relative"
	marker.Style["cursor"] = "pointer"
	div.Append(marker)

	view := render.Render(h.Shape, marker)

	if editMode {
		badge := render.NewElement("div")
		badge.Class = EditIndicatorClass
		badge.Text = "✏️"
		badge.Style["position"] = "absolute"
		badge.Style["top"] = "-8px"
		badge.Style["right"] = "-8px"
		badge.Style["font-size"] = "12px"
		badge.Style["pointer-events"] = "none"
		marker.Append(badge)
	}

	if selected {
		ring := render.NewElement("div")
		ring.Class = SelectionRingClass
		ring.Style["position"] = "absolute"
		ring.Style["top"] = "50%"
		ring.Style["left"] = "50%"
		ring.Style["transform"] = "translate(-50%, -50%)"
		ring.Style["width"] = "calc(100% + 12px)"
		ring.Style["height"] = "calc(100% + 12px)"
		ring.Style["border"] = "2px dashed #f59e0b"
		ring.Style["border-radius"] = "50%"
		ring.Style["animation"] = "hotspot-pulse 1.5s ease-in-out infinite"
		ring.Style["pointer-events"] = "none"
		marker.Append(ring)
	}

	tooltip := render.NewElement("div")
	tooltip.Class = TooltipClass
	text := render.NewElement("div")
	text.Class = "hotspot-text"
	if editMode {
		text.Text = h.Label + " - click to edit"
		text.Style["font-size"] = "12px"
		text.Style["padding"] = "4px 8px"
	} else {
		title := render.NewElement("div")
		title.Class = "hotspot-title"
		title.Text = h.Label
		text.Append(title)
		if h.Description != "" {
			desc := render.NewElement("div")
			desc.Class = "hotspot-description"
			desc.Text = h.Description
			text.Append(desc)
		}
	}
	tooltip.Append(text)
	div.Append(tooltip)

	return &Marker{HotspotID: h.ID, Marker: marker, Tooltip: tooltip, Shape: view}
}
