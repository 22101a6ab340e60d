package render

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/pano-hotspots/backend/internal/models"
)

const (
	centerTransform = "translate(-50%, -50%)"

	// HoverScale is the uniform scale applied while the pointer is over a shape.
	HoverScale = 1.1
	// HoverOpacity is the opacity applied while the pointer is over a shape.
	HoverOpacity = 1.0
)

// PolygonLayout is the drawing surface computed for a polygon shape.
type PolygonLayout struct {
	MinX, MinY    float64
	Width, Height float64 // bounding box
	SurfaceWidth  float64 // bounding box plus stroke on both sides
	SurfaceHeight float64
	Points        []models.Point // translated into surface coordinates
}

// LayoutPolygon computes the bounding box of points and translates every
// point by (-minX+borderWidth, -minY+borderWidth), so the stroke is never
// clipped by the surface edge. points must not be empty.
func LayoutPolygon(points []models.Point, borderWidth float64) PolygonLayout {
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i], ys[i] = p.X, p.Y
	}

	minX, maxX := floats.Min(xs), floats.Max(xs)
	minY, maxY := floats.Min(ys), floats.Max(ys)

	l := PolygonLayout{
		MinX:   minX,
		MinY:   minY,
		Width:  maxX - minX,
		Height: maxY - minY,
		Points: make([]models.Point, len(points)),
	}
	l.SurfaceWidth = l.Width + 2*borderWidth
	l.SurfaceHeight = l.Height + 2*borderWidth

	dx, dy := -minX+borderWidth, -minY+borderWidth
	for i, p := range points {
		l.Points[i] = models.Point{X: p.X + dx, Y: p.Y + dy}
	}
	return l
}

// PointsAttr formats points for an SVG points attribute.
func PointsAttr(points []models.Point) string {
	parts := make([]string, len(points))
	for i, p := range points {
		parts[i] = formatFloat(p.X) + "," + formatFloat(p.Y)
	}
	return strings.Join(parts, " ")
}

// ShapeView is a rendered shape: the element added to the mount point plus
// the geometry it was built from.
type ShapeView struct {
	Element *Element
	// Kind is the kind actually drawn. It differs from the record's kind only
	// when an invalid polygon degraded to the fallback circle.
	Kind     models.ShapeKind
	Degraded bool
	Width    float64
	Height   float64
	Polygon  *PolygonLayout

	paint   models.Paint
	hovered bool
	// target receives hover styling: the div for box shapes, the polygon
	// path for SVG shapes.
	target *Element
}

// Render draws shape into mount and returns the view. It never fails: a
// polygon with fewer than three points is drawn as a circle of the fallback
// radius and flagged Degraded. The shape value itself is never modified.
func Render(shape models.Shape, mount *Element) *ShapeView {
	paint := shape.Paint
	v := &ShapeView{paint: paint}

	switch g := shape.Geometry.(type) {
	case models.Polygon:
		if len(g.Points) >= models.MinPolygonPoints {
			v.renderPolygon(g.Points, paint)
			break
		}
		v.Degraded = true
		v.renderBox(models.ShapeCircle, 2*models.FallbackRadius, 2*models.FallbackRadius, paint)
	case models.Circle:
		v.renderBox(models.ShapeCircle, 2*g.Radius, 2*g.Radius, paint)
	case models.Square:
		v.renderBox(models.ShapeSquare, g.Side, g.Side, paint)
	case models.Rectangle:
		v.renderBox(models.ShapeRectangle, g.Width, g.Height, paint)
	default:
		v.Degraded = true
		v.renderBox(models.ShapeCircle, 2*models.FallbackRadius, 2*models.FallbackRadius, paint)
	}

	mount.Append(v.Element)
	hoverSource := v.Element
	if v.Kind == models.ShapePolygon {
		// The SVG surface does not receive pointer events outside its path,
		// so hover is tracked on the mount point.
		hoverSource = mount
	}
	hoverSource.On(EventPointerEnter, v.PointerEnter)
	hoverSource.On(EventPointerLeave, v.PointerLeave)
	return v
}

func (v *ShapeView) renderBox(kind models.ShapeKind, w, h float64, paint models.Paint) {
	el := NewElement("div")
	el.Class = fmt.Sprintf("hotspot-shape hotspot-shape-%s", kind)
	el.Style["position"] = "absolute"
	el.Style["top"] = "50%"
	el.Style["left"] = "50%"
	el.Style["width"] = px(w)
	el.Style["height"] = px(h)
	el.Style["background-color"] = paint.FillColor
	el.Style["border"] = fmt.Sprintf("%s solid %s", px(paint.BorderWidth), paint.BorderColor)
	el.Style["opacity"] = formatFloat(paint.Opacity)
	el.Style["pointer-events"] = "auto"
	el.Style["cursor"] = "pointer"
	el.Style["transition"] = "all 0.3s ease"
	el.Style["transform"] = centerTransform
	if kind == models.ShapeCircle {
		el.Style["border-radius"] = "50%"
	}

	v.Element = el
	v.target = el
	v.Kind = kind
	v.Width, v.Height = w, h
}

func (v *ShapeView) renderPolygon(points []models.Point, paint models.Paint) {
	layout := LayoutPolygon(points, paint.BorderWidth)

	svg := NewSVGElement("svg")
	svg.Class = "hotspot-shape hotspot-shape-polygon"
	svg.Attrs["width"] = formatFloat(layout.SurfaceWidth)
	svg.Attrs["height"] = formatFloat(layout.SurfaceHeight)
	svg.Style["position"] = "absolute"
	svg.Style["top"] = "50%"
	svg.Style["left"] = "50%"
	svg.Style["transform"] = centerTransform

	poly := NewSVGElement("polygon")
	poly.Attrs["points"] = PointsAttr(layout.Points)
	poly.Attrs["fill"] = paint.FillColor
	poly.Attrs["stroke"] = paint.BorderColor
	poly.Attrs["stroke-width"] = formatFloat(paint.BorderWidth)
	poly.Style["opacity"] = formatFloat(paint.Opacity)
	svg.Append(poly)

	v.Element = svg
	v.target = poly
	v.Kind = models.ShapePolygon
	v.Width, v.Height = layout.SurfaceWidth, layout.SurfaceHeight
	v.Polygon = &layout
}

// PointerEnter applies the hover opacity and scale.
func (v *ShapeView) PointerEnter() {
	v.hovered = true
	v.applyHover()
}

// PointerLeave restores the base opacity and a 1x scale.
func (v *ShapeView) PointerLeave() {
	v.hovered = false
	v.applyHover()
}

func (v *ShapeView) applyHover() {
	v.target.Style["opacity"] = formatFloat(v.Opacity())
	v.Element.Style["transform"] = fmt.Sprintf("%s scale(%s)", centerTransform, formatFloat(v.HoverScale()))
}

// Hovered reports whether the pointer is over the shape.
func (v *ShapeView) Hovered() bool { return v.hovered }

// Opacity is the opacity currently applied.
func (v *ShapeView) Opacity() float64 {
	if v.hovered {
		return HoverOpacity
	}
	return v.paint.Opacity
}

// HoverScale is the scale contributed by hover state. It composes
// multiplicatively with the zoom compensation scale of the marker.
func (v *ShapeView) HoverScale() float64 {
	if v.hovered {
		return HoverScale
	}
	return 1
}
