// Package models contains domain types for the panorama hotspot overlay.
package models

import (
	"errors"
	"fmt"
)

// ShapeKind discriminates the geometry payload of a Shape.
type ShapeKind string

const (
	ShapeCircle    ShapeKind = "circle"
	ShapeSquare    ShapeKind = "square"
	ShapeRectangle ShapeKind = "rectangle"
	ShapePolygon   ShapeKind = "polygon"
)

// ShapeKinds lists every kind in editor order.
var ShapeKinds = []ShapeKind{ShapeCircle, ShapeSquare, ShapeRectangle, ShapePolygon}

// Paint defaults applied when a record omits them.
const (
	DefaultFillColor   = "rgba(59, 130, 246, 0.3)"
	DefaultBorderColor = "#3b82f6"
	DefaultBorderWidth = 3.0
	DefaultOpacity     = 0.7
)

// Payload defaults used when a stored shape is missing its size fields.
const (
	FallbackRadius          = 25.0
	FallbackSquareSide      = 50.0
	FallbackRectangleWidth  = 60.0
	FallbackRectangleHeight = 40.0
)

// MinPolygonPoints is the smallest point count a polygon may have.
const MinPolygonPoints = 3

var (
	ErrUnknownShapeKind = errors.New("unknown shape kind")
	ErrMissingGeometry  = errors.New("shape has no geometry")
	ErrInvalidShape     = errors.New("invalid shape")
)

// Point is a polygon vertex in marker-local pixels.
type Point struct {
	X float64 `json:"x" yaml:"x" msgpack:"x"`
	Y float64 `json:"y" yaml:"y" msgpack:"y"`
}

// Paint holds the attributes shared by every shape kind.
type Paint struct {
	FillColor   string
	BorderColor string
	BorderWidth float64
	Opacity     float64
}

// DefaultPaint returns the semi-transparent blue used for new hotspots.
func DefaultPaint() Paint {
	return Paint{
		FillColor:   DefaultFillColor,
		BorderColor: DefaultBorderColor,
		BorderWidth: DefaultBorderWidth,
		Opacity:     DefaultOpacity,
	}
}

// Geometry is the per-kind payload of a Shape. Exactly one implementation
// is held at a time, so a shape can never carry fields of another kind.
type Geometry interface {
	Kind() ShapeKind
	clone() Geometry
}

// Circle is a disc of the given radius.
type Circle struct {
	Radius float64
}

// Square has equal sides.
type Square struct {
	Side float64
}

// Rectangle is an axis-aligned box.
type Rectangle struct {
	Width  float64
	Height float64
}

// Polygon is a closed path through Points in order.
type Polygon struct {
	Points []Point
}

func (Circle) Kind() ShapeKind    { return ShapeCircle }
func (Square) Kind() ShapeKind    { return ShapeSquare }
func (Rectangle) Kind() ShapeKind { return ShapeRectangle }
func (Polygon) Kind() ShapeKind   { return ShapePolygon }

func (c Circle) clone() Geometry    { return c }
func (s Square) clone() Geometry    { return s }
func (r Rectangle) clone() Geometry { return r }
func (p Polygon) clone() Geometry {
	pts := make([]Point, len(p.Points))
	copy(pts, p.Points)
	return Polygon{Points: pts}
}

// Shape is the visual geometry of a hotspot.
type Shape struct {
	Geometry Geometry
	Paint    Paint
}

// NewShape pairs a geometry with the default paint.
func NewShape(g Geometry) Shape {
	return Shape{Geometry: g, Paint: DefaultPaint()}
}

// DefaultDiamond is the four-point polygon seeded when switching to polygon.
func DefaultDiamond() []Point {
	return []Point{{X: 0, Y: 20}, {X: 20, Y: 0}, {X: 40, Y: 20}, {X: 20, Y: 40}}
}

// DefaultGeometry returns the fixed starting payload for kind.
func DefaultGeometry(kind ShapeKind) (Geometry, error) {
	switch kind {
	case ShapeCircle:
		return Circle{Radius: 30}, nil
	case ShapeSquare:
		return Square{Side: 50}, nil
	case ShapeRectangle:
		return Rectangle{Width: 60, Height: 40}, nil
	case ShapePolygon:
		return Polygon{Points: DefaultDiamond()}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownShapeKind, kind)
}

// Kind returns the discriminant, or "" for a zero Shape.
func (s Shape) Kind() ShapeKind {
	if s.Geometry == nil {
		return ""
	}
	return s.Geometry.Kind()
}

// Clone returns a deep copy.
func (s Shape) Clone() Shape {
	out := Shape{Paint: s.Paint}
	if s.Geometry != nil {
		out.Geometry = s.Geometry.clone()
	}
	return out
}

// WithGeometry returns a copy of s carrying g and the same paint.
func (s Shape) WithGeometry(g Geometry) Shape {
	return Shape{Geometry: g.clone(), Paint: s.Paint}
}

// Points returns a copy of the polygon points, or nil for other kinds.
func (s Shape) Points() []Point {
	p, ok := s.Geometry.(Polygon)
	if !ok {
		return nil
	}
	return p.clone().(Polygon).Points
}

// Validate checks the payload against the shape invariants.
func (s Shape) Validate() error {
	switch g := s.Geometry.(type) {
	case nil:
		return ErrMissingGeometry
	case Circle:
		if g.Radius <= 0 {
			return fmt.Errorf("%w: radius must be positive", ErrInvalidShape)
		}
	case Square:
		if g.Side <= 0 {
			return fmt.Errorf("%w: side must be positive", ErrInvalidShape)
		}
	case Rectangle:
		if g.Width <= 0 || g.Height <= 0 {
			return fmt.Errorf("%w: width and height must be positive", ErrInvalidShape)
		}
	case Polygon:
		if len(g.Points) < MinPolygonPoints {
			return fmt.Errorf("%w: polygon needs at least %d points, has %d", ErrInvalidShape, MinPolygonPoints, len(g.Points))
		}
	default:
		return fmt.Errorf("%w: %T", ErrUnknownShapeKind, g)
	}
	if s.Paint.BorderWidth < 0 {
		return fmt.Errorf("%w: border width must not be negative", ErrInvalidShape)
	}
	if s.Paint.Opacity < 0 || s.Paint.Opacity > 1 {
		return fmt.Errorf("%w: opacity must be within [0,1]", ErrInvalidShape)
	}
	return nil
}
