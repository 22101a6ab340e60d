package models

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

// shapeWire is the flat record exchanged with clients and seed files.
// It mirrors the panorama API's shape DTO: "color" is the fill and a
// square stores its side in "width". "fillColor" and "side" are accepted
// on input as aliases.
type shapeWire struct {
	Type        ShapeKind `json:"type" yaml:"type" msgpack:"type"`
	Radius      *float64  `json:"radius,omitempty" yaml:"radius,omitempty" msgpack:"radius,omitempty"`
	Side        *float64  `json:"side,omitempty" yaml:"side,omitempty" msgpack:"side,omitempty"`
	Width       *float64  `json:"width,omitempty" yaml:"width,omitempty" msgpack:"width,omitempty"`
	Height      *float64  `json:"height,omitempty" yaml:"height,omitempty" msgpack:"height,omitempty"`
	Points      []Point   `json:"points,omitempty" yaml:"points,omitempty" msgpack:"points,omitempty"`
	Color       string    `json:"color,omitempty" yaml:"color,omitempty" msgpack:"color,omitempty"`
	FillColor   string    `json:"fillColor,omitempty" yaml:"fillColor,omitempty" msgpack:"fillColor,omitempty"`
	BorderColor string    `json:"borderColor,omitempty" yaml:"borderColor,omitempty" msgpack:"borderColor,omitempty"`
	BorderWidth *float64  `json:"borderWidth,omitempty" yaml:"borderWidth,omitempty" msgpack:"borderWidth,omitempty"`
	Opacity     *float64  `json:"opacity,omitempty" yaml:"opacity,omitempty" msgpack:"opacity,omitempty"`
}

func ptr(v float64) *float64 { return &v }

func (s Shape) toWire() (shapeWire, error) {
	w := shapeWire{
		Color:       s.Paint.FillColor,
		BorderColor: s.Paint.BorderColor,
		BorderWidth: ptr(s.Paint.BorderWidth),
		Opacity:     ptr(s.Paint.Opacity),
	}
	switch g := s.Geometry.(type) {
	case Circle:
		w.Type = ShapeCircle
		w.Radius = ptr(g.Radius)
	case Square:
		w.Type = ShapeSquare
		w.Width = ptr(g.Side)
	case Rectangle:
		w.Type = ShapeRectangle
		w.Width = ptr(g.Width)
		w.Height = ptr(g.Height)
	case Polygon:
		w.Type = ShapePolygon
		w.Points = make([]Point, len(g.Points))
		copy(w.Points, g.Points)
	case nil:
		return w, ErrMissingGeometry
	default:
		return w, fmt.Errorf("%w: %T", ErrUnknownShapeKind, g)
	}
	return w, nil
}

func valueOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func (w shapeWire) toShape() (Shape, error) {
	var s Shape
	switch w.Type {
	case ShapeCircle:
		s.Geometry = Circle{Radius: valueOr(w.Radius, FallbackRadius)}
	case ShapeSquare:
		side := w.Side
		if side == nil {
			side = w.Width
		}
		s.Geometry = Square{Side: valueOr(side, FallbackSquareSide)}
	case ShapeRectangle:
		s.Geometry = Rectangle{
			Width:  valueOr(w.Width, FallbackRectangleWidth),
			Height: valueOr(w.Height, FallbackRectangleHeight),
		}
	case ShapePolygon:
		pts := make([]Point, len(w.Points))
		copy(pts, w.Points)
		s.Geometry = Polygon{Points: pts}
	default:
		return s, fmt.Errorf("%w: %q", ErrUnknownShapeKind, w.Type)
	}

	s.Paint = Paint{
		FillColor:   w.Color,
		BorderColor: w.BorderColor,
		BorderWidth: valueOr(w.BorderWidth, DefaultBorderWidth),
		Opacity:     valueOr(w.Opacity, DefaultOpacity),
	}
	if s.Paint.FillColor == "" {
		s.Paint.FillColor = w.FillColor
	}
	if s.Paint.FillColor == "" {
		s.Paint.FillColor = DefaultFillColor
	}
	if s.Paint.BorderColor == "" {
		s.Paint.BorderColor = DefaultBorderColor
	}
	return s, nil
}

// MarshalJSON implements json.Marshaler.
func (s Shape) MarshalJSON() ([]byte, error) {
	w, err := s.toWire()
	if err != nil {
		return nil, err
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Shape) UnmarshalJSON(data []byte) error {
	var w shapeWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	out, err := w.toShape()
	if err != nil {
		return err
	}
	*s = out
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (s Shape) MarshalYAML() (interface{}, error) {
	return s.toWire()
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *Shape) UnmarshalYAML(value *yaml.Node) error {
	var w shapeWire
	if err := value.Decode(&w); err != nil {
		return err
	}
	out, err := w.toShape()
	if err != nil {
		return err
	}
	*s = out
	return nil
}

var (
	_ msgpack.CustomEncoder = Shape{}
	_ msgpack.CustomDecoder = (*Shape)(nil)
)

// EncodeMsgpack implements msgpack.CustomEncoder.
func (s Shape) EncodeMsgpack(enc *msgpack.Encoder) error {
	w, err := s.toWire()
	if err != nil {
		return err
	}
	return enc.Encode(w)
}

// DecodeMsgpack implements msgpack.CustomDecoder.
func (s *Shape) DecodeMsgpack(dec *msgpack.Decoder) error {
	var w shapeWire
	if err := dec.Decode(&w); err != nil {
		return err
	}
	out, err := w.toShape()
	if err != nil {
		return err
	}
	*s = out
	return nil
}
