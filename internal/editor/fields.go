package editor

import (
	"encoding/json"
	"fmt"

	"github.com/pano-hotspots/backend/internal/models"
)

// Hotspot field names accepted by UpdateField. They match the wire names.
const (
	FieldID          = "id"
	FieldPitch       = "pitch"
	FieldYaw         = "yaw"
	FieldType        = "type"
	FieldText        = "text"
	FieldDescription = "description"
)

// Shape field names accepted by UpdateShapeField.
const (
	ShapeFieldColor       = "color"
	ShapeFieldFillColor   = "fillColor"
	ShapeFieldBorderColor = "borderColor"
	ShapeFieldBorderWidth = "borderWidth"
	ShapeFieldOpacity     = "opacity"
	ShapeFieldRadius      = "radius"
	ShapeFieldWidth       = "width"
	ShapeFieldSide        = "side"
	ShapeFieldHeight      = "height"
	ShapeFieldPoints      = "points"
)

func setHotspotField(h *models.Hotspot, name string, v any) error {
	var err error
	switch name {
	case FieldID:
		h.ID, err = toString(name, v)
	case FieldPitch:
		h.Pitch, err = toFloat(name, v)
	case FieldYaw:
		h.Yaw, err = toFloat(name, v)
	case FieldType:
		var s string
		if s, err = toString(name, v); err == nil {
			switch k := models.HotspotKind(s); k {
			case models.HotspotInfo, models.HotspotScene:
				h.Kind = k
			default:
				err = fmt.Errorf("%w: type %q", ErrInvalidValue, s)
			}
		}
	case FieldText:
		h.Label, err = toString(name, v)
	case FieldDescription:
		h.Description, err = toString(name, v)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	return err
}

func setShapeField(s *models.Shape, name string, v any) error {
	var err error
	switch name {
	case ShapeFieldColor, ShapeFieldFillColor:
		s.Paint.FillColor, err = toString(name, v)
		return err
	case ShapeFieldBorderColor:
		s.Paint.BorderColor, err = toString(name, v)
		return err
	case ShapeFieldBorderWidth:
		s.Paint.BorderWidth, err = toFloat(name, v)
		return err
	case ShapeFieldOpacity:
		s.Paint.Opacity, err = toFloat(name, v)
		return err
	case ShapeFieldPoints:
		p, ok := s.Geometry.(models.Polygon)
		if !ok {
			return foreignField(s, name)
		}
		if p.Points, err = toPoints(v); err != nil {
			return err
		}
		s.Geometry = p
		return nil
	}

	f, err := toFloat(name, v)
	if err != nil {
		if _, known := sizeFields[name]; !known {
			return fmt.Errorf("%w: %s", ErrUnknownField, name)
		}
		return err
	}
	switch g := s.Geometry.(type) {
	case models.Circle:
		if name != ShapeFieldRadius {
			return foreignField(s, name)
		}
		g.Radius = f
		s.Geometry = g
	case models.Square:
		if name != ShapeFieldWidth && name != ShapeFieldSide {
			return foreignField(s, name)
		}
		g.Side = f
		s.Geometry = g
	case models.Rectangle:
		switch name {
		case ShapeFieldWidth:
			g.Width = f
		case ShapeFieldHeight:
			g.Height = f
		default:
			return foreignField(s, name)
		}
		s.Geometry = g
	default:
		return foreignField(s, name)
	}
	return nil
}

var sizeFields = map[string]struct{}{
	ShapeFieldRadius: {},
	ShapeFieldWidth:  {},
	ShapeFieldSide:   {},
	ShapeFieldHeight: {},
}

func foreignField(s *models.Shape, name string) error {
	if _, known := sizeFields[name]; !known && name != ShapeFieldPoints {
		return fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	return fmt.Errorf("%w: %s does not apply to %q shapes", ErrInvalidValue, name, s.Kind())
}

func toString(name string, v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string", ErrInvalidValue, name)
	}
	return s, nil
}

func toFloat(name string, v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %v", ErrInvalidValue, name, err)
		}
		return f, nil
	}
	return 0, fmt.Errorf("%w: %s must be a number", ErrInvalidValue, name)
}

// toPoints accepts []models.Point or the generic form produced by decoding
// JSON into an interface value.
func toPoints(v any) ([]models.Point, error) {
	switch pts := v.(type) {
	case []models.Point:
		return append([]models.Point(nil), pts...), nil
	case []any:
		out := make([]models.Point, len(pts))
		for i, raw := range pts {
			m, ok := raw.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: points[%d] must be an object", ErrInvalidValue, i)
			}
			x, err := toFloat(fmt.Sprintf("points[%d].x", i), m["x"])
			if err != nil {
				return nil, err
			}
			y, err := toFloat(fmt.Sprintf("points[%d].y", i), m["y"])
			if err != nil {
				return nil, err
			}
			out[i] = models.Point{X: x, Y: y}
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: points must be a list", ErrInvalidValue)
}
