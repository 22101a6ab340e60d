package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

func TestShapeUnmarshalJSON_Defaults(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Shape
	}{
		{
			name: "circle without radius",
			in:   `{"type":"circle"}`,
			want: Shape{Geometry: Circle{Radius: FallbackRadius}, Paint: DefaultPaint()},
		},
		{
			name: "square stored as width",
			in:   `{"type":"square","width":70,"color":"red"}`,
			want: Shape{Geometry: Square{Side: 70}, Paint: Paint{FillColor: "red", BorderColor: DefaultBorderColor, BorderWidth: 3, Opacity: 0.7}},
		},
		{
			name: "square side alias wins over width",
			in:   `{"type":"square","side":20,"width":70}`,
			want: Shape{Geometry: Square{Side: 20}, Paint: DefaultPaint()},
		},
		{
			name: "rectangle fills missing height",
			in:   `{"type":"rectangle","width":80}`,
			want: Shape{Geometry: Rectangle{Width: 80, Height: FallbackRectangleHeight}, Paint: DefaultPaint()},
		},
		{
			name: "explicit zero border is kept",
			in:   `{"type":"circle","radius":10,"borderWidth":0,"opacity":1,"fillColor":"#fff"}`,
			want: Shape{Geometry: Circle{Radius: 10}, Paint: Paint{FillColor: "#fff", BorderColor: DefaultBorderColor, BorderWidth: 0, Opacity: 1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Shape
			require.NoError(t, json.Unmarshal([]byte(tt.in), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestShapeUnmarshalJSON_UnknownKind(t *testing.T) {
	var s Shape
	err := json.Unmarshal([]byte(`{"type":"hexagon"}`), &s)
	assert.ErrorIs(t, err, ErrUnknownShapeKind)
}

func TestShapeMarshalJSON_OnlyOwnKindFields(t *testing.T) {
	data, err := json.Marshal(NewShape(Circle{Radius: 30}))
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "circle", raw["type"])
	assert.Equal(t, 30.0, raw["radius"])
	assert.NotContains(t, raw, "width")
	assert.NotContains(t, raw, "height")
	assert.NotContains(t, raw, "points")
}

func TestShapeMarshalJSON_ZeroShape(t *testing.T) {
	_, err := json.Marshal(Shape{})
	assert.Error(t, err)
}

func TestShapeYAMLAndMsgpack(t *testing.T) {
	src := `
id: weapon
pitch: -12
yaw: 40
type: info
text: Crime Weapon
shape:
  type: polygon
  points:
    - {x: 0, y: 20}
    - {x: 20, y: 0}
    - {x: 40, y: 20}
  borderWidth: 2
`
	var h Hotspot
	require.NoError(t, yaml.Unmarshal([]byte(src), &h))
	assert.Equal(t, ShapePolygon, h.Shape.Kind())
	assert.Len(t, h.Shape.Points(), 3)
	assert.Equal(t, 2.0, h.Shape.Paint.BorderWidth)

	packed, err := msgpack.Marshal(h)
	require.NoError(t, err)
	var back Hotspot
	require.NoError(t, msgpack.Unmarshal(packed, &back))
	assert.Equal(t, h, back)
}

func TestShapeClone_DoesNotAliasPoints(t *testing.T) {
	s := NewShape(Polygon{Points: DefaultDiamond()})
	c := s.Clone()
	c.Geometry.(Polygon).Points[0].X = 99

	assert.Equal(t, 0.0, s.Points()[0].X)
}

func TestShapeValidate(t *testing.T) {
	tests := []struct {
		name    string
		shape   Shape
		wantErr bool
	}{
		{"circle", NewShape(Circle{Radius: 1}), false},
		{"zero radius", NewShape(Circle{}), true},
		{"square", NewShape(Square{Side: 5}), false},
		{"flat rectangle", NewShape(Rectangle{Width: 5}), true},
		{"triangle", NewShape(Polygon{Points: []Point{{0, 0}, {1, 0}, {0, 1}}}), false},
		{"segment", NewShape(Polygon{Points: []Point{{0, 0}, {1, 0}}}), true},
		{"no geometry", Shape{Paint: DefaultPaint()}, true},
		{"opacity above one", Shape{Geometry: Circle{Radius: 1}, Paint: Paint{Opacity: 1.5}}, true},
		{"negative border", Shape{Geometry: Circle{Radius: 1}, Paint: Paint{BorderWidth: -1, Opacity: 1}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.shape.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDefaultGeometry(t *testing.T) {
	for _, kind := range ShapeKinds {
		g, err := DefaultGeometry(kind)
		require.NoError(t, err)
		assert.Equal(t, kind, g.Kind())
		assert.NoError(t, NewShape(g).Validate())
	}

	_, err := DefaultGeometry("star")
	assert.ErrorIs(t, err, ErrUnknownShapeKind)
}

func TestHotspotNormalize(t *testing.T) {
	h := Hotspot{ID: "a", Pitch: 120, Yaw: -200, Shape: Shape{Geometry: Circle{Radius: 3}, Paint: Paint{Opacity: 2, BorderWidth: -4}}}
	h.Normalize()

	assert.Equal(t, MaxPitch, h.Pitch)
	assert.Equal(t, MinYaw, h.Yaw)
	assert.Equal(t, 1.0, h.Shape.Paint.Opacity)
	assert.Equal(t, 0.0, h.Shape.Paint.BorderWidth)
	assert.Equal(t, HotspotInfo, h.Kind)
	assert.NoError(t, h.Validate())
}
