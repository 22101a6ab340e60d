package editor

import (
	"io"
	"strings"
	"testing"

	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pano-hotspots/backend/internal/metrics"
	"github.com/pano-hotspots/backend/internal/models"
	"github.com/pano-hotspots/backend/internal/store"
	"github.com/pano-hotspots/backend/internal/testutil"
)

func newEditor(t *testing.T) (*Editor, *store.Store, *testutil.RecordingNotifier) {
	t.Helper()
	st := store.New(testutil.Panoramas())
	n := &testutil.RecordingNotifier{}
	logger := log.New("test")
	logger.SetOutput(io.Discard)
	ids := 0
	ed := New(Options{
		Store:    st,
		Notifier: n,
		Logger:   logger,
		NewID: func() string {
			ids++
			return "hotspot_test_" + string(rune('0'+ids))
		},
	})
	return ed, st, n
}

func selectedHotspots(st *store.Store) []models.Hotspot {
	p, _ := st.Selected()
	return p.Hotspots
}

func TestNewID(t *testing.T) {
	a, b := NewID(), NewID()
	assert.True(t, strings.HasPrefix(a, "hotspot_"))
	assert.NotEqual(t, a, b)
}

func TestStartCreate(t *testing.T) {
	ed, _, _ := newEditor(t)
	assert.Equal(t, StateIdle, ed.State())

	d := ed.StartCreate()
	assert.True(t, d.IsNew)
	assert.Equal(t, StateEditing, ed.State())
	assert.Equal(t, "hotspot_test_1", d.Hotspot.ID)
	assert.Equal(t, 0.0, d.Hotspot.Pitch)
	assert.Equal(t, 0.0, d.Hotspot.Yaw)
	assert.Equal(t, models.HotspotInfo, d.Hotspot.Kind)
	assert.Equal(t, NewHotspotLabel, d.Hotspot.Label)
	assert.Equal(t, models.Circle{Radius: 30}, d.Hotspot.Shape.Geometry)
	assert.Equal(t, models.DefaultPaint(), d.Hotspot.Shape.Paint)
	assert.Empty(t, ed.SelectedID())
}

func TestScenarioCreateRectangle(t *testing.T) {
	ed, st, n := newEditor(t)
	before := len(selectedHotspots(st))

	ed.StartCreate()
	_, err := ed.UpdateFields(map[string]any{FieldPitch: 10.0, FieldYaw: -45.0})
	require.NoError(t, err)
	_, err = ed.ChangeShapeKind(models.ShapeRectangle)
	require.NoError(t, err)
	_, err = ed.UpdateShapeFields(map[string]any{ShapeFieldWidth: 80.0, ShapeFieldHeight: 40})
	require.NoError(t, err)

	p, err := ed.Save()
	require.NoError(t, err)
	assert.Equal(t, StateIdle, ed.State())

	hs := selectedHotspots(st)
	require.Len(t, hs, before+1)
	got := hs[len(hs)-1]
	assert.Equal(t, 10.0, got.Pitch)
	assert.Equal(t, -45.0, got.Yaw)
	assert.Equal(t, models.Rectangle{Width: 80, Height: 40}, got.Shape.Geometry)
	assert.Equal(t, p.Hotspots, st.Panoramas()[0].Hotspots)
	assert.Equal(t, []string{MsgSaved}, n.Titles())
}

func TestScenarioDeleteWeapon(t *testing.T) {
	ed, st, n := newEditor(t)
	sel, _ := st.Selected()
	weapon := sel.Hotspots[sel.FindHotspot("weapon")]

	ed.Select(weapon)
	assert.Equal(t, "weapon", ed.SelectedID())

	confirm := &testutil.Confirm{Answer: true}
	_, err := ed.Delete(confirm)
	require.NoError(t, err)
	assert.Equal(t, []string{DeletePrompt}, confirm.Prompts)

	sel, _ = st.Selected()
	assert.Equal(t, -1, sel.FindHotspot("weapon"))
	assert.Equal(t, -1, st.Panoramas()[0].FindHotspot("weapon"))
	assert.Equal(t, StateIdle, ed.State())
	assert.Equal(t, []string{MsgDeleted}, n.Titles())
}

func TestDelete_NewDraftLeavesStore(t *testing.T) {
	ed, st, n := newEditor(t)
	ed.StartCreate()
	_, err := ed.UpdateField(FieldID, "weapon")
	require.NoError(t, err)

	p, err := ed.Delete(Confirmed)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, ed.State())
	assert.GreaterOrEqual(t, p.FindHotspot("weapon"), 0)
	assert.GreaterOrEqual(t, st.Panoramas()[0].FindHotspot("weapon"), 0)
	assert.Len(t, selectedHotspots(st), 2)
	assert.Equal(t, []string{MsgDeleted}, n.Titles())
}

func editCounts(t *testing.T, reg *prometheus.Registry) map[string]float64 {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	out := map[string]float64{}
	for _, mf := range mfs {
		if mf.GetName() != "hotspots_edits_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			out[m.GetLabel()[0].GetValue()] = m.GetCounter().GetValue()
		}
	}
	return out
}

func TestEditMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	st := store.New(testutil.Panoramas())
	ed := New(Options{Store: st, Metrics: metrics.NewRecorder(reg)})

	ed.StartCreate()
	assert.Empty(t, editCounts(t, reg), "opening a draft is not counted")

	_, err := ed.Save()
	require.NoError(t, err)
	sel, _ := st.Selected()
	ed.Select(sel.Hotspots[0])
	_, err = ed.Save()
	require.NoError(t, err)

	assert.Equal(t, map[string]float64{metrics.OpCreate: 1, metrics.OpSave: 1}, editCounts(t, reg))
}

func TestDelete_NotConfirmed(t *testing.T) {
	ed, st, _ := newEditor(t)
	sel, _ := st.Selected()
	ed.Select(sel.Hotspots[0])

	_, err := ed.Delete(&testutil.Confirm{Answer: false})
	assert.ErrorIs(t, err, ErrNotConfirmed)
	_, err = ed.Delete(nil)
	assert.ErrorIs(t, err, ErrNotConfirmed)

	assert.Equal(t, StateEditing, ed.State())
	assert.Len(t, selectedHotspots(st), 2)
}

func TestSave_ReplacesByOriginalID(t *testing.T) {
	ed, st, _ := newEditor(t)
	sel, _ := st.Selected()
	ed.Select(sel.Hotspots[0])

	_, err := ed.UpdateFields(map[string]any{FieldID: "sword", FieldText: "Sword"})
	require.NoError(t, err)
	_, err = ed.Save()
	require.NoError(t, err)

	hs := selectedHotspots(st)
	require.Len(t, hs, 2)
	assert.Equal(t, "sword", hs[0].ID)
	assert.Equal(t, "Sword", hs[0].Label)
}

func TestSave_Guards(t *testing.T) {
	t.Run("no draft", func(t *testing.T) {
		ed, _, _ := newEditor(t)
		_, err := ed.Save()
		assert.ErrorIs(t, err, ErrNoDraft)
		_, err = ed.Delete(Confirmed)
		assert.ErrorIs(t, err, ErrNoDraft)
	})

	t.Run("no panorama", func(t *testing.T) {
		n := &testutil.RecordingNotifier{}
		ed := New(Options{Store: store.New(nil), Notifier: n})
		ed.StartCreate()
		_, err := ed.Save()
		assert.ErrorIs(t, err, ErrNoPanorama)
		_, err = ed.Delete(Confirmed)
		assert.ErrorIs(t, err, ErrNoPanorama)
		assert.Equal(t, StateEditing, ed.State())
		assert.Equal(t, []string{MsgNoPanorama, MsgNoPanorama}, n.Titles())
	})

	t.Run("duplicate id", func(t *testing.T) {
		ed, st, _ := newEditor(t)
		ed.StartCreate()
		_, err := ed.UpdateField(FieldID, "door")
		require.NoError(t, err)
		_, err = ed.Save()
		assert.ErrorIs(t, err, ErrDuplicateID)
		assert.Len(t, selectedHotspots(st), 2)
	})

	t.Run("rename onto sibling", func(t *testing.T) {
		ed, st, _ := newEditor(t)
		sel, _ := st.Selected()
		ed.Select(sel.Hotspots[0])
		_, err := ed.UpdateField(FieldID, "door")
		require.NoError(t, err)
		_, err = ed.Save()
		assert.ErrorIs(t, err, ErrDuplicateID)
	})

	t.Run("empty id", func(t *testing.T) {
		ed, _, _ := newEditor(t)
		ed.StartCreate()
		_, err := ed.UpdateField(FieldID, "")
		require.NoError(t, err)
		_, err = ed.Save()
		assert.ErrorIs(t, err, models.ErrInvalidHotspot)
		assert.Equal(t, StateEditing, ed.State())
	})
}

func TestSave_ClampsValues(t *testing.T) {
	ed, st, _ := newEditor(t)
	ed.StartCreate()
	_, err := ed.UpdateFields(map[string]any{FieldPitch: 120.0, FieldYaw: -400.0})
	require.NoError(t, err)
	_, err = ed.UpdateShapeFields(map[string]any{ShapeFieldOpacity: 3.0, ShapeFieldBorderWidth: -2.0})
	require.NoError(t, err)
	_, err = ed.Save()
	require.NoError(t, err)

	hs := selectedHotspots(st)
	got := hs[len(hs)-1]
	assert.Equal(t, 90.0, got.Pitch)
	assert.Equal(t, -180.0, got.Yaw)
	assert.Equal(t, 1.0, got.Shape.Paint.Opacity)
	assert.Equal(t, 0.0, got.Shape.Paint.BorderWidth)
}

func TestUpdates_DoNotTouchStore(t *testing.T) {
	ed, st, _ := newEditor(t)
	sel, _ := st.Selected()
	ed.Select(sel.Hotspots[0])

	_, err := ed.UpdateField(FieldText, "Changed")
	require.NoError(t, err)
	_, err = ed.UpdateShapeField(ShapeFieldRadius, 99.0)
	require.NoError(t, err)

	assert.Equal(t, "Weapon Rack", selectedHotspots(st)[0].Label)
	ed.Cancel()
	assert.Equal(t, StateIdle, ed.State())
	assert.Equal(t, sel.Hotspots, selectedHotspots(st))
}

func TestUpdateFields_AllOrNothing(t *testing.T) {
	ed, _, _ := newEditor(t)
	ed.StartCreate()
	d, err := ed.UpdateFields(map[string]any{FieldText: "Kept?", FieldPitch: "high"})
	assert.ErrorIs(t, err, ErrInvalidValue)
	assert.Equal(t, NewHotspotLabel, d.Hotspot.Label)

	_, err = ed.UpdateField("colour", "red")
	assert.ErrorIs(t, err, ErrUnknownField)
	_, err = ed.UpdateField(FieldType, "portal")
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestUpdateShapeField_KindSpecific(t *testing.T) {
	ed, _, _ := newEditor(t)
	ed.StartCreate()

	_, err := ed.UpdateShapeField(ShapeFieldWidth, 10.0)
	assert.ErrorIs(t, err, ErrInvalidValue, "circle has no width")
	_, err = ed.UpdateShapeField("depth", 1.0)
	assert.ErrorIs(t, err, ErrUnknownField)

	_, err = ed.ChangeShapeKind(models.ShapeSquare)
	require.NoError(t, err)
	d, err := ed.UpdateShapeField(ShapeFieldWidth, 70.0)
	require.NoError(t, err)
	assert.Equal(t, models.Square{Side: 70}, d.Hotspot.Shape.Geometry)

	d, err = ed.UpdateShapeFields(map[string]any{ShapeFieldColor: "red", ShapeFieldBorderColor: "#000"})
	require.NoError(t, err)
	assert.Equal(t, "red", d.Hotspot.Shape.Paint.FillColor)
	assert.Equal(t, "#000", d.Hotspot.Shape.Paint.BorderColor)
}

func TestChangeShapeKind_ClearsForeignFields(t *testing.T) {
	ed, _, _ := newEditor(t)
	ed.StartCreate()
	_, err := ed.ChangeShapeKind(models.ShapePolygon)
	require.NoError(t, err)
	_, err = ed.ChangeShapeKind(models.ShapeRectangle)
	require.NoError(t, err)

	d, err := ed.ChangeShapeKind(models.ShapeCircle)
	require.NoError(t, err)
	assert.Equal(t, models.Circle{Radius: 30}, d.Hotspot.Shape.Geometry)
	assert.Nil(t, d.Hotspot.Shape.Points())

	data, err := d.Hotspot.Shape.MarshalJSON()
	require.NoError(t, err)
	for _, key := range []string{`"width"`, `"height"`, `"points"`} {
		assert.NotContains(t, string(data), key)
	}

	_, err = ed.ChangeShapeKind("hexagon")
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestPolygonPoints(t *testing.T) {
	ed, _, n := newEditor(t)
	ed.StartCreate()

	_, err := ed.AddPoint()
	assert.ErrorIs(t, err, ErrNotPolygon)

	_, err = ed.ChangeShapeKind(models.ShapePolygon)
	require.NoError(t, err)

	d, err := ed.AddPoint()
	require.NoError(t, err)
	pts := d.Hotspot.Shape.Points()
	require.Len(t, pts, 5)
	assert.Equal(t, pts[3], pts[4])

	d, err = ed.MovePoint(4, "x", 55)
	require.NoError(t, err)
	assert.Equal(t, models.Point{X: 55, Y: 40}, d.Hotspot.Shape.Points()[4])

	_, err = ed.MovePoint(9, "x", 1)
	assert.ErrorIs(t, err, ErrPointIndex)
	_, err = ed.MovePoint(0, "z", 1)
	assert.ErrorIs(t, err, ErrInvalidValue)

	d, err = ed.RemovePoint(0)
	require.NoError(t, err)
	assert.Len(t, d.Hotspot.Shape.Points(), 4)
	assert.Equal(t, models.Point{X: 20, Y: 0}, d.Hotspot.Shape.Points()[0])

	_, err = ed.RemovePoint(7)
	assert.ErrorIs(t, err, ErrPointIndex)

	_, err = ed.UpdateShapeField(ShapeFieldPoints, []any{
		map[string]any{"x": 0.0, "y": 0.0},
		map[string]any{"x": 10.0, "y": 0.0},
		map[string]any{"x": 5.0, "y": 8.0},
	})
	require.NoError(t, err)
	assert.Empty(t, n.Titles())

	for i := 0; i < 3; i++ {
		d, err = ed.RemovePoint(0)
		assert.ErrorIs(t, err, ErrTooFewPoints)
		assert.Len(t, d.Hotspot.Shape.Points(), 3)
	}
	assert.Equal(t, []string{MsgTooFewPoints, MsgTooFewPoints, MsgTooFewPoints}, n.Titles())
}

func TestRemovePoint_FloorProperty(t *testing.T) {
	for start := 3; start <= 8; start++ {
		ed, _, _ := newEditor(t)
		ed.StartCreate()
		pts := make([]models.Point, start)
		for i := range pts {
			pts[i] = models.Point{X: float64(i), Y: float64(i * i)}
		}
		_, err := ed.ChangeShapeKind(models.ShapePolygon)
		require.NoError(t, err)
		_, err = ed.UpdateShapeField(ShapeFieldPoints, pts)
		require.NoError(t, err)

		for i := 0; i < start+2; i++ {
			d, _ := ed.RemovePoint(0)
			assert.GreaterOrEqual(t, len(d.Hotspot.Shape.Points()), models.MinPolygonPoints)
		}
	}
}

func TestNoDraftOperations(t *testing.T) {
	ed, _, _ := newEditor(t)
	ops := map[string]func() error{
		"update":      func() error { _, err := ed.UpdateField(FieldText, "x"); return err },
		"shape field": func() error { _, err := ed.UpdateShapeField(ShapeFieldRadius, 1.0); return err },
		"kind":        func() error { _, err := ed.ChangeShapeKind(models.ShapeSquare); return err },
		"add point":   func() error { _, err := ed.AddPoint(); return err },
		"move point":  func() error { _, err := ed.MovePoint(0, "x", 1); return err },
		"remove":      func() error { _, err := ed.RemovePoint(0); return err },
	}
	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, op(), ErrNoDraft)
		})
	}
	assert.NotPanics(t, ed.Cancel)
}

func TestDraftIsolation(t *testing.T) {
	ed, st, _ := newEditor(t)
	sel, _ := st.Selected()
	door := sel.Hotspots[1]
	ed.Select(door)

	door.Shape.Geometry.(models.Polygon).Points[0].X = 999
	d, _ := ed.Draft()
	assert.Equal(t, 0.0, d.Hotspot.Shape.Points()[0].X)

	d.Hotspot.Label = "outside"
	d2, _ := ed.Draft()
	assert.Equal(t, "Exit", d2.Hotspot.Label)
}
