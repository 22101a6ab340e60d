package viewport

import (
	"testing"

	"github.com/pano-hotspots/backend/internal/models"
	"github.com/pano-hotspots/backend/internal/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		Projection: ProjectionEquirectangular,
		ImageURL:   "https://example.com/room.jpg",
		HFOV:       100,
		MinHFOV:    50,
		MaxHFOV:    120,
	}
}

func TestNewSim_Validation(t *testing.T) {
	_, err := NewSim(nil, testConfig())
	assert.ErrorIs(t, err, ErrNoMount)

	cfg := testConfig()
	cfg.ImageURL = ""
	_, err = NewSim(render.NewElement("div"), cfg)
	assert.ErrorIs(t, err, ErrNoImage)
}

func TestNewSim_MountBusy(t *testing.T) {
	mount := render.NewElement("div")
	first, err := NewSim(mount, testConfig())
	require.NoError(t, err)

	_, err = NewSim(mount, testConfig())
	assert.ErrorIs(t, err, ErrMountBusy)

	first.Destroy()
	_, err = NewSim(mount, testConfig())
	assert.NoError(t, err)
}

func TestNewSim_Markers(t *testing.T) {
	mount := render.NewElement("div")
	clicked := ""
	cfg := testConfig()
	cfg.Markers = []MarkerDef{
		{ID: "a", CSSClass: "custom-hotspot", Click: func() { clicked = "a" },
			CreateTooltip: func(div *render.Element) *render.Element {
				tip := render.NewElement("div")
				tip.Class = "tip"
				div.Append(tip)
				return tip
			}},
		{ID: "b"},
	}

	s, err := NewSim(mount, cfg)
	require.NoError(t, err)

	hs := s.Hotspots()
	require.Len(t, hs, 2)
	assert.Equal(t, "pnlm-hotspot-base custom-hotspot", hs[0].Class)
	assert.Equal(t, "b", hs[1].Attrs["data-hotspot-id"])

	tip, ok := s.Tooltip("a")
	require.True(t, ok)
	assert.Equal(t, "tip", tip.Class)
	_, ok = s.Tooltip("b")
	assert.False(t, ok)

	require.NoError(t, s.Click("a"))
	assert.Equal(t, "a", clicked)

	var unknown *UnknownHotspotError
	assert.ErrorAs(t, s.Click("zz"), &unknown)
}

func TestSim_Destroy(t *testing.T) {
	mount := render.NewElement("div")
	s, err := NewSim(mount, testConfig())
	require.NoError(t, err)

	fired := 0
	s.On(EventLoad, func(...any) { fired++ })
	assert.Equal(t, 1, s.Listeners(EventLoad))

	s.Destroy()
	s.Destroy()
	assert.True(t, s.Destroyed())
	assert.Empty(t, mount.Children)
	assert.Equal(t, 0, s.Listeners(EventLoad))

	s.Fire(EventLoad)
	assert.Equal(t, 0, fired)
	assert.ErrorIs(t, s.Click("a"), ErrDestroyed)
}

func TestSim_SetHFOV(t *testing.T) {
	s, err := NewSim(render.NewElement("div"), testConfig())
	require.NoError(t, err)

	var readings []float64
	s.On(EventZoomChange, func(args ...any) {
		readings = append(readings, args[0].(float64))
	})

	s.SetHFOV(10, true)
	assert.Equal(t, 50.0, s.HFOV())
	s.SetHFOV(500, true)
	assert.Equal(t, 120.0, s.HFOV())
	s.SetHFOV(120, true)

	assert.Equal(t, []float64{50, 120}, readings)
}

func TestSim_ApplyKeepsReportedValues(t *testing.T) {
	s, err := NewSim(render.NewElement("div"), testConfig())
	require.NoError(t, err)

	s.Apply(models.ViewState{Pitch: 12, Yaw: -40, HFOV: 0})
	assert.Equal(t, 12.0, s.Pitch())
	assert.Equal(t, -40.0, s.Yaw())
	assert.Equal(t, 0.0, s.HFOV())
}

func TestSim_Controls(t *testing.T) {
	cfg := testConfig()
	cfg.AutoRotateSpeed = -8
	s, err := NewSim(render.NewElement("div"), cfg)
	require.NoError(t, err)

	assert.Equal(t, -8.0, s.AutoRotateSpeed())
	s.StopAutoRotate()
	assert.Equal(t, 0.0, s.AutoRotateSpeed())
	s.StartAutoRotate(-8)
	assert.Equal(t, -8.0, s.AutoRotateSpeed())

	s.ToggleFullscreen()
	assert.True(t, s.Fullscreen())

	s.SetPitch(200, false)
	s.SetYaw(-500, false)
	assert.Equal(t, models.MaxPitch, s.Pitch())
	assert.Equal(t, models.MinYaw, s.Yaw())
}
