package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pano-hotspots/backend/internal/models"
)

func fixtures() []models.Panorama {
	return []models.Panorama{
		{ID: 1, Title: "Lobby", ImageURL: "lobby.jpg", Hotspots: []models.Hotspot{
			{ID: "desk", Label: "Desk", Kind: models.HotspotInfo, Shape: models.NewShape(models.Circle{Radius: 30})},
		}},
		{ID: 2, Title: "Vault", ImageURL: "vault.jpg"},
	}
}

func TestNew_SelectsFirst(t *testing.T) {
	s := New(fixtures())
	sel, ok := s.Selected()
	require.True(t, ok)
	assert.Equal(t, 1, sel.ID)
	assert.Equal(t, 2, s.Len())

	_, ok = New(nil).Selected()
	assert.False(t, ok)
}

func TestSelect(t *testing.T) {
	s := New(fixtures())
	p, err := s.Select(2)
	require.NoError(t, err)
	assert.Equal(t, "Vault", p.Title)

	_, err = s.Select(99)
	assert.ErrorIs(t, err, ErrPanoramaNotFound)
	sel, _ := s.Selected()
	assert.Equal(t, 2, sel.ID)
}

func TestReplaceHotspots_BothViews(t *testing.T) {
	s := New(fixtures())
	var seen []models.Panorama
	s.OnChange(func(p models.Panorama) { seen = append(seen, p) })

	hs := []models.Hotspot{{ID: "x", Label: "X", Kind: models.HotspotInfo, Shape: models.NewShape(models.Square{Side: 10})}}
	_, err := s.ReplaceHotspots(1, hs)
	require.NoError(t, err)

	sel, _ := s.Selected()
	require.Len(t, sel.Hotspots, 1)
	assert.Equal(t, "x", sel.Hotspots[0].ID)
	assert.Equal(t, "x", s.Panoramas()[0].Hotspots[0].ID)
	require.Len(t, seen, 1)
	assert.Equal(t, 1, seen[0].ID)

	_, err = s.ReplaceHotspots(42, hs)
	assert.ErrorIs(t, err, ErrPanoramaNotFound)
}

func TestCopiesAtBoundary(t *testing.T) {
	in := fixtures()
	s := New(in)
	in[0].Hotspots[0].Label = "mutated"

	out := s.Panoramas()
	assert.Equal(t, "Desk", out[0].Hotspots[0].Label)

	out[0].Hotspots[0].Label = "mutated"
	p, err := s.Panorama(1)
	require.NoError(t, err)
	assert.Equal(t, "Desk", p.Hotspots[0].Label)
}
