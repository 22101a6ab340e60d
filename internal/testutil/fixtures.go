package testutil

import "github.com/pano-hotspots/backend/internal/models"

// Panoramas returns two panoramas; the first holds the "weapon" and "door"
// hotspots.
func Panoramas() []models.Panorama {
	return []models.Panorama{
		{
			ID:       1,
			Title:    "Armory",
			ImageURL: "https://example.com/armory.jpg",
			Hotspots: []models.Hotspot{
				{
					ID: "weapon", Pitch: -10, Yaw: 35, Kind: models.HotspotInfo,
					Label: "Weapon Rack", Description: "Display of period weapons",
					Shape: models.NewShape(models.Circle{Radius: 25}),
				},
				{
					ID: "door", Pitch: 0, Yaw: -120, Kind: models.HotspotScene,
					Label: "Exit",
					Shape: models.NewShape(models.Polygon{Points: models.DefaultDiamond()}),
				},
			},
		},
		{
			ID:          2,
			Title:       "Courtyard",
			ImageURL:    "https://example.com/courtyard.jpg",
			Description: "Open air courtyard",
			Hotspots: []models.Hotspot{
				{
					ID: "fountain", Pitch: -20, Yaw: 0, Kind: models.HotspotInfo,
					Label: "Fountain",
					Shape: models.NewShape(models.Rectangle{Width: 60, Height: 40}),
				},
			},
		},
	}
}
