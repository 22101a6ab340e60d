// Package store holds the loaded panorama collection and the selected
// panorama. Every value crossing the store boundary is a deep copy.
package store

import (
	"errors"
	"sync"

	"github.com/pano-hotspots/backend/internal/models"
)

var ErrPanoramaNotFound = errors.New("panorama not found")

// ChangeFunc is called after a panorama's hotspots are replaced.
type ChangeFunc func(p models.Panorama)

// Store is safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	panoramas  []models.Panorama
	selectedID int
	hasSel     bool
	onChange   []ChangeFunc
}

// New returns a store holding panoramas with the first one selected.
func New(panoramas []models.Panorama) *Store {
	s := &Store{}
	s.Load(panoramas)
	return s
}

// Load replaces the collection and selects its first panorama.
func (s *Store) Load(panoramas []models.Panorama) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.panoramas = make([]models.Panorama, len(panoramas))
	for i, p := range panoramas {
		s.panoramas[i] = p.Clone()
	}
	s.hasSel = len(s.panoramas) > 0
	if s.hasSel {
		s.selectedID = s.panoramas[0].ID
	}
}

// OnChange registers fn to run after ReplaceHotspots.
func (s *Store) OnChange(fn ChangeFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

// Panoramas returns the collection in load order.
func (s *Store) Panoramas() []models.Panorama {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Panorama, len(s.panoramas))
	for i, p := range s.panoramas {
		out[i] = p.Clone()
	}
	return out
}

// Len returns the number of panoramas held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.panoramas)
}

func (s *Store) indexLocked(id int) int {
	for i, p := range s.panoramas {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// Panorama returns the panorama with id.
func (s *Store) Panorama(id int) (models.Panorama, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexLocked(id)
	if i < 0 {
		return models.Panorama{}, ErrPanoramaNotFound
	}
	return s.panoramas[i].Clone(), nil
}

// Selected returns the selected panorama. ok is false for an empty store.
func (s *Store) Selected() (models.Panorama, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.hasSel {
		return models.Panorama{}, false
	}
	i := s.indexLocked(s.selectedID)
	if i < 0 {
		return models.Panorama{}, false
	}
	return s.panoramas[i].Clone(), true
}

// Select makes the panorama with id the selected one.
func (s *Store) Select(id int) (models.Panorama, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return models.Panorama{}, ErrPanoramaNotFound
	}
	s.selectedID = id
	s.hasSel = true
	return s.panoramas[i].Clone(), nil
}

// ReplaceHotspots swaps the hotspot list of a panorama. The collection entry
// and the selected view are one record, so both observe the change.
func (s *Store) ReplaceHotspots(panoramaID int, hotspots []models.Hotspot) (models.Panorama, error) {
	s.mu.Lock()
	i := s.indexLocked(panoramaID)
	if i < 0 {
		s.mu.Unlock()
		return models.Panorama{}, ErrPanoramaNotFound
	}
	s.panoramas[i].Hotspots = models.CloneHotspots(hotspots)
	updated := s.panoramas[i].Clone()
	fns := append([]ChangeFunc(nil), s.onChange...)
	s.mu.Unlock()

	for _, fn := range fns {
		fn(updated.Clone())
	}
	return updated, nil
}
