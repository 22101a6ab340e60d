package source

import (
	"context"
	_ "embed"
	"os"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/pano-hotspots/backend/internal/models"
)

//go:embed seed.yaml
var defaultSeed []byte

// seedFile is the YAML document layout.
type seedFile struct {
	Panoramas []models.Panorama `yaml:"panoramas"`
}

// FileSource serves panoramas decoded from a YAML seed document.
type FileSource struct {
	mu        sync.RWMutex
	panoramas []models.Panorama
}

// NewFileSource reads the seed file at path. An empty path selects the
// built-in seed.
func NewFileSource(path string) (*FileSource, error) {
	if path == "" {
		return ParseSeed(defaultSeed)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read seed file %s", path)
	}
	s, err := ParseSeed(data)
	if err != nil {
		return nil, errors.Wrapf(err, "seed file %s", path)
	}
	return s, nil
}

// ParseSeed decodes a seed document.
func ParseSeed(data []byte) (*FileSource, error) {
	var doc seedFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "failed to decode seed")
	}
	seen := make(map[int]bool, len(doc.Panoramas))
	for i := range doc.Panoramas {
		p := &doc.Panoramas[i]
		if seen[p.ID] {
			return nil, errors.Errorf("duplicate panorama id %d", p.ID)
		}
		seen[p.ID] = true
		if p.Hotspots == nil {
			p.Hotspots = []models.Hotspot{}
		}
		for j := range p.Hotspots {
			p.Hotspots[j].Normalize()
			if err := p.Hotspots[j].Validate(); err != nil {
				return nil, errors.Wrapf(err, "panorama %d", p.ID)
			}
		}
	}
	return &FileSource{panoramas: doc.Panoramas}, nil
}

func (s *FileSource) GetAllPanoramas(ctx context.Context) ([]models.Panorama, error) {
	if err := ctx.Err(); err != nil {
		return nil, Normalize(err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Panorama, len(s.panoramas))
	for i, p := range s.panoramas {
		out[i] = p.Clone()
	}
	return out, nil
}

func (s *FileSource) GetPanoramaByID(ctx context.Context, id int) (models.Panorama, error) {
	if err := ctx.Err(); err != nil {
		return models.Panorama{}, Normalize(err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.panoramas {
		if p.ID == id {
			return p.Clone(), nil
		}
	}
	return models.Panorama{}, NotFound(id)
}

func (s *FileSource) SearchPanoramas(ctx context.Context, query string) ([]models.Panorama, error) {
	if err := ctx.Err(); err != nil {
		return nil, Normalize(err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Filter(s.panoramas, query), nil
}
