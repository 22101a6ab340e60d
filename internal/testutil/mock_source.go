// mock_source.go - In-memory panorama source and recording collaborators for testing
package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/pano-hotspots/backend/internal/models"
)

// MockSource serves a fixed panorama list. Set Err to make every call fail.
type MockSource struct {
	mu        sync.Mutex
	Panoramas []models.Panorama
	Err       error
	Calls     int
}

// NewMockSource returns a source serving panoramas.
func NewMockSource(panoramas []models.Panorama) *MockSource {
	return &MockSource{Panoramas: panoramas}
}

func (m *MockSource) GetAllPanoramas(ctx context.Context) ([]models.Panorama, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]models.Panorama, len(m.Panoramas))
	for i, p := range m.Panoramas {
		out[i] = p.Clone()
	}
	return out, nil
}

func (m *MockSource) GetPanoramaByID(ctx context.Context, id int) (models.Panorama, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if m.Err != nil {
		return models.Panorama{}, m.Err
	}
	for _, p := range m.Panoramas {
		if p.ID == id {
			return p.Clone(), nil
		}
	}
	return models.Panorama{}, &models.APIErrorResponse{
		Code:       models.ErrCodeNotFound,
		Message:    "Panorama not found",
		StatusCode: 404,
	}
}

func (m *MockSource) SearchPanoramas(ctx context.Context, query string) ([]models.Panorama, error) {
	all, err := m.GetAllPanoramas(ctx)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(query)
	var out []models.Panorama
	for _, p := range all {
		if strings.Contains(strings.ToLower(p.Title), q) || strings.Contains(strings.ToLower(p.Description), q) {
			out = append(out, p)
		}
	}
	return out, nil
}

// Notification is one recorded Notify call.
type Notification struct {
	Title string
	Body  string
}

// RecordingNotifier records notifications.
type RecordingNotifier struct {
	mu    sync.Mutex
	notes []Notification
}

func (n *RecordingNotifier) Notify(title, body string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notes = append(n.notes, Notification{Title: title, Body: body})
}

// Notifications returns the recorded calls in order.
func (n *RecordingNotifier) Notifications() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notification(nil), n.notes...)
}

// Titles returns the recorded titles in order.
func (n *RecordingNotifier) Titles() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.notes))
	for i, note := range n.notes {
		out[i] = note.Title
	}
	return out
}

// Confirm answers every confirmation prompt with Answer and records it.
type Confirm struct {
	Answer  bool
	Prompts []string
}

func (c *Confirm) Confirm(prompt string) bool {
	c.Prompts = append(c.Prompts, prompt)
	return c.Answer
}
