// Package session holds per-client overlay sessions.
package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/gommon/log"

	"github.com/pano-hotspots/backend/internal/metrics"
	"github.com/pano-hotspots/backend/internal/overlay"
	"github.com/pano-hotspots/backend/internal/source"
)

// MaxSessions limits concurrent sessions to prevent memory exhaustion
const MaxSessions = 10

// SessionMaxAge is how long an idle session is kept before cleanup
const SessionMaxAge = 30 * time.Minute

// SessionKeepAliveWindow is how long to keep sessions that are actively being used
const SessionKeepAliveWindow = 5 * time.Minute

// Options configure a Manager.
type Options struct {
	MaxSessions int
	Viewer      ViewerOptions
	Logger      *log.Logger
	Metrics     *metrics.Recorder
	// OnHotspotViewed receives every view-mode click of every session.
	OnHotspotViewed func(sessionID string, ev overlay.HotspotViewed)
}

// Manager handles active overlay sessions.
type Manager struct {
	sessions map[string]*Session
	mu       sync.RWMutex
	src      source.PanoramaSource
	opts     Options
}

// NewManager creates a session manager loading panoramas from src.
func NewManager(src source.PanoramaSource, opts Options) *Manager {
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = MaxSessions
	}
	if opts.Viewer.Defaults == (overlay.Defaults{}) {
		opts.Viewer = DefaultViewerOptions()
	}
	if opts.Logger == nil {
		opts.Logger = log.New("session")
	}
	return &Manager{
		sessions: make(map[string]*Session),
		src:      src,
		opts:     opts,
	}
}

// Create loads the panorama list, selects the first panorama and mounts its
// viewer. A source failure is returned as *models.APIErrorResponse. An empty
// list still yields a session, reporting "No panoramas found".
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	panoramas, err := m.src.GetAllPanoramas(ctx)
	if err != nil {
		m.opts.Logger.Errorf("[Manager] panorama load failed: %v", err)
		return nil, source.Normalize(err)
	}

	m.cleanupOldSessionsIfNeeded()

	id := uuid.New().String()
	var onView func(overlay.HotspotViewed)
	if m.opts.OnHotspotViewed != nil {
		onView = func(ev overlay.HotspotViewed) { m.opts.OnHotspotViewed(id, ev) }
	}
	s := newSession(id, panoramas, m.opts.Viewer, m.opts.Logger, m.opts.Metrics, onView)
	if len(panoramas) > 0 {
		if err := s.Rebuild(); err != nil {
			m.opts.Logger.Warnf("[Session %s] initial viewer failed: %v", shortID(id), err)
		}
	}

	m.mu.Lock()
	m.sessions[id] = s
	n := len(m.sessions)
	m.mu.Unlock()

	m.opts.Metrics.SessionsActive(n)
	m.opts.Logger.Infof("[Manager] session %s created with %d panoramas", shortID(id), len(panoramas))
	return s, nil
}

// Get returns the session with id and marks it accessed.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		s.touch()
	}
	return s, ok
}

// TouchSession updates the last accessed time of a session.
func (m *Manager) TouchSession(id string) bool {
	_, ok := m.Get(id)
	return ok
}

// Delete closes and removes a session.
func (m *Manager) Delete(id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	n := len(m.sessions)
	m.mu.Unlock()
	if !ok {
		return false
	}
	s.Close()
	m.opts.Metrics.SessionsActive(n)
	m.opts.Logger.Infof("[Manager] session %s closed", shortID(id))
	return true
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// cleanupOldSessionsIfNeeded evicts the least recently used sessions so a
// new one fits under the limit.
func (m *Manager) cleanupOldSessionsIfNeeded() {
	m.mu.Lock()
	if len(m.sessions) < m.opts.MaxSessions {
		m.mu.Unlock()
		return
	}

	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return m.sessions[ids[i]].LastAccessed().Before(m.sessions[ids[j]].LastAccessed())
	})

	toFree := len(m.sessions) - m.opts.MaxSessions + 1
	var evicted []*Session
	for _, id := range ids[:toFree] {
		evicted = append(evicted, m.sessions[id])
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	for _, s := range evicted {
		s.Close()
		m.opts.Logger.Infof("[Manager] evicted session %s to stay under %d sessions", shortID(s.ID), m.opts.MaxSessions)
	}
}

// CleanupOldSessions removes sessions idle for longer than maxAge. Sessions
// used within the keep-alive window are always kept.
func (m *Manager) CleanupOldSessions(maxAge time.Duration) int {
	now := time.Now()
	cutoff := now.Add(-maxAge)
	keepAliveCutoff := now.Add(-SessionKeepAliveWindow)

	m.mu.Lock()
	var expired []*Session
	for id, s := range m.sessions {
		last := s.LastAccessed()
		if last.After(keepAliveCutoff) {
			continue
		}
		if last.Before(cutoff) {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	n := len(m.sessions)
	m.mu.Unlock()

	for _, s := range expired {
		s.Close()
		m.opts.Logger.Infof("[Manager] cleaned up idle session %s (last accessed: %s ago)",
			shortID(s.ID), time.Since(s.LastAccessed()).Round(time.Second))
	}
	if len(expired) > 0 {
		m.opts.Metrics.SessionsActive(n)
	}
	return len(expired)
}

// Close closes every session.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	for _, s := range sessions {
		s.Close()
	}
	m.opts.Metrics.SessionsActive(0)
}
