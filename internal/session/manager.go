// Package session keeps one search controller per browser session.
package session

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/cloo-solutions/vsearch/internal/controller"
	"github.com/cloo-solutions/vsearch/internal/domain"
	"github.com/google/uuid"
)

const DefaultTTL = 30 * time.Minute

// Factory builds the controller for a new session.
type Factory func(sessionID string) *controller.Controller

type entry struct {
	ctrl     *controller.Controller
	lastSeen time.Time
}

// Manager maps session ids to controllers and evicts idle ones.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*entry
	factory  Factory
	ttl      time.Duration
	now      func() time.Time
}

// NewManager creates a Manager. A non-positive ttl uses DefaultTTL.
func NewManager(factory Factory, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		sessions: make(map[string]*entry),
		factory:  factory,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Get returns the controller for id and marks the session active.
func (m *Manager) Get(id string) (*controller.Controller, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	e.lastSeen = m.now()
	return e.ctrl, nil
}

// GetOrCreate returns the controller for id, creating a fresh session (with a
// new id) when id is empty or unknown.
func (m *Manager) GetOrCreate(id string) (string, *controller.Controller, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.sessions[id]; ok && id != "" {
		e.lastSeen = m.now()
		return id, e.ctrl, false
	}

	newID := uuid.NewString()
	e := &entry{ctrl: m.factory(newID), lastSeen: m.now()}
	m.sessions[newID] = e
	return newID, e.ctrl, true
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep removes sessions idle for longer than the TTL. Sessions with a search
// in flight are kept.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-m.ttl)
	removed := 0
	for id, e := range m.sessions {
		if e.lastSeen.After(cutoff) || e.ctrl.IsLoading() {
			continue
		}
		delete(m.sessions, id)
		removed++
	}
	return removed
}

// ProcessJobs implements jobs.JobProcessor.
func (m *Manager) ProcessJobs(ctx context.Context) error {
	if removed := m.Sweep(); removed > 0 {
		log.Printf("session sweep: evicted %d idle sessions, %d remaining", removed, m.Len())
	}
	return nil
}
