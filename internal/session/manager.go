package session

import (
	"fmt"
	"time"

	"github.com/Veraticus/esparrago/internal/common"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Manager tracks live sessions for the API. Idle sessions expire.
type Manager struct {
	sessions *expirable.LRU[string, *Session]
	cacheTTL time.Duration
}

// NewManager keeps up to size sessions, each for idle after its last lookup.
func NewManager(size int, idle, cacheTTL time.Duration) *Manager {
	if size <= 0 {
		size = 256
	}
	if idle <= 0 {
		idle = 12 * time.Hour
	}
	return &Manager{
		sessions: expirable.NewLRU[string, *Session](size, nil, idle),
		cacheTTL: cacheTTL,
	}
}

// Create starts and registers a session.
func (m *Manager) Create(userEmail string) *Session {
	s := New(userEmail, m.cacheTTL)
	m.sessions.Add(s.ID, s)
	return s
}

// Get returns a live session and refreshes its idle timer.
func (m *Manager) Get(id string) (*Session, error) {
	s, ok := m.sessions.Get(id)
	if !ok {
		return nil, fmt.Errorf("session %q: %w", id, common.ErrNotFound)
	}
	m.sessions.Add(id, s)
	return s, nil
}

// End discards a session.
func (m *Manager) End(id string) {
	m.sessions.Remove(id)
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	return m.sessions.Len()
}
