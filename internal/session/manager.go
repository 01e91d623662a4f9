package session

import (
	"sync"
	"time"
)

// Manager serializes requests that share a USSD session id. Gateways retry
// on timeout, so the same session can arrive twice while the first request
// is still updating its menu trail. Distinct sessions never wait on each other.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*sessionLock
	now      func() time.Time
}

type sessionLock struct {
	mu       sync.Mutex
	refs     int
	lastUsed time.Time
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*sessionLock),
		now:      time.Now,
	}
}

// WithLock runs fn while holding the lock for sessionID and returns its error.
func (m *Manager) WithLock(sessionID string, fn func() error) error {
	m.mu.Lock()
	sl, ok := m.sessions[sessionID]
	if !ok {
		sl = &sessionLock{}
		m.sessions[sessionID] = sl
	}
	sl.refs++
	m.mu.Unlock()

	sl.mu.Lock()
	defer func() {
		sl.mu.Unlock()
		m.mu.Lock()
		sl.refs--
		sl.lastUsed = m.now()
		m.mu.Unlock()
	}()

	return fn()
}

// Cleanup forgets idle sessions not used within maxAge and returns how many were dropped.
func (m *Manager) Cleanup(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-maxAge)
	n := 0
	for id, sl := range m.sessions {
		if sl.refs == 0 && sl.lastUsed.Before(cutoff) {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}

// Len reports how many sessions currently hold a lock entry.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
