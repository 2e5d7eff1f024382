// Package session implements cookie-backed login sessions. Tokens are
// random uuids held in an in-memory map; sessions expire after a TTL and a
// background sweep removes stale entries.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// CookieName is the session cookie issued on login.
const CookieName = "session_token"

type session struct {
	userID    string
	expiresAt time.Time
}

// Manager tracks active sessions.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]session
	ttl      time.Duration
	now      func() time.Time
}

// NewManager creates a session manager with the given session TTL.
func NewManager(ttl time.Duration) *Manager {
	return &Manager{
		sessions: make(map[string]session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create issues a new session token for a user.
func (m *Manager) Create(userID string) string {
	token := uuid.NewString()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[token] = session{
		userID:    userID,
		expiresAt: m.now().Add(m.ttl),
	}
	return token
}

// Validate resolves a token to its user id. Expired tokens are removed and
// report as invalid.
func (m *Manager) Validate(token string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[token]
	if !ok {
		return "", false
	}
	if m.now().After(s.expiresAt) {
		delete(m.sessions, token)
		return "", false
	}
	return s.userID, true
}

// Delete invalidates a token, for logout.
func (m *Manager) Delete(token string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[token]; !ok {
		return false
	}
	delete(m.sessions, token)
	return true
}

// DeleteByUser invalidates every session belonging to a user, used when an
// account is deleted or suspended.
func (m *Manager) DeleteByUser(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for token, s := range m.sessions {
		if s.userID == userID {
			delete(m.sessions, token)
		}
	}
}

// Cleanup removes expired sessions and returns how many were dropped.
func (m *Manager) Cleanup() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	dropped := 0
	for token, s := range m.sessions {
		if now.After(s.expiresAt) {
			delete(m.sessions, token)
			dropped++
		}
	}
	return dropped
}

// StartCleanup sweeps expired sessions at the given interval until stop is
// closed.
func (m *Manager) StartCleanup(interval time.Duration, stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.Cleanup()
			case <-stop:
				return
			}
		}
	}()
}
