package session

import (
	"sync"

	"github.com/rs/zerolog"
)

// Manager tracks live sessions so shutdown can stop them all.
type Manager struct {
	log zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates an empty session manager.
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{
		log:      log,
		sessions: make(map[string]*Session),
	}
}

// Add registers a session.
func (m *Manager) Add(s *Session) {
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
}

// Remove unregisters a session by id.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// StopAll stops every live session. Used on process shutdown.
func (m *Manager) StopAll() {
	m.mu.Lock()
	live := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		live = append(live, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	if len(live) > 0 {
		m.log.Info().Int("sessions", len(live)).Msg("Stopping live sessions")
	}
	for _, s := range live {
		s.Stop()
	}
}
