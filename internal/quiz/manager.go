package quiz

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"flashmind-backend/internal/models"
)

// DefaultFetchTimeout bounds a single distractor fetch so a slow gateway can
// never park a session in the loading state forever.
const DefaultFetchTimeout = 30 * time.Second

// Manager holds at most one live session per user. Sessions are ephemeral:
// nothing here survives a restart.
type Manager struct {
	mu       sync.Mutex
	fetcher  DistractorFetcher
	timeout  time.Duration
	sessions map[uuid.UUID]*Session
}

func NewManager(fetcher DistractorFetcher, timeout time.Duration) *Manager {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &Manager{
		fetcher:  fetcher,
		timeout:  timeout,
		sessions: make(map[uuid.UUID]*Session),
	}
}

// Start replaces any existing session for the user with a fresh one over the
// given card snapshot and begins it.
func (m *Manager) Start(userID uuid.UUID, cards []models.Flashcard) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.sessions[userID]; ok {
		old.Cancel()
	}

	s := NewSession(m.fetcher, cards, m.timeout)
	if err := s.Start(); err != nil {
		return nil, err
	}
	m.sessions[userID] = s
	return s, nil
}

// Get returns the user's live session, if any.
func (m *Manager) Get(userID uuid.UUID) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	return s, ok
}

// Cancel tears down and forgets the user's session.
func (m *Manager) Cancel(userID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[userID]; ok {
		s.Cancel()
		delete(m.sessions, userID)
	}
}
