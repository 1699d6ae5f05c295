package submission

import (
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Digital-Mercenaries/zorp/internal/eligibility"
	"github.com/Digital-Mercenaries/zorp/internal/metrics"
)

// Session is one logical submission session: one open UI view. It owns an
// eligibility watcher keyed to its target addresses and permits exactly one
// in-flight attempt at a time.
type Session struct {
	ID        string
	CreatedAt time.Time
	Watcher   *eligibility.Watcher

	mu         sync.Mutex
	inFlight   bool
	lastStatus string
}

// BeginAttempt marks an attempt in flight. A second attempt started before
// the previous resolves is refused, so attempts never interleave.
func (s *Session) BeginAttempt() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return fmt.Errorf("an attempt is already in flight for session %s", s.ID)
	}
	s.inFlight = true
	return nil
}

// EndAttempt records the attempt's terminal status message and releases the
// in-flight slot
func (s *Session) EndAttempt(status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false
	s.lastStatus = status
}

// LastStatus returns the most recent terminal outcome message
func (s *Session) LastStatus() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastStatus == "" {
		return "Info: no attempt has completed yet"
	}
	return s.lastStatus
}

// Manager owns the open sessions and their watchers
type Manager struct {
	reader   eligibility.ChainReader
	logger   *logrus.Logger
	interval time.Duration
	maxOpen  int

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a new session manager
func NewManager(reader eligibility.ChainReader, logger *logrus.Logger, interval time.Duration, maxOpen int) *Manager {
	return &Manager{
		reader:   reader,
		logger:   logger,
		interval: interval,
		maxOpen:  maxOpen,
		sessions: make(map[string]*Session),
	}
}

// Create opens a new session and starts its eligibility watcher
func (m *Manager) Create(wallet common.Address, walletConnected bool, study, participant common.Address) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sessions) >= m.maxOpen {
		return nil, fmt.Errorf("session limit reached (%d open)", m.maxOpen)
	}

	watcher := eligibility.NewWatcher(m.reader, m.logger, m.interval)
	watcher.SetWallet(wallet, walletConnected)
	watcher.SetTarget(study, participant)

	session := &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		Watcher:   watcher,
	}
	m.sessions[session.ID] = session
	watcher.Start()
	metrics.OpenSessions.Inc()

	m.logger.WithFields(logrus.Fields{
		"session": session.ID,
		"study":   study.Hex(),
	}).Info("📋 Session opened")
	return session, nil
}

// Get returns an open session by id
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[id]
	return session, ok
}

// Close stops a session's watcher and forgets it
func (m *Manager) Close(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[id]
	if !ok {
		return false
	}
	session.Watcher.Stop()
	delete(m.sessions, id)
	metrics.OpenSessions.Dec()

	m.logger.WithField("session", id).Info("📋 Session closed")
	return true
}

// CloseAll stops every open session, used at shutdown
func (m *Manager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, session := range m.sessions {
		session.Watcher.Stop()
		delete(m.sessions, id)
		metrics.OpenSessions.Dec()
	}
}

// NewAttemptID mints an attempt identifier
func NewAttemptID() string {
	return uuid.NewString()
}
