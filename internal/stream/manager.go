package stream

import (
	"log/slog"
	"sync"

	"github.com/eleven-am/speech-gateway/internal/agent"
	"github.com/eleven-am/speech-gateway/internal/metrics"
	"github.com/eleven-am/speech-gateway/internal/recognition"
)

// Manager owns the connection-to-session mapping with explicit creation and
// teardown points. Sessions never outlive their connection.
type Manager struct {
	engine   recognition.Engine
	notifier agent.Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

type ManagerConfig struct {
	Engine   recognition.Engine
	Notifier agent.Notifier
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Notifier == nil {
		cfg.Notifier = agent.Discard{}
	}
	return &Manager{
		engine:   cfg.Engine,
		notifier: cfg.Notifier,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger.With("component", "stream_manager"),
		sessions: make(map[string]*Session),
	}
}

// Create builds a session for a new connection and registers it.
func (m *Manager) Create() *Session {
	s := NewSession(SessionConfig{
		Engine:   m.engine,
		Notifier: m.notifier,
		Metrics:  m.metrics,
		Logger:   m.logger,
	})

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	m.logger.Info("session created", "session_id", s.ID)
	return s
}

func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Remove unregisters and closes a session. Idempotent.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if s != nil {
		s.Close()
		m.logger.Info("session removed", "session_id", id)
	}
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Close tears down every live session, used on server shutdown.
func (m *Manager) Close() error {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
	return nil
}
