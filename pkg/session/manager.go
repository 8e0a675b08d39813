package session

import (
	"sync"

	"github.com/sourabpanch7/sme-agent/pkg/llm"
)

// Session is the lightweight per-user conversation object, independent of
// the checkpoint store. Its lock also serializes whole turns: only one turn
// runs against a given session at a time, while different sessions proceed
// concurrently.
type Session struct {
	mu      sync.Mutex
	history []llm.Message
}

// Lock takes the session for the duration of one turn.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the session.
func (s *Session) Unlock() { s.mu.Unlock() }

// Append records a message. The caller must hold the session lock.
func (s *Session) Append(msg llm.Message) {
	s.history = append(s.history, msg)
}

// History returns a copy of the recorded messages. The caller must hold the
// session lock.
func (s *Session) History() []llm.Message {
	out := make([]llm.Message, len(s.history))
	copy(out, s.history)
	return out
}

// Reset drops the recorded messages. The caller must hold the session lock.
func (s *Session) Reset() {
	s.history = nil
}

// Manager hands out sessions keyed by user or thread id.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates an empty session manager.
func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session)}
}

// Get returns the session for an id, creating it on first use. The same id
// always yields the same session.
func (m *Manager) Get(id string) *Session {
	m.mu.RLock()
	sess, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		return sess
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if sess, ok := m.sessions[id]; ok {
		return sess
	}
	sess = &Session{}
	m.sessions[id] = sess
	return sess
}

// End discards the session for an id.
func (m *Manager) End(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}
