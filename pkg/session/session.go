// Package session persists per-thread conversation state between turns.
//
// Each thread has:
//   - A unique identifier
//   - The accumulated message history
//   - The accumulated document fragments
//   - A checkpoint trail recording state after every workflow step
//
// Ending a session deletes the thread and everything recorded under it.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sourabpanch7/sme-agent/pkg/llm"
)

// ErrThreadNotFound is returned when a thread doesn't exist.
var ErrThreadNotFound = errors.New("thread not found")

// State is the conversation state persisted for a thread.
type State struct {
	// Messages is the full exchange history, user and assistant turns
	// interleaved in order.
	Messages []llm.Message

	// Documents are the retrieved fragments accumulated across turns.
	Documents []string
}

// Clone returns a deep copy so callers can't alias stored state.
func (s State) Clone() State {
	out := State{}
	if s.Messages != nil {
		out.Messages = make([]llm.Message, len(s.Messages))
		copy(out.Messages, s.Messages)
	}
	if s.Documents != nil {
		out.Documents = make([]string, len(s.Documents))
		copy(out.Documents, s.Documents)
	}
	return out
}

// Checkpoint records thread state after a named workflow step.
type Checkpoint struct {
	Step  string
	State State
	At    time.Time
}

// Store manages thread state lifecycle and persistence.
type Store interface {
	// Load retrieves the latest state for a thread.
	// Returns ErrThreadNotFound for unknown threads.
	Load(ctx context.Context, threadID string) (State, error)

	// Save records the state as the thread's latest and appends a
	// checkpoint labeled with the step that produced it.
	Save(ctx context.Context, threadID, step string, state State) error

	// Checkpoints returns the thread's checkpoint trail in order.
	Checkpoints(ctx context.Context, threadID string) ([]Checkpoint, error)

	// Delete removes the thread and its checkpoints.
	Delete(ctx context.Context, threadID string) error
}

// NewThreadID returns a fresh thread identifier.
func NewThreadID() string {
	return uuid.NewString()
}

type memoryThread struct {
	latest      State
	checkpoints []Checkpoint
	updatedAt   time.Time
}

type inMemoryStore struct {
	threads map[string]*memoryThread
	mu      sync.RWMutex
}

// InMemoryStore returns an in-memory thread store.
func InMemoryStore() Store {
	return &inMemoryStore{
		threads: make(map[string]*memoryThread),
	}
}

func (s *inMemoryStore) Load(ctx context.Context, threadID string) (State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	thread, ok := s.threads[threadID]
	if !ok {
		return State{}, ErrThreadNotFound
	}
	return thread.latest.Clone(), nil
}

func (s *inMemoryStore) Save(ctx context.Context, threadID, step string, state State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	thread, ok := s.threads[threadID]
	if !ok {
		thread = &memoryThread{}
		s.threads[threadID] = thread
	}

	now := time.Now()
	snapshot := state.Clone()
	thread.latest = snapshot
	thread.checkpoints = append(thread.checkpoints, Checkpoint{
		Step:  step,
		State: snapshot.Clone(),
		At:    now,
	})
	thread.updatedAt = now
	return nil
}

func (s *inMemoryStore) Checkpoints(ctx context.Context, threadID string) ([]Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	thread, ok := s.threads[threadID]
	if !ok {
		return nil, ErrThreadNotFound
	}

	out := make([]Checkpoint, len(thread.checkpoints))
	copy(out, thread.checkpoints)
	return out, nil
}

func (s *inMemoryStore) Delete(ctx context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.threads, threadID)
	return nil
}

var _ Store = (*inMemoryStore)(nil)
