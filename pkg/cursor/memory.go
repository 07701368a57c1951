package cursor

import (
	"context"
	"sync"
)

// Memory keeps checkpoints in process memory.
type Memory struct {
	states map[string]State
	mu     sync.RWMutex
}

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{states: make(map[string]State)}
}

// Load returns the checkpoint of jobID or ErrNotFound.
func (m *Memory) Load(_ context.Context, jobID string) (State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st, ok := m.states[jobID]
	if !ok {
		return State{}, ErrNotFound
	}
	return clone(st), nil
}

// Save inserts or replaces the checkpoint of s.JobID.
func (m *Memory) Save(_ context.Context, s State) error {
	if s.JobID == "" {
		return ErrEmptyJobID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[s.JobID] = clone(s)
	return nil
}

// Delete removes the checkpoint of jobID.
func (m *Memory) Delete(_ context.Context, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, jobID)
	return nil
}

func clone(s State) State {
	if s.TotalCount != nil {
		total := *s.TotalCount
		s.TotalCount = &total
	}
	return s
}
