package dedup

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process Store. Expired marks are dropped lazily on Has and
// periodically by a janitor goroutine until Close.
type Memory struct {
	marks      map[string]time.Time // zero time = never expires
	done       chan struct{}
	defaultTTL time.Duration
	mu         sync.Mutex
	closed     bool
}

// MemoryOption configures a Memory store.
type MemoryOption func(*memoryOptions)

type memoryOptions struct {
	defaultTTL      time.Duration
	cleanupInterval time.Duration
}

// WithDefaultTTL sets the TTL used when Set is called with zero.
// Default: 24 hours.
func WithDefaultTTL(d time.Duration) MemoryOption {
	return func(o *memoryOptions) {
		o.defaultTTL = d
	}
}

// WithCleanupInterval sets how often expired marks are removed.
// Zero disables the janitor. Default: 1 minute.
func WithCleanupInterval(d time.Duration) MemoryOption {
	return func(o *memoryOptions) {
		o.cleanupInterval = d
	}
}

// NewMemory creates an in-memory store. Call Close to stop the janitor.
func NewMemory(opts ...MemoryOption) *Memory {
	o := &memoryOptions{
		defaultTTL:      24 * time.Hour,
		cleanupInterval: time.Minute,
	}
	for _, opt := range opts {
		opt(o)
	}

	m := &Memory{
		marks:      make(map[string]time.Time),
		done:       make(chan struct{}),
		defaultTTL: o.defaultTTL,
	}
	if o.cleanupInterval > 0 {
		go m.janitor(o.cleanupInterval)
	}
	return m
}

// Has reports whether key is marked and not expired.
func (m *Memory) Has(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false, ErrClosed
	}
	exp, ok := m.marks[key]
	if !ok {
		return false, nil
	}
	if !exp.IsZero() && !time.Now().Before(exp) {
		delete(m.marks, key)
		return false, nil
	}
	return true, nil
}

// Set marks key.
func (m *Memory) Set(_ context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if ttl == 0 {
		ttl = m.defaultTTL
	}
	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	m.marks[key] = exp
	return nil
}

// Delete removes the mark for key.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	delete(m.marks, key)
	return nil
}

// Len returns the number of stored marks, including expired ones not yet swept.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.marks)
}

// Close stops the janitor and drops all marks.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	m.marks = nil
	close(m.done)
	return nil
}

func (m *Memory) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

func (m *Memory) sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for key, exp := range m.marks {
		if !exp.IsZero() && !now.Before(exp) {
			delete(m.marks, key)
		}
	}
}
