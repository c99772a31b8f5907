package session

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process Store. Sessions are lost on restart.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

func NewMemory() *Memory {
	return &Memory{sessions: make(map[string]Session)}
}

func (m *Memory) Get(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (m *Memory) Put(_ context.Context, s *Session) error {
	cp := *s
	if cp.UpdatedAt.IsZero() {
		cp.UpdatedAt = time.Now().UTC()
	}
	m.mu.Lock()
	m.sessions[cp.ID] = cp
	m.mu.Unlock()
	return nil
}

func (m *Memory) Close() error { return nil }
