package store

import (
	"context"
	"sync"
)

// Memory is an in-process store for dev runs and tests.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

// Load returns a copy of the stored payload, nil when absent.
func (m *Memory) Load(_ context.Context, name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	payload, ok := m.data[name]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(payload))
	copy(out, payload)
	return out, nil
}

// Save stores a copy of the payload.
func (m *Memory) Save(_ context.Context, name string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(payload))
	copy(cp, payload)
	m.data[name] = cp
	return nil
}

// ReplaceAll swaps in every payload under one lock.
func (m *Memory) ReplaceAll(_ context.Context, payloads map[string][]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for name, payload := range payloads {
		cp := make([]byte, len(payload))
		copy(cp, payload)
		m.data[name] = cp
	}
	return nil
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }
