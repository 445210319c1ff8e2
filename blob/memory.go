package blob

import (
	"context"
	"sync"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory is an in-memory Store. It also counts Put calls so tests can
// assert the engine's persist-gating contract.
type Memory struct {
	mu    sync.RWMutex
	blobs map[string][]byte
	puts  int
}

func NewMemory() *Memory {
	return &Memory{blobs: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.blobs[name]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (m *Memory) Put(_ context.Context, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.blobs[name] = append([]byte(nil), data...)
	m.puts++
	return nil
}

// PutCount returns the number of Put calls observed so far.
func (m *Memory) PutCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.puts
}
