package kvstore

import (
	"context"
	"sync"
)

// MemoryKVStore keeps values in process memory. Values survive as long as the instance does, which
// makes it the stand-in for a restartable store in tests.
type MemoryKVStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryKVStore() *MemoryKVStore {
	return &MemoryKVStore{
		values: make(map[string]string),
	}
}

func (m *MemoryKVStore) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *MemoryKVStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = value
	return nil
}

// Len returns the number of stored keys.
func (m *MemoryKVStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.values)
}

func (m *MemoryKVStore) Shutdown(_ context.Context) error {
	return nil
}
