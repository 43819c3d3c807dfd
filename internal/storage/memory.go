package storage

import (
	"context"
	"sync"
)

// Memory is an in-process Store.  Contents vanish on restart, which makes
// it the right choice for development and tests only.
type Memory struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrInvalidKey
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *Memory) SetMany(_ context.Context, kv map[string]string) error {
	for k := range kv {
		if k == "" {
			return ErrInvalidKey
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range kv {
		m.data[k] = v
	}
	return nil
}

func (m *Memory) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

// Len reports the number of stored keys.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
