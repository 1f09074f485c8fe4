package kvstore

import (
	"context"
	"sync"

	"github.com/varoOP/shinkrorec/internal/domain"
)

// Memory is a map backed domain.KeyValueStore
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

var _ domain.KeyValueStore = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[key]
	if !ok {
		return nil, domain.ErrKeyNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[key] = append([]byte(nil), value...)
	return nil
}

// Close is a no-op, the data stays readable so a test can reopen it
func (m *Memory) Close() error {
	return nil
}
