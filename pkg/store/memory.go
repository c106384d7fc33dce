package store

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryStore keeps values in process memory
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]json.RawMessage
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]json.RawMessage)}
}

func (m *MemoryStore) Get(ctx context.Context, keys ...string) (Values, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(Values, len(keys))
	for _, key := range keys {
		if raw, ok := m.data[key]; ok {
			out[key] = raw
		}
	}
	return out, nil
}

func (m *MemoryStore) Set(ctx context.Context, values map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	encoded, err := encode(values)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for key, raw := range encoded {
		m.data[key] = raw
	}
	return nil
}

func (m *MemoryStore) Remove(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *MemoryStore) Close() error { return nil }
