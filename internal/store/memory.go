package store

import (
	"context"
	"encoding/json"
	"sync"

	"profilevault/internal/common"
)

// MemoryStore is the ephemeral storage variant used by guest sessions.
// Values live in a plain in-process map and never touch durable storage;
// Wipe overwrites them before dropping the map.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

// Persistent reports that this backend never writes to durable storage.
func (m *MemoryStore) Persistent() bool { return false }

// Store serializes data and keeps it in memory under id. Metadata is
// accepted for Backend compatibility and discarded: guest data carries no
// backup categories.
func (m *MemoryStore) Store(ctx context.Context, id string, data any, metadata map[string]string) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return common.ErrStoreClosed
	}
	m.data[id] = b
	return nil
}

// Retrieve loads the value stored under id into v; (false, nil) if absent.
func (m *MemoryStore) Retrieve(ctx context.Context, id string, v any) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return false, common.ErrStoreClosed
	}
	b, ok := m.data[id]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, v)
}

// Delete removes the value stored under id.
func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return common.ErrStoreClosed
	}
	if _, ok := m.data[id]; !ok {
		return common.ErrNotFound
	}
	common.WipeByteArray(m.data[id])
	delete(m.data, id)
	return nil
}

// Clear removes all values.
func (m *MemoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return common.ErrStoreClosed
	}
	m.wipeLocked()
	m.data = make(map[string][]byte)
	return nil
}

// ListIDs returns all stored ids.
func (m *MemoryStore) ListIDs(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, common.ErrStoreClosed
	}
	ids := make([]string, 0, len(m.data))
	for id := range m.data {
		ids = append(ids, id)
	}
	return ids, nil
}

// Stats returns item count and stored size.
func (m *MemoryStore) Stats(ctx context.Context) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return Stats{}, common.ErrStoreClosed
	}
	s := Stats{Count: int64(len(m.data))}
	for _, b := range m.data {
		s.TotalSize += int64(len(b))
	}
	return s, nil
}

// Close wipes all values and marks the store unusable. Idempotent, never
// blocks on I/O, and therefore safe to call from teardown handlers.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.wipeLocked()
	m.data = nil
	m.closed = true
	return nil
}

func (m *MemoryStore) wipeLocked() {
	for _, b := range m.data {
		common.WipeByteArray(b)
	}
}
