// Package store holds the pluggable persistence adapters: snapshot
// stores for the document registry and an externalised session store.
// The in-memory variants are the defaults; postgres and redis back the
// same ports for deployments that need durability.
package store

import (
	"context"
	"sync"
)

// MemorySnapshots keeps document snapshots in process memory. It is the
// default snapshot store and the one tests use.
type MemorySnapshots struct {
	mu        sync.RWMutex
	snapshots map[string][]byte
}

func NewMemorySnapshots() *MemorySnapshots {
	return &MemorySnapshots{snapshots: make(map[string][]byte)}
}

func (m *MemorySnapshots) Load(_ context.Context, documentID string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.snapshots[documentID]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), data...), nil
}

func (m *MemorySnapshots) Save(_ context.Context, documentID string, snapshot []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[documentID] = append([]byte(nil), snapshot...)
	return nil
}

// Len reports how many documents have a stored snapshot.
func (m *MemorySnapshots) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.snapshots)
}
