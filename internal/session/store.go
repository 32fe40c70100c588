package session

import (
	"fmt"
	"sync"
	"time"
)

// ErrDuplicateClient is returned by Add when a live session already holds
// the client id.
var ErrDuplicateClient = fmt.Errorf("session: duplicate client id")

// Store is the contract every session store implements. All operations
// are linearisable with respect to one another. External adapters (redis)
// plug in here unchanged.
type Store interface {
	// Add registers a new session; ErrDuplicateClient if the client id is
	// already present.
	Add(s *Session) error
	// Get returns a snapshot copy, or nil when absent.
	Get(clientID string) *Session
	// ActiveByDocument returns snapshot copies of every session on the
	// document whose status allows fan-out and whose last-seen time is
	// within threshold of now.
	ActiveByDocument(documentID string, now time.Time, threshold time.Duration) []*Session
	// ByUser returns snapshot copies of every session owned by the user
	// (multiple tabs yield multiple sessions).
	ByUser(userID string) []*Session
	// Touch refreshes LastSeenAt; it is a no-op when the client is absent.
	Touch(clientID string, now time.Time)
	// Remove deletes and returns the session, or nil when absent.
	Remove(clientID string) *Session
	// Sweep removes and returns every session idle strictly longer than
	// threshold.
	Sweep(now time.Time, threshold time.Duration) []*Session
	// CountByDocument returns the number of sessions on the document.
	CountByDocument(documentID string) int
}

// MemoryStore is the in-memory Store. A single RWMutex keeps the primary
// map and the document/user shadow indexes consistent; per-key locking
// cannot give the cross-index linearisability the contract demands.
type MemoryStore struct {
	mu       sync.RWMutex
	byClient map[string]*Session
	byDoc    map[string]map[string]struct{}
	byUser   map[string]map[string]struct{}
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byClient: make(map[string]*Session),
		byDoc:    make(map[string]map[string]struct{}),
		byUser:   make(map[string]map[string]struct{}),
	}
}

func (m *MemoryStore) Add(s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byClient[s.ClientID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateClient, s.ClientID)
	}
	m.byClient[s.ClientID] = s.clone()
	m.index(m.byDoc, s.DocumentID, s.ClientID)
	m.index(m.byUser, s.UserID, s.ClientID)
	return nil
}

func (m *MemoryStore) Get(clientID string) *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if s, ok := m.byClient[clientID]; ok {
		return s.clone()
	}
	return nil
}

func (m *MemoryStore) ActiveByDocument(documentID string, now time.Time, threshold time.Duration) []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Session
	for clientID := range m.byDoc[documentID] {
		s := m.byClient[clientID]
		if s == nil || s.Status == StatusDisconnected {
			continue
		}
		if !s.Fresh(now, threshold) {
			continue
		}
		out = append(out, s.clone())
	}
	return out
}

func (m *MemoryStore) ByUser(userID string) []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Session
	for clientID := range m.byUser[userID] {
		if s := m.byClient[clientID]; s != nil {
			out = append(out, s.clone())
		}
	}
	return out
}

func (m *MemoryStore) Touch(clientID string, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.byClient[clientID]; ok {
		s.LastSeenAt = now
	}
}

func (m *MemoryStore) Remove(clientID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.remove(clientID)
}

func (m *MemoryStore) Sweep(now time.Time, threshold time.Duration) []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	var expired []*Session
	for clientID, s := range m.byClient {
		if now.Sub(s.LastSeenAt) > threshold {
			expired = append(expired, m.remove(clientID))
		}
	}
	return expired
}

func (m *MemoryStore) CountByDocument(documentID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.byDoc[documentID])
}

// remove deletes a session and its index entries; caller holds the lock.
// The returned session is marked Disconnected (terminal).
func (m *MemoryStore) remove(clientID string) *Session {
	s, ok := m.byClient[clientID]
	if !ok {
		return nil
	}
	delete(m.byClient, clientID)
	m.unindex(m.byDoc, s.DocumentID, clientID)
	m.unindex(m.byUser, s.UserID, clientID)
	s.Status = StatusDisconnected
	return s
}

func (m *MemoryStore) index(idx map[string]map[string]struct{}, key, clientID string) {
	set, ok := idx[key]
	if !ok {
		set = make(map[string]struct{})
		idx[key] = set
	}
	set[clientID] = struct{}{}
}

func (m *MemoryStore) unindex(idx map[string]map[string]struct{}, key, clientID string) {
	if set, ok := idx[key]; ok {
		delete(set, clientID)
		if len(set) == 0 {
			delete(idx, key)
		}
	}
}
