// Package registry maps document ids to live CRDT replicas. Entries are
// created on first use, reference-counted by their subscribers, and
// evicted (with a final snapshot) once idle past the document TTL.
package registry

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/collab-docs/collabserver/internal/crdt"
)

// ErrNotFound is returned by lookup-only calls for unknown documents.
var ErrNotFound = errors.New("registry: document not found")

// SnapshotStore persists full-document snapshots across entry lifetimes.
// Load returns (nil, nil) when no snapshot exists.
type SnapshotStore interface {
	Load(ctx context.Context, documentID string) ([]byte, error)
	Save(ctx context.Context, documentID string, snapshot []byte) error
}

// Registry is the live-document index. The sync.Map keeps inserts and
// lookups for different documents from excluding one another.
type Registry struct {
	entries   sync.Map // documentID → *Entry
	snapshots SnapshotStore
}

// Entry is one live document: the replica, its serialisation lock, the
// per-entry sequence counter and the bookkeeping eviction relies on.
type Entry struct {
	documentID string

	mu  sync.Mutex // serialises all replica access
	doc *crdt.Document
	seq uint64

	refs         atomic.Int64
	lastActivity atomic.Int64 // unix nanos

	loadOnce sync.Once
}

// New returns a registry backed by the given snapshot store.
func New(snapshots SnapshotStore) *Registry {
	return &Registry{snapshots: snapshots}
}

// GetOrCreate returns the live entry for documentID, creating it (and
// loading any persisted snapshot) on first use. Concurrent callers for
// the same id receive the same entry. It never fails: a snapshot store
// error is logged and the document starts empty.
func (r *Registry) GetOrCreate(ctx context.Context, documentID string) *Entry {
	e := &Entry{documentID: documentID, doc: crdt.New()}
	e.touch()
	actual, _ := r.entries.LoadOrStore(documentID, e)
	entry := actual.(*Entry)
	entry.loadOnce.Do(func() { entry.loadSnapshot(ctx, r.snapshots) })
	return entry
}

// Lookup returns the live entry or ErrNotFound; it never creates one.
func (r *Registry) Lookup(documentID string) (*Entry, error) {
	if v, ok := r.entries.Load(documentID); ok {
		return v.(*Entry), nil
	}
	return nil, ErrNotFound
}

// EvictIdle removes entries with no subscribers whose last activity is at
// least ttl ago, persisting a final snapshot first. It returns the ids of
// the evicted documents. Eviction resets the entry's sequence counter for
// the next lifetime; clients must not assume monotonicity across a period
// when nobody held the document open.
func (r *Registry) EvictIdle(ctx context.Context, now time.Time, ttl time.Duration) []string {
	var evicted []string
	r.entries.Range(func(key, value interface{}) bool {
		entry := value.(*Entry)
		if entry.refs.Load() > 0 {
			return true
		}
		if now.Sub(time.Unix(0, entry.lastActivity.Load())) < ttl {
			return true
		}
		r.entries.Delete(key)
		entry.persist(ctx, r.snapshots)
		evicted = append(evicted, entry.documentID)
		return true
	})
	return evicted
}

// Len returns the number of live entries.
func (r *Registry) Len() int {
	n := 0
	r.entries.Range(func(_, _ interface{}) bool {
		n++
		return true
	})
	return n
}

// DocumentID returns the entry's document id.
func (e *Entry) DocumentID() string { return e.documentID }

// Acquire counts a new subscriber, keeping the entry out of eviction.
func (e *Entry) Acquire() { e.refs.Add(1) }

// Release drops a subscriber; the entry becomes an eviction candidate
// when the count reaches zero.
func (e *Entry) Release() {
	if e.refs.Add(-1) <= 0 {
		e.touch()
	}
}

// Refs returns the current subscriber count.
func (e *Entry) Refs() int64 { return e.refs.Load() }

// LastActivity returns the time of the entry's most recent use.
func (e *Entry) LastActivity() time.Time { return time.Unix(0, e.lastActivity.Load()) }

// ApplyUpdate merges an update under the serialisation lock and assigns
// the next sequence number. Every successful apply consumes a sequence
// number, including re-deliveries that integrate nothing; the CRDT makes
// those no-ops, the event stream still observes them.
func (e *Entry) ApplyUpdate(update []byte) (delta []byte, seq uint64, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	delta, err = e.doc.ApplyUpdate(update)
	if err != nil {
		return nil, 0, err
	}
	e.seq++
	e.touch()
	return delta, e.seq, nil
}

// StateVector returns the replica's state vector under the lock.
func (e *Entry) StateVector() []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doc.StateVector()
}

// Diff returns the update a peer at peerStateVector is missing.
func (e *Entry) Diff(peerStateVector []byte) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doc.Diff(peerStateVector)
}

// Snapshot returns the state vector and full document, both taken under
// the same hold of the serialisation lock.
func (e *Entry) Snapshot() (stateVector, full []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doc.StateVector(), e.doc.EncodeFull()
}

func (e *Entry) touch() { e.lastActivity.Store(time.Now().UnixNano()) }

func (e *Entry) loadSnapshot(ctx context.Context, store SnapshotStore) {
	if store == nil {
		return
	}
	snapshot, err := store.Load(ctx, e.documentID)
	if err != nil {
		log.WithFields(log.Fields{"document_id": e.documentID, "error": err}).
			Warn("failed to load document snapshot, starting empty")
		return
	}
	if len(snapshot) == 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.doc.ApplyUpdate(snapshot); err != nil {
		log.WithFields(log.Fields{"document_id": e.documentID, "error": err}).
			Warn("persisted snapshot is not a valid update, starting empty")
		e.doc = crdt.New()
	}
}

func (e *Entry) persist(ctx context.Context, store SnapshotStore) {
	if store == nil {
		return
	}
	_, full := e.Snapshot()
	if len(full) == 0 {
		return
	}
	if err := store.Save(ctx, e.documentID, full); err != nil {
		log.WithFields(log.Fields{"document_id": e.documentID, "error": err}).
			Warn("failed to persist document snapshot on eviction")
	}
}
