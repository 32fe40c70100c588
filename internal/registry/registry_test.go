package registry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/collab-docs/collabserver/internal/crdt"
)

type memSnapshots struct {
	mu    sync.Mutex
	saved map[string][]byte
}

func newMemSnapshots() *memSnapshots {
	return &memSnapshots{saved: make(map[string][]byte)}
}

func (m *memSnapshots) Load(_ context.Context, id string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saved[id], nil
}

func (m *memSnapshots) Save(_ context.Context, id string, snapshot []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved[id] = snapshot
	return nil
}

func TestGetOrCreateIsAtomic(t *testing.T) {
	r := New(nil)
	ctx := context.Background()

	const n = 16
	entries := make([]*Entry, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			entries[i] = r.GetOrCreate(ctx, "doc-1")
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		assert.Same(t, entries[0], entries[i])
	}
	assert.Equal(t, 1, r.Len())
}

func TestLookupMiss(t *testing.T) {
	r := New(nil)
	_, err := r.Lookup("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSequenceNumbersAreGapless(t *testing.T) {
	r := New(nil)
	e := r.GetOrCreate(context.Background(), "doc-1")

	for want := uint64(1); want <= 5; want++ {
		_, seq, err := e.ApplyUpdate(crdt.EncodeOps(1, want, []byte("x")))
		require.NoError(t, err)
		assert.Equal(t, want, seq)
	}

	// A re-delivered update still consumes a sequence number.
	delta, seq, err := e.ApplyUpdate(crdt.EncodeOps(1, 1, []byte("x")))
	require.NoError(t, err)
	assert.Empty(t, delta)
	assert.Equal(t, uint64(6), seq)
}

func TestApplyMalformedDoesNotConsumeSeq(t *testing.T) {
	r := New(nil)
	e := r.GetOrCreate(context.Background(), "doc-1")

	_, _, err := e.ApplyUpdate([]byte{0xFF})
	var de *crdt.DecodeError
	require.ErrorAs(t, err, &de)

	_, seq, err := e.ApplyUpdate(crdt.EncodeOps(1, 1, []byte("x")))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), seq)
}

func TestEvictIdlePersistsAndResets(t *testing.T) {
	snaps := newMemSnapshots()
	r := New(snaps)
	ctx := context.Background()

	e := r.GetOrCreate(ctx, "doc-1")
	_, _, err := e.ApplyUpdate(crdt.EncodeOps(1, 1, []byte("hello")))
	require.NoError(t, err)

	// Held entries never evict.
	e.Acquire()
	assert.Empty(t, r.EvictIdle(ctx, time.Now().Add(time.Hour), time.Minute))
	e.Release()

	// Fresh idle entries survive too.
	assert.Empty(t, r.EvictIdle(ctx, time.Now(), time.Minute))

	evicted := r.EvictIdle(ctx, time.Now().Add(time.Hour), time.Minute)
	assert.Equal(t, []string{"doc-1"}, evicted)
	assert.Equal(t, 0, r.Len())

	// Recreating loads the persisted snapshot; the sequence counter has
	// reset for the new lifetime.
	e2 := r.GetOrCreate(ctx, "doc-1")
	sv, full := e2.Snapshot()
	assert.Equal(t, e.StateVector(), sv)
	assert.NotEmpty(t, full)

	_, seq, err := e2.ApplyUpdate(crdt.EncodeOps(2, 1, []byte("y")))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), seq)
}

func TestSnapshotConsistentUnderLock(t *testing.T) {
	r := New(nil)
	e := r.GetOrCreate(context.Background(), "doc-1")
	_, _, err := e.ApplyUpdate(crdt.EncodeOps(1, 1, []byte("a"), []byte("b")))
	require.NoError(t, err)

	sv, full := e.Snapshot()
	peer := crdt.New()
	_, err = peer.ApplyUpdate(full)
	require.NoError(t, err)
	assert.Equal(t, sv, peer.StateVector())
}
