package collab

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/collab-docs/collabserver/internal/broadcast"
	"github.com/collab-docs/collabserver/internal/crdt"
	"github.com/collab-docs/collabserver/internal/event"
	"github.com/collab-docs/collabserver/internal/registry"
	"github.com/collab-docs/collabserver/internal/session"
)

func newTestUseCases() *UseCases {
	return NewUseCases(session.NewMemoryStore(), registry.New(nil), broadcast.New(), 120*time.Second)
}

func join(t *testing.T, u *UseCases, clientID, docID, userID string) {
	t.Helper()
	_, err := u.JoinDocument(context.Background(), JoinParams{
		ClientID:   clientID,
		DocumentID: docID,
		UserID:     userID,
		UserName:   userID,
		UserColor:  "#f00",
	})
	require.NoError(t, err)
}

func recvEvent(t *testing.T, sub *broadcast.Subscription) *event.Event {
	t.Helper()
	select {
	case ev := <-sub.C():
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestJoinEcho(t *testing.T) {
	u := newTestUseCases()
	sub := u.Broadcaster().Subscribe("D1", "A")
	defer sub.Close()

	join(t, u, "A", "D1", "alice")

	ev := recvEvent(t, sub)
	assert.Equal(t, event.UserJoined, ev.Type)
	assert.Equal(t, "D1", ev.DocumentID)
	assert.Equal(t, "A", ev.ClientID)
	assert.Equal(t, "alice", ev.UserID)

	active := u.GetActiveUsers("D1")
	require.Len(t, active, 1)
	assert.Equal(t, "alice", active[0].UserID)

	select {
	case ev := <-sub.C():
		t.Fatalf("unexpected extra event: %+v", ev)
	default:
	}
}

func TestTwoClientConvergence(t *testing.T) {
	u := newTestUseCases()
	join(t, u, "A", "D1", "alice")
	join(t, u, "B", "D1", "bob")

	subA := u.Broadcaster().Subscribe("D1", "A")
	subB := u.Broadcaster().Subscribe("D1", "B")
	defer subA.Close()
	defer subB.Close()

	update := crdt.EncodeOps(1, 1, []byte("hello"))
	_, err := u.HandleDocumentUpdate("A", update)
	require.NoError(t, err)

	ev := recvEvent(t, subB)
	assert.Equal(t, event.DocumentUpdated, ev.Type)
	assert.Equal(t, "A", ev.ClientID)
	assert.Equal(t, uint64(1), ev.SequenceNumber)
	assert.Equal(t, update, ev.Update)

	select {
	case ev := <-subA.C():
		t.Fatalf("update echoed to its originator: %+v", ev)
	default:
	}

	state, err := u.GetDocumentState(context.Background(), "D1")
	require.NoError(t, err)
	assert.Contains(t, string(state.Document), "hello")
}

func TestIdempotentUpdate(t *testing.T) {
	u := newTestUseCases()
	join(t, u, "A", "D1", "alice")
	join(t, u, "B", "D1", "bob")

	subB := u.Broadcaster().Subscribe("D1", "B")
	defer subB.Close()

	update := crdt.EncodeOps(1, 1, []byte("hello"))
	_, err := u.HandleDocumentUpdate("A", update)
	require.NoError(t, err)
	first, err := u.GetDocumentState(context.Background(), "D1")
	require.NoError(t, err)

	_, err = u.HandleDocumentUpdate("A", update)
	require.NoError(t, err)
	second, err := u.GetDocumentState(context.Background(), "D1")
	require.NoError(t, err)

	// Two events by contract, identical document bytes by CRDT law.
	ev1 := recvEvent(t, subB)
	ev2 := recvEvent(t, subB)
	assert.Equal(t, uint64(1), ev1.SequenceNumber)
	assert.Equal(t, uint64(2), ev2.SequenceNumber)
	assert.Equal(t, first.Document, second.Document)
}

func TestStateVectorDiffRoundTrip(t *testing.T) {
	u := newTestUseCases()
	join(t, u, "A", "D1", "alice")
	_, err := u.HandleDocumentUpdate("A", crdt.EncodeOps(1, 1, []byte("u1")))
	require.NoError(t, err)
	_, err = u.HandleDocumentUpdate("A", crdt.EncodeOps(1, 2, []byte("u2")))
	require.NoError(t, err)

	join(t, u, "B", "D1", "bob")

	// B syncs from nothing: the diff is the full snapshot.
	data, err := u.GetSyncData("B", nil)
	require.NoError(t, err)
	replica := crdt.New()
	_, err = replica.ApplyUpdate(data.Diff)
	require.NoError(t, err)
	assert.Equal(t, data.ServerStateVector, replica.StateVector())

	// Caught up, B's next diff is empty.
	data, err = u.GetSyncData("B", replica.StateVector())
	require.NoError(t, err)
	assert.Len(t, data.Diff, 0)
}

func TestSyncRequestedHintReachesPeers(t *testing.T) {
	u := newTestUseCases()
	join(t, u, "A", "D1", "alice")
	join(t, u, "B", "D1", "bob")

	subA := u.Broadcaster().Subscribe("D1", "A")
	subB := u.Broadcaster().Subscribe("D1", "B")
	defer subA.Close()
	defer subB.Close()

	_, err := u.GetSyncData("B", nil)
	require.NoError(t, err)

	ev := recvEvent(t, subA)
	assert.Equal(t, event.SyncRequested, ev.Type)
	assert.Equal(t, "B", ev.ClientID)

	select {
	case ev := <-subB.C():
		t.Fatalf("sync hint echoed to the requester: %+v", ev)
	default:
	}
}

func TestSessionExpiry(t *testing.T) {
	u := newTestUseCases()
	join(t, u, "A", "D1", "alice")
	join(t, u, "C", "D1", "carol")

	subA := u.Broadcaster().Subscribe("D1", "A")
	defer subA.Close()

	// A heartbeats, C never does.
	now := time.Now().UTC().Add(121 * time.Second)
	require.NoError(t, u.HandleHeartbeat("A"))
	u.sessions.Touch("A", now)

	events := u.CleanupExpiredSessions(now)
	require.Len(t, events, 2)
	assert.Equal(t, event.SessionExpired, events[0].Type)
	assert.Equal(t, event.UserLeft, events[1].Type)
	assert.Equal(t, "C", events[0].ClientID)

	ev := recvEvent(t, subA)
	assert.Equal(t, event.SessionExpired, ev.Type)
	ev = recvEvent(t, subA)
	assert.Equal(t, event.UserLeft, ev.Type)

	active := u.GetActiveUsers("D1")
	require.Len(t, active, 1)
	assert.Equal(t, "alice", active[0].UserID)
}

func TestDuplicateClientRejected(t *testing.T) {
	u := newTestUseCases()
	join(t, u, "c-7", "D1", "alice")

	_, err := u.JoinDocument(context.Background(), JoinParams{
		ClientID:   "c-7",
		DocumentID: "D1",
		UserID:     "bob",
	})
	assert.ErrorIs(t, err, ErrDuplicateClient)

	// Original session unchanged.
	active := u.GetActiveUsers("D1")
	require.Len(t, active, 1)
	assert.Equal(t, "alice", active[0].UserID)
}

func TestJoinGeneratesClientID(t *testing.T) {
	u := newTestUseCases()
	ev, err := u.JoinDocument(context.Background(), JoinParams{
		DocumentID: "D1",
		UserID:     "alice",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, ev.ClientID)
}

func TestJoinValidatesIDs(t *testing.T) {
	u := newTestUseCases()
	_, err := u.JoinDocument(context.Background(), JoinParams{DocumentID: "", UserID: "alice"})
	assert.ErrorIs(t, err, ErrEmptyID)
	_, err = u.JoinDocument(context.Background(), JoinParams{DocumentID: "D1", UserID: ""})
	assert.ErrorIs(t, err, ErrEmptyID)
}

func TestUpdateWithoutSession(t *testing.T) {
	u := newTestUseCases()
	_, err := u.HandleDocumentUpdate("ghost", crdt.EncodeOps(1, 1, []byte("x")))
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMalformedUpdateKeepsHeartbeat(t *testing.T) {
	u := newTestUseCases()
	join(t, u, "A", "D1", "alice")

	before := u.sessions.Get("A").LastSeenAt
	time.Sleep(5 * time.Millisecond)

	_, err := u.HandleDocumentUpdate("A", []byte{0xFF})
	assert.ErrorIs(t, err, ErrInvalidUpdate)

	after := u.sessions.Get("A").LastSeenAt
	assert.True(t, after.After(before), "failed update still counts as a heartbeat")
}

func TestLeaveDocument(t *testing.T) {
	u := newTestUseCases()
	join(t, u, "A", "D1", "alice")

	sub := u.Broadcaster().Subscribe("D1", "A")
	defer sub.Close()

	ev := u.LeaveDocument("A")
	require.NotNil(t, ev)
	assert.Equal(t, event.UserLeft, ev.Type)
	assert.Empty(t, u.GetActiveUsers("D1"))

	assert.Nil(t, u.LeaveDocument("A"), "second leave is a no-op")
}

func TestAwarenessRelay(t *testing.T) {
	u := newTestUseCases()
	join(t, u, "A", "D1", "alice")
	join(t, u, "B", "D1", "bob")

	subB := u.Broadcaster().Subscribe("D1", "B")
	defer subB.Close()

	_, err := u.HandleAwarenessUpdate("A", `{"name":"alice"}`, `{"cursor":{"anchor":3}}`)
	require.NoError(t, err)

	ev := recvEvent(t, subB)
	assert.Equal(t, event.AwarenessUpdated, ev.Type)
	assert.Equal(t, `{"cursor":{"anchor":3}}`, ev.AwarenessState)
}
