// Package collab is the use-case façade both streaming adapters call. It
// orchestrates the document registry, the session store and the event
// broadcaster, and owns the expiry sweeper.
package collab

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/collab-docs/collabserver/internal/broadcast"
	"github.com/collab-docs/collabserver/internal/event"
	"github.com/collab-docs/collabserver/internal/registry"
	"github.com/collab-docs/collabserver/internal/session"
)

// JoinParams carries the identity a client presents when joining a
// document. An empty ClientID asks the server to generate one.
type JoinParams struct {
	ClientID   string
	DocumentID string
	UserID     string
	UserName   string
	UserColor  string
	Metadata   map[string]string
}

// DocumentState is the read-model returned by GetDocumentState.
type DocumentState struct {
	DocumentID   string
	StateVector  []byte
	Document     []byte
	ActiveUsers  []*session.Session
	LastModified time.Time
}

// SyncData is the reply to a state-vector sync request.
type SyncData struct {
	ServerStateVector []byte
	Diff              []byte
}

// UseCases wires the collaboration hub together. All methods are safe for
// concurrent use.
type UseCases struct {
	sessions        session.Store
	registry        *registry.Registry
	broadcaster     *broadcast.Broadcaster
	expiryThreshold time.Duration
}

// NewUseCases builds the façade. expiryThreshold bounds how stale a
// session may be and still count as active.
func NewUseCases(sessions session.Store, reg *registry.Registry, b *broadcast.Broadcaster, expiryThreshold time.Duration) *UseCases {
	return &UseCases{
		sessions:        sessions,
		registry:        reg,
		broadcaster:     b,
		expiryThreshold: expiryThreshold,
	}
}

// Broadcaster exposes the fan-out primitive so adapters can subscribe
// their connections to document events.
func (u *UseCases) Broadcaster() *broadcast.Broadcaster { return u.broadcaster }

// JoinDocument creates an Active session and announces it. The returned
// event is also broadcast to every subscriber, the newcomer included, so
// clients reconcile membership from one stream. A second join for a live
// client id fails with ErrDuplicateClient.
func (u *UseCases) JoinDocument(ctx context.Context, p JoinParams) (*event.Event, error) {
	if p.DocumentID == "" || p.UserID == "" {
		return nil, fmt.Errorf("%w: document and user ids are required", ErrEmptyID)
	}
	if p.ClientID == "" {
		p.ClientID = uuid.New().String()
	}

	s := session.New(p.ClientID, p.DocumentID, p.UserID, p.UserName, p.UserColor, p.Metadata)
	if err := u.sessions.Add(s); err != nil {
		return nil, err
	}

	entry := u.registry.GetOrCreate(ctx, p.DocumentID)
	entry.Acquire()

	ev := &event.Event{
		Type:       event.UserJoined,
		DocumentID: p.DocumentID,
		ClientID:   p.ClientID,
		UserID:     p.UserID,
		UserName:   p.UserName,
		UserColor:  p.UserColor,
		Metadata:   p.Metadata,
		Timestamp:  time.Now().UTC(),
	}
	u.broadcaster.Publish(ev, "")

	log.WithFields(log.Fields{
		"document_id": p.DocumentID,
		"client_id":   p.ClientID,
		"user_id":     p.UserID,
	}).Info("client joined document")
	return ev, nil
}

// LeaveDocument removes the session and announces the departure. Leaving
// twice, or leaving a client that never joined, is a silent no-op.
func (u *UseCases) LeaveDocument(clientID string) *event.Event {
	s := u.sessions.Remove(clientID)
	if s == nil {
		return nil
	}
	u.releaseEntry(s.DocumentID)

	ev := &event.Event{
		Type:       event.UserLeft,
		DocumentID: s.DocumentID,
		ClientID:   s.ClientID,
		UserID:     s.UserID,
		Timestamp:  time.Now().UTC(),
	}
	u.broadcaster.Publish(ev, "")

	log.WithFields(log.Fields{
		"document_id": s.DocumentID,
		"client_id":   s.ClientID,
	}).Info("client left document")
	return ev
}

// HandleDocumentUpdate merges a client's update into its document and
// broadcasts the integrated delta to the client's peers. The inbound
// message doubles as a heartbeat: LastSeenAt is refreshed even when the
// payload turns out to be malformed.
func (u *UseCases) HandleDocumentUpdate(clientID string, update []byte) (*event.Event, error) {
	s := u.sessions.Get(clientID)
	if s == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, clientID)
	}
	u.sessions.Touch(clientID, time.Now().UTC())

	entry, err := u.registry.Lookup(s.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, s.DocumentID)
	}

	delta, seq, err := entry.ApplyUpdate(update)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidUpdate, err)
	}

	ev := &event.Event{
		Type:           event.DocumentUpdated,
		DocumentID:     s.DocumentID,
		ClientID:       clientID,
		Update:         delta,
		SequenceNumber: seq,
		Timestamp:      time.Now().UTC(),
	}
	u.broadcaster.Publish(ev, clientID)
	return ev, nil
}

// HandleAwarenessUpdate relays opaque presence JSON to the client's peers
// and refreshes the session. Content is never validated.
func (u *UseCases) HandleAwarenessUpdate(clientID, userInfo, awarenessState string) (*event.Event, error) {
	s := u.sessions.Get(clientID)
	if s == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, clientID)
	}
	u.sessions.Touch(clientID, time.Now().UTC())

	ev := &event.Event{
		Type:           event.AwarenessUpdated,
		DocumentID:     s.DocumentID,
		ClientID:       clientID,
		UserInfo:       userInfo,
		AwarenessState: awarenessState,
		Timestamp:      time.Now().UTC(),
	}
	u.broadcaster.Publish(ev, clientID)
	return ev, nil
}

// HandleHeartbeat refreshes the session's LastSeenAt. No event is
// produced.
func (u *UseCases) HandleHeartbeat(clientID string) error {
	if u.sessions.Get(clientID) == nil {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, clientID)
	}
	u.sessions.Touch(clientID, time.Now().UTC())
	return nil
}

// GetSyncData returns the server's state vector plus the diff that brings
// the peer up to date, and hints the client's peers that a re-sync
// happened. Peers may use the hint to notice a lagging client.
func (u *UseCases) GetSyncData(clientID string, peerStateVector []byte) (*SyncData, error) {
	s := u.sessions.Get(clientID)
	if s == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, clientID)
	}
	u.sessions.Touch(clientID, time.Now().UTC())

	entry, err := u.registry.Lookup(s.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, s.DocumentID)
	}

	diff, err := entry.Diff(peerStateVector)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidUpdate, err)
	}

	u.broadcaster.Publish(&event.Event{
		Type:        event.SyncRequested,
		DocumentID:  s.DocumentID,
		ClientID:    clientID,
		StateVector: peerStateVector,
		Timestamp:   time.Now().UTC(),
	}, clientID)

	return &SyncData{
		ServerStateVector: entry.StateVector(),
		Diff:              diff,
	}, nil
}

// GetDocumentState is a pure read of a document and its active sessions;
// it does not require the caller to hold a session.
func (u *UseCases) GetDocumentState(ctx context.Context, documentID string) (*DocumentState, error) {
	if documentID == "" {
		return nil, fmt.Errorf("%w: document id", ErrEmptyID)
	}
	entry := u.registry.GetOrCreate(ctx, documentID)
	sv, full := entry.Snapshot()
	return &DocumentState{
		DocumentID:   documentID,
		StateVector:  sv,
		Document:     full,
		ActiveUsers:  u.GetActiveUsers(documentID),
		LastModified: entry.LastActivity(),
	}, nil
}

// GetActiveUsers returns every fresh, active session on the document.
func (u *UseCases) GetActiveUsers(documentID string) []*session.Session {
	return u.sessions.ActiveByDocument(documentID, time.Now().UTC(), u.expiryThreshold)
}

// CleanupExpiredSessions sweeps sessions idle past the expiry threshold,
// announcing each removal as SessionExpired followed by UserLeft so
// clients that only track membership stay consistent.
func (u *UseCases) CleanupExpiredSessions(now time.Time) []*event.Event {
	expired := u.sessions.Sweep(now, u.expiryThreshold)
	events := make([]*event.Event, 0, len(expired)*2)
	for _, s := range expired {
		u.releaseEntry(s.DocumentID)
		ts := time.Now().UTC()
		expiredEv := &event.Event{
			Type:       event.SessionExpired,
			DocumentID: s.DocumentID,
			ClientID:   s.ClientID,
			UserID:     s.UserID,
			Timestamp:  ts,
		}
		leftEv := &event.Event{
			Type:       event.UserLeft,
			DocumentID: s.DocumentID,
			ClientID:   s.ClientID,
			UserID:     s.UserID,
			Timestamp:  ts,
		}
		u.broadcaster.Publish(expiredEv, "")
		u.broadcaster.Publish(leftEv, "")
		events = append(events, expiredEv, leftEv)

		log.WithFields(log.Fields{
			"document_id": s.DocumentID,
			"client_id":   s.ClientID,
			"idle":        now.Sub(s.LastSeenAt).String(),
		}).Info("session expired")
	}
	return events
}

func (u *UseCases) releaseEntry(documentID string) {
	if entry, err := u.registry.Lookup(documentID); err == nil {
		entry.Release()
	}
}
