// Package session tracks the live client sessions participating in
// collaborative documents: one record per transport connection, indexed
// by client, document and user.
package session

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a session.
type Status string

const (
	StatusActive Status = "active"
	// StatusOffline is reserved for transports that want to survive a
	// short drop without losing the session. Fan-out treats it as active.
	StatusOffline      Status = "offline"
	StatusDisconnected Status = "disconnected"
)

// Session is the server's record of one client editing one document.
// Identity fields (ID, ClientID, DocumentID, UserID) never change after
// creation; the rest is mutated through the store.
type Session struct {
	ID         uuid.UUID
	ClientID   string
	DocumentID string
	UserID     string
	UserName   string
	UserColor  string
	Metadata   map[string]string
	CreatedAt  time.Time
	LastSeenAt time.Time
	Status     Status
}

// New creates an Active session stamped with the current time.
func New(clientID, documentID, userID, userName, userColor string, metadata map[string]string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:         uuid.New(),
		ClientID:   clientID,
		DocumentID: documentID,
		UserID:     userID,
		UserName:   userName,
		UserColor:  userColor,
		Metadata:   metadata,
		CreatedAt:  now,
		LastSeenAt: now,
		Status:     StatusActive,
	}
}

// Fresh reports whether the session has been seen within threshold of now.
func (s *Session) Fresh(now time.Time, threshold time.Duration) bool {
	return now.Sub(s.LastSeenAt) <= threshold
}

// clone returns a snapshot copy so callers never share mutable state with
// the store.
func (s *Session) clone() *Session {
	cp := *s
	if s.Metadata != nil {
		cp.Metadata = make(map[string]string, len(s.Metadata))
		for k, v := range s.Metadata {
			cp.Metadata[k] = v
		}
	}
	return &cp
}
