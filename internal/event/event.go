// Package event defines the collaboration events fanned out to document
// subscribers. Every event names its document and, where applicable, the
// client it concerns, plus the time it was produced.
package event

import "time"

// Type tags the variants of a collaboration event.
type Type string

const (
	UserJoined       Type = "user_joined"
	UserLeft         Type = "user_left"
	DocumentUpdated  Type = "document_updated"
	AwarenessUpdated Type = "awareness_updated"
	SessionExpired   Type = "session_expired"
	SyncRequested    Type = "sync_requested"
)

// Event is one collaboration event. Fields beyond DocumentID, ClientID
// and Timestamp are populated per variant:
//
//	UserJoined:       UserID, UserName, UserColor, Metadata
//	UserLeft:         UserID
//	DocumentUpdated:  Update, SequenceNumber (origin in ClientID)
//	AwarenessUpdated: UserInfo, AwarenessState
//	SessionExpired:   UserID
//	SyncRequested:    StateVector
type Event struct {
	Type           Type
	DocumentID     string
	ClientID       string
	UserID         string
	UserName       string
	UserColor      string
	Metadata       map[string]string
	Update         []byte
	SequenceNumber uint64
	UserInfo       string
	AwarenessState string
	StateVector    []byte
	Timestamp      time.Time
}
