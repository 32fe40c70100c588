package collab

import (
	"errors"

	"github.com/collab-docs/collabserver/internal/session"
)

// Typed errors the adapters translate onto the wire. ErrDuplicateClient
// aliases the session store's sentinel so errors.Is works from either
// side.
var (
	ErrDuplicateClient  = session.ErrDuplicateClient
	ErrSessionNotFound  = errors.New("collab: session not found")
	ErrDocumentNotFound = errors.New("collab: document not found")
	ErrInvalidUpdate    = errors.New("collab: invalid update")
	ErrEmptyID          = errors.New("collab: id must not be empty")
)
