package collab

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/collab-docs/collabserver/internal/registry"
)

// Sweeper periodically expires idle sessions and evicts idle documents.
type Sweeper struct {
	usecases *UseCases
	registry *registry.Registry

	sessionInterval  time.Duration
	documentInterval time.Duration
	documentTTL      time.Duration
}

// NewSweeper configures the periodic cleanup. sessionInterval drives
// session expiry (threshold comes from the use-cases), documentInterval
// and documentTTL drive registry eviction.
func NewSweeper(u *UseCases, reg *registry.Registry, sessionInterval, documentInterval, documentTTL time.Duration) *Sweeper {
	return &Sweeper{
		usecases:         u,
		registry:         reg,
		sessionInterval:  sessionInterval,
		documentInterval: documentInterval,
		documentTTL:      documentTTL,
	}
}

// Run blocks until ctx is done, firing the two cleanup passes on their
// own tickers.
func (s *Sweeper) Run(ctx context.Context) {
	sessions := time.NewTicker(s.sessionInterval)
	defer sessions.Stop()
	documents := time.NewTicker(s.documentInterval)
	defer documents.Stop()

	log.WithFields(log.Fields{
		"session_interval":  s.sessionInterval.String(),
		"document_interval": s.documentInterval.String(),
		"document_ttl":      s.documentTTL.String(),
	}).Info("sweeper started")

	for {
		select {
		case <-ctx.Done():
			log.Info("sweeper stopped")
			return
		case <-sessions.C:
			events := s.usecases.CleanupExpiredSessions(time.Now().UTC())
			if len(events) > 0 {
				log.WithField("expired", len(events)/2).Debug("session sweep complete")
			}
		case <-documents.C:
			evicted := s.registry.EvictIdle(ctx, time.Now().UTC(), s.documentTTL)
			if len(evicted) > 0 {
				log.WithField("documents", evicted).Debug("evicted idle documents")
			}
		}
	}
}
