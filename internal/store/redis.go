package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"

	"github.com/collab-docs/collabserver/internal/session"
)

const (
	sessionKeyPrefix = "collab:session:"
	docKeyPrefix     = "collab:doc:"
	userKeyPrefix    = "collab:user:"
	clientsKey       = "collab:clients"

	redisOpTimeout = 5 * time.Second
)

// RedisSessions is a session.Store backed by redis, for deployments that
// externalise session state. Session records are JSON values; document
// and user membership live in sets. Every call runs under its own
// short-timeout context so store operations outlive the bootstrap
// context.
type RedisSessions struct {
	client *redis.Client
}

var _ session.Store = (*RedisSessions)(nil)

// NewRedisSessions connects and pings redis; ctx bounds the initial ping
// only.
func NewRedisSessions(ctx context.Context, redisURL string) (*RedisSessions, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisSessions{client: client}, nil
}

func (r *RedisSessions) Close() error {
	return r.client.Close()
}

func opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), redisOpTimeout)
}

func sessionKey(clientID string) string { return sessionKeyPrefix + clientID }
func docKey(documentID string) string   { return docKeyPrefix + documentID }
func userSetKey(userID string) string   { return userKeyPrefix + userID }

func (r *RedisSessions) Add(s *session.Session) error {
	ctx, cancel := opCtx()
	defer cancel()

	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	ok, err := r.client.SetNX(ctx, sessionKey(s.ClientID), data, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", session.ErrDuplicateClient, s.ClientID)
	}

	pipe := r.client.Pipeline()
	pipe.SAdd(ctx, docKey(s.DocumentID), s.ClientID)
	pipe.SAdd(ctx, userSetKey(s.UserID), s.ClientID)
	pipe.SAdd(ctx, clientsKey, s.ClientID)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisSessions) Get(clientID string) *session.Session {
	ctx, cancel := opCtx()
	defer cancel()
	return r.get(ctx, clientID)
}

func (r *RedisSessions) get(ctx context.Context, clientID string) *session.Session {
	data, err := r.client.Get(ctx, sessionKey(clientID)).Bytes()
	if err != nil {
		return nil
	}
	s := &session.Session{}
	if err := json.Unmarshal(data, s); err != nil {
		log.WithError(err).WithField("client_id", clientID).Warn("corrupt session record")
		return nil
	}
	return s
}

func (r *RedisSessions) ActiveByDocument(documentID string, now time.Time, threshold time.Duration) []*session.Session {
	ctx, cancel := opCtx()
	defer cancel()

	clientIDs, err := r.client.SMembers(ctx, docKey(documentID)).Result()
	if err != nil {
		return nil
	}
	sessions := make([]*session.Session, 0, len(clientIDs))
	for _, clientID := range clientIDs {
		s := r.get(ctx, clientID)
		if s != nil && s.Status != session.StatusDisconnected && s.Fresh(now, threshold) {
			sessions = append(sessions, s)
		}
	}
	return sessions
}

func (r *RedisSessions) ByUser(userID string) []*session.Session {
	ctx, cancel := opCtx()
	defer cancel()

	clientIDs, err := r.client.SMembers(ctx, userSetKey(userID)).Result()
	if err != nil {
		return nil
	}
	sessions := make([]*session.Session, 0, len(clientIDs))
	for _, clientID := range clientIDs {
		if s := r.get(ctx, clientID); s != nil {
			sessions = append(sessions, s)
		}
	}
	return sessions
}

func (r *RedisSessions) Touch(clientID string, now time.Time) {
	ctx, cancel := opCtx()
	defer cancel()

	s := r.get(ctx, clientID)
	if s == nil {
		return
	}
	s.LastSeenAt = now
	data, err := json.Marshal(s)
	if err != nil {
		return
	}
	r.client.Set(ctx, sessionKey(clientID), data, 0)
}

func (r *RedisSessions) Remove(clientID string) *session.Session {
	ctx, cancel := opCtx()
	defer cancel()
	return r.remove(ctx, clientID)
}

func (r *RedisSessions) remove(ctx context.Context, clientID string) *session.Session {
	s := r.get(ctx, clientID)
	if s == nil {
		return nil
	}
	s.Status = session.StatusDisconnected

	pipe := r.client.Pipeline()
	pipe.Del(ctx, sessionKey(clientID))
	pipe.SRem(ctx, docKey(s.DocumentID), clientID)
	pipe.SRem(ctx, userSetKey(s.UserID), clientID)
	pipe.SRem(ctx, clientsKey, clientID)
	if _, err := pipe.Exec(ctx); err != nil {
		log.WithError(err).WithField("client_id", clientID).Warn("failed to remove session indexes")
	}
	return s
}

func (r *RedisSessions) Sweep(now time.Time, threshold time.Duration) []*session.Session {
	ctx, cancel := opCtx()
	defer cancel()

	clientIDs, err := r.client.SMembers(ctx, clientsKey).Result()
	if err != nil {
		return nil
	}
	var expired []*session.Session
	for _, clientID := range clientIDs {
		s := r.get(ctx, clientID)
		if s == nil {
			// Stale index entry; drop it.
			r.client.SRem(ctx, clientsKey, clientID)
			continue
		}
		if !s.Fresh(now, threshold) {
			if removed := r.remove(ctx, clientID); removed != nil {
				expired = append(expired, removed)
			}
		}
	}
	return expired
}

func (r *RedisSessions) CountByDocument(documentID string) int {
	ctx, cancel := opCtx()
	defer cancel()

	n, err := r.client.SCard(ctx, docKey(documentID)).Result()
	if err != nil {
		return 0
	}
	return int(n)
}
