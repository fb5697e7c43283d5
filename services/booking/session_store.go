package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"barberbook/utils"
)

// SessionStore persists booking workflow snapshots between requests.
type SessionStore interface {
	Save(ctx context.Context, snap Snapshot) error
	Load(ctx context.Context, sessionID string) (Snapshot, error)
	Delete(ctx context.Context, sessionID string) error
}

// CacheSessionStore keeps snapshots as JSON in a utils.Cache (Redis in
// production) with a sliding TTL.
type CacheSessionStore struct {
	Cache utils.Cache
	TTL   time.Duration
}

func NewCacheSessionStore(cache utils.Cache, ttl time.Duration) *CacheSessionStore {
	return &CacheSessionStore{Cache: cache, TTL: ttl}
}

func sessionKey(id string) string {
	return "bookingSession:" + id
}

func (s *CacheSessionStore) Save(ctx context.Context, snap Snapshot) error {
	data, err := json.Marshal(persistedSnapshot{Snapshot: snap, Owner: snap.OwnerID})
	if err != nil {
		return fmt.Errorf("failed to marshal booking session: %w", err)
	}
	if err := s.Cache.Set(ctx, sessionKey(snap.SessionID), string(data), s.TTL); err != nil {
		return fmt.Errorf("failed to store booking session: %w", err)
	}
	return nil
}

func (s *CacheSessionStore) Load(ctx context.Context, sessionID string) (Snapshot, error) {
	data, err := s.Cache.Get(ctx, sessionKey(sessionID))
	if errors.Is(err, utils.ErrCacheMiss) {
		return Snapshot{}, ErrSessionNotFound
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to read booking session: %w", err)
	}
	var p persistedSnapshot
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return Snapshot{}, fmt.Errorf("failed to parse booking session: %w", err)
	}
	p.Snapshot.OwnerID = p.Owner
	return p.Snapshot, nil
}

func (s *CacheSessionStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.Cache.Delete(ctx, sessionKey(sessionID)); err != nil {
		return fmt.Errorf("failed to cancel booking session: %w", err)
	}
	return nil
}
