// Package marker keeps short-lived string markers in Redis or memory.
// It backs idempotency keys and revoked session IDs.
package marker

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store records keys for a limited time.
type Store interface {
	// Mark records key and reports whether it was new.
	Mark(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Exists(ctx context.Context, key string) (bool, error)
	// Release drops key so it can be marked again.
	Release(ctx context.Context, key string) error
}

// New returns a Redis store, or an in-memory one when client is nil.
func New(client *redis.Client, prefix string) Store {
	if client == nil {
		return NewMemory()
	}
	return &redisStore{client: client, prefix: prefix}
}

type redisStore struct {
	client *redis.Client
	prefix string
}

func (s *redisStore) Mark(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.prefix+key, "1", ttl).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

func (s *redisStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, s.prefix+key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *redisStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}

type memoryStore struct {
	mu     sync.Mutex
	seen   map[string]time.Time
	nextGC time.Time
	now    func() time.Time
}

func NewMemory() Store {
	return &memoryStore{seen: make(map[string]time.Time), now: time.Now}
}

func (s *memoryStore) Mark(_ context.Context, key string, ttl time.Duration) (bool, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if exp, ok := s.seen[key]; ok && exp.After(now) {
		return false, nil
	}
	s.seen[key] = now.Add(ttl)

	if now.After(s.nextGC) {
		for k, exp := range s.seen {
			if !exp.After(now) {
				delete(s.seen, k)
			}
		}
		s.nextGC = now.Add(time.Minute)
	}
	return true, nil
}

func (s *memoryStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.seen[key]
	return ok && exp.After(s.now()), nil
}

func (s *memoryStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.seen, key)
	return nil
}

// Revoker adapts a Store to record ended sessions.
type Revoker struct {
	Store Store
}

func (r Revoker) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	_, err := r.Store.Mark(ctx, "revoked:"+tokenID, ttl)
	return err
}

func (r Revoker) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	return r.Store.Exists(ctx, "revoked:"+tokenID)
}
