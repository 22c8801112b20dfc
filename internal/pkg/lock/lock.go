// Package lock provides named mutual exclusion backed by Redis or process memory.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockTimeout is returned when ctx ends before the lock is acquired.
var ErrLockTimeout = errors.New("lock: timed out waiting for lock")

// Locker acquires a named lock. The returned func releases it and is safe to call once.
type Locker interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// New returns a Redis-backed locker, or an in-memory one when client is nil.
func New(client *redis.Client) Locker {
	if client == nil {
		return NewMemory()
	}
	return &redisLocker{client: client, prefix: "radpanel:lock:", retry: 25 * time.Millisecond}
}

type redisLocker struct {
	client *redis.Client
	prefix string
	retry  time.Duration
}

var luaUnlock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`)

func (l *redisLocker) Lock(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	key = l.prefix + key
	token := uuid.NewString()
	for {
		ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
		if err != nil && ctx.Err() == nil {
			return nil, err
		}
		if ok {
			return func() {
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_, _ = luaUnlock.Run(ctx, l.client, []string{key}, token).Result()
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ErrLockTimeout
		case <-time.After(l.retry):
		}
	}
}

// memoryLocker keeps one buffered channel per key; holding the lock means
// owning the channel's single slot. Entries are dropped once nobody waits.
type memoryLocker struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

// NewMemory returns a process-local locker. ttl is ignored.
func NewMemory() Locker {
	return &memoryLocker{slots: make(map[string]*slot)}
}

func (l *memoryLocker) Lock(ctx context.Context, key string, _ time.Duration) (func(), error) {
	l.mu.Lock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	l.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, s)
		return nil, ErrLockTimeout
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			l.release(key, s)
		})
	}, nil
}

func (l *memoryLocker) release(key string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}
