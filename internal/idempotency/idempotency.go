// Package idempotency remembers the response to a request carrying an
// Idempotency-Key so a retried checkout is answered without running again.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix  = "idempotency:"
	sweepEvery = time.Minute
	pending    = "\x00pending"
	DefaultTTL = 24 * time.Hour
)

// ErrInProgress is returned by Begin while another request holds the key.
var ErrInProgress = errors.New("request with this idempotency key is in progress")

// Store claims keys and keeps the stored response.
//
// Begin either claims key (found=false) or returns the response completed
// earlier (found=true). The claimant must Complete or Abort.
type Store interface {
	Begin(ctx context.Context, key string) (response []byte, found bool, err error)
	Complete(ctx context.Context, key string, response []byte) error
	Abort(ctx context.Context, key string) error
}

type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) Begin(ctx context.Context, key string) ([]byte, bool, error) {
	ok, err := s.rdb.SetNX(ctx, keyPrefix+key, pending, s.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("claim idempotency key: %w", err)
	}
	if ok {
		return nil, false, nil
	}
	val, err := s.rdb.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		// expired between the two calls
		return s.Begin(ctx, key)
	}
	if err != nil {
		return nil, false, fmt.Errorf("read idempotency key: %w", err)
	}
	if string(val) == pending {
		return nil, false, ErrInProgress
	}
	return val, true, nil
}

func (s *RedisStore) Complete(ctx context.Context, key string, response []byte) error {
	return s.rdb.Set(ctx, keyPrefix+key, response, s.ttl).Err()
}

func (s *RedisStore) Abort(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, keyPrefix+key).Err()
}

type memEntry struct {
	response []byte
	done     bool
	expires  time.Time
}

// MemoryStore is the Store used when redis is disabled.
type MemoryStore struct {
	mu        sync.Mutex
	entries   map[string]memEntry
	ttl       time.Duration
	now       func() time.Time
	nextSweep time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{entries: map[string]memEntry{}, ttl: ttl, now: time.Now}
}

func (s *MemoryStore) Begin(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.sweepLocked(now)
	if e, ok := s.entries[key]; ok && now.Before(e.expires) {
		if !e.done {
			return nil, false, ErrInProgress
		}
		return e.response, true, nil
	}
	s.entries[key] = memEntry{expires: now.Add(s.ttl)}
	return nil, false, nil
}

func (s *MemoryStore) Complete(_ context.Context, key string, response []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.sweepLocked(now)
	s.entries[key] = memEntry{response: response, done: true, expires: now.Add(s.ttl)}
	return nil
}

// sweepLocked drops expired entries, at most once per sweepEvery.
func (s *MemoryStore) sweepLocked(now time.Time) {
	if now.Before(s.nextSweep) {
		return
	}
	for key, e := range s.entries {
		if !now.Before(e.expires) {
			delete(s.entries, key)
		}
	}
	s.nextSweep = now.Add(sweepEvery)
}

func (s *MemoryStore) Abort(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}
