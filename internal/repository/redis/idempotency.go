package redis

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	idemLock   = "LOCK"
	idemResult = "RES:"
)

// IdemState is where a keyed request stands.
type IdemState int

const (
	// IdemAcquired means the caller owns the key and must Save or Release it.
	IdemAcquired IdemState = iota
	// IdemInFlight means another request with the same key is still running.
	IdemInFlight
	// IdemDone means a result was already stored for the key.
	IdemDone
)

// IdempotencyStore remembers the response of a request made with an
// Idempotency-Key. A key holds "LOCK" while the first request runs and
// "RES:<json>" once it finished.
type IdempotencyStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewIdempotencyStore(rdb *redis.Client, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{rdb: rdb, ttl: ttl}
}

// Begin claims key for lockTTL unless it is already claimed or finished.
// For IdemDone the stored result is returned.
func (s *IdempotencyStore) Begin(ctx context.Context, key string, lockTTL time.Duration) (IdemState, string, error) {
	ok, err := s.rdb.SetNX(ctx, key, idemLock, lockTTL).Result()
	if err != nil {
		return 0, "", err
	}
	if ok {
		return IdemAcquired, "", nil
	}

	v, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET; let the caller try again
		return IdemInFlight, "", nil
	}
	if err != nil {
		return 0, "", err
	}

	if res, ok := strings.CutPrefix(v, idemResult); ok {
		return IdemDone, res, nil
	}

	return IdemInFlight, "", nil
}

// Save stores the final result for key, replacing the lock.
func (s *IdempotencyStore) Save(ctx context.Context, key string, jsonPayload string) error {
	return s.rdb.Set(ctx, key, idemResult+jsonPayload, s.ttl).Err()
}

// Release drops the lock so a failed request can be retried with the same key.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}
