package repository

import (
    "context"
    "strconv"
    "time"

    "github.com/redis/go-redis/v9"
)

// IdempotencyStore maps client-supplied Idempotency-Key headers to the
// reservation code created for them, so a retried POST /reservations
// after a client-side timeout returns the original booking instead of
// creating a duplicate.  Entries expire after a fixed TTL; a nil Redis
// client disables the mechanism and every create runs fresh.
type IdempotencyStore struct {
    rdb *redis.Client
    ttl time.Duration
}

// NewIdempotencyStore returns a store with the given entry TTL.
func NewIdempotencyStore(rdb *redis.Client, ttl time.Duration) *IdempotencyStore {
    if ttl <= 0 {
        ttl = 24 * time.Hour
    }
    return &IdempotencyStore{rdb: rdb, ttl: ttl}
}

func (s *IdempotencyStore) key(userID uint64, key string) string {
    return "idem:" + strconv.FormatUint(userID, 10) + ":" + key
}

// Lookup returns the reservation code previously stored for this user
// and key, or "" when the key has not been seen.
func (s *IdempotencyStore) Lookup(ctx context.Context, userID uint64, key string) (string, error) {
    if s == nil || s.rdb == nil || key == "" {
        return "", nil
    }
    code, err := s.rdb.Get(ctx, s.key(userID, key)).Result()
    if err == redis.Nil {
        return "", nil
    }
    if err != nil {
        return "", err
    }
    return code, nil
}

// Remember records the reservation code for a key.  SETNX keeps the
// first writer's code if two retries ever race past Lookup.
func (s *IdempotencyStore) Remember(ctx context.Context, userID uint64, key, code string) error {
    if s == nil || s.rdb == nil || key == "" {
        return nil
    }
    return s.rdb.SetNX(ctx, s.key(userID, key), code, s.ttl).Err()
}
