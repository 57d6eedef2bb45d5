package session

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "paid:"
	defaultTTL       = 24 * time.Hour
)

// RedisStore backs paid-sets with one Redis set per session. It is the
// multi-instance alternative to MemoryStore: any replica sharing the Redis
// instance sees the same paid-sets.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisStore{
		client: client,
		ttl:    ttl,
	}
}

func (s *RedisStore) key(sessionID string) string {
	return sessionKeyPrefix + sessionID
}

// PaidSet implements Store. Sessions are materialized lazily: an unknown
// session simply has no key yet, which reads as an empty set.
func (s *RedisStore) PaidSet(_ context.Context, sessionID string) (PaidSet, error) {
	return &redisPaidSet{client: s.client, key: s.key(sessionID), ttl: s.ttl}, nil
}

type redisPaidSet struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// Add uses SADD, which is idempotent under concurrent duplicate inserts.
// The session TTL is refreshed on every successful payment.
func (p *redisPaidSet) Add(ctx context.Context, segmentID string) error {
	if err := p.client.SAdd(ctx, p.key, segmentID).Err(); err != nil {
		return err
	}
	return p.client.Expire(ctx, p.key, p.ttl).Err()
}

func (p *redisPaidSet) Contains(ctx context.Context, segmentID string) (bool, error) {
	return p.client.SIsMember(ctx, p.key, segmentID).Result()
}
