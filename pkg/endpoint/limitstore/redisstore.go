package limitstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrScript bumps the counter and arms its expiry in one atomic
// round trip. The PTTL guard also repairs counters left without a
// TTL, which would otherwise grow forever and block submissions once
// past the limit.
var incrScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if redis.call("PTTL", KEYS[1]) < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// RedisStore counts submissions in Redis, for deployments where form
// handlers run on more than one host. The window expires from the
// first increment; the boundary behavior matches the file store.
type RedisStore struct {
	client    redis.Scripter
	keyPrefix string
}

// NewRedisStore wraps a Redis client. The prefix namespaces counter
// keys and defaults to "formpost:rate:".
func NewRedisStore(client redis.Cmdable, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "formpost:rate:"
	}
	return &RedisStore{client: client, keyPrefix: prefix}
}

// Increment implements Store.
func (s *RedisStore) Increment(ctx context.Context, key string, window time.Duration) (int, error) {
	digest := sha256.Sum256([]byte(key))
	redisKey := s.keyPrefix + hex.EncodeToString(digest[:])

	count, err := incrScript.Run(ctx, s.client, []string{redisKey}, window.Milliseconds()).Int()
	if err != nil {
		return 0, fmt.Errorf("limitstore: redis incr: %w", err)
	}
	return count, nil
}
