package lease

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const redisLeaseKeyPrefix = "lease:"

// releaseScript deletes the key only when the stored holder matches, so a
// holder whose lease expired cannot release someone else's refreshed lease.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisStore keeps leases as keys with a TTL. Expiry-based stealing comes
// for free: once the key lapses, SET NX succeeds for the next holder.
type RedisStore struct {
	client *goredis.Client
}

// NewRedisStore creates a store over an established client.
func NewRedisStore(client *goredis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Acquire installs the lease with SET NX PX, which is atomic on the server.
func (s *RedisStore) Acquire(ctx context.Context, name, holder string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, redisLeaseKeyPrefix+name, holder, ttl).Result()
}

// Release runs a compare-and-delete script; a mismatched holder is a no-op.
func (s *RedisStore) Release(ctx context.Context, name, holder string) error {
	return releaseScript.Run(ctx, s.client, []string{redisLeaseKeyPrefix + name}, holder).Err()
}

// Sweep is a no-op: Redis expires lease keys on its own.
func (s *RedisStore) Sweep(_ context.Context) (int64, error) {
	return 0, nil
}
