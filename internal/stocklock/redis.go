package stocklock

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps locks as plain string keys: SET key holder EX ttl NX.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) TryAcquire(ctx context.Context, key, holder string, ttl time.Duration) (bool, error) {
	return s.rdb.SetNX(ctx, key, holder, ttl).Result()
}

// Release issues a single multi-key DEL. Keys must share a hash slot when
// running against Redis Cluster.
func (s *RedisStore) Release(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.rdb.Del(ctx, keys...).Err()
}
