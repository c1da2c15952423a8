package api

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisRateCounter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	TTL(ctx context.Context, key string) *redis.DurationCmd
}

// incrWithTTL 自增计数并保证 key 带有过期时间。
// 首次 Expire 失败时 key 会永久存在，因此之后发现没有 TTL 也会补上。
func incrWithTTL(ctx context.Context, client redisRateCounter, key string, ttl time.Duration) (int64, error) {
	count, err := client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		_ = client.Expire(ctx, key, ttl).Err()
		return count, nil
	}
	if remaining, err := client.TTL(ctx, key).Result(); err == nil && remaining < 0 {
		_ = client.Expire(ctx, key, ttl).Err()
	}
	return count, nil
}
