// README: Redis client for the shared provider response cache.
package infra

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// NewRedis connects and pings; the caller owns Close.
func NewRedis(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return rdb, nil
}
