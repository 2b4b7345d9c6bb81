package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisLeaderboardCache struct {
	client *redis.Client
}

func NewRedisLeaderboardCache(client *redis.Client) LeaderboardCache {
	return &redisLeaderboardCache{client: client}
}

func (c *redisLeaderboardCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c *redisLeaderboardCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	return val, err
}
