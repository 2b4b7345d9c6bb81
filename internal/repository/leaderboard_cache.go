package repository

import (
	"context"
	"time"
)

// LeaderboardCache holds short-lived serialized leaderboard snapshots.
// Implementations: Redis (production) or in-memory (local dev / single instance).
// A nil value with a nil error means cache miss.
type LeaderboardCache interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
}
