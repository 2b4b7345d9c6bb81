package repository

import (
	"bytes"
	"context"
	"testing"
	"time"
)

func TestMemoryLeaderboardCache(t *testing.T) {
	cache := NewMemoryLeaderboardCache()
	ctx := context.Background()

	if got, err := cache.Get(ctx, "missing"); err != nil || got != nil {
		t.Errorf("Get(missing) = %v, %v, want nil, nil", got, err)
	}

	want := []byte(`[{"rank":1}]`)
	if err := cache.Set(ctx, "leaderboard:10", want, time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, err := cache.Get(ctx, "leaderboard:10")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("Get() = %q, want %q", got, want)
	}
}

func TestMemoryLeaderboardCache_TTLExpiry(t *testing.T) {
	cache := NewMemoryLeaderboardCache()
	ctx := context.Background()

	if err := cache.Set(ctx, "k", []byte("v"), time.Millisecond); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	if got, err := cache.Get(ctx, "k"); err != nil || got != nil {
		t.Errorf("Get() after TTL = %q, %v, want nil, nil", got, err)
	}
}

func TestMemoryLeaderboardCache_ZeroTTLNeverExpires(t *testing.T) {
	cache := NewMemoryLeaderboardCache()
	ctx := context.Background()

	if err := cache.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	time.Sleep(2 * time.Millisecond)

	got, err := cache.Get(ctx, "k")
	if err != nil || string(got) != "v" {
		t.Errorf("Get() = %q, %v, want v, nil", got, err)
	}
}
