package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/farmsight/apiserver/types"
)

func setupTestCache(t *testing.T) (*StatsCache, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	cache, err := NewStatsCache("redis://"+s.Addr(), time.Minute)
	if err != nil {
		t.Fatalf("failed to create stats cache: %v", err)
	}
	return cache, s
}

func TestNewStatsCache(t *testing.T) {
	s := miniredis.RunT(t)
	defer s.Close()

	cache, err := NewStatsCache("redis://"+s.Addr(), time.Minute)
	if err != nil {
		t.Fatalf("NewStatsCache failed: %v", err)
	}
	defer cache.Close()

	if err := cache.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestStatsCacheSetAndGet(t *testing.T) {
	cache, s := setupTestCache(t)
	defer cache.Close()
	defer s.Close()

	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	stats := types.FieldDataStats{
		TotalRecords:        8,
		LastUpdated:         &now,
		CurrentMonthRecords: 3,
		LastMonthRecords:    2,
		GrowthPercentage:    50,
	}

	if err := cache.Set(ctx, 1, stats); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, hit, err := cache.Get(ctx, 1)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !hit {
		t.Fatal("expected a cache hit")
	}
	if got.TotalRecords != stats.TotalRecords || got.GrowthPercentage != stats.GrowthPercentage {
		t.Errorf("got %+v, want %+v", got, stats)
	}
	if got.LastUpdated == nil || !got.LastUpdated.Equal(now) {
		t.Errorf("expected lastUpdated %v, got %v", now, got.LastUpdated)
	}
}

func TestStatsCacheMiss(t *testing.T) {
	cache, s := setupTestCache(t)
	defer cache.Close()
	defer s.Close()

	_, hit, err := cache.Get(context.Background(), 99)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if hit {
		t.Error("expected a miss for an unknown user")
	}
}

func TestStatsCacheExpiry(t *testing.T) {
	s := miniredis.RunT(t)
	defer s.Close()

	cache, err := NewStatsCache("redis://"+s.Addr(), time.Second)
	if err != nil {
		t.Fatalf("NewStatsCache failed: %v", err)
	}
	defer cache.Close()

	ctx := context.Background()
	if err := cache.Set(ctx, 1, types.FieldDataStats{TotalRecords: 1}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	s.FastForward(2 * time.Second)

	_, hit, err := cache.Get(ctx, 1)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if hit {
		t.Error("expected entry to expire")
	}
}

func TestStatsCacheInvalidate(t *testing.T) {
	cache, s := setupTestCache(t)
	defer cache.Close()
	defer s.Close()

	ctx := context.Background()
	if err := cache.Set(ctx, 1, types.FieldDataStats{TotalRecords: 4}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := cache.Invalidate(ctx, 1); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}

	_, hit, err := cache.Get(ctx, 1)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if hit {
		t.Error("expected entry to be gone after invalidate")
	}
}

func TestStatsCacheCorruptEntryBehavesAsMiss(t *testing.T) {
	cache, s := setupTestCache(t)
	defer cache.Close()
	defer s.Close()

	if err := s.Set("stats:user:1", "not json"); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	_, hit, err := cache.Get(context.Background(), 1)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if hit {
		t.Error("expected corrupt entry to behave as a miss")
	}
}

func TestStatsCacheIsolationBetweenUsers(t *testing.T) {
	cache, s := setupTestCache(t)
	defer cache.Close()
	defer s.Close()

	ctx := context.Background()
	if err := cache.Set(ctx, 1, types.FieldDataStats{TotalRecords: 1}); err != nil {
		t.Fatalf("Set user 1 failed: %v", err)
	}
	if err := cache.Set(ctx, 2, types.FieldDataStats{TotalRecords: 2}); err != nil {
		t.Fatalf("Set user 2 failed: %v", err)
	}
	if err := cache.Invalidate(ctx, 1); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}

	got, hit, err := cache.Get(ctx, 2)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !hit || got.TotalRecords != 2 {
		t.Errorf("expected user 2 entry untouched, hit=%v stats=%+v", hit, got)
	}
}
