package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/farmsight/apiserver/internal/store"
	"github.com/farmsight/apiserver/types"
)

func TestFieldDataCreateRejectsNonPositiveYield(t *testing.T) {
	svc := NewFieldDataService(newFakeFieldDataRepo(), newFakeFieldRepo(), nil)

	for _, yield := range []float64{0, -1} {
		_, err := svc.Create(context.Background(), 1, FieldDataInput{
			FieldID:         1,
			CropType:        "wheat",
			YieldAmount:     yield,
			Unit:            "kg",
			MeasurementDate: time.Now(),
		})
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("yield %v: expected ValidationError, got %v", yield, err)
		}
	}
}

func TestFieldDataCreateChecksFieldOwnership(t *testing.T) {
	fields := newFakeFieldRepo(types.Field{ID: 3, UserID: 2})
	svc := NewFieldDataService(newFakeFieldDataRepo(), fields, nil)

	_, err := svc.Create(context.Background(), 1, FieldDataInput{
		FieldID:         3,
		CropType:        "wheat",
		YieldAmount:     10,
		Unit:            "kg",
		MeasurementDate: time.Now(),
	})
	if !errors.Is(err, ErrFieldNotOwned) {
		t.Fatalf("expected ErrFieldNotOwned, got %v", err)
	}
}

func TestFieldDataCreateInvalidatesStatsCache(t *testing.T) {
	fields := newFakeFieldRepo(types.Field{ID: 3, UserID: 1})
	cache := newFakeStatsCache()
	cache.entries[1] = types.FieldDataStats{TotalRecords: 5}
	svc := NewFieldDataService(newFakeFieldDataRepo(), fields, cache)

	_, err := svc.Create(context.Background(), 1, FieldDataInput{
		FieldID:         3,
		CropType:        "wheat",
		YieldAmount:     10,
		Unit:            "kg",
		MeasurementDate: time.Now(),
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if cache.invalidates != 1 {
		t.Errorf("expected 1 cache invalidation, got %d", cache.invalidates)
	}
}

func TestFieldDataUpdateRejectsEmptyPatch(t *testing.T) {
	repo := newFakeFieldDataRepo(types.FieldData{ID: 4, UserID: 1})
	svc := NewFieldDataService(repo, newFakeFieldRepo(), nil)

	_, err := svc.Update(context.Background(), 4, 1, FieldDataPatch{})

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(repo.patches) != 0 {
		t.Error("store should not be touched for an empty patch")
	}
}

func TestFieldDataDeleteOtherUserNotFound(t *testing.T) {
	repo := newFakeFieldDataRepo(types.FieldData{ID: 4, UserID: 2})
	svc := NewFieldDataService(repo, newFakeFieldRepo(), nil)

	if err := svc.Delete(context.Background(), 4, 1); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStatsCacheAside(t *testing.T) {
	repo := newFakeFieldDataRepo()
	repo.stats = types.FieldDataStats{TotalRecords: 12, CurrentMonthRecords: 3}
	cache := newFakeStatsCache()
	svc := NewFieldDataService(repo, newFakeFieldRepo(), cache)

	// First call misses the cache and populates it from the store.
	stats, err := svc.Stats(context.Background(), 1)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalRecords != 12 {
		t.Errorf("expected 12 total records, got %d", stats.TotalRecords)
	}
	if repo.statsCalls != 1 {
		t.Fatalf("expected 1 store call, got %d", repo.statsCalls)
	}
	if cache.sets != 1 {
		t.Errorf("expected 1 cache set, got %d", cache.sets)
	}

	// Second call is served from the cache.
	if _, err := svc.Stats(context.Background(), 1); err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if repo.statsCalls != 1 {
		t.Errorf("expected store untouched on cache hit, got %d calls", repo.statsCalls)
	}
}

func TestStatsWithoutCache(t *testing.T) {
	repo := newFakeFieldDataRepo()
	repo.stats = types.FieldDataStats{TotalRecords: 2}
	svc := NewFieldDataService(repo, newFakeFieldRepo(), nil)

	stats, err := svc.Stats(context.Background(), 1)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalRecords != 2 {
		t.Errorf("expected 2 total records, got %d", stats.TotalRecords)
	}
}
