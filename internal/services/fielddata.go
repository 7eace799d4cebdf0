package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/farmsight/apiserver/internal/store"
	"github.com/farmsight/apiserver/types"
)

// FieldDataRepository defines persistence operations for yield records.
type FieldDataRepository interface {
	ListAccessible(ctx context.Context, userID int) ([]types.FieldData, error)
	GetAccessible(ctx context.Context, id, userID int) (types.FieldData, error)
	Create(ctx context.Context, record types.FieldData) (types.FieldData, error)
	Update(ctx context.Context, id, userID int, patch *store.Patch) (types.FieldData, error)
	Delete(ctx context.Context, id, userID int) error
	Stats(ctx context.Context, userID int) (types.FieldDataStats, error)
}

// StatsCache is an optional cache-aside layer in front of Stats.
type StatsCache interface {
	Get(ctx context.Context, userID int) (types.FieldDataStats, bool, error)
	Set(ctx context.Context, userID int, stats types.FieldDataStats) error
	Invalidate(ctx context.Context, userID int) error
}

// FieldDataService encapsulates yield-record use-cases.
type FieldDataService struct {
	repo   FieldDataRepository
	fields FieldOwnershipChecker
	cache  StatsCache
}

// NewFieldDataService constructs the service. cache may be nil, in which
// case statistics always hit the store.
func NewFieldDataService(repo FieldDataRepository, fields FieldOwnershipChecker, cache StatsCache) *FieldDataService {
	return &FieldDataService{repo: repo, fields: fields, cache: cache}
}

// FieldDataInput is the validated payload for creating a yield record.
type FieldDataInput struct {
	FieldID         int
	CropType        string
	YieldAmount     float64
	Unit            string
	MeasurementDate time.Time
	Notes           *string
}

// FieldDataPatch carries the subset of mutable columns present in an update
// request.
type FieldDataPatch struct {
	FieldID         *int
	CropType        *string
	YieldAmount     *float64
	Unit            *string
	MeasurementDate *time.Time
	Notes           *string
}

func (s *FieldDataService) List(ctx context.Context, userID int) ([]types.FieldData, error) {
	return s.repo.ListAccessible(ctx, userID)
}

func (s *FieldDataService) Get(ctx context.Context, id, userID int) (types.FieldData, error) {
	return s.repo.GetAccessible(ctx, id, userID)
}

func (s *FieldDataService) Create(ctx context.Context, userID int, input FieldDataInput) (types.FieldData, error) {
	if input.YieldAmount <= 0 {
		return types.FieldData{}, invalidf("yield amount must be a positive number")
	}
	if err := s.checkFieldOwnership(ctx, input.FieldID, userID); err != nil {
		return types.FieldData{}, err
	}

	record, err := s.repo.Create(ctx, types.FieldData{
		FieldID:         input.FieldID,
		UserID:          userID,
		CropType:        strings.TrimSpace(input.CropType),
		YieldAmount:     input.YieldAmount,
		Unit:            strings.TrimSpace(input.Unit),
		MeasurementDate: input.MeasurementDate,
		Notes:           input.Notes,
	})
	if err != nil {
		return types.FieldData{}, err
	}
	s.invalidateStats(ctx, userID)
	return record, nil
}

func (s *FieldDataService) Update(ctx context.Context, id, userID int, patch FieldDataPatch) (types.FieldData, error) {
	assignments := &store.Patch{}

	if patch.FieldID != nil {
		if err := s.checkFieldOwnership(ctx, *patch.FieldID, userID); err != nil {
			return types.FieldData{}, err
		}
		assignments.Set("field_id", *patch.FieldID)
	}
	if patch.CropType != nil {
		assignments.Set("crop_type", strings.TrimSpace(*patch.CropType))
	}
	if patch.YieldAmount != nil {
		if *patch.YieldAmount <= 0 {
			return types.FieldData{}, invalidf("yield amount must be a positive number")
		}
		assignments.Set("yield_amount", *patch.YieldAmount)
	}
	if patch.Unit != nil {
		assignments.Set("unit", strings.TrimSpace(*patch.Unit))
	}
	if patch.MeasurementDate != nil {
		assignments.Set("measurement_date", *patch.MeasurementDate)
	}
	if patch.Notes != nil {
		assignments.Set("notes", *patch.Notes)
	}

	if assignments.Empty() {
		return types.FieldData{}, invalidf("no fields provided for update")
	}

	record, err := s.repo.Update(ctx, id, userID, assignments)
	if err != nil {
		return types.FieldData{}, err
	}
	s.invalidateStats(ctx, userID)
	return record, nil
}

func (s *FieldDataService) Delete(ctx context.Context, id, userID int) error {
	if err := s.repo.Delete(ctx, id, userID); err != nil {
		return err
	}
	s.invalidateStats(ctx, userID)
	return nil
}

// Stats serves the caller's aggregate cache-aside: a cache hit short-circuits
// the store, a miss populates the cache with the configured TTL. Cache
// failures degrade to the store, they never fail the request.
func (s *FieldDataService) Stats(ctx context.Context, userID int) (types.FieldDataStats, error) {
	if s.cache != nil {
		stats, ok, err := s.cache.Get(ctx, userID)
		if err != nil {
			log.Printf("stats cache get failed for user %d: %v", userID, err)
		} else if ok {
			return stats, nil
		}
	}

	stats, err := s.repo.Stats(ctx, userID)
	if err != nil {
		return types.FieldDataStats{}, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, userID, stats); err != nil {
			log.Printf("stats cache set failed for user %d: %v", userID, err)
		}
	}
	return stats, nil
}

func (s *FieldDataService) checkFieldOwnership(ctx context.Context, fieldID, userID int) error {
	if _, err := s.fields.GetByOwner(ctx, fieldID, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrFieldNotOwned
		}
		return err
	}
	return nil
}

func (s *FieldDataService) invalidateStats(ctx context.Context, userID int) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		log.Printf("stats cache invalidate failed for user %d: %v", userID, err)
	}
}
