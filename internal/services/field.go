package services

import (
	"context"
	"strings"
	"time"

	"github.com/farmsight/apiserver/internal/store"
	"github.com/farmsight/apiserver/types"
)

const defaultDrainage = "moderate"

var (
	fieldStatuses  = []string{"active", "fallow", "maintenance"}
	soilTypes      = []string{"loamy", "sandy", "clay"}
	drainageLevels = []string{"good", "moderate", "poor"}
)

// normalizeEnum lowercases raw and checks membership in allowed. Validation
// is case-insensitive; the stored value is always lowercase.
func normalizeEnum(raw, name string, allowed []string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	for _, candidate := range allowed {
		if value == candidate {
			return value, nil
		}
	}
	return "", invalidf("invalid %s %q: must be one of %s", name, raw, strings.Join(allowed, ", "))
}

// FieldRepository defines persistence operations for fields.
type FieldRepository interface {
	ListByOwner(ctx context.Context, userID int) ([]types.Field, error)
	GetByOwner(ctx context.Context, id, userID int) (types.Field, error)
	Create(ctx context.Context, field types.Field) (types.Field, error)
	Update(ctx context.Context, id, userID int, patch *store.Patch) (types.Field, error)
	Delete(ctx context.Context, id, userID int) error
	ListOptions(ctx context.Context, userID int) ([]types.FieldOption, error)
	CropTypes(ctx context.Context, userID int) ([]string, error)
}

// DeviceLister lists the devices assigned to a field.
type DeviceLister interface {
	ListByField(ctx context.Context, fieldID int) ([]types.Device, error)
}

// FieldService encapsulates field use-cases.
type FieldService struct {
	repo    FieldRepository
	devices DeviceLister
}

func NewFieldService(repo FieldRepository, devices DeviceLister) *FieldService {
	return &FieldService{repo: repo, devices: devices}
}

// FieldInput is the validated payload for creating a field.
type FieldInput struct {
	FieldName      string
	Location       string
	Area           float64
	CropType       string
	Status         string
	SoilType       string
	Drainage       string
	LastIrrigation *time.Time
	NextIrrigation *time.Time
}

// FieldPatch carries the subset of mutable columns present in an update
// request. Nil pointers mean "not supplied".
type FieldPatch struct {
	FieldName      *string
	Location       *string
	Area           *float64
	CropType       *string
	Status         *string
	SoilType       *string
	Drainage       *string
	LastIrrigation *time.Time
	NextIrrigation *time.Time
}

func (s *FieldService) List(ctx context.Context, userID int) ([]types.Field, error) {
	return s.repo.ListByOwner(ctx, userID)
}

// Get returns an owned field together with its assigned devices.
func (s *FieldService) Get(ctx context.Context, id, userID int) (types.Field, []types.Device, error) {
	field, err := s.repo.GetByOwner(ctx, id, userID)
	if err != nil {
		return types.Field{}, nil, err
	}
	devices, err := s.devices.ListByField(ctx, field.ID)
	if err != nil {
		return types.Field{}, nil, err
	}
	return field, devices, nil
}

func (s *FieldService) Create(ctx context.Context, userID int, input FieldInput) (types.Field, error) {
	if input.Area <= 0 {
		return types.Field{}, invalidf("area must be a positive number")
	}

	status, err := normalizeEnum(input.Status, "status", fieldStatuses)
	if err != nil {
		return types.Field{}, err
	}
	soilType, err := normalizeEnum(input.SoilType, "soiltype", soilTypes)
	if err != nil {
		return types.Field{}, err
	}
	drainage := input.Drainage
	if strings.TrimSpace(drainage) == "" {
		drainage = defaultDrainage
	}
	drainage, err = normalizeEnum(drainage, "drainage", drainageLevels)
	if err != nil {
		return types.Field{}, err
	}

	return s.repo.Create(ctx, types.Field{
		UserID:         userID,
		FieldName:      strings.TrimSpace(input.FieldName),
		Location:       strings.TrimSpace(input.Location),
		Area:           input.Area,
		CropType:       strings.TrimSpace(input.CropType),
		Status:         status,
		SoilType:       soilType,
		Drainage:       drainage,
		LastIrrigation: input.LastIrrigation,
		NextIrrigation: input.NextIrrigation,
	})
}

// Update applies a partial patch. Supplied enum values are re-validated the
// same way Create validates them; a patch with nothing to assign is rejected
// before the store is touched.
func (s *FieldService) Update(ctx context.Context, id, userID int, patch FieldPatch) (types.Field, error) {
	assignments := &store.Patch{}

	if patch.FieldName != nil {
		assignments.Set("field_name", strings.TrimSpace(*patch.FieldName))
	}
	if patch.Location != nil {
		assignments.Set("location", strings.TrimSpace(*patch.Location))
	}
	if patch.Area != nil {
		if *patch.Area <= 0 {
			return types.Field{}, invalidf("area must be a positive number")
		}
		assignments.Set("area", *patch.Area)
	}
	if patch.CropType != nil {
		assignments.Set("crop_type", strings.TrimSpace(*patch.CropType))
	}
	if patch.Status != nil {
		status, err := normalizeEnum(*patch.Status, "status", fieldStatuses)
		if err != nil {
			return types.Field{}, err
		}
		assignments.Set("status", status)
	}
	if patch.SoilType != nil {
		soilType, err := normalizeEnum(*patch.SoilType, "soiltype", soilTypes)
		if err != nil {
			return types.Field{}, err
		}
		assignments.Set("soil_type", soilType)
	}
	if patch.Drainage != nil {
		drainage, err := normalizeEnum(*patch.Drainage, "drainage", drainageLevels)
		if err != nil {
			return types.Field{}, err
		}
		assignments.Set("drainage", drainage)
	}
	if patch.LastIrrigation != nil {
		assignments.Set("last_irrigation", *patch.LastIrrigation)
	}
	if patch.NextIrrigation != nil {
		assignments.Set("next_irrigation", *patch.NextIrrigation)
	}

	if assignments.Empty() {
		return types.Field{}, invalidf("no fields provided for update")
	}

	return s.repo.Update(ctx, id, userID, assignments)
}

func (s *FieldService) Delete(ctx context.Context, id, userID int) error {
	return s.repo.Delete(ctx, id, userID)
}

func (s *FieldService) ListOptions(ctx context.Context, userID int) ([]types.FieldOption, error) {
	return s.repo.ListOptions(ctx, userID)
}

func (s *FieldService) CropTypes(ctx context.Context, userID int) ([]string, error) {
	return s.repo.CropTypes(ctx, userID)
}
