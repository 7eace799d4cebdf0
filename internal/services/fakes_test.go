package services

import (
	"context"

	"github.com/farmsight/apiserver/internal/store"
	"github.com/farmsight/apiserver/types"
)

// fakeFieldRepo implements FieldRepository and FieldOwnershipChecker over an
// in-memory map keyed by field ID.
type fakeFieldRepo struct {
	fields  map[int]types.Field
	nextID  int
	created []types.Field
	patches []*store.Patch
}

func newFakeFieldRepo(fields ...types.Field) *fakeFieldRepo {
	repo := &fakeFieldRepo{fields: map[int]types.Field{}, nextID: 1}
	for _, f := range fields {
		repo.fields[f.ID] = f
		if f.ID >= repo.nextID {
			repo.nextID = f.ID + 1
		}
	}
	return repo
}

func (r *fakeFieldRepo) ListByOwner(ctx context.Context, userID int) ([]types.Field, error) {
	var out []types.Field
	for _, f := range r.fields {
		if f.UserID == userID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (r *fakeFieldRepo) GetByOwner(ctx context.Context, id, userID int) (types.Field, error) {
	f, ok := r.fields[id]
	if !ok || f.UserID != userID {
		return types.Field{}, store.ErrNotFound
	}
	return f, nil
}

func (r *fakeFieldRepo) Create(ctx context.Context, field types.Field) (types.Field, error) {
	field.ID = r.nextID
	r.nextID++
	r.fields[field.ID] = field
	r.created = append(r.created, field)
	return field, nil
}

func (r *fakeFieldRepo) Update(ctx context.Context, id, userID int, patch *store.Patch) (types.Field, error) {
	f, err := r.GetByOwner(ctx, id, userID)
	if err != nil {
		return types.Field{}, err
	}
	r.patches = append(r.patches, patch)
	return f, nil
}

func (r *fakeFieldRepo) Delete(ctx context.Context, id, userID int) error {
	if _, err := r.GetByOwner(ctx, id, userID); err != nil {
		return err
	}
	delete(r.fields, id)
	return nil
}

func (r *fakeFieldRepo) ListOptions(ctx context.Context, userID int) ([]types.FieldOption, error) {
	var out []types.FieldOption
	for _, f := range r.fields {
		if f.UserID == userID {
			out = append(out, types.FieldOption{ID: f.ID, FieldName: f.FieldName})
		}
	}
	return out, nil
}

func (r *fakeFieldRepo) CropTypes(ctx context.Context, userID int) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, f := range r.fields {
		if f.UserID == userID && !seen[f.CropType] {
			seen[f.CropType] = true
			out = append(out, f.CropType)
		}
	}
	return out, nil
}

// fakeDeviceRepo implements DeviceRepository over an in-memory map.
type fakeDeviceRepo struct {
	devices map[int]types.Device
	nextID  int
	patches []*store.Patch
}

func newFakeDeviceRepo(devices ...types.Device) *fakeDeviceRepo {
	repo := &fakeDeviceRepo{devices: map[int]types.Device{}, nextID: 1}
	for _, d := range devices {
		repo.devices[d.ID] = d
		if d.ID >= repo.nextID {
			repo.nextID = d.ID + 1
		}
	}
	return repo
}

func (r *fakeDeviceRepo) ListByOwner(ctx context.Context, userID int) ([]types.Device, error) {
	var out []types.Device
	for _, d := range r.devices {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *fakeDeviceRepo) ListByField(ctx context.Context, fieldID int) ([]types.Device, error) {
	var out []types.Device
	for _, d := range r.devices {
		if d.FieldID != nil && *d.FieldID == fieldID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *fakeDeviceRepo) GetByOwner(ctx context.Context, id, userID int) (types.Device, error) {
	d, ok := r.devices[id]
	if !ok || d.UserID != userID {
		return types.Device{}, store.ErrNotFound
	}
	return d, nil
}

func (r *fakeDeviceRepo) GetByMAC(ctx context.Context, mac string) (types.Device, error) {
	for _, d := range r.devices {
		if d.MACAddress == mac {
			return d, nil
		}
	}
	return types.Device{}, store.ErrNotFound
}

func (r *fakeDeviceRepo) Create(ctx context.Context, device types.Device) (types.Device, error) {
	device.ID = r.nextID
	r.nextID++
	r.devices[device.ID] = device
	return device, nil
}

func (r *fakeDeviceRepo) Update(ctx context.Context, id, userID int, patch *store.Patch) (types.Device, error) {
	d, err := r.GetByOwner(ctx, id, userID)
	if err != nil {
		return types.Device{}, err
	}
	r.patches = append(r.patches, patch)
	return d, nil
}

func (r *fakeDeviceRepo) Delete(ctx context.Context, id, userID int) error {
	if _, err := r.GetByOwner(ctx, id, userID); err != nil {
		return err
	}
	delete(r.devices, id)
	return nil
}

// fakeReadingLister returns a fixed set of readings.
type fakeReadingLister struct {
	readings []types.SensorReading
}

func (r *fakeReadingLister) ListLatestByDevice(ctx context.Context, deviceID, limit int) ([]types.SensorReading, error) {
	if len(r.readings) > limit {
		return r.readings[:limit], nil
	}
	return r.readings, nil
}

// fakeFieldDataRepo implements FieldDataRepository over an in-memory map.
type fakeFieldDataRepo struct {
	records    map[int]types.FieldData
	nextID     int
	patches    []*store.Patch
	stats      types.FieldDataStats
	statsCalls int
}

func newFakeFieldDataRepo(records ...types.FieldData) *fakeFieldDataRepo {
	repo := &fakeFieldDataRepo{records: map[int]types.FieldData{}, nextID: 1}
	for _, rec := range records {
		repo.records[rec.ID] = rec
		if rec.ID >= repo.nextID {
			repo.nextID = rec.ID + 1
		}
	}
	return repo
}

func (r *fakeFieldDataRepo) ListAccessible(ctx context.Context, userID int) ([]types.FieldData, error) {
	var out []types.FieldData
	for _, rec := range r.records {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *fakeFieldDataRepo) GetAccessible(ctx context.Context, id, userID int) (types.FieldData, error) {
	rec, ok := r.records[id]
	if !ok || rec.UserID != userID {
		return types.FieldData{}, store.ErrNotFound
	}
	return rec, nil
}

func (r *fakeFieldDataRepo) Create(ctx context.Context, record types.FieldData) (types.FieldData, error) {
	record.ID = r.nextID
	r.nextID++
	r.records[record.ID] = record
	return record, nil
}

func (r *fakeFieldDataRepo) Update(ctx context.Context, id, userID int, patch *store.Patch) (types.FieldData, error) {
	rec, err := r.GetAccessible(ctx, id, userID)
	if err != nil {
		return types.FieldData{}, err
	}
	r.patches = append(r.patches, patch)
	return rec, nil
}

func (r *fakeFieldDataRepo) Delete(ctx context.Context, id, userID int) error {
	if _, err := r.GetAccessible(ctx, id, userID); err != nil {
		return err
	}
	delete(r.records, id)
	return nil
}

func (r *fakeFieldDataRepo) Stats(ctx context.Context, userID int) (types.FieldDataStats, error) {
	r.statsCalls++
	return r.stats, nil
}

// fakeStatsCache records cache traffic in memory.
type fakeStatsCache struct {
	entries     map[int]types.FieldDataStats
	gets        int
	sets        int
	invalidates int
}

func newFakeStatsCache() *fakeStatsCache {
	return &fakeStatsCache{entries: map[int]types.FieldDataStats{}}
}

func (c *fakeStatsCache) Get(ctx context.Context, userID int) (types.FieldDataStats, bool, error) {
	c.gets++
	stats, ok := c.entries[userID]
	return stats, ok, nil
}

func (c *fakeStatsCache) Set(ctx context.Context, userID int, stats types.FieldDataStats) error {
	c.sets++
	c.entries[userID] = stats
	return nil
}

func (c *fakeStatsCache) Invalidate(ctx context.Context, userID int) error {
	c.invalidates++
	delete(c.entries, userID)
	return nil
}
