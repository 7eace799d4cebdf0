package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/farmsight/apiserver/internal/store"
	"github.com/farmsight/apiserver/types"
)

func jsonBody(t *testing.T, body any) *bytes.Reader {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	return bytes.NewReader(raw)
}

// fakeUserRepo implements services.UserRepository in memory.
type fakeUserRepo struct {
	users  map[int]types.User
	nextID int
	counts types.UserCounts
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[int]types.User{}, nextID: 1}
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id int) (types.User, error) {
	user, ok := r.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (types.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *fakeUserRepo) Create(ctx context.Context, user types.User) (types.User, error) {
	if _, err := r.GetByEmail(ctx, user.Email); err == nil {
		return types.User{}, store.ErrDuplicate
	}
	user.ID = r.nextID
	r.nextID++
	r.users[user.ID] = user
	return user, nil
}

func (r *fakeUserRepo) Counts(ctx context.Context, userID int) (types.UserCounts, error) {
	return r.counts, nil
}

// fakeFieldRepo implements services.FieldRepository and the ownership check
// in memory.
type fakeFieldRepo struct {
	fields map[int]types.Field
	nextID int
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
	out := []types.Field{}
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
	return field, nil
}

func (r *fakeFieldRepo) Update(ctx context.Context, id, userID int, patch *store.Patch) (types.Field, error) {
	return r.GetByOwner(ctx, id, userID)
}

func (r *fakeFieldRepo) Delete(ctx context.Context, id, userID int) error {
	if _, err := r.GetByOwner(ctx, id, userID); err != nil {
		return err
	}
	delete(r.fields, id)
	return nil
}

func (r *fakeFieldRepo) ListOptions(ctx context.Context, userID int) ([]types.FieldOption, error) {
	out := []types.FieldOption{}
	for _, f := range r.fields {
		if f.UserID == userID {
			out = append(out, types.FieldOption{ID: f.ID, FieldName: f.FieldName})
		}
	}
	return out, nil
}

func (r *fakeFieldRepo) CropTypes(ctx context.Context, userID int) ([]string, error) {
	return nil, nil
}

// fakeFieldDataRepo implements services.FieldDataRepository in memory.
type fakeFieldDataRepo struct {
	records map[int]types.FieldData
	nextID  int
	stats   types.FieldDataStats
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
	out := []types.FieldData{}
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
	return r.GetAccessible(ctx, id, userID)
}

func (r *fakeFieldDataRepo) Delete(ctx context.Context, id, userID int) error {
	if _, err := r.GetAccessible(ctx, id, userID); err != nil {
		return err
	}
	delete(r.records, id)
	return nil
}

func (r *fakeFieldDataRepo) Stats(ctx context.Context, userID int) (types.FieldDataStats, error) {
	return r.stats, nil
}

// fakeDeviceRepo implements services.DeviceRepository in memory and records
// applied patches for inspection.
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
	out := []types.Device{}
	for _, d := range r.devices {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *fakeDeviceRepo) ListByField(ctx context.Context, fieldID int) ([]types.Device, error) {
	out := []types.Device{}
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
	return r.readings, nil
}

// fakeDeviceLister reports no devices assigned to any field.
type fakeDeviceLister struct{}

func (fakeDeviceLister) ListByField(ctx context.Context, fieldID int) ([]types.Device, error) {
	return []types.Device{}, nil
}

// identityMiddleware injects a fixed identity, standing in for RequireAuth.
func identityMiddleware(identity Identity) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), identity)))
		})
	}
}
