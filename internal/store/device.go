package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/farmsight/apiserver/types"
)

// DeviceRepository handles persistence for devices.
type DeviceRepository struct {
	db *sql.DB
}

func NewDeviceRepository(db *sql.DB) *DeviceRepository {
	return &DeviceRepository{db: db}
}

const deviceColumns = `id, user_id, device_name, mac_address, device_type, status, field_id,
	battery_level, firmware_version, firmware_object, created_at, updated_at`

func scanDevice(row interface{ Scan(...any) error }) (types.Device, error) {
	var device types.Device
	err := row.Scan(
		&device.ID,
		&device.UserID,
		&device.DeviceName,
		&device.MACAddress,
		&device.DeviceType,
		&device.Status,
		&device.FieldID,
		&device.BatteryLevel,
		&device.FirmwareVersion,
		&device.FirmwareObject,
		&device.CreatedAt,
		&device.UpdatedAt,
	)
	return device, err
}

func (r *DeviceRepository) ListByOwner(ctx context.Context, userID int) ([]types.Device, error) {
	const query = `
		SELECT ` + deviceColumns + `
		FROM devices
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC`
	return r.list(ctx, query, userID)
}

// ListByField returns the devices assigned to a field, newest first. The
// caller is responsible for having ownership-checked the field.
func (r *DeviceRepository) ListByField(ctx context.Context, fieldID int) ([]types.Device, error) {
	const query = `
		SELECT ` + deviceColumns + `
		FROM devices
		WHERE field_id = $1
		ORDER BY created_at DESC, id DESC`
	return r.list(ctx, query, fieldID)
}

func (r *DeviceRepository) list(ctx context.Context, query string, arg any) ([]types.Device, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	devices := make([]types.Device, 0)
	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, device)
	}
	return devices, rows.Err()
}

func (r *DeviceRepository) GetByOwner(ctx context.Context, id, userID int) (types.Device, error) {
	const query = `
		SELECT ` + deviceColumns + `
		FROM devices
		WHERE id = $1 AND user_id = $2`
	device, err := scanDevice(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Device{}, ErrNotFound
		}
		return types.Device{}, err
	}
	return device, nil
}

// GetByMAC looks a device up by MAC address across all owners. MAC addresses
// are stored uppercase, so the lookup is effectively case-insensitive when
// the caller normalizes first.
func (r *DeviceRepository) GetByMAC(ctx context.Context, mac string) (types.Device, error) {
	const query = `
		SELECT ` + deviceColumns + `
		FROM devices
		WHERE mac_address = $1`
	device, err := scanDevice(r.db.QueryRowContext(ctx, query, mac))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Device{}, ErrNotFound
		}
		return types.Device{}, err
	}
	return device, nil
}

func (r *DeviceRepository) Create(ctx context.Context, device types.Device) (types.Device, error) {
	now := time.Now()
	device.CreatedAt = now
	device.UpdatedAt = now

	const query = `
		INSERT INTO devices (user_id, device_name, mac_address, device_type, status, field_id,
			battery_level, firmware_version, firmware_object, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		device.UserID,
		device.DeviceName,
		device.MACAddress,
		device.DeviceType,
		device.Status,
		device.FieldID,
		device.BatteryLevel,
		device.FirmwareVersion,
		device.FirmwareObject,
		device.CreatedAt,
		device.UpdatedAt,
	).Scan(&device.ID); err != nil {
		if isUniqueViolation(err) {
			return types.Device{}, ErrDuplicate
		}
		return types.Device{}, err
	}
	return device, nil
}

func (r *DeviceRepository) Update(ctx context.Context, id, userID int, patch *Patch) (types.Device, error) {
	args := patch.Args()
	query := fmt.Sprintf(`
		UPDATE devices
		SET %s
		WHERE id = $%d AND user_id = $%d
		RETURNING %s`,
		patch.Clause(1), len(args)+1, len(args)+2, deviceColumns)
	args = append(args, id, userID)

	device, err := scanDevice(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Device{}, ErrNotFound
		}
		if isUniqueViolation(err) {
			return types.Device{}, ErrDuplicate
		}
		return types.Device{}, err
	}
	return device, nil
}

func (r *DeviceRepository) Delete(ctx context.Context, id, userID int) error {
	const query = `DELETE FROM devices WHERE id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
