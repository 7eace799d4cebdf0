package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/farmsight/apiserver/types"
)

// ReadingRepository handles persistence for sensor readings.
type ReadingRepository struct {
	db *sql.DB
}

func NewReadingRepository(db *sql.DB) *ReadingRepository {
	return &ReadingRepository{db: db}
}

// ListLatestByDevice returns the most recent readings for a device, capped at
// limit, newest first.
func (r *ReadingRepository) ListLatestByDevice(ctx context.Context, deviceID, limit int) ([]types.SensorReading, error) {
	if limit < 1 {
		limit = 20
	}
	const query = `
		SELECT id, device_id, temperature, humidity, soil_moisture, battery_level, recorded_at, created_at
		FROM sensor_readings
		WHERE device_id = $1
		ORDER BY recorded_at DESC, id DESC
		LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, deviceID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	readings := make([]types.SensorReading, 0, limit)
	for rows.Next() {
		var reading types.SensorReading
		if err := rows.Scan(
			&reading.ID,
			&reading.DeviceID,
			&reading.Temperature,
			&reading.Humidity,
			&reading.SoilMoisture,
			&reading.BatteryLevel,
			&reading.RecordedAt,
			&reading.CreatedAt,
		); err != nil {
			return nil, err
		}
		readings = append(readings, reading)
	}
	return readings, rows.Err()
}

// Insert stores a reading and refreshes the device's battery level in the
// same transaction.
func (r *ReadingRepository) Insert(ctx context.Context, reading types.SensorReading) (types.SensorReading, error) {
	reading.CreatedAt = time.Now()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.SensorReading{}, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const insertQuery = `
		INSERT INTO sensor_readings (device_id, temperature, humidity, soil_moisture, battery_level,
			recorded_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	if err := tx.QueryRowContext(
		ctx,
		insertQuery,
		reading.DeviceID,
		reading.Temperature,
		reading.Humidity,
		reading.SoilMoisture,
		reading.BatteryLevel,
		reading.RecordedAt,
		reading.CreatedAt,
	).Scan(&reading.ID); err != nil {
		return types.SensorReading{}, err
	}

	const batteryQuery = `UPDATE devices SET battery_level = $1, updated_at = NOW() WHERE id = $2`
	if _, err := tx.ExecContext(ctx, batteryQuery, reading.BatteryLevel, reading.DeviceID); err != nil {
		return types.SensorReading{}, err
	}

	if err := tx.Commit(); err != nil {
		return types.SensorReading{}, err
	}
	return reading, nil
}
