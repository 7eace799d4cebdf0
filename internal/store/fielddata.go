package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/farmsight/apiserver/types"
)

// FieldDataRepository handles persistence for yield records. Access follows a
// dual-ownership model: a record is visible when either its own user_id or
// the parent field's user_id matches the caller. Every read and write path
// goes through the same predicate.
type FieldDataRepository struct {
	db *sql.DB
}

func NewFieldDataRepository(db *sql.DB) *FieldDataRepository {
	return &FieldDataRepository{db: db}
}

const fieldDataColumns = `field_data.id, field_data.field_id, field_data.user_id, field_data.crop_type,
	field_data.yield_amount, field_data.unit, field_data.measurement_date, field_data.notes,
	field_data.created_at, field_data.updated_at`

// ownershipPredicate renders the dual-ownership check with the record id at
// placeholder idArg and the caller id at ownerArg. The owner placeholder is
// reused, so callers bind it once.
func ownershipPredicate(idArg, ownerArg int) string {
	return fmt.Sprintf(`field_data.id = $%d AND (field_data.user_id = $%d OR EXISTS (
		SELECT 1 FROM fields WHERE fields.id = field_data.field_id AND fields.user_id = $%d))`,
		idArg, ownerArg, ownerArg)
}

// scanFieldData expects the record columns followed by the (possibly NULL)
// denormalized field name.
func scanFieldData(row interface{ Scan(...any) error }) (types.FieldData, error) {
	var record types.FieldData
	var fieldName sql.NullString
	if err := row.Scan(
		&record.ID,
		&record.FieldID,
		&record.UserID,
		&record.CropType,
		&record.YieldAmount,
		&record.Unit,
		&record.MeasurementDate,
		&record.Notes,
		&record.CreatedAt,
		&record.UpdatedAt,
		&fieldName,
	); err != nil {
		return types.FieldData{}, err
	}
	record.FieldName = fieldName.String
	return record, nil
}

func (r *FieldDataRepository) ListAccessible(ctx context.Context, userID int) ([]types.FieldData, error) {
	const query = `
		SELECT ` + fieldDataColumns + `, fields.field_name
		FROM field_data
		LEFT JOIN fields ON fields.id = field_data.field_id
		WHERE field_data.user_id = $1 OR fields.user_id = $1
		ORDER BY field_data.created_at DESC, field_data.id DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]types.FieldData, 0)
	for rows.Next() {
		record, err := scanFieldData(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (r *FieldDataRepository) GetAccessible(ctx context.Context, id, userID int) (types.FieldData, error) {
	query := `
		SELECT ` + fieldDataColumns + `, fields.field_name
		FROM field_data
		LEFT JOIN fields ON fields.id = field_data.field_id
		WHERE ` + ownershipPredicate(1, 2)
	record, err := scanFieldData(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.FieldData{}, ErrNotFound
		}
		return types.FieldData{}, err
	}
	return record, nil
}

// Create inserts the record and resolves the denormalized field name in one
// statement, so no intermediate state without the name is ever visible.
func (r *FieldDataRepository) Create(ctx context.Context, record types.FieldData) (types.FieldData, error) {
	now := time.Now()
	record.CreatedAt = now
	record.UpdatedAt = now

	const query = `
		WITH inserted AS (
			INSERT INTO field_data (field_id, user_id, crop_type, yield_amount, unit, measurement_date, notes,
				created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id, field_id, user_id, crop_type, yield_amount, unit, measurement_date, notes,
				created_at, updated_at
		)
		SELECT inserted.id, inserted.field_id, inserted.user_id, inserted.crop_type, inserted.yield_amount,
			inserted.unit, inserted.measurement_date, inserted.notes, inserted.created_at, inserted.updated_at,
			fields.field_name
		FROM inserted
		JOIN fields ON fields.id = inserted.field_id`
	row := r.db.QueryRowContext(
		ctx,
		query,
		record.FieldID,
		record.UserID,
		record.CropType,
		record.YieldAmount,
		record.Unit,
		record.MeasurementDate,
		record.Notes,
		record.CreatedAt,
		record.UpdatedAt,
	)
	created, err := scanFieldData(row)
	if err != nil {
		return types.FieldData{}, err
	}
	return created, nil
}

// Update applies a partial patch and resolves the denormalized field name in
// the same statement, joining on the post-update field_id so responses match
// what list and get would serve.
func (r *FieldDataRepository) Update(ctx context.Context, id, userID int, patch *Patch) (types.FieldData, error) {
	args := patch.Args()
	query := fmt.Sprintf(`
		WITH updated AS (
			UPDATE field_data
			SET %s
			WHERE %s
			RETURNING id, field_id, user_id, crop_type, yield_amount, unit, measurement_date, notes,
				created_at, updated_at
		)
		SELECT updated.id, updated.field_id, updated.user_id, updated.crop_type, updated.yield_amount,
			updated.unit, updated.measurement_date, updated.notes, updated.created_at, updated.updated_at,
			fields.field_name
		FROM updated
		LEFT JOIN fields ON fields.id = updated.field_id`,
		patch.Clause(1), ownershipPredicate(len(args)+1, len(args)+2))
	args = append(args, id, userID)

	record, err := scanFieldData(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.FieldData{}, ErrNotFound
		}
		return types.FieldData{}, err
	}
	return record, nil
}

func (r *FieldDataRepository) Delete(ctx context.Context, id, userID int) error {
	query := `DELETE FROM field_data WHERE ` + ownershipPredicate(1, 2)
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

// Stats aggregates the caller's accessible records: totals, last update, and
// month-over-month counts.
func (r *FieldDataRepository) Stats(ctx context.Context, userID int) (types.FieldDataStats, error) {
	const query = `
		SELECT
			COUNT(1),
			MAX(field_data.updated_at),
			COUNT(1) FILTER (WHERE field_data.created_at >= date_trunc('month', NOW())),
			COUNT(1) FILTER (WHERE field_data.created_at >= date_trunc('month', NOW()) - INTERVAL '1 month'
				AND field_data.created_at < date_trunc('month', NOW()))
		FROM field_data
		LEFT JOIN fields ON fields.id = field_data.field_id
		WHERE field_data.user_id = $1 OR fields.user_id = $1`
	var stats types.FieldDataStats
	var lastUpdated sql.NullTime
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&stats.TotalRecords,
		&lastUpdated,
		&stats.CurrentMonthRecords,
		&stats.LastMonthRecords,
	); err != nil {
		return types.FieldDataStats{}, err
	}
	if lastUpdated.Valid {
		stats.LastUpdated = &lastUpdated.Time
	}
	stats.GrowthPercentage = growthPercentage(stats.CurrentMonthRecords, stats.LastMonthRecords)
	return stats, nil
}

// growthPercentage compares month-over-month record counts. A previous month
// with records yields the relative change; records appearing from nothing
// count as 100% growth; no records at all is 0.
func growthPercentage(current, last int) float64 {
	switch {
	case last > 0:
		return float64(current-last) / float64(last) * 100
	case current > 0:
		return 100
	default:
		return 0
	}
}
