package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/farmsight/apiserver/types"
)

// FieldRepository handles persistence for fields. Every query is scoped by
// the owning user id; a row owned by someone else behaves as if it did not
// exist.
type FieldRepository struct {
	db *sql.DB
}

func NewFieldRepository(db *sql.DB) *FieldRepository {
	return &FieldRepository{db: db}
}

const fieldColumns = `id, user_id, field_name, location, area, crop_type, status, soil_type, drainage,
	last_irrigation, next_irrigation, created_at, updated_at`

func scanField(row interface{ Scan(...any) error }) (types.Field, error) {
	var field types.Field
	err := row.Scan(
		&field.ID,
		&field.UserID,
		&field.FieldName,
		&field.Location,
		&field.Area,
		&field.CropType,
		&field.Status,
		&field.SoilType,
		&field.Drainage,
		&field.LastIrrigation,
		&field.NextIrrigation,
		&field.CreatedAt,
		&field.UpdatedAt,
	)
	return field, err
}

func (r *FieldRepository) ListByOwner(ctx context.Context, userID int) ([]types.Field, error) {
	const query = `
		SELECT ` + fieldColumns + `
		FROM fields
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fields := make([]types.Field, 0)
	for rows.Next() {
		field, err := scanField(rows)
		if err != nil {
			return nil, err
		}
		fields = append(fields, field)
	}
	return fields, rows.Err()
}

func (r *FieldRepository) GetByOwner(ctx context.Context, id, userID int) (types.Field, error) {
	const query = `
		SELECT ` + fieldColumns + `
		FROM fields
		WHERE id = $1 AND user_id = $2`
	field, err := scanField(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Field{}, ErrNotFound
		}
		return types.Field{}, err
	}
	return field, nil
}

func (r *FieldRepository) Create(ctx context.Context, field types.Field) (types.Field, error) {
	now := time.Now()
	field.CreatedAt = now
	field.UpdatedAt = now

	const query = `
		INSERT INTO fields (user_id, field_name, location, area, crop_type, status, soil_type, drainage,
			last_irrigation, next_irrigation, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		field.UserID,
		field.FieldName,
		field.Location,
		field.Area,
		field.CropType,
		field.Status,
		field.SoilType,
		field.Drainage,
		field.LastIrrigation,
		field.NextIrrigation,
		field.CreatedAt,
		field.UpdatedAt,
	).Scan(&field.ID); err != nil {
		return types.Field{}, err
	}
	return field, nil
}

// Update applies a partial patch. The WHERE clause is scoped by both id and
// owner id so the statement itself stays ownership-safe under races.
func (r *FieldRepository) Update(ctx context.Context, id, userID int, patch *Patch) (types.Field, error) {
	args := patch.Args()
	query := fmt.Sprintf(`
		UPDATE fields
		SET %s
		WHERE id = $%d AND user_id = $%d
		RETURNING %s`,
		patch.Clause(1), len(args)+1, len(args)+2, fieldColumns)
	args = append(args, id, userID)

	field, err := scanField(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Field{}, ErrNotFound
		}
		return types.Field{}, err
	}
	return field, nil
}

// Delete removes a field and its dependents in one transaction: yield records
// are deleted, devices are detached, then the field row goes.
func (r *FieldRepository) Delete(ctx context.Context, id, userID int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const ownerCheck = `SELECT 1 FROM fields WHERE id = $1 AND user_id = $2`
	var one int
	if err := tx.QueryRowContext(ctx, ownerCheck, id, userID).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM field_data WHERE field_id = $1`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE devices SET field_id = NULL, updated_at = NOW() WHERE field_id = $1`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM fields WHERE id = $1 AND user_id = $2`, id, userID); err != nil {
		return err
	}

	return tx.Commit()
}

// ListOptions returns id/name pairs of the user's fields for dropdowns.
func (r *FieldRepository) ListOptions(ctx context.Context, userID int) ([]types.FieldOption, error) {
	const query = `
		SELECT id, field_name
		FROM fields
		WHERE user_id = $1
		ORDER BY field_name, id`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	options := make([]types.FieldOption, 0)
	for rows.Next() {
		var option types.FieldOption
		if err := rows.Scan(&option.ID, &option.FieldName); err != nil {
			return nil, err
		}
		options = append(options, option)
	}
	return options, rows.Err()
}

// CropTypes returns the distinct crop types across the user's fields and
// accessible yield records.
func (r *FieldRepository) CropTypes(ctx context.Context, userID int) ([]string, error) {
	const query = `
		SELECT DISTINCT crop_type FROM (
			SELECT crop_type FROM fields WHERE user_id = $1
			UNION
			SELECT field_data.crop_type
			FROM field_data
			LEFT JOIN fields ON fields.id = field_data.field_id
			WHERE field_data.user_id = $1 OR fields.user_id = $1
		) AS crops
		ORDER BY crop_type`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cropTypes := make([]string, 0)
	for rows.Next() {
		var cropType string
		if err := rows.Scan(&cropType); err != nil {
			return nil, err
		}
		cropTypes = append(cropTypes, cropType)
	}
	return cropTypes, rows.Err()
}
