package types

import "time"

// FieldData is a yield record for a field. A record is accessible to a user
// when either the record's own user_id or the parent field's user_id matches.
type FieldData struct {
	ID              int       `json:"id" db:"id"`
	FieldID         int       `json:"field_id" db:"field_id"`
	UserID          int       `json:"user_id" db:"user_id"`
	CropType        string    `json:"crop_type" db:"crop_type"`
	YieldAmount     float64   `json:"yield_amount" db:"yield_amount"`
	Unit            string    `json:"unit" db:"unit"`
	MeasurementDate time.Time `json:"measurement_date" db:"measurement_date"`
	Notes           *string   `json:"notes" db:"notes"`

	// FieldName is denormalized from the parent field on reads.
	FieldName string `json:"field_name,omitempty" db:"field_name"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// FieldDataStats is the aggregate served by the statistics endpoint.
type FieldDataStats struct {
	TotalRecords        int        `json:"totalRecords"`
	LastUpdated         *time.Time `json:"lastUpdated"`
	CurrentMonthRecords int        `json:"currentMonthRecords"`
	LastMonthRecords    int        `json:"lastMonthRecords"`
	GrowthPercentage    float64    `json:"growthPercentage"`
}
