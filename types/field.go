package types

import "time"

// Field is a cultivated plot owned by a single farmer.
// Status, soil type, and drainage are stored lowercase; validation is
// case-insensitive and normalizes on write.
type Field struct {
	ID             int        `json:"id" db:"id"`
	UserID         int        `json:"user_id" db:"user_id"`
	FieldName      string     `json:"fieldname" db:"field_name"`
	Location       string     `json:"location" db:"location"`
	Area           float64    `json:"area" db:"area"`
	CropType       string     `json:"croptype" db:"crop_type"`
	Status         string     `json:"status" db:"status"`
	SoilType       string     `json:"soiltype" db:"soil_type"`
	Drainage       string     `json:"drainage" db:"drainage"`
	LastIrrigation *time.Time `json:"last_irrigation" db:"last_irrigation"`
	NextIrrigation *time.Time `json:"next_irrigation" db:"next_irrigation"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// FieldOption is the id/name pair served by the dropdown endpoint.
type FieldOption struct {
	ID        int    `json:"id"`
	FieldName string `json:"fieldname"`
}
