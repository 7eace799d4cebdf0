package types

import "time"

// Device is a piece of farm hardware (sensor, valve, tracker) owned by a
// farmer and optionally assigned to one of their fields. MAC addresses are
// stored uppercase and are unique across all devices.
type Device struct {
	ID              int       `json:"id" db:"id"`
	UserID          int       `json:"user_id" db:"user_id"`
	DeviceName      string    `json:"name" db:"device_name"`
	MACAddress      string    `json:"mac_address" db:"mac_address"`
	DeviceType      string    `json:"device_type" db:"device_type"`
	Status          string    `json:"status" db:"status"`
	FieldID         *int      `json:"field_id" db:"field_id"`
	BatteryLevel    float64   `json:"battery_level" db:"battery_level"`
	FirmwareVersion string    `json:"firmware_version" db:"firmware_version"`
	FirmwareObject  string    `json:"-" db:"firmware_object"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}
