package types

import "time"

// SensorReading is a single telemetry sample reported by a device.
type SensorReading struct {
	ID           int       `json:"id" db:"id"`
	DeviceID     int       `json:"device_id" db:"device_id"`
	Temperature  float64   `json:"temperature" db:"temperature"`
	Humidity     float64   `json:"humidity" db:"humidity"`
	SoilMoisture float64   `json:"soil_moisture" db:"soil_moisture"`
	BatteryLevel float64   `json:"battery_level" db:"battery_level"`
	RecordedAt   time.Time `json:"recorded_at" db:"recorded_at"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
