package vitals

import (
	"time"

	"github.com/google/uuid"
)

// Vital is a single measurement: heart rate, blood pressure, weight,
// SpO2. DeviceID is set when the reading came from a synced device
// rather than manual entry.
type Vital struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	UserID     uuid.UUID  `db:"user_id" json:"user_id"`
	VitalType  string     `db:"vital_type" json:"vital_type"`
	Value      float64    `db:"value" json:"value"`
	Unit       string     `db:"unit" json:"unit"`
	RecordedAt time.Time  `db:"recorded_at" json:"recorded_at"`
	DeviceID   *uuid.UUID `db:"device_id" json:"device_id,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

// Device is a registered wearable or home monitor that may push
// readings through health-sync or the MQTT bridge.
type Device struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	UserID       uuid.UUID  `db:"user_id" json:"user_id"`
	DeviceName   string     `db:"device_name" json:"device_name"`
	DeviceType   string     `db:"device_type" json:"device_type"`
	RegisteredAt time.Time  `db:"registered_at" json:"registered_at"`
	LastSyncAt   *time.Time `db:"last_sync_at" json:"last_sync_at,omitempty"`
}

// TypeSummary aggregates one vital type over a window.
type TypeSummary struct {
	Avg   float64 `json:"avg"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Count int     `json:"count"`
	Unit  string  `json:"unit"`
}
