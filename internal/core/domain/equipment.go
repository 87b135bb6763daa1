package domain

import "time"

// EquipmentStatus is the operational state of a tracked machine or tool.
type EquipmentStatus string

const (
	EquipmentAvailable    EquipmentStatus = "available"
	EquipmentInUse        EquipmentStatus = "in_use"
	EquipmentMaintenance  EquipmentStatus = "maintenance"
	EquipmentOutOfService EquipmentStatus = "out_of_service"
)

// Valid reports whether s is a known equipment status.
func (s EquipmentStatus) Valid() bool {
	switch s {
	case EquipmentAvailable, EquipmentInUse, EquipmentMaintenance, EquipmentOutOfService:
		return true
	}
	return false
}

// NeedsAttention reports whether logistics should be told about the change.
func (s EquipmentStatus) NeedsAttention() bool {
	return s == EquipmentMaintenance || s == EquipmentOutOfService
}

// Coordinates represents a geographic point.
type Coordinates struct {
	Lat float64 `json:"lat" bson:"lat"`
	Lng float64 `json:"lng" bson:"lng"`
}

// Equipment is a piece of site equipment, optionally reporting its position
// through an IoT tracker.
type Equipment struct {
	ID              string          `json:"id"`
	Code            string          `json:"code"`
	Name            string          `json:"name"`
	Category        string          `json:"category"`
	Status          EquipmentStatus `json:"status"`
	ProjectID       string          `json:"project_id,omitempty"`
	Location        *Coordinates    `json:"location,omitempty"`
	LastTelemetryAt *time.Time      `json:"last_telemetry_at,omitempty"`
	IsActive        bool            `json:"is_active"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// TelemetryPing is a position report received from an equipment tracker.
type TelemetryPing struct {
	EquipmentID string
	Location    Coordinates
	RecordedAt  time.Time
}
