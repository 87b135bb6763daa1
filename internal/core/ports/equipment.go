package ports

import (
	"context"
	"time"

	"github.com/civil360/civil360-api/internal/core/domain"
)

// EquipmentFilter carries the query parameters for listing equipment.
type EquipmentFilter struct {
	Status    string
	ProjectID string
	Category  string
	Search    string // partial match on code or name
	Page      Page
}

// EquipmentUpdate holds the fields a partial update may change. Nil means
// unchanged.
type EquipmentUpdate struct {
	Name      *string
	Category  *string
	Status    *domain.EquipmentStatus
	ProjectID *string
	IsActive  *bool
}

// EquipmentRepository defines persistence operations for equipment.
type EquipmentRepository interface {
	Create(ctx context.Context, e *domain.Equipment) (*domain.Equipment, error)
	FindByID(ctx context.Context, id string) (*domain.Equipment, error)
	List(ctx context.Context, filter EquipmentFilter) ([]*domain.Equipment, int64, error)
	Update(ctx context.Context, id string, upd EquipmentUpdate, at time.Time) (*domain.Equipment, error)
	RecordTelemetry(ctx context.Context, ping domain.TelemetryPing) (*domain.Equipment, error)
}

// CreateEquipmentInput is the DTO passed from the transport layer.
type CreateEquipmentInput struct {
	Code      string
	Name      string
	Category  string
	Status    string
	ProjectID string
}

// EquipmentService defines use-case operations for equipment.
type EquipmentService interface {
	List(ctx context.Context, filter EquipmentFilter) (*PageResult[*domain.Equipment], error)
	Get(ctx context.Context, id string) (*domain.Equipment, error)
	Create(ctx context.Context, in CreateEquipmentInput) (*domain.Equipment, error)
	Update(ctx context.Context, actor *domain.Identity, id string, upd EquipmentUpdate) (*domain.Equipment, error)
	RecordTelemetry(ctx context.Context, ping domain.TelemetryPing) (*domain.Equipment, error)
}
