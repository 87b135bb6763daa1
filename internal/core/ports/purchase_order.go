package ports

import (
	"context"
	"time"

	"github.com/civil360/civil360-api/internal/core/domain"
)

// OrderFilter carries the query parameters for listing purchase orders.
type OrderFilter struct {
	Status      string
	ProjectID   string
	Supplier    string
	RequestedBy string
	DateFrom    time.Time
	DateTo      time.Time
	Page        Page
}

// PurchaseOrderRepository defines persistence operations for purchase orders.
type PurchaseOrderRepository interface {
	Create(ctx context.Context, o *domain.PurchaseOrder) (*domain.PurchaseOrder, error)
	FindByID(ctx context.Context, id string) (*domain.PurchaseOrder, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*domain.PurchaseOrder, error)
	List(ctx context.Context, filter OrderFilter) ([]*domain.PurchaseOrder, int64, error)
	// UpdateStatus sets the status only if the order is still in from, and
	// appends entry to its history.
	UpdateStatus(ctx context.Context, id string, from domain.OrderStatus, entry domain.OrderHistoryEntry) (*domain.PurchaseOrder, error)
}

// OrderItemInput is one line of a create request.
type OrderItemInput struct {
	Description string
	Quantity    int64
	UnitPrice   string
}

// CreateOrderInput is the DTO passed from the transport layer.
type CreateOrderInput struct {
	Supplier       string
	ProjectID      string
	Currency       string
	Items          []OrderItemInput
	IdempotencyKey string
}

// OrderResult wraps a created order with replay information.
type OrderResult struct {
	Order *domain.PurchaseOrder
	// AlreadyExisted is true when the Idempotency-Key matched an existing order.
	AlreadyExisted bool
}

// PurchaseOrderService defines use-case operations for purchase orders.
type PurchaseOrderService interface {
	List(ctx context.Context, filter OrderFilter) (*PageResult[*domain.PurchaseOrder], error)
	Get(ctx context.Context, id string) (*domain.PurchaseOrder, error)
	Create(ctx context.Context, actor *domain.Identity, in CreateOrderInput) (*OrderResult, error)
	Transition(ctx context.Context, actor *domain.Identity, id, status, note string) (*domain.PurchaseOrder, error)
}
