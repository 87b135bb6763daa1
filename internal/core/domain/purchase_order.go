package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus represents the lifecycle state of a purchase order.
type OrderStatus string

const (
	OrderDraft     OrderStatus = "draft"
	OrderSubmitted OrderStatus = "submitted"
	OrderApproved  OrderStatus = "approved"
	OrderRejected  OrderStatus = "rejected"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
)

// validTransitions defines the allowed state machine transitions.
var validTransitions = map[OrderStatus][]OrderStatus{
	OrderDraft:     {OrderSubmitted, OrderCancelled},
	OrderSubmitted: {OrderApproved, OrderRejected, OrderCancelled},
	OrderApproved:  {OrderDelivered},
}

// CanTransitionTo reports whether a transition from current status to next is valid.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// RequiresDirector reports whether only a general director may move an order
// into s.
func (s OrderStatus) RequiresDirector() bool {
	return s == OrderApproved || s == OrderRejected
}

// OrderItem is a single purchase line.
type OrderItem struct {
	Description string          `json:"description"`
	Quantity    int64           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// Subtotal returns quantity × unit price.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(i.Quantity))
}

// OrderHistoryEntry records a single status transition on an order.
type OrderHistoryEntry struct {
	Status    OrderStatus `json:"status"`
	ChangedBy string      `json:"changed_by"`
	Timestamp time.Time   `json:"timestamp"`
	Note      string      `json:"note,omitempty"`
}

// PurchaseOrder is a request to buy materials or services for a project.
type PurchaseOrder struct {
	ID             string              `json:"id"`
	Number         string              `json:"number"`
	Supplier       string              `json:"supplier"`
	ProjectID      string              `json:"project_id"`
	Items          []OrderItem         `json:"items"`
	Total          decimal.Decimal     `json:"total"`
	Currency       string              `json:"currency"`
	Status         OrderStatus         `json:"status"`
	RequestedBy    string              `json:"requested_by"`
	IdempotencyKey string              `json:"-"`
	StatusHistory  []OrderHistoryEntry `json:"status_history"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// ComputeTotal sums the item subtotals.
func ComputeTotal(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal())
	}
	return total
}
