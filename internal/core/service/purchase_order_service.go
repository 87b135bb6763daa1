package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/civil360/civil360-api/internal/core/domain"
	"github.com/civil360/civil360-api/internal/core/ports"
	"github.com/civil360/civil360-api/internal/metrics"
)

const defaultCurrency = "MXN"

type PurchaseOrderService struct {
	repo     ports.PurchaseOrderRepository
	notifier ports.Notifier
	logger   zerolog.Logger
	now      func() time.Time
}

func NewPurchaseOrderService(repo ports.PurchaseOrderRepository, notifier ports.Notifier, logger zerolog.Logger) *PurchaseOrderService {
	return &PurchaseOrderService{repo: repo, notifier: notifier, logger: logger, now: time.Now}
}

func (s *PurchaseOrderService) List(ctx context.Context, filter ports.OrderFilter) (*ports.PageResult[*domain.PurchaseOrder], error) {
	if filter.Status != "" {
		if _, known := knownOrderStatus(filter.Status); !known {
			return nil, domain.ValidationError("unknown order status %q", filter.Status)
		}
	}
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return ports.NewPageResult(items, total, filter.Page), nil
}

func (s *PurchaseOrderService) Get(ctx context.Context, id string) (*domain.PurchaseOrder, error) {
	return s.repo.FindByID(ctx, id)
}

// Create stores a new draft order. If an idempotency key is provided and
// already seen, the previously created order is returned without side effects.
func (s *PurchaseOrderService) Create(ctx context.Context, actor *domain.Identity, in ports.CreateOrderInput) (*ports.OrderResult, error) {
	if actor == nil {
		return nil, domain.ErrAuthenticationRequired
	}

	if in.IdempotencyKey != "" {
		existing, err := s.repo.FindByIdempotencyKey(ctx, in.IdempotencyKey)
		if err == nil && existing != nil {
			s.logger.Info().Str("idempotency_key", in.IdempotencyKey).Str("order", existing.Number).Msg("idempotent replay")
			return &ports.OrderResult{Order: existing, AlreadyExisted: true}, nil
		}
		if err != nil && !errors.Is(err, domain.ErrOrderNotFound) {
			return nil, err
		}
	}

	supplier := strings.TrimSpace(in.Supplier)
	if supplier == "" || strings.TrimSpace(in.ProjectID) == "" {
		return nil, domain.ValidationError("supplier and project_id are required")
	}
	items, err := parseItems(in.Items)
	if err != nil {
		return nil, err
	}

	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = defaultCurrency
	}

	now := s.now().UTC()
	order := &domain.PurchaseOrder{
		Number:         generateOrderNumber(now),
		Supplier:       supplier,
		ProjectID:      strings.TrimSpace(in.ProjectID),
		Items:          items,
		Total:          domain.ComputeTotal(items),
		Currency:       currency,
		Status:         domain.OrderDraft,
		RequestedBy:    actor.ID,
		IdempotencyKey: in.IdempotencyKey,
		StatusHistory: []domain.OrderHistoryEntry{{
			Status:    domain.OrderDraft,
			ChangedBy: actor.ID,
			Timestamp: now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}

	created, err := s.repo.Create(ctx, order)
	if errors.Is(err, domain.ErrOrderExists) && in.IdempotencyKey != "" {
		// A concurrent request with the same key won the insert.
		existing, findErr := s.repo.FindByIdempotencyKey(ctx, in.IdempotencyKey)
		if findErr == nil {
			s.logger.Info().Str("idempotency_key", in.IdempotencyKey).Str("order", existing.Number).Msg("idempotent replay after concurrent create")
			return &ports.OrderResult{Order: existing, AlreadyExisted: true}, nil
		}
		if !errors.Is(findErr, domain.ErrOrderNotFound) {
			return nil, findErr
		}
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to create purchase order")
		return nil, err
	}

	s.logger.Info().Str("order", created.Number).Str("requested_by", actor.ID).Msg("purchase order created")
	return &ports.OrderResult{Order: created}, nil
}

// Transition moves an order through its state machine. Approval and rejection
// are reserved to the general director.
func (s *PurchaseOrderService) Transition(ctx context.Context, actor *domain.Identity, id, status, note string) (*domain.PurchaseOrder, error) {
	if actor == nil {
		return nil, domain.ErrAuthenticationRequired
	}
	next, known := knownOrderStatus(status)
	if !known {
		return nil, domain.ValidationError("unknown order status %q", status)
	}
	if next.RequiresDirector() && actor.Role != domain.RoleGeneralDirector {
		return nil, domain.ErrInsufficientPermissions
	}

	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransitionTo(next) {
		return nil, domain.TransitionError(string(order.Status), string(next))
	}

	updated, err := s.repo.UpdateStatus(ctx, id, order.Status, domain.OrderHistoryEntry{
		Status:    next,
		ChangedBy: actor.ID,
		Timestamp: s.now().UTC(),
		Note:      strings.TrimSpace(note),
	})
	if err != nil {
		return nil, err
	}

	metrics.PurchaseOrderTransitionsTotal.WithLabelValues(string(next)).Inc()
	if s.notifier != nil && updated.RequestedBy != "" && updated.RequestedBy != actor.ID {
		s.notifier.Enqueue(domain.Notification{
			RecipientID: updated.RequestedBy,
			Title:       fmt.Sprintf("Purchase order %s %s", updated.Number, next),
			Message:     fmt.Sprintf("%s moved purchase order %s to %s.", actorName(actor), updated.Number, next),
			Link:        "/purchase-orders/" + updated.ID,
		})
	}
	if s.notifier != nil && next == domain.OrderSubmitted {
		s.notifier.Enqueue(domain.Notification{
			RecipientRole: domain.RoleGeneralDirector,
			Title:         fmt.Sprintf("Purchase order %s awaits approval", updated.Number),
			Message:       fmt.Sprintf("%s from %s, total %s %s.", updated.Number, updated.Supplier, updated.Total.StringFixed(2), updated.Currency),
			Link:          "/purchase-orders/" + updated.ID,
		})
	}

	s.logger.Info().Str("order", updated.Number).Str("from", string(order.Status)).Str("to", string(next)).Msg("purchase order transitioned")
	return updated, nil
}

func knownOrderStatus(s string) (domain.OrderStatus, bool) {
	st := domain.OrderStatus(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case domain.OrderDraft, domain.OrderSubmitted, domain.OrderApproved,
		domain.OrderRejected, domain.OrderDelivered, domain.OrderCancelled:
		return st, true
	}
	return "", false
}

func parseItems(in []ports.OrderItemInput) ([]domain.OrderItem, error) {
	if len(in) == 0 {
		return nil, domain.ValidationError("at least one item is required")
	}
	items := make([]domain.OrderItem, 0, len(in))
	for i, it := range in {
		if strings.TrimSpace(it.Description) == "" {
			return nil, domain.ValidationError("item[%d]: description is required", i)
		}
		if it.Quantity <= 0 {
			return nil, domain.ValidationError("item[%d]: quantity must be greater than 0", i)
		}
		price, err := decimal.NewFromString(strings.TrimSpace(it.UnitPrice))
		if err != nil {
			return nil, domain.ValidationError("item[%d]: unit_price is not a number", i)
		}
		if price.IsNegative() {
			return nil, domain.ValidationError("item[%d]: unit_price cannot be negative", i)
		}
		items = append(items, domain.OrderItem{
			Description: strings.TrimSpace(it.Description),
			Quantity:    it.Quantity,
			UnitPrice:   price,
		})
	}
	return items, nil
}

// generateOrderNumber returns an order number in the format PO-YYYYMMDD-XXXXXX.
func generateOrderNumber(at time.Time) string {
	b := make([]byte, 3)
	if _, err := rand.Read(b); err != nil {
		// fallback: use current nanoseconds
		return fmt.Sprintf("PO-%s-%06X", at.Format("20060102"), at.UnixNano()&0xFFFFFF)
	}
	return fmt.Sprintf("PO-%s-%06X", at.Format("20060102"), b)
}
