package ports

import (
	"context"

	"github.com/civil360/civil360-api/internal/core/domain"
)

// NotificationFilter selects the feed of one identity.
type NotificationFilter struct {
	// RecipientID is also the reader whose read state UnreadOnly and
	// Notification.Read refer to.
	RecipientID   string
	RecipientRole domain.Role
	UnreadOnly    bool
	Page          Page
}

// NotificationRepository defines persistence operations for notifications.
type NotificationRepository interface {
	Insert(ctx context.Context, n *domain.Notification) error
	FindByID(ctx context.Context, id string) (*domain.Notification, error)
	List(ctx context.Context, filter NotificationFilter) ([]*domain.Notification, int64, error)
	// MarkRead records userID as a reader of the notification.
	MarkRead(ctx context.Context, id, userID string) error
}

// Notifier hands a notification off for asynchronous delivery.
type Notifier interface {
	Enqueue(n domain.Notification)
}

// NotificationService defines use-case operations for the notification feed.
type NotificationService interface {
	Deliver(ctx context.Context, n domain.Notification) error
	ListMine(ctx context.Context, identity *domain.Identity, unreadOnly bool, page Page) (*PageResult[*domain.Notification], error)
	MarkRead(ctx context.Context, identity *domain.Identity, id string) error
}
