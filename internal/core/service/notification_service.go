package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/civil360/civil360-api/internal/core/domain"
	"github.com/civil360/civil360-api/internal/core/ports"
)

type notificationService struct {
	repo ports.NotificationRepository
	log  zerolog.Logger
	now  func() time.Time
}

// NewNotificationService returns a NotificationService implementation.
func NewNotificationService(repo ports.NotificationRepository, log zerolog.Logger) ports.NotificationService {
	return &notificationService{repo: repo, log: log, now: time.Now}
}

// Deliver persists n. It is called from dispatcher workers, never from a request.
func (s *notificationService) Deliver(ctx context.Context, n domain.Notification) error {
	if n.RecipientID == "" && n.RecipientRole == "" {
		return domain.ValidationError("notification has no recipient")
	}
	if strings.TrimSpace(n.Title) == "" {
		return domain.ValidationError("notification title is required")
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now().UTC()
	}
	n.Read = false
	n.ReadBy = nil
	return s.repo.Insert(ctx, &n)
}

// ListMine returns the feed addressed to the identity or to its role.
func (s *notificationService) ListMine(ctx context.Context, identity *domain.Identity, unreadOnly bool, page ports.Page) (*ports.PageResult[*domain.Notification], error) {
	if identity == nil {
		return nil, domain.ErrAuthenticationRequired
	}
	items, total, err := s.repo.List(ctx, ports.NotificationFilter{
		RecipientID:   identity.ID,
		RecipientRole: identity.Role,
		UnreadOnly:    unreadOnly,
		Page:          page,
	})
	if err != nil {
		return nil, err
	}
	return ports.NewPageResult(items, total, page), nil
}

// MarkRead flags one of the caller's notifications as read for the caller only.
// Notifications that exist but belong to someone else are reported as not
// found.
func (s *notificationService) MarkRead(ctx context.Context, identity *domain.Identity, id string) error {
	if identity == nil {
		return domain.ErrAuthenticationRequired
	}
	n, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !n.VisibleTo(identity) {
		s.log.Debug().Str("notification_id", id).Str("user_id", identity.ID).Msg("mark read on foreign notification")
		return domain.ErrNotificationNotFound
	}
	if n.IsReadBy(identity.ID) {
		return nil
	}
	return s.repo.MarkRead(ctx, id, identity.ID)
}
