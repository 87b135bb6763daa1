package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/civil360/civil360-api/internal/core/domain"
	"github.com/civil360/civil360-api/internal/core/ports"
	"github.com/civil360/civil360-api/internal/metrics"
)

type EquipmentService struct {
	repo     ports.EquipmentRepository
	notifier ports.Notifier
	logger   zerolog.Logger
	now      func() time.Time
}

func NewEquipmentService(repo ports.EquipmentRepository, notifier ports.Notifier, logger zerolog.Logger) *EquipmentService {
	return &EquipmentService{repo: repo, notifier: notifier, logger: logger, now: time.Now}
}

func (s *EquipmentService) List(ctx context.Context, filter ports.EquipmentFilter) (*ports.PageResult[*domain.Equipment], error) {
	if filter.Status != "" && !domain.EquipmentStatus(filter.Status).Valid() {
		return nil, domain.ValidationError("unknown equipment status %q", filter.Status)
	}
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return ports.NewPageResult(items, total, filter.Page), nil
}

func (s *EquipmentService) Get(ctx context.Context, id string) (*domain.Equipment, error) {
	return s.repo.FindByID(ctx, id)
}

// Create registers a new piece of equipment. Status defaults to available.
func (s *EquipmentService) Create(ctx context.Context, in ports.CreateEquipmentInput) (*domain.Equipment, error) {
	code := strings.ToUpper(strings.TrimSpace(in.Code))
	name := strings.TrimSpace(in.Name)
	if code == "" || name == "" {
		return nil, domain.ValidationError("code and name are required")
	}

	status := domain.EquipmentAvailable
	if in.Status != "" {
		status = domain.EquipmentStatus(in.Status)
		if !status.Valid() {
			return nil, domain.ValidationError("unknown equipment status %q", in.Status)
		}
	}

	now := s.now().UTC()
	created, err := s.repo.Create(ctx, &domain.Equipment{
		Code:      code,
		Name:      name,
		Category:  strings.TrimSpace(in.Category),
		Status:    status,
		ProjectID: strings.TrimSpace(in.ProjectID),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("equipment_id", created.ID).Str("code", created.Code).Msg("equipment created")
	return created, nil
}

// Update applies a partial update. Moving equipment into maintenance or out of
// service notifies the logistics managers.
func (s *EquipmentService) Update(ctx context.Context, actor *domain.Identity, id string, upd ports.EquipmentUpdate) (*domain.Equipment, error) {
	if upd.Status != nil && !upd.Status.Valid() {
		return nil, domain.ValidationError("unknown equipment status %q", *upd.Status)
	}
	if upd.Name != nil && strings.TrimSpace(*upd.Name) == "" {
		return nil, domain.ValidationError("name cannot be empty")
	}

	before, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.Update(ctx, id, upd, s.now().UTC())
	if err != nil {
		return nil, err
	}

	if upd.Status != nil && *upd.Status != before.Status && upd.Status.NeedsAttention() && s.notifier != nil {
		s.notifier.Enqueue(domain.Notification{
			RecipientRole: domain.RoleLogisticsManager,
			Title:         fmt.Sprintf("Equipment %s is %s", updated.Code, updated.Status),
			Message:       fmt.Sprintf("%s changed %s from %s to %s.", actorName(actor), updated.Name, before.Status, updated.Status),
			Link:          "/equipment/" + updated.ID,
		})
	}

	s.logger.Info().Str("equipment_id", id).Str("actor", actorID(actor)).Msg("equipment updated")
	return updated, nil
}

// RecordTelemetry stores the latest tracker position.
func (s *EquipmentService) RecordTelemetry(ctx context.Context, ping domain.TelemetryPing) (*domain.Equipment, error) {
	if ping.Location.Lat < -90 || ping.Location.Lat > 90 || ping.Location.Lng < -180 || ping.Location.Lng > 180 {
		return nil, domain.ValidationError("coordinates out of range")
	}
	if ping.RecordedAt.IsZero() {
		ping.RecordedAt = s.now().UTC()
	}

	eq, err := s.repo.RecordTelemetry(ctx, ping)
	if err != nil {
		return nil, err
	}
	metrics.TelemetryPingsTotal.Inc()
	s.logger.Debug().Str("equipment_id", ping.EquipmentID).Msg("telemetry recorded")
	return eq, nil
}

func actorName(id *domain.Identity) string {
	if id == nil {
		return "someone"
	}
	if id.DisplayName != "" {
		return id.DisplayName
	}
	return id.Username
}

func actorID(id *domain.Identity) string {
	if id == nil {
		return ""
	}
	return id.ID
}
