package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/civil360/civil360-api/internal/core/domain"
	"github.com/civil360/civil360-api/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory stub repositories
// ---------------------------------------------------------------------------

type stubUserRepo struct {
	byID    map[string]*domain.User
	findErr error // if set, every lookup returns this error
	updated map[string]string
}

func newStubUserRepo(users ...*domain.User) *stubUserRepo {
	r := &stubUserRepo{byID: make(map[string]*domain.User), updated: make(map[string]string)}
	for _, u := range users {
		clone := *u
		r.byID[u.ID] = &clone
	}
	return r
}

func (r *stubUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, u := range r.byID {
		if u.Username == username {
			clone := *u
			return &clone, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	for _, u := range r.byID {
		if u.Username == user.Username {
			return nil, domain.ErrUserExists
		}
	}
	clone := *user
	clone.ID = fmt.Sprintf("u-%d", len(r.byID)+1)
	r.byID[clone.ID] = &clone
	out := clone
	return &out, nil
}

func (r *stubUserRepo) UpdatePassword(_ context.Context, id, hash string) error {
	u, ok := r.byID[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.PasswordHash = hash
	r.updated[id] = hash
	return nil
}

func (r *stubUserRepo) SetActive(_ context.Context, id string, active bool) error {
	u, ok := r.byID[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.IsActive = active
	return nil
}

func (r *stubUserRepo) List(_ context.Context, p ports.Page) ([]*domain.User, int64, error) {
	var out []*domain.User
	for _, u := range r.byID {
		clone := *u
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	total := int64(len(out))
	start := int(p.Skip())
	if start > len(out) {
		start = len(out)
	}
	end := start + p.Limit
	if end > len(out) {
		end = len(out)
	}
	return out[start:end], total, nil
}

type stubThrottle struct {
	failures map[string]int
	limit    int
	err      error
	resets   int
}

func newStubThrottle(limit int) *stubThrottle {
	return &stubThrottle{failures: make(map[string]int), limit: limit}
}

func (t *stubThrottle) Blocked(_ context.Context, username string) (bool, error) {
	if t.err != nil {
		return false, t.err
	}
	return t.failures[username] >= t.limit, nil
}

func (t *stubThrottle) RecordFailure(_ context.Context, username string) error {
	t.failures[username]++
	return nil
}

func (t *stubThrottle) Reset(_ context.Context, username string) error {
	delete(t.failures, username)
	t.resets++
	return nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []domain.Notification
}

func (n *recordingNotifier) Enqueue(notification domain.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification)
}

type stubEquipmentRepo struct {
	byID map[string]*domain.Equipment
}

func newStubEquipmentRepo(items ...*domain.Equipment) *stubEquipmentRepo {
	r := &stubEquipmentRepo{byID: make(map[string]*domain.Equipment)}
	for _, e := range items {
		clone := *e
		r.byID[e.ID] = &clone
	}
	return r
}

func (r *stubEquipmentRepo) Create(_ context.Context, e *domain.Equipment) (*domain.Equipment, error) {
	for _, existing := range r.byID {
		if existing.Code == e.Code {
			return nil, domain.ErrEquipmentExists
		}
	}
	clone := *e
	clone.ID = fmt.Sprintf("eq-%d", len(r.byID)+1)
	r.byID[clone.ID] = &clone
	out := clone
	return &out, nil
}

func (r *stubEquipmentRepo) FindByID(_ context.Context, id string) (*domain.Equipment, error) {
	e, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrEquipmentNotFound
	}
	clone := *e
	return &clone, nil
}

func (r *stubEquipmentRepo) List(_ context.Context, f ports.EquipmentFilter) ([]*domain.Equipment, int64, error) {
	var out []*domain.Equipment
	for _, e := range r.byID {
		if f.Status != "" && string(e.Status) != f.Status {
			continue
		}
		clone := *e
		out = append(out, &clone)
	}
	return out, int64(len(out)), nil
}

func (r *stubEquipmentRepo) Update(_ context.Context, id string, upd ports.EquipmentUpdate, at time.Time) (*domain.Equipment, error) {
	e, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrEquipmentNotFound
	}
	if upd.Name != nil {
		e.Name = *upd.Name
	}
	if upd.Category != nil {
		e.Category = *upd.Category
	}
	if upd.Status != nil {
		e.Status = *upd.Status
	}
	if upd.ProjectID != nil {
		e.ProjectID = *upd.ProjectID
	}
	if upd.IsActive != nil {
		e.IsActive = *upd.IsActive
	}
	e.UpdatedAt = at
	clone := *e
	return &clone, nil
}

func (r *stubEquipmentRepo) RecordTelemetry(_ context.Context, ping domain.TelemetryPing) (*domain.Equipment, error) {
	e, ok := r.byID[ping.EquipmentID]
	if !ok {
		return nil, domain.ErrEquipmentNotFound
	}
	loc := ping.Location
	at := ping.RecordedAt
	e.Location = &loc
	e.LastTelemetryAt = &at
	clone := *e
	return &clone, nil
}

type stubOrderRepo struct {
	byID       map[string]*domain.PurchaseOrder
	createErr  error
	// raceWinner, when set, is stored by Create in place of the caller's
	// order, which then fails the way a unique index rejects a duplicate.
	raceWinner *domain.PurchaseOrder
}

func newStubOrderRepo(orders ...*domain.PurchaseOrder) *stubOrderRepo {
	r := &stubOrderRepo{byID: make(map[string]*domain.PurchaseOrder)}
	for _, o := range orders {
		clone := *o
		r.byID[o.ID] = &clone
	}
	return r
}

func (r *stubOrderRepo) Create(_ context.Context, o *domain.PurchaseOrder) (*domain.PurchaseOrder, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	if r.raceWinner != nil {
		winner := *r.raceWinner
		r.byID[winner.ID] = &winner
		r.raceWinner = nil
		return nil, domain.ErrOrderExists
	}
	clone := *o
	clone.ID = fmt.Sprintf("po-%d", len(r.byID)+1)
	r.byID[clone.ID] = &clone
	out := clone
	return &out, nil
}

func (r *stubOrderRepo) FindByID(_ context.Context, id string) (*domain.PurchaseOrder, error) {
	o, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	clone := *o
	return &clone, nil
}

func (r *stubOrderRepo) FindByIdempotencyKey(_ context.Context, key string) (*domain.PurchaseOrder, error) {
	for _, o := range r.byID {
		if o.IdempotencyKey == key {
			clone := *o
			return &clone, nil
		}
	}
	return nil, domain.ErrOrderNotFound
}

func (r *stubOrderRepo) List(_ context.Context, f ports.OrderFilter) ([]*domain.PurchaseOrder, int64, error) {
	var out []*domain.PurchaseOrder
	for _, o := range r.byID {
		if f.Status != "" && string(o.Status) != f.Status {
			continue
		}
		clone := *o
		out = append(out, &clone)
	}
	return out, int64(len(out)), nil
}

// UpdateStatus mirrors the conditional update of the real store.
func (r *stubOrderRepo) UpdateStatus(_ context.Context, id string, from domain.OrderStatus, entry domain.OrderHistoryEntry) (*domain.PurchaseOrder, error) {
	o, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	if o.Status != from {
		return nil, domain.TransitionError(string(from), string(entry.Status))
	}
	o.Status = entry.Status
	o.UpdatedAt = entry.Timestamp
	o.StatusHistory = append(o.StatusHistory, entry)
	clone := *o
	return &clone, nil
}

type stubNotificationRepo struct {
	byID     map[string]*domain.Notification
	inserted []*domain.Notification
	filter   ports.NotificationFilter
	marked   []string
}

func newStubNotificationRepo(items ...*domain.Notification) *stubNotificationRepo {
	r := &stubNotificationRepo{byID: make(map[string]*domain.Notification)}
	for _, n := range items {
		clone := *n
		r.byID[n.ID] = &clone
	}
	return r
}

func (r *stubNotificationRepo) Insert(_ context.Context, n *domain.Notification) error {
	n.ID = fmt.Sprintf("n-%d", len(r.byID)+1)
	clone := *n
	r.byID[n.ID] = &clone
	r.inserted = append(r.inserted, &clone)
	return nil
}

func (r *stubNotificationRepo) FindByID(_ context.Context, id string) (*domain.Notification, error) {
	n, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotificationNotFound
	}
	clone := *n
	return &clone, nil
}

func (r *stubNotificationRepo) List(_ context.Context, f ports.NotificationFilter) ([]*domain.Notification, int64, error) {
	r.filter = f
	var out []*domain.Notification
	for _, n := range r.byID {
		clone := *n
		clone.Read = clone.IsReadBy(f.RecipientID)
		if f.UnreadOnly && clone.Read {
			continue
		}
		out = append(out, &clone)
	}
	return out, int64(len(out)), nil
}

func (r *stubNotificationRepo) MarkRead(_ context.Context, id, userID string) error {
	n, ok := r.byID[id]
	if !ok {
		return domain.ErrNotificationNotFound
	}
	n.ReadBy = append(n.ReadBy, userID)
	r.marked = append(r.marked, id)
	return nil
}
