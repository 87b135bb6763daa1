package service

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/civil360/civil360-api/internal/core/domain"
	"github.com/civil360/civil360-api/internal/core/ports"
)

var (
	buyer    = &domain.Identity{ID: "u-2", Username: "buyer", DisplayName: "Lucía", Role: domain.RolePurchasingManager}
	director = &domain.Identity{ID: "u-1", Username: "director", Role: domain.RoleGeneralDirector}
)

func newTestOrderService(repo *stubOrderRepo) (*PurchaseOrderService, *recordingNotifier) {
	notifier := &recordingNotifier{}
	svc := NewPurchaseOrderService(repo, notifier, zerolog.Nop())
	svc.now = fixedClock(time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC))
	return svc, notifier
}

func validOrderInput() ports.CreateOrderInput {
	return ports.CreateOrderInput{
		Supplier:  "Cementos del Norte",
		ProjectID: "prj-7",
		Items: []ports.OrderItemInput{
			{Description: "Cement 50kg", Quantity: 3, UnitPrice: "0.10"},
			{Description: "Rebar", Quantity: 2, UnitPrice: "0.20"},
		},
	}
}

func TestPurchaseOrderService_CreateComputesTotal(t *testing.T) {
	svc, _ := newTestOrderService(newStubOrderRepo())

	res, err := svc.Create(context.Background(), buyer, validOrderInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	o := res.Order
	if res.AlreadyExisted {
		t.Fatal("fresh order reported as replay")
	}
	if !o.Total.Equal(decimal.RequireFromString("0.70")) {
		t.Errorf("total = %s, want 0.70", o.Total)
	}
	if o.Status != domain.OrderDraft || o.Currency != "MXN" || o.RequestedBy != "u-2" {
		t.Errorf("order = %+v", o)
	}
	if !regexp.MustCompile(`^PO-20240520-[0-9A-F]{6}$`).MatchString(o.Number) {
		t.Errorf("number = %q", o.Number)
	}
	if len(o.StatusHistory) != 1 || o.StatusHistory[0].Status != domain.OrderDraft {
		t.Errorf("history = %+v", o.StatusHistory)
	}
}

func TestPurchaseOrderService_CreateIdempotentReplay(t *testing.T) {
	repo := newStubOrderRepo()
	svc, _ := newTestOrderService(repo)
	in := validOrderInput()
	in.IdempotencyKey = "key-123"

	first, err := svc.Create(context.Background(), buyer, in)
	if err != nil {
		t.Fatalf("first Create: %v", err)
	}
	second, err := svc.Create(context.Background(), buyer, in)
	if err != nil {
		t.Fatalf("second Create: %v", err)
	}
	if !second.AlreadyExisted || second.Order.ID != first.Order.ID {
		t.Fatalf("expected replay of %s, got %+v", first.Order.ID, second)
	}
	if len(repo.byID) != 1 {
		t.Fatalf("replay must not create a second order, have %d", len(repo.byID))
	}
}

func TestPurchaseOrderService_CreateLosesInsertRace(t *testing.T) {
	winner := draftOrder()
	winner.IdempotencyKey = "key-123"
	repo := newStubOrderRepo()
	repo.raceWinner = winner
	svc, _ := newTestOrderService(repo)
	in := validOrderInput()
	in.IdempotencyKey = "key-123"

	res, err := svc.Create(context.Background(), buyer, in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !res.AlreadyExisted || res.Order.ID != winner.ID {
		t.Fatalf("expected replay of %s, got %+v", winner.ID, res)
	}
	if len(repo.byID) != 1 {
		t.Fatalf("expected only the winning order, have %d", len(repo.byID))
	}
}

func TestPurchaseOrderService_CreateDuplicateWithoutKey(t *testing.T) {
	repo := newStubOrderRepo()
	repo.createErr = domain.ErrOrderExists
	svc, _ := newTestOrderService(repo)

	if _, err := svc.Create(context.Background(), buyer, validOrderInput()); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestPurchaseOrderService_CreateValidation(t *testing.T) {
	svc, _ := newTestOrderService(newStubOrderRepo())

	mutate := []func(*ports.CreateOrderInput){
		func(in *ports.CreateOrderInput) { in.Supplier = " " },
		func(in *ports.CreateOrderInput) { in.ProjectID = "" },
		func(in *ports.CreateOrderInput) { in.Items = nil },
		func(in *ports.CreateOrderInput) { in.Items[0].Quantity = 0 },
		func(in *ports.CreateOrderInput) { in.Items[0].UnitPrice = "ten" },
		func(in *ports.CreateOrderInput) { in.Items[0].UnitPrice = "-1" },
		func(in *ports.CreateOrderInput) { in.Items[1].Description = "" },
	}
	for i, m := range mutate {
		in := validOrderInput()
		m(&in)
		if _, err := svc.Create(context.Background(), buyer, in); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("case %d: expected validation error, got %v", i, err)
		}
	}

	if _, err := svc.Create(context.Background(), nil, validOrderInput()); !errors.Is(err, domain.ErrAuthenticationRequired) {
		t.Errorf("nil actor: got %v", err)
	}
}

func TestPurchaseOrderService_CreateStoreFailure(t *testing.T) {
	repo := newStubOrderRepo()
	repo.createErr = domain.Unavailable("insert order", errors.New("no primary"))
	svc, _ := newTestOrderService(repo)

	if _, err := svc.Create(context.Background(), buyer, validOrderInput()); !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
}

func draftOrder() *domain.PurchaseOrder {
	return &domain.PurchaseOrder{
		ID:          "po-1",
		Number:      "PO-20240520-ABCDEF",
		Supplier:    "Cementos del Norte",
		Total:       decimal.RequireFromString("1500.5"),
		Currency:    "MXN",
		Status:      domain.OrderDraft,
		RequestedBy: buyer.ID,
	}
}

func TestPurchaseOrderService_SubmitNotifiesDirectors(t *testing.T) {
	repo := newStubOrderRepo(draftOrder())
	svc, notifier := newTestOrderService(repo)

	o, err := svc.Transition(context.Background(), buyer, "po-1", "submitted", " ready ")
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if o.Status != domain.OrderSubmitted {
		t.Fatalf("status = %s", o.Status)
	}
	last := o.StatusHistory[len(o.StatusHistory)-1]
	if last.ChangedBy != buyer.ID || last.Note != "ready" {
		t.Errorf("history entry = %+v", last)
	}

	if len(notifier.sent) != 1 {
		t.Fatalf("expected one notification, got %+v", notifier.sent)
	}
	n := notifier.sent[0]
	if n.RecipientRole != domain.RoleGeneralDirector {
		t.Errorf("recipient = %+v", n)
	}
	if want := "PO-20240520-ABCDEF from Cementos del Norte, total 1500.50 MXN."; n.Message != want {
		t.Errorf("message = %q, want %q", n.Message, want)
	}
}

func TestPurchaseOrderService_ApprovalIsDirectorOnly(t *testing.T) {
	order := draftOrder()
	order.Status = domain.OrderSubmitted
	repo := newStubOrderRepo(order)
	svc, notifier := newTestOrderService(repo)

	for _, status := range []string{"approved", "rejected"} {
		if _, err := svc.Transition(context.Background(), buyer, "po-1", status, ""); !errors.Is(err, domain.ErrInsufficientPermissions) {
			t.Fatalf("%s by buyer: expected ErrInsufficientPermissions, got %v", status, err)
		}
	}

	o, err := svc.Transition(context.Background(), director, "po-1", "APPROVED", "")
	if err != nil {
		t.Fatalf("director approval: %v", err)
	}
	if o.Status != domain.OrderApproved {
		t.Fatalf("status = %s", o.Status)
	}
	if len(notifier.sent) != 1 || notifier.sent[0].RecipientID != buyer.ID {
		t.Fatalf("requester should be notified, got %+v", notifier.sent)
	}
}

func TestPurchaseOrderService_InvalidTransition(t *testing.T) {
	repo := newStubOrderRepo(draftOrder())
	svc, notifier := newTestOrderService(repo)

	_, err := svc.Transition(context.Background(), buyer, "po-1", "delivered", "")
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if _, err := svc.Transition(context.Background(), buyer, "po-1", "teleported", ""); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("unknown status: expected validation error, got %v", err)
	}
	if _, err := svc.Transition(context.Background(), buyer, "po-404", "submitted", ""); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("missing order: got %v", err)
	}
	if len(notifier.sent) != 0 {
		t.Fatalf("rejected transitions must not notify, got %+v", notifier.sent)
	}
}

func TestPurchaseOrderService_OwnTransitionDoesNotNotifySelf(t *testing.T) {
	repo := newStubOrderRepo(draftOrder())
	svc, notifier := newTestOrderService(repo)

	if _, err := svc.Transition(context.Background(), buyer, "po-1", "cancelled", ""); err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if len(notifier.sent) != 0 {
		t.Fatalf("expected no notifications, got %+v", notifier.sent)
	}
}
