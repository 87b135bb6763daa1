package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/civil360/civil360-api/internal/core/ports"
)

// HeaderIdempotencyKey lets clients retry order creation safely.
const HeaderIdempotencyKey = "Idempotency-Key"

// PurchaseOrderHandler handles HTTP requests for purchase orders.
type PurchaseOrderHandler struct {
	service ports.PurchaseOrderService
}

func NewPurchaseOrderHandler(service ports.PurchaseOrderService) *PurchaseOrderHandler {
	return &PurchaseOrderHandler{service: service}
}

// List handles GET /v1/purchase-orders.
//
// @Summary      List purchase orders
// @Tags         purchase-orders
// @Produce      json
// @Security     BearerAuth
// @Param        status        query     string  false  "draft, submitted, approved, rejected, delivered, cancelled"
// @Param        project_id    query     string  false  "Project"
// @Param        supplier      query     string  false  "Partial supplier name"
// @Param        requested_by  query     string  false  "Requester user ID"
// @Param        date_from     query     string  false  "Created on or after (YYYY-MM-DD)"
// @Param        date_to       query     string  false  "Created on or before (YYYY-MM-DD)"
// @Param        page          query     int     false  "Page number (1-based)"
// @Param        limit         query     int     false  "Page size (max 100)"
// @Success      200           {object}  listResponse[domain.PurchaseOrder]
// @Failure      400           {object}  errorResponse
// @Failure      403           {object}  errorResponse
// @Router       /v1/purchase-orders [get]
func (h *PurchaseOrderHandler) List(c echo.Context) error {
	from, err := dateQuery(c, "date_from")
	if err != nil {
		return err
	}
	to, err := dateQuery(c, "date_to")
	if err != nil {
		return err
	}

	res, err := h.service.List(c.Request().Context(), ports.OrderFilter{
		Status:      strings.TrimSpace(c.QueryParam("status")),
		ProjectID:   strings.TrimSpace(c.QueryParam("project_id")),
		Supplier:    strings.TrimSpace(c.QueryParam("supplier")),
		RequestedBy: strings.TrimSpace(c.QueryParam("requested_by")),
		DateFrom:    from,
		DateTo:      to,
		Page:        pageFromQuery(c),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newListResponse(res))
}

// Get handles GET /v1/purchase-orders/:id.
//
// @Summary      Get a purchase order
// @Tags         purchase-orders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Order ID"
// @Success      200  {object}  domain.PurchaseOrder
// @Failure      404  {object}  errorResponse
// @Router       /v1/purchase-orders/{id} [get]
func (h *PurchaseOrderHandler) Get(c echo.Context) error {
	order, err := h.service.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, order)
}

// Create handles POST /v1/purchase-orders.
// A repeated Idempotency-Key returns the original order with 200.
//
// @Summary      Create a purchase order
// @Tags         purchase-orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        Idempotency-Key  header    string              false  "Client-generated key for safe retries"
// @Param        body             body      createOrderRequest  true   "Order details"
// @Success      201              {object}  domain.PurchaseOrder
// @Success      200              {object}  domain.PurchaseOrder  "Replayed"
// @Failure      400              {object}  errorResponse
// @Failure      422              {object}  errorResponse
// @Router       /v1/purchase-orders [post]
func (h *PurchaseOrderHandler) Create(c echo.Context) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return err
	}

	var req createOrderRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	items := make([]ports.OrderItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, ports.OrderItemInput{
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
		})
	}

	res, err := h.service.Create(c.Request().Context(), identity, ports.CreateOrderInput{
		Supplier:       req.Supplier,
		ProjectID:      req.ProjectID,
		Currency:       req.Currency,
		Items:          items,
		IdempotencyKey: strings.TrimSpace(c.Request().Header.Get(HeaderIdempotencyKey)),
	})
	if err != nil {
		return err
	}

	status := http.StatusCreated
	if res.AlreadyExisted {
		status = http.StatusOK
	}
	return c.JSON(status, res.Order)
}

// Transition handles POST /v1/purchase-orders/:id/transitions.
//
// @Summary      Change a purchase order status
// @Description  Approve and reject are reserved for the general director.
// @Tags         purchase-orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string             true  "Order ID"
// @Param        body  body      transitionRequest  true  "Target status"
// @Success      200   {object}  domain.PurchaseOrder
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/purchase-orders/{id}/transitions [post]
func (h *PurchaseOrderHandler) Transition(c echo.Context) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return err
	}

	var req transitionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	order, err := h.service.Transition(c.Request().Context(), identity, c.Param("id"), req.Status, req.Note)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, order)
}
