package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/civil360/civil360-api/internal/core/domain"
	"github.com/civil360/civil360-api/internal/core/ports"
)

// EquipmentHandler handles HTTP requests for the equipment registry.
type EquipmentHandler struct {
	service ports.EquipmentService
}

func NewEquipmentHandler(service ports.EquipmentService) *EquipmentHandler {
	return &EquipmentHandler{service: service}
}

// List handles GET /v1/equipment.
//
// @Summary      List equipment
// @Tags         equipment
// @Produce      json
// @Security     BearerAuth
// @Param        status      query     string  false  "available, in_use, maintenance, out_of_service"
// @Param        project_id  query     string  false  "Assigned project"
// @Param        category    query     string  false  "Category"
// @Param        search      query     string  false  "Partial match on code or name"
// @Param        page        query     int     false  "Page number (1-based)"
// @Param        limit       query     int     false  "Page size (max 100)"
// @Success      200         {object}  listResponse[domain.Equipment]
// @Failure      400         {object}  errorResponse
// @Failure      403         {object}  errorResponse
// @Router       /v1/equipment [get]
func (h *EquipmentHandler) List(c echo.Context) error {
	res, err := h.service.List(c.Request().Context(), ports.EquipmentFilter{
		Status:    strings.TrimSpace(c.QueryParam("status")),
		ProjectID: strings.TrimSpace(c.QueryParam("project_id")),
		Category:  strings.TrimSpace(c.QueryParam("category")),
		Search:    strings.TrimSpace(c.QueryParam("search")),
		Page:      pageFromQuery(c),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newListResponse(res))
}

// Get handles GET /v1/equipment/:id.
//
// @Summary      Get equipment by ID
// @Tags         equipment
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Equipment ID"
// @Success      200  {object}  domain.Equipment
// @Failure      404  {object}  errorResponse
// @Router       /v1/equipment/{id} [get]
func (h *EquipmentHandler) Get(c echo.Context) error {
	eq, err := h.service.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, eq)
}

// Create handles POST /v1/equipment.
//
// @Summary      Register equipment
// @Tags         equipment
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createEquipmentRequest  true  "Equipment details"
// @Success      201   {object}  domain.Equipment
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/equipment [post]
func (h *EquipmentHandler) Create(c echo.Context) error {
	var req createEquipmentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	eq, err := h.service.Create(c.Request().Context(), ports.CreateEquipmentInput{
		Code:      req.Code,
		Name:      req.Name,
		Category:  req.Category,
		Status:    req.Status,
		ProjectID: req.ProjectID,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, eq)
}

// Update handles PATCH /v1/equipment/:id.
//
// @Summary      Update equipment
// @Tags         equipment
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string                  true  "Equipment ID"
// @Param        body  body      updateEquipmentRequest  true  "Fields to change"
// @Success      200   {object}  domain.Equipment
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /v1/equipment/{id} [patch]
func (h *EquipmentHandler) Update(c echo.Context) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return err
	}

	var req updateEquipmentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	upd := ports.EquipmentUpdate{
		Name:      req.Name,
		Category:  req.Category,
		ProjectID: req.ProjectID,
		IsActive:  req.IsActive,
	}
	if req.Status != nil {
		status := domain.EquipmentStatus(*req.Status)
		upd.Status = &status
	}

	eq, err := h.service.Update(c.Request().Context(), identity, c.Param("id"), upd)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, eq)
}

// RecordTelemetry handles POST /v1/equipment/:id/telemetry.
//
// @Summary      Record a tracker position
// @Tags         equipment
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string            true  "Equipment ID"
// @Param        body  body      telemetryRequest  true  "Position"
// @Success      200   {object}  domain.Equipment
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /v1/equipment/{id}/telemetry [post]
func (h *EquipmentHandler) RecordTelemetry(c echo.Context) error {
	var req telemetryRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if req.Lat == nil || req.Lng == nil {
		return domain.ValidationError("lat and lng are required")
	}

	var at time.Time
	if req.RecordedAt != "" {
		parsed, err := time.Parse(time.RFC3339, req.RecordedAt)
		if err != nil {
			return domain.ValidationError("recorded_at must be an RFC 3339 timestamp")
		}
		at = parsed.UTC()
	}

	eq, err := h.service.RecordTelemetry(c.Request().Context(), domain.TelemetryPing{
		EquipmentID: c.Param("id"),
		Location:    domain.Coordinates{Lat: *req.Lat, Lng: *req.Lng},
		RecordedAt:  at,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, eq)
}
