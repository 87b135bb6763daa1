package handler

import (
	"github.com/civil360/civil360-api/internal/core/domain"
	"github.com/civil360/civil360-api/internal/core/ports"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type pagination struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

// listResponse is the envelope for every paginated collection.
type listResponse[T any] struct {
	Data       []T        `json:"data"`
	Pagination pagination `json:"pagination"`
}

func newListResponse[T any](res *ports.PageResult[T]) listResponse[T] {
	return listResponse[T]{
		Data: res.Items,
		Pagination: pagination{
			Total:      res.Total,
			Page:       res.Page,
			Limit:      res.Limit,
			TotalPages: res.TotalPages,
		},
	}
}

// --- Auth ---

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type mockLoginRequest struct {
	Role string `json:"role"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password"     validate:"required,min=6"`
}

type tokenResponse struct {
	Token string           `json:"token"`
	User  *domain.Identity `json:"user,omitempty"`
}

type meResponse struct {
	User *domain.Identity `json:"user"`
}

// --- Users ---

type createUserRequest struct {
	Username    string `json:"username"     validate:"required"`
	Password    string `json:"password"     validate:"required,min=6"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"        validate:"omitempty,email"`
	Role        string `json:"role"         validate:"required"`
}

type setActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// --- Equipment ---

type createEquipmentRequest struct {
	Code      string `json:"code"       validate:"required"`
	Name      string `json:"name"       validate:"required"`
	Category  string `json:"category"   validate:"required"`
	Status    string `json:"status"     validate:"omitempty,oneof=available in_use maintenance out_of_service"`
	ProjectID string `json:"project_id"`
}

type updateEquipmentRequest struct {
	Name      *string `json:"name"`
	Category  *string `json:"category"`
	Status    *string `json:"status"     validate:"omitempty,oneof=available in_use maintenance out_of_service"`
	ProjectID *string `json:"project_id"`
	IsActive  *bool   `json:"is_active"`
}

type telemetryRequest struct {
	Lat        *float64 `json:"lat"         validate:"required,latitude"`
	Lng        *float64 `json:"lng"         validate:"required,longitude"`
	RecordedAt string   `json:"recorded_at"`
}

// --- Purchase orders ---

type orderItemRequest struct {
	Description string `json:"description" validate:"required"`
	Quantity    int64  `json:"quantity"    validate:"required,gt=0"`
	UnitPrice   string `json:"unit_price"  validate:"required"`
}

type createOrderRequest struct {
	Supplier  string             `json:"supplier"   validate:"required"`
	ProjectID string             `json:"project_id" validate:"required"`
	Currency  string             `json:"currency"   validate:"omitempty,len=3"`
	Items     []orderItemRequest `json:"items"      validate:"required,min=1,dive"`
}

type transitionRequest struct {
	Status string `json:"status" validate:"required"`
	Note   string `json:"note"`
}
