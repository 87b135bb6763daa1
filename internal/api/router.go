package api

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/civil360/civil360-api/docs"
	"github.com/civil360/civil360-api/internal/api/handler"
	"github.com/civil360/civil360-api/internal/api/middleware"
	"github.com/civil360/civil360-api/internal/core/domain"
	"github.com/civil360/civil360-api/internal/core/ports"
	"github.com/civil360/civil360-api/internal/core/service"
)

const bodyLimit = "1M"

// Dependencies carries everything the router wires into handlers.
type Dependencies struct {
	Auth          ports.AuthService
	Equipment     ports.EquipmentService
	Orders        ports.PurchaseOrderService
	Notifications ports.NotificationService
	Gate          *service.Gate
	Health        map[string]handler.Pinger
	AuthRateRPM   int
	Log           zerolog.Logger
}

// Role groups used by the route table.
var (
	equipmentReaders = []domain.Role{domain.RoleGeneralDirector, domain.RoleProjectEngineer, domain.RoleLogisticsManager, domain.RoleSiteSupervisor}
	equipmentWriters = []domain.Role{domain.RoleGeneralDirector, domain.RoleLogisticsManager}
	orderRequesters  = []domain.Role{domain.RoleGeneralDirector, domain.RolePurchasingManager, domain.RoleProjectEngineer}
	orderApprovers   = []domain.Role{domain.RoleGeneralDirector, domain.RolePurchasingManager}
)

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(deps.Log))
	e.Use(middleware.Metrics())
	e.Use(echomiddleware.BodyLimit(bodyLimit))

	authn := middleware.Authenticate(deps.Gate)
	roles := func(allowed ...domain.Role) echo.MiddlewareFunc {
		return middleware.RequireRoles(deps.Gate, allowed...)
	}

	// --- Auth routes ---
	authHandler := handler.NewAuthHandler(deps.Auth)
	limiter := middleware.NewRateLimiter(deps.AuthRateRPM)
	auth := e.Group("/auth", limiter.Middleware())
	auth.POST("/login", authHandler.Login)
	auth.POST("/mock-login", authHandler.MockLogin)
	auth.POST("/refresh", authHandler.Refresh, authn)
	auth.GET("/me", authHandler.Me, authn)
	auth.POST("/change-password", authHandler.ChangePassword, authn)

	v1 := e.Group("/v1", authn)

	// --- Users ---
	userHandler := handler.NewUserHandler(deps.Auth)
	users := v1.Group("/users", roles(domain.RoleGeneralDirector))
	users.POST("", userHandler.Create)
	users.GET("", userHandler.List)
	users.PATCH("/:id/active", userHandler.SetActive)

	// --- Equipment ---
	equipmentHandler := handler.NewEquipmentHandler(deps.Equipment)
	equipment := v1.Group("/equipment")
	equipment.GET("", equipmentHandler.List, roles(equipmentReaders...))
	equipment.GET("/:id", equipmentHandler.Get, roles(equipmentReaders...))
	equipment.POST("", equipmentHandler.Create, roles(equipmentWriters...))
	equipment.PATCH("/:id", equipmentHandler.Update, roles(equipmentWriters...))
	equipment.POST("/:id/telemetry", equipmentHandler.RecordTelemetry, roles(equipmentWriters...))

	// --- Purchase orders ---
	orderHandler := handler.NewPurchaseOrderHandler(deps.Orders)
	orders := v1.Group("/purchase-orders")
	orders.GET("", orderHandler.List, roles(orderRequesters...))
	orders.GET("/:id", orderHandler.Get, roles(orderRequesters...))
	orders.POST("", orderHandler.Create, roles(orderRequesters...))
	orders.POST("/:id/transitions", orderHandler.Transition, roles(orderApprovers...))

	// --- Notifications (any authenticated role) ---
	notificationHandler := handler.NewNotificationHandler(deps.Notifications)
	v1.GET("/notifications", notificationHandler.List)
	v1.POST("/notifications/:id/read", notificationHandler.MarkRead)

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler(deps.Health)
	e.GET("/health", healthHandler.Liveness)        // liveness: is the process alive?
	e.GET("/health/ready", healthHandler.Readiness) // readiness: are dependencies up?

	// --- Operations ---
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}
