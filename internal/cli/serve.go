package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/civil360/civil360-api/internal/api"
	"github.com/civil360/civil360-api/internal/api/handler"
	"github.com/civil360/civil360-api/internal/core/domain"
	"github.com/civil360/civil360-api/internal/core/service"
	"github.com/civil360/civil360-api/internal/infrastructure/db/mongo"
	"github.com/civil360/civil360-api/internal/infrastructure/db/redis"
	"github.com/civil360/civil360-api/internal/infrastructure/queue"
	"github.com/civil360/civil360-api/internal/pkg/config"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server",
	Long:  `Connects to MongoDB and Redis, starts the notification workers and serves the HTTP API until SIGINT or SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg, log, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		return serve(ctx, cfg, log)
	},
}

func serve(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	connector := newMongoConnector(cfg)
	db, err := connector.Connect(ctx)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := connector.Close(closeCtx); err != nil {
			log.Error().Err(err).Msg("mongo disconnect failed")
		}
	}()

	rdb, err := redis.Connect(ctx, redis.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
	if err != nil {
		return err
	}
	defer rdb.Close()

	// --- Repositories ---
	users := mongo.NewUserRepository(db)
	equipment := mongo.NewEquipmentRepository(db)
	orders := mongo.NewPurchaseOrderRepository(db)
	notifications := mongo.NewNotificationRepository(db)
	for name, ensure := range map[string]func(context.Context) error{
		"users":           users.EnsureIndexes,
		"equipment":       equipment.EnsureIndexes,
		"purchase_orders": orders.EnsureIndexes,
		"notifications":   notifications.EnsureIndexes,
	} {
		if err := ensure(ctx); err != nil {
			return fmt.Errorf("ensure %s indexes: %w", name, err)
		}
	}

	// --- Auth core ---
	tokens, err := service.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, nil)
	if err != nil {
		return err
	}

	var mock *service.MockAuth
	if cfg.MockAuthActive() {
		mock, err = service.NewMockAuth(cfg.Env, domain.Role(cfg.Auth.MockDefaultRole), nil)
		if err != nil {
			return err
		}
		log.Warn().Str("default_role", cfg.Auth.MockDefaultRole).Msg("mock authentication enabled")
	}

	resolver := service.NewSessionResolver(tokens, users, service.ResolverOptions{
		RefetchUser: cfg.Auth.RefetchUser,
		Mock:        mock,
	}, log)
	gate := service.NewGate(resolver)

	throttle := redis.NewLoginThrottle(rdb, cfg.Auth.MaxFailures, cfg.Auth.Lockout)
	authService := service.NewAuthService(users, tokens, throttle, mock, log)

	created, err := authService.EnsureSeedUser(ctx, service.SeedUser{
		Username:    cfg.Seed.Username,
		Password:    cfg.Seed.Password,
		DisplayName: "Director General",
		Email:       cfg.Seed.Email,
		Role:        domain.RoleGeneralDirector,
	})
	if err != nil {
		return fmt.Errorf("seed user: %w", err)
	}
	if created {
		log.Info().Str("username", cfg.Seed.Username).Msg("seed user created")
	}

	// --- Business modules ---
	notificationService := service.NewNotificationService(notifications, log)
	dispatcher := queue.NewDispatcher(cfg.Notify.Workers, notificationService, log)
	workersCtx, stopWorkers := context.WithCancel(context.Background())
	dispatcher.Start(workersCtx)
	defer func() {
		stopWorkers()
		dispatcher.Wait()
	}()

	e := api.NewRouter(api.Dependencies{
		Auth:          authService,
		Equipment:     service.NewEquipmentService(equipment, dispatcher, log),
		Orders:        service.NewPurchaseOrderService(orders, dispatcher, log),
		Notifications: notificationService,
		Gate:          gate,
		Health: map[string]handler.Pinger{
			"mongodb": connector,
			"redis":   redis.NewPinger(rdb),
		},
		AuthRateRPM: cfg.Auth.RateLimitRPM,
		Log:         log,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("http server listening")
		errCh <- e.Start(":" + cfg.Port)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	log.Info().Msg("server stopped")
	return nil
}
