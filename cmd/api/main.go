package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-inventory-ledger/internal/config"
	"go-inventory-ledger/internal/event"
	"go-inventory-ledger/internal/handler"
	"go-inventory-ledger/internal/metrics"
	"go-inventory-ledger/internal/middleware"
	"go-inventory-ledger/internal/repository"
	"go-inventory-ledger/internal/service"
	"go-inventory-ledger/internal/ws"
	"go-inventory-ledger/pkg/database"
	"go-inventory-ledger/pkg/jwt"
	"go-inventory-ledger/pkg/lock"
	"go-inventory-ledger/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
)

func main() {
	if err := run(); err != nil {
		logger.Logger.Error().Err(err).Msg("server exited with error")
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config and logging
	cfg, err := config.Load("")
	if err != nil {
		return err
	}
	logger.Init("inventory-ledger", cfg.Log.IsDevelopment())
	logger.SetLevel(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Setup Database
	db, err := database.ConnectDB(cfg.Database, cfg.Log.Level == "debug")
	if err != nil {
		return err
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	// 3. Event sinks: websocket hub always, Kafka when configured
	wsHub := ws.NewHub()
	go wsHub.Run(ctx)
	publishers := event.Multi{wsHub}

	if len(cfg.Kafka.Brokers) > 0 {
		kafka, err := event.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return err
		}
		defer kafka.Close()
		publishers = append(publishers, kafka)
	}

	// 4. Item lock: Redis when shared between replicas, in-process otherwise
	var locker lock.Locker = lock.NewKeyedMutex()
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)
		defer client.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		locker = lock.NewRedisLocker(client, cfg.Redis.LockTTL)
		logger.Logger.Info().Msg("using Redis item lock")
	}

	appMetrics := metrics.New()
	tokens := jwt.NewManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	// 5. Dependency Injection (Wiring Layers)
	itemRepo := repository.NewItemRepo(db)
	categoryRepo := repository.NewCategoryRepo(db)
	txRepo := repository.NewTransactionRepo(db)
	userRepo := repository.NewUserRepo(db)

	opts := []service.Option{
		service.WithPublisher(publishers),
		service.WithLocker(locker),
		service.WithAdjustmentObserver(appMetrics),
	}
	itemService := service.NewItemService(itemRepo, categoryRepo, txRepo, db, opts...)
	ledgerService := service.NewLedgerService(itemRepo, txRepo, db, opts...)
	categoryService := service.NewCategoryService(categoryRepo, itemRepo, db, opts...)
	dashService := service.NewDashboardService(txRepo, opts...)
	authService := service.NewAuthService(userRepo, tokens)
	userService := service.NewUserService(userRepo, authService)

	seedAdmin(ctx, authService, cfg.Seed)

	// 6. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName: "Inventory Ledger v1.0",
	})

	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(middleware.RequestContext(cfg.Server.RequestTimeout))
	app.Use(middleware.RequestLogger())
	app.Use(appMetrics.Middleware())

	app.Get("/metrics", appMetrics.Handler())

	// 7. Routes
	handler.RegisterRoutes(app, handler.Handlers{
		Auth:         handler.NewAuthHandler(authService),
		Items:        handler.NewItemHandler(itemService, ledgerService),
		Categories:   handler.NewCategoryHandler(categoryService),
		Transactions: handler.NewTransactionHandler(ledgerService),
		Dashboard:    handler.NewDashboardHandler(dashService),
		Users:        handler.NewUserHandler(userService),
	}, middleware.RequireAuth(userRepo, tokens))

	// WebSocket Route
	app.Use("/ws", ws.Upgrade)
	app.Get("/ws", wsHub.Handler())

	// 8. Graceful Shutdown
	listenErr := make(chan error, 1)
	go func() {
		logger.Logger.Info().Str("port", cfg.Server.Port).Msg("server listening")
		listenErr <- app.Listen(":" + cfg.Server.Port)
	}()

	select {
	case err := <-listenErr:
		return err
	case <-ctx.Done():
	}

	logger.Logger.Info().Msg("shutting down server")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Logger.Info().Msg("server exited")
	return nil
}

// seedAdmin creates the configured admin account on first start.
func seedAdmin(ctx context.Context, auth service.AuthService, seed config.SeedConfig) {
	if seed.AdminPassword == "" {
		logger.Logger.Warn().Msg("ADMIN_PASSWORD not set, skipping admin seeding")
		return
	}

	created, err := auth.EnsureAdmin(ctx, &service.CreateUserRequest{
		Username: seed.AdminUsername,
		Email:    seed.AdminEmail,
		Password: seed.AdminPassword,
	})
	if err != nil {
		logger.Logger.Warn().Err(err).Msg("failed to seed admin user")
		return
	}
	if created {
		logger.Logger.Info().Str("username", seed.AdminUsername).Msg("admin user created")
	}
}
