package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"go-stock-ledger/internal/apierror"
	"go-stock-ledger/internal/cache"
	"go-stock-ledger/internal/config"
	"go-stock-ledger/internal/events"
	"go-stock-ledger/internal/handler"
	"go-stock-ledger/internal/metrics"
	"go-stock-ledger/internal/middleware"
	"go-stock-ledger/internal/repository"
	"go-stock-ledger/internal/service"
	"go-stock-ledger/internal/ws"
	"go-stock-ledger/pkg/database"
	"go-stock-ledger/pkg/jwt"
	"go-stock-ledger/pkg/logger"
	"go-stock-ledger/pkg/tracing"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

const version = "1.0.0"

func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Invalid configuration")
	}
	logger.Init("stock-ledger", cfg.IsDevelopment(), cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := tracing.InitTracer(ctx, "stock-ledger", version, cfg.OtelEndpoint)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to initialize tracer")
	}

	// 2. Setup Database
	db, err := database.ConnectDB(cfg.DSN(), cfg.DBLogLevel)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	if err := repository.Migrate(db); err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to migrate database")
	}

	// 3. Optional Redis chart cache
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = database.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Logger.Warn().Err(err).Msg("Redis unavailable, chart cache disabled")
			rdb = nil
		}
	}
	chartCache := cache.NewRedis(rdb, cache.ChartPrefix, cfg.ChartCacheTTL)

	// 4. Realtime fanout: WebSocket hub plus optional Kafka stream
	wsHub := ws.NewHub()
	go wsHub.Run(ctx)

	notifier := events.Fanout{wsHub}
	var publisher *events.Publisher
	if brokers := cfg.Brokers(); len(brokers) > 0 {
		publisher, err = events.NewPublisher(brokers, cfg.KafkaTopic)
		if err != nil {
			logger.Logger.Warn().Err(err).Strs("brokers", brokers).Msg("Kafka unavailable, event stream disabled")
		} else {
			notifier = append(notifier, publisher)
		}
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	// 5. Dependency Injection (Wiring Layers)
	productRepo := repository.NewProductRepo(db)
	txRepo := repository.NewTransactionRepo(db)
	userRepo := repository.NewUserRepo(db)
	ledgerRepo := repository.NewLedgerRepo(db, repository.LedgerOptions{
		Mode:       cfg.LedgerLockMode,
		MaxRetries: cfg.LedgerMaxRetries,
		OnRetry:    m.CASRetries.Inc,
	})

	tokens := jwt.NewManager(cfg.JWTSecret, time.Duration(cfg.JWTExpirationHours)*time.Hour)

	ledgerService := service.NewLedgerService(ledgerRepo, productRepo, chartCache, notifier, m)
	invService := service.NewInventoryService(productRepo, txRepo, chartCache, notifier)
	dashService := service.NewDashboardService(txRepo, productRepo, chartCache)
	authService := service.NewAuthService(userRepo, tokens)
	userService := service.NewUserService(userRepo)

	if err := userService.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to seed admin user")
	}

	routes := handler.Routes{
		Auth:      handler.NewAuthHandler(authService),
		Inventory: handler.NewInventoryHandler(invService),
		Ledger:    handler.NewLedgerHandler(ledgerService),
		Dashboard: handler.NewDashboardHandler(dashService),
		Users:     handler.NewUserHandler(userService),
	}

	// 6. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ErrorHandler: apierror.Handler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.RequestLogger())
	app.Use(middleware.Metrics(m))
	app.Use(cors.New(cors.Config{AllowOrigins: cfg.CORSOrigins}))

	// 7. Routes
	app.Get("/health", func(c *fiber.Ctx) error {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.UserContext())
		}
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
		}
		return c.JSON(fiber.Map{"status": "ok", "ws_clients": wsHub.ClientCount()})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	routes.Register(app, middleware.RequireAuth(tokens, userRepo))

	// WebSocket Route
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	app.Get("/ws", websocket.New(func(c *websocket.Conn) {
		select {
		case wsHub.Register <- c:
		case <-ctx.Done():
			return
		}
		defer func() {
			select {
			case wsHub.Unregister <- c:
			case <-ctx.Done():
			}
		}()

		for {
			// Keep alive loop
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
	}))

	// 8. Graceful Shutdown
	go func() {
		logger.Logger.Info().
			Str("port", cfg.Port).
			Str("lock_mode", cfg.LedgerLockMode).
			Msg("Server starting")
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Logger.Error().Err(err).Msg("Server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Logger.Info().Msg("Shutting down server...")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Logger.Error().Err(err).Msg("Failed to close Kafka producer")
		}
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownTracer(flushCtx); err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to flush traces")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	logger.Logger.Info().Msg("Server exited")
}
