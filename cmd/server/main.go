package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	fiberws "github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/voltwise/chargewatch/internal/adapter/gateway"
	"github.com/voltwise/chargewatch/internal/adapter/http/fiber/handlers"
	"github.com/voltwise/chargewatch/internal/adapter/http/fiber/middleware"
	"github.com/voltwise/chargewatch/internal/adapter/queue"
	"github.com/voltwise/chargewatch/internal/adapter/storage/postgres"
	"github.com/voltwise/chargewatch/internal/adapter/store"
	"github.com/voltwise/chargewatch/internal/adapter/vault"
	"github.com/voltwise/chargewatch/internal/adapter/websocket"
	"github.com/voltwise/chargewatch/internal/domain"
	"github.com/voltwise/chargewatch/internal/infrastructure/clock"
	"github.com/voltwise/chargewatch/internal/observability/telemetry"
	"github.com/voltwise/chargewatch/internal/ports"
	"github.com/voltwise/chargewatch/internal/service/auth"
	"github.com/voltwise/chargewatch/internal/service/health"
	"github.com/voltwise/chargewatch/internal/service/payment"
	"github.com/voltwise/chargewatch/internal/service/session"
	"github.com/voltwise/chargewatch/pkg/config"
)

const (
	serviceName    = "chargewatch"
	serviceVersion = "v1.0.0"
)

func main() {
	// 1. Initialize Logger
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logger.Sync()

	logger.Info("Starting chargewatch",
		zap.String("service", serviceName),
		zap.String("version", serviceVersion),
	)

	// 2. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	clk := clock.New()

	// 3. Pull secrets from Vault when configured
	if cfg.Vault.Address != "" {
		secrets, err := vault.NewSecretManager(cfg.Vault)
		if err != nil {
			logger.Fatal("Failed to connect to Vault", zap.Error(err))
		}
		if url, err := secrets.DatabaseURL(); err == nil {
			cfg.Database.URL = url
		} else {
			logger.Warn("Database secret not available in Vault", zap.Error(err))
		}
		if key, err := secrets.StripeSecretKey(); err == nil {
			cfg.Payment.Stripe.SecretKey = key
		} else {
			logger.Warn("Stripe secret not available in Vault", zap.Error(err))
		}
	}

	// 4. Initialize Tracing (optional)
	if cfg.Tracing.Enabled {
		tp, err := telemetry.InitTracer(serviceName, serviceVersion, cfg.Tracing)
		if err != nil {
			logger.Fatal("Failed to initialize tracer", zap.Error(err))
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			tp.Shutdown(ctx)
		}()
	}

	// 5. Initialize Session Store (Redis with in-memory fallback)
	var sessionStore ports.SessionStore
	if cfg.Store.Backend == "redis" {
		sessionStore, err = store.NewRedisStore(cfg.Store.Redis.URL, cfg.Store.TTL, logger)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
	} else {
		sessionStore = store.NewLocalStore(cfg.Store.TTL, logger)
	}
	defer sessionStore.Close()

	// 6. Initialize History Database (optional)
	var history ports.SessionHistoryRepository
	var db *gorm.DB
	if cfg.Database.URL != "" {
		db, err = postgres.NewConnection(cfg.Database, logger)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer postgres.Close(db)

		if err := postgres.RunMigrations(db); err != nil {
			logger.Fatal("Failed to run migrations", zap.Error(err))
		}
		history = postgres.NewSessionHistoryRepository(db, logger)
	}

	// 7. Initialize Message Queue (NATS, RabbitMQ or none)
	var messageQueue queue.MessageQueue
	switch cfg.Queue.Backend {
	case "nats":
		messageQueue, err = queue.NewNATSQueue(cfg.Queue.NATS, logger)
		if err != nil {
			logger.Fatal("Failed to connect to NATS", zap.Error(err))
		}
	case "rabbitmq":
		messageQueue, err = queue.NewRabbitMQQueue(cfg.Queue.RabbitMQ, logger)
		if err != nil {
			logger.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
		}
	default:
		messageQueue = queue.NewNoopQueue()
	}
	defer messageQueue.Close()

	// 8. Initialize Token Store and Gateway Client
	tokens := auth.NewTokenStore(cfg.Auth.RedirectDelay, clk, logger)
	gatewayClient := gateway.NewClient(cfg.Gateway, tokens, logger)

	// 9. Initialize Parking Monitor and Session Engine
	parkingMonitor := session.NewParkingMonitor(gatewayClient, cfg.Monitor, clk, logger)

	engine := session.NewEngine(session.EngineDeps{
		Gateway: gatewayClient,
		Store:   sessionStore,
		History: history,
		Events:  messageQueue,
		Creds:   tokens,
		Clock:   clk,
		Log:     logger,
	}, cfg.Monitor, cfg.Battery, cfg.Auth, session.Callbacks{
		OnParking: func(summary domain.ParkingSessionSummary) {
			parkingMonitor.Begin(summary)
		},
		OnNotice: func(level session.NoticeLevel, msg string) {
			logger.Info("Session notice", zap.String("level", string(level)), zap.String("message", msg))
		},
	})
	defer engine.Close()
	defer parkingMonitor.End()

	// 10. Initialize Payment Flow
	paymentService := payment.NewService(gatewayClient, engine, history, cfg.Payment, logger)
	paymentService.SetNotifier(func(msg string) {
		logger.Info("Payment notice", zap.String("message", msg))
	})
	paymentService.RegisterInitiator(domain.PaymentProviderGateway, payment.NewGatewayInitiator(gatewayClient))
	if cfg.Payment.Stripe.SecretKey != "" {
		paymentService.RegisterInitiator(domain.PaymentProviderStripe, payment.NewStripeInitiator(cfg.Payment.Stripe))
	}

	// 11. Restore a persisted session, if any
	if restored, err := engine.Restore(context.Background()); err != nil {
		logger.Warn("Session restore failed", zap.Error(err))
	} else if restored != nil {
		logger.Info("Resumed persisted session", zap.String("session_id", restored.SessionID))
	}

	// 12. Live metrics stream over websocket
	hub := websocket.NewHub()
	go hub.Run()
	broadcaster := websocket.NewBroadcaster(hub, engine, clk, cfg.Monitor.StreamInterval, logger)
	go broadcaster.Run()
	defer broadcaster.Stop()

	// 13. Initialize Fiber HTTP Server
	app := fiber.New(fiber.Config{
		AppName:               serviceName,
		ServerHeader:          serviceName,
		DisableStartupMessage: true,
		ReadTimeout:           cfg.HTTP.ReadTimeout,
		WriteTimeout:          cfg.HTTP.WriteTimeout,
		ErrorHandler:          middleware.ErrorHandler(logger),
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(middleware.NewCORS(cfg.HTTP))

	// Health Check Endpoints
	healthService := health.NewService(serviceVersion, logger)
	if db != nil {
		healthService.RegisterChecker("database", health.DatabaseChecker(db))
	}
	if pinger, ok := sessionStore.(interface{ Ping(context.Context) error }); ok {
		healthService.RegisterChecker("session-store", health.PingChecker("session-store", pinger.Ping))
	}
	health.NewFiberHandler(healthService).RegisterRoutes(app)

	// Metrics endpoint for Prometheus
	if cfg.Prometheus.Enabled {
		app.Get(cfg.Prometheus.Path, func(c *fiber.Ctx) error {
			handler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
			handler(c.Context())
			return nil
		})
	}

	// API v1 Routes
	v1 := app.Group("/api/v1", middleware.CaptureToken(tokens))

	sessionHandler := handlers.NewSessionHandler(engine, parkingMonitor, logger)
	v1.Post("/session/start", sessionHandler.Start)
	v1.Get("/session", sessionHandler.Get)
	v1.Post("/session/pause", sessionHandler.Pause)
	v1.Post("/session/resume", sessionHandler.Resume)
	v1.Post("/session/stop", sessionHandler.Stop)
	v1.Post("/session/refresh", sessionHandler.Refresh)
	v1.Get("/session/parking", sessionHandler.Parking)
	v1.Post("/session/parking/retry", sessionHandler.RetryParking)

	paymentHandler := handlers.NewPaymentHandler(paymentService, logger)
	v1.Get("/payment/bill", paymentHandler.GetBill)
	v1.Post("/payment/initiate", paymentHandler.Initiate)

	if history != nil {
		historyHandler := handlers.NewHistoryHandler(history, logger)
		v1.Get("/history", historyHandler.List)
	}

	// Websocket endpoint streaming displayed metrics
	app.Use("/ws", func(c *fiber.Ctx) error {
		if fiberws.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/session", fiberws.New(func(conn *fiberws.Conn) {
		hub.AddClient(conn)
	}))

	// 14. Start HTTP Server
	go func() {
		logger.Info("Starting HTTP Server", zap.Int("port", cfg.HTTP.Port))
		if err := app.Listen(fmt.Sprintf(":%d", cfg.HTTP.Port)); err != nil {
			logger.Fatal("HTTP Server failed", zap.Error(err))
		}
	}()

	// 15. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited gracefully")
}
