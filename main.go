package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"bounty-review-system/handlers"
	"bounty-review-system/middleware"
	"bounty-review-system/models"
	"bounty-review-system/services"
	"bounty-review-system/utils"
	"bounty-review-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	cfg, envLoaded, err := utils.LoadConfig()
	if err != nil {
		// The logger is configured from cfg, so fall back to a bare one here.
		zap.NewExample().Fatal("invalid configuration", zap.Error(err))
	}

	logger, err := utils.InitLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		zap.NewExample().Fatal("failed to build logger", zap.Error(err))
	}
	defer func() { _ = logger.Sync() }()

	if !envLoaded {
		logger.Warn("no .env file found, reading environment variables directly")
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{TranslateError: true})
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Bounty{},
		&models.Submission{},
		&models.PaymentAttempt{},
	); err != nil {
		logger.Fatal("failed to migrate database", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Core workflow
	aggregator := services.NewBountyAggregator()
	store := services.NewSubmissionStore(db, aggregator)
	wallets := services.NewWalletValidator(db)
	paymentClient := services.NewPaymentClient(cfg.PaymentServiceURL, cfg.PaymentServiceToken, cfg.PaymentTimeout)
	dispatcher := services.NewPaymentDispatcher(paymentClient)
	poller := services.NewConfirmationPoller(paymentClient, cfg.ConfirmationMaxAttempts, cfg.ConfirmationInterval)
	reviewService := services.NewReviewService(db, store, wallets, dispatcher, poller)
	reviewService.DefaultTokenAddress = cfg.PaymentTokenAddress

	// HTTP-facing services
	bountyService := services.NewBountyService(db, store, aggregator)
	submissionService := services.NewSubmissionService(store, reviewService, wallets)
	userService := services.NewUserService(db)
	healthService := services.NewHealthService(db, paymentClient)

	if cfg.SyncServiceURL != "" {
		syncClient := workers.NewSyncClient(cfg.SyncServiceURL, cfg.ServiceToken)
		workers.NewProfileSyncWorker(db, syncClient, cfg.SyncInterval).Start(ctx)
		workers.NewWalletSyncWorker(db, syncClient, cfg.SyncInterval).Start(ctx)
	} else {
		logger.Warn("SYNC_SERVICE_URL not set, profile and wallet sync workers disabled")
	}

	if _, err := bountyService.StartEndDateScheduler(ctx, time.Minute); err != nil {
		logger.Fatal("failed to start end-date scheduler", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		AppName: "bounty-review-system",
		// Approvals wait for on-chain confirmation.
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.PaymentTimeout + time.Duration(cfg.ConfirmationMaxAttempts)*(cfg.ConfirmationInterval+cfg.PaymentTimeout),
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.AllowedOrigins, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-User-ID, X-User-Roles",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Only Gateway requests allowed, except probes.
	app.Use(middleware.GatewayAuthMiddleware(cfg.ServiceToken, "/health", "/metrics"))

	app.Get("/health", healthService.Health)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	admin := handlers.AdminGroup(app)
	handlers.SetupBountyRoutes(app, admin, bountyService)
	handlers.SetupSubmissionRoutes(app, admin, submissionService)
	handlers.SetupUserRoutes(app, userService)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Error("server error", zap.Error(err))
			stop()
		}
	}()

	logger.Info("server running",
		zap.String("port", cfg.Port),
		zap.Strings("allowed_origins", cfg.AllowedOrigins),
		zap.Int("confirmation_max_attempts", cfg.ConfirmationMaxAttempts),
		zap.Duration("confirmation_interval", cfg.ConfirmationInterval))

	<-ctx.Done()
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
