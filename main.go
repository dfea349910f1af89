package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/onurcolak/recurring-mailing-service/environments"
	"github.com/onurcolak/recurring-mailing-service/handlers"
	"github.com/onurcolak/recurring-mailing-service/internal/jobs"
	"github.com/onurcolak/recurring-mailing-service/internal/repository"
	"github.com/onurcolak/recurring-mailing-service/internal/scheduler"
	"github.com/onurcolak/recurring-mailing-service/internal/service"
	"github.com/onurcolak/recurring-mailing-service/pkg/database"
	"github.com/onurcolak/recurring-mailing-service/pkg/logger"
	"github.com/onurcolak/recurring-mailing-service/pkg/mailer"
	"github.com/onurcolak/recurring-mailing-service/pkg/redis"
	"github.com/onurcolak/recurring-mailing-service/pkg/validator"
	"github.com/onurcolak/recurring-mailing-service/routes"

	_ "github.com/onurcolak/recurring-mailing-service/docs" // swagger docs
)

// @title Recurring Mailing Service API
// @version 1.0
// @description Recurring email schedules with minute-granularity dispatch

// @contact.name API Support
// @contact.email onur.colak@example.com

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /

// @schemes http https
func main() {
	// Load config
	cfg := environments.Load()

	logger.Init(cfg.Server.LogLevel)

	// Hard-fail if required secrets are missing
	if cfg.Mailer.AuthKey == "" {
		logger.Fatalf("MAILER_AUTH_KEY is required but not set")
	}
	if cfg.Auth.AdminAPIKey == "" {
		logger.Fatalf("ADMIN_API_KEY is required but not set")
	}
	if cfg.Auth.SchedulerAPIKey == "" {
		logger.Fatalf("SCHEDULER_API_KEY is required but not set")
	}

	loc, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		logger.Fatalf("Invalid scheduler timezone %q: %v", cfg.Scheduler.Timezone, err)
	}

	logger.Infof("Starting Recurring Mailing Service...")

	// Init DB
	db, err := database.NewMySQLDB(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.RunMigrations(db); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}

	// Seed data
	if os.Getenv("SEED_DATA") == "true" {
		if err := database.SeedTestData(db); err != nil {
			logger.Warnf("Failed to seed test data: %v", err)
		}
	}

	// Init redis; the service degrades to DB-only reads without it
	var redisClient *redis.Client
	redisClient, err = redis.NewRedisClient(cfg.Redis)
	if err != nil {
		logger.Warnf("Redis not available, last-run caching disabled: %v", err)
		redisClient = nil
	}

	// Outbound mail gateway client
	mailClient := mailer.NewClient(cfg.Mailer)
	logger.Infof("Mail gateway configured: %s", mailClient.URL())

	// Initialize repositories
	recipientRepo := repository.NewRecipientRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	runLogRepo := repository.NewRunLogRepository(db)

	// Worker pool for send jobs
	pool := jobs.NewPool(cfg.Scheduler.Workers, cfg.Scheduler.QueueSize)

	// Initialize services. The branches keep a typed-nil *redis.Client out of
	// the cache interfaces when Redis is down.
	scheduleService := service.NewScheduleService(scheduleRepo, messageRepo, runLogRepo, loc)

	var dispatchService *service.DispatchService
	if redisClient != nil {
		dispatchService = service.NewDispatchService(
			scheduleRepo, runLogRepo, mailClient, redisClient, pool, cfg.Mailer.From, loc)
	} else {
		dispatchService = service.NewDispatchService(
			scheduleRepo, runLogRepo, mailClient, nil, pool, cfg.Mailer.From, loc)
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool.Start(ctx)

	// Initialize scheduler
	sched := scheduler.New(dispatchService, loc)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db, redisClient)
	recipientHandler := handlers.NewRecipientHandler(recipientRepo)
	messageHandler := handlers.NewMessageHandler(messageRepo)

	var scheduleHandler *handlers.ScheduleHandler
	if redisClient != nil {
		scheduleHandler = handlers.NewScheduleHandler(scheduleService, redisClient)
	} else {
		scheduleHandler = handlers.NewScheduleHandler(scheduleService, nil)
	}
	schedulerHandler := handlers.NewSchedulerHandler(sched, ctx)

	// Auto-start scheduler
	if os.Getenv("AUTO_START_SCHEDULER") != "false" {
		logger.Infof("Auto-starting scheduler...")
		if err := sched.Start(ctx); err != nil {
			logger.Warnf("Failed to auto-start scheduler: %v", err)
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = validator.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderAuthorization,
			"x-api-key",
		},
	}))

	// Setup routes
	routes.RegisterRoutes(e, healthHandler, recipientHandler, messageHandler, scheduleHandler, schedulerHandler, cfg)

	// Start server in goroutine
	go func() {
		addr := ":" + cfg.Server.Port
		logger.Infof("Server starting on http://localhost%s", addr)
		logger.Infof("Swagger docs available at http://localhost%s/swagger/index.html", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Infof("Shutting down gracefully...")

	// Stop scheduler first so no new sweeps enter the pool
	if sched.IsRunning() {
		logger.Infof("Stopping scheduler...")
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()

		done := make(chan error, 1)
		go func() {
			done <- sched.Stop()
		}()

		select {
		case err := <-done:
			if err != nil {
				logger.Errorf("Error stopping scheduler: %v", err)
			} else {
				logger.Infof("Scheduler stopped successfully")
			}
		case <-stopCtx.Done():
			logger.Warnf("Scheduler stop timeout, forcing shutdown")
		}
	}

	// Drain in-flight send jobs; finalization inside them survives the
	// cancelled root context.
	logger.Infof("Draining send job pool...")
	pool.Stop()

	// Cancel context to signal remaining goroutines to stop
	cancel()

	// Shutdown HTTP server (with timeout)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	logger.Infof("Shutting down HTTP server...")
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	} else {
		logger.Infof("HTTP server stopped successfully")
	}

	// Close database connection
	logger.Infof("Closing database connection...")
	if err := db.Close(); err != nil {
		logger.Errorf("Error closing database: %v", err)
	}

	// Close Redis connection
	if redisClient != nil {
		logger.Infof("Closing Redis connection...")
		if err := redisClient.Close(); err != nil {
			logger.Errorf("Error closing Redis: %v", err)
		}
	}

	logger.Infof("Graceful shutdown completed")
}
