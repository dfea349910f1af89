package routes

import (
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/onurcolak/recurring-mailing-service/environments"
	"github.com/onurcolak/recurring-mailing-service/handlers"
	"github.com/onurcolak/recurring-mailing-service/internal/middlewares"
)

// RegisterRoutes registers all API routes with middleware
func RegisterRoutes(
	e *echo.Echo,
	healthHandler *handlers.HealthHandler,
	recipientHandler *handlers.RecipientHandler,
	messageHandler *handlers.MessageHandler,
	scheduleHandler *handlers.ScheduleHandler,
	schedulerHandler *handlers.SchedulerHandler,
	cfg *environments.Config,
) {
	e.GET("/health", healthHandler.Health)
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// API v1 base group
	v1 := e.Group("/api/v1")

	adminAuth := middlewares.APIKeyAuth(cfg.Auth.AdminAPIKey)

	recipients := v1.Group("/recipients", adminAuth)
	recipients.GET("", recipientHandler.ListRecipients)
	recipients.POST("", recipientHandler.CreateRecipient)
	recipients.PUT("/:id", recipientHandler.UpdateRecipient)
	recipients.DELETE("/:id", recipientHandler.DeleteRecipient)

	messages := v1.Group("/messages", adminAuth)
	messages.GET("", messageHandler.ListMessages)
	messages.POST("", messageHandler.CreateMessage)
	messages.GET("/:id", messageHandler.GetMessage)
	messages.PUT("/:id", messageHandler.UpdateMessage)
	messages.DELETE("/:id", messageHandler.DeleteMessage)

	schedules := v1.Group("/schedules", adminAuth)
	schedules.GET("", scheduleHandler.ListSchedules)
	schedules.POST("", scheduleHandler.CreateSchedule)
	// Static segment before the :id routes so Echo does not treat "logs" as an id.
	schedules.GET("/logs/cached", scheduleHandler.CachedLastRuns)
	schedules.GET("/:id", scheduleHandler.GetSchedule)
	schedules.PUT("/:id", scheduleHandler.UpdateSchedule)
	schedules.DELETE("/:id", scheduleHandler.DeleteSchedule)
	schedules.GET("/:id/logs", scheduleHandler.ListRunLogs)

	// Scheduler routes with their own API key
	schedulerGroup := v1.Group("/scheduler", middlewares.APIKeyAuth(cfg.Auth.SchedulerAPIKey))
	schedulerGroup.POST("/start", schedulerHandler.StartScheduler)
	schedulerGroup.POST("/stop", schedulerHandler.StopScheduler)
	schedulerGroup.GET("/status", schedulerHandler.SchedulerStatus)
}
