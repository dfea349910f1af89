package handlers

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/onurcolak/recurring-mailing-service/internal/scheduler"
	"github.com/onurcolak/recurring-mailing-service/pkg/response"
)

type SchedulerHandler struct {
	scheduler *scheduler.Scheduler
	// ctx outlives individual requests; ticks triggered by Start must not die
	// with the request that started them.
	ctx context.Context
}

func NewSchedulerHandler(s *scheduler.Scheduler, ctx context.Context) *SchedulerHandler {
	return &SchedulerHandler{scheduler: s, ctx: ctx}
}

// StartScheduler godoc
// @Summary Start the dispatch scheduler
// @Description Begins minute-aligned dispatch sweeps; a no-op when already running
// @Tags scheduler
// @Produce json
// @Param x-api-key header string true "Scheduler API key"
// @Success 200 {object} response.SuccessResponse
// @Router /api/v1/scheduler/start [post]
func (h *SchedulerHandler) StartScheduler(c echo.Context) error {
	if err := h.scheduler.Start(h.ctx); err != nil {
		return response.InternalServerError(c, err)
	}

	return response.OkWithMessage(c, "Scheduler started", h.scheduler.GetStatus())
}

// StopScheduler godoc
// @Summary Stop the dispatch scheduler
// @Description Stops future sweeps and waits for in-flight ticks to finish
// @Tags scheduler
// @Produce json
// @Param x-api-key header string true "Scheduler API key"
// @Success 200 {object} response.SuccessResponse
// @Router /api/v1/scheduler/stop [post]
func (h *SchedulerHandler) StopScheduler(c echo.Context) error {
	if err := h.scheduler.Stop(); err != nil {
		return response.InternalServerError(c, err)
	}

	return response.OkWithMessage(c, "Scheduler stopped", h.scheduler.GetStatus())
}

// SchedulerStatus godoc
// @Summary Dispatch scheduler status
// @Description Reports whether the scheduler is running, tick statistics and the next tick time
// @Tags scheduler
// @Produce json
// @Param x-api-key header string true "Scheduler API key"
// @Success 200 {object} scheduler.Status
// @Router /api/v1/scheduler/status [get]
func (h *SchedulerHandler) SchedulerStatus(c echo.Context) error {
	return response.Ok(c, h.scheduler.GetStatus())
}
