package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/onurcolak/recurring-mailing-service/internal/domain"
	"github.com/onurcolak/recurring-mailing-service/internal/repository"
	"github.com/onurcolak/recurring-mailing-service/internal/service"
	"github.com/onurcolak/recurring-mailing-service/pkg/response"
	"github.com/onurcolak/recurring-mailing-service/pkg/validator"
)

// lastRunsReader reads the cached most-recent run outcomes. Nil when the
// cache is disabled.
type lastRunsReader interface {
	GetLastRun(ctx context.Context, scheduleID int64) (*domain.LastRunCache, error)
	GetAllLastRuns(ctx context.Context) (map[int64]*domain.LastRunCache, error)
}

type ScheduleHandler struct {
	schedules *service.ScheduleService
	lastRuns  lastRunsReader
}

func NewScheduleHandler(schedules *service.ScheduleService, lastRuns lastRunsReader) *ScheduleHandler {
	return &ScheduleHandler{schedules: schedules, lastRuns: lastRuns}
}

type CreateScheduleRequest struct {
	MessageID    int64   `json:"messageId" validate:"required,gt=0"`
	TimeOfDay    string  `json:"timeOfDay" validate:"required"`
	Period       string  `json:"period" validate:"required,oneof=daily weekly monthly"`
	RecipientIDs []int64 `json:"recipientIds,omitempty"`
}

type UpdateScheduleRequest struct {
	MessageID    *int64  `json:"messageId,omitempty" validate:"omitempty,gt=0"`
	TimeOfDay    *string `json:"timeOfDay,omitempty"`
	Period       *string `json:"period,omitempty" validate:"omitempty,oneof=daily weekly monthly"`
	RecipientIDs []int64 `json:"recipientIds,omitempty"`
}

// scheduleView decorates a schedule with its recipient ids and, when the
// cache has one, its most recent run outcome.
type scheduleView struct {
	domain.Schedule
	RecipientIDs []int64              `json:"recipientIds"`
	LastRun      *domain.LastRunCache `json:"lastRun,omitempty"`
}

// ListSchedules godoc
// @Summary List schedules
// @Tags schedules
// @Produce json
// @Param x-api-key header string true "Admin API key"
// @Param page query int false "Page number (default: 1)"
// @Param pageSize query int false "Page size (default: 20, max: 100)"
// @Success 200 {object} response.PaginatedResponse
// @Failure 400 {object} response.ErrorResponse
// @Router /api/v1/schedules [get]
func (h *ScheduleHandler) ListSchedules(c echo.Context) error {
	page, pageSize, err := parsePaginationParams(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	schedules, totalCount, err := h.schedules.List(c.Request().Context(), page, pageSize)
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Paginated(c, schedules, page, pageSize, totalCount)
}

// GetSchedule godoc
// @Summary Get a schedule
// @Description Returns the schedule together with its recipient ids and the cached last-run outcome
// @Tags schedules
// @Produce json
// @Param x-api-key header string true "Admin API key"
// @Param id path int true "Schedule ID"
// @Success 200 {object} response.SuccessResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/schedules/{id} [get]
func (h *ScheduleHandler) GetSchedule(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	ctx := c.Request().Context()

	schedule, err := h.schedules.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrScheduleNotFound) {
			return response.NotFound(c, err.Error())
		}
		return response.InternalServerError(c, err)
	}

	recipientIDs, err := h.schedules.RecipientIDs(ctx, id)
	if err != nil {
		return response.InternalServerError(c, err)
	}

	view := scheduleView{Schedule: *schedule, RecipientIDs: recipientIDs}

	// Best effort: a cache miss or error just leaves the field empty.
	if h.lastRuns != nil {
		if entry, err := h.lastRuns.GetLastRun(ctx, id); err == nil {
			view.LastRun = entry
		}
	}

	return response.Ok(c, view)
}

// CreateSchedule godoc
// @Summary Create a schedule
// @Description Creates a recurring mailing; the first run is computed as one full period from now at the requested time of day
// @Tags schedules
// @Accept json
// @Produce json
// @Param x-api-key header string true "Admin API key"
// @Param schedule body CreateScheduleRequest true "Schedule to create"
// @Success 201 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/schedules [post]
func (h *ScheduleHandler) CreateSchedule(c echo.Context) error {
	var req CreateScheduleRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	timeOfDay, err := domain.ParseTimeOfDay(req.TimeOfDay)
	if err != nil {
		return response.BadRequest(c, err)
	}

	created, err := h.schedules.Create(c.Request().Context(), service.CreateScheduleInput{
		MessageID:    req.MessageID,
		TimeOfDay:    timeOfDay,
		Period:       domain.Period(req.Period),
		RecipientIDs: req.RecipientIDs,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrMessageNotFound):
			return response.NotFound(c, err.Error())
		case errors.Is(err, domain.ErrUnsupportedPeriod):
			return response.BadRequest(c, err)
		default:
			return response.InternalServerError(c, err)
		}
	}

	return response.Created(c, "Schedule created successfully", created)
}

// UpdateSchedule godoc
// @Summary Update a schedule
// @Description Edits a schedule; changing the period or the time of day recomputes the next run
// @Tags schedules
// @Accept json
// @Produce json
// @Param x-api-key header string true "Admin API key"
// @Param id path int true "Schedule ID"
// @Param schedule body UpdateScheduleRequest true "Fields to change"
// @Success 200 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/schedules/{id} [put]
func (h *ScheduleHandler) UpdateSchedule(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	var req UpdateScheduleRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	in := service.UpdateScheduleInput{
		MessageID:    req.MessageID,
		RecipientIDs: req.RecipientIDs,
	}

	if req.TimeOfDay != nil {
		timeOfDay, err := domain.ParseTimeOfDay(*req.TimeOfDay)
		if err != nil {
			return response.BadRequest(c, err)
		}
		in.TimeOfDay = &timeOfDay
	}

	if req.Period != nil {
		period := domain.Period(*req.Period)
		in.Period = &period
	}

	updated, err := h.schedules.Update(c.Request().Context(), id, in)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrScheduleNotFound),
			errors.Is(err, repository.ErrMessageNotFound):
			return response.NotFound(c, err.Error())
		case errors.Is(err, domain.ErrUnsupportedPeriod):
			return response.BadRequest(c, err)
		default:
			return response.InternalServerError(c, err)
		}
	}

	return response.OkWithMessage(c, "Schedule updated successfully", updated)
}

// DeleteSchedule godoc
// @Summary Delete a schedule
// @Tags schedules
// @Produce json
// @Param x-api-key header string true "Admin API key"
// @Param id path int true "Schedule ID"
// @Success 204
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/schedules/{id} [delete]
func (h *ScheduleHandler) DeleteSchedule(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	if err := h.schedules.Delete(c.Request().Context(), id); err != nil {
		if errors.Is(err, repository.ErrScheduleNotFound) {
			return response.NotFound(c, err.Error())
		}
		return response.InternalServerError(c, err)
	}

	return response.NoContent(c)
}

// ListRunLogs godoc
// @Summary List a schedule's run logs
// @Description Returns delivery attempts for the schedule, newest first
// @Tags schedules
// @Produce json
// @Param x-api-key header string true "Admin API key"
// @Param id path int true "Schedule ID"
// @Param page query int false "Page number (default: 1)"
// @Param pageSize query int false "Page size (default: 20, max: 100)"
// @Success 200 {object} response.PaginatedResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/schedules/{id}/logs [get]
func (h *ScheduleHandler) ListRunLogs(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	page, pageSize, err := parsePaginationParams(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	logs, totalCount, err := h.schedules.RunLogs(c.Request().Context(), id, page, pageSize)
	if err != nil {
		if errors.Is(err, repository.ErrScheduleNotFound) {
			return response.NotFound(c, err.Error())
		}
		return response.InternalServerError(c, err)
	}

	return response.Paginated(c, logs, page, pageSize, totalCount)
}

// CachedLastRuns godoc
// @Summary Most recent run outcome per schedule, from cache
// @Description Reads the cached last-run entries; entries expire 48 hours after the attempt
// @Tags schedules
// @Produce json
// @Param x-api-key header string true "Admin API key"
// @Success 200 {object} response.SuccessResponse
// @Failure 503 {object} response.ErrorResponse
// @Router /api/v1/schedules/logs/cached [get]
func (h *ScheduleHandler) CachedLastRuns(c echo.Context) error {
	if h.lastRuns == nil {
		return c.JSON(http.StatusServiceUnavailable, response.ErrorResponse{
			Success: false,
			Error:   "Last-run cache is not configured",
		})
	}

	entries, err := h.lastRuns.GetAllLastRuns(c.Request().Context())
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Ok(c, entries)
}
