package handlers

import (
	"context"
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/onurcolak/recurring-mailing-service/internal/domain"
	"github.com/onurcolak/recurring-mailing-service/internal/repository"
	"github.com/onurcolak/recurring-mailing-service/pkg/response"
	"github.com/onurcolak/recurring-mailing-service/pkg/validator"
)

type messageStore interface {
	Create(ctx context.Context, subject, body string) (*domain.Message, error)
	GetByID(ctx context.Context, id int64) (*domain.Message, error)
	List(ctx context.Context, page, pageSize int) ([]domain.Message, int64, error)
	Update(ctx context.Context, msg *domain.Message) (*domain.Message, error)
	Delete(ctx context.Context, id int64) error
}

type MessageHandler struct {
	messages messageStore
}

func NewMessageHandler(messages messageStore) *MessageHandler {
	return &MessageHandler{messages: messages}
}

type MessageRequest struct {
	Subject string `json:"subject" validate:"required,max=255"`
	Body    string `json:"body" validate:"required"`
}

// ListMessages godoc
// @Summary List mail messages
// @Tags messages
// @Produce json
// @Param x-api-key header string true "Admin API key"
// @Param page query int false "Page number (default: 1)"
// @Param pageSize query int false "Page size (default: 20, max: 100)"
// @Success 200 {object} response.PaginatedResponse
// @Failure 400 {object} response.ErrorResponse
// @Router /api/v1/messages [get]
func (h *MessageHandler) ListMessages(c echo.Context) error {
	page, pageSize, err := parsePaginationParams(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	messages, totalCount, err := h.messages.List(c.Request().Context(), page, pageSize)
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Paginated(c, messages, page, pageSize, totalCount)
}

// GetMessage godoc
// @Summary Get a mail message
// @Tags messages
// @Produce json
// @Param x-api-key header string true "Admin API key"
// @Param id path int true "Message ID"
// @Success 200 {object} response.SuccessResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/messages/{id} [get]
func (h *MessageHandler) GetMessage(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	msg, err := h.messages.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrMessageNotFound) {
			return response.NotFound(c, err.Error())
		}
		return response.InternalServerError(c, err)
	}

	return response.Ok(c, msg)
}

// CreateMessage godoc
// @Summary Create a mail message
// @Description Creates the subject/body pair that schedules deliver
// @Tags messages
// @Accept json
// @Produce json
// @Param x-api-key header string true "Admin API key"
// @Param message body MessageRequest true "Message to create"
// @Success 201 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Router /api/v1/messages [post]
func (h *MessageHandler) CreateMessage(c echo.Context) error {
	var req MessageRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	created, err := h.messages.Create(c.Request().Context(), req.Subject, req.Body)
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Created(c, "Message created successfully", created)
}

// UpdateMessage godoc
// @Summary Update a mail message
// @Tags messages
// @Accept json
// @Produce json
// @Param x-api-key header string true "Admin API key"
// @Param id path int true "Message ID"
// @Param message body MessageRequest true "New message fields"
// @Success 200 {object} response.SuccessResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/messages/{id} [put]
func (h *MessageHandler) UpdateMessage(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	var req MessageRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	if _, err := h.messages.GetByID(c.Request().Context(), id); err != nil {
		if errors.Is(err, repository.ErrMessageNotFound) {
			return response.NotFound(c, err.Error())
		}
		return response.InternalServerError(c, err)
	}

	updated, err := h.messages.Update(c.Request().Context(), &domain.Message{
		ID:      id,
		Subject: req.Subject,
		Body:    req.Body,
	})
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.OkWithMessage(c, "Message updated successfully", updated)
}

// DeleteMessage godoc
// @Summary Delete a mail message
// @Description Fails with 409 while a schedule still references the message
// @Tags messages
// @Produce json
// @Param x-api-key header string true "Admin API key"
// @Param id path int true "Message ID"
// @Success 204
// @Failure 404 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse
// @Router /api/v1/messages/{id} [delete]
func (h *MessageHandler) DeleteMessage(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	if err := h.messages.Delete(c.Request().Context(), id); err != nil {
		switch {
		case errors.Is(err, repository.ErrMessageNotFound):
			return response.NotFound(c, err.Error())
		case errors.Is(err, repository.ErrMessageInUse):
			return response.Conflict(c, err)
		default:
			return response.InternalServerError(c, err)
		}
	}

	return response.NoContent(c)
}
