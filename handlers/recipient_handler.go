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

// recipientStore is what the handler needs from the recipient repository.
type recipientStore interface {
	Create(ctx context.Context, rec *domain.Recipient) (*domain.Recipient, error)
	GetByID(ctx context.Context, id int64) (*domain.Recipient, error)
	List(ctx context.Context, page, pageSize int) ([]domain.Recipient, int64, error)
	Update(ctx context.Context, rec *domain.Recipient) (*domain.Recipient, error)
	Delete(ctx context.Context, id int64) error
}

type RecipientHandler struct {
	recipients recipientStore
}

func NewRecipientHandler(recipients recipientStore) *RecipientHandler {
	return &RecipientHandler{recipients: recipients}
}

type RecipientRequest struct {
	Email       string  `json:"email" validate:"required,email"`
	DisplayName *string `json:"displayName,omitempty"`
	Comment     *string `json:"comment,omitempty"`
}

// ListRecipients godoc
// @Summary List recipients
// @Description Retrieves a paginated list of recipients, ordered by email
// @Tags recipients
// @Produce json
// @Param x-api-key header string true "Admin API key"
// @Param page query int false "Page number (default: 1)"
// @Param pageSize query int false "Page size (default: 20, max: 100)"
// @Success 200 {object} response.PaginatedResponse
// @Failure 400 {object} response.ErrorResponse
// @Router /api/v1/recipients [get]
func (h *RecipientHandler) ListRecipients(c echo.Context) error {
	page, pageSize, err := parsePaginationParams(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	recipients, totalCount, err := h.recipients.List(c.Request().Context(), page, pageSize)
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Paginated(c, recipients, page, pageSize, totalCount)
}

// CreateRecipient godoc
// @Summary Create a recipient
// @Description Creates a recipient; the email is normalized to lowercase and must be unique
// @Tags recipients
// @Accept json
// @Produce json
// @Param x-api-key header string true "Admin API key"
// @Param recipient body RecipientRequest true "Recipient to create"
// @Success 201 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse
// @Router /api/v1/recipients [post]
func (h *RecipientHandler) CreateRecipient(c echo.Context) error {
	var req RecipientRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	created, err := h.recipients.Create(c.Request().Context(), &domain.Recipient{
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Comment:     req.Comment,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return response.Conflict(c, err)
		}
		return response.InternalServerError(c, err)
	}

	return response.Created(c, "Recipient created successfully", created)
}

// UpdateRecipient godoc
// @Summary Update a recipient
// @Tags recipients
// @Accept json
// @Produce json
// @Param x-api-key header string true "Admin API key"
// @Param id path int true "Recipient ID"
// @Param recipient body RecipientRequest true "New recipient fields"
// @Success 200 {object} response.SuccessResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/recipients/{id} [put]
func (h *RecipientHandler) UpdateRecipient(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	var req RecipientRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	if _, err := h.recipients.GetByID(c.Request().Context(), id); err != nil {
		if errors.Is(err, repository.ErrRecipientNotFound) {
			return response.NotFound(c, err.Error())
		}
		return response.InternalServerError(c, err)
	}

	updated, err := h.recipients.Update(c.Request().Context(), &domain.Recipient{
		ID:          id,
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Comment:     req.Comment,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return response.Conflict(c, err)
		}
		return response.InternalServerError(c, err)
	}

	return response.OkWithMessage(c, "Recipient updated successfully", updated)
}

// DeleteRecipient godoc
// @Summary Delete a recipient
// @Tags recipients
// @Produce json
// @Param x-api-key header string true "Admin API key"
// @Param id path int true "Recipient ID"
// @Success 204
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/recipients/{id} [delete]
func (h *RecipientHandler) DeleteRecipient(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	if err := h.recipients.Delete(c.Request().Context(), id); err != nil {
		if errors.Is(err, repository.ErrRecipientNotFound) {
			return response.NotFound(c, err.Error())
		}
		return response.InternalServerError(c, err)
	}

	return response.NoContent(c)
}
