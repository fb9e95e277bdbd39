package handler

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sakashimaa/go-pet-project/inventory/internal/service"
	"github.com/sakashimaa/go-pet-project/inventory/internal/transport/http/middleware"
	"github.com/sakashimaa/go-pet-project/inventory/pkg/mylogger"
	"github.com/sakashimaa/go-pet-project/inventory/pkg/utils"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

type InventoryHandler struct {
	service  service.InventoryService
	validate *validator.Validate
	logger   *zap.Logger
	timeout  time.Duration
}

func NewInventoryHandler(service service.InventoryService, timeout time.Duration, logger *zap.Logger) *InventoryHandler {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &InventoryHandler{
		service:  service,
		validate: validator.New(),
		logger:   logger,
		timeout:  timeout,
	}
}

type GrantItemsInput struct {
	UserID        string `json:"userId" validate:"required,uuid"`
	CatalogItemID string `json:"catalogItemId" validate:"required,uuid"`
	Quantity      int64  `json:"quantity" validate:"gt=0"`
}

// mapErrorStatus translates service errors into HTTP status codes.
func mapErrorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrUnknownItem):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrInvalidCommand):
		return fiber.StatusBadRequest
	case errors.Is(err, service.ErrConcurrencyExhausted):
		return fiber.StatusConflict
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout
	default:
		return fiber.StatusInternalServerError
	}
}

func (h *InventoryHandler) List(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	userIDStr := c.Query("userId")
	userID, err := uuid.Parse(userIDStr)
	if err != nil || userID == uuid.Nil {
		mylogger.Warn(ctx, h.logger, "invalid user id", zap.String("user_id", userIDStr))

		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "userId is invalid",
		})
	}

	currentUserID, ok := middleware.CurrentUserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized: missed user"})
	}

	if currentUserID != userID && !middleware.HasRole(c, middleware.RoleAdmin) {
		mylogger.Warn(
			ctx,
			h.logger,
			"inventory access denied",
			zap.Stringer("user_id", userID),
			zap.Stringer("caller_id", currentUserID),
		)

		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	items, err := h.service.ListByUser(ctx, userID)
	if err != nil {
		httpCode := mapErrorStatus(err)

		mylogger.Warn(
			ctx,
			h.logger,
			"list inventory failed",
			zap.Stringer("user_id", userID),
			zap.Int("http_code", httpCode),
			zap.Error(err),
		)

		return c.Status(httpCode).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(items)
}

func (h *InventoryHandler) Grant(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	input := new(GrantItemsInput)
	if err := c.BodyParser(input); err != nil {
		mylogger.Warn(ctx, h.logger, "body parsing failed", zap.Error(err))

		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	if err := h.validate.Struct(input); err != nil {
		mylogger.Warn(ctx, h.logger, "grant input invalid", zap.Error(err))

		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": utils.FormatValidationError(err),
		})
	}

	userID := uuid.MustParse(input.UserID)
	catalogItemID := uuid.MustParse(input.CatalogItemID)

	if err := h.service.AdminGrant(ctx, userID, catalogItemID, input.Quantity); err != nil {
		httpCode := mapErrorStatus(err)

		mylogger.Warn(
			ctx,
			h.logger,
			"admin grant failed",
			zap.Stringer("user_id", userID),
			zap.Stringer("catalog_item_id", catalogItemID),
			zap.Int("http_code", httpCode),
			zap.Error(err),
		)

		return c.Status(httpCode).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	mylogger.Info(
		ctx,
		h.logger,
		"admin grant succeeded",
		zap.Stringer("user_id", userID),
		zap.Stringer("catalog_item_id", catalogItemID),
		zap.Int64("quantity", input.Quantity),
	)

	return c.SendStatus(fiber.StatusOK)
}
