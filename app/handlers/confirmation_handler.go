// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"log"
	"time"

	"github.com/AronSwan/onlinestore-sub023/app/dto"
	businessflow "github.com/AronSwan/onlinestore-sub023/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// ConfirmationHandlerInterface defines the contract for blockchain observation handlers
type ConfirmationHandlerInterface interface {
	ObserveConfirmation(c fiber.Ctx) error
	ListOrderConfirmations(c fiber.Ctx) error
}

// ConfirmationHandler handles blockchain observation HTTP requests
type ConfirmationHandler struct {
	confirmationFlow businessflow.ConfirmationFlow
	validator        *validator.Validate
}

func (h *ConfirmationHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *ConfirmationHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// NewConfirmationHandler creates a new confirmation handler
func NewConfirmationHandler(confirmationFlow businessflow.ConfirmationFlow) *ConfirmationHandler {
	return &ConfirmationHandler{
		confirmationFlow: confirmationFlow,
		validator:        validator.New(),
	}
}

// ObserveConfirmation handles one transaction sighting from the chain watcher
// @Summary Observe Blockchain Transaction
// @Description Record one sighting of an on-chain transaction. Repeated sightings of the same transaction advance its confirmation count monotonically; the paying order is credited exactly once when the count reaches the required threshold.
// @Tags Internal
// @Accept json
// @Produce json
// @Param request body dto.ObserveConfirmationRequest true "Observed transaction data"
// @Success 200 {object} dto.APIResponse{data=dto.ObserveConfirmationResponse} "Observation recorded"
// @Failure 400 {object} dto.APIResponse "Validation error or invalid observation"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/internal/crypto/observations [post]
func (h *ConfirmationHandler) ObserveConfirmation(c fiber.Ctx) error {
	var req dto.ObserveConfirmationRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	// Validate request
	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	// Get client information
	ipAddress := c.IP()
	userAgent := c.Get("User-Agent")
	metadata := businessflow.NewClientMetadata(ipAddress, userAgent)

	result, err := h.confirmationFlow.Observe(h.createRequestContext(c, "/api/v1/internal/crypto/observations"), &req, metadata)
	if err != nil {
		// Handle specific business errors
		if businessflow.IsTxHashRequired(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Transaction hash is required", "TX_HASH_REQUIRED", nil)
		}
		if businessflow.IsObservationUnmatched(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Observation fields are invalid", "INVALID_OBSERVATION", nil)
		}
		if businessflow.IsNetworkUnsupported(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Network is not supported", "NETWORK_UNSUPPORTED", nil)
		}
		if businessflow.IsConcurrentModification(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Order was modified concurrently, redeliver", "CONCURRENT_MODIFICATION", nil)
		}

		log.Println("Observation processing failed", err)
		// Handle generic business errors
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Observation processing failed", "OBSERVATION_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Observation recorded", result)
}

// ListOrderConfirmations handles the listing of tracked transactions for one order
// @Summary List Order Confirmations
// @Description Retrieve the on-chain transactions observed against one payment order
// @Tags Admin
// @Accept json
// @Produce json
// @Param orderNumber path string true "Order number"
// @Success 200 {object} dto.APIResponse{data=[]dto.ConfirmationRecordDTO} "Confirmations retrieved successfully"
// @Failure 404 {object} dto.APIResponse "Order not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/admin/payments/{orderNumber}/confirmations [get]
func (h *ConfirmationHandler) ListOrderConfirmations(c fiber.Ctx) error {
	orderNumber := c.Params("orderNumber")
	if orderNumber == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Order number is required", "MISSING_ORDER_NUMBER", nil)
	}

	result, err := h.confirmationFlow.ListOrderConfirmations(h.createRequestContext(c, "/api/v1/admin/payments/:orderNumber/confirmations"), orderNumber)
	if err != nil {
		if businessflow.IsOrderNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Payment order not found", "ORDER_NOT_FOUND", nil)
		}

		log.Println("Confirmation listing failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list confirmations", "CONFIRMATION_LISTING_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Confirmations retrieved successfully", result)
}

// createRequestContext creates a context with request-scoped values for observability and timeout
func (h *ConfirmationHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	// Create context with custom timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)

	// Add request-scoped values for observability
	ctx = context.WithValue(ctx, businessflow.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, "user_agent", c.Get("User-Agent"))
	ctx = context.WithValue(ctx, "ip_address", c.IP())
	ctx = context.WithValue(ctx, "endpoint", endpoint)
	ctx = context.WithValue(ctx, "cancel_func", cancel) // Store cancel function for cleanup

	return ctx
}
