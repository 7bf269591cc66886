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

// RefundHandlerInterface defines the contract for refund handlers
type RefundHandlerInterface interface {
	CreateRefund(c fiber.Ctx) error
	GetRefund(c fiber.Ctx) error
	ListRefunds(c fiber.Ctx) error
}

// RefundHandler handles refund-related HTTP requests
type RefundHandler struct {
	refundFlow businessflow.RefundFlow
	validator  *validator.Validate
}

func (h *RefundHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *RefundHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// NewRefundHandler creates a new refund handler
func NewRefundHandler(refundFlow businessflow.RefundFlow) *RefundHandler {
	return &RefundHandler{
		refundFlow: refundFlow,
		validator:  validator.New(),
	}
}

// CreateRefund handles the creation of a refund against a succeeded order
// @Summary Refund Payment
// @Description Refund part or all of a succeeded payment order. The refundable amount is the paid amount minus all refunds that have not failed.
// @Tags Refunds
// @Accept json
// @Produce json
// @Param orderNumber path string true "Order number"
// @Param request body dto.CreateRefundRequest true "Refund data"
// @Success 201 {object} dto.APIResponse{data=dto.RefundRecordDTO} "Refund created successfully"
// @Failure 400 {object} dto.APIResponse "Validation error or invalid request"
// @Failure 404 {object} dto.APIResponse "Order not found"
// @Failure 409 {object} dto.APIResponse "Order not refundable or refundable amount exceeded"
// @Failure 422 {object} dto.APIResponse "Refunds are not supported on this rail"
// @Failure 502 {object} dto.APIResponse "Gateway rejected or was unavailable"
// @Router /api/v1/payments/{orderNumber}/refunds [post]
func (h *RefundHandler) CreateRefund(c fiber.Ctx) error {
	orderNumber := c.Params("orderNumber")
	if orderNumber == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Order number is required", "MISSING_ORDER_NUMBER", nil)
	}

	var req dto.CreateRefundRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	// The order is addressed by the path, not the body
	req.OrderNumber = orderNumber

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

	result, err := h.refundFlow.CreateRefund(h.createRequestContext(c, "/api/v1/payments/:orderNumber/refunds"), &req, metadata)
	if err != nil {
		// Handle specific business errors
		if businessflow.IsOrderNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Payment order not found", "ORDER_NOT_FOUND", nil)
		}
		if businessflow.IsOrderNotRefundable(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Only succeeded orders can be refunded", "ORDER_NOT_REFUNDABLE", nil)
		}
		if businessflow.IsInsufficientRefundableAmount(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Requested amount exceeds the refundable balance", "INSUFFICIENT_REFUNDABLE_AMOUNT", nil)
		}
		if businessflow.IsRefundAmountTooLow(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Refund amount must be positive", "REFUND_AMOUNT_TOO_LOW", nil)
		}
		if businessflow.IsRefundReasonRequired(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Refund reason is required", "REFUND_REASON_REQUIRED", nil)
		}
		if businessflow.IsRefundNotSupported(err) {
			return h.ErrorResponse(c, fiber.StatusUnprocessableEntity, "Refunds are not supported for this payment method", "REFUND_NOT_SUPPORTED", nil)
		}
		if businessflow.IsRefundInProgress(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Another refund for this order is in progress, retry", "REFUND_IN_PROGRESS", nil)
		}
		if businessflow.IsGatewayRejected(err) {
			return h.ErrorResponse(c, fiber.StatusBadGateway, "The payment gateway rejected the refund", "GATEWAY_REJECTED", nil)
		}
		if businessflow.IsGatewayUnavailable(err) {
			return h.ErrorResponse(c, fiber.StatusBadGateway, "The payment gateway is unavailable, retry later", "GATEWAY_UNAVAILABLE", nil)
		}

		log.Println("Refund creation failed", err)
		// Handle generic business errors
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Refund creation failed", "REFUND_CREATION_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Refund created successfully", result)
}

// GetRefund handles refund status retrieval
// @Summary Get Refund
// @Description Retrieve a refund record by its refund number
// @Tags Refunds
// @Accept json
// @Produce json
// @Param refundNumber path string true "Refund number"
// @Success 200 {object} dto.APIResponse{data=dto.RefundRecordDTO} "Refund retrieved successfully"
// @Failure 404 {object} dto.APIResponse "Refund not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/refunds/{refundNumber} [get]
func (h *RefundHandler) GetRefund(c fiber.Ctx) error {
	refundNumber := c.Params("refundNumber")
	if refundNumber == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Refund number is required", "MISSING_REFUND_NUMBER", nil)
	}

	result, err := h.refundFlow.GetRefund(h.createRequestContext(c, "/api/v1/refunds/:refundNumber"), refundNumber)
	if err != nil {
		if businessflow.IsRefundNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Refund not found", "REFUND_NOT_FOUND", nil)
		}

		log.Println("Refund retrieval failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to retrieve refund", "REFUND_RETRIEVAL_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Refund retrieved successfully", result)
}

// ListRefunds handles the listing of all refunds against one order
// @Summary List Refunds
// @Description Retrieve all refunds recorded against a payment order together with the remaining refundable amount
// @Tags Refunds
// @Accept json
// @Produce json
// @Param orderNumber path string true "Order number"
// @Success 200 {object} dto.APIResponse{data=dto.ListRefundsResponse} "Refunds retrieved successfully"
// @Failure 404 {object} dto.APIResponse "Order not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/payments/{orderNumber}/refunds [get]
func (h *RefundHandler) ListRefunds(c fiber.Ctx) error {
	orderNumber := c.Params("orderNumber")
	if orderNumber == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Order number is required", "MISSING_ORDER_NUMBER", nil)
	}

	result, err := h.refundFlow.ListRefunds(h.createRequestContext(c, "/api/v1/payments/:orderNumber/refunds"), orderNumber)
	if err != nil {
		if businessflow.IsOrderNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Payment order not found", "ORDER_NOT_FOUND", nil)
		}

		log.Println("Refund listing failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list refunds", "REFUND_LISTING_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Refunds retrieved successfully", result)
}

// createRequestContext creates a context with request-scoped values for observability and timeout
func (h *RefundHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
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
