// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/AronSwan/onlinestore-sub023/app/dto"
	businessflow "github.com/AronSwan/onlinestore-sub023/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// PaymentOrderHandlerInterface defines the contract for payment order handlers
type PaymentOrderHandlerInterface interface {
	CreatePaymentOrder(c fiber.Ctx) error
	GetPaymentOrder(c fiber.Ctx) error
	ListPaymentOrders(c fiber.Ctx) error
	CancelPaymentOrder(c fiber.Ctx) error
	ClosePaymentOrder(c fiber.Ctx) error
}

// PaymentOrderHandler handles payment-order-related HTTP requests
type PaymentOrderHandler struct {
	orderFlow businessflow.PaymentOrderFlow
	validator *validator.Validate
}

func (h *PaymentOrderHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *PaymentOrderHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// NewPaymentOrderHandler creates a new payment order handler
func NewPaymentOrderHandler(orderFlow businessflow.PaymentOrderFlow) *PaymentOrderHandler {
	handler := &PaymentOrderHandler{
		orderFlow: orderFlow,
		validator: validator.New(),
	}

	// Setup custom validations
	handler.setupCustomValidations()

	return handler
}

// CreatePaymentOrder handles the creation of a new payment order
// @Summary Create Payment Order
// @Description Open a payment order against the selected settlement rail and return the payment URL, QR payload or deposit address
// @Tags Payments
// @Accept json
// @Produce json
// @Param request body dto.CreatePaymentOrderRequest true "Payment order data"
// @Success 201 {object} dto.APIResponse{data=dto.PaymentOrderDTO} "Payment order created successfully"
// @Failure 400 {object} dto.APIResponse "Validation error or invalid request"
// @Failure 409 {object} dto.APIResponse "Duplicate merchant order id"
// @Failure 502 {object} dto.APIResponse "Gateway rejected the order or is unavailable"
// @Router /api/v1/payments [post]
func (h *PaymentOrderHandler) CreatePaymentOrder(c fiber.Ctx) error {
	var req dto.CreatePaymentOrderRequest
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

	// Call business logic with proper context
	result, err := h.orderFlow.CreateOrder(h.createRequestContext(c, "/api/v1/payments"), &req, metadata)
	if err != nil {
		// Handle specific business errors
		if businessflow.IsDuplicateOrder(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "An order with this merchant order id already exists", "DUPLICATE_ORDER", nil)
		}
		if businessflow.IsAmountOutOfRange(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Amount is out of the accepted range", "AMOUNT_OUT_OF_RANGE", nil)
		}
		if businessflow.IsPaymentMethodUnsupported(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Payment method is not supported", "PAYMENT_METHOD_UNSUPPORTED", nil)
		}
		if businessflow.IsExpiryOutOfRange(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Expiry minutes are out of the accepted range", "EXPIRY_OUT_OF_RANGE", nil)
		}
		if businessflow.IsGatewayRejected(err) {
			return h.ErrorResponse(c, fiber.StatusBadGateway, "The payment gateway rejected the order", "GATEWAY_REJECTED", nil)
		}
		if businessflow.IsGatewayUnavailable(err) {
			return h.ErrorResponse(c, fiber.StatusBadGateway, "The payment gateway is unavailable, retry later", "GATEWAY_UNAVAILABLE", nil)
		}

		log.Println("Payment order creation failed", err)
		// Handle generic business errors
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Payment order creation failed", "ORDER_CREATION_FAILED", nil)
	}

	// Successful order creation
	return h.SuccessResponse(c, fiber.StatusCreated, "Payment order created successfully", result)
}

// GetPaymentOrder handles payment order status retrieval
// @Summary Get Payment Order
// @Description Retrieve a payment order by its order number, with nested refunds and observed blockchain transactions for crypto orders
// @Tags Payments
// @Accept json
// @Produce json
// @Param orderNumber path string true "Order number"
// @Success 200 {object} dto.APIResponse{data=dto.PaymentOrderDTO} "Payment order retrieved successfully"
// @Failure 404 {object} dto.APIResponse "Order not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/payments/{orderNumber} [get]
func (h *PaymentOrderHandler) GetPaymentOrder(c fiber.Ctx) error {
	orderNumber := c.Params("orderNumber")
	if orderNumber == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Order number is required", "MISSING_ORDER_NUMBER", nil)
	}

	result, err := h.orderFlow.GetOrder(h.createRequestContext(c, "/api/v1/payments/:orderNumber"), orderNumber)
	if err != nil {
		if businessflow.IsOrderNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Payment order not found", "ORDER_NOT_FOUND", nil)
		}

		log.Println("Payment order retrieval failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to retrieve payment order", "ORDER_RETRIEVAL_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Payment order retrieved successfully", result)
}

// ListPaymentOrders handles the admin order listing
// @Summary List Payment Orders
// @Description Retrieve a paginated listing of payment orders with optional status, method, currency and review filters
// @Tags Admin
// @Accept json
// @Produce json
// @Param page query int false "Page number (default: 1)" minimum(1)
// @Param page_size query int false "Number of items per page (default: 20, max: 200)" minimum(1) maximum(200)
// @Param status query string false "Order status filter"
// @Param payment_method query string false "Payment method filter"
// @Param currency query string false "Currency filter"
// @Param review_required query bool false "Only orders flagged for manual review"
// @Success 200 {object} dto.APIResponse{data=dto.ListPaymentOrdersResponse} "Payment orders retrieved successfully"
// @Failure 400 {object} dto.APIResponse "Validation error or invalid request"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/admin/payments [get]
func (h *PaymentOrderHandler) ListPaymentOrders(c fiber.Ctx) error {
	// Parse query parameters
	page := 1
	if pageStr := c.Query("page"); pageStr != "" {
		if parsed, err := strconv.Atoi(pageStr); err == nil {
			page = parsed
		}
	}

	pageSize := 20
	if pageSizeStr := c.Query("page_size"); pageSizeStr != "" {
		if parsed, err := strconv.Atoi(pageSizeStr); err == nil {
			pageSize = parsed
		}
	}

	var reviewRequired *bool
	if reviewStr := c.Query("review_required"); reviewStr != "" {
		if parsed, err := strconv.ParseBool(reviewStr); err == nil {
			reviewRequired = &parsed
		}
	}

	// Build request
	req := &dto.ListPaymentOrdersRequest{
		Status:         c.Query("status"),
		PaymentMethod:  c.Query("payment_method"),
		Currency:       c.Query("currency"),
		ReviewRequired: reviewRequired,
		Page:           page,
		PageSize:       pageSize,
	}

	// Validate request
	if err := h.validator.Struct(req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	result, err := h.orderFlow.ListOrders(h.createRequestContext(c, "/api/v1/admin/payments"), req)
	if err != nil {
		if businessflow.IsInvalidPage(err) || businessflow.IsInvalidPageSize(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid pagination parameters", "INVALID_PAGINATION", nil)
		}

		log.Println("Payment order listing failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list payment orders", "ORDER_LISTING_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Payment orders retrieved successfully", result)
}

// CancelPaymentOrder handles the cancellation of a pending or processing order
// @Summary Cancel Payment Order
// @Description Cancel an order that has not reached a terminal state
// @Tags Payments
// @Accept json
// @Produce json
// @Param orderNumber path string true "Order number"
// @Param request body dto.CancelPaymentOrderRequest false "Cancellation reason"
// @Success 200 {object} dto.APIResponse{data=dto.PaymentOrderDTO} "Payment order cancelled successfully"
// @Failure 404 {object} dto.APIResponse "Order not found"
// @Failure 409 {object} dto.APIResponse "Order is not cancellable"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/payments/{orderNumber}/cancel [post]
func (h *PaymentOrderHandler) CancelPaymentOrder(c fiber.Ctx) error {
	orderNumber := c.Params("orderNumber")
	if orderNumber == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Order number is required", "MISSING_ORDER_NUMBER", nil)
	}

	// The body is optional; an empty body cancels with no recorded reason.
	var req dto.CancelPaymentOrderRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
		}
		if err := h.validator.Struct(&req); err != nil {
			var validationErrors []string
			for _, err := range err.(validator.ValidationErrors) {
				validationErrors = append(validationErrors, getValidationErrorMessage(err))
			}
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
		}
	}

	// Get client information
	ipAddress := c.IP()
	userAgent := c.Get("User-Agent")
	metadata := businessflow.NewClientMetadata(ipAddress, userAgent)

	result, err := h.orderFlow.CancelOrder(h.createRequestContext(c, "/api/v1/payments/:orderNumber/cancel"), orderNumber, req.Reason, metadata)
	if err != nil {
		if businessflow.IsOrderNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Payment order not found", "ORDER_NOT_FOUND", nil)
		}
		if businessflow.IsOrderNotCancellable(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Payment order can no longer be cancelled", "ORDER_NOT_CANCELLABLE", nil)
		}
		if businessflow.IsConcurrentModification(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Payment order was modified concurrently, retry", "CONCURRENT_MODIFICATION", nil)
		}

		log.Println("Payment order cancellation failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Payment order cancellation failed", "ORDER_CANCELLATION_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Payment order cancelled successfully", result)
}

// ClosePaymentOrder handles the administrative closing of a succeeded order
// @Summary Close Payment Order
// @Description Close a succeeded order after settlement reconciliation
// @Tags Payments
// @Accept json
// @Produce json
// @Param orderNumber path string true "Order number"
// @Success 200 {object} dto.APIResponse{data=dto.PaymentOrderDTO} "Payment order closed successfully"
// @Failure 404 {object} dto.APIResponse "Order not found"
// @Failure 409 {object} dto.APIResponse "Order cannot be closed from its current state"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/payments/{orderNumber}/close [post]
func (h *PaymentOrderHandler) ClosePaymentOrder(c fiber.Ctx) error {
	orderNumber := c.Params("orderNumber")
	if orderNumber == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Order number is required", "MISSING_ORDER_NUMBER", nil)
	}

	// Get client information
	ipAddress := c.IP()
	userAgent := c.Get("User-Agent")
	metadata := businessflow.NewClientMetadata(ipAddress, userAgent)

	result, err := h.orderFlow.CloseOrder(h.createRequestContext(c, "/api/v1/payments/:orderNumber/close"), orderNumber, metadata)
	if err != nil {
		if businessflow.IsOrderNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Payment order not found", "ORDER_NOT_FOUND", nil)
		}
		if businessflow.IsIllegalTransition(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Payment order cannot be closed from its current state", "ORDER_NOT_CLOSABLE", nil)
		}
		if businessflow.IsConcurrentModification(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Payment order was modified concurrently, retry", "CONCURRENT_MODIFICATION", nil)
		}

		log.Println("Payment order close failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Payment order close failed", "ORDER_CLOSE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Payment order closed successfully", result)
}

// createRequestContext creates a context with request-scoped values for observability and timeout
func (h *PaymentOrderHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

// createRequestContextWithTimeout creates a context with custom timeout and request-scoped values
func (h *PaymentOrderHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	// Create context with custom timeout
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	// Add request-scoped values for observability
	ctx = context.WithValue(ctx, businessflow.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, "user_agent", c.Get("User-Agent"))
	ctx = context.WithValue(ctx, "ip_address", c.IP())
	ctx = context.WithValue(ctx, "endpoint", endpoint)
	ctx = context.WithValue(ctx, "timeout", timeout)
	ctx = context.WithValue(ctx, "cancel_func", cancel) // Store cancel function for cleanup

	return ctx
}

// setupCustomValidations sets up custom validation rules
func (h *PaymentOrderHandler) setupCustomValidations() {
	// Add custom validation rules if needed
	// Example: h.validator.RegisterValidation("custom_rule", customValidationFunc)
}
