// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/AronSwan/onlinestore-sub023/app/dto"
	businessflow "github.com/AronSwan/onlinestore-sub023/business_flow"
	"github.com/AronSwan/onlinestore-sub023/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// ReconciliationHandlerInterface defines the contract for reconciliation handlers
type ReconciliationHandlerInterface interface {
	ExportReconciliationReport(c fiber.Ctx) error
	ListReviewOrders(c fiber.Ctx) error
	ResolveReview(c fiber.Ctx) error
	ListFlaggedCallbacks(c fiber.Ctx) error
}

// ReconciliationHandler handles manual-review and reporting HTTP requests
type ReconciliationHandler struct {
	reconciliationFlow businessflow.ReconciliationFlow
	callbackFlow       businessflow.CallbackFlow
	validator          *validator.Validate
}

func (h *ReconciliationHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *ReconciliationHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// NewReconciliationHandler creates a new reconciliation handler
func NewReconciliationHandler(reconciliationFlow businessflow.ReconciliationFlow, callbackFlow businessflow.CallbackFlow) *ReconciliationHandler {
	return &ReconciliationHandler{
		reconciliationFlow: reconciliationFlow,
		callbackFlow:       callbackFlow,
		validator:          validator.New(),
	}
}

// parseDateRange reads the from/to query parameters. Dates accept either
// RFC3339 or plain YYYY-MM-DD; an empty range defaults to the last 24 hours.
func (h *ReconciliationHandler) parseDateRange(c fiber.Ctx) (time.Time, time.Time, error) {
	parse := func(raw string) (time.Time, error) {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return t, nil
		}
		return time.Parse("2006-01-02", raw)
	}

	to := utils.UTCNow()
	from := to.Add(-24 * time.Hour)

	if raw := c.Query("from"); raw != "" {
		t, err := parse(raw)
		if err != nil {
			return from, to, err
		}
		from = t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := parse(raw)
		if err != nil {
			return from, to, err
		}
		to = t
	}
	return from, to, nil
}

// ExportReconciliationReport handles the xlsx report download
// @Summary Export Reconciliation Report
// @Description Generate an xlsx workbook with the orders, refunds and flagged callback events of a date range for manual review
// @Tags Admin
// @Accept json
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param from query string false "Range start (RFC3339 or YYYY-MM-DD, default: 24h ago)"
// @Param to query string false "Range end (RFC3339 or YYYY-MM-DD, default: now)"
// @Success 200 {string} string "Excel file"
// @Failure 400 {object} dto.APIResponse "Invalid date range"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/admin/reconciliation/export [get]
func (h *ReconciliationHandler) ExportReconciliationReport(c fiber.Ctx) error {
	from, to, err := h.parseDateRange(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid date range", "INVALID_DATE_RANGE", err.Error())
	}

	filename, data, err := h.reconciliationFlow.ExportReconciliationReport(h.createRequestContext(c, "/api/v1/admin/reconciliation/export"), from, to)
	if err != nil {
		if businessflow.IsStartDateAfterEndDate(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Range start must precede range end", "INVALID_DATE_RANGE", nil)
		}

		log.Println("Reconciliation export failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to generate report", "EXPORT_FAILED", nil)
	}

	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", "attachment; filename="+filename)
	return c.Send(data)
}

// ListReviewOrders handles the listing of orders flagged for manual review
// @Summary List Review Orders
// @Description Retrieve a paginated listing of orders flagged for manual review by the callback reconciler
// @Tags Admin
// @Accept json
// @Produce json
// @Param page query int false "Page number (default: 1)" minimum(1)
// @Param page_size query int false "Number of items per page (default: 20, max: 200)" minimum(1) maximum(200)
// @Success 200 {object} dto.APIResponse{data=dto.ListPaymentOrdersResponse} "Review orders retrieved successfully"
// @Failure 400 {object} dto.APIResponse "Invalid pagination parameters"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/admin/reconciliation/review [get]
func (h *ReconciliationHandler) ListReviewOrders(c fiber.Ctx) error {
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

	result, err := h.reconciliationFlow.ListReviewOrders(h.createRequestContext(c, "/api/v1/admin/reconciliation/review"), page, pageSize)
	if err != nil {
		if businessflow.IsInvalidPage(err) || businessflow.IsInvalidPageSize(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid pagination parameters", "INVALID_PAGINATION", nil)
		}

		log.Println("Review order listing failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list review orders", "REVIEW_LISTING_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Review orders retrieved successfully", result)
}

// ResolveReviewRequest carries the operator's note closing a review
type ResolveReviewRequest struct {
	Note string `json:"note" validate:"required,max=1024"`
}

// ResolveReview handles the manual resolution of a flagged order
// @Summary Resolve Review
// @Description Clear the review flag on an order after manual reconciliation, recording the operator's note in the audit trail
// @Tags Admin
// @Accept json
// @Produce json
// @Param orderNumber path string true "Order number"
// @Param request body ResolveReviewRequest true "Resolution note"
// @Success 200 {object} dto.APIResponse{data=dto.PaymentOrderDTO} "Review resolved successfully"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 404 {object} dto.APIResponse "Order not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/admin/reconciliation/review/{orderNumber}/resolve [post]
func (h *ReconciliationHandler) ResolveReview(c fiber.Ctx) error {
	orderNumber := c.Params("orderNumber")
	if orderNumber == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Order number is required", "MISSING_ORDER_NUMBER", nil)
	}

	var req ResolveReviewRequest
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

	// Get client information
	ipAddress := c.IP()
	userAgent := c.Get("User-Agent")
	metadata := businessflow.NewClientMetadata(ipAddress, userAgent)

	result, err := h.reconciliationFlow.ResolveReview(h.createRequestContext(c, "/api/v1/admin/reconciliation/review/:orderNumber/resolve"), orderNumber, req.Note, metadata)
	if err != nil {
		if businessflow.IsOrderNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Payment order not found", "ORDER_NOT_FOUND", nil)
		}

		log.Println("Review resolution failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Review resolution failed", "REVIEW_RESOLUTION_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Review resolved successfully", result)
}

// ListFlaggedCallbacks handles the listing of callback events flagged for review
// @Summary List Flagged Callbacks
// @Description Retrieve the callback events of a date range whose amounts did not match their orders
// @Tags Admin
// @Accept json
// @Produce json
// @Param from query string false "Range start (RFC3339 or YYYY-MM-DD, default: 24h ago)"
// @Param to query string false "Range end (RFC3339 or YYYY-MM-DD, default: now)"
// @Success 200 {object} dto.APIResponse{data=[]dto.CallbackEventDTO} "Flagged callbacks retrieved successfully"
// @Failure 400 {object} dto.APIResponse "Invalid date range"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/admin/callbacks/flagged [get]
func (h *ReconciliationHandler) ListFlaggedCallbacks(c fiber.Ctx) error {
	from, to, err := h.parseDateRange(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid date range", "INVALID_DATE_RANGE", err.Error())
	}

	result, err := h.callbackFlow.ListFlaggedEvents(h.createRequestContext(c, "/api/v1/admin/callbacks/flagged"), from, to)
	if err != nil {
		if businessflow.IsStartDateAfterEndDate(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Range start must precede range end", "INVALID_DATE_RANGE", nil)
		}

		log.Println("Flagged callback listing failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list flagged callbacks", "FLAGGED_LISTING_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Flagged callbacks retrieved successfully", result)
}

// createRequestContext creates a context with request-scoped values for observability and timeout
func (h *ReconciliationHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
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
