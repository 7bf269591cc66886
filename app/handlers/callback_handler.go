// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/AronSwan/onlinestore-sub023/app/dto"
	"github.com/AronSwan/onlinestore-sub023/app/middleware"
	businessflow "github.com/AronSwan/onlinestore-sub023/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// CallbackHandlerInterface defines the contract for gateway callback handlers
type CallbackHandlerInterface interface {
	HandleProviderCallback(c fiber.Ctx) error
}

// CallbackHandler handles inbound gateway notification HTTP requests
type CallbackHandler struct {
	callbackFlow businessflow.CallbackFlow
	validator    *validator.Validate
}

func (h *CallbackHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

// NewCallbackHandler creates a new callback handler
func NewCallbackHandler(callbackFlow businessflow.CallbackFlow) *CallbackHandler {
	return &CallbackHandler{
		callbackFlow: callbackFlow,
		validator:    validator.New(),
	}
}

// HandleProviderCallback handles an inbound payment notification from a gateway
// @Summary Handle Provider Callback
// @Description Verify, record and apply one gateway payment notification. The QR rail posts form-encoded fields and is acknowledged with the literal body "success"; the bank rail posts a flat JSON object and is acknowledged with {"received": true}. The acknowledgement is sent only after the event is durably recorded, so the provider stops retrying.
// @Tags Callbacks
// @Accept json
// @Produce json
// @Param provider path string true "Provider name (alipay or bankgate)"
// @Success 200 {string} string "Provider-specific acknowledgement body"
// @Failure 400 {object} dto.APIResponse "Malformed callback payload"
// @Failure 401 {object} dto.APIResponse "Signature verification failed"
// @Failure 404 {object} dto.APIResponse "Unknown provider or order"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/callbacks/{provider} [post]
func (h *CallbackHandler) HandleProviderCallback(c fiber.Ctx) error {
	provider := c.Params("provider")

	params, err := h.parseCallbackParams(c, provider)
	if err != nil {
		return h.rejectCallback(c, provider, fiber.StatusBadRequest, "Failed to parse callback payload", "CALLBACK_PARSE_ERROR", err.Error())
	}

	req := &dto.GatewayCallbackRequest{
		Provider:   provider,
		Params:     params,
		RawPayload: c.Body(),
	}

	if err := h.validator.Struct(req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.rejectCallback(c, provider, fiber.StatusNotFound, "Unknown callback provider", "UNKNOWN_PROVIDER", validationErrors)
	}

	// Get client information
	ipAddress := c.IP()
	userAgent := c.Get("User-Agent")
	metadata := businessflow.NewClientMetadata(ipAddress, userAgent)

	ack, err := h.callbackFlow.ProcessGatewayCallback(h.createRequestContext(c, "/api/v1/callbacks/:provider"), req, metadata)
	if err != nil {
		// Handle specific business errors
		if businessflow.IsSignatureRequired(err) || businessflow.IsNonceRequired(err) {
			return h.rejectCallback(c, provider, fiber.StatusUnauthorized, "Callback signature fields are missing", "SIGNATURE_MISSING", nil)
		}
		if businessflow.IsSignatureInvalid(err) {
			return h.rejectCallback(c, provider, fiber.StatusUnauthorized, "Callback signature verification failed", "SIGNATURE_INVALID", nil)
		}
		if businessflow.IsTimestampRequired(err) || businessflow.IsTimestampInvalid(err) {
			return h.rejectCallback(c, provider, fiber.StatusUnauthorized, "Callback timestamp is missing or malformed", "TIMESTAMP_INVALID", nil)
		}
		if businessflow.IsSignatureExpired(err) {
			return h.rejectCallback(c, provider, fiber.StatusUnauthorized, "Callback timestamp is outside the validity window", "SIGNATURE_EXPIRED", nil)
		}
		if businessflow.IsGatewayOrderIDRequired(err) {
			return h.rejectCallback(c, provider, fiber.StatusBadRequest, "Callback does not reference an order", "ORDER_REFERENCE_MISSING", nil)
		}
		if businessflow.IsOrderNotFound(err) {
			// Not acknowledged: the provider retries and the order may appear
			// once creation settles.
			return h.rejectCallback(c, provider, fiber.StatusNotFound, "Referenced payment order not found", "ORDER_NOT_FOUND", nil)
		}
		if businessflow.IsCallbackRequestNil(err) {
			return h.rejectCallback(c, provider, fiber.StatusBadRequest, "Callback payload is empty", "CALLBACK_EMPTY", nil)
		}

		log.Println("Callback processing failed", err)
		return h.rejectCallback(c, provider, fiber.StatusInternalServerError, "Callback processing failed", "CALLBACK_PROCESSING_FAILED", nil)
	}

	return h.ackCallback(c, provider, ack)
}

// parseCallbackParams extracts the flat key/value notification fields in the
// provider's wire format: form-encoded for the QR rail, a flat JSON object
// for the bank rail.
func (h *CallbackHandler) parseCallbackParams(c fiber.Ctx, provider string) (map[string]string, error) {
	if provider == businessflow.ProviderBankGate {
		params := map[string]string{}
		if err := json.Unmarshal(c.Body(), &params); err != nil {
			return nil, err
		}
		return params, nil
	}

	params := map[string]string{}
	c.Request().PostArgs().VisitAll(func(key, value []byte) {
		params[string(key)] = string(value)
	})
	return params, nil
}

// ackCallback sends the provider-specific acknowledgement body. It runs only
// after the event row is durably recorded, which is what stops the
// provider's retry loop.
func (h *CallbackHandler) ackCallback(c fiber.Ctx, provider string, ack *dto.CallbackAckDTO) error {
	disposition := "applied"
	if ack.Duplicate {
		disposition = "duplicate"
	}
	middleware.RecordCallback(provider, disposition)

	if provider == businessflow.ProviderBankGate {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"received":  true,
			"duplicate": ack.Duplicate,
		})
	}
	return c.Status(fiber.StatusOK).SendString("success")
}

// rejectCallback reports a processing failure in the provider's expected
// shape: the QR rail retries on any body other than "success", the bank rail
// inspects the JSON envelope.
func (h *CallbackHandler) rejectCallback(c fiber.Ctx, provider string, statusCode int, message, errorCode string, details any) error {
	middleware.RecordCallback(provider, "rejected")

	if provider == businessflow.ProviderBankGate {
		return h.ErrorResponse(c, statusCode, message, errorCode, details)
	}
	return c.Status(statusCode).SendString("failure")
}

// createRequestContext creates a context with request-scoped values for observability and timeout
func (h *CallbackHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
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
