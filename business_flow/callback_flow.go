package businessflow

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/AronSwan/onlinestore-sub023/app/dto"
	"github.com/AronSwan/onlinestore-sub023/app/services"
	"github.com/AronSwan/onlinestore-sub023/models"
	"github.com/AronSwan/onlinestore-sub023/repository"
	"github.com/AronSwan/onlinestore-sub023/utils"
	"github.com/shopspring/decimal"
)

// Provider names as they appear in callback URLs and verifier registrations
const (
	ProviderAlipay   = "alipay"
	ProviderBankGate = "bankgate"
)

// CallbackFlow consumes inbound provider notifications. Verification happens
// at the boundary; the unique dedupe-key insert is the sole idempotency
// guard; order transitions go through the payment order flow. An event's
// AppliedAt is set only after its transition commits, so a crash in between
// is recovered by reprocessing the still-pending event.
type CallbackFlow interface {
	ProcessGatewayCallback(ctx context.Context, req *dto.GatewayCallbackRequest, metadata *ClientMetadata) (*dto.CallbackAckDTO, error)
	RecoverUnappliedEvents(ctx context.Context, olderThan time.Duration, batchSize int) (int, error)
	ListFlaggedEvents(ctx context.Context, from, to time.Time) ([]dto.CallbackEventDTO, error)
}

// CallbackFlowImpl implements the callback reconciliation flow
type CallbackFlowImpl struct {
	eventRepo repository.CallbackEventRepository
	orderRepo repository.PaymentOrderRepository
	auditRepo repository.AuditLogRepository
	orderFlow PaymentOrderFlow
	verifiers map[string]services.SignatureService
}

// NewCallbackFlow creates a new callback flow instance
func NewCallbackFlow(
	eventRepo repository.CallbackEventRepository,
	orderRepo repository.PaymentOrderRepository,
	auditRepo repository.AuditLogRepository,
	orderFlow PaymentOrderFlow,
	verifiers map[string]services.SignatureService,
) CallbackFlow {
	return &CallbackFlowImpl{
		eventRepo: eventRepo,
		orderRepo: orderRepo,
		auditRepo: auditRepo,
		orderFlow: orderFlow,
		verifiers: verifiers,
	}
}

// callbackFields is the provider-normalized view of one notification
type callbackFields struct {
	notifyID       string
	gatewayOrderID string
	orderNumber    string
	status         string
	amount         decimal.Decimal
	paidAt         *time.Time
	failureReason  string
}

// ProcessGatewayCallback verifies, records and applies one notification.
// Redeliveries of a settled event answer with the recorded outcome without
// reapplying; redeliveries of a pending event resume it.
func (f *CallbackFlowImpl) ProcessGatewayCallback(ctx context.Context, req *dto.GatewayCallbackRequest, metadata *ClientMetadata) (*dto.CallbackAckDTO, error) {
	if req == nil || len(req.Params) == 0 {
		return nil, ErrCallbackRequestNil
	}

	verifier, ok := f.verifiers[req.Provider]
	if !ok {
		return nil, NewBusinessErrorf("UNKNOWN_PROVIDER", "no verifier registered for provider %s", ErrSignatureInvalid, req.Provider)
	}
	if err := verifier.Verify(req.Params); err != nil {
		mapped := mapSignatureError(err)
		_ = createCallbackAuditLog(ctx, f.auditRepo, nil, nil, models.AuditActionCallbackSignatureRejected,
			fmt.Sprintf("Rejected %s callback: %s", req.Provider, err.Error()),
			false, utils.ToPtr(mapped.Error()), metadata)
		return nil, mapped
	}

	fields, err := parseCallbackFields(req.Provider, req.Params)
	if err != nil {
		return nil, err
	}
	if fields.gatewayOrderID == "" && fields.orderNumber == "" {
		return nil, ErrGatewayOrderIDRequired
	}

	raw := req.RawPayload
	if len(raw) == 0 {
		raw, err = json.Marshal(req.Params)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize callback params: %w", err)
		}
	}
	digest := sha256.Sum256(raw)
	digestHex := hex.EncodeToString(digest[:])

	dedupeKey := req.Provider + ":" + fields.notifyID
	if fields.notifyID == "" {
		dedupeKey = req.Provider + ":" + digestHex
	}

	eventType := req.EventType
	if eventType == "" {
		eventType = defaultEventType(req.Provider)
	}

	event := &models.CallbackEvent{
		DedupeKey:      dedupeKey,
		Provider:       req.Provider,
		EventType:      eventType,
		GatewayOrderID: fields.gatewayOrderID,
		RawPayload:     raw,
		PayloadDigest:  digestHex,
		Amount:         fields.amount,
		VerifiedAt:     utils.UTCNow(),
	}

	inserted, existing, err := f.eventRepo.InsertIfAbsent(ctx, event)
	if err != nil {
		return nil, fmt.Errorf("failed to record callback event: %w", err)
	}
	if !inserted {
		if existing.IsSettled() {
			return ackFromEvent(existing, true), nil
		}
		// A previous delivery recorded the event but crashed before applying
		// it; this delivery finishes the job.
		event = existing
	}

	return f.applyEvent(ctx, event, fields, metadata)
}

// applyEvent resolves the owning order, validates the amount and requests the
// transition. The event is settled in every branch except transient failures,
// which leave it pending for redelivery or the recovery sweep.
func (f *CallbackFlowImpl) applyEvent(ctx context.Context, event *models.CallbackEvent, fields callbackFields, metadata *ClientMetadata) (*dto.CallbackAckDTO, error) {
	order, err := f.resolveOrder(ctx, event.GatewayOrderID, fields.orderNumber)
	if err != nil {
		return nil, err
	}
	if order == nil {
		if err := f.settleEvent(ctx, event, nil, models.CallbackOutcomeOrderNotFound, "no order matched the provider reference"); err != nil {
			return nil, err
		}
		_ = createCallbackAuditLog(ctx, f.auditRepo, nil, event, models.AuditActionCallbackOrderNotFound,
			fmt.Sprintf("Callback %s referenced unknown order %s", event.DedupeKey, event.GatewayOrderID),
			false, utils.ToPtr("order not found"), metadata)
		return &dto.CallbackAckDTO{Outcome: string(models.CallbackOutcomeOrderNotFound)}, nil
	}

	if fields.status == services.GatewayStatusPaid && !fields.amount.Equal(order.Amount) {
		reason := fmt.Sprintf("notified amount %s disagrees with order amount %s", fields.amount.StringFixed(2), order.Amount.StringFixed(2))
		if err := f.settleEvent(ctx, event, &order.ID, models.CallbackOutcomeAmountMismatch, reason); err != nil {
			return nil, err
		}
		if err := f.orderFlow.FlagForReview(ctx, order.ID, reason); err != nil {
			return nil, err
		}
		return &dto.CallbackAckDTO{
			Outcome:     string(models.CallbackOutcomeAmountMismatch),
			OrderNumber: order.OrderNumber,
			OrderStatus: string(order.Status),
		}, nil
	}

	var orderEvent models.PaymentOrderEvent
	var cause string
	updates := map[string]any{}

	switch fields.status {
	case services.GatewayStatusPaid:
		orderEvent = models.OrderEventPaidInFull
		paidAt := fields.paidAt
		if paidAt == nil {
			paidAt = utils.UTCNowPtr()
		}
		updates["paid_amount"] = fields.amount
		updates["paid_at"] = *paidAt
	case services.GatewayStatusFailed:
		orderEvent = models.OrderEventPaymentFailed
		cause = fields.failureReason
		if cause == "" {
			cause = "provider reported failure"
		}
	default:
		// Informational state sync, nothing to transition
		if err := f.settleEvent(ctx, event, &order.ID, models.CallbackOutcomeApplied, ""); err != nil {
			return nil, err
		}
		return &dto.CallbackAckDTO{
			Outcome:     string(models.CallbackOutcomeApplied),
			OrderNumber: order.OrderNumber,
			OrderStatus: string(order.Status),
		}, nil
	}

	statusBefore := order.Status
	updated, err := f.orderFlow.Transition(ctx, order.ID, orderEvent, 0, cause, updates)
	if err != nil {
		if IsIllegalTransition(err) {
			if serr := f.settleEvent(ctx, event, &order.ID, models.CallbackOutcomeIgnoredIllegal, err.Error()); serr != nil {
				return nil, serr
			}
			_ = createCallbackAuditLog(ctx, f.auditRepo, &order.ID, event, models.AuditActionCallbackIllegalTransition,
				fmt.Sprintf("Callback %s could not apply %s to order %s in %s", event.DedupeKey, orderEvent, order.OrderNumber, order.Status),
				false, utils.ToPtr(err.Error()), metadata)
			return &dto.CallbackAckDTO{
				Outcome:     string(models.CallbackOutcomeIgnoredIllegal),
				OrderNumber: order.OrderNumber,
				OrderStatus: string(order.Status),
			}, nil
		}
		return nil, err
	}

	outcome := models.CallbackOutcomeApplied
	if updated.Status == statusBefore && statusBefore.IsTerminal() {
		outcome = models.CallbackOutcomeIgnoredTerminal
	}
	if err := f.settleEvent(ctx, event, &order.ID, outcome, ""); err != nil {
		return nil, err
	}

	_ = createCallbackAuditLog(ctx, f.auditRepo, &order.ID, event, models.AuditActionCallbackApplied,
		fmt.Sprintf("Callback %s settled order %s as %s", event.DedupeKey, updated.OrderNumber, updated.Status),
		true, nil, metadata)

	return &dto.CallbackAckDTO{
		Outcome:     string(outcome),
		OrderNumber: updated.OrderNumber,
		OrderStatus: string(updated.Status),
	}, nil
}

// RecoverUnappliedEvents reprocesses events stuck pending longer than
// olderThan, finishing deliveries that crashed between insert and apply.
func (f *CallbackFlowImpl) RecoverUnappliedEvents(ctx context.Context, olderThan time.Duration, batchSize int) (int, error) {
	events, err := f.eventRepo.ListUnapplied(ctx, utils.UTCNow().Add(-olderThan), batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list unapplied events: %w", err)
	}

	recovered := 0
	for _, event := range events {
		var params map[string]string
		if err := json.Unmarshal(event.RawPayload, &params); err != nil {
			if serr := f.settleEvent(ctx, event, event.PaymentOrderID, models.CallbackOutcomeIgnoredIllegal, "stored payload unparseable"); serr != nil {
				return recovered, serr
			}
			continue
		}
		fields, err := parseCallbackFields(event.Provider, params)
		if err != nil {
			if serr := f.settleEvent(ctx, event, event.PaymentOrderID, models.CallbackOutcomeIgnoredIllegal, err.Error()); serr != nil {
				return recovered, serr
			}
			continue
		}
		if _, err := f.applyEvent(ctx, event, fields, nil); err != nil {
			continue
		}
		recovered++
	}
	return recovered, nil
}

// ListFlaggedEvents returns the manual-review queue for a window
func (f *CallbackFlowImpl) ListFlaggedEvents(ctx context.Context, from, to time.Time) ([]dto.CallbackEventDTO, error) {
	events, err := f.eventRepo.ListFlagged(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list flagged events: %w", err)
	}
	out := make([]dto.CallbackEventDTO, 0, len(events))
	for _, e := range events {
		out = append(out, ToCallbackEventDTO(*e))
	}
	return out, nil
}

func (f *CallbackFlowImpl) resolveOrder(ctx context.Context, gatewayOrderID, orderNumber string) (*models.PaymentOrder, error) {
	if gatewayOrderID != "" {
		order, err := f.orderRepo.ByGatewayOrderID(ctx, gatewayOrderID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve order by gateway reference: %w", err)
		}
		if order != nil {
			return order, nil
		}
	}
	if orderNumber != "" {
		order, err := f.orderRepo.ByOrderNumber(ctx, orderNumber)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve order by order number: %w", err)
		}
		return order, nil
	}
	return nil, nil
}

func (f *CallbackFlowImpl) settleEvent(ctx context.Context, event *models.CallbackEvent, orderID *uint, outcome models.CallbackOutcome, reason string) error {
	var appliedAt *time.Time
	if outcome == models.CallbackOutcomeApplied {
		appliedAt = utils.UTCNowPtr()
	}
	if err := f.eventRepo.MarkApplied(ctx, event.ID, orderID, outcome, reason, appliedAt); err != nil {
		return fmt.Errorf("failed to settle callback event: %w", err)
	}
	return nil
}

func mapSignatureError(err error) error {
	switch {
	case errors.Is(err, services.ErrSignatureMissing):
		return ErrSignatureRequired
	case errors.Is(err, services.ErrNonceMissing):
		return ErrNonceRequired
	case errors.Is(err, services.ErrSignatureTimestamp):
		return ErrTimestampInvalid
	case errors.Is(err, services.ErrSignatureStale):
		return ErrSignatureExpired
	default:
		return ErrSignatureInvalid
	}
}

func ackFromEvent(event *models.CallbackEvent, duplicate bool) *dto.CallbackAckDTO {
	return &dto.CallbackAckDTO{
		Outcome:   string(event.Outcome),
		Duplicate: duplicate,
	}
}

func defaultEventType(provider string) string {
	switch provider {
	case ProviderAlipay:
		return "trade_status_sync"
	case ProviderBankGate:
		return "debit_status_sync"
	default:
		return "status_sync"
	}
}

// parseCallbackFields normalizes provider-specific parameter names
func parseCallbackFields(provider string, params map[string]string) (callbackFields, error) {
	var fields callbackFields

	switch provider {
	case ProviderAlipay:
		fields.notifyID = params["notify_id"]
		fields.gatewayOrderID = params["trade_no"]
		fields.orderNumber = params["out_trade_no"]
		fields.failureReason = params["close_reason"]
		switch params["trade_status"] {
		case "SUCCESS":
			fields.status = services.GatewayStatusPaid
		case "CLOSED":
			fields.status = services.GatewayStatusFailed
		default:
			fields.status = services.GatewayStatusPending
		}
		if raw := params["paid_amount"]; raw != "" {
			amount, err := decimal.NewFromString(raw)
			if err != nil {
				return fields, NewBusinessErrorf("INVALID_CALLBACK_AMOUNT", "unparseable paid_amount %q", ErrAmountMismatch, raw)
			}
			fields.amount = amount
		}
		if raw := params["paid_at"]; raw != "" {
			if t, err := time.Parse(time.RFC3339, raw); err == nil {
				fields.paidAt = &t
			}
		}
	case ProviderBankGate:
		fields.notifyID = params["notify_id"]
		fields.gatewayOrderID = params["debit_id"]
		fields.orderNumber = params["out_trade_no"]
		fields.failureReason = params["failure_reason"]
		switch params["state"] {
		case "settled":
			fields.status = services.GatewayStatusPaid
		case "failed":
			fields.status = services.GatewayStatusFailed
		default:
			fields.status = services.GatewayStatusPending
		}
		if raw := params["amount"]; raw != "" {
			amount, err := decimal.NewFromString(raw)
			if err != nil {
				return fields, NewBusinessErrorf("INVALID_CALLBACK_AMOUNT", "unparseable amount %q", ErrAmountMismatch, raw)
			}
			fields.amount = amount
		}
		if raw := params["settled_at"]; raw != "" {
			if t, err := time.Parse(time.RFC3339, raw); err == nil {
				fields.paidAt = &t
			}
		}
	default:
		return fields, NewBusinessErrorf("UNKNOWN_PROVIDER", "no parser for provider %s", ErrSignatureInvalid, provider)
	}

	return fields, nil
}
