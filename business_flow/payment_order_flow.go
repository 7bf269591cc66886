package businessflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/AronSwan/onlinestore-sub023/app/dto"
	"github.com/AronSwan/onlinestore-sub023/app/services"
	"github.com/AronSwan/onlinestore-sub023/config"
	"github.com/AronSwan/onlinestore-sub023/models"
	"github.com/AronSwan/onlinestore-sub023/repository"
	"github.com/AronSwan/onlinestore-sub023/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PaymentOrderFlow owns the order state machine. Every status or paidAmount
// write in the system goes through Transition; the callback, refund and
// confirmation flows request transitions here instead of writing orders
// themselves.
type PaymentOrderFlow interface {
	CreateOrder(ctx context.Context, req *dto.CreatePaymentOrderRequest, metadata *ClientMetadata) (*dto.PaymentOrderDTO, error)
	GetOrder(ctx context.Context, orderNumber string) (*dto.PaymentOrderDTO, error)
	GetOrderByMerchantOrderID(ctx context.Context, merchantOrderID string) (*dto.PaymentOrderDTO, error)
	ListOrders(ctx context.Context, req *dto.ListPaymentOrdersRequest) (*dto.ListPaymentOrdersResponse, error)
	CancelOrder(ctx context.Context, orderNumber, reason string, metadata *ClientMetadata) (*dto.PaymentOrderDTO, error)
	CloseOrder(ctx context.Context, orderNumber string, metadata *ClientMetadata) (*dto.PaymentOrderDTO, error)
	Transition(ctx context.Context, orderID uint, event models.PaymentOrderEvent, expectedVersion int, cause string, updates map[string]any) (*models.PaymentOrder, error)
	FlagForReview(ctx context.Context, orderID uint, note string) error
	ExpireStaleOrders(ctx context.Context, batchSize int) (int, error)
	PollProcessingOrders(ctx context.Context, olderThan time.Duration, batchSize int) (int, error)
}

// PaymentOrderFlowImpl implements the payment order business flow
type PaymentOrderFlowImpl struct {
	orderRepo        repository.PaymentOrderRepository
	refundRepo       repository.RefundRecordRepository
	confirmationRepo repository.ConfirmationRecordRepository
	auditRepo        repository.AuditLogRepository
	gateways         map[models.PaymentMethod]services.GatewayAdapter
	notifier         services.MerchantNotifier
	db               *gorm.DB

	paymentCfg config.PaymentConfig
}

// NewPaymentOrderFlow creates a new payment order flow instance
func NewPaymentOrderFlow(
	orderRepo repository.PaymentOrderRepository,
	refundRepo repository.RefundRecordRepository,
	confirmationRepo repository.ConfirmationRecordRepository,
	auditRepo repository.AuditLogRepository,
	gateways map[models.PaymentMethod]services.GatewayAdapter,
	notifier services.MerchantNotifier,
	db *gorm.DB,
	paymentCfg config.PaymentConfig,
) PaymentOrderFlow {
	return &PaymentOrderFlowImpl{
		orderRepo:        orderRepo,
		refundRepo:       refundRepo,
		confirmationRepo: confirmationRepo,
		auditRepo:        auditRepo,
		gateways:         gateways,
		notifier:         notifier,
		db:               db,
		paymentCfg:       paymentCfg,
	}
}

var maxOrderAmount = decimal.RequireFromString(utils.MaxPaymentAmount)

// CreateOrder validates the request, persists a PENDING order, then hands it
// to the rail adapter. A definitive provider rejection fails the order; a
// transport failure after retries leaves it PENDING for the expiry sweep.
func (f *PaymentOrderFlowImpl) CreateOrder(ctx context.Context, req *dto.CreatePaymentOrderRequest, metadata *ClientMetadata) (*dto.PaymentOrderDTO, error) {
	if req == nil {
		return nil, NewBusinessError("INVALID_REQUEST", "request is required", nil)
	}
	if req.MerchantOrderID == "" {
		return nil, ErrMerchantOrderIDRequired
	}
	if req.Subject == "" {
		return nil, ErrSubjectRequired
	}
	if req.Currency == "" {
		return nil, ErrCurrencyRequired
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return nil, NewBusinessErrorf("INVALID_AMOUNT", "invalid amount %q", ErrAmountOutOfRange, req.Amount)
	}
	if !amount.IsPositive() || amount.GreaterThan(maxOrderAmount) {
		return nil, ErrAmountOutOfRange
	}

	method := models.PaymentMethod(req.PaymentMethod)
	adapter, ok := f.gateways[method]
	if !ok {
		return nil, ErrPaymentMethodUnsupported
	}

	expiryMinutes := req.ExpiryMinutes
	if expiryMinutes == 0 {
		expiryMinutes = f.paymentCfg.DefaultExpiryMinutes
	}
	if expiryMinutes < 0 || expiryMinutes > f.paymentCfg.MaxExpiryMinutes {
		return nil, ErrExpiryOutOfRange
	}

	metadataJSON := json.RawMessage("{}")
	if len(req.Metadata) > 0 {
		raw, err := json.Marshal(req.Metadata)
		if err != nil {
			return nil, NewBusinessError("INVALID_METADATA", "metadata is not serializable", err)
		}
		metadataJSON = raw
	}

	order := &models.PaymentOrder{
		OrderNumber:     fmt.Sprintf("PO-%s-%d", uuid.New().String(), time.Now().Unix()),
		MerchantOrderID: req.MerchantOrderID,
		Amount:          amount,
		Currency:        req.Currency,
		PaymentMethod:   method,
		Subject:         req.Subject,
		Description:     req.Description,
		NotifyURL:       req.NotifyURL,
		ReturnURL:       req.ReturnURL,
		Status:          models.PaymentOrderStatusPending,
		Version:         1,
		Metadata:        datatypes.JSON(metadataJSON),
		ExpiresAt:       utils.UTCNowAddPtr(time.Duration(expiryMinutes) * time.Minute),
	}

	err = repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		existing, err := f.orderRepo.ByMerchantOrderID(txCtx, req.MerchantOrderID)
		if err != nil {
			return fmt.Errorf("failed to check merchant order id: %w", err)
		}
		if existing != nil {
			return ErrDuplicateOrder
		}
		if err := f.orderRepo.Save(txCtx, order); err != nil {
			if repository.IsUniqueViolation(err) {
				return ErrDuplicateOrder
			}
			return fmt.Errorf("failed to persist order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	_ = createAuditLog(ctx, f.auditRepo, order, models.AuditActionOrderCreated,
		fmt.Sprintf("Order %s created for merchant order %s", order.OrderNumber, order.MerchantOrderID),
		true, nil, metadata)

	result, gwErr := adapter.CreatePayment(ctx, order)
	if gwErr != nil {
		if errors.Is(gwErr, services.ErrGatewayRejected) {
			if _, terr := f.Transition(ctx, order.ID, models.OrderEventGatewayRejected, order.Version, gwErr.Error(), nil); terr != nil {
				return nil, terr
			}
			return nil, NewBusinessError("GATEWAY_REJECTED", gwErr.Error(), ErrGatewayRejected)
		}
		// Transport failure: the order stays PENDING and the expiry sweep is
		// the backstop. The caller may re-poll the status.
		_ = createAuditLog(ctx, f.auditRepo, order, models.AuditActionOrderGatewayRejected,
			fmt.Sprintf("Gateway unreachable for order %s", order.OrderNumber),
			false, utils.ToPtr(gwErr.Error()), metadata)
		return nil, NewBusinessError("GATEWAY_UNAVAILABLE", "payment gateway is unavailable", ErrGatewayUnavailable)
	}

	updates := map[string]any{}
	if result.GatewayOrderID != "" {
		updates["gateway_order_id"] = result.GatewayOrderID
	}
	if result.PaymentURL != "" {
		updates["payment_url"] = result.PaymentURL
	}
	if result.QRPayload != "" {
		updates["qr_payload"] = result.QRPayload
	}
	if result.DepositAddress != "" {
		updates["deposit_address"] = result.DepositAddress
	}
	if result.Network != "" {
		updates["network"] = result.Network
	}
	if result.ExpiresAt != nil {
		updates["expires_at"] = *result.ExpiresAt
	}

	accepted, err := f.Transition(ctx, order.ID, models.OrderEventGatewayAccepted, order.Version, "", updates)
	if err != nil {
		return nil, err
	}

	d := ToPaymentOrderDTO(*accepted)
	return &d, nil
}

// GetOrder returns the order with its refunds, and for crypto orders the
// observed on-chain transactions.
func (f *PaymentOrderFlowImpl) GetOrder(ctx context.Context, orderNumber string) (*dto.PaymentOrderDTO, error) {
	order, err := getOrderByNumber(ctx, f.orderRepo, orderNumber)
	if err != nil {
		return nil, err
	}
	return f.assembleOrderView(ctx, order)
}

// GetOrderByMerchantOrderID resolves an order by the caller-supplied id
func (f *PaymentOrderFlowImpl) GetOrderByMerchantOrderID(ctx context.Context, merchantOrderID string) (*dto.PaymentOrderDTO, error) {
	order, err := f.orderRepo.ByMerchantOrderID(ctx, merchantOrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return f.assembleOrderView(ctx, order)
}

func (f *PaymentOrderFlowImpl) assembleOrderView(ctx context.Context, order *models.PaymentOrder) (*dto.PaymentOrderDTO, error) {
	d := ToPaymentOrderDTO(*order)

	refunds, err := f.refundRepo.ListByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list refunds: %w", err)
	}
	for _, r := range refunds {
		d.Refunds = append(d.Refunds, ToRefundRecordDTO(*r))
	}

	if order.PaymentMethod.IsCrypto() {
		confirmations, err := f.confirmationRepo.ListByOrder(ctx, order.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list confirmations: %w", err)
		}
		for _, c := range confirmations {
			d.Blockchain = append(d.Blockchain, ToBlockchainInfoDTO(*c))
		}
	}

	return &d, nil
}

// ListOrders returns a filtered page of orders for the back office
func (f *PaymentOrderFlowImpl) ListOrders(ctx context.Context, req *dto.ListPaymentOrdersRequest) (*dto.ListPaymentOrdersResponse, error) {
	if req == nil {
		req = &dto.ListPaymentOrdersRequest{}
	}
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = 20
	}

	filter := models.PaymentOrderFilter{ReviewRequired: req.ReviewRequired}
	if req.Status != "" {
		filter.Status = utils.ToPtr(models.PaymentOrderStatus(req.Status))
	}
	if req.PaymentMethod != "" {
		filter.PaymentMethod = utils.ToPtr(models.PaymentMethod(req.PaymentMethod))
	}
	if req.Currency != "" {
		filter.Currency = &req.Currency
	}

	total, err := f.orderRepo.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}
	orders, err := f.orderRepo.ByFilter(ctx, filter, "created_at DESC", pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	resp := &dto.ListPaymentOrdersResponse{
		Orders:   make([]dto.PaymentOrderDTO, 0, len(orders)),
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}
	for _, o := range orders {
		resp.Orders = append(resp.Orders, ToPaymentOrderDTO(*o))
	}
	return resp, nil
}

// CancelOrder cancels an order that has not reached a terminal state.
// Cancelling an already cancelled order is an acknowledged no-op; cancelling
// any other terminal order is rejected.
func (f *PaymentOrderFlowImpl) CancelOrder(ctx context.Context, orderNumber, reason string, metadata *ClientMetadata) (*dto.PaymentOrderDTO, error) {
	order, err := getOrderByNumber(ctx, f.orderRepo, orderNumber)
	if err != nil {
		return nil, err
	}
	if order.Status.IsTerminal() && order.Status != models.PaymentOrderStatusCancelled {
		return nil, NewBusinessErrorf("ORDER_NOT_CANCELLABLE", "order %s is %s", ErrOrderNotCancellable, orderNumber, order.Status)
	}

	if reason == "" {
		reason = "cancelled by merchant"
	}
	cancelled, err := f.Transition(ctx, order.ID, models.OrderEventCancelled, 0, reason, nil)
	if err != nil {
		return nil, err
	}

	d := ToPaymentOrderDTO(*cancelled)
	return &d, nil
}

// CloseOrder archives a settled order. Closing an already closed order is an
// acknowledged no-op.
func (f *PaymentOrderFlowImpl) CloseOrder(ctx context.Context, orderNumber string, metadata *ClientMetadata) (*dto.PaymentOrderDTO, error) {
	order, err := getOrderByNumber(ctx, f.orderRepo, orderNumber)
	if err != nil {
		return nil, err
	}
	if order.Status.IsTerminal() &&
		order.Status != models.PaymentOrderStatusSucceeded &&
		order.Status != models.PaymentOrderStatusClosed {
		return nil, NewBusinessErrorf("ILLEGAL_TRANSITION", "order %s is %s, only succeeded orders close", ErrIllegalTransition, orderNumber, order.Status)
	}

	closed, err := f.Transition(ctx, order.ID, models.OrderEventClosed, 0, "", nil)
	if err != nil {
		return nil, err
	}

	d := ToPaymentOrderDTO(*closed)
	return &d, nil
}

// Transition applies one state-machine event to an order under optimistic
// concurrency. The legal-transition table decides the target status; events
// arriving at a terminal state are acknowledged no-ops so redelivered
// notifications stay harmless. expectedVersion 0 means "whatever version the
// transaction reads"; a positive value also rejects writes against a stale
// read. On a committed terminal transition the merchant is notified
// fire-and-forget.
func (f *PaymentOrderFlowImpl) Transition(ctx context.Context, orderID uint, event models.PaymentOrderEvent, expectedVersion int, cause string, updates map[string]any) (*models.PaymentOrder, error) {
	var out *models.PaymentOrder
	var changed bool

	err := repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		order, err := getOrderByID(txCtx, f.orderRepo, orderID)
		if err != nil {
			return err
		}

		next, ok, terr := order.CanTransitionTo(event)
		if terr != nil {
			return NewBusinessErrorf("ILLEGAL_TRANSITION", "order %s: %s + %s", ErrIllegalTransition, order.OrderNumber, order.Status, event)
		}
		if !ok {
			out = order
			return nil
		}
		if expectedVersion > 0 && order.Version != expectedVersion {
			return ErrConcurrentModification
		}

		merged := map[string]any{"status": next}
		for k, v := range updates {
			merged[k] = v
		}
		if cause != "" {
			merged["failure_reason"] = cause
		}

		if err := f.orderRepo.UpdateWithVersion(txCtx, order, order.Version, merged); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				return ErrConcurrentModification
			}
			return fmt.Errorf("failed to transition order: %w", err)
		}

		reloaded, err := getOrderByID(txCtx, f.orderRepo, orderID)
		if err != nil {
			return err
		}
		out = reloaded
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		_ = createAuditLog(ctx, f.auditRepo, out, auditActionForEvent(event),
			fmt.Sprintf("Order %s transitioned to %s on %s", out.OrderNumber, out.Status, event),
			true, nil, nil)

		if shouldNotifyMerchant(out) {
			notified := *out
			go func() {
				nctx, cancel := context.WithTimeout(context.Background(), utils.GatewayRequestTimeout)
				defer cancel()
				_ = f.notifier.NotifyOrderState(nctx, &notified)
			}()
		}
	}

	return out, nil
}

// ExpireStaleOrders moves every PENDING order past its deadline to EXPIRED.
// Orders racing a concurrent transition are skipped; the next sweep retries
// whichever of them stayed PENDING.
func (f *PaymentOrderFlowImpl) ExpireStaleOrders(ctx context.Context, batchSize int) (int, error) {
	stale, err := f.orderRepo.GetExpiredOrders(ctx, utils.UTCNow(), batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list expired orders: %w", err)
	}

	expired := 0
	for _, order := range stale {
		if _, err := f.Transition(ctx, order.ID, models.OrderEventExpired, order.Version, "payment window elapsed", nil); err != nil {
			if errors.Is(err, ErrConcurrentModification) || IsIllegalTransition(err) {
				continue
			}
			return expired, err
		}
		expired++
	}
	return expired, nil
}

// PollProcessingOrders reconciles PROCESSING orders that have gone quiet by
// querying the provider directly. It covers callbacks the provider never
// delivered.
func (f *PaymentOrderFlowImpl) PollProcessingOrders(ctx context.Context, olderThan time.Duration, batchSize int) (int, error) {
	stale, err := f.orderRepo.GetStaleProcessing(ctx, utils.UTCNow().Add(-olderThan), batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list stale processing orders: %w", err)
	}

	reconciled := 0
	for _, order := range stale {
		adapter, ok := f.gateways[order.PaymentMethod]
		if !ok {
			continue
		}

		result, err := adapter.QueryPayment(ctx, order)
		if err != nil {
			continue
		}

		switch result.Status {
		case services.GatewayStatusPaid:
			if !result.PaidAmount.Equal(order.Amount) {
				note := fmt.Sprintf("provider reported %s paid against order amount %s", result.PaidAmount.StringFixed(2), order.Amount.StringFixed(2))
				if err := f.FlagForReview(ctx, order.ID, note); err != nil {
					return reconciled, err
				}
				continue
			}
			paidAt := result.PaidAt
			if paidAt == nil {
				paidAt = utils.UTCNowPtr()
			}
			updates := map[string]any{"paid_amount": result.PaidAmount, "paid_at": *paidAt}
			if _, err := f.Transition(ctx, order.ID, models.OrderEventPaidInFull, order.Version, "", updates); err != nil {
				if errors.Is(err, ErrConcurrentModification) {
					continue
				}
				return reconciled, err
			}
			reconciled++
		case services.GatewayStatusFailed:
			cause := result.FailureReason
			if cause == "" {
				cause = "provider reported failure"
			}
			if _, err := f.Transition(ctx, order.ID, models.OrderEventPaymentFailed, order.Version, cause, nil); err != nil {
				if errors.Is(err, ErrConcurrentModification) {
					continue
				}
				return reconciled, err
			}
			reconciled++
		}
	}
	return reconciled, nil
}

// FlagForReview marks the order for manual reconciliation without touching
// its status. Losing the version race is harmless, the next reconciliation
// pass re-flags.
func (f *PaymentOrderFlowImpl) FlagForReview(ctx context.Context, orderID uint, note string) error {
	var order *models.PaymentOrder
	err := repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		loaded, err := getOrderByID(txCtx, f.orderRepo, orderID)
		if err != nil {
			return err
		}
		order = loaded
		if order.ReviewRequired {
			return nil
		}
		return f.orderRepo.UpdateWithVersion(txCtx, order, order.Version, map[string]any{"review_required": true})
	})
	if err != nil && !errors.Is(err, repository.ErrVersionConflict) {
		return fmt.Errorf("failed to flag order for review: %w", err)
	}
	if order == nil {
		return ErrOrderNotFound
	}

	return createAuditLog(ctx, f.auditRepo, order, models.AuditActionCallbackAmountMismatch,
		fmt.Sprintf("Order %s flagged for review: %s", order.OrderNumber, note),
		false, utils.ToPtr(note), nil)
}

// shouldNotifyMerchant limits push notifications to settlement outcomes
func shouldNotifyMerchant(order *models.PaymentOrder) bool {
	if order.NotifyURL == "" {
		return false
	}
	switch order.Status {
	case models.PaymentOrderStatusSucceeded, models.PaymentOrderStatusFailed, models.PaymentOrderStatusExpired:
		return true
	default:
		return false
	}
}

func auditActionForEvent(event models.PaymentOrderEvent) string {
	switch event {
	case models.OrderEventGatewayAccepted:
		return models.AuditActionOrderGatewayAccepted
	case models.OrderEventGatewayRejected:
		return models.AuditActionOrderGatewayRejected
	case models.OrderEventExpired:
		return models.AuditActionOrderExpired
	case models.OrderEventPaidInFull, models.OrderEventConfirmationsReached:
		return models.AuditActionOrderSucceeded
	case models.OrderEventPaymentFailed:
		return models.AuditActionOrderFailed
	case models.OrderEventClosed:
		return models.AuditActionOrderClosed
	case models.OrderEventCancelled:
		return models.AuditActionOrderCancelled
	default:
		return string(event)
	}
}
