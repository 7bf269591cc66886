package businessflow

import (
	"context"
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
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RefundFlow issues refunds against succeeded orders. Concurrent refunds on
// one order are serialized twice over: a per-order redis lease when a cache
// is configured, and a version reservation on the order row inside the
// refund transaction, so colliding balance checks cannot both commit. The
// sum of non-failed refunds never exceeds the order's paid amount.
type RefundFlow interface {
	CreateRefund(ctx context.Context, req *dto.CreateRefundRequest, metadata *ClientMetadata) (*dto.RefundRecordDTO, error)
	GetRefund(ctx context.Context, refundNumber string) (*dto.RefundRecordDTO, error)
	ListRefunds(ctx context.Context, orderNumber string) (*dto.ListRefundsResponse, error)
}

// RefundFlowImpl implements the refund business flow
type RefundFlowImpl struct {
	orderRepo  repository.PaymentOrderRepository
	refundRepo repository.RefundRecordRepository
	auditRepo  repository.AuditLogRepository
	gateways   map[models.PaymentMethod]services.GatewayAdapter
	db         *gorm.DB

	redisClient *redis.Client
	cacheCfg    config.CacheConfig
}

// NewRefundFlow creates a new refund flow instance
func NewRefundFlow(
	orderRepo repository.PaymentOrderRepository,
	refundRepo repository.RefundRecordRepository,
	auditRepo repository.AuditLogRepository,
	gateways map[models.PaymentMethod]services.GatewayAdapter,
	db *gorm.DB,
	redisClient *redis.Client,
	cacheCfg config.CacheConfig,
) RefundFlow {
	return &RefundFlowImpl{
		orderRepo:   orderRepo,
		refundRepo:  refundRepo,
		auditRepo:   auditRepo,
		gateways:    gateways,
		db:          db,
		redisClient: redisClient,
		cacheCfg:    cacheCfg,
	}
}

// CreateRefund validates the refundable balance under the per-order lock,
// records the refund PENDING, then executes it at the provider. The reserved
// balance counts every non-failed refund, so a PENDING refund whose provider
// call is still unresolved keeps its slice of the balance.
func (f *RefundFlowImpl) CreateRefund(ctx context.Context, req *dto.CreateRefundRequest, metadata *ClientMetadata) (*dto.RefundRecordDTO, error) {
	if req == nil {
		return nil, NewBusinessError("INVALID_REQUEST", "request is required", nil)
	}
	if req.Reason == "" {
		return nil, ErrRefundReasonRequired
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return nil, NewBusinessErrorf("INVALID_AMOUNT", "invalid refund amount %q", ErrRefundAmountTooLow, req.Amount)
	}
	if !amount.IsPositive() {
		return nil, ErrRefundAmountTooLow
	}

	order, err := getOrderByNumber(ctx, f.orderRepo, req.OrderNumber)
	if err != nil {
		return nil, err
	}
	if order.PaymentMethod.IsCrypto() {
		return nil, ErrRefundNotSupported
	}

	adapter, ok := f.gateways[order.PaymentMethod]
	if !ok {
		return nil, ErrPaymentMethodUnsupported
	}

	release, err := acquireRefundLock(ctx, f.redisClient, f.cacheCfg, order.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	refund := &models.RefundRecord{
		RefundNumber:   fmt.Sprintf("RF-%s-%d", uuid.New().String(), time.Now().Unix()),
		PaymentOrderID: order.ID,
		Amount:         amount,
		Currency:       order.Currency,
		Reason:         req.Reason,
		Status:         models.RefundStatusPending,
	}

	err = repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		fresh, err := getOrderByID(txCtx, f.orderRepo, order.ID)
		if err != nil {
			return err
		}
		if !fresh.IsRefundable() {
			return NewBusinessErrorf("ORDER_NOT_REFUNDABLE", "order %s is %s", ErrOrderNotRefundable, fresh.OrderNumber, fresh.Status)
		}

		reserved, err := f.refundRepo.SumReservedByOrder(txCtx, fresh.ID)
		if err != nil {
			return fmt.Errorf("failed to sum reserved refunds: %w", err)
		}
		available := fresh.PaidAmount.Sub(reserved)
		if amount.GreaterThan(available) {
			return NewBusinessErrorf("INSUFFICIENT_REFUNDABLE_AMOUNT",
				"requested %s exceeds refundable %s", ErrInsufficientRefundableAmount,
				amount.StringFixed(2), available.StringFixed(2))
		}

		// Version reservation: two transactions that both read the same
		// balance race this bump, the loser rolls back its insert and the
		// caller retries against the fresh balance.
		if err := f.orderRepo.UpdateWithVersion(txCtx, fresh, fresh.Version, map[string]any{}); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				return ErrRefundInProgress
			}
			return fmt.Errorf("failed to reserve refund balance: %w", err)
		}

		if err := f.refundRepo.Save(txCtx, refund); err != nil {
			return fmt.Errorf("failed to persist refund: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	_ = createRefundAuditLog(ctx, f.auditRepo, order, refund, models.AuditActionRefundRequested,
		fmt.Sprintf("Refund %s for %s requested against order %s", refund.RefundNumber, amount.StringFixed(2), order.OrderNumber),
		true, nil, metadata)

	result, gwErr := adapter.Refund(ctx, order, refund)
	if gwErr != nil {
		switch {
		case errors.Is(gwErr, services.ErrRefundUnsupported):
			if err := f.failRefund(ctx, order, refund, "refund not supported on this rail", metadata); err != nil {
				return nil, err
			}
			return nil, ErrRefundNotSupported
		case errors.Is(gwErr, services.ErrGatewayRejected):
			if err := f.failRefund(ctx, order, refund, gwErr.Error(), metadata); err != nil {
				return nil, err
			}
			return nil, NewBusinessError("REFUND_REJECTED", gwErr.Error(), ErrGatewayRejected)
		default:
			// Transport failure: the refund stays PENDING and keeps its
			// reservation until an operator resolves it.
			_ = createRefundAuditLog(ctx, f.auditRepo, order, refund, models.AuditActionRefundFailed,
				fmt.Sprintf("Provider unreachable for refund %s", refund.RefundNumber),
				false, utils.ToPtr(gwErr.Error()), metadata)
			return nil, NewBusinessError("GATEWAY_UNAVAILABLE", "payment gateway is unavailable", ErrGatewayUnavailable)
		}
	}

	status := refundStatusFromGateway(result.Status)
	if err := f.refundRepo.UpdateStatus(ctx, refund.ID, status, result.GatewayRefundID, ""); err != nil {
		return nil, fmt.Errorf("failed to update refund status: %w", err)
	}

	settled, err := f.refundRepo.ByID(ctx, refund.ID)
	if err != nil || settled == nil {
		return nil, fmt.Errorf("failed to reload refund: %w", err)
	}

	action := models.AuditActionRefundRequested
	if settled.Status == models.RefundStatusSucceeded {
		action = models.AuditActionRefundSucceeded
	}
	_ = createRefundAuditLog(ctx, f.auditRepo, order, settled, action,
		fmt.Sprintf("Refund %s is %s", settled.RefundNumber, settled.Status),
		true, nil, metadata)

	d := ToRefundRecordDTO(*settled)
	return &d, nil
}

// GetRefund returns one refund by its public number
func (f *RefundFlowImpl) GetRefund(ctx context.Context, refundNumber string) (*dto.RefundRecordDTO, error) {
	refund, err := f.refundRepo.ByRefundNumber(ctx, refundNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to get refund: %w", err)
	}
	if refund == nil {
		return nil, ErrRefundNotFound
	}
	d := ToRefundRecordDTO(*refund)
	return &d, nil
}

// ListRefunds returns every refund against an order and the remaining
// refundable balance
func (f *RefundFlowImpl) ListRefunds(ctx context.Context, orderNumber string) (*dto.ListRefundsResponse, error) {
	order, err := getOrderByNumber(ctx, f.orderRepo, orderNumber)
	if err != nil {
		return nil, err
	}

	refunds, err := f.refundRepo.ListByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list refunds: %w", err)
	}
	reserved, err := f.refundRepo.SumReservedByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum reserved refunds: %w", err)
	}

	resp := &dto.ListRefundsResponse{
		OrderNumber: order.OrderNumber,
		Refundable:  order.PaidAmount.Sub(reserved).StringFixed(2),
		Refunds:     make([]dto.RefundRecordDTO, 0, len(refunds)),
	}
	for _, r := range refunds {
		resp.Refunds = append(resp.Refunds, ToRefundRecordDTO(*r))
	}
	return resp, nil
}

func (f *RefundFlowImpl) failRefund(ctx context.Context, order *models.PaymentOrder, refund *models.RefundRecord, reason string, metadata *ClientMetadata) error {
	if err := f.refundRepo.UpdateStatus(ctx, refund.ID, models.RefundStatusFailed, "", reason); err != nil {
		return fmt.Errorf("failed to mark refund failed: %w", err)
	}
	return createRefundAuditLog(ctx, f.auditRepo, order, refund, models.AuditActionRefundFailed,
		fmt.Sprintf("Refund %s failed: %s", refund.RefundNumber, reason),
		false, utils.ToPtr(reason), metadata)
}

func refundStatusFromGateway(status string) models.RefundStatus {
	switch status {
	case services.GatewayStatusPaid:
		return models.RefundStatusSucceeded
	case services.GatewayStatusFailed:
		return models.RefundStatusFailed
	default:
		return models.RefundStatusProcessing
	}
}
