package businessflow

import (
	"context"
	"fmt"

	"github.com/AronSwan/onlinestore-sub023/app/dto"
	"github.com/AronSwan/onlinestore-sub023/config"
	"github.com/AronSwan/onlinestore-sub023/models"
	"github.com/AronSwan/onlinestore-sub023/repository"
	"github.com/AronSwan/onlinestore-sub023/utils"
	"github.com/shopspring/decimal"
)

// ConfirmationFlow tracks on-chain transactions paying crypto orders. A chain
// watcher reports the same transaction repeatedly as its confirmation count
// grows; the count only moves forward, and the owning order settles exactly
// once, on the first observation at or above the required threshold.
type ConfirmationFlow interface {
	Observe(ctx context.Context, req *dto.ObserveConfirmationRequest, metadata *ClientMetadata) (*dto.ObserveConfirmationResponse, error)
	ListOrderConfirmations(ctx context.Context, orderNumber string) ([]dto.ConfirmationRecordDTO, error)
}

// ConfirmationFlowImpl implements the confirmation tracking flow
type ConfirmationFlowImpl struct {
	confirmationRepo repository.ConfirmationRecordRepository
	orderRepo        repository.PaymentOrderRepository
	auditRepo        repository.AuditLogRepository
	orderFlow        PaymentOrderFlow
	cryptoCfg        config.CryptoConfig
	tolerance        decimal.Decimal
}

// NewConfirmationFlow creates a new confirmation flow instance
func NewConfirmationFlow(
	confirmationRepo repository.ConfirmationRecordRepository,
	orderRepo repository.PaymentOrderRepository,
	auditRepo repository.AuditLogRepository,
	orderFlow PaymentOrderFlow,
	cryptoCfg config.CryptoConfig,
) ConfirmationFlow {
	return &ConfirmationFlowImpl{
		confirmationRepo: confirmationRepo,
		orderRepo:        orderRepo,
		auditRepo:        auditRepo,
		orderFlow:        orderFlow,
		cryptoCfg:        cryptoCfg,
		tolerance:        decimal.NewFromFloat(cryptoCfg.AmountTolerance),
	}
}

// Observe ingests one transaction sighting. First sightings resolve the
// owning order by receiving address and amount; repeats only advance the
// confirmation count.
func (f *ConfirmationFlowImpl) Observe(ctx context.Context, req *dto.ObserveConfirmationRequest, metadata *ClientMetadata) (*dto.ObserveConfirmationResponse, error) {
	if req == nil || req.TxHash == "" {
		return nil, ErrTxHashRequired
	}
	if req.Network == "" || req.ToAddress == "" {
		return nil, NewBusinessError("INVALID_OBSERVATION", "network and to_address are required", ErrObservationUnmatched)
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		return nil, NewBusinessErrorf("INVALID_OBSERVATION", "invalid observed amount %q", ErrObservationUnmatched, req.Amount)
	}

	record, err := f.confirmationRepo.ByTxHash(ctx, req.Network, req.TxHash)
	if err != nil {
		return nil, fmt.Errorf("failed to look up transaction: %w", err)
	}

	if record == nil {
		order, err := f.matchOrder(ctx, req.Network, req.ToAddress, amount)
		if err != nil {
			return nil, err
		}
		if order == nil {
			_ = createAuditLog(ctx, f.auditRepo, nil, models.AuditActionObservationUnmatched,
				fmt.Sprintf("Transaction %s on %s paid %s to %s with no matching order", req.TxHash, req.Network, amount.String(), req.ToAddress),
				false, utils.ToPtr(ErrObservationUnmatched.Error()), metadata)
			return &dto.ObserveConfirmationResponse{Matched: false}, nil
		}

		record = &models.ConfirmationRecord{
			TxHash:                req.TxHash,
			Network:               req.Network,
			PaymentOrderID:        order.ID,
			FromAddress:           req.FromAddress,
			ToAddress:             req.ToAddress,
			Amount:                amount,
			Confirmations:         req.Confirmations,
			RequiredConfirmations: f.requiredConfirmationsFor(req.Network, order.Amount),
		}
		if err := f.confirmationRepo.Save(ctx, record); err != nil {
			if !repository.IsUniqueViolation(err) {
				return nil, fmt.Errorf("failed to record transaction: %w", err)
			}
			// A racing observer inserted the same transaction first
			record, err = f.confirmationRepo.ByTxHash(ctx, req.Network, req.TxHash)
			if err != nil || record == nil {
				return nil, fmt.Errorf("failed to reload transaction: %w", err)
			}
		}
	}

	if req.Confirmations > record.Confirmations {
		if err := f.confirmationRepo.UpdateProgress(ctx, record.ID, req.Confirmations, nil); err != nil {
			return nil, fmt.Errorf("failed to advance confirmations: %w", err)
		}
		record.Confirmations = req.Confirmations
	}

	order, err := getOrderByID(ctx, f.orderRepo, record.PaymentOrderID)
	if err != nil {
		return nil, err
	}

	creditedNow := false
	if record.IsConfirmed() && record.CreditedAt == nil {
		paidAmount := record.Amount
		if paidAmount.GreaterThan(order.Amount) {
			paidAmount = order.Amount
		}
		updates := map[string]any{
			"paid_amount": paidAmount,
			"paid_at":     utils.UTCNow(),
		}
		updated, err := f.orderFlow.Transition(ctx, order.ID, models.OrderEventConfirmationsReached, 0, "", updates)
		if err != nil {
			return nil, err
		}
		order = updated

		creditedAt := utils.UTCNowPtr()
		if err := f.confirmationRepo.UpdateProgress(ctx, record.ID, record.Confirmations, creditedAt); err != nil {
			return nil, fmt.Errorf("failed to mark transaction credited: %w", err)
		}
		record.CreditedAt = creditedAt
		creditedNow = true

		_ = createAuditLog(ctx, f.auditRepo, order, models.AuditActionConfirmationCredited,
			fmt.Sprintf("Transaction %s reached %d/%d confirmations, order %s is %s",
				record.TxHash, record.Confirmations, record.RequiredConfirmations, order.OrderNumber, order.Status),
			true, nil, metadata)
	}

	recordDTO := ToConfirmationRecordDTO(*record)
	return &dto.ObserveConfirmationResponse{
		Matched:     true,
		Credited:    creditedNow,
		OrderNumber: order.OrderNumber,
		OrderStatus: string(order.Status),
		Record:      &recordDTO,
	}, nil
}

// ListOrderConfirmations returns the observed transactions for one order
func (f *ConfirmationFlowImpl) ListOrderConfirmations(ctx context.Context, orderNumber string) ([]dto.ConfirmationRecordDTO, error) {
	order, err := getOrderByNumber(ctx, f.orderRepo, orderNumber)
	if err != nil {
		return nil, err
	}
	records, err := f.confirmationRepo.ListByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list confirmations: %w", err)
	}
	out := make([]dto.ConfirmationRecordDTO, 0, len(records))
	for _, r := range records {
		out = append(out, ToConfirmationRecordDTO(*r))
	}
	return out, nil
}

// matchOrder resolves the order a transfer pays. Pooled deposit addresses may
// serve several orders, so the match requires an active order on the address,
// created within the observation window, whose amount agrees with the
// transfer within tolerance, preferring the newest.
func (f *ConfirmationFlowImpl) matchOrder(ctx context.Context, network, toAddress string, amount decimal.Decimal) (*models.PaymentOrder, error) {
	candidates, err := f.orderRepo.ByDepositAddress(ctx, toAddress, network)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve deposit address: %w", err)
	}
	cutoff := utils.UTCNow().Add(-f.cryptoCfg.ObservationWindow)
	for _, order := range candidates {
		if order.Status != models.PaymentOrderStatusProcessing {
			continue
		}
		if f.cryptoCfg.ObservationWindow > 0 && order.CreatedAt.Before(cutoff) {
			continue
		}
		if f.amountWithinTolerance(order.Amount, amount) {
			return order, nil
		}
	}
	return nil, nil
}

func (f *ConfirmationFlowImpl) amountWithinTolerance(orderAmount, observed decimal.Decimal) bool {
	if observed.GreaterThanOrEqual(orderAmount) {
		return true
	}
	shortfall := orderAmount.Sub(observed)
	return shortfall.LessThanOrEqual(orderAmount.Mul(f.tolerance))
}

// requiredConfirmationsFor applies the configured confirmation policy: tiers
// are ordered by descending amount floor, the first floor at or under the
// order amount decides. Networks without a policy wait a conservative 12.
func (f *ConfirmationFlowImpl) requiredConfirmationsFor(network string, amount decimal.Decimal) int {
	for _, tier := range f.cryptoCfg.TierTable()[network] {
		if amount.GreaterThanOrEqual(decimal.NewFromInt(tier.MinAmount)) {
			return tier.Confirmations
		}
	}
	return 12
}
