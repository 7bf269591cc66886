// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/AronSwan/onlinestore-sub023/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// PaymentOrderRepository defines operations for payment orders
type PaymentOrderRepository interface {
	Repository[models.PaymentOrder, models.PaymentOrderFilter]
	ByUUID(ctx context.Context, uuid string) (*models.PaymentOrder, error)
	ByOrderNumber(ctx context.Context, orderNumber string) (*models.PaymentOrder, error)
	ByMerchantOrderID(ctx context.Context, merchantOrderID string) (*models.PaymentOrder, error)
	ByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.PaymentOrder, error)
	ByDepositAddress(ctx context.Context, address, network string) ([]*models.PaymentOrder, error)
	GetExpiredOrders(ctx context.Context, asOf time.Time, limit int) ([]*models.PaymentOrder, error)
	GetStaleProcessing(ctx context.Context, olderThan time.Time, limit int) ([]*models.PaymentOrder, error)
	UpdateWithVersion(ctx context.Context, order *models.PaymentOrder, expectedVersion int, updates map[string]any) error
	GetLatestByCorrelationID(ctx context.Context, correlationID uuid.UUID) (*models.PaymentOrder, error)
}

// RefundRecordRepository defines operations for refund records
type RefundRecordRepository interface {
	Repository[models.RefundRecord, models.RefundRecordFilter]
	ByUUID(ctx context.Context, uuid string) (*models.RefundRecord, error)
	ByRefundNumber(ctx context.Context, refundNumber string) (*models.RefundRecord, error)
	ListByOrder(ctx context.Context, paymentOrderID uint) ([]*models.RefundRecord, error)
	SumReservedByOrder(ctx context.Context, paymentOrderID uint) (decimal.Decimal, error)
	UpdateStatus(ctx context.Context, refundID uint, status models.RefundStatus, gatewayRefundID, failureReason string) error
}

// CallbackEventRepository defines operations for the callback dedupe ledger
type CallbackEventRepository interface {
	Repository[models.CallbackEvent, models.CallbackEventFilter]
	ByDedupeKey(ctx context.Context, dedupeKey string) (*models.CallbackEvent, error)
	// InsertIfAbsent inserts the event under the DedupeKey unique constraint.
	// It returns (inserted, existing): on conflict inserted is false and
	// existing carries the previously recorded row.
	InsertIfAbsent(ctx context.Context, event *models.CallbackEvent) (bool, *models.CallbackEvent, error)
	MarkApplied(ctx context.Context, eventID uint, paymentOrderID *uint, outcome models.CallbackOutcome, failureReason string, appliedAt *time.Time) error
	ListUnapplied(ctx context.Context, olderThan time.Time, limit int) ([]*models.CallbackEvent, error)
	ListFlagged(ctx context.Context, from, to time.Time) ([]*models.CallbackEvent, error)
}

// ConfirmationRecordRepository defines operations for blockchain confirmation records
type ConfirmationRecordRepository interface {
	Repository[models.ConfirmationRecord, models.ConfirmationRecordFilter]
	ByTxHash(ctx context.Context, network, txHash string) (*models.ConfirmationRecord, error)
	ListByOrder(ctx context.Context, paymentOrderID uint) ([]*models.ConfirmationRecord, error)
	UpdateProgress(ctx context.Context, recordID uint, confirmations int, creditedAt *time.Time) error
}

// AuditLogRepository defines operations for audit logs
type AuditLogRepository interface {
	Repository[models.AuditLog, models.AuditLogFilter]
	ListByOrder(ctx context.Context, paymentOrderID uint, limit, offset int) ([]*models.AuditLog, error)
	ListByAction(ctx context.Context, action string, limit, offset int) ([]*models.AuditLog, error)
	ListFailedActions(ctx context.Context, limit, offset int) ([]*models.AuditLog, error)
	ListReconciliationEvents(ctx context.Context, from, to time.Time) ([]*models.AuditLog, error)
}
