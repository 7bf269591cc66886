package repository

import (
	"context"
	"errors"

	"github.com/AronSwan/onlinestore-sub023/models"
	"github.com/AronSwan/onlinestore-sub023/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RefundRecordRepositoryImpl implements RefundRecordRepository interface
type RefundRecordRepositoryImpl struct {
	*BaseRepository[models.RefundRecord, models.RefundRecordFilter]
}

// NewRefundRecordRepository creates a new refund record repository
func NewRefundRecordRepository(db *gorm.DB) RefundRecordRepository {
	return &RefundRecordRepositoryImpl{
		BaseRepository: NewBaseRepository[models.RefundRecord, models.RefundRecordFilter](db),
	}
}

// ByID finds a refund record by ID
func (r *RefundRecordRepositoryImpl) ByID(ctx context.Context, id uint) (*models.RefundRecord, error) {
	db := r.getDB(ctx)
	var refund models.RefundRecord
	err := db.First(&refund, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &refund, nil
}

// ByUUID finds a refund record by UUID
func (r *RefundRecordRepositoryImpl) ByUUID(ctx context.Context, uuid string) (*models.RefundRecord, error) {
	db := r.getDB(ctx)
	var refund models.RefundRecord
	err := db.Where("uuid = ?", uuid).Last(&refund).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &refund, nil
}

// ByRefundNumber finds a refund record by its public refund number
func (r *RefundRecordRepositoryImpl) ByRefundNumber(ctx context.Context, refundNumber string) (*models.RefundRecord, error) {
	db := r.getDB(ctx)
	var refund models.RefundRecord
	err := db.Where("refund_number = ?", refundNumber).Last(&refund).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &refund, nil
}

// ByGatewayRefundID finds a refund record by the provider's refund reference
func (r *RefundRecordRepositoryImpl) ByGatewayRefundID(ctx context.Context, gatewayRefundID string) (*models.RefundRecord, error) {
	db := r.getDB(ctx)
	var refund models.RefundRecord
	err := db.Where("gateway_refund_id = ?", gatewayRefundID).Last(&refund).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &refund, nil
}

// ListByOrder retrieves all refund records for a payment order, newest first
func (r *RefundRecordRepositoryImpl) ListByOrder(ctx context.Context, paymentOrderID uint) ([]*models.RefundRecord, error) {
	db := r.getDB(ctx)
	var refunds []*models.RefundRecord
	err := db.Where("payment_order_id = ?", paymentOrderID).
		Order("created_at DESC").Find(&refunds).Error
	if err != nil {
		return nil, err
	}
	return refunds, nil
}

// SumReservedByOrder sums the amounts of all refunds for an order that still
// count against the refundable balance, i.e. every status except FAILED.
func (r *RefundRecordRepositoryImpl) SumReservedByOrder(ctx context.Context, orderID uint) (decimal.Decimal, error) {
	db := r.getDB(ctx)
	var total decimal.Decimal

	err := db.Model(&models.RefundRecord{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("payment_order_id = ? AND status <> ?", orderID, models.RefundStatusFailed).
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// UpdateStatus sets the refund status together with the gateway reference
// and failure reason reported by the provider.
func (r *RefundRecordRepositoryImpl) UpdateStatus(ctx context.Context, refundID uint, status models.RefundStatus, gatewayRefundID, failureReason string) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	updates := map[string]any{
		"status":     status,
		"updated_at": utils.UTCNow(),
	}
	if gatewayRefundID != "" {
		updates["gateway_refund_id"] = gatewayRefundID
	}
	if failureReason != "" {
		updates["failure_reason"] = failureReason
	}

	err = db.Model(&models.RefundRecord{}).Where("id = ?", refundID).Updates(updates).Error
	return err
}

// ByFilter retrieves refund records based on filter criteria
func (r *RefundRecordRepositoryImpl) ByFilter(ctx context.Context, filter models.RefundRecordFilter, orderBy string, limit, offset int) ([]*models.RefundRecord, error) {
	db := r.getDB(ctx)
	var refunds []*models.RefundRecord

	query := db.Model(&models.RefundRecord{})
	query = r.applyFilter(query, filter)

	if orderBy != "" {
		query = query.Order(orderBy)
	} else {
		query = query.Order("created_at DESC")
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	err := query.Find(&refunds).Error
	if err != nil {
		return nil, err
	}
	return refunds, nil
}

// Count returns the number of refund records matching the filter
func (r *RefundRecordRepositoryImpl) Count(ctx context.Context, filter models.RefundRecordFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64

	query := db.Model(&models.RefundRecord{})
	query = r.applyFilter(query, filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any refund record matching the filter exists
func (r *RefundRecordRepositoryImpl) Exists(ctx context.Context, filter models.RefundRecordFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// applyFilter applies the filter to the query
func (r *RefundRecordRepositoryImpl) applyFilter(query *gorm.DB, filter models.RefundRecordFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.PaymentOrderID != nil {
		query = query.Where("payment_order_id = ?", *filter.PaymentOrderID)
	}
	if filter.RefundNumber != nil {
		query = query.Where("refund_number = ?", *filter.RefundNumber)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Currency != nil {
		query = query.Where("currency = ?", *filter.Currency)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	return query
}
