package repository

import (
	"context"
	"errors"
	"time"

	"github.com/AronSwan/onlinestore-sub023/models"
	"github.com/AronSwan/onlinestore-sub023/utils"
	"gorm.io/gorm"
)

// ConfirmationRecordRepositoryImpl implements ConfirmationRecordRepository interface
type ConfirmationRecordRepositoryImpl struct {
	*BaseRepository[models.ConfirmationRecord, models.ConfirmationRecordFilter]
}

// NewConfirmationRecordRepository creates a new confirmation record repository
func NewConfirmationRecordRepository(db *gorm.DB) ConfirmationRecordRepository {
	return &ConfirmationRecordRepositoryImpl{
		BaseRepository: NewBaseRepository[models.ConfirmationRecord, models.ConfirmationRecordFilter](db),
	}
}

// ByID finds a confirmation record by ID
func (r *ConfirmationRecordRepositoryImpl) ByID(ctx context.Context, id uint) (*models.ConfirmationRecord, error) {
	db := r.getDB(ctx)
	var record models.ConfirmationRecord
	err := db.First(&record, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// ByTxHash finds a confirmation record by its on-chain transaction hash
func (r *ConfirmationRecordRepositoryImpl) ByTxHash(ctx context.Context, network, txHash string) (*models.ConfirmationRecord, error) {
	db := r.getDB(ctx)
	var record models.ConfirmationRecord
	err := db.Where("network = ? AND tx_hash = ?", network, txHash).Last(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// ListByOrder retrieves all confirmation records for a payment order, newest first
func (r *ConfirmationRecordRepositoryImpl) ListByOrder(ctx context.Context, paymentOrderID uint) ([]*models.ConfirmationRecord, error) {
	db := r.getDB(ctx)
	var records []*models.ConfirmationRecord
	err := db.Where("payment_order_id = ?", paymentOrderID).
		Order("created_at DESC").Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// UpdateProgress records the latest observed confirmation count. The count
// never moves backwards, racing observers settle on the highest value.
// CreditedAt is passed once, on the observation that crossed the required
// threshold.
func (r *ConfirmationRecordRepositoryImpl) UpdateProgress(ctx context.Context, recordID uint, confirmations int, creditedAt *time.Time) error {
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
		"confirmations": confirmations,
		"updated_at":    utils.UTCNow(),
	}
	if creditedAt != nil {
		updates["credited_at"] = *creditedAt
	}

	err = db.Model(&models.ConfirmationRecord{}).
		Where("id = ? AND confirmations <= ?", recordID, confirmations).
		Updates(updates).Error
	return err
}

// ByFilter retrieves confirmation records based on filter criteria
func (r *ConfirmationRecordRepositoryImpl) ByFilter(ctx context.Context, filter models.ConfirmationRecordFilter, orderBy string, limit, offset int) ([]*models.ConfirmationRecord, error) {
	db := r.getDB(ctx)
	var records []*models.ConfirmationRecord

	query := db.Model(&models.ConfirmationRecord{})
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

	err := query.Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Count returns the number of confirmation records matching the filter
func (r *ConfirmationRecordRepositoryImpl) Count(ctx context.Context, filter models.ConfirmationRecordFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64

	query := db.Model(&models.ConfirmationRecord{})
	query = r.applyFilter(query, filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any confirmation record matching the filter exists
func (r *ConfirmationRecordRepositoryImpl) Exists(ctx context.Context, filter models.ConfirmationRecordFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// applyFilter applies the filter to the query
func (r *ConfirmationRecordRepositoryImpl) applyFilter(query *gorm.DB, filter models.ConfirmationRecordFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.PaymentOrderID != nil {
		query = query.Where("payment_order_id = ?", *filter.PaymentOrderID)
	}
	if filter.TxHash != nil {
		query = query.Where("tx_hash = ?", *filter.TxHash)
	}
	if filter.Network != nil {
		query = query.Where("network = ?", *filter.Network)
	}
	if filter.ToAddress != nil {
		query = query.Where("to_address = ?", *filter.ToAddress)
	}
	if filter.Credited != nil {
		if *filter.Credited {
			query = query.Where("credited_at IS NOT NULL")
		} else {
			query = query.Where("credited_at IS NULL")
		}
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	return query
}
