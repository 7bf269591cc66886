package repository

import (
	"context"
	"errors"
	"time"

	"github.com/AronSwan/onlinestore-sub023/models"
	"github.com/AronSwan/onlinestore-sub023/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrVersionConflict is returned when an optimistic-version update matched no row
var ErrVersionConflict = errors.New("payment order version conflict")

// PaymentOrderRepositoryImpl implements PaymentOrderRepository interface
type PaymentOrderRepositoryImpl struct {
	*BaseRepository[models.PaymentOrder, models.PaymentOrderFilter]
}

// NewPaymentOrderRepository creates a new payment order repository
func NewPaymentOrderRepository(db *gorm.DB) PaymentOrderRepository {
	return &PaymentOrderRepositoryImpl{
		BaseRepository: NewBaseRepository[models.PaymentOrder, models.PaymentOrderFilter](db),
	}
}

// ByID finds a payment order by ID
func (r *PaymentOrderRepositoryImpl) ByID(ctx context.Context, id uint) (*models.PaymentOrder, error) {
	db := r.getDB(ctx)
	var order models.PaymentOrder
	err := db.First(&order, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// ByUUID finds a payment order by UUID
func (r *PaymentOrderRepositoryImpl) ByUUID(ctx context.Context, uuid string) (*models.PaymentOrder, error) {
	db := r.getDB(ctx)
	var order models.PaymentOrder
	err := db.Where("uuid = ?", uuid).Last(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// ByOrderNumber finds a payment order by its public order number
func (r *PaymentOrderRepositoryImpl) ByOrderNumber(ctx context.Context, orderNumber string) (*models.PaymentOrder, error) {
	db := r.getDB(ctx)
	var order models.PaymentOrder
	err := db.Where("order_number = ?", orderNumber).Last(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// ByMerchantOrderID finds a payment order by the caller-supplied merchant order ID
func (r *PaymentOrderRepositoryImpl) ByMerchantOrderID(ctx context.Context, merchantOrderID string) (*models.PaymentOrder, error) {
	db := r.getDB(ctx)
	var order models.PaymentOrder
	err := db.Where("merchant_order_id = ?", merchantOrderID).Last(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// ByGatewayOrderID finds a payment order by the provider's order reference
func (r *PaymentOrderRepositoryImpl) ByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.PaymentOrder, error) {
	db := r.getDB(ctx)
	var order models.PaymentOrder
	err := db.Where("gateway_order_id = ?", gatewayOrderID).Last(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// ByDepositAddress finds payment orders assigned the given receiving address
func (r *PaymentOrderRepositoryImpl) ByDepositAddress(ctx context.Context, address, network string) ([]*models.PaymentOrder, error) {
	db := r.getDB(ctx)
	var orders []*models.PaymentOrder
	err := db.Where("deposit_address = ? AND network = ?", address, network).
		Order("created_at DESC").Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// GetExpiredOrders gets PENDING orders whose expiry deadline has passed
func (r *PaymentOrderRepositoryImpl) GetExpiredOrders(ctx context.Context, asOf time.Time, limit int) ([]*models.PaymentOrder, error) {
	db := r.getDB(ctx)
	var orders []*models.PaymentOrder

	query := db.Where("status = ? AND expires_at IS NOT NULL AND expires_at < ?",
		models.PaymentOrderStatusPending, asOf).Order("expires_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	err := query.Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// GetStaleProcessing gets PROCESSING orders not updated since olderThan
func (r *PaymentOrderRepositoryImpl) GetStaleProcessing(ctx context.Context, olderThan time.Time, limit int) ([]*models.PaymentOrder, error) {
	db := r.getDB(ctx)
	var orders []*models.PaymentOrder

	query := db.Where("status = ? AND updated_at < ?", models.PaymentOrderStatusProcessing, olderThan).
		Order("updated_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	err := query.Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateWithVersion applies updates only if the stored version still equals
// expectedVersion, bumping the version in the same statement. A zero-row
// match returns ErrVersionConflict; the caller re-reads and retries.
func (r *PaymentOrderRepositoryImpl) UpdateWithVersion(ctx context.Context, order *models.PaymentOrder, expectedVersion int, updates map[string]any) error {
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

	updates["version"] = expectedVersion + 1
	updates["updated_at"] = utils.UTCNow()

	res := db.Model(&models.PaymentOrder{}).
		Where("id = ? AND version = ?", order.ID, expectedVersion).
		Updates(updates)
	if res.Error != nil {
		err = res.Error
		return err
	}
	if res.RowsAffected == 0 {
		err = ErrVersionConflict
		return err
	}

	return nil
}

// GetLatestByCorrelationID finds the newest order sharing a correlation ID
func (r *PaymentOrderRepositoryImpl) GetLatestByCorrelationID(ctx context.Context, correlationID uuid.UUID) (*models.PaymentOrder, error) {
	db := r.getDB(ctx)
	var order models.PaymentOrder
	err := db.Where("correlation_id = ?", correlationID).Order("created_at DESC").First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// ByFilter retrieves payment orders based on filter criteria
func (r *PaymentOrderRepositoryImpl) ByFilter(ctx context.Context, filter models.PaymentOrderFilter, orderBy string, limit, offset int) ([]*models.PaymentOrder, error) {
	db := r.getDB(ctx)
	var orders []*models.PaymentOrder

	query := db.Model(&models.PaymentOrder{})
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

	err := query.Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// Count returns the number of payment orders matching the filter
func (r *PaymentOrderRepositoryImpl) Count(ctx context.Context, filter models.PaymentOrderFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64

	query := db.Model(&models.PaymentOrder{})
	query = r.applyFilter(query, filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any payment order matching the filter exists
func (r *PaymentOrderRepositoryImpl) Exists(ctx context.Context, filter models.PaymentOrderFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// applyFilter applies the filter to the query
func (r *PaymentOrderRepositoryImpl) applyFilter(query *gorm.DB, filter models.PaymentOrderFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.CorrelationID != nil {
		query = query.Where("correlation_id = ?", *filter.CorrelationID)
	}
	if filter.OrderNumber != nil {
		query = query.Where("order_number = ?", *filter.OrderNumber)
	}
	if filter.MerchantOrderID != nil {
		query = query.Where("merchant_order_id = ?", *filter.MerchantOrderID)
	}
	if filter.GatewayOrderID != nil {
		query = query.Where("gateway_order_id = ?", *filter.GatewayOrderID)
	}
	if filter.DepositAddress != nil {
		query = query.Where("deposit_address = ?", *filter.DepositAddress)
	}
	if filter.PaymentMethod != nil {
		query = query.Where("payment_method = ?", *filter.PaymentMethod)
	}
	if filter.Currency != nil {
		query = query.Where("currency = ?", *filter.Currency)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.ReviewRequired != nil {
		query = query.Where("review_required = ?", *filter.ReviewRequired)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	if filter.ExpiresAfter != nil {
		query = query.Where("expires_at > ?", *filter.ExpiresAfter)
	}
	if filter.ExpiresBefore != nil {
		query = query.Where("expires_at < ?", *filter.ExpiresBefore)
	}
	return query
}
