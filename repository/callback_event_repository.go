package repository

import (
	"context"
	"errors"
	"time"

	"github.com/AronSwan/onlinestore-sub023/models"
	"github.com/AronSwan/onlinestore-sub023/utils"
	"gorm.io/gorm"
)

// CallbackEventRepositoryImpl implements CallbackEventRepository interface
type CallbackEventRepositoryImpl struct {
	*BaseRepository[models.CallbackEvent, models.CallbackEventFilter]
}

// NewCallbackEventRepository creates a new callback event repository
func NewCallbackEventRepository(db *gorm.DB) CallbackEventRepository {
	return &CallbackEventRepositoryImpl{
		BaseRepository: NewBaseRepository[models.CallbackEvent, models.CallbackEventFilter](db),
	}
}

// ByID finds a callback event by ID
func (r *CallbackEventRepositoryImpl) ByID(ctx context.Context, id uint) (*models.CallbackEvent, error) {
	db := r.getDB(ctx)
	var event models.CallbackEvent
	err := db.First(&event, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}

// ByDedupeKey finds a callback event by its dedupe key
func (r *CallbackEventRepositoryImpl) ByDedupeKey(ctx context.Context, dedupeKey string) (*models.CallbackEvent, error) {
	db := r.getDB(ctx)
	var event models.CallbackEvent
	err := db.Where("dedupe_key = ?", dedupeKey).Last(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}

// InsertIfAbsent inserts the event relying on the DedupeKey unique constraint.
// The insert runs on its own connection so a conflict never poisons a caller
// transaction. On conflict the previously recorded row is fetched and
// returned with inserted=false.
func (r *CallbackEventRepositoryImpl) InsertIfAbsent(ctx context.Context, event *models.CallbackEvent) (bool, *models.CallbackEvent, error) {
	err := r.DB.WithContext(ctx).Create(event).Error
	if err == nil {
		return true, nil, nil
	}
	if !IsUniqueViolation(err) {
		return false, nil, err
	}

	existing, ferr := r.ByDedupeKey(ctx, event.DedupeKey)
	if ferr != nil {
		return false, nil, ferr
	}
	if existing == nil {
		return false, nil, err
	}
	return false, existing, nil
}

// MarkApplied records the disposition of a processed event. AppliedAt is
// passed only for the applied outcome, after the order transition committed.
func (r *CallbackEventRepositoryImpl) MarkApplied(ctx context.Context, eventID uint, paymentOrderID *uint, outcome models.CallbackOutcome, failureReason string, appliedAt *time.Time) error {
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
		"outcome":    outcome,
		"updated_at": utils.UTCNow(),
	}
	if paymentOrderID != nil {
		updates["payment_order_id"] = *paymentOrderID
	}
	if failureReason != "" {
		updates["failure_reason"] = failureReason
	}
	if appliedAt != nil {
		updates["applied_at"] = *appliedAt
	}

	err = db.Model(&models.CallbackEvent{}).Where("id = ?", eventID).Updates(updates).Error
	return err
}

// ListUnapplied gets events inserted before olderThan that never reached a
// disposition, i.e. processing crashed between insert and apply.
func (r *CallbackEventRepositoryImpl) ListUnapplied(ctx context.Context, olderThan time.Time, limit int) ([]*models.CallbackEvent, error) {
	db := r.getDB(ctx)
	var events []*models.CallbackEvent

	query := db.Where("outcome = ? AND created_at < ?", models.CallbackOutcomePending, olderThan).
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	err := query.Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

// ListFlagged gets events in the window whose disposition needs operator review
func (r *CallbackEventRepositoryImpl) ListFlagged(ctx context.Context, from, to time.Time) ([]*models.CallbackEvent, error) {
	db := r.getDB(ctx)
	var events []*models.CallbackEvent

	outcomes := []models.CallbackOutcome{
		models.CallbackOutcomeAmountMismatch,
		models.CallbackOutcomeOrderNotFound,
		models.CallbackOutcomeIgnoredIllegal,
	}
	err := db.Where("outcome IN ? AND created_at >= ? AND created_at <= ?", outcomes, from, to).
		Order("created_at ASC").Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

// ByFilter retrieves callback events based on filter criteria
func (r *CallbackEventRepositoryImpl) ByFilter(ctx context.Context, filter models.CallbackEventFilter, orderBy string, limit, offset int) ([]*models.CallbackEvent, error) {
	db := r.getDB(ctx)
	var events []*models.CallbackEvent

	query := db.Model(&models.CallbackEvent{})
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

	err := query.Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

// Count returns the number of callback events matching the filter
func (r *CallbackEventRepositoryImpl) Count(ctx context.Context, filter models.CallbackEventFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64

	query := db.Model(&models.CallbackEvent{})
	query = r.applyFilter(query, filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any callback event matching the filter exists
func (r *CallbackEventRepositoryImpl) Exists(ctx context.Context, filter models.CallbackEventFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// applyFilter applies the filter to the query
func (r *CallbackEventRepositoryImpl) applyFilter(query *gorm.DB, filter models.CallbackEventFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.DedupeKey != nil {
		query = query.Where("dedupe_key = ?", *filter.DedupeKey)
	}
	if filter.Provider != nil {
		query = query.Where("provider = ?", *filter.Provider)
	}
	if filter.GatewayOrderID != nil {
		query = query.Where("gateway_order_id = ?", *filter.GatewayOrderID)
	}
	if filter.PaymentOrderID != nil {
		query = query.Where("payment_order_id = ?", *filter.PaymentOrderID)
	}
	if filter.Outcome != nil {
		query = query.Where("outcome = ?", *filter.Outcome)
	}
	if filter.Applied != nil {
		if *filter.Applied {
			query = query.Where("applied_at IS NOT NULL")
		} else {
			query = query.Where("applied_at IS NULL")
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
