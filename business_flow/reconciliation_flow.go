package businessflow

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/AronSwan/onlinestore-sub023/app/dto"
	"github.com/AronSwan/onlinestore-sub023/models"
	"github.com/AronSwan/onlinestore-sub023/repository"
	"github.com/AronSwan/onlinestore-sub023/utils"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// ReconciliationFlow serves the manual-review side of the system: listing
// orders flagged for review, exporting the reconciliation workbook, and
// clearing flags once an operator has resolved a discrepancy.
type ReconciliationFlow interface {
	ExportReconciliationReport(ctx context.Context, from, to time.Time) (string, []byte, error)
	ListReviewOrders(ctx context.Context, page, pageSize int) (*dto.ListPaymentOrdersResponse, error)
	ResolveReview(ctx context.Context, orderNumber, note string, metadata *ClientMetadata) (*dto.PaymentOrderDTO, error)
}

// ReconciliationFlowImpl implements the reconciliation flow
type ReconciliationFlowImpl struct {
	orderRepo repository.PaymentOrderRepository
	eventRepo repository.CallbackEventRepository
	auditRepo repository.AuditLogRepository
	db        *gorm.DB
}

// NewReconciliationFlow creates a new reconciliation flow instance
func NewReconciliationFlow(
	orderRepo repository.PaymentOrderRepository,
	eventRepo repository.CallbackEventRepository,
	auditRepo repository.AuditLogRepository,
	db *gorm.DB,
) ReconciliationFlow {
	return &ReconciliationFlowImpl{
		orderRepo: orderRepo,
		eventRepo: eventRepo,
		auditRepo: auditRepo,
		db:        db,
	}
}

// ExportReconciliationReport builds an xlsx workbook with one sheet per
// concern: callbacks needing review, the audit trail of money-moving
// anomalies, and orders currently flagged.
func (f *ReconciliationFlowImpl) ExportReconciliationReport(ctx context.Context, from, to time.Time) (string, []byte, error) {
	flagged, err := f.eventRepo.ListFlagged(ctx, from, to)
	if err != nil {
		return "", nil, NewBusinessError("FETCH_FLAGGED_FAILED", "Failed to fetch flagged callbacks", err)
	}
	anomalies, err := f.auditRepo.ListReconciliationEvents(ctx, from, to)
	if err != nil {
		return "", nil, NewBusinessError("FETCH_ANOMALIES_FAILED", "Failed to fetch reconciliation events", err)
	}
	reviewOrders, err := f.orderRepo.ByFilter(ctx, models.PaymentOrderFilter{ReviewRequired: utils.ToPtr(true)}, "created_at ASC", 0, 0)
	if err != nil {
		return "", nil, NewBusinessError("FETCH_REVIEW_ORDERS_FAILED", "Failed to fetch review orders", err)
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	// Sheet 1: flagged callbacks
	sheet := "Flagged Callbacks"
	xl.SetSheetName(xl.GetSheetName(0), sheet)
	header := []string{"dedupe_key", "provider", "event_type", "gateway_order_id", "payment_order_id", "amount", "outcome", "failure_reason", "verified_at", "applied_at"}
	_ = xl.SetSheetRow(sheet, "A1", &header)
	for ri, e := range flagged {
		orderID := ""
		if e.PaymentOrderID != nil {
			orderID = strconv.FormatUint(uint64(*e.PaymentOrderID), 10)
		}
		appliedAt := ""
		if e.AppliedAt != nil {
			appliedAt = e.AppliedAt.UTC().Format(time.RFC3339)
		}
		record := []string{
			e.DedupeKey,
			e.Provider,
			e.EventType,
			e.GatewayOrderID,
			orderID,
			e.Amount.StringFixed(2),
			string(e.Outcome),
			e.FailureReason,
			e.VerifiedAt.UTC().Format(time.RFC3339),
			appliedAt,
		}
		cellRef, _ := excelize.CoordinatesToCellName(1, ri+2)
		_ = xl.SetSheetRow(sheet, cellRef, &record)
	}

	// Sheet 2: audit anomalies
	sheet = "Anomalies"
	_, _ = xl.NewSheet(sheet)
	header = []string{"id", "action", "payment_order_id", "refund_record_id", "callback_event_id", "description", "error_message", "request_id", "created_at"}
	_ = xl.SetSheetRow(sheet, "A1", &header)
	for ri, a := range anomalies {
		record := []string{
			strconv.FormatUint(uint64(a.ID), 10),
			a.Action,
			formatOptionalID(a.PaymentOrderID),
			formatOptionalID(a.RefundRecordID),
			formatOptionalID(a.CallbackEventID),
			derefString(a.Description),
			derefString(a.ErrorMessage),
			derefString(a.RequestID),
			a.CreatedAt.UTC().Format(time.RFC3339),
		}
		cellRef, _ := excelize.CoordinatesToCellName(1, ri+2)
		_ = xl.SetSheetRow(sheet, cellRef, &record)
	}

	// Sheet 3: orders awaiting review
	sheet = "Review Orders"
	_, _ = xl.NewSheet(sheet)
	header = []string{"order_number", "merchant_order_id", "amount", "paid_amount", "currency", "payment_method", "status", "failure_reason", "created_at"}
	_ = xl.SetSheetRow(sheet, "A1", &header)
	for ri, o := range reviewOrders {
		record := []string{
			o.OrderNumber,
			o.MerchantOrderID,
			o.Amount.StringFixed(2),
			o.PaidAmount.StringFixed(2),
			o.Currency,
			string(o.PaymentMethod),
			string(o.Status),
			o.FailureReason,
			o.CreatedAt.UTC().Format(time.RFC3339),
		}
		cellRef, _ := excelize.CoordinatesToCellName(1, ri+2)
		_ = xl.SetSheetRow(sheet, cellRef, &record)
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
	}
	filename := fmt.Sprintf("reconciliation_%s_%s.xlsx", from.UTC().Format("20060102"), to.UTC().Format("20060102"))
	return filename, buf.Bytes(), nil
}

// ListReviewOrders pages through orders flagged for manual review
func (f *ReconciliationFlowImpl) ListReviewOrders(ctx context.Context, page, pageSize int) (*dto.ListPaymentOrdersResponse, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	filter := models.PaymentOrderFilter{ReviewRequired: utils.ToPtr(true)}
	total, err := f.orderRepo.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count review orders: %w", err)
	}
	orders, err := f.orderRepo.ByFilter(ctx, filter, "created_at ASC", pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list review orders: %w", err)
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

// ResolveReview clears the review flag after an operator has reconciled the
// discrepancy, leaving the audit trail of the resolution.
func (f *ReconciliationFlowImpl) ResolveReview(ctx context.Context, orderNumber, note string, metadata *ClientMetadata) (*dto.PaymentOrderDTO, error) {
	if note == "" {
		return nil, NewBusinessError("RESOLUTION_NOTE_REQUIRED", "a resolution note is required", nil)
	}

	var order *models.PaymentOrder
	err := repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		loaded, err := getOrderByNumber(txCtx, f.orderRepo, orderNumber)
		if err != nil {
			return err
		}
		order = loaded
		if !order.ReviewRequired {
			return nil
		}
		return f.orderRepo.UpdateWithVersion(txCtx, order, order.Version, map[string]any{"review_required": false})
	})
	if err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, ErrConcurrentModification
		}
		return nil, err
	}

	_ = createAuditLog(ctx, f.auditRepo, order, models.AuditActionReviewResolved,
		fmt.Sprintf("Review resolved for order %s: %s", order.OrderNumber, note),
		true, nil, metadata)

	reloaded, err := getOrderByNumber(ctx, f.orderRepo, orderNumber)
	if err != nil {
		return nil, err
	}
	d := ToPaymentOrderDTO(*reloaded)
	return &d, nil
}

func formatOptionalID(id *uint) string {
	if id == nil {
		return ""
	}
	return strconv.FormatUint(uint64(*id), 10)
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
