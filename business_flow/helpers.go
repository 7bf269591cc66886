package businessflow

import (
	"context"

	"github.com/AronSwan/onlinestore-sub023/models"
	"github.com/AronSwan/onlinestore-sub023/repository"
	"github.com/AronSwan/onlinestore-sub023/utils"
)

// getOrderByNumber loads a payment order by its public order number
func getOrderByNumber(ctx context.Context, orderRepo repository.PaymentOrderRepository, orderNumber string) (*models.PaymentOrder, error) {
	order, err := orderRepo.ByOrderNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// getOrderByID loads a payment order by its primary key
func getOrderByID(ctx context.Context, orderRepo repository.PaymentOrderRepository, orderID uint) (*models.PaymentOrder, error) {
	order, err := orderRepo.ByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// createAuditLog creates an audit log entry tied to a payment order
func createAuditLog(ctx context.Context, auditRepo repository.AuditLogRepository, order *models.PaymentOrder, action, description string, success bool, errorMsg *string, metadata *ClientMetadata) error {
	var orderID *uint
	if order != nil {
		orderID = &order.ID
	}
	return createAuditLogWithRefs(ctx, auditRepo, orderID, nil, nil, action, description, success, errorMsg, metadata)
}

// createRefundAuditLog creates an audit log entry tied to a refund record
func createRefundAuditLog(ctx context.Context, auditRepo repository.AuditLogRepository, order *models.PaymentOrder, refund *models.RefundRecord, action, description string, success bool, errorMsg *string, metadata *ClientMetadata) error {
	var orderID, refundID *uint
	if order != nil {
		orderID = &order.ID
	}
	if refund != nil {
		refundID = &refund.ID
	}
	return createAuditLogWithRefs(ctx, auditRepo, orderID, refundID, nil, action, description, success, errorMsg, metadata)
}

// createCallbackAuditLog creates an audit log entry tied to a callback event
func createCallbackAuditLog(ctx context.Context, auditRepo repository.AuditLogRepository, orderID *uint, event *models.CallbackEvent, action, description string, success bool, errorMsg *string, metadata *ClientMetadata) error {
	var eventID *uint
	if event != nil {
		eventID = &event.ID
	}
	return createAuditLogWithRefs(ctx, auditRepo, orderID, nil, eventID, action, description, success, errorMsg, metadata)
}

func createAuditLogWithRefs(ctx context.Context, auditRepo repository.AuditLogRepository, orderID, refundID, eventID *uint, action, description string, success bool, errorMsg *string, metadata *ClientMetadata) error {
	ipAddress := ""
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}

	audit := &models.AuditLog{
		PaymentOrderID:  orderID,
		RefundRecordID:  refundID,
		CallbackEventID: eventID,
		Action:          action,
		Description:     &description,
		Success:         utils.ToPtr(success),
		IPAddress:       &ipAddress,
		UserAgent:       &userAgent,
		ErrorMessage:    errorMsg,
	}

	// Extract request ID from context if available
	requestID := ctx.Value(RequestIDKey)
	if requestID != nil {
		requestIDStr, ok := requestID.(string)
		if ok {
			audit.RequestID = &requestIDStr
		}
	}

	return auditRepo.Save(ctx, audit)
}
