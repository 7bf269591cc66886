// Package models contains domain entities and business models for the payment core
package models

import (
	"encoding/json"
	"time"
)

// AuditLog is the append-only trail of financial-impacting events. Every
// money-moving anomaly (amount mismatch, refund failure, illegal transition)
// lands here with enough context for manual reconciliation.
type AuditLog struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	PaymentOrderID  *uint           `gorm:"index:idx_audit_payment_order_id" json:"payment_order_id,omitempty"`
	RefundRecordID  *uint           `gorm:"index:idx_audit_refund_record_id" json:"refund_record_id,omitempty"`
	CallbackEventID *uint           `gorm:"index:idx_audit_callback_event_id" json:"callback_event_id,omitempty"`
	Action          string          `gorm:"size:64;not null;index:idx_audit_action" json:"action"`
	Description     *string         `gorm:"type:text" json:"description,omitempty"`
	PayloadDigest   *string         `gorm:"size:64" json:"payload_digest,omitempty"` // sha256 hex of the triggering payload
	IPAddress       *string         `gorm:"size:64;index:idx_audit_ip_address" json:"ip_address,omitempty"`
	UserAgent       *string         `gorm:"type:text" json:"user_agent,omitempty"`
	RequestID       *string         `gorm:"size:255;index:idx_audit_request_id" json:"request_id,omitempty"`
	Metadata        json.RawMessage `gorm:"type:jsonb" json:"metadata,omitempty"`
	Success         *bool           `gorm:"default:true;index:idx_audit_success" json:"success"`
	ErrorMessage    *string         `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt       time.Time       `gorm:"default:CURRENT_TIMESTAMP;index:idx_audit_created_at" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_log"
}

// Audit action constants
const (
	AuditActionOrderCreated              = "order_created"
	AuditActionOrderGatewayAccepted      = "order_gateway_accepted"
	AuditActionOrderGatewayRejected      = "order_gateway_rejected"
	AuditActionOrderSucceeded            = "order_succeeded"
	AuditActionOrderFailed               = "order_failed"
	AuditActionOrderCancelled            = "order_cancelled"
	AuditActionOrderExpired              = "order_expired"
	AuditActionOrderClosed               = "order_closed"
	AuditActionCallbackApplied           = "callback_applied"
	AuditActionCallbackAmountMismatch    = "callback_amount_mismatch"
	AuditActionCallbackOrderNotFound     = "callback_order_not_found"
	AuditActionCallbackIllegalTransition = "callback_illegal_transition"
	AuditActionCallbackSignatureRejected = "callback_signature_rejected"
	AuditActionRefundRequested           = "refund_requested"
	AuditActionRefundSucceeded           = "refund_succeeded"
	AuditActionRefundFailed              = "refund_failed"
	AuditActionConfirmationCredited      = "confirmation_credited"
	AuditActionObservationUnmatched      = "observation_unmatched"
	AuditActionReviewResolved            = "review_resolved"
)

// AuditLogFilter represents filter criteria for audit log queries
type AuditLogFilter struct {
	ID             *uint
	PaymentOrderID *uint
	RefundRecordID *uint
	Action         *string
	Success        *bool
	IPAddress      *string
	RequestID      *string
	CreatedAfter   *time.Time
	CreatedBefore  *time.Time
}

func (a *AuditLog) IsFailed() bool {
	return a.Success != nil && !*a.Success
}

// IsReconciliationEvent reports whether the entry belongs in the manual
// reconciliation export
func (a *AuditLog) IsReconciliationEvent() bool {
	reconciliationActions := map[string]bool{
		AuditActionCallbackAmountMismatch:    true,
		AuditActionCallbackOrderNotFound:     true,
		AuditActionCallbackIllegalTransition: true,
		AuditActionRefundFailed:              true,
		AuditActionObservationUnmatched:      true,
	}
	return reconciliationActions[a.Action]
}
