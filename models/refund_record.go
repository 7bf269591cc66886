package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RefundStatus represents the current status of a refund
type RefundStatus string

const (
	RefundStatusPending    RefundStatus = "PENDING"    // Refund recorded, provider call not yet confirmed
	RefundStatusProcessing RefundStatus = "PROCESSING" // Provider accepted, settlement in progress
	RefundStatusSucceeded  RefundStatus = "SUCCEEDED"  // Refund settled
	RefundStatusFailed     RefundStatus = "FAILED"     // Provider rejected or settlement failed
)

// IsFinal returns true once the refund can no longer change state
func (s RefundStatus) IsFinal() bool {
	return s == RefundStatusSucceeded || s == RefundStatusFailed
}

// CountsAgainstBalance reports whether the refund reserves part of the
// refundable balance. FAILED refunds release their reservation; everything
// else holds it so concurrent refunds cannot overdraw.
func (s RefundStatus) CountsAgainstBalance() bool {
	return s != RefundStatusFailed
}

// RefundRecord represents one refund issued against a settled payment order
type RefundRecord struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID          uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"uuid"`
	CorrelationID uuid.UUID `gorm:"type:uuid;index;not null" json:"correlation_id"` // Links related records

	// Owning order
	PaymentOrderID uint `gorm:"not null;index" json:"payment_order_id"`

	// Refund details
	RefundNumber string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"refund_number"` // System-generated public ID
	Amount       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Currency     string          `gorm:"type:varchar(8);not null" json:"currency"`
	Reason       string          `gorm:"type:varchar(256);not null" json:"reason"`
	Description  string          `gorm:"type:text" json:"description"`

	// Status tracking
	Status        RefundStatus `gorm:"type:varchar(16);not null;default:'PENDING';index" json:"status"`
	FailureReason string       `gorm:"type:text" json:"failure_reason"`

	// External provider information
	GatewayRefundID string `gorm:"type:varchar(128);index" json:"gateway_refund_id"` // Provider refund reference

	// Metadata and audit
	Metadata  datatypes.JSON `gorm:"type:jsonb;default:'{}'" json:"metadata"`
	CreatedAt time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt gorm.DeletedAt  `gorm:"index" json:"deleted_at,omitempty"`

	// Relationships
	PaymentOrder PaymentOrder `gorm:"foreignKey:PaymentOrderID;constraint:OnDelete:CASCADE" json:"payment_order,omitempty"`
}

// BeforeCreate ensures UUID and CorrelationID are set
func (rr *RefundRecord) BeforeCreate(tx *gorm.DB) error {
	if rr.UUID == uuid.Nil {
		rr.UUID = uuid.New()
	}
	if rr.CorrelationID == uuid.Nil {
		rr.CorrelationID = uuid.New()
	}
	return nil
}

// RefundRecordFilter represents filter criteria for refund queries
type RefundRecordFilter struct {
	ID              *uint         `json:"id,omitempty"`
	UUID            *uuid.UUID    `json:"uuid,omitempty"`
	CorrelationID   *uuid.UUID    `json:"correlation_id,omitempty"`
	PaymentOrderID  *uint         `json:"payment_order_id,omitempty"`
	RefundNumber    *string       `json:"refund_number,omitempty"`
	GatewayRefundID *string       `json:"gateway_refund_id,omitempty"`
	Status          *RefundStatus `json:"status,omitempty"`
	Currency        *string       `json:"currency,omitempty"`
	CreatedAfter    *time.Time    `json:"created_after,omitempty"`
	CreatedBefore   *time.Time    `json:"created_before,omitempty"`
}
