package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ConfirmationRecord tracks one observed blockchain transaction paying an
// order. Created on first observation, its confirmation count only moves
// forward; CreditedAt marks the single observation that settled the order.
type ConfirmationRecord struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID          uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"uuid"`
	CorrelationID uuid.UUID `gorm:"type:uuid;index;not null" json:"correlation_id"`

	// Transaction identity; one row per transaction per network
	TxHash  string `gorm:"type:varchar(128);not null;uniqueIndex:idx_confirmation_network_tx" json:"tx_hash"`
	Network string `gorm:"type:varchar(16);not null;uniqueIndex:idx_confirmation_network_tx" json:"network"`

	// Owning order
	PaymentOrderID uint `gorm:"not null;index" json:"payment_order_id"`

	// Observed transfer
	FromAddress string          `gorm:"type:varchar(128)" json:"from_address"`
	ToAddress   string          `gorm:"type:varchar(128);not null;index" json:"to_address"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,8);not null" json:"amount"`

	// Confirmation progress
	Confirmations         int `gorm:"not null;default:0" json:"confirmations"`
	RequiredConfirmations int `gorm:"not null" json:"required_confirmations"` // Amount-tier policy, fixed at first observation

	// CreditedAt is set exactly once, when the confirmation threshold first
	// settles the owning order
	CreditedAt *time.Time `json:"credited_at"`

	CreatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	// Relationships
	PaymentOrder PaymentOrder `gorm:"foreignKey:PaymentOrderID;constraint:OnDelete:CASCADE" json:"payment_order,omitempty"`
}

// BeforeCreate ensures UUID and CorrelationID are set
func (cr *ConfirmationRecord) BeforeCreate(tx *gorm.DB) error {
	if cr.UUID == uuid.Nil {
		cr.UUID = uuid.New()
	}
	if cr.CorrelationID == uuid.Nil {
		cr.CorrelationID = uuid.New()
	}
	return nil
}

// IsConfirmed returns true once the observed confirmations meet the policy threshold
func (cr *ConfirmationRecord) IsConfirmed() bool {
	return cr.Confirmations >= cr.RequiredConfirmations
}

// ConfirmationRecordFilter represents filter criteria for confirmation queries
type ConfirmationRecordFilter struct {
	ID             *uint      `json:"id,omitempty"`
	TxHash         *string    `json:"tx_hash,omitempty"`
	Network        *string    `json:"network,omitempty"`
	PaymentOrderID *uint      `json:"payment_order_id,omitempty"`
	ToAddress      *string    `json:"to_address,omitempty"`
	Credited       *bool      `json:"credited,omitempty"`
	CreatedAfter   *time.Time `json:"created_after,omitempty"`
	CreatedBefore  *time.Time `json:"created_before,omitempty"`
}
