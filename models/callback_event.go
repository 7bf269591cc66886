package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CallbackOutcome records the final disposition of an inbound notification
type CallbackOutcome string

const (
	CallbackOutcomePending         CallbackOutcome = ""                 // Inserted, transition not yet attempted
	CallbackOutcomeApplied         CallbackOutcome = "applied"          // Transition committed
	CallbackOutcomeAmountMismatch  CallbackOutcome = "amount_mismatch"  // Notified amount disagreed with the order, flagged for review
	CallbackOutcomeOrderNotFound   CallbackOutcome = "order_not_found"  // No order matched the provider reference
	CallbackOutcomeIgnoredTerminal CallbackOutcome = "ignored_terminal" // Order already terminal, redelivery acknowledged
	CallbackOutcomeIgnoredIllegal  CallbackOutcome = "ignored_illegal"  // Transition illegal from the order's state, logged
)

// CallbackEvent is the dedupe ledger for inbound provider notifications.
// Exactly one row exists per distinct notification; the unique DedupeKey
// insert is the sole idempotency guard against at-least-once redelivery.
// Rows are never mutated after AppliedAt is set.
type CallbackEvent struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID          uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"uuid"`
	CorrelationID uuid.UUID `gorm:"type:uuid;index;not null" json:"correlation_id"`

	// Identity of the notification
	DedupeKey string `gorm:"type:varchar(256);uniqueIndex;not null" json:"dedupe_key"`
	Provider  string `gorm:"type:varchar(32);not null;index" json:"provider"`
	EventType string `gorm:"type:varchar(64);not null" json:"event_type"`

	// Provider references used to resolve the owning order
	GatewayOrderID string `gorm:"type:varchar(128);index" json:"gateway_order_id"`
	PaymentOrderID *uint  `gorm:"index" json:"payment_order_id"` // Set once the order is resolved

	// Verified payload, kept verbatim for reconciliation
	RawPayload    json.RawMessage `gorm:"type:jsonb;not null" json:"raw_payload"`
	PayloadDigest string          `gorm:"type:varchar(64);not null" json:"payload_digest"` // sha256 hex of the raw payload
	Amount        decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"amount"`

	// Processing trail
	VerifiedAt    time.Time       `gorm:"not null" json:"verified_at"`
	AppliedAt     *time.Time      `json:"applied_at"` // Set exactly once, after the transition commits
	Outcome       CallbackOutcome `gorm:"type:varchar(32);not null;default:''" json:"outcome"`
	FailureReason string          `gorm:"type:text" json:"failure_reason"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// BeforeCreate ensures UUID and CorrelationID are set
func (ce *CallbackEvent) BeforeCreate(tx *gorm.DB) error {
	if ce.UUID == uuid.Nil {
		ce.UUID = uuid.New()
	}
	if ce.CorrelationID == uuid.Nil {
		ce.CorrelationID = uuid.New()
	}
	return nil
}

// IsSettled returns true once a disposition has been recorded; settled events
// answer redeliveries without reprocessing
func (ce *CallbackEvent) IsSettled() bool {
	return ce.Outcome != CallbackOutcomePending
}

// CallbackEventFilter represents filter criteria for callback event queries
type CallbackEventFilter struct {
	ID             *uint            `json:"id,omitempty"`
	DedupeKey      *string          `json:"dedupe_key,omitempty"`
	Provider       *string          `json:"provider,omitempty"`
	GatewayOrderID *string          `json:"gateway_order_id,omitempty"`
	PaymentOrderID *uint            `json:"payment_order_id,omitempty"`
	Outcome        *CallbackOutcome `json:"outcome,omitempty"`
	Applied        *bool            `json:"applied,omitempty"`
	CreatedAfter   *time.Time       `json:"created_after,omitempty"`
	CreatedBefore  *time.Time       `json:"created_before,omitempty"`
}
