package models

import (
	"fmt"
	"time"

	"github.com/AronSwan/onlinestore-sub023/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PaymentOrderStatus represents the status of a payment order
type PaymentOrderStatus string

const (
	PaymentOrderStatusPending    PaymentOrderStatus = "PENDING"    // Order created, gateway not yet confirmed acceptance
	PaymentOrderStatusProcessing PaymentOrderStatus = "PROCESSING" // Gateway accepted, waiting for settlement notification
	PaymentOrderStatusSucceeded  PaymentOrderStatus = "SUCCEEDED"  // Payment settled in full
	PaymentOrderStatusFailed     PaymentOrderStatus = "FAILED"     // Gateway rejected or settlement failed
	PaymentOrderStatusCancelled  PaymentOrderStatus = "CANCELLED"  // Explicitly cancelled before settlement
	PaymentOrderStatusExpired    PaymentOrderStatus = "EXPIRED"    // Expiry elapsed before settlement
	PaymentOrderStatusClosed     PaymentOrderStatus = "CLOSED"     // Settled order closed by the merchant
)

// IsTerminal returns true for states that permit no further transition
func (s PaymentOrderStatus) IsTerminal() bool {
	switch s {
	case PaymentOrderStatusSucceeded, PaymentOrderStatusFailed, PaymentOrderStatusCancelled,
		PaymentOrderStatusExpired, PaymentOrderStatusClosed:
		return true
	default:
		return false
	}
}

// PaymentOrderEvent represents a state-machine event applied to an order
type PaymentOrderEvent string

const (
	OrderEventGatewayAccepted      PaymentOrderEvent = "gateway_accepted"      // Provider acknowledged the create call
	OrderEventGatewayRejected      PaymentOrderEvent = "gateway_rejected"      // Provider rejected the create call
	OrderEventExpired              PaymentOrderEvent = "expired"               // Expiry sweep found the order past its deadline
	OrderEventPaidInFull           PaymentOrderEvent = "paid_in_full"          // Verified callback reported full payment
	OrderEventPaymentFailed        PaymentOrderEvent = "payment_failed"        // Verified callback reported failure
	OrderEventConfirmationsReached PaymentOrderEvent = "confirmations_reached" // Crypto confirmations crossed the required threshold
	OrderEventClosed               PaymentOrderEvent = "closed"                // Merchant closed a settled order
	OrderEventCancelled            PaymentOrderEvent = "cancelled"             // Explicit cancel
)

// orderTransitions is the legal transition table. Missing entries are illegal.
var orderTransitions = map[PaymentOrderStatus]map[PaymentOrderEvent]PaymentOrderStatus{
	PaymentOrderStatusPending: {
		OrderEventGatewayAccepted: PaymentOrderStatusProcessing,
		OrderEventGatewayRejected: PaymentOrderStatusFailed,
		OrderEventExpired:         PaymentOrderStatusExpired,
		OrderEventCancelled:       PaymentOrderStatusCancelled,
	},
	PaymentOrderStatusProcessing: {
		OrderEventPaidInFull:           PaymentOrderStatusSucceeded,
		OrderEventPaymentFailed:        PaymentOrderStatusFailed,
		OrderEventConfirmationsReached: PaymentOrderStatusSucceeded,
		OrderEventCancelled:            PaymentOrderStatusCancelled,
	},
	PaymentOrderStatusSucceeded: {
		OrderEventClosed: PaymentOrderStatusClosed,
	},
}

// PaymentMethod identifies the settlement rail of an order
type PaymentMethod string

const (
	PaymentMethodAlipay    PaymentMethod = "ALIPAY"     // QR-redirect rail
	PaymentMethodWechatPay PaymentMethod = "WECHAT_PAY" // QR-redirect rail
	PaymentMethodBankDebit PaymentMethod = "BANK_DEBIT" // Account-debit rail
	PaymentMethodUSDTTron  PaymentMethod = "USDT_TRC20" // USDT on Tron
	PaymentMethodUSDTEth   PaymentMethod = "USDT_ERC20" // USDT on Ethereum
	PaymentMethodBTC       PaymentMethod = "BTC"        // Native Bitcoin
)

// IsCrypto returns true for blockchain settlement methods
func (m PaymentMethod) IsCrypto() bool {
	switch m {
	case PaymentMethodUSDTTron, PaymentMethodUSDTEth, PaymentMethodBTC:
		return true
	default:
		return false
	}
}

// PaymentOrder represents one payment attempt against an external settlement provider
type PaymentOrder struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID          uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"uuid"`
	CorrelationID uuid.UUID `gorm:"type:uuid;index;not null" json:"correlation_id"` // Links related records

	// Identifiers
	OrderNumber     string `gorm:"type:varchar(64);uniqueIndex;not null" json:"order_number"`       // System-generated public ID
	MerchantOrderID string `gorm:"type:varchar(128);uniqueIndex;not null" json:"merchant_order_id"` // Caller-supplied, unique

	// Payment details
	Amount        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Currency      string          `gorm:"type:varchar(8);not null" json:"currency"`
	PaymentMethod PaymentMethod   `gorm:"type:varchar(20);not null;index" json:"payment_method"`
	Subject       string          `gorm:"type:varchar(256);not null" json:"subject"`
	Description   string          `gorm:"type:text" json:"description"`

	// Settlement result
	PaidAmount decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"paid_amount"`
	PaidAt     *time.Time      `json:"paid_at"`

	// Provider linkage; GatewayOrderID is set at most once, when the provider accepts
	GatewayOrderID *string `gorm:"type:varchar(128);index" json:"gateway_order_id"`
	PaymentURL     string  `gorm:"type:text" json:"payment_url"` // Redirect URL for browser rails
	QRPayload      string  `gorm:"type:text" json:"qr_payload"`  // QR-encodable payload (address or code URL)

	// Crypto settlement target, set for blockchain methods
	DepositAddress string `gorm:"type:varchar(128);index" json:"deposit_address"`
	Network        string `gorm:"type:varchar(16)" json:"network"`

	// Merchant callback endpoints
	NotifyURL string `gorm:"type:text" json:"notify_url"`
	ReturnURL string `gorm:"type:text" json:"return_url"`

	// Status tracking
	Status         PaymentOrderStatus `gorm:"type:varchar(16);not null;default:'PENDING';index" json:"status"`
	FailureReason  string             `gorm:"type:text" json:"failure_reason"`
	ReviewRequired bool               `gorm:"not null;default:false;index" json:"review_required"` // Flagged for manual reconciliation

	// Optimistic concurrency counter, incremented on every status write
	Version int `gorm:"not null;default:1" json:"version"`

	// Metadata and audit
	Metadata  datatypes.JSON `gorm:"type:jsonb;default:'{}'" json:"metadata"`
	CreatedAt time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt gorm.DeletedAt  `gorm:"index" json:"deleted_at,omitempty"`

	// Expiration tracking
	ExpiresAt *time.Time `gorm:"index" json:"expires_at"`

	// Relationships
	Refunds       []RefundRecord       `gorm:"foreignKey:PaymentOrderID" json:"refunds,omitempty"`
	Confirmations []ConfirmationRecord `gorm:"foreignKey:PaymentOrderID" json:"confirmations,omitempty"`
}

// BeforeCreate ensures UUID and CorrelationID are set
func (po *PaymentOrder) BeforeCreate(tx *gorm.DB) error {
	if po.UUID == uuid.Nil {
		po.UUID = uuid.New()
	}
	if po.CorrelationID == uuid.Nil {
		po.CorrelationID = uuid.New()
	}
	return nil
}

// IsFinal returns true if the order is in a terminal state
func (po *PaymentOrder) IsFinal() bool {
	return po.Status.IsTerminal()
}

// IsPending returns true if the order has not yet been handed to the gateway
func (po *PaymentOrder) IsPending() bool {
	return po.Status == PaymentOrderStatusPending
}

// IsExpired returns true if the order is past its expiry deadline
func (po *PaymentOrder) IsExpired() bool {
	if po.ExpiresAt == nil {
		return false
	}
	return utils.UTCNow().After(*po.ExpiresAt)
}

// CanTransitionTo reports whether event is legal from the order's current status.
// It returns the target status, or an error for illegal transitions. Terminal
// states return the current status with ok=false and no error; callers treat
// that as a no-op so redelivered notifications stay harmless. The transition
// table is consulted first because a succeeded order may still be closed.
func (po *PaymentOrder) CanTransitionTo(event PaymentOrderEvent) (PaymentOrderStatus, bool, error) {
	if targets, ok := orderTransitions[po.Status]; ok {
		if next, ok := targets[event]; ok {
			return next, true, nil
		}
	}
	if po.Status.IsTerminal() {
		return po.Status, false, nil
	}
	return po.Status, false, fmt.Errorf("illegal transition: %s + %s", po.Status, event)
}

// IsRefundable returns true if refunds may be issued against the order
func (po *PaymentOrder) IsRefundable() bool {
	return po.Status == PaymentOrderStatusSucceeded
}

// PaymentOrderFilter represents filter criteria for payment order queries
type PaymentOrderFilter struct {
	ID              *uint               `json:"id,omitempty"`
	UUID            *uuid.UUID          `json:"uuid,omitempty"`
	CorrelationID   *uuid.UUID          `json:"correlation_id,omitempty"`
	OrderNumber     *string             `json:"order_number,omitempty"`
	MerchantOrderID *string             `json:"merchant_order_id,omitempty"`
	GatewayOrderID  *string             `json:"gateway_order_id,omitempty"`
	DepositAddress  *string             `json:"deposit_address,omitempty"`
	PaymentMethod   *PaymentMethod      `json:"payment_method,omitempty"`
	Currency        *string             `json:"currency,omitempty"`
	Status          *PaymentOrderStatus `json:"status,omitempty"`
	ReviewRequired  *bool               `json:"review_required,omitempty"`
	CreatedAfter    *time.Time          `json:"created_after,omitempty"`
	CreatedBefore   *time.Time          `json:"created_before,omitempty"`
	ExpiresAfter    *time.Time          `json:"expires_after,omitempty"`
	ExpiresBefore   *time.Time          `json:"expires_before,omitempty"`
}
