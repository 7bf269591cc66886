package services

import (
	"context"
	"errors"
	"time"

	"github.com/AronSwan/onlinestore-sub023/models"
	"github.com/shopspring/decimal"
)

// Provider-normalized payment states reported by QueryPayment
const (
	GatewayStatusPending = "pending"
	GatewayStatusPaid    = "paid"
	GatewayStatusFailed  = "failed"
)

var (
	// ErrGatewayRejected marks a definitive provider rejection, never retried
	ErrGatewayRejected = errors.New("gateway rejected the request")
	// ErrRefundUnsupported is returned by adapters whose rail cannot reverse payments
	ErrRefundUnsupported = errors.New("refund not supported by this gateway")
)

type CreatePaymentResult struct {
	GatewayOrderID string
	PaymentURL     string
	QRPayload      string
	DepositAddress string
	Network        string
	ExpiresAt      *time.Time // provider-imposed payment deadline, nil when the provider reports none
}

type QueryPaymentResult struct {
	Status        string // pending|paid|failed
	PaidAmount    decimal.Decimal
	PaidAt        *time.Time
	FailureReason string
}

type RefundResult struct {
	GatewayRefundID string
	Status          string // pending|paid|failed, refund lifecycle reuses the same states
}

// GatewayAdapter is the uniform surface the flows drive payment rails
// through. Implementations own signing, transport and provider quirks; the
// flows own order state.
type GatewayAdapter interface {
	Name() string
	CreatePayment(ctx context.Context, order *models.PaymentOrder) (*CreatePaymentResult, error)
	QueryPayment(ctx context.Context, order *models.PaymentOrder) (*QueryPaymentResult, error)
	Refund(ctx context.Context, order *models.PaymentOrder, refund *models.RefundRecord) (*RefundResult, error)
}
