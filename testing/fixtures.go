// Package testing provides test utilities and database setup for testing the payment platform
package testing

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/AronSwan/onlinestore-sub023/models"
	"github.com/AronSwan/onlinestore-sub023/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestOrder creates a payment order in the given status. Succeeded
// orders get their paid amount and timestamp filled in, crypto orders get a
// deposit address on the matching network.
func (tf *TestFixtures) CreateTestOrder(status models.PaymentOrderStatus, method models.PaymentMethod, amount string) (*models.PaymentOrder, error) {
	amt, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", amount, err)
	}

	n := rand.Intn(1000000)
	expiresAt := utils.UTCNow().Add(time.Hour)

	order := &models.PaymentOrder{
		OrderNumber:     fmt.Sprintf("PO-%s-%d", uuid.New().String(), time.Now().Unix()),
		MerchantOrderID: fmt.Sprintf("merchant-%d-%d", time.Now().UnixNano(), n),
		Amount:          amt,
		Currency:        utils.CNYCurrency,
		PaymentMethod:   method,
		Subject:         "Test order",
		NotifyURL:       "https://merchant.example.com/notify",
		Status:          status,
		ExpiresAt:       &expiresAt,
	}

	if method.IsCrypto() {
		order.Currency = utils.USDTCurrency
		order.Network = testNetworkForMethod(method)
		order.DepositAddress = testAddressForNetwork(order.Network, n)
	}

	if status != models.PaymentOrderStatusPending {
		gatewayOrderID := fmt.Sprintf("gw-%d-%d", time.Now().UnixNano(), n)
		order.GatewayOrderID = &gatewayOrderID
	}

	if status == models.PaymentOrderStatusSucceeded || status == models.PaymentOrderStatusClosed {
		order.PaidAmount = amt
		order.PaidAt = utils.ToPtr(utils.UTCNow())
	}

	if err := tf.DB.DB.Create(order).Error; err != nil {
		return nil, fmt.Errorf("failed to create test order: %w", err)
	}

	return order, nil
}

// CreateExpiredOrder creates a pending order whose deadline is already in the past
func (tf *TestFixtures) CreateExpiredOrder(method models.PaymentMethod, amount string) (*models.PaymentOrder, error) {
	order, err := tf.CreateTestOrder(models.PaymentOrderStatusPending, method, amount)
	if err != nil {
		return nil, err
	}

	expiresAt := utils.UTCNow().Add(-time.Hour)
	if err := tf.DB.DB.Model(order).Update("expires_at", expiresAt).Error; err != nil {
		return nil, fmt.Errorf("failed to backdate test order: %w", err)
	}
	order.ExpiresAt = &expiresAt

	return order, nil
}

// CreateTestRefund creates a refund record against the given order
func (tf *TestFixtures) CreateTestRefund(orderID uint, amount string, status models.RefundStatus) (*models.RefundRecord, error) {
	amt, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", amount, err)
	}

	refund := &models.RefundRecord{
		RefundNumber:   fmt.Sprintf("RF-%s-%d", uuid.New().String(), time.Now().Unix()),
		PaymentOrderID: orderID,
		Amount:         amt,
		Currency:       utils.CNYCurrency,
		Reason:         "Test refund",
		Status:         status,
	}

	if err := tf.DB.DB.Create(refund).Error; err != nil {
		return nil, fmt.Errorf("failed to create test refund: %w", err)
	}

	return refund, nil
}

// CreateTestConfirmation creates a confirmation record for an on-chain transfer
func (tf *TestFixtures) CreateTestConfirmation(orderID uint, network, txHash, toAddress, amount string, confirmations, required int) (*models.ConfirmationRecord, error) {
	amt, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", amount, err)
	}

	record := &models.ConfirmationRecord{
		TxHash:                txHash,
		Network:               network,
		PaymentOrderID:        orderID,
		ToAddress:             toAddress,
		Amount:                amt,
		Confirmations:         confirmations,
		RequiredConfirmations: required,
	}

	if err := tf.DB.DB.Create(record).Error; err != nil {
		return nil, fmt.Errorf("failed to create test confirmation: %w", err)
	}

	return record, nil
}

// CreateTestCallbackEvent creates a verified callback event in the given outcome
func (tf *TestFixtures) CreateTestCallbackEvent(provider, dedupeKey string, orderID *uint, outcome models.CallbackOutcome) (*models.CallbackEvent, error) {
	event := &models.CallbackEvent{
		DedupeKey:      dedupeKey,
		Provider:       provider,
		EventType:      "settlement",
		GatewayOrderID: fmt.Sprintf("gw-%d", rand.Intn(1000000)),
		PaymentOrderID: orderID,
		RawPayload:     []byte(`{"test":true}`),
		PayloadDigest:  fmt.Sprintf("%064d", rand.Intn(1000000)),
		Amount:         decimal.Zero,
		VerifiedAt:     utils.UTCNow(),
		Outcome:        outcome,
	}

	if err := tf.DB.DB.Create(event).Error; err != nil {
		return nil, fmt.Errorf("failed to create test callback event: %w", err)
	}

	return event, nil
}

func testNetworkForMethod(method models.PaymentMethod) string {
	switch method {
	case models.PaymentMethodUSDTTron:
		return utils.NetworkTron
	case models.PaymentMethodUSDTEth:
		return utils.NetworkEthereum
	case models.PaymentMethodBTC:
		return utils.NetworkBitcoin
	default:
		return ""
	}
}

func testAddressForNetwork(network string, n int) string {
	switch network {
	case utils.NetworkTron:
		return fmt.Sprintf("TTestDepositAddress%026d", n)
	case utils.NetworkEthereum:
		return fmt.Sprintf("0x%040d", n)
	case utils.NetworkBitcoin:
		return fmt.Sprintf("bc1qtestdeposit%027d", n)
	default:
		return ""
	}
}
