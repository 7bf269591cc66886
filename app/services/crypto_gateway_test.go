package services

import (
	"context"
	"testing"

	"github.com/AronSwan/onlinestore-sub023/models"
	"github.com/AronSwan/onlinestore-sub023/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCryptoGatewayAdapter(t *testing.T) {
	ctx := context.Background()

	newAdapter := func(t *testing.T, pools map[string][]string) *CryptoGatewayAdapter {
		adapter, err := NewCryptoGatewayAdapter(pools)
		require.NoError(t, err)
		return adapter
	}

	// Test that payment creation assigns a pool address for the order's network
	t.Run("CreatePaymentAssignsDepositAddress", func(t *testing.T) {
		adapter := newAdapter(t, map[string][]string{
			utils.NetworkTron: {"TTronAddressOne", "TTronAddressTwo"},
		})
		order := &models.PaymentOrder{
			PaymentMethod: models.PaymentMethodUSDTTron,
			Amount:        decimal.RequireFromString("150.00"),
		}

		result, err := adapter.CreatePayment(ctx, order)
		require.NoError(t, err)
		assert.Equal(t, "TTronAddressOne", result.DepositAddress)
		assert.Equal(t, utils.NetworkTron, result.Network)
		assert.Equal(t, "TTronAddressOne", result.QRPayload)
		assert.Empty(t, result.GatewayOrderID)
	})

	// Test round-robin assignment across the pool
	t.Run("AddressesRotateRoundRobin", func(t *testing.T) {
		adapter := newAdapter(t, map[string][]string{
			utils.NetworkTron: {"TAddrA", "TAddrB"},
		})
		order := &models.PaymentOrder{
			PaymentMethod: models.PaymentMethodUSDTTron,
			Amount:        decimal.RequireFromString("10.00"),
		}

		var assigned []string
		for i := 0; i < 4; i++ {
			result, err := adapter.CreatePayment(ctx, order)
			require.NoError(t, err)
			assigned = append(assigned, result.DepositAddress)
		}
		assert.Equal(t, []string{"TAddrA", "TAddrB", "TAddrA", "TAddrB"}, assigned)
	})

	// Test the BIP-21 payload for Bitcoin orders
	t.Run("BitcoinQRPayloadCarriesAmount", func(t *testing.T) {
		adapter := newAdapter(t, map[string][]string{
			utils.NetworkBitcoin: {"bc1qexampledeposit"},
		})
		order := &models.PaymentOrder{
			PaymentMethod: models.PaymentMethodBTC,
			Amount:        decimal.RequireFromString("0.0015"),
		}

		result, err := adapter.CreatePayment(ctx, order)
		require.NoError(t, err)
		assert.Equal(t, "bitcoin:bc1qexampledeposit?amount=0.0015", result.QRPayload)
	})

	// Test exhausted and missing pools
	t.Run("EmptyPoolReportsNoAddress", func(t *testing.T) {
		adapter := newAdapter(t, map[string][]string{})
		order := &models.PaymentOrder{
			PaymentMethod: models.PaymentMethodBTC,
			Amount:        decimal.RequireFromString("1"),
		}

		_, err := adapter.CreatePayment(ctx, order)
		assert.ErrorIs(t, err, ErrNoAddressAvailable)
	})

	// Test that fiat methods are refused by the on-chain adapter
	t.Run("FiatMethodUnsupported", func(t *testing.T) {
		adapter := newAdapter(t, map[string][]string{})
		order := &models.PaymentOrder{PaymentMethod: models.PaymentMethodAlipay}

		_, err := adapter.CreatePayment(ctx, order)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported payment method")
	})

	// Test that queries always report pending
	t.Run("QueryPaymentAlwaysPending", func(t *testing.T) {
		adapter := newAdapter(t, map[string][]string{})
		result, err := adapter.QueryPayment(ctx, &models.PaymentOrder{})
		require.NoError(t, err)
		assert.Equal(t, GatewayStatusPending, result.Status)
	})

	// Test that refunds are refused outright
	t.Run("RefundUnsupported", func(t *testing.T) {
		adapter := newAdapter(t, map[string][]string{})
		_, err := adapter.Refund(ctx, &models.PaymentOrder{}, &models.RefundRecord{})
		assert.ErrorIs(t, err, ErrRefundUnsupported)
	})
}

func TestCryptoGatewayAddressValidation(t *testing.T) {
	// Test EIP-55 normalization against the reference vectors
	t.Run("EthereumAddressesChecksummed", func(t *testing.T) {
		adapter, err := NewCryptoGatewayAdapter(map[string][]string{
			utils.NetworkEthereum: {
				"0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed",
				"0XFB6916095CA1DF60BB79CE92CE3EA74C37C5D359",
			},
		})
		require.NoError(t, err)

		order := &models.PaymentOrder{
			PaymentMethod: models.PaymentMethodUSDTEth,
			Amount:        decimal.RequireFromString("25.00"),
		}
		first, err := adapter.CreatePayment(context.Background(), order)
		require.NoError(t, err)
		assert.Equal(t, "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", first.DepositAddress)

		second, err := adapter.CreatePayment(context.Background(), order)
		require.NoError(t, err)
		assert.Equal(t, "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359", second.DepositAddress)
	})

	// Test that malformed pool entries fail construction
	t.Run("MalformedEthereumAddressRejected", func(t *testing.T) {
		_, err := NewCryptoGatewayAdapter(map[string][]string{
			utils.NetworkEthereum: {"0x1234"},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "malformed")

		_, err = NewCryptoGatewayAdapter(map[string][]string{
			utils.NetworkEthereum: {"0xZZZZb6053f3e94c9b9a09f33669435e7ef1beaed"},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "malformed")
	})

	// Test that non-Ethereum pools pass through untouched
	t.Run("OtherNetworksNotValidated", func(t *testing.T) {
		adapter, err := NewCryptoGatewayAdapter(map[string][]string{
			utils.NetworkTron:    {"TAnyFormTronAddress"},
			utils.NetworkBitcoin: {"bc1qanything"},
		})
		require.NoError(t, err)
		require.NotNil(t, adapter)
	})
}
