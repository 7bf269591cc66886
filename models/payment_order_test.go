package models

import (
	"testing"
	"time"

	"github.com/AronSwan/onlinestore-sub023/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderTransitionTable(t *testing.T) {
	// Test every legal edge of the state machine
	t.Run("LegalTransitions", func(t *testing.T) {
		cases := []struct {
			from  PaymentOrderStatus
			event PaymentOrderEvent
			to    PaymentOrderStatus
		}{
			{PaymentOrderStatusPending, OrderEventGatewayAccepted, PaymentOrderStatusProcessing},
			{PaymentOrderStatusPending, OrderEventGatewayRejected, PaymentOrderStatusFailed},
			{PaymentOrderStatusPending, OrderEventExpired, PaymentOrderStatusExpired},
			{PaymentOrderStatusPending, OrderEventCancelled, PaymentOrderStatusCancelled},
			{PaymentOrderStatusProcessing, OrderEventPaidInFull, PaymentOrderStatusSucceeded},
			{PaymentOrderStatusProcessing, OrderEventPaymentFailed, PaymentOrderStatusFailed},
			{PaymentOrderStatusProcessing, OrderEventConfirmationsReached, PaymentOrderStatusSucceeded},
			{PaymentOrderStatusProcessing, OrderEventCancelled, PaymentOrderStatusCancelled},
			{PaymentOrderStatusSucceeded, OrderEventClosed, PaymentOrderStatusClosed},
		}
		for _, tc := range cases {
			order := &PaymentOrder{Status: tc.from}
			next, ok, err := order.CanTransitionTo(tc.event)
			require.NoError(t, err, "%s + %s", tc.from, tc.event)
			assert.True(t, ok, "%s + %s", tc.from, tc.event)
			assert.Equal(t, tc.to, next, "%s + %s", tc.from, tc.event)
		}
	})

	// Test that events redelivered to terminal orders are harmless no-ops
	t.Run("TerminalStatesNoOp", func(t *testing.T) {
		cases := []struct {
			from  PaymentOrderStatus
			event PaymentOrderEvent
		}{
			{PaymentOrderStatusSucceeded, OrderEventPaidInFull},
			{PaymentOrderStatusSucceeded, OrderEventCancelled},
			{PaymentOrderStatusFailed, OrderEventPaidInFull},
			{PaymentOrderStatusFailed, OrderEventExpired},
			{PaymentOrderStatusCancelled, OrderEventGatewayAccepted},
			{PaymentOrderStatusExpired, OrderEventCancelled},
			{PaymentOrderStatusClosed, OrderEventClosed},
		}
		for _, tc := range cases {
			order := &PaymentOrder{Status: tc.from}
			next, ok, err := order.CanTransitionTo(tc.event)
			require.NoError(t, err, "%s + %s", tc.from, tc.event)
			assert.False(t, ok, "%s + %s", tc.from, tc.event)
			assert.Equal(t, tc.from, next, "terminal status must be preserved")
		}
	})

	// Test that a settled order can still be closed despite being terminal
	t.Run("SucceededOrderCanClose", func(t *testing.T) {
		order := &PaymentOrder{Status: PaymentOrderStatusSucceeded}
		next, ok, err := order.CanTransitionTo(OrderEventClosed)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, PaymentOrderStatusClosed, next)
	})

	// Test illegal events from live states
	t.Run("IllegalTransitionsRejected", func(t *testing.T) {
		cases := []struct {
			from  PaymentOrderStatus
			event PaymentOrderEvent
		}{
			{PaymentOrderStatusPending, OrderEventPaidInFull},
			{PaymentOrderStatusPending, OrderEventPaymentFailed},
			{PaymentOrderStatusPending, OrderEventConfirmationsReached},
			{PaymentOrderStatusPending, OrderEventClosed},
			{PaymentOrderStatusProcessing, OrderEventGatewayAccepted},
			{PaymentOrderStatusProcessing, OrderEventExpired},
			{PaymentOrderStatusProcessing, OrderEventClosed},
		}
		for _, tc := range cases {
			order := &PaymentOrder{Status: tc.from}
			_, ok, err := order.CanTransitionTo(tc.event)
			require.Error(t, err, "%s + %s", tc.from, tc.event)
			assert.False(t, ok)
			assert.Contains(t, err.Error(), "illegal transition")
		}
	})
}

func TestPaymentOrderStatusHelpers(t *testing.T) {
	t.Run("IsTerminal", func(t *testing.T) {
		assert.False(t, PaymentOrderStatusPending.IsTerminal())
		assert.False(t, PaymentOrderStatusProcessing.IsTerminal())
		assert.True(t, PaymentOrderStatusSucceeded.IsTerminal())
		assert.True(t, PaymentOrderStatusFailed.IsTerminal())
		assert.True(t, PaymentOrderStatusCancelled.IsTerminal())
		assert.True(t, PaymentOrderStatusExpired.IsTerminal())
		assert.True(t, PaymentOrderStatusClosed.IsTerminal())
	})

	t.Run("IsRefundable", func(t *testing.T) {
		assert.True(t, (&PaymentOrder{Status: PaymentOrderStatusSucceeded}).IsRefundable())
		assert.False(t, (&PaymentOrder{Status: PaymentOrderStatusProcessing}).IsRefundable())
		assert.False(t, (&PaymentOrder{Status: PaymentOrderStatusFailed}).IsRefundable())
		assert.False(t, (&PaymentOrder{Status: PaymentOrderStatusClosed}).IsRefundable())
	})

	t.Run("IsExpired", func(t *testing.T) {
		assert.False(t, (&PaymentOrder{}).IsExpired(), "no deadline means never expired")

		past := utils.UTCNow().Add(-time.Minute)
		assert.True(t, (&PaymentOrder{ExpiresAt: &past}).IsExpired())

		future := utils.UTCNow().Add(time.Hour)
		assert.False(t, (&PaymentOrder{ExpiresAt: &future}).IsExpired())
	})
}

func TestPaymentMethodIsCrypto(t *testing.T) {
	assert.True(t, PaymentMethodUSDTTron.IsCrypto())
	assert.True(t, PaymentMethodUSDTEth.IsCrypto())
	assert.True(t, PaymentMethodBTC.IsCrypto())
	assert.False(t, PaymentMethodAlipay.IsCrypto())
	assert.False(t, PaymentMethodWechatPay.IsCrypto())
	assert.False(t, PaymentMethodBankDebit.IsCrypto())
}

func TestRefundStatusHelpers(t *testing.T) {
	// Test which refund states hold a slice of the refundable balance
	t.Run("CountsAgainstBalance", func(t *testing.T) {
		assert.True(t, RefundStatusPending.CountsAgainstBalance())
		assert.True(t, RefundStatusProcessing.CountsAgainstBalance())
		assert.True(t, RefundStatusSucceeded.CountsAgainstBalance())
		assert.False(t, RefundStatusFailed.CountsAgainstBalance(), "failed refunds release their reservation")
	})

	t.Run("IsFinal", func(t *testing.T) {
		assert.False(t, RefundStatusPending.IsFinal())
		assert.False(t, RefundStatusProcessing.IsFinal())
		assert.True(t, RefundStatusSucceeded.IsFinal())
		assert.True(t, RefundStatusFailed.IsFinal())
	})
}

func TestCallbackEventIsSettled(t *testing.T) {
	assert.False(t, (&CallbackEvent{Outcome: CallbackOutcomePending}).IsSettled())
	assert.True(t, (&CallbackEvent{Outcome: CallbackOutcomeApplied}).IsSettled())
	assert.True(t, (&CallbackEvent{Outcome: CallbackOutcomeAmountMismatch}).IsSettled())
	assert.True(t, (&CallbackEvent{Outcome: CallbackOutcomeOrderNotFound}).IsSettled())
	assert.True(t, (&CallbackEvent{Outcome: CallbackOutcomeIgnoredTerminal}).IsSettled())
	assert.True(t, (&CallbackEvent{Outcome: CallbackOutcomeIgnoredIllegal}).IsSettled())
}

func TestConfirmationRecordIsConfirmed(t *testing.T) {
	assert.False(t, (&ConfirmationRecord{Confirmations: 5, RequiredConfirmations: 6}).IsConfirmed())
	assert.True(t, (&ConfirmationRecord{Confirmations: 6, RequiredConfirmations: 6}).IsConfirmed())
	assert.True(t, (&ConfirmationRecord{Confirmations: 9, RequiredConfirmations: 6}).IsConfirmed())
}
