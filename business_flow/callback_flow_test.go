package businessflow

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AronSwan/onlinestore-sub023/app/dto"
	"github.com/AronSwan/onlinestore-sub023/app/services"
	"github.com/AronSwan/onlinestore-sub023/models"
	testingutil "github.com/AronSwan/onlinestore-sub023/testing"
)

const (
	alipayCallbackSecret   = "alipay-callback-secret-1"
	bankgateCallbackSecret = "bankgate-callback-secret-1"
)

func newCallbackEnv(testDB *testingutil.TestDB) (*flowEnv, CallbackFlow, map[string]services.SignatureService) {
	env := newFlowEnv(testDB)
	verifiers := map[string]services.SignatureService{
		ProviderAlipay:   services.NewHMACSignatureService(alipayCallbackSecret, 5*time.Minute),
		ProviderBankGate: services.NewHMACSignatureService(bankgateCallbackSecret, 5*time.Minute),
	}
	flow := NewCallbackFlow(env.eventRepo, env.orderRepo, env.auditRepo, env.orderFlow, verifiers)
	return env, flow, verifiers
}

func alipayNotification(signer services.SignatureService, notifyID, tradeNo, tradeStatus, paidAmount string) map[string]string {
	params := map[string]string{
		"notify_id":    notifyID,
		"trade_no":     tradeNo,
		"trade_status": tradeStatus,
	}
	if paidAmount != "" {
		params["paid_amount"] = paidAmount
	}
	return signer.SignRequest(params)
}

func bankNotification(signer services.SignatureService, notifyID, debitID, state, amount, failureReason string) map[string]string {
	params := map[string]string{
		"notify_id": notifyID,
		"debit_id":  debitID,
		"state":     state,
	}
	if amount != "" {
		params["amount"] = amount
	}
	if failureReason != "" {
		params["failure_reason"] = failureReason
	}
	return signer.SignRequest(params)
}

func TestCallbackFlowProcessGatewayCallback(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		env, flow, verifiers := newCallbackEnv(testDB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()
		metadata := NewClientMetadata("198.51.100.4", "alipay-notify/1.0")

		t.Run("SettlementAppliesOrder", func(t *testing.T) {
			order, err := fixtures.CreateTestOrder(models.PaymentOrderStatusProcessing, models.PaymentMethodAlipay, "100.00")
			require.NoError(t, err)

			ack, err := flow.ProcessGatewayCallback(ctx, &dto.GatewayCallbackRequest{
				Provider: ProviderAlipay,
				Params:   alipayNotification(verifiers[ProviderAlipay], "N-2001", *order.GatewayOrderID, "SUCCESS", "100.00"),
			}, metadata)
			require.NoError(t, err)

			assert.Equal(t, string(models.CallbackOutcomeApplied), ack.Outcome)
			assert.False(t, ack.Duplicate)
			assert.Equal(t, order.OrderNumber, ack.OrderNumber)
			assert.Equal(t, string(models.PaymentOrderStatusSucceeded), ack.OrderStatus)

			stored, err := env.orderRepo.ByID(ctx, order.ID)
			require.NoError(t, err)
			assert.Equal(t, models.PaymentOrderStatusSucceeded, stored.Status)
			assert.True(t, stored.PaidAmount.Equal(order.Amount))

			event, err := env.eventRepo.ByDedupeKey(ctx, "alipay:N-2001")
			require.NoError(t, err)
			require.NotNil(t, event)
			assert.Equal(t, models.CallbackOutcomeApplied, event.Outcome)
			assert.Equal(t, "trade_status_sync", event.EventType)
			assert.NotNil(t, event.AppliedAt)
			require.NotNil(t, event.PaymentOrderID)
			assert.Equal(t, order.ID, *event.PaymentOrderID)
		})

		t.Run("RedeliveryAnswersRecordedOutcome", func(t *testing.T) {
			order, err := fixtures.CreateTestOrder(models.PaymentOrderStatusProcessing, models.PaymentMethodAlipay, "60.00")
			require.NoError(t, err)

			first := alipayNotification(verifiers[ProviderAlipay], "N-2002", *order.GatewayOrderID, "SUCCESS", "60.00")
			_, err = flow.ProcessGatewayCallback(ctx, &dto.GatewayCallbackRequest{Provider: ProviderAlipay, Params: first}, metadata)
			require.NoError(t, err)

			// Same notify_id again: answered from the ledger, no reprocessing
			redelivered := alipayNotification(verifiers[ProviderAlipay], "N-2002", *order.GatewayOrderID, "SUCCESS", "60.00")
			ack, err := flow.ProcessGatewayCallback(ctx, &dto.GatewayCallbackRequest{Provider: ProviderAlipay, Params: redelivered}, metadata)
			require.NoError(t, err)

			assert.True(t, ack.Duplicate)
			assert.Equal(t, string(models.CallbackOutcomeApplied), ack.Outcome)

			stored, err := env.orderRepo.ByID(ctx, order.ID)
			require.NoError(t, err)
			assert.Equal(t, models.PaymentOrderStatusSucceeded, stored.Status)
		})

		t.Run("AmountDisagreementFlagsReview", func(t *testing.T) {
			order, err := fixtures.CreateTestOrder(models.PaymentOrderStatusProcessing, models.PaymentMethodAlipay, "100.00")
			require.NoError(t, err)

			ack, err := flow.ProcessGatewayCallback(ctx, &dto.GatewayCallbackRequest{
				Provider: ProviderAlipay,
				Params:   alipayNotification(verifiers[ProviderAlipay], "N-2003", *order.GatewayOrderID, "SUCCESS", "150.00"),
			}, metadata)
			require.NoError(t, err)

			assert.Equal(t, string(models.CallbackOutcomeAmountMismatch), ack.Outcome)
			assert.Equal(t, string(models.PaymentOrderStatusProcessing), ack.OrderStatus)

			stored, err := env.orderRepo.ByID(ctx, order.ID)
			require.NoError(t, err)
			assert.Equal(t, models.PaymentOrderStatusProcessing, stored.Status)
			assert.True(t, stored.ReviewRequired)

			event, err := env.eventRepo.ByDedupeKey(ctx, "alipay:N-2003")
			require.NoError(t, err)
			assert.Equal(t, models.CallbackOutcomeAmountMismatch, event.Outcome)
			assert.Contains(t, event.FailureReason, "disagrees with order amount")
		})

		t.Run("UnknownOrderAcknowledged", func(t *testing.T) {
			ack, err := flow.ProcessGatewayCallback(ctx, &dto.GatewayCallbackRequest{
				Provider: ProviderAlipay,
				Params:   alipayNotification(verifiers[ProviderAlipay], "N-2004", "gw-no-such-trade", "SUCCESS", "10.00"),
			}, metadata)
			require.NoError(t, err)

			assert.Equal(t, string(models.CallbackOutcomeOrderNotFound), ack.Outcome)
			assert.Empty(t, ack.OrderNumber)

			event, err := env.eventRepo.ByDedupeKey(ctx, "alipay:N-2004")
			require.NoError(t, err)
			assert.Equal(t, models.CallbackOutcomeOrderNotFound, event.Outcome)
			assert.Nil(t, event.PaymentOrderID)
		})

		t.Run("DebitFailureFailsOrder", func(t *testing.T) {
			order, err := fixtures.CreateTestOrder(models.PaymentOrderStatusProcessing, models.PaymentMethodBankDebit, "80.00")
			require.NoError(t, err)

			ack, err := flow.ProcessGatewayCallback(ctx, &dto.GatewayCallbackRequest{
				Provider: ProviderBankGate,
				Params:   bankNotification(verifiers[ProviderBankGate], "N-2005", *order.GatewayOrderID, "failed", "", "card expired"),
			}, metadata)
			require.NoError(t, err)

			assert.Equal(t, string(models.CallbackOutcomeApplied), ack.Outcome)
			assert.Equal(t, string(models.PaymentOrderStatusFailed), ack.OrderStatus)

			stored, err := env.orderRepo.ByID(ctx, order.ID)
			require.NoError(t, err)
			assert.Equal(t, models.PaymentOrderStatusFailed, stored.Status)
			assert.Equal(t, "card expired", stored.FailureReason)

			event, err := env.eventRepo.ByDedupeKey(ctx, "bankgate:N-2005")
			require.NoError(t, err)
			assert.Equal(t, "debit_status_sync", event.EventType)
		})

		t.Run("TerminalRedeliveryIgnored", func(t *testing.T) {
			order, err := fixtures.CreateTestOrder(models.PaymentOrderStatusSucceeded, models.PaymentMethodAlipay, "45.00")
			require.NoError(t, err)

			// Fresh notify_id so the dedupe ledger does not short-circuit
			ack, err := flow.ProcessGatewayCallback(ctx, &dto.GatewayCallbackRequest{
				Provider: ProviderAlipay,
				Params:   alipayNotification(verifiers[ProviderAlipay], "N-2006", *order.GatewayOrderID, "SUCCESS", "45.00"),
			}, metadata)
			require.NoError(t, err)

			assert.Equal(t, string(models.CallbackOutcomeIgnoredTerminal), ack.Outcome)
			assert.Equal(t, string(models.PaymentOrderStatusSucceeded), ack.OrderStatus)
		})

		t.Run("IllegalTransitionIgnored", func(t *testing.T) {
			// A settlement for an order the gateway never accepted cannot apply
			order, err := fixtures.CreateTestOrder(models.PaymentOrderStatusPending, models.PaymentMethodAlipay, "45.00")
			require.NoError(t, err)

			params := verifiers[ProviderAlipay].SignRequest(map[string]string{
				"notify_id":    "N-2007",
				"out_trade_no": order.OrderNumber,
				"trade_status": "SUCCESS",
				"paid_amount":  "45.00",
			})
			ack, err := flow.ProcessGatewayCallback(ctx, &dto.GatewayCallbackRequest{Provider: ProviderAlipay, Params: params}, metadata)
			require.NoError(t, err)

			assert.Equal(t, string(models.CallbackOutcomeIgnoredIllegal), ack.Outcome)

			stored, err := env.orderRepo.ByID(ctx, order.ID)
			require.NoError(t, err)
			assert.Equal(t, models.PaymentOrderStatusPending, stored.Status)

			event, err := env.eventRepo.ByDedupeKey(ctx, "alipay:N-2007")
			require.NoError(t, err)
			assert.Equal(t, models.CallbackOutcomeIgnoredIllegal, event.Outcome)
		})

		t.Run("IntermediateStateOnlyRecorded", func(t *testing.T) {
			order, err := fixtures.CreateTestOrder(models.PaymentOrderStatusProcessing, models.PaymentMethodAlipay, "45.00")
			require.NoError(t, err)

			ack, err := flow.ProcessGatewayCallback(ctx, &dto.GatewayCallbackRequest{
				Provider: ProviderAlipay,
				Params:   alipayNotification(verifiers[ProviderAlipay], "N-2008", *order.GatewayOrderID, "WAIT_BUYER_PAY", ""),
			}, metadata)
			require.NoError(t, err)

			assert.Equal(t, string(models.CallbackOutcomeApplied), ack.Outcome)
			assert.Equal(t, string(models.PaymentOrderStatusProcessing), ack.OrderStatus)

			stored, err := env.orderRepo.ByID(ctx, order.ID)
			require.NoError(t, err)
			assert.Equal(t, models.PaymentOrderStatusProcessing, stored.Status)
		})

		t.Run("MalformedAmountRejected", func(t *testing.T) {
			order, err := fixtures.CreateTestOrder(models.PaymentOrderStatusProcessing, models.PaymentMethodAlipay, "45.00")
			require.NoError(t, err)

			_, err = flow.ProcessGatewayCallback(ctx, &dto.GatewayCallbackRequest{
				Provider: ProviderAlipay,
				Params:   alipayNotification(verifiers[ProviderAlipay], "N-2009", *order.GatewayOrderID, "SUCCESS", "one hundred"),
			}, metadata)
			require.Error(t, err)
			assert.True(t, IsAmountMismatch(err))
		})

		t.Run("MissingReferencesRejected", func(t *testing.T) {
			params := verifiers[ProviderAlipay].SignRequest(map[string]string{
				"notify_id":    "N-2010",
				"trade_status": "SUCCESS",
			})
			_, err := flow.ProcessGatewayCallback(ctx, &dto.GatewayCallbackRequest{Provider: ProviderAlipay, Params: params}, metadata)
			require.Error(t, err)
			assert.True(t, IsGatewayOrderIDRequired(err))
		})

		t.Run("NilRequestRejected", func(t *testing.T) {
			_, err := flow.ProcessGatewayCallback(ctx, nil, metadata)
			assert.True(t, IsCallbackRequestNil(err))

			_, err = flow.ProcessGatewayCallback(ctx, &dto.GatewayCallbackRequest{Provider: ProviderAlipay}, metadata)
			assert.True(t, IsCallbackRequestNil(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestCallbackFlowSignatureEnforcement(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		_, flow, verifiers := newCallbackEnv(testDB)
		ctx := testingutil.CreateTestContext()
		metadata := NewClientMetadata("198.51.100.4", "alipay-notify/1.0")

		t.Run("TamperedParamsRejected", func(t *testing.T) {
			params := alipayNotification(verifiers[ProviderAlipay], "N-3001", "gw-3001", "SUCCESS", "10.00")
			params["paid_amount"] = "9999.00"

			_, err := flow.ProcessGatewayCallback(ctx, &dto.GatewayCallbackRequest{Provider: ProviderAlipay, Params: params}, metadata)
			require.Error(t, err)
			assert.True(t, IsSignatureInvalid(err))
		})

		t.Run("UnsignedParamsRejected", func(t *testing.T) {
			_, err := flow.ProcessGatewayCallback(ctx, &dto.GatewayCallbackRequest{
				Provider: ProviderAlipay,
				Params:   map[string]string{"notify_id": "N-3002", "trade_no": "gw-3002", "trade_status": "SUCCESS"},
			}, metadata)
			require.Error(t, err)
			assert.True(t, IsSignatureRequired(err))
		})

		t.Run("MissingNonceRejected", func(t *testing.T) {
			params := alipayNotification(verifiers[ProviderAlipay], "N-3003", "gw-3003", "SUCCESS", "10.00")
			delete(params, services.NonceField)

			_, err := flow.ProcessGatewayCallback(ctx, &dto.GatewayCallbackRequest{Provider: ProviderAlipay, Params: params}, metadata)
			require.Error(t, err)
			assert.True(t, IsNonceRequired(err))
		})

		t.Run("StaleTimestampRejected", func(t *testing.T) {
			params := alipayNotification(verifiers[ProviderAlipay], "N-3004", "gw-3004", "SUCCESS", "10.00")
			params[services.TimestampField] = "1262304000" // 2010

			_, err := flow.ProcessGatewayCallback(ctx, &dto.GatewayCallbackRequest{Provider: ProviderAlipay, Params: params}, metadata)
			require.Error(t, err)
			assert.True(t, IsSignatureExpired(err))
		})

		t.Run("MalformedTimestampRejected", func(t *testing.T) {
			params := alipayNotification(verifiers[ProviderAlipay], "N-3005", "gw-3005", "SUCCESS", "10.00")
			params[services.TimestampField] = "yesterday"

			_, err := flow.ProcessGatewayCallback(ctx, &dto.GatewayCallbackRequest{Provider: ProviderAlipay, Params: params}, metadata)
			require.Error(t, err)
			assert.True(t, IsTimestampInvalid(err))
		})

		t.Run("UnknownProviderRejected", func(t *testing.T) {
			_, err := flow.ProcessGatewayCallback(ctx, &dto.GatewayCallbackRequest{
				Provider: "paypal",
				Params:   map[string]string{"notify_id": "N-3006"},
			}, metadata)
			require.Error(t, err)
			assert.True(t, IsSignatureInvalid(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestCallbackFlowRecoverUnappliedEvents(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		env, flow, _ := newCallbackEnv(testDB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		order, err := fixtures.CreateTestOrder(models.PaymentOrderStatusProcessing, models.PaymentMethodAlipay, "100.00")
		require.NoError(t, err)

		// An event recorded by a worker that crashed before applying it
		payload, err := json.Marshal(map[string]string{
			"notify_id":    "N-4001",
			"trade_no":     *order.GatewayOrderID,
			"trade_status": "SUCCESS",
			"paid_amount":  "100.00",
		})
		require.NoError(t, err)
		stuck := &models.CallbackEvent{
			DedupeKey:      "alipay:N-4001",
			Provider:       ProviderAlipay,
			EventType:      "trade_status_sync",
			GatewayOrderID: *order.GatewayOrderID,
			RawPayload:     payload,
			PayloadDigest:  "0000000000000000000000000000000000000000000000000000000000000000",
			VerifiedAt:     time.Now().UTC(),
		}
		inserted, _, err := env.eventRepo.InsertIfAbsent(ctx, stuck)
		require.NoError(t, err)
		require.True(t, inserted)

		// An event whose stored payload can no longer be parsed
		garbled := &models.CallbackEvent{
			DedupeKey:      "alipay:N-4002",
			Provider:       ProviderAlipay,
			EventType:      "trade_status_sync",
			GatewayOrderID: "gw-garbled",
			RawPayload:     json.RawMessage(`"not an object"`),
			PayloadDigest:  "1111111111111111111111111111111111111111111111111111111111111111",
			VerifiedAt:     time.Now().UTC(),
		}
		inserted, _, err = env.eventRepo.InsertIfAbsent(ctx, garbled)
		require.NoError(t, err)
		require.True(t, inserted)

		recovered, err := flow.RecoverUnappliedEvents(ctx, 0, 10)
		require.NoError(t, err)

		t.Run("PendingEventReplayedToCompletion", func(t *testing.T) {
			assert.Equal(t, 1, recovered)

			stored, err := env.orderRepo.ByID(ctx, order.ID)
			require.NoError(t, err)
			assert.Equal(t, models.PaymentOrderStatusSucceeded, stored.Status)

			event, err := env.eventRepo.ByDedupeKey(ctx, "alipay:N-4001")
			require.NoError(t, err)
			assert.Equal(t, models.CallbackOutcomeApplied, event.Outcome)
			assert.NotNil(t, event.AppliedAt)
		})

		t.Run("UnparseablePayloadSettledIllegal", func(t *testing.T) {
			event, err := env.eventRepo.ByDedupeKey(ctx, "alipay:N-4002")
			require.NoError(t, err)
			assert.Equal(t, models.CallbackOutcomeIgnoredIllegal, event.Outcome)
		})

		t.Run("SettledEventsNotRevisited", func(t *testing.T) {
			recovered, err := flow.RecoverUnappliedEvents(ctx, 0, 10)
			require.NoError(t, err)
			assert.Zero(t, recovered)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestCallbackFlowListFlaggedEvents(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		_, flow, verifiers := newCallbackEnv(testDB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()
		metadata := NewClientMetadata("198.51.100.4", "alipay-notify/1.0")

		order, err := fixtures.CreateTestOrder(models.PaymentOrderStatusProcessing, models.PaymentMethodAlipay, "100.00")
		require.NoError(t, err)

		_, err = flow.ProcessGatewayCallback(ctx, &dto.GatewayCallbackRequest{
			Provider: ProviderAlipay,
			Params:   alipayNotification(verifiers[ProviderAlipay], "N-5001", *order.GatewayOrderID, "SUCCESS", "150.00"),
		}, metadata)
		require.NoError(t, err)

		_, err = flow.ProcessGatewayCallback(ctx, &dto.GatewayCallbackRequest{
			Provider: ProviderAlipay,
			Params:   alipayNotification(verifiers[ProviderAlipay], "N-5002", "gw-ghost", "SUCCESS", "10.00"),
		}, metadata)
		require.NoError(t, err)

		_, err = flow.ProcessGatewayCallback(ctx, &dto.GatewayCallbackRequest{
			Provider: ProviderAlipay,
			Params:   alipayNotification(verifiers[ProviderAlipay], "N-5003", *order.GatewayOrderID, "WAIT_BUYER_PAY", ""),
		}, metadata)
		require.NoError(t, err)

		from := time.Now().UTC().Add(-time.Hour)
		to := time.Now().UTC().Add(time.Hour)
		flagged, err := flow.ListFlaggedEvents(ctx, from, to)
		require.NoError(t, err)

		// The mismatch and the unmatched reference need review, the applied sync does not
		require.Len(t, flagged, 2)
		outcomes := map[string]bool{}
		for _, e := range flagged {
			outcomes[e.Outcome] = true
		}
		assert.True(t, outcomes[string(models.CallbackOutcomeAmountMismatch)])
		assert.True(t, outcomes[string(models.CallbackOutcomeOrderNotFound)])

		return nil
	})
	require.NoError(t, err)
}
