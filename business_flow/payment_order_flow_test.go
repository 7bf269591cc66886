package businessflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AronSwan/onlinestore-sub023/app/dto"
	"github.com/AronSwan/onlinestore-sub023/app/services"
	"github.com/AronSwan/onlinestore-sub023/config"
	"github.com/AronSwan/onlinestore-sub023/models"
	"github.com/AronSwan/onlinestore-sub023/repository"
	testingutil "github.com/AronSwan/onlinestore-sub023/testing"
	"github.com/AronSwan/onlinestore-sub023/utils"
)

// fakeGatewayAdapter scripts provider behavior per test case. Unset hooks
// fall back to an accepting provider.
type fakeGatewayAdapter struct {
	createFn func(ctx context.Context, order *models.PaymentOrder) (*services.CreatePaymentResult, error)
	queryFn  func(ctx context.Context, order *models.PaymentOrder) (*services.QueryPaymentResult, error)
	refundFn func(ctx context.Context, order *models.PaymentOrder, refund *models.RefundRecord) (*services.RefundResult, error)

	mu          sync.Mutex
	createCalls int
	queryCalls  int
	refundCalls int
}

func (f *fakeGatewayAdapter) Name() string { return "fake" }

func (f *fakeGatewayAdapter) CreatePayment(ctx context.Context, order *models.PaymentOrder) (*services.CreatePaymentResult, error) {
	f.mu.Lock()
	f.createCalls++
	f.mu.Unlock()
	if f.createFn != nil {
		return f.createFn(ctx, order)
	}
	return &services.CreatePaymentResult{
		GatewayOrderID: "GW-" + order.OrderNumber,
		PaymentURL:     "https://pay.example.com/" + order.OrderNumber,
	}, nil
}

func (f *fakeGatewayAdapter) QueryPayment(ctx context.Context, order *models.PaymentOrder) (*services.QueryPaymentResult, error) {
	f.mu.Lock()
	f.queryCalls++
	f.mu.Unlock()
	if f.queryFn != nil {
		return f.queryFn(ctx, order)
	}
	return &services.QueryPaymentResult{Status: services.GatewayStatusPending}, nil
}

func (f *fakeGatewayAdapter) Refund(ctx context.Context, order *models.PaymentOrder, refund *models.RefundRecord) (*services.RefundResult, error) {
	f.mu.Lock()
	f.refundCalls++
	f.mu.Unlock()
	if f.refundFn != nil {
		return f.refundFn(ctx, order, refund)
	}
	return &services.RefundResult{
		GatewayRefundID: "RGW-" + refund.RefundNumber,
		Status:          services.GatewayStatusPaid,
	}, nil
}

type notifiedState struct {
	orderNumber string
	status      models.PaymentOrderStatus
}

// fakeNotifier records which order states were pushed to the merchant.
// Deliveries arrive from goroutines, so reads go through the mutex too.
type fakeNotifier struct {
	mu     sync.Mutex
	states []notifiedState
}

func (f *fakeNotifier) NotifyOrderState(ctx context.Context, order *models.PaymentOrder) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = append(f.states, notifiedState{orderNumber: order.OrderNumber, status: order.Status})
	return nil
}

func (f *fakeNotifier) saw(orderNumber string, status models.PaymentOrderStatus) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.states {
		if s.orderNumber == orderNumber && s.status == status {
			return true
		}
	}
	return false
}

// flowEnv wires the flows against a test database with a scripted gateway
// behind ALIPAY and WECHAT_PAY and a recording merchant notifier.
type flowEnv struct {
	orderRepo        repository.PaymentOrderRepository
	refundRepo       repository.RefundRecordRepository
	confirmationRepo repository.ConfirmationRecordRepository
	eventRepo        repository.CallbackEventRepository
	auditRepo        repository.AuditLogRepository
	gateway          *fakeGatewayAdapter
	notifier         *fakeNotifier
	orderFlow        PaymentOrderFlow
}

func newFlowEnv(testDB *testingutil.TestDB) *flowEnv {
	env := &flowEnv{
		orderRepo:        repository.NewPaymentOrderRepository(testDB.DB),
		refundRepo:       repository.NewRefundRecordRepository(testDB.DB),
		confirmationRepo: repository.NewConfirmationRecordRepository(testDB.DB),
		eventRepo:        repository.NewCallbackEventRepository(testDB.DB),
		auditRepo:        repository.NewAuditLogRepository(testDB.DB),
		gateway:          &fakeGatewayAdapter{},
		notifier:         &fakeNotifier{},
	}
	env.orderFlow = NewPaymentOrderFlow(
		env.orderRepo,
		env.refundRepo,
		env.confirmationRepo,
		env.auditRepo,
		env.gateways(),
		env.notifier,
		testDB.DB,
		config.PaymentConfig{DefaultExpiryMinutes: 60, MaxExpiryMinutes: 1440},
	)
	return env
}

func (e *flowEnv) gateways() map[models.PaymentMethod]services.GatewayAdapter {
	return map[models.PaymentMethod]services.GatewayAdapter{
		models.PaymentMethodAlipay:    e.gateway,
		models.PaymentMethodWechatPay: e.gateway,
	}
}

func orderRequest(merchantOrderID string) *dto.CreatePaymentOrderRequest {
	return &dto.CreatePaymentOrderRequest{
		MerchantOrderID: merchantOrderID,
		Amount:          "128.50",
		Currency:        utils.CNYCurrency,
		PaymentMethod:   string(models.PaymentMethodAlipay),
		Subject:         "Annual plan",
		NotifyURL:       "https://merchant.example.com/notify",
	}
}

func TestPaymentOrderFlowCreateOrder(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		env := newFlowEnv(testDB)
		ctx := testingutil.CreateTestContext()
		metadata := NewClientMetadata("203.0.113.7", "paycore-test/1.0")

		t.Run("AcceptedOrderMovesToProcessing", func(t *testing.T) {
			// Test the full happy path: PENDING insert, gateway accept, PROCESSING
			created, err := env.orderFlow.CreateOrder(ctx, orderRequest("M-1001"), metadata)
			require.NoError(t, err)

			assert.Equal(t, string(models.PaymentOrderStatusProcessing), created.Status)
			assert.Contains(t, created.OrderNumber, "PO-")
			assert.Equal(t, "128.50", created.Amount)
			assert.Equal(t, "0.00", created.PaidAmount)
			assert.Equal(t, "GW-"+created.OrderNumber, created.GatewayOrderID)
			assert.Equal(t, "https://pay.example.com/"+created.OrderNumber, created.PaymentURL)
			assert.Equal(t, 2, created.Version)
			assert.NotEmpty(t, created.ExpiresAt)
		})

		t.Run("DefaultExpiryApplied", func(t *testing.T) {
			created, err := env.orderFlow.CreateOrder(ctx, orderRequest("M-1002"), metadata)
			require.NoError(t, err)

			expiresAt, err := time.Parse(time.RFC3339, created.ExpiresAt)
			require.NoError(t, err)
			remaining := time.Until(expiresAt)
			assert.Greater(t, remaining, 55*time.Minute)
			assert.Less(t, remaining, 65*time.Minute)
		})

		t.Run("DuplicateMerchantOrderIDRejected", func(t *testing.T) {
			_, err := env.orderFlow.CreateOrder(ctx, orderRequest("M-1003"), metadata)
			require.NoError(t, err)

			_, err = env.orderFlow.CreateOrder(ctx, orderRequest("M-1003"), metadata)
			require.Error(t, err)
			assert.True(t, IsDuplicateOrder(err))
		})

		t.Run("MissingFieldsRejected", func(t *testing.T) {
			req := orderRequest("M-1004")
			req.MerchantOrderID = ""
			_, err := env.orderFlow.CreateOrder(ctx, req, metadata)
			assert.True(t, IsMerchantOrderIDRequired(err))

			req = orderRequest("M-1004")
			req.Subject = ""
			_, err = env.orderFlow.CreateOrder(ctx, req, metadata)
			assert.True(t, IsSubjectRequired(err))

			req = orderRequest("M-1004")
			req.Currency = ""
			_, err = env.orderFlow.CreateOrder(ctx, req, metadata)
			assert.True(t, IsCurrencyRequired(err))
		})

		t.Run("AmountBoundsEnforced", func(t *testing.T) {
			for _, amount := range []string{"0", "-5", "not-a-number", "1000000"} {
				req := orderRequest("M-1005-" + amount)
				req.Amount = amount
				_, err := env.orderFlow.CreateOrder(ctx, req, metadata)
				assert.True(t, IsAmountOutOfRange(err), "amount %q should be rejected", amount)
			}

			// Test the inclusive ceiling
			req := orderRequest("M-1005-max")
			req.Amount = "999999.99"
			created, err := env.orderFlow.CreateOrder(ctx, req, metadata)
			require.NoError(t, err)
			assert.Equal(t, "999999.99", created.Amount)
		})

		t.Run("UnroutedMethodRejected", func(t *testing.T) {
			req := orderRequest("M-1006")
			req.PaymentMethod = string(models.PaymentMethodBankDebit)
			_, err := env.orderFlow.CreateOrder(ctx, req, metadata)
			assert.True(t, IsPaymentMethodUnsupported(err))
		})

		t.Run("ExpiryBoundsEnforced", func(t *testing.T) {
			req := orderRequest("M-1007")
			req.ExpiryMinutes = 2000
			_, err := env.orderFlow.CreateOrder(ctx, req, metadata)
			assert.True(t, IsExpiryOutOfRange(err))

			req = orderRequest("M-1007b")
			req.ExpiryMinutes = -1
			_, err = env.orderFlow.CreateOrder(ctx, req, metadata)
			assert.True(t, IsExpiryOutOfRange(err))
		})

		t.Run("ProviderRejectionFailsOrder", func(t *testing.T) {
			env.gateway.createFn = func(ctx context.Context, order *models.PaymentOrder) (*services.CreatePaymentResult, error) {
				return nil, fmt.Errorf("alipay: trade create rejected: risk control: %w", services.ErrGatewayRejected)
			}
			defer func() { env.gateway.createFn = nil }()

			_, err := env.orderFlow.CreateOrder(ctx, orderRequest("M-1008"), metadata)
			require.Error(t, err)
			assert.True(t, IsGatewayRejected(err))

			// The order persists FAILED with the provider's reason on record
			stored, err := env.orderFlow.GetOrderByMerchantOrderID(ctx, "M-1008")
			require.NoError(t, err)
			assert.Equal(t, string(models.PaymentOrderStatusFailed), stored.Status)
			assert.Contains(t, stored.FailureReason, "risk control")

			require.Eventually(t, func() bool {
				return env.notifier.saw(stored.OrderNumber, models.PaymentOrderStatusFailed)
			}, 2*time.Second, 10*time.Millisecond, "merchant should hear about the failure")
		})

		t.Run("ProviderOutageKeepsOrderPending", func(t *testing.T) {
			env.gateway.createFn = func(ctx context.Context, order *models.PaymentOrder) (*services.CreatePaymentResult, error) {
				return nil, errors.New("dial tcp: connection refused")
			}
			defer func() { env.gateway.createFn = nil }()

			_, err := env.orderFlow.CreateOrder(ctx, orderRequest("M-1009"), metadata)
			require.Error(t, err)
			assert.True(t, IsGatewayUnavailable(err))

			// PENDING survives for a later expiry sweep, not FAILED
			stored, err := env.orderFlow.GetOrderByMerchantOrderID(ctx, "M-1009")
			require.NoError(t, err)
			assert.Equal(t, string(models.PaymentOrderStatusPending), stored.Status)
		})

		t.Run("NilRequestRejected", func(t *testing.T) {
			_, err := env.orderFlow.CreateOrder(ctx, nil, metadata)
			require.Error(t, err)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestPaymentOrderFlowTransition(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		env := newFlowEnv(testDB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		t.Run("SettlesProcessingOrder", func(t *testing.T) {
			order, err := fixtures.CreateTestOrder(models.PaymentOrderStatusProcessing, models.PaymentMethodAlipay, "100.00")
			require.NoError(t, err)

			updated, err := env.orderFlow.Transition(ctx, order.ID, models.OrderEventPaidInFull, order.Version, "", map[string]any{
				"paid_amount": decimal.RequireFromString("100.00"),
				"paid_at":     utils.UTCNowPtr(),
			})
			require.NoError(t, err)

			assert.Equal(t, models.PaymentOrderStatusSucceeded, updated.Status)
			assert.True(t, updated.PaidAmount.Equal(decimal.RequireFromString("100.00")))
			assert.NotNil(t, updated.PaidAt)
			assert.Equal(t, order.Version+1, updated.Version)

			require.Eventually(t, func() bool {
				return env.notifier.saw(order.OrderNumber, models.PaymentOrderStatusSucceeded)
			}, 2*time.Second, 10*time.Millisecond)
		})

		t.Run("IllegalEventRejected", func(t *testing.T) {
			order, err := fixtures.CreateTestOrder(models.PaymentOrderStatusPending, models.PaymentMethodAlipay, "50.00")
			require.NoError(t, err)

			// A PENDING order has no settlement edge
			_, err = env.orderFlow.Transition(ctx, order.ID, models.OrderEventPaidInFull, 0, "", nil)
			require.Error(t, err)
			assert.True(t, IsIllegalTransition(err))
		})

		t.Run("TerminalRedeliveryAcknowledged", func(t *testing.T) {
			order, err := fixtures.CreateTestOrder(models.PaymentOrderStatusSucceeded, models.PaymentMethodAlipay, "50.00")
			require.NoError(t, err)

			same, err := env.orderFlow.Transition(ctx, order.ID, models.OrderEventPaidInFull, 0, "", nil)
			require.NoError(t, err)
			assert.Equal(t, models.PaymentOrderStatusSucceeded, same.Status)
			assert.Equal(t, order.Version, same.Version)
		})

		t.Run("StaleVersionDetected", func(t *testing.T) {
			order, err := fixtures.CreateTestOrder(models.PaymentOrderStatusProcessing, models.PaymentMethodAlipay, "50.00")
			require.NoError(t, err)

			_, err = env.orderFlow.Transition(ctx, order.ID, models.OrderEventPaidInFull, order.Version+7, "", nil)
			require.Error(t, err)
			assert.True(t, IsConcurrentModification(err))
		})

		t.Run("UnknownOrderRejected", func(t *testing.T) {
			_, err := env.orderFlow.Transition(ctx, 99999, models.OrderEventPaidInFull, 0, "", nil)
			assert.True(t, IsOrderNotFound(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestPaymentOrderFlowCancelAndClose(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		env := newFlowEnv(testDB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()
		metadata := NewClientMetadata("203.0.113.7", "paycore-test/1.0")

		t.Run("CancelsPendingOrder", func(t *testing.T) {
			order, err := fixtures.CreateTestOrder(models.PaymentOrderStatusPending, models.PaymentMethodAlipay, "40.00")
			require.NoError(t, err)

			cancelled, err := env.orderFlow.CancelOrder(ctx, order.OrderNumber, "customer asked", metadata)
			require.NoError(t, err)
			assert.Equal(t, string(models.PaymentOrderStatusCancelled), cancelled.Status)
			assert.Equal(t, "customer asked", cancelled.FailureReason)
		})

		t.Run("CancelIsIdempotent", func(t *testing.T) {
			order, err := fixtures.CreateTestOrder(models.PaymentOrderStatusPending, models.PaymentMethodAlipay, "40.00")
			require.NoError(t, err)

			_, err = env.orderFlow.CancelOrder(ctx, order.OrderNumber, "", metadata)
			require.NoError(t, err)

			again, err := env.orderFlow.CancelOrder(ctx, order.OrderNumber, "", metadata)
			require.NoError(t, err)
			assert.Equal(t, string(models.PaymentOrderStatusCancelled), again.Status)
		})

		t.Run("DefaultCancelReasonRecorded", func(t *testing.T) {
			order, err := fixtures.CreateTestOrder(models.PaymentOrderStatusProcessing, models.PaymentMethodAlipay, "40.00")
			require.NoError(t, err)

			cancelled, err := env.orderFlow.CancelOrder(ctx, order.OrderNumber, "", metadata)
			require.NoError(t, err)
			assert.Equal(t, "cancelled by merchant", cancelled.FailureReason)
		})

		t.Run("SettledOrderNotCancellable", func(t *testing.T) {
			order, err := fixtures.CreateTestOrder(models.PaymentOrderStatusSucceeded, models.PaymentMethodAlipay, "40.00")
			require.NoError(t, err)

			_, err = env.orderFlow.CancelOrder(ctx, order.OrderNumber, "", metadata)
			require.Error(t, err)
			assert.True(t, IsOrderNotCancellable(err))
		})

		t.Run("ClosesSettledOrder", func(t *testing.T) {
			order, err := fixtures.CreateTestOrder(models.PaymentOrderStatusSucceeded, models.PaymentMethodAlipay, "40.00")
			require.NoError(t, err)

			closed, err := env.orderFlow.CloseOrder(ctx, order.OrderNumber, metadata)
			require.NoError(t, err)
			assert.Equal(t, string(models.PaymentOrderStatusClosed), closed.Status)

			again, err := env.orderFlow.CloseOrder(ctx, order.OrderNumber, metadata)
			require.NoError(t, err)
			assert.Equal(t, string(models.PaymentOrderStatusClosed), again.Status)
		})

		t.Run("UnsettledOrderNotCloseable", func(t *testing.T) {
			pending, err := fixtures.CreateTestOrder(models.PaymentOrderStatusPending, models.PaymentMethodAlipay, "40.00")
			require.NoError(t, err)
			_, err = env.orderFlow.CloseOrder(ctx, pending.OrderNumber, metadata)
			assert.True(t, IsIllegalTransition(err))

			failed, err := fixtures.CreateTestOrder(models.PaymentOrderStatusFailed, models.PaymentMethodAlipay, "40.00")
			require.NoError(t, err)
			_, err = env.orderFlow.CloseOrder(ctx, failed.OrderNumber, metadata)
			assert.True(t, IsIllegalTransition(err))
		})

		t.Run("UnknownOrderNumberRejected", func(t *testing.T) {
			_, err := env.orderFlow.CancelOrder(ctx, "PO-does-not-exist", "", metadata)
			assert.True(t, IsOrderNotFound(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestPaymentOrderFlowExpireStaleOrders(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		env := newFlowEnv(testDB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		first, err := fixtures.CreateExpiredOrder(models.PaymentMethodAlipay, "10.00")
		require.NoError(t, err)
		second, err := fixtures.CreateExpiredOrder(models.PaymentMethodAlipay, "20.00")
		require.NoError(t, err)
		live, err := fixtures.CreateTestOrder(models.PaymentOrderStatusPending, models.PaymentMethodAlipay, "30.00")
		require.NoError(t, err)

		t.Run("BatchSizeLimitsOnePass", func(t *testing.T) {
			expired, err := env.orderFlow.ExpireStaleOrders(ctx, 1)
			require.NoError(t, err)
			assert.Equal(t, 1, expired)
		})

		t.Run("RemainingOverdueOrdersExpire", func(t *testing.T) {
			expired, err := env.orderFlow.ExpireStaleOrders(ctx, 10)
			require.NoError(t, err)
			assert.Equal(t, 1, expired)

			for _, id := range []uint{first.ID, second.ID} {
				stored, err := env.orderRepo.ByID(ctx, id)
				require.NoError(t, err)
				assert.Equal(t, models.PaymentOrderStatusExpired, stored.Status)
				assert.Equal(t, "payment window elapsed", stored.FailureReason)
			}
		})

		t.Run("OrdersInsideWindowUntouched", func(t *testing.T) {
			expired, err := env.orderFlow.ExpireStaleOrders(ctx, 10)
			require.NoError(t, err)
			assert.Zero(t, expired)

			stored, err := env.orderRepo.ByID(ctx, live.ID)
			require.NoError(t, err)
			assert.Equal(t, models.PaymentOrderStatusPending, stored.Status)
		})

		t.Run("ExpiryNotifiesMerchant", func(t *testing.T) {
			require.Eventually(t, func() bool {
				return env.notifier.saw(first.OrderNumber, models.PaymentOrderStatusExpired)
			}, 2*time.Second, 10*time.Millisecond)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestPaymentOrderFlowPollProcessingOrders(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		env := newFlowEnv(testDB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		paid, err := fixtures.CreateTestOrder(models.PaymentOrderStatusProcessing, models.PaymentMethodAlipay, "100.00")
		require.NoError(t, err)
		failed, err := fixtures.CreateTestOrder(models.PaymentOrderStatusProcessing, models.PaymentMethodAlipay, "100.00")
		require.NoError(t, err)
		short, err := fixtures.CreateTestOrder(models.PaymentOrderStatusProcessing, models.PaymentMethodAlipay, "100.00")
		require.NoError(t, err)
		waiting, err := fixtures.CreateTestOrder(models.PaymentOrderStatusProcessing, models.PaymentMethodAlipay, "100.00")
		require.NoError(t, err)

		paidAt := utils.UTCNowPtr()
		results := map[uint]*services.QueryPaymentResult{
			paid.ID:    {Status: services.GatewayStatusPaid, PaidAmount: decimal.RequireFromString("100.00"), PaidAt: paidAt},
			failed.ID:  {Status: services.GatewayStatusFailed, FailureReason: "balance insufficient"},
			short.ID:   {Status: services.GatewayStatusPaid, PaidAmount: decimal.RequireFromString("90.00"), PaidAt: paidAt},
			waiting.ID: {Status: services.GatewayStatusPending},
		}
		env.gateway.queryFn = func(ctx context.Context, order *models.PaymentOrder) (*services.QueryPaymentResult, error) {
			res, ok := results[order.ID]
			if !ok {
				return nil, errors.New("unknown trade")
			}
			return res, nil
		}

		settled, err := env.orderFlow.PollProcessingOrders(ctx, 0, 10)
		require.NoError(t, err)

		t.Run("SettledCountCoversPaidAndFailed", func(t *testing.T) {
			assert.Equal(t, 2, settled)
		})

		t.Run("PaidOrderSucceeds", func(t *testing.T) {
			stored, err := env.orderRepo.ByID(ctx, paid.ID)
			require.NoError(t, err)
			assert.Equal(t, models.PaymentOrderStatusSucceeded, stored.Status)
			assert.True(t, stored.PaidAmount.Equal(decimal.RequireFromString("100.00")))
			assert.NotNil(t, stored.PaidAt)
		})

		t.Run("FailedOrderCarriesProviderReason", func(t *testing.T) {
			stored, err := env.orderRepo.ByID(ctx, failed.ID)
			require.NoError(t, err)
			assert.Equal(t, models.PaymentOrderStatusFailed, stored.Status)
			assert.Equal(t, "balance insufficient", stored.FailureReason)
		})

		t.Run("AmountDisagreementFlagsReview", func(t *testing.T) {
			stored, err := env.orderRepo.ByID(ctx, short.ID)
			require.NoError(t, err)
			assert.Equal(t, models.PaymentOrderStatusProcessing, stored.Status)
			assert.True(t, stored.ReviewRequired)
		})

		t.Run("StillPendingOrderLeftAlone", func(t *testing.T) {
			stored, err := env.orderRepo.ByID(ctx, waiting.ID)
			require.NoError(t, err)
			assert.Equal(t, models.PaymentOrderStatusProcessing, stored.Status)
			assert.False(t, stored.ReviewRequired)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestPaymentOrderFlowListAndGet(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		env := newFlowEnv(testDB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		settledAlipay, err := fixtures.CreateTestOrder(models.PaymentOrderStatusSucceeded, models.PaymentMethodAlipay, "100.00")
		require.NoError(t, err)
		_, err = fixtures.CreateTestOrder(models.PaymentOrderStatusSucceeded, models.PaymentMethodWechatPay, "55.00")
		require.NoError(t, err)
		_, err = fixtures.CreateTestOrder(models.PaymentOrderStatusPending, models.PaymentMethodAlipay, "10.00")
		require.NoError(t, err)
		cryptoOrder, err := fixtures.CreateTestOrder(models.PaymentOrderStatusProcessing, models.PaymentMethodBTC, "1500.00")
		require.NoError(t, err)

		t.Run("FilterByStatus", func(t *testing.T) {
			resp, err := env.orderFlow.ListOrders(ctx, &dto.ListPaymentOrdersRequest{Status: string(models.PaymentOrderStatusSucceeded)})
			require.NoError(t, err)
			assert.EqualValues(t, 2, resp.Total)
			require.Len(t, resp.Orders, 2)
			for _, o := range resp.Orders {
				assert.Equal(t, string(models.PaymentOrderStatusSucceeded), o.Status)
			}
		})

		t.Run("FilterByMethodAndPagination", func(t *testing.T) {
			resp, err := env.orderFlow.ListOrders(ctx, &dto.ListPaymentOrdersRequest{
				PaymentMethod: string(models.PaymentMethodAlipay),
				Page:          1,
				PageSize:      1,
			})
			require.NoError(t, err)
			assert.EqualValues(t, 2, resp.Total)
			assert.Len(t, resp.Orders, 1)
			assert.Equal(t, 1, resp.Page)
			assert.Equal(t, 1, resp.PageSize)
		})

		t.Run("FilterByReviewRequired", func(t *testing.T) {
			require.NoError(t, env.orderFlow.FlagForReview(ctx, cryptoOrder.ID, "amount disagreement"))

			flagged := true
			resp, err := env.orderFlow.ListOrders(ctx, &dto.ListPaymentOrdersRequest{ReviewRequired: &flagged})
			require.NoError(t, err)
			require.Len(t, resp.Orders, 1)
			assert.Equal(t, cryptoOrder.OrderNumber, resp.Orders[0].OrderNumber)
		})

		t.Run("FlagForReviewIsIdempotent", func(t *testing.T) {
			require.NoError(t, env.orderFlow.FlagForReview(ctx, cryptoOrder.ID, "second sighting"))

			stored, err := env.orderRepo.ByID(ctx, cryptoOrder.ID)
			require.NoError(t, err)
			assert.True(t, stored.ReviewRequired)
		})

		t.Run("GetOrderIncludesRefunds", func(t *testing.T) {
			_, err := fixtures.CreateTestRefund(settledAlipay.ID, "25.00", models.RefundStatusSucceeded)
			require.NoError(t, err)

			view, err := env.orderFlow.GetOrder(ctx, settledAlipay.OrderNumber)
			require.NoError(t, err)
			require.Len(t, view.Refunds, 1)
			assert.Equal(t, "25.00", view.Refunds[0].Amount)
			assert.Empty(t, view.Blockchain)
		})

		t.Run("GetCryptoOrderIncludesChainInfo", func(t *testing.T) {
			require.NotEmpty(t, cryptoOrder.DepositAddress)
			_, err := fixtures.CreateTestConfirmation(cryptoOrder.ID, utils.NetworkBitcoin, "f1d2d2f924e986ac86fdf7b36c94bcdf32beec15", cryptoOrder.DepositAddress, "1500.00", 3, 6)
			require.NoError(t, err)

			view, err := env.orderFlow.GetOrder(ctx, cryptoOrder.OrderNumber)
			require.NoError(t, err)
			require.Len(t, view.Blockchain, 1)
			assert.Equal(t, 3, view.Blockchain[0].Confirmations)
			assert.Equal(t, 6, view.Blockchain[0].RequiredConfirmations)
		})

		t.Run("UnknownOrderNotFound", func(t *testing.T) {
			_, err := env.orderFlow.GetOrder(ctx, "PO-missing")
			assert.True(t, IsOrderNotFound(err))

			_, err = env.orderFlow.GetOrderByMerchantOrderID(ctx, "M-missing")
			assert.True(t, IsOrderNotFound(err))
		})

		return nil
	})
	require.NoError(t, err)
}
