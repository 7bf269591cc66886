package services

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/AronSwan/onlinestore-sub023/models"
	"github.com/AronSwan/onlinestore-sub023/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const merchantTestSecret = "merchant-shared-secret"

func notifierTestOrder(notifyURL string) *models.PaymentOrder {
	return &models.PaymentOrder{
		OrderNumber:     "PO-notify-1",
		MerchantOrderID: "merchant-notify-1",
		Status:          models.PaymentOrderStatusSucceeded,
		PaymentMethod:   models.PaymentMethodAlipay,
		Amount:          decimal.RequireFromString("100.00"),
		PaidAmount:      decimal.RequireFromString("100.00"),
		Currency:        utils.CNYCurrency,
		NotifyURL:       notifyURL,
	}
}

func TestHTTPMerchantNotifier(t *testing.T) {
	ctx := context.Background()
	signer := NewHMACSignatureService(merchantTestSecret, 5*time.Minute)
	quiet := log.New(io.Discard, "", 0)

	// Test that the delivered form is signed and carries the order state
	t.Run("DeliversSignedNotification", func(t *testing.T) {
		verifier := NewHMACSignatureService(merchantTestSecret, 5*time.Minute)
		var got map[string]string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
			require.NoError(t, r.ParseForm())
			got = map[string]string{}
			for k := range r.PostForm {
				got[k] = r.PostForm.Get(k)
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		notifier := NewHTTPMerchantNotifier(signer, time.Second, fastPolicy(1), quiet)
		require.NoError(t, notifier.NotifyOrderState(ctx, notifierTestOrder(server.URL)))

		assert.NoError(t, verifier.Verify(got), "notification signature must verify")
		assert.Equal(t, "PO-notify-1", got["order_number"])
		assert.Equal(t, "merchant-notify-1", got["merchant_order_id"])
		assert.Equal(t, string(models.PaymentOrderStatusSucceeded), got["status"])
		assert.Equal(t, "100.00", got["amount"])
		assert.Equal(t, "100.00", got["paid_amount"])
	})

	// Test that a transient 5xx is retried until the merchant acknowledges
	t.Run("RetriesUntilAcknowledged", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		notifier := NewHTTPMerchantNotifier(signer, time.Second, fastPolicy(3), quiet)
		require.NoError(t, notifier.NotifyOrderState(ctx, notifierTestOrder(server.URL)))
		assert.Equal(t, int32(2), calls.Load())
	})

	// Test that exhausted delivery attempts surface as an error
	t.Run("ExhaustedDeliveryFails", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		notifier := NewHTTPMerchantNotifier(signer, time.Second, fastPolicy(2), quiet)
		err := notifier.NotifyOrderState(ctx, notifierTestOrder(server.URL))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "merchant notification failed")
	})

	// Test that orders without a notify URL are skipped silently
	t.Run("NoNotifyURLIsNoop", func(t *testing.T) {
		notifier := NewHTTPMerchantNotifier(signer, time.Second, fastPolicy(1), quiet)
		assert.NoError(t, notifier.NotifyOrderState(ctx, notifierTestOrder("")))
	})
}

func TestLogMerchantNotifier(t *testing.T) {
	// Test that the log notifier records without delivering
	notifier := NewLogMerchantNotifier(log.New(io.Discard, "", 0))
	assert.NoError(t, notifier.NotifyOrderState(context.Background(), notifierTestOrder("https://unreachable.example.com")))
}
