package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const alipayTestSecret = "alipay-test-secret-123"

// newTradeServer stands in for the acquiring endpoint: it verifies the
// request signature the way the real gateway does, then replies with the
// configured JSON body signed under the same shared secret.
func newTradeServer(t *testing.T, wantPath string, capture *map[string]string, status int, body map[string]string) *httptest.Server {
	t.Helper()
	verifier := NewHMACSignatureService(alipayTestSecret, 5*time.Minute)

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, wantPath, r.URL.Path)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))

		require.NoError(t, r.ParseForm())
		params := map[string]string{}
		for k := range r.PostForm {
			params[k] = r.PostForm.Get(k)
		}
		assert.NoError(t, verifier.Verify(params), "request signature must verify")
		if capture != nil {
			*capture = params
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(verifier.SignRequest(body))
	}))
}

func TestAlipayClientCreateTrade(t *testing.T) {
	ctx := context.Background()
	signer := NewHMACSignatureService(alipayTestSecret, 5*time.Minute)

	// Test the happy path: signed form out, JSON result back
	t.Run("CreateTradeSuccess", func(t *testing.T) {
		var got map[string]string
		server := newTradeServer(t, "/gateway/trade/create", &got, http.StatusOK, map[string]string{
			"code":      "SUCCESS",
			"trade_no":  "ALI-20260102-0001",
			"pay_url":   "https://pay.example.com/t/ALI-20260102-0001",
			"qr_code":   "https://qr.example.com/ALI-20260102-0001",
			"expire_at": "2026-01-02T15:04:05Z",
		})
		defer server.Close()

		client := NewAlipayClient(server.URL, "merchant-42", signer, time.Second)
		result, err := client.CreateTrade(ctx, TradeCreateInput{
			OutTradeNo: "PO-abc-1",
			Channel:    "alipay",
			Subject:    "Golden Widget",
			Amount:     decimal.RequireFromString("100.5"),
			Currency:   "CNY",
			NotifyURL:  "https://shop.example.com/callbacks/alipay",
		})
		require.NoError(t, err)

		assert.Equal(t, "ALI-20260102-0001", result.TradeNo)
		assert.Equal(t, "https://pay.example.com/t/ALI-20260102-0001", result.PayURL)
		assert.Equal(t, "https://qr.example.com/ALI-20260102-0001", result.QRCode)
		require.NotNil(t, result.ExpireAt)
		assert.True(t, result.ExpireAt.Equal(time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)))

		assert.Equal(t, "merchant-42", got["merchant_id"])
		assert.Equal(t, "PO-abc-1", got["out_trade_no"])
		assert.Equal(t, "100.50", got["amount"])
		assert.Equal(t, "alipay", got["channel"])
	})

	// Test that a definitive rejection maps to ErrGatewayRejected
	t.Run("CreateTradeRejected", func(t *testing.T) {
		server := newTradeServer(t, "/gateway/trade/create", nil, http.StatusOK, map[string]string{
			"code":    "INVALID_PARAMS",
			"message": "subject required",
		})
		defer server.Close()

		client := NewAlipayClient(server.URL, "merchant-42", signer, time.Second)
		_, err := client.CreateTrade(ctx, TradeCreateInput{OutTradeNo: "PO-abc-2", Amount: decimal.RequireFromString("1")})
		require.ErrorIs(t, err, ErrGatewayRejected)
		assert.Contains(t, err.Error(), "subject required")
	})

	// Test that a 5xx response surfaces as a retryable status error
	t.Run("CreateTradeServerError", func(t *testing.T) {
		server := newTradeServer(t, "/gateway/trade/create", nil, http.StatusServiceUnavailable, map[string]string{})
		defer server.Close()

		client := NewAlipayClient(server.URL, "merchant-42", signer, time.Second)
		_, err := client.CreateTrade(ctx, TradeCreateInput{OutTradeNo: "PO-abc-3", Amount: decimal.RequireFromString("1")})

		var httpErr *HTTPStatusError
		require.ErrorAs(t, err, &httpErr)
		assert.Equal(t, http.StatusServiceUnavailable, httpErr.StatusCode)
		assert.True(t, IsRetryable(err))
	})
}

func TestAlipayClientQueryTrade(t *testing.T) {
	ctx := context.Background()
	signer := NewHMACSignatureService(alipayTestSecret, 5*time.Minute)

	// Test a settled trade with paid amount and settlement time
	t.Run("QueryPaidTrade", func(t *testing.T) {
		var got map[string]string
		server := newTradeServer(t, "/gateway/trade/query", &got, http.StatusOK, map[string]string{
			"code":         "SUCCESS",
			"trade_no":     "ALI-20260102-0001",
			"trade_status": "SUCCESS",
			"paid_amount":  "100.50",
			"paid_at":      "2026-01-02T15:00:00Z",
		})
		defer server.Close()

		client := NewAlipayClient(server.URL, "merchant-42", signer, time.Second)
		result, err := client.QueryTrade(ctx, "PO-abc-1")
		require.NoError(t, err)

		assert.Equal(t, "SUCCESS", result.TradeStatus)
		assert.True(t, result.PaidAmount.Equal(decimal.RequireFromString("100.50")))
		require.NotNil(t, result.PaidAt)
		assert.True(t, result.PaidAt.Equal(time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC)))
		assert.Equal(t, "PO-abc-1", got["out_trade_no"])
	})

	// Test that an unsigned reply is rejected before any field is trusted
	t.Run("UnsignedResponseRejected", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]string{
				"code":         "SUCCESS",
				"trade_status": "SUCCESS",
				"paid_amount":  "100.50",
			})
		}))
		defer server.Close()

		client := NewAlipayClient(server.URL, "merchant-42", signer, time.Second)
		_, err := client.QueryTrade(ctx, "PO-abc-1")
		require.ErrorIs(t, err, ErrSignatureMissing)
	})

	// Test that a reply signed under a different secret is rejected
	t.Run("ForeignSignedResponseRejected", func(t *testing.T) {
		forger := NewHMACSignatureService("not-the-shared-secret", 5*time.Minute)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(forger.SignRequest(map[string]string{
				"code":         "SUCCESS",
				"trade_status": "SUCCESS",
				"paid_amount":  "100.50",
			}))
		}))
		defer server.Close()

		client := NewAlipayClient(server.URL, "merchant-42", signer, time.Second)
		_, err := client.QueryTrade(ctx, "PO-abc-1")
		require.ErrorIs(t, err, ErrSignatureMismatch)
	})

	// Test that a garbled paid_amount is reported, not silently zeroed
	t.Run("QueryMalformedAmount", func(t *testing.T) {
		server := newTradeServer(t, "/gateway/trade/query", nil, http.StatusOK, map[string]string{
			"code":         "SUCCESS",
			"trade_status": "SUCCESS",
			"paid_amount":  "one hundred",
		})
		defer server.Close()

		client := NewAlipayClient(server.URL, "merchant-42", signer, time.Second)
		_, err := client.QueryTrade(ctx, "PO-abc-1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "malformed paid_amount")
	})
}

func TestAlipayClientRefundTrade(t *testing.T) {
	ctx := context.Background()
	signer := NewHMACSignatureService(alipayTestSecret, 5*time.Minute)

	t.Run("RefundAccepted", func(t *testing.T) {
		var got map[string]string
		server := newTradeServer(t, "/gateway/trade/refund", &got, http.StatusOK, map[string]string{
			"code":          "SUCCESS",
			"refund_no":     "ALIREF-20260102-0001",
			"refund_status": "PROCESSING",
		})
		defer server.Close()

		client := NewAlipayClient(server.URL, "merchant-42", signer, time.Second)
		result, err := client.RefundTrade(ctx, TradeRefundInput{
			OutRefundNo: "RF-abc-1",
			TradeNo:     "ALI-20260102-0001",
			Amount:      decimal.RequireFromString("40"),
			Reason:      "customer request",
		})
		require.NoError(t, err)

		assert.Equal(t, "ALIREF-20260102-0001", result.RefundNo)
		assert.Equal(t, "PROCESSING", result.RefundStatus)
		assert.Equal(t, "RF-abc-1", got["out_refund_no"])
		assert.Equal(t, "ALI-20260102-0001", got["trade_no"])
		assert.Equal(t, "40.00", got["refund_amount"])
	})
}
