package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	bankTestClientID = "paycore-client"
	bankTestSecret   = "bankgate-shared-secret"
	bankTestAudience = "https://bank.example.com"
)

// newBankServer stands in for the direct-debit API: it validates the HS256
// client assertion before replying with the configured JSON body, signed
// over the exact bytes via X-Signature.
func newBankServer(t *testing.T, wantPath string, capture *map[string]any, status int, body any) *httptest.Server {
	t.Helper()
	signer := NewHMACSignatureService(bankTestSecret, 5*time.Minute)

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, wantPath, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		auth := r.Header.Get("Authorization")
		require.True(t, len(auth) > 7 && auth[:7] == "Bearer ")
		token, err := jwt.Parse(auth[7:], func(tok *jwt.Token) (any, error) {
			return []byte(bankTestSecret), nil
		}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithAudience(bankTestAudience), jwt.WithIssuer(bankTestClientID))
		require.NoError(t, err, "client assertion must parse and validate")
		claims := token.Claims.(jwt.MapClaims)
		assert.Equal(t, bankTestClientID, claims["sub"])
		assert.NotEmpty(t, claims["jti"])

		if capture != nil {
			payload := map[string]any{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			*capture = payload
		}

		b, err := json.Marshal(body)
		require.NoError(t, err)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Signature", signer.SignPayload(b))
		w.WriteHeader(status)
		_, _ = w.Write(b)
	}))
}

func newBankClient(baseURL string) *BankGateClient {
	signer := NewHMACSignatureService(bankTestSecret, 5*time.Minute)
	return NewBankGateClient(baseURL, bankTestClientID, bankTestSecret, bankTestAudience, signer, time.Minute, time.Second)
}

func TestBankGateClientDebit(t *testing.T) {
	ctx := context.Background()

	// Test the happy path: authenticated JSON out, accepted result back
	t.Run("DebitAccepted", func(t *testing.T) {
		var got map[string]any
		server := newBankServer(t, "/v2/debits", &got, http.StatusOK, map[string]any{
			"result":   "accepted",
			"debit_id": "DB-20260102-0001",
			"pay_url":  "https://bank.example.com/pay/DB-20260102-0001",
		})
		defer server.Close()

		result, err := newBankClient(server.URL).Debit(ctx, DebitInput{
			OutTradeNo: "PO-abc-1",
			Subject:    "Golden Widget",
			Amount:     decimal.RequireFromString("250"),
			Currency:   "CNY",
			NotifyURL:  "https://shop.example.com/callbacks/bankgate",
		})
		require.NoError(t, err)

		assert.Equal(t, "DB-20260102-0001", result.DebitID)
		assert.Equal(t, "https://bank.example.com/pay/DB-20260102-0001", result.PayURL)
		assert.Equal(t, bankTestClientID, got["client_id"])
		assert.Equal(t, "PO-abc-1", got["out_trade_no"])
		assert.Equal(t, "250.00", got["amount"])
	})

	// Test that a declined debit maps to ErrGatewayRejected
	t.Run("DebitDeclined", func(t *testing.T) {
		server := newBankServer(t, "/v2/debits", nil, http.StatusOK, map[string]any{
			"result": "declined",
			"reason": "insufficient funds",
		})
		defer server.Close()

		_, err := newBankClient(server.URL).Debit(ctx, DebitInput{OutTradeNo: "PO-abc-2", Amount: decimal.RequireFromString("1")})
		require.ErrorIs(t, err, ErrGatewayRejected)
		assert.Contains(t, err.Error(), "insufficient funds")
	})

	// Test that a 5xx surfaces as a retryable status error
	t.Run("DebitServerError", func(t *testing.T) {
		server := newBankServer(t, "/v2/debits", nil, http.StatusBadGateway, map[string]any{})
		defer server.Close()

		_, err := newBankClient(server.URL).Debit(ctx, DebitInput{OutTradeNo: "PO-abc-3", Amount: decimal.RequireFromString("1")})

		var httpErr *HTTPStatusError
		require.ErrorAs(t, err, &httpErr)
		assert.Equal(t, http.StatusBadGateway, httpErr.StatusCode)
		assert.True(t, IsRetryable(err))
	})
}

func TestBankGateClientQueryDebit(t *testing.T) {
	ctx := context.Background()

	t.Run("QuerySettledDebit", func(t *testing.T) {
		var got map[string]any
		server := newBankServer(t, "/v2/debits/query", &got, http.StatusOK, map[string]any{
			"result":      "ok",
			"debit_id":    "DB-20260102-0001",
			"state":       "settled",
			"paid_amount": "250.00",
			"settled_at":  "2026-01-02T16:30:00Z",
		})
		defer server.Close()

		result, err := newBankClient(server.URL).QueryDebit(ctx, "DB-20260102-0001")
		require.NoError(t, err)

		assert.Equal(t, "settled", result.State)
		assert.True(t, result.PaidAmount.Equal(decimal.RequireFromString("250.00")))
		require.NotNil(t, result.SettledAt)
		assert.True(t, result.SettledAt.Equal(time.Date(2026, 1, 2, 16, 30, 0, 0, time.UTC)))
		assert.Equal(t, "DB-20260102-0001", got["debit_id"])
	})

	// Test that a reply missing the X-Signature header is rejected, even
	// when its body claims settlement
	t.Run("StrippedResponseSignatureRejected", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"result":      "ok",
				"debit_id":    "DB-20260102-0001",
				"state":       "settled",
				"paid_amount": "250.00",
			})
		}))
		defer server.Close()

		_, err := newBankClient(server.URL).QueryDebit(ctx, "DB-20260102-0001")
		require.ErrorIs(t, err, ErrSignatureMissing)
		assert.Contains(t, err.Error(), "response signature")
	})

	t.Run("QueryUnknownDebit", func(t *testing.T) {
		server := newBankServer(t, "/v2/debits/query", nil, http.StatusOK, map[string]any{
			"result": "error",
			"reason": "debit not found",
		})
		defer server.Close()

		_, err := newBankClient(server.URL).QueryDebit(ctx, "DB-unknown")
		require.ErrorIs(t, err, ErrGatewayRejected)
		assert.Contains(t, err.Error(), "debit not found")
	})
}

func TestBankGateClientReverseDebit(t *testing.T) {
	ctx := context.Background()

	t.Run("ReverseAccepted", func(t *testing.T) {
		var got map[string]any
		server := newBankServer(t, "/v2/debits/reverse", &got, http.StatusOK, map[string]any{
			"result":      "accepted",
			"reversal_id": "RV-20260102-0001",
			"state":       "pending",
		})
		defer server.Close()

		result, err := newBankClient(server.URL).ReverseDebit(ctx, "DB-20260102-0001", "RF-abc-1", decimal.RequireFromString("100"))
		require.NoError(t, err)

		assert.Equal(t, "RV-20260102-0001", result.ReversalID)
		assert.Equal(t, "pending", result.State)
		assert.Equal(t, "DB-20260102-0001", got["debit_id"])
		assert.Equal(t, "RF-abc-1", got["out_refund_no"])
		assert.Equal(t, "100.00", got["amount"])
	})
}
