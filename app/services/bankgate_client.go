package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/AronSwan/onlinestore-sub023/utils"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BankGateClient speaks the direct-debit JSON API. The bank authenticates
// each request with a short-lived HS256 client assertion and an X-Signature
// digest over the exact body bytes; response bodies must carry a matching
// X-Signature and are verified before they are decoded.
type BankGateClient struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Signer       SignatureService
	HTTPClient   *http.Client
	audience     string
	assertionTTL time.Duration
}

func NewBankGateClient(baseURL, clientID, clientSecret, audience string, signer SignatureService, assertionTTL, timeout time.Duration) *BankGateClient {
	if timeout <= 0 {
		timeout = utils.GatewayRequestTimeout
	}
	if assertionTTL <= 0 {
		assertionTTL = 2 * time.Minute
	}
	return &BankGateClient{
		BaseURL:      strings.TrimRight(baseURL, "/"),
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Signer:       signer,
		HTTPClient:   &http.Client{Timeout: timeout},
		audience:     audience,
		assertionTTL: assertionTTL,
	}
}

type DebitInput struct {
	OutTradeNo string
	Subject    string
	Amount     decimal.Decimal
	Currency   string
	NotifyURL  string
}

type DebitResult struct {
	DebitID string
	PayURL  string
}

type debitResponse struct {
	Result  string `json:"result"`
	Reason  string `json:"reason"`
	DebitID string `json:"debit_id"`
	PayURL  string `json:"pay_url"`
}

func (c *BankGateClient) Debit(ctx context.Context, in DebitInput) (*DebitResult, error) {
	body := map[string]any{
		"client_id":    c.ClientID,
		"out_trade_no": in.OutTradeNo,
		"subject":      in.Subject,
		"amount":       in.Amount.StringFixed(2),
		"currency":     in.Currency,
		"notify_url":   in.NotifyURL,
	}

	var resp debitResponse
	if err := c.postJSON(ctx, "/v2/debits", body, &resp); err != nil {
		return nil, err
	}
	if resp.Result != "accepted" {
		return nil, fmt.Errorf("%w: %s", ErrGatewayRejected, resp.Reason)
	}
	return &DebitResult{DebitID: resp.DebitID, PayURL: resp.PayURL}, nil
}

type DebitQueryResult struct {
	DebitID    string
	State      string // pending|settled|failed
	PaidAmount decimal.Decimal
	SettledAt  *time.Time
	Reason     string
}

type debitQueryResponse struct {
	Result     string `json:"result"`
	Reason     string `json:"reason"`
	DebitID    string `json:"debit_id"`
	State      string `json:"state"`
	PaidAmount string `json:"paid_amount"`
	SettledAt  string `json:"settled_at"`
}

func (c *BankGateClient) QueryDebit(ctx context.Context, debitID string) (*DebitQueryResult, error) {
	var resp debitQueryResponse
	if err := c.postJSON(ctx, "/v2/debits/query", map[string]any{
		"client_id": c.ClientID,
		"debit_id":  debitID,
	}, &resp); err != nil {
		return nil, err
	}
	if resp.Result != "ok" {
		return nil, fmt.Errorf("%w: %s", ErrGatewayRejected, resp.Reason)
	}

	result := &DebitQueryResult{DebitID: resp.DebitID, State: resp.State, Reason: resp.Reason}
	if resp.PaidAmount != "" {
		amount, err := decimal.NewFromString(resp.PaidAmount)
		if err != nil {
			return nil, fmt.Errorf("bankgate: malformed paid_amount %q", resp.PaidAmount)
		}
		result.PaidAmount = amount
	}
	if resp.SettledAt != "" {
		if settledAt, err := time.Parse(time.RFC3339, resp.SettledAt); err == nil {
			result.SettledAt = &settledAt
		}
	}
	return result, nil
}

type ReverseResult struct {
	ReversalID string
	State      string // pending|settled|failed
}

type reverseResponse struct {
	Result     string `json:"result"`
	Reason     string `json:"reason"`
	ReversalID string `json:"reversal_id"`
	State      string `json:"state"`
}

func (c *BankGateClient) ReverseDebit(ctx context.Context, debitID, outRefundNo string, amount decimal.Decimal) (*ReverseResult, error) {
	var resp reverseResponse
	if err := c.postJSON(ctx, "/v2/debits/reverse", map[string]any{
		"client_id":     c.ClientID,
		"debit_id":      debitID,
		"out_refund_no": outRefundNo,
		"amount":        amount.StringFixed(2),
	}, &resp); err != nil {
		return nil, err
	}
	if resp.Result != "accepted" {
		return nil, fmt.Errorf("%w: %s", ErrGatewayRejected, resp.Reason)
	}
	return &ReverseResult{ReversalID: resp.ReversalID, State: resp.State}, nil
}

// clientAssertion mints the per-request bearer token
func (c *BankGateClient) clientAssertion() (string, error) {
	now := utils.UTCNow()
	claims := jwt.MapClaims{
		"iss": c.ClientID,
		"sub": c.ClientID,
		"jti": uuid.New().String(),
		"iat": now.Unix(),
		"exp": now.Add(c.assertionTTL).Unix(),
	}
	if c.audience != "" {
		claims["aud"] = c.audience
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(c.ClientSecret))
}

func (c *BankGateClient) postJSON(ctx context.Context, path string, payload any, out any) error {
	assertion, err := c.clientAssertion()
	if err != nil {
		return err
	}

	b, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+assertion)
	req.Header.Set("X-Signature", c.Signer.SignPayload(b))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &HTTPStatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	// A reply without X-Signature fails verification; stripping the header
	// must not downgrade the exchange to unsigned.
	if err := c.Signer.VerifyPayload(body, resp.Header.Get("X-Signature")); err != nil {
		return fmt.Errorf("bankgate: response signature: %w", err)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}
