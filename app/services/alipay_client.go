package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/AronSwan/onlinestore-sub023/utils"
	"github.com/shopspring/decimal"
)

// AlipayClient speaks the form-encoded trade protocol shared by the Alipay
// and WeChat Pay acquiring endpoints. Every request carries a signature over
// the sorted parameters; every response is a flat JSON object signed the
// same way, and is verified before any field is trusted.
type AlipayClient struct {
	BaseURL    string
	MerchantID string
	Signer     SignatureService
	HTTPClient *http.Client
}

func NewAlipayClient(baseURL, merchantID string, signer SignatureService, timeout time.Duration) *AlipayClient {
	if timeout <= 0 {
		timeout = utils.GatewayRequestTimeout
	}
	return &AlipayClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		MerchantID: merchantID,
		Signer:     signer,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

type TradeCreateInput struct {
	OutTradeNo string
	Channel    string // alipay|wechat
	Subject    string
	Amount     decimal.Decimal
	Currency   string
	NotifyURL  string
	ReturnURL  string
}

type TradeCreateResult struct {
	TradeNo  string
	PayURL   string
	QRCode   string
	ExpireAt *time.Time
}

type tradeCreateResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	TradeNo  string `json:"trade_no"`
	PayURL   string `json:"pay_url"`
	QRCode   string `json:"qr_code"`
	ExpireAt string `json:"expire_at"`
}

func (c *AlipayClient) CreateTrade(ctx context.Context, in TradeCreateInput) (*TradeCreateResult, error) {
	params := map[string]string{
		"merchant_id":  c.MerchantID,
		"out_trade_no": in.OutTradeNo,
		"channel":      in.Channel,
		"subject":      in.Subject,
		"amount":       in.Amount.StringFixed(2),
		"currency":     in.Currency,
		"notify_url":   in.NotifyURL,
		"return_url":   in.ReturnURL,
	}

	var resp tradeCreateResponse
	if err := c.postForm(ctx, "/gateway/trade/create", params, &resp); err != nil {
		return nil, err
	}
	if resp.Code != "SUCCESS" {
		return nil, fmt.Errorf("%w: %s", ErrGatewayRejected, resp.Message)
	}
	result := &TradeCreateResult{TradeNo: resp.TradeNo, PayURL: resp.PayURL, QRCode: resp.QRCode}
	if resp.ExpireAt != "" {
		if t, err := time.Parse(time.RFC3339, resp.ExpireAt); err == nil {
			result.ExpireAt = &t
		}
	}
	return result, nil
}

type TradeQueryResult struct {
	TradeNo     string
	TradeStatus string // WAIT_PAY|SUCCESS|CLOSED
	PaidAmount  decimal.Decimal
	PaidAt      *time.Time
	Message     string
}

type tradeQueryResponse struct {
	Code        string `json:"code"`
	Message     string `json:"message"`
	TradeNo     string `json:"trade_no"`
	TradeStatus string `json:"trade_status"`
	PaidAmount  string `json:"paid_amount"`
	PaidAt      string `json:"paid_at"`
}

func (c *AlipayClient) QueryTrade(ctx context.Context, outTradeNo string) (*TradeQueryResult, error) {
	params := map[string]string{
		"merchant_id":  c.MerchantID,
		"out_trade_no": outTradeNo,
	}

	var resp tradeQueryResponse
	if err := c.postForm(ctx, "/gateway/trade/query", params, &resp); err != nil {
		return nil, err
	}
	if resp.Code != "SUCCESS" {
		return nil, fmt.Errorf("%w: %s", ErrGatewayRejected, resp.Message)
	}

	result := &TradeQueryResult{TradeNo: resp.TradeNo, TradeStatus: resp.TradeStatus, Message: resp.Message}
	if resp.PaidAmount != "" {
		amount, err := decimal.NewFromString(resp.PaidAmount)
		if err != nil {
			return nil, fmt.Errorf("alipay: malformed paid_amount %q", resp.PaidAmount)
		}
		result.PaidAmount = amount
	}
	if resp.PaidAt != "" {
		if paidAt, err := time.Parse(time.RFC3339, resp.PaidAt); err == nil {
			result.PaidAt = &paidAt
		}
	}
	return result, nil
}

type TradeRefundInput struct {
	OutRefundNo string
	TradeNo     string
	Amount      decimal.Decimal
	Reason      string
}

type TradeRefundResult struct {
	RefundNo     string
	RefundStatus string // PROCESSING|SUCCESS|FAIL
}

type tradeRefundResponse struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	RefundNo     string `json:"refund_no"`
	RefundStatus string `json:"refund_status"`
}

func (c *AlipayClient) RefundTrade(ctx context.Context, in TradeRefundInput) (*TradeRefundResult, error) {
	params := map[string]string{
		"merchant_id":   c.MerchantID,
		"trade_no":      in.TradeNo,
		"out_refund_no": in.OutRefundNo,
		"refund_amount": in.Amount.StringFixed(2),
		"refund_reason": in.Reason,
	}

	var resp tradeRefundResponse
	if err := c.postForm(ctx, "/gateway/trade/refund", params, &resp); err != nil {
		return nil, err
	}
	if resp.Code != "SUCCESS" {
		return nil, fmt.Errorf("%w: %s", ErrGatewayRejected, resp.Message)
	}
	return &TradeRefundResult{RefundNo: resp.RefundNo, RefundStatus: resp.RefundStatus}, nil
}

// postForm signs params, sends them form-encoded, verifies the reply's
// signature and decodes it. An unsigned or tampered reply is rejected before
// any of its fields reach the caller.
func (c *AlipayClient) postForm(ctx context.Context, path string, params map[string]string, out any) error {
	signed := c.Signer.SignRequest(params)

	form := url.Values{}
	for k, v := range signed {
		form.Set(k, v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

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
	fields := map[string]string{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return fmt.Errorf("alipay: malformed response body: %w", err)
	}
	if err := c.Signer.Verify(fields); err != nil {
		return fmt.Errorf("alipay: response signature: %w", err)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}
