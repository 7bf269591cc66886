// Package services provides external service integrations and technical concerns like gateways and signing
package services

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/AronSwan/onlinestore-sub023/models"
	"github.com/AronSwan/onlinestore-sub023/utils"
)

// MerchantNotifier pushes order state changes to the merchant's notify URL
type MerchantNotifier interface {
	NotifyOrderState(ctx context.Context, order *models.PaymentOrder) error
}

// HTTPMerchantNotifier delivers signed form-encoded notifications. Delivery
// retries transient failures; the merchant acknowledges with any 2xx.
type HTTPMerchantNotifier struct {
	Signer     SignatureService
	HTTPClient *http.Client
	Policy     RetryPolicy
	logger     *log.Logger
}

func NewHTTPMerchantNotifier(signer SignatureService, timeout time.Duration, policy RetryPolicy, logger *log.Logger) *HTTPMerchantNotifier {
	if timeout <= 0 {
		timeout = utils.GatewayRequestTimeout
	}
	return &HTTPMerchantNotifier{
		Signer:     signer,
		HTTPClient: &http.Client{Timeout: timeout},
		Policy:     policy,
		logger:     logger,
	}
}

func (n *HTTPMerchantNotifier) NotifyOrderState(ctx context.Context, order *models.PaymentOrder) error {
	if order.NotifyURL == "" {
		return nil
	}

	params := map[string]string{
		"order_number":      order.OrderNumber,
		"merchant_order_id": order.MerchantOrderID,
		"status":            string(order.Status),
		"amount":            order.Amount.StringFixed(2),
		"paid_amount":       order.PaidAmount.StringFixed(2),
		"currency":          order.Currency,
		"payment_method":    string(order.PaymentMethod),
	}
	signed := n.Signer.SignRequest(params)

	form := url.Values{}
	for k, v := range signed {
		form.Set(k, v)
	}
	body := form.Encode()

	err := DoWithRetry(ctx, n.Policy, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, order.NotifyURL, strings.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := n.HTTPClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return &HTTPStatusError{StatusCode: resp.StatusCode}
		}
		return nil
	})
	if err != nil {
		n.logger.Printf("[MerchantNotifier] Delivery failed for order %s: %v", order.OrderNumber, err)
		return fmt.Errorf("merchant notification failed: %w", err)
	}
	return nil
}

// LogMerchantNotifier records notifications instead of delivering them
type LogMerchantNotifier struct {
	logger *log.Logger
}

func NewLogMerchantNotifier(logger *log.Logger) *LogMerchantNotifier {
	return &LogMerchantNotifier{logger: logger}
}

func (n *LogMerchantNotifier) NotifyOrderState(ctx context.Context, order *models.PaymentOrder) error {
	n.logger.Printf("[MerchantNotifier] Order %s is now %s (paid %s of %s %s)",
		order.OrderNumber, order.Status, order.PaidAmount.StringFixed(2), order.Amount.StringFixed(2), order.Currency)
	return nil
}
