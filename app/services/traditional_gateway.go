package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/AronSwan/onlinestore-sub023/models"
)

// TraditionalGatewayAdapter fronts the fiat rails. It routes each order to
// the rail client matching its payment method and retries transient failures
// under the configured policy. notifyBaseURL is our public callback endpoint
// root; providers append nothing, we append the provider segment.
type TraditionalGatewayAdapter struct {
	alipay        *AlipayClient
	bank          *BankGateClient
	policy        RetryPolicy
	notifyBaseURL string
}

func NewTraditionalGatewayAdapter(alipay *AlipayClient, bank *BankGateClient, policy RetryPolicy, notifyBaseURL string) *TraditionalGatewayAdapter {
	return &TraditionalGatewayAdapter{
		alipay:        alipay,
		bank:          bank,
		policy:        policy,
		notifyBaseURL: strings.TrimRight(notifyBaseURL, "/"),
	}
}

func (a *TraditionalGatewayAdapter) notifyURL(provider string) string {
	if a.notifyBaseURL == "" {
		return ""
	}
	return a.notifyBaseURL + "/" + provider
}

func (a *TraditionalGatewayAdapter) Name() string { return "traditional" }

func (a *TraditionalGatewayAdapter) CreatePayment(ctx context.Context, order *models.PaymentOrder) (*CreatePaymentResult, error) {
	switch order.PaymentMethod {
	case models.PaymentMethodAlipay, models.PaymentMethodWechatPay:
		in := TradeCreateInput{
			OutTradeNo: order.OrderNumber,
			Channel:    tradeChannel(order.PaymentMethod),
			Subject:    order.Subject,
			Amount:     order.Amount,
			Currency:   order.Currency,
			NotifyURL:  a.notifyURL("alipay"),
			ReturnURL:  order.ReturnURL,
		}
		var result *TradeCreateResult
		err := DoWithRetry(ctx, a.policy, func(ctx context.Context) error {
			r, err := a.alipay.CreateTrade(ctx, in)
			if err == nil {
				result = r
			}
			return err
		})
		if err != nil {
			return nil, err
		}
		return &CreatePaymentResult{
			GatewayOrderID: result.TradeNo,
			PaymentURL:     result.PayURL,
			QRPayload:      result.QRCode,
			ExpiresAt:      result.ExpireAt,
		}, nil

	case models.PaymentMethodBankDebit:
		in := DebitInput{
			OutTradeNo: order.OrderNumber,
			Subject:    order.Subject,
			Amount:     order.Amount,
			Currency:   order.Currency,
			NotifyURL:  a.notifyURL("bankgate"),
		}
		var result *DebitResult
		err := DoWithRetry(ctx, a.policy, func(ctx context.Context) error {
			r, err := a.bank.Debit(ctx, in)
			if err == nil {
				result = r
			}
			return err
		})
		if err != nil {
			return nil, err
		}
		return &CreatePaymentResult{
			GatewayOrderID: result.DebitID,
			PaymentURL:     result.PayURL,
		}, nil
	}

	return nil, fmt.Errorf("traditional gateway: unsupported payment method %s", order.PaymentMethod)
}

func (a *TraditionalGatewayAdapter) QueryPayment(ctx context.Context, order *models.PaymentOrder) (*QueryPaymentResult, error) {
	switch order.PaymentMethod {
	case models.PaymentMethodAlipay, models.PaymentMethodWechatPay:
		var result *TradeQueryResult
		err := DoWithRetry(ctx, a.policy, func(ctx context.Context) error {
			r, err := a.alipay.QueryTrade(ctx, order.OrderNumber)
			if err == nil {
				result = r
			}
			return err
		})
		if err != nil {
			return nil, err
		}
		out := &QueryPaymentResult{
			PaidAmount:    result.PaidAmount,
			PaidAt:        result.PaidAt,
			FailureReason: result.Message,
		}
		switch result.TradeStatus {
		case "SUCCESS":
			out.Status = GatewayStatusPaid
		case "CLOSED":
			out.Status = GatewayStatusFailed
		default:
			out.Status = GatewayStatusPending
		}
		return out, nil

	case models.PaymentMethodBankDebit:
		if order.GatewayOrderID == nil {
			return &QueryPaymentResult{Status: GatewayStatusPending}, nil
		}
		var result *DebitQueryResult
		err := DoWithRetry(ctx, a.policy, func(ctx context.Context) error {
			r, err := a.bank.QueryDebit(ctx, *order.GatewayOrderID)
			if err == nil {
				result = r
			}
			return err
		})
		if err != nil {
			return nil, err
		}
		out := &QueryPaymentResult{
			PaidAmount:    result.PaidAmount,
			PaidAt:        result.SettledAt,
			FailureReason: result.Reason,
		}
		switch result.State {
		case "settled":
			out.Status = GatewayStatusPaid
		case "failed":
			out.Status = GatewayStatusFailed
		default:
			out.Status = GatewayStatusPending
		}
		return out, nil
	}

	return nil, fmt.Errorf("traditional gateway: unsupported payment method %s", order.PaymentMethod)
}

func (a *TraditionalGatewayAdapter) Refund(ctx context.Context, order *models.PaymentOrder, refund *models.RefundRecord) (*RefundResult, error) {
	if order.GatewayOrderID == nil {
		return nil, fmt.Errorf("%w: order has no gateway reference", ErrGatewayRejected)
	}

	switch order.PaymentMethod {
	case models.PaymentMethodAlipay, models.PaymentMethodWechatPay:
		in := TradeRefundInput{
			OutRefundNo: refund.RefundNumber,
			TradeNo:     *order.GatewayOrderID,
			Amount:      refund.Amount,
			Reason:      refund.Reason,
		}
		var result *TradeRefundResult
		err := DoWithRetry(ctx, a.policy, func(ctx context.Context) error {
			r, err := a.alipay.RefundTrade(ctx, in)
			if err == nil {
				result = r
			}
			return err
		})
		if err != nil {
			return nil, err
		}
		out := &RefundResult{GatewayRefundID: result.RefundNo}
		switch result.RefundStatus {
		case "SUCCESS":
			out.Status = GatewayStatusPaid
		case "FAIL":
			out.Status = GatewayStatusFailed
		default:
			out.Status = GatewayStatusPending
		}
		return out, nil

	case models.PaymentMethodBankDebit:
		var result *ReverseResult
		err := DoWithRetry(ctx, a.policy, func(ctx context.Context) error {
			r, err := a.bank.ReverseDebit(ctx, *order.GatewayOrderID, refund.RefundNumber, refund.Amount)
			if err == nil {
				result = r
			}
			return err
		})
		if err != nil {
			return nil, err
		}
		out := &RefundResult{GatewayRefundID: result.ReversalID}
		switch result.State {
		case "settled":
			out.Status = GatewayStatusPaid
		case "failed":
			out.Status = GatewayStatusFailed
		default:
			out.Status = GatewayStatusPending
		}
		return out, nil
	}

	return nil, fmt.Errorf("traditional gateway: unsupported payment method %s", order.PaymentMethod)
}

func tradeChannel(method models.PaymentMethod) string {
	if method == models.PaymentMethodWechatPay {
		return "wechat"
	}
	return "alipay"
}
