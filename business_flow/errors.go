// Package businessflow contains the core business logic and use cases for payment workflows
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Order-related errors
	ErrOrderNotFound            = errors.New("payment order not found")
	ErrDuplicateOrder           = errors.New("merchant order ID already exists")
	ErrMerchantOrderIDRequired  = errors.New("merchant order ID is required")
	ErrSubjectRequired          = errors.New("subject is required")
	ErrCurrencyRequired         = errors.New("currency is required")
	ErrAmountOutOfRange         = errors.New("amount must be greater than zero and at most 999999.99")
	ErrPaymentMethodUnsupported = errors.New("payment method is not supported")
	ErrExpiryOutOfRange         = errors.New("expiry must be between 1 minute and 24 hours")
	ErrOrderExpired             = errors.New("payment order has expired")
	ErrIllegalTransition        = errors.New("illegal order state transition")
	ErrConcurrentModification   = errors.New("payment order was modified concurrently")
	ErrOrderNotCancellable      = errors.New("order is already in a terminal state")

	// Signature errors
	ErrSignatureRequired = errors.New("signature is required")
	ErrSignatureInvalid  = errors.New("signature verification failed")
	ErrTimestampRequired = errors.New("signed timestamp is required")
	ErrTimestampInvalid  = errors.New("signed timestamp is malformed")
	ErrSignatureExpired  = errors.New("signed timestamp is outside the validity window")
	ErrNonceRequired     = errors.New("nonce is required")

	// Gateway errors
	ErrGatewayUnavailable = errors.New("payment gateway is unavailable")
	ErrGatewayRejected    = errors.New("payment gateway rejected the request")
	ErrRefundNotSupported = errors.New("refunds are not supported for this payment method")
	ErrNetworkUnsupported = errors.New("network is not supported")
	ErrNoDepositAddress   = errors.New("no deposit address available for currency and network")

	// Callback errors
	ErrCallbackRequestNil     = errors.New("callback request is nil")
	ErrGatewayOrderIDRequired = errors.New("gateway order reference is required")
	ErrAmountMismatch         = errors.New("notified amount does not match the order amount")

	// Refund errors
	ErrRefundNotFound               = errors.New("refund record not found")
	ErrOrderNotRefundable           = errors.New("order is not in a refundable state")
	ErrRefundAmountTooLow           = errors.New("refund amount must be greater than zero")
	ErrInsufficientRefundableAmount = errors.New("refund amount exceeds the refundable balance")
	ErrRefundInProgress             = errors.New("another refund for this order is being processed")
	ErrRefundReasonRequired         = errors.New("refund reason is required")

	// Confirmation observation errors
	ErrTxHashRequired       = errors.New("transaction hash is required")
	ErrObservationUnmatched = errors.New("no order matched the observed transfer")

	// Filter errors
	ErrInvalidPage           = errors.New("page must be at least 1")
	ErrInvalidPageSize       = errors.New("page size must be between 1 and 100")
	ErrStartDateAfterEndDate = errors.New("start date cannot be after end date")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

// IsRetryable reports whether the error is transient and the caller may retry
func IsRetryable(err error) bool {
	return errors.Is(err, ErrGatewayUnavailable)
}

func IsOrderNotFound(err error) bool {
	return errors.Is(err, ErrOrderNotFound)
}

func IsDuplicateOrder(err error) bool {
	return errors.Is(err, ErrDuplicateOrder)
}

func IsMerchantOrderIDRequired(err error) bool {
	return errors.Is(err, ErrMerchantOrderIDRequired)
}

func IsSubjectRequired(err error) bool {
	return errors.Is(err, ErrSubjectRequired)
}

func IsCurrencyRequired(err error) bool {
	return errors.Is(err, ErrCurrencyRequired)
}

func IsAmountOutOfRange(err error) bool {
	return errors.Is(err, ErrAmountOutOfRange)
}

func IsPaymentMethodUnsupported(err error) bool {
	return errors.Is(err, ErrPaymentMethodUnsupported)
}

func IsExpiryOutOfRange(err error) bool {
	return errors.Is(err, ErrExpiryOutOfRange)
}

func IsOrderExpired(err error) bool {
	return errors.Is(err, ErrOrderExpired)
}

func IsIllegalTransition(err error) bool {
	return errors.Is(err, ErrIllegalTransition)
}

func IsConcurrentModification(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

func IsOrderNotCancellable(err error) bool {
	return errors.Is(err, ErrOrderNotCancellable)
}

func IsSignatureRequired(err error) bool {
	return errors.Is(err, ErrSignatureRequired)
}

func IsSignatureInvalid(err error) bool {
	return errors.Is(err, ErrSignatureInvalid)
}

func IsTimestampRequired(err error) bool {
	return errors.Is(err, ErrTimestampRequired)
}

func IsTimestampInvalid(err error) bool {
	return errors.Is(err, ErrTimestampInvalid)
}

func IsSignatureExpired(err error) bool {
	return errors.Is(err, ErrSignatureExpired)
}

func IsNonceRequired(err error) bool {
	return errors.Is(err, ErrNonceRequired)
}

func IsGatewayUnavailable(err error) bool {
	return errors.Is(err, ErrGatewayUnavailable)
}

func IsGatewayRejected(err error) bool {
	return errors.Is(err, ErrGatewayRejected)
}

func IsRefundNotSupported(err error) bool {
	return errors.Is(err, ErrRefundNotSupported)
}

func IsNetworkUnsupported(err error) bool {
	return errors.Is(err, ErrNetworkUnsupported)
}

func IsNoDepositAddress(err error) bool {
	return errors.Is(err, ErrNoDepositAddress)
}

func IsCallbackRequestNil(err error) bool {
	return errors.Is(err, ErrCallbackRequestNil)
}

func IsGatewayOrderIDRequired(err error) bool {
	return errors.Is(err, ErrGatewayOrderIDRequired)
}

func IsAmountMismatch(err error) bool {
	return errors.Is(err, ErrAmountMismatch)
}

func IsRefundNotFound(err error) bool {
	return errors.Is(err, ErrRefundNotFound)
}

func IsOrderNotRefundable(err error) bool {
	return errors.Is(err, ErrOrderNotRefundable)
}

func IsRefundAmountTooLow(err error) bool {
	return errors.Is(err, ErrRefundAmountTooLow)
}

func IsInsufficientRefundableAmount(err error) bool {
	return errors.Is(err, ErrInsufficientRefundableAmount)
}

func IsRefundInProgress(err error) bool {
	return errors.Is(err, ErrRefundInProgress)
}

func IsRefundReasonRequired(err error) bool {
	return errors.Is(err, ErrRefundReasonRequired)
}

func IsTxHashRequired(err error) bool {
	return errors.Is(err, ErrTxHashRequired)
}

func IsObservationUnmatched(err error) bool {
	return errors.Is(err, ErrObservationUnmatched)
}

func IsInvalidPage(err error) bool {
	return errors.Is(err, ErrInvalidPage)
}

func IsInvalidPageSize(err error) bool {
	return errors.Is(err, ErrInvalidPageSize)
}

func IsStartDateAfterEndDate(err error) bool {
	return errors.Is(err, ErrStartDateAfterEndDate)
}
