package dto

// CreatePaymentOrderRequest opens a payment order against a settlement rail
type CreatePaymentOrderRequest struct {
	MerchantOrderID string            `json:"merchant_order_id" validate:"required,max=128"`
	Amount          string            `json:"amount" validate:"required"`
	Currency        string            `json:"currency" validate:"required,max=8"`
	PaymentMethod   string            `json:"payment_method" validate:"required,oneof=ALIPAY WECHAT_PAY BANK_DEBIT USDT_TRC20 USDT_ERC20 BTC"`
	Subject         string            `json:"subject" validate:"required,max=256"`
	Description     string            `json:"description" validate:"omitempty,max=1024"`
	ExpiryMinutes   int               `json:"expiry_minutes" validate:"omitempty,min=1,max=1440"`
	NotifyURL       string            `json:"notify_url" validate:"omitempty,url"`
	ReturnURL       string            `json:"return_url" validate:"omitempty,url"`
	Metadata        map[string]string `json:"metadata" validate:"omitempty"`
}

// PaymentOrderDTO is the API representation of a payment order
type PaymentOrderDTO struct {
	ID              uint   `json:"id"`
	UUID            string `json:"uuid"`
	OrderNumber     string `json:"order_number"`
	MerchantOrderID string `json:"merchant_order_id"`
	Amount          string `json:"amount"`
	PaidAmount      string `json:"paid_amount"`
	Currency        string `json:"currency"`
	PaymentMethod   string `json:"payment_method"`
	Subject         string `json:"subject"`
	Description     string `json:"description,omitempty"`
	Status          string `json:"status"`
	PaymentURL      string `json:"payment_url,omitempty"`
	QRPayload       string `json:"qr_payload,omitempty"`
	DepositAddress  string `json:"deposit_address,omitempty"`
	Network         string `json:"network,omitempty"`
	GatewayOrderID  string `json:"gateway_order_id,omitempty"`
	ReviewRequired  bool   `json:"review_required"`
	Version         int    `json:"version"`
	CreatedAt       string `json:"created_at"`
	ExpiresAt       string `json:"expires_at,omitempty"`
	PaidAt          string `json:"paid_at,omitempty"`
	FailureReason   string `json:"failure_reason,omitempty"`

	Refunds    []RefundRecordDTO   `json:"refunds,omitempty"`
	Blockchain []BlockchainInfoDTO `json:"blockchain_info,omitempty"`
}

// BlockchainInfoDTO describes one observed on-chain transaction paying a crypto order
type BlockchainInfoDTO struct {
	TxHash                string `json:"tx_hash"`
	Network               string `json:"network"`
	FromAddress           string `json:"from_address,omitempty"`
	ToAddress             string `json:"to_address"`
	Amount                string `json:"amount"`
	Confirmations         int    `json:"confirmations"`
	RequiredConfirmations int    `json:"required_confirmations"`
}

// CancelPaymentOrderRequest cancels an order that has not reached a terminal state
type CancelPaymentOrderRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=256"`
}

// ListPaymentOrdersRequest filters the admin order listing
type ListPaymentOrdersRequest struct {
	Status         string `json:"status" validate:"omitempty,oneof=PENDING PROCESSING SUCCEEDED FAILED CANCELLED EXPIRED CLOSED"`
	PaymentMethod  string `json:"payment_method" validate:"omitempty,oneof=ALIPAY WECHAT_PAY BANK_DEBIT USDT_TRC20 USDT_ERC20 BTC"`
	Currency       string `json:"currency" validate:"omitempty,max=8"`
	ReviewRequired *bool  `json:"review_required" validate:"omitempty"`
	Page           int    `json:"page" validate:"omitempty,min=1"`
	PageSize       int    `json:"page_size" validate:"omitempty,min=1,max=200"`
}

// ListPaymentOrdersResponse is a paginated order listing
type ListPaymentOrdersResponse struct {
	Orders   []PaymentOrderDTO `json:"orders"`
	Total    int64             `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
}
