package dto

// CreateRefundRequest refunds part or all of a succeeded order
type CreateRefundRequest struct {
	OrderNumber string `json:"order_number" validate:"required,max=64"`
	Amount      string `json:"amount" validate:"required"`
	Reason      string `json:"reason" validate:"required,max=256"`
}

// RefundRecordDTO is the API representation of a refund
type RefundRecordDTO struct {
	ID              uint   `json:"id"`
	UUID            string `json:"uuid"`
	RefundNumber    string `json:"refund_number"`
	Amount          string `json:"amount"`
	Currency        string `json:"currency"`
	Reason          string `json:"reason"`
	Status          string `json:"status"`
	GatewayRefundID string `json:"gateway_refund_id,omitempty"`
	FailureReason   string `json:"failure_reason,omitempty"`
	CreatedAt       string `json:"created_at"`
}

// ListRefundsResponse lists the refunds recorded against one order
type ListRefundsResponse struct {
	OrderNumber string            `json:"order_number"`
	Refundable  string            `json:"refundable"` // remaining refundable amount
	Refunds     []RefundRecordDTO `json:"refunds"`
}
