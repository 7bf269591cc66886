package dto

// GatewayCallbackRequest carries one inbound provider notification. Params
// holds the flat key/value form exactly as received, including the signature
// fields, so verification runs over the same bytes the provider signed.
type GatewayCallbackRequest struct {
	Provider   string            `json:"provider" validate:"required,oneof=alipay bankgate"`
	EventType  string            `json:"event_type" validate:"omitempty,max=64"`
	Params     map[string]string `json:"params" validate:"required"`
	RawPayload []byte            `json:"-"`
}

// CallbackAckDTO is the disposition returned to the provider
type CallbackAckDTO struct {
	Outcome     string `json:"outcome"`
	Duplicate   bool   `json:"duplicate"`
	OrderNumber string `json:"order_number,omitempty"`
	OrderStatus string `json:"order_status,omitempty"`
}

// CallbackEventDTO is the admin representation of a recorded notification
type CallbackEventDTO struct {
	ID             uint   `json:"id"`
	UUID           string `json:"uuid"`
	DedupeKey      string `json:"dedupe_key"`
	Provider       string `json:"provider"`
	EventType      string `json:"event_type"`
	GatewayOrderID string `json:"gateway_order_id,omitempty"`
	PaymentOrderID *uint  `json:"payment_order_id,omitempty"`
	Amount         string `json:"amount"`
	Outcome        string `json:"outcome"`
	FailureReason  string `json:"failure_reason,omitempty"`
	VerifiedAt     string `json:"verified_at"`
	AppliedAt      string `json:"applied_at,omitempty"`
}

// ListFlaggedCallbacksRequest bounds the manual-review listing window
type ListFlaggedCallbacksRequest struct {
	From string `json:"from" validate:"required"`
	To   string `json:"to" validate:"required"`
}
