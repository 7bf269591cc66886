package dto

// ObserveConfirmationRequest reports one on-chain transaction sighting. The
// watcher may deliver the same transaction many times as its confirmation
// count grows.
type ObserveConfirmationRequest struct {
	TxHash        string `json:"tx_hash" validate:"required,max=128"`
	Network       string `json:"network" validate:"required,oneof=TRC20 ERC20 BITCOIN"`
	FromAddress   string `json:"from_address" validate:"omitempty,max=128"`
	ToAddress     string `json:"to_address" validate:"required,max=128"`
	Amount        string `json:"amount" validate:"required"`
	Confirmations int    `json:"confirmations" validate:"min=0"`
}

// ConfirmationRecordDTO is the API representation of a tracked transaction
type ConfirmationRecordDTO struct {
	ID                    uint   `json:"id"`
	TxHash                string `json:"tx_hash"`
	Network               string `json:"network"`
	ToAddress             string `json:"to_address"`
	Amount                string `json:"amount"`
	Confirmations         int    `json:"confirmations"`
	RequiredConfirmations int    `json:"required_confirmations"`
	Credited              bool   `json:"credited"`
	CreditedAt            string `json:"credited_at,omitempty"`
}

// ObserveConfirmationResponse returns the tracking state after one sighting
type ObserveConfirmationResponse struct {
	Matched     bool                   `json:"matched"`
	Credited    bool                   `json:"credited"`
	OrderNumber string                 `json:"order_number,omitempty"`
	OrderStatus string                 `json:"order_status,omitempty"`
	Record      *ConfirmationRecordDTO `json:"record,omitempty"`
}
