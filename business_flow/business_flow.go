// Package businessflow contains the business logic for the application.
package businessflow

import (
	"time"

	"github.com/AronSwan/onlinestore-sub023/app/dto"
	"github.com/AronSwan/onlinestore-sub023/models"
)

const RequestIDKey = "X-Request-ID"

// ClientMetadata holds all client-related information for audit logging and session tracking
type ClientMetadata struct {
	IPAddress  string            `json:"ip_address"`
	UserAgent  string            `json:"user_agent"`
	DeviceInfo map[string]string `json:"device_info,omitempty"`
	Location   *LocationInfo     `json:"location,omitempty"`
	RequestID  string            `json:"request_id,omitempty"`
	SessionID  string            `json:"session_id,omitempty"`
	Additional map[string]string `json:"additional,omitempty"`
}

// LocationInfo holds geographical location information
type LocationInfo struct {
	Country   string `json:"country,omitempty"`
	Region    string `json:"region,omitempty"`
	City      string `json:"city,omitempty"`
	Latitude  string `json:"latitude,omitempty"`
	Longitude string `json:"longitude,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		DeviceInfo: make(map[string]string),
		Additional: make(map[string]string),
	}
}

// AddDeviceInfo adds device information to the metadata
func (cm *ClientMetadata) AddDeviceInfo(key, value string) {
	if cm.DeviceInfo == nil {
		cm.DeviceInfo = make(map[string]string)
	}
	cm.DeviceInfo[key] = value
}

// AddAdditional adds additional custom information to the metadata
func (cm *ClientMetadata) AddAdditional(key, value string) {
	if cm.Additional == nil {
		cm.Additional = make(map[string]string)
	}
	cm.Additional[key] = value
}

// SetLocation sets location information
func (cm *ClientMetadata) SetLocation(location *LocationInfo) {
	cm.Location = location
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// SetSessionID sets the session ID
func (cm *ClientMetadata) SetSessionID(sessionID string) {
	cm.SessionID = sessionID
}

// ToPaymentOrderDTO converts a payment order model to its API representation
func ToPaymentOrderDTO(order models.PaymentOrder) dto.PaymentOrderDTO {
	d := dto.PaymentOrderDTO{
		ID:              order.ID,
		UUID:            order.UUID.String(),
		OrderNumber:     order.OrderNumber,
		MerchantOrderID: order.MerchantOrderID,
		Amount:          order.Amount.StringFixed(2),
		PaidAmount:      order.PaidAmount.StringFixed(2),
		Currency:        order.Currency,
		PaymentMethod:   string(order.PaymentMethod),
		Subject:         order.Subject,
		Description:     order.Description,
		Status:          string(order.Status),
		PaymentURL:      order.PaymentURL,
		QRPayload:       order.QRPayload,
		DepositAddress:  order.DepositAddress,
		Network:         order.Network,
		ReviewRequired:  order.ReviewRequired,
		Version:         order.Version,
		CreatedAt:       order.CreatedAt.Format(time.RFC3339),
	}

	if order.GatewayOrderID != nil {
		d.GatewayOrderID = *order.GatewayOrderID
	}
	if order.ExpiresAt != nil {
		d.ExpiresAt = order.ExpiresAt.Format(time.RFC3339)
	}
	if order.PaidAt != nil {
		d.PaidAt = order.PaidAt.Format(time.RFC3339)
	}
	if order.FailureReason != "" {
		d.FailureReason = order.FailureReason
	}

	return d
}

// ToBlockchainInfoDTO converts a confirmation record to the on-chain info block
func ToBlockchainInfoDTO(rec models.ConfirmationRecord) dto.BlockchainInfoDTO {
	return dto.BlockchainInfoDTO{
		TxHash:                rec.TxHash,
		Network:               rec.Network,
		FromAddress:           rec.FromAddress,
		ToAddress:             rec.ToAddress,
		Amount:                rec.Amount.String(),
		Confirmations:         rec.Confirmations,
		RequiredConfirmations: rec.RequiredConfirmations,
	}
}

// ToConfirmationRecordDTO converts a confirmation record to its API representation
func ToConfirmationRecordDTO(rec models.ConfirmationRecord) dto.ConfirmationRecordDTO {
	d := dto.ConfirmationRecordDTO{
		ID:                    rec.ID,
		TxHash:                rec.TxHash,
		Network:               rec.Network,
		ToAddress:             rec.ToAddress,
		Amount:                rec.Amount.String(),
		Confirmations:         rec.Confirmations,
		RequiredConfirmations: rec.RequiredConfirmations,
		Credited:              rec.CreditedAt != nil,
	}
	if rec.CreditedAt != nil {
		d.CreditedAt = rec.CreditedAt.Format(time.RFC3339)
	}
	return d
}

// ToCallbackEventDTO converts a callback event to its admin representation
func ToCallbackEventDTO(event models.CallbackEvent) dto.CallbackEventDTO {
	d := dto.CallbackEventDTO{
		ID:             event.ID,
		UUID:           event.UUID.String(),
		DedupeKey:      event.DedupeKey,
		Provider:       event.Provider,
		EventType:      event.EventType,
		GatewayOrderID: event.GatewayOrderID,
		PaymentOrderID: event.PaymentOrderID,
		Amount:         event.Amount.StringFixed(2),
		Outcome:        string(event.Outcome),
		FailureReason:  event.FailureReason,
		VerifiedAt:     event.VerifiedAt.Format(time.RFC3339),
	}
	if event.AppliedAt != nil {
		d.AppliedAt = event.AppliedAt.Format(time.RFC3339)
	}
	return d
}

// ToRefundRecordDTO converts a refund record model to its API representation
func ToRefundRecordDTO(refund models.RefundRecord) dto.RefundRecordDTO {
	d := dto.RefundRecordDTO{
		ID:           refund.ID,
		UUID:         refund.UUID.String(),
		RefundNumber: refund.RefundNumber,
		Amount:       refund.Amount.StringFixed(2),
		Currency:     refund.Currency,
		Reason:       refund.Reason,
		Status:       string(refund.Status),
		CreatedAt:    refund.CreatedAt.Format(time.RFC3339),
	}

	if refund.GatewayRefundID != "" {
		d.GatewayRefundID = refund.GatewayRefundID
	}
	if refund.FailureReason != "" {
		d.FailureReason = refund.FailureReason
	}

	return d
}
