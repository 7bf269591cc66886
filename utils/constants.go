package utils

import (
	"time"
)

// Payment order time constants
const (
	// DefaultOrderExpiry is the default lifetime of an unpaid order (60 minutes)
	DefaultOrderExpiry = 60 * time.Minute

	// DefaultOrderExpiryMinutes is the default order lifetime in minutes
	DefaultOrderExpiryMinutes = 60

	// MaxOrderExpiry caps the caller-supplied order lifetime (24 hours)
	MaxOrderExpiry = 24 * time.Hour

	// SignatureValidityWindow is how far a signed timestamp may drift before
	// the message is rejected as a replay (5 minutes)
	SignatureValidityWindow = 5 * time.Minute

	// SignatureValidityWindowSeconds is the validity window in seconds (300 seconds = 5 minutes)
	SignatureValidityWindowSeconds = 300

	// GatewayRequestTimeout bounds every outbound provider call (30 seconds)
	GatewayRequestTimeout = 30 * time.Second
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Amount and currency constants
const (
	// MaxPaymentAmount is the largest accepted order amount, inclusive
	MaxPaymentAmount = "999999.99"

	CNYCurrency  = "CNY"
	USDCurrency  = "USD"
	USDTCurrency = "USDT"
	BTCCurrency  = "BTC"
)

// Blockchain network identifiers
const (
	NetworkTron     = "TRC20"
	NetworkEthereum = "ERC20"
	NetworkBitcoin  = "BITCOIN"
)
