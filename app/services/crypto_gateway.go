package services

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/AronSwan/onlinestore-sub023/models"
	"github.com/AronSwan/onlinestore-sub023/utils"
	"golang.org/x/crypto/sha3"
)

// ErrNoAddressAvailable is returned when the pool for a network is exhausted
var ErrNoAddressAvailable = errors.New("no deposit address available")

// CryptoGatewayAdapter serves on-chain rails. Creating a payment assigns a
// receiving address for the order's network and builds the wallet QR payload.
// Settlement is driven by confirmation observations, not by this adapter, so
// queries report pending and refunds are refused outright.
type CryptoGatewayAdapter struct {
	pools map[string][]string // network -> receiving addresses

	mu   sync.Mutex
	next map[string]int
}

// NewCryptoGatewayAdapter validates the pool up front: Ethereum-network
// addresses must be well-formed hex and are normalized to their EIP-55
// checksum form, so a mistyped pool entry fails at startup, not at payment
// time.
func NewCryptoGatewayAdapter(pools map[string][]string) (*CryptoGatewayAdapter, error) {
	normalized := make(map[string][]string, len(pools))
	for network, addresses := range pools {
		if network != utils.NetworkEthereum {
			normalized[network] = addresses
			continue
		}
		checksummed := make([]string, len(addresses))
		for i, address := range addresses {
			stripped := strings.TrimPrefix(strings.ToLower(address), "0x")
			if len(stripped) != 40 {
				return nil, fmt.Errorf("crypto gateway: malformed %s address %q", network, address)
			}
			if _, err := hex.DecodeString(stripped); err != nil {
				return nil, fmt.Errorf("crypto gateway: malformed %s address %q", network, address)
			}
			checksummed[i] = checksumAddress(address)
		}
		normalized[network] = checksummed
	}
	return &CryptoGatewayAdapter{
		pools: normalized,
		next:  make(map[string]int),
	}, nil
}

func (a *CryptoGatewayAdapter) Name() string { return "crypto" }

func (a *CryptoGatewayAdapter) CreatePayment(ctx context.Context, order *models.PaymentOrder) (*CreatePaymentResult, error) {
	network := networkForMethod(order.PaymentMethod)
	if network == "" {
		return nil, fmt.Errorf("crypto gateway: unsupported payment method %s", order.PaymentMethod)
	}

	address, err := a.assignAddress(network)
	if err != nil {
		return nil, err
	}

	return &CreatePaymentResult{
		DepositAddress: address,
		Network:        network,
		QRPayload:      qrPayload(network, address, order),
	}, nil
}

// QueryPayment always reports pending: on-chain settlement is observed
// through confirmations, the rail has nothing to ask.
func (a *CryptoGatewayAdapter) QueryPayment(ctx context.Context, order *models.PaymentOrder) (*QueryPaymentResult, error) {
	return &QueryPaymentResult{Status: GatewayStatusPending}, nil
}

func (a *CryptoGatewayAdapter) Refund(ctx context.Context, order *models.PaymentOrder, refund *models.RefundRecord) (*RefundResult, error) {
	return nil, ErrRefundUnsupported
}

// assignAddress hands out pool addresses round-robin per network
func (a *CryptoGatewayAdapter) assignAddress(network string) (string, error) {
	pool := a.pools[network]
	if len(pool) == 0 {
		return "", fmt.Errorf("%w for network %s", ErrNoAddressAvailable, network)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	address := pool[a.next[network]%len(pool)]
	a.next[network]++
	return address, nil
}

func networkForMethod(method models.PaymentMethod) string {
	switch method {
	case models.PaymentMethodUSDTTron:
		return utils.NetworkTron
	case models.PaymentMethodUSDTEth:
		return utils.NetworkEthereum
	case models.PaymentMethodBTC:
		return utils.NetworkBitcoin
	}
	return ""
}

// qrPayload builds what the payer's wallet scans. Bitcoin uses the BIP-21
// URI with the amount; token networks scan the bare address.
func qrPayload(network, address string, order *models.PaymentOrder) string {
	if network == utils.NetworkBitcoin {
		return fmt.Sprintf("bitcoin:%s?amount=%s", address, order.Amount.String())
	}
	return address
}

// checksumAddress applies the EIP-55 mixed-case checksum to a hex address
func checksumAddress(address string) string {
	stripped := strings.TrimPrefix(strings.ToLower(address), "0x")

	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(stripped))
	hash := hex.EncodeToString(h.Sum(nil))

	var b strings.Builder
	b.WriteString("0x")
	for i, c := range stripped {
		if c >= 'a' && c <= 'f' && hash[i] >= '8' {
			b.WriteRune(unicode.ToUpper(c))
		} else {
			b.WriteRune(c)
		}
	}
	return b.String()
}
