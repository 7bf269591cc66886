package services

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/AronSwan/onlinestore-sub023/utils"
)

// Signed field names shared by all gateway exchanges
const (
	SignatureField = "sign"
	TimestampField = "timestamp"
	NonceField     = "nonce"
)

var (
	ErrSignatureMissing   = errors.New("signature missing")
	ErrSignatureMismatch  = errors.New("signature mismatch")
	ErrSignatureTimestamp = errors.New("signed timestamp missing or malformed")
	ErrSignatureStale     = errors.New("signed timestamp outside validity window")
	ErrNonceMissing       = errors.New("nonce missing")
)

// SignatureService signs outbound gateway parameters and verifies inbound
// callback parameters. The payload variants operate on exact bytes, for
// rails that sign whole request/response bodies rather than parameter sets.
type SignatureService interface {
	Sign(params map[string]string) string
	SignRequest(params map[string]string) map[string]string
	Verify(params map[string]string) error
	SignPayload(payload []byte) string
	VerifyPayload(payload []byte, signature string) error
}

// HMACSignatureService derives HMAC-SHA256 signatures from the canonical
// parameter string. Canonical form: keys sorted lexicographically, empty
// values and the signature field skipped, pairs joined as key=value with &.
// The shared secret is the HMAC key; the digest is hex encoded.
type HMACSignatureService struct {
	secret string
	window time.Duration
}

func NewHMACSignatureService(secret string, window time.Duration) *HMACSignatureService {
	if window <= 0 {
		window = utils.SignatureValidityWindow
	}
	return &HMACSignatureService{secret: secret, window: window}
}

// Sign computes the keyed digest over the canonical form of params
func (s *HMACSignatureService) Sign(params map[string]string) string {
	mac := hmac.New(sha256.New, []byte(s.secret))
	mac.Write([]byte(s.canonicalize(params)))
	return hex.EncodeToString(mac.Sum(nil))
}

// SignRequest returns a copy of params carrying timestamp, nonce and
// signature, ready to send to a gateway
func (s *HMACSignatureService) SignRequest(params map[string]string) map[string]string {
	signed := make(map[string]string, len(params)+3)
	for k, v := range params {
		signed[k] = v
	}
	signed[TimestampField] = strconv.FormatInt(utils.UTCNowUnix(), 10)
	signed[NonceField] = newNonce()
	signed[SignatureField] = s.Sign(signed)
	return signed
}

// Verify checks the signature, nonce and timestamp window of inbound params.
// The comparison is constant time so the check leaks nothing about how much
// of a forged signature matched.
func (s *HMACSignatureService) Verify(params map[string]string) error {
	provided := params[SignatureField]
	if provided == "" {
		return ErrSignatureMissing
	}
	if params[NonceField] == "" {
		return ErrNonceMissing
	}

	tsRaw := params[TimestampField]
	if tsRaw == "" {
		return ErrSignatureTimestamp
	}
	ts, err := strconv.ParseInt(tsRaw, 10, 64)
	if err != nil {
		return ErrSignatureTimestamp
	}

	skew := utils.UTCNowUnix() - ts
	if skew < 0 {
		skew = -skew
	}
	if skew > int64(s.window.Seconds()) {
		return ErrSignatureStale
	}

	expected := s.Sign(params)
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(provided))) {
		return ErrSignatureMismatch
	}
	return nil
}

// SignPayload computes a keyed digest over the exact payload bytes
func (s *HMACSignatureService) SignPayload(payload []byte) string {
	mac := hmac.New(sha256.New, []byte(s.secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyPayload checks a whole-body signature in constant time
func (s *HMACSignatureService) VerifyPayload(payload []byte, signature string) error {
	if signature == "" {
		return ErrSignatureMissing
	}
	expected := s.SignPayload(payload)
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(signature))) {
		return ErrSignatureMismatch
	}
	return nil
}

// canonicalize builds the deterministic string both sides sign
func (s *HMACSignatureService) canonicalize(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if k == SignatureField || v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}
	return strings.Join(pairs, "&")
}

func newNonce() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	return hex.EncodeToString(buf)
}
