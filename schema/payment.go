package schema

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	SchemeExact = "exact"
	SchemeUpTo  = "upto"

	HeaderPayment             = "X-Payment"
	HeaderPaymentRequired     = "X-Payment-Required"
	HeaderPaymentReceipt      = "X-Payment-Receipt"
	HeaderPaymentConfirmation = "X-Payment-Confirmation"
	HeaderPaymentAmount       = "X-Payment-Amount"
	HeaderPaymentTimestamp    = "X-Payment-Timestamp"

	DefaultRequirementTTL = 300 * time.Second  // requirement lifetime
	DefaultReplayTTL      = 3600 * time.Second // consumed nonce retention
	DefaultSweepInterval  = 60 * time.Second

	NonceByteLen = 32

	// requirement metadata keys, filled by the issuer and consumed by the signer
	MetaTokenName     = "name"
	MetaTokenVersion  = "version"
	MetaTokenDecimals = "decimals"
	MetaTokenSymbol   = "symbol"
)

// TokenMeta describes an accepted payment token. Name and Version feed the
// typed-data domain, Decimals converts requirement amounts to minor units.
type TokenMeta struct {
	Symbol   string `json:"symbol"`
	Address  string `json:"address"`
	Name     string `json:"name"`
	Version  string `json:"version"`
	Decimals int    `json:"decimals"`
}

// PaymentRequirement is the provider's signed-payment demand, sent with a 402
// response. Immutable once issued, valid until ExpiresAt.
type PaymentRequirement struct {
	Amount    string                 `json:"amount"` // decimal string, token units
	Token     string                 `json:"token"`
	Recipient string                 `json:"recipient"`
	ChainId   int64                  `json:"chainId"`
	Nonce     string                 `json:"nonce"` // 0x-prefixed, 32 bytes
	ExpiresAt int64                  `json:"expiresAt"`
	Scheme    string                 `json:"scheme"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// PaymentAuthorization is the payer-signed answer to a requirement. Its nonce
// must equal the requirement's nonce; it is consumed exactly once.
type PaymentAuthorization struct {
	From        string `json:"from"`
	To          string `json:"to"`
	Value       string `json:"value"` // integer minor units
	Token       string `json:"token"`
	ChainId     int64  `json:"chainId"`
	Nonce       string `json:"nonce"`
	ValidBefore int64  `json:"validBefore"`
	Signature   string `json:"signature"` // hex, 65 bytes r||s||v
}

// Receipt confirms a verified payment. Confirmation is a locally generated
// opaque token, not a ledger transaction hash.
type Receipt struct {
	Confirmation string `json:"confirmation"`
	Payer        string `json:"payer"`
	Recipient    string `json:"recipient"`
	Token        string `json:"token"`
	Amount       string `json:"amount"` // minor units
	Nonce        string `json:"nonce"`
	Timestamp    int64  `json:"timestamp"`
}

func (r PaymentRequirement) TokenName() string {
	if v, ok := r.Metadata[MetaTokenName].(string); ok && v != "" {
		return v
	}
	return "USDC"
}

func (r PaymentRequirement) TokenVersion() string {
	if v, ok := r.Metadata[MetaTokenVersion].(string); ok && v != "" {
		return v
	}
	return "2"
}

func (r PaymentRequirement) TokenDecimals() int {
	switch v := r.Metadata[MetaTokenDecimals].(type) {
	case int:
		return v
	case float64: // json round trip
		return int(v)
	}
	return 6
}

// MinorAmount converts the decimal amount to integer minor units.
func (r PaymentRequirement) MinorAmount() (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(r.Amount)
	if err != nil {
		return decimal.Zero, err
	}
	minor := amount.Shift(int32(r.TokenDecimals()))
	if !minor.Equal(minor.Truncate(0)) {
		return decimal.Zero, ErrAmountPrecision
	}
	return minor, nil
}
