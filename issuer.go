package payrail

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/payrail-labs/payrail/cache"
	"github.com/payrail-labs/payrail/schema"
)

// Issuer builds signed-payment requirements for 402 responses. Issued
// requirements are cached by nonce so the verifier can re-bind an incoming
// authorization to the requirement it claims to satisfy.
type Issuer struct {
	recipient string
	chainId   int64
	ttl       time.Duration
	clock     func() time.Time
	reqCache  *cache.RequirementCache
}

func NewIssuer(recipient string, chainId int64, ttl time.Duration, reqCache *cache.RequirementCache) *Issuer {
	if ttl <= 0 {
		ttl = schema.DefaultRequirementTTL
	}
	return &Issuer{
		recipient: recipient,
		chainId:   chainId,
		ttl:       ttl,
		clock:     time.Now,
		reqCache:  reqCache,
	}
}

// Issue creates a fresh requirement with a random nonce. An RNG failure is
// fatal and propagated; there is no fallback nonce source.
func (i *Issuer) Issue(amount string, token schema.TokenMeta, scheme string) (schema.PaymentRequirement, error) {
	nonce, err := newNonce()
	if err != nil {
		return schema.PaymentRequirement{}, fmt.Errorf("generate nonce: %w", err)
	}

	req := schema.PaymentRequirement{
		Amount:    amount,
		Token:     token.Address,
		Recipient: i.recipient,
		ChainId:   i.chainId,
		Nonce:     nonce,
		ExpiresAt: i.clock().Add(i.ttl).Unix(),
		Scheme:    scheme,
		Metadata: map[string]interface{}{
			schema.MetaTokenName:     token.Name,
			schema.MetaTokenVersion:  token.Version,
			schema.MetaTokenDecimals: token.Decimals,
			schema.MetaTokenSymbol:   token.Symbol,
		},
	}

	if i.reqCache != nil {
		if err := i.reqCache.Put(req.Nonce, req); err != nil {
			return schema.PaymentRequirement{}, fmt.Errorf("cache requirement: %w", err)
		}
	}
	metricRequirementIssued(token.Symbol)
	return req, nil
}

// Lookup re-binds an authorization nonce to its issued requirement.
func (i *Issuer) Lookup(nonce string) (schema.PaymentRequirement, error) {
	if i.reqCache == nil {
		return schema.PaymentRequirement{}, ErrRequirementUnknown
	}
	req, err := i.reqCache.Get(nonce)
	if err != nil {
		return schema.PaymentRequirement{}, ErrRequirementUnknown
	}
	return req, nil
}

func newNonce() (string, error) {
	buf := make([]byte, schema.NonceByteLen)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "0x" + hex.EncodeToString(buf), nil
}
