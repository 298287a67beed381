package payrail

import (
	"testing"
	"time"

	"github.com/payrail-labs/payrail/cache"
	"github.com/payrail-labs/payrail/schema"
	"github.com/stretchr/testify/assert"
)

func TestIssuerIssue(t *testing.T) {
	issuer := NewIssuer(testRecipient, 8453, 5*time.Minute, nil)
	before := time.Now().Unix()

	req, err := issuer.Issue("0.10", testToken, schema.SchemeExact)
	assert.NoError(t, err)
	assert.Equal(t, "0.10", req.Amount)
	assert.Equal(t, testToken.Address, req.Token)
	assert.Equal(t, testRecipient, req.Recipient)
	assert.Equal(t, int64(8453), req.ChainId)
	assert.Equal(t, schema.SchemeExact, req.Scheme)
	assert.Equal(t, "USD Coin", req.TokenName())
	assert.Equal(t, 6, req.TokenDecimals())

	assert.Equal(t, 2+schema.NonceByteLen*2, len(req.Nonce))
	assert.GreaterOrEqual(t, req.ExpiresAt, before+300)

	// nonces never repeat
	req2, err := issuer.Issue("0.10", testToken, schema.SchemeExact)
	assert.NoError(t, err)
	assert.NotEqual(t, req.Nonce, req2.Nonce)
}

func TestIssuerLookup(t *testing.T) {
	reqCache, err := cache.NewRequirementCache(time.Minute)
	assert.NoError(t, err)
	defer reqCache.Close()

	issuer := NewIssuer(testRecipient, 8453, 5*time.Minute, reqCache)
	req, err := issuer.Issue("0.10", testToken, schema.SchemeUpTo)
	assert.NoError(t, err)

	got, err := issuer.Lookup(req.Nonce)
	assert.NoError(t, err)
	assert.Equal(t, req.Amount, got.Amount)
	assert.Equal(t, req.Nonce, got.Nonce)
	assert.Equal(t, req.Scheme, got.Scheme)

	_, err = issuer.Lookup("0xunknown")
	assert.Equal(t, ErrRequirementUnknown, err)
}

func TestIssuerLookupWithoutCache(t *testing.T) {
	issuer := NewIssuer(testRecipient, 8453, 5*time.Minute, nil)
	_, err := issuer.Lookup("0x01")
	assert.Equal(t, ErrRequirementUnknown, err)
}
