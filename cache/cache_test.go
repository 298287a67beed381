package cache

import (
	"testing"
	"time"

	"github.com/payrail-labs/payrail/schema"
	"github.com/stretchr/testify/assert"
)

func TestRequirementCachePutGet(t *testing.T) {
	rc, err := NewRequirementCache(time.Minute)
	assert.NoError(t, err)
	defer rc.Close()

	req := schema.PaymentRequirement{
		Amount:    "0.10",
		Token:     "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
		Recipient: "0x2222222222222222222222222222222222222222",
		ChainId:   8453,
		Nonce:     "0xAABB01",
		ExpiresAt: 1893456000,
		Scheme:    schema.SchemeExact,
	}
	assert.NoError(t, rc.Put(req.Nonce, req))
	assert.Equal(t, 1, rc.Len())

	got, err := rc.Get(req.Nonce)
	assert.NoError(t, err)
	assert.Equal(t, req.Amount, got.Amount)
	assert.Equal(t, req.ExpiresAt, got.ExpiresAt)

	// nonce keys are case and prefix insensitive
	got, err = rc.Get("aabb01")
	assert.NoError(t, err)
	assert.Equal(t, req.Nonce, got.Nonce)
}

func TestRequirementCacheMiss(t *testing.T) {
	rc, err := NewRequirementCache(time.Minute)
	assert.NoError(t, err)
	defer rc.Close()

	_, err = rc.Get("0xmissing")
	assert.Equal(t, schema.ErrNotExist, err)
}
