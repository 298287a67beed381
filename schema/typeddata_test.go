package schema

import (
	"encoding/hex"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
)

const testNonce = "0x" + "11" + "22334455667788990011223344556677889900112233445566778899001122" // 32 bytes

func testAuthorization(from string) PaymentAuthorization {
	return PaymentAuthorization{
		From:        from,
		To:          "0x2222222222222222222222222222222222222222",
		Value:       "100000",
		Token:       "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
		ChainId:     8453,
		Nonce:       testNonce,
		ValidBefore: 1893456000,
	}
}

func TestNonceBytes(t *testing.T) {
	by, err := NonceBytes(testNonce)
	assert.NoError(t, err)
	assert.Equal(t, byte(0x11), by[0])

	_, err = NonceBytes("0x1234")
	assert.Equal(t, ErrBadNonce, err)
	_, err = NonceBytes("zz")
	assert.Equal(t, ErrBadNonce, err)
}

func TestSigningDigestDeterministic(t *testing.T) {
	auth := testAuthorization("0x1111111111111111111111111111111111111111")
	td1, err := auth.TypedData("USD Coin", "2")
	assert.NoError(t, err)
	td2, err := auth.TypedData("USD Coin", "2")
	assert.NoError(t, err)

	d1, err := SigningDigest(td1)
	assert.NoError(t, err)
	d2, err := SigningDigest(td2)
	assert.NoError(t, err)
	assert.Equal(t, d1, d2)
	assert.Equal(t, 32, len(d1))

	// different domain, different digest
	td3, err := auth.TypedData("USD Coin", "1")
	assert.NoError(t, err)
	d3, err := SigningDigest(td3)
	assert.NoError(t, err)
	assert.NotEqual(t, d1, d3)
}

func TestSignAndRecover(t *testing.T) {
	prv, err := crypto.GenerateKey()
	assert.NoError(t, err)
	addr := crypto.PubkeyToAddress(prv.PublicKey)

	auth := testAuthorization(addr.Hex())
	err = auth.Sign("USD Coin", "2", prv)
	assert.NoError(t, err)
	assert.Equal(t, 132, len(auth.Signature)) // 0x + 65 bytes hex

	recovered, err := auth.RecoverSigner("USD Coin", "2")
	assert.NoError(t, err)
	assert.Equal(t, addr, recovered)

	// recovery is bound to every signed field
	tampered := auth
	tampered.Value = "100001"
	recovered, err = tampered.RecoverSigner("USD Coin", "2")
	if err == nil {
		assert.NotEqual(t, addr, recovered)
	}
}

func TestRecoverSignerVNormalization(t *testing.T) {
	prv, err := crypto.GenerateKey()
	assert.NoError(t, err)
	addr := crypto.PubkeyToAddress(prv.PublicKey)

	auth := testAuthorization(addr.Hex())
	err = auth.Sign("USD Coin", "2", prv)
	assert.NoError(t, err)

	// rewrite v from 27/28 to 0/1, recovery must still succeed
	sig, err := hex.DecodeString(auth.Signature[2:])
	assert.NoError(t, err)
	sig[64] -= 27
	auth.Signature = "0x" + hex.EncodeToString(sig)

	recovered, err := auth.RecoverSigner("USD Coin", "2")
	assert.NoError(t, err)
	assert.Equal(t, addr, recovered)
}

func TestTypedDataBadInputs(t *testing.T) {
	auth := testAuthorization("0x1111111111111111111111111111111111111111")

	auth.Value = "not-a-number"
	_, err := auth.TypedData("USD Coin", "2")
	assert.Equal(t, ErrBadValue, err)

	auth.Value = "-1"
	_, err = auth.TypedData("USD Coin", "2")
	assert.Equal(t, ErrBadValue, err)

	auth.Value = "100000"
	auth.Nonce = "0xdead"
	_, err = auth.TypedData("USD Coin", "2")
	assert.Equal(t, ErrBadNonce, err)
}

func TestRecoverSignerBadSignature(t *testing.T) {
	auth := testAuthorization("0x1111111111111111111111111111111111111111")

	auth.Signature = "0x1234"
	_, err := auth.RecoverSigner("USD Coin", "2")
	assert.Equal(t, ErrBadSignature, err)

	auth.Signature = "zz"
	_, err = auth.RecoverSigner("USD Coin", "2")
	assert.Equal(t, ErrBadSignature, err)
}

func TestMinorAmount(t *testing.T) {
	req := PaymentRequirement{Amount: "0.10", Metadata: map[string]interface{}{MetaTokenDecimals: 6}}
	minor, err := req.MinorAmount()
	assert.NoError(t, err)
	assert.Equal(t, "100000", minor.String())

	// sub-minor precision is rejected, never rounded
	req.Amount = "0.0000001"
	_, err = req.MinorAmount()
	assert.Equal(t, ErrAmountPrecision, err)

	req.Amount = "bogus"
	_, err = req.MinorAmount()
	assert.Error(t, err)
}

func TestTokenMetaDefaults(t *testing.T) {
	req := PaymentRequirement{}
	assert.Equal(t, "USDC", req.TokenName())
	assert.Equal(t, "2", req.TokenVersion())
	assert.Equal(t, 6, req.TokenDecimals())

	req.Metadata = map[string]interface{}{
		MetaTokenName:     "Tether USD",
		MetaTokenVersion:  "1",
		MetaTokenDecimals: float64(18), // json round trip
	}
	assert.Equal(t, "Tether USD", req.TokenName())
	assert.Equal(t, "1", req.TokenVersion())
	assert.Equal(t, 18, req.TokenDecimals())
}
