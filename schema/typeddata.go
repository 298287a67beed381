package schema

import (
	"crypto/ecdsa"
	"encoding/hex"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// PrimaryType is the EIP-712 primary type shared by signer and verifier.
// The field set and ordering below are the wire compatibility surface:
// both sides must produce byte-identical typed data.
const PrimaryType = "TransferWithAuthorization"

// NonceBytes decodes a hex nonce into its fixed 32-byte form.
func NonceBytes(nonce string) ([32]byte, error) {
	var out [32]byte
	raw, err := hex.DecodeString(strings.TrimPrefix(nonce, "0x"))
	if err != nil {
		return out, ErrBadNonce
	}
	if len(raw) != NonceByteLen {
		return out, ErrBadNonce
	}
	copy(out[:], raw)
	return out, nil
}

// TypedData canonicalizes the authorization into its EIP-712 structure,
// domain-separated by token name/version/chain/verifying-contract.
func (a PaymentAuthorization) TypedData(name, version string) (apitypes.TypedData, error) {
	value := new(big.Int)
	if _, ok := value.SetString(a.Value, 10); !ok {
		return apitypes.TypedData{}, ErrBadValue
	}
	if value.Sign() < 0 {
		return apitypes.TypedData{}, ErrBadValue
	}

	nonce, err := NonceBytes(a.Nonce)
	if err != nil {
		return apitypes.TypedData{}, err
	}

	chainId := math.HexOrDecimal256(*big.NewInt(a.ChainId))

	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": []apitypes.Type{
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			PrimaryType: []apitypes.Type{
				{Name: "from", Type: "address"},
				{Name: "to", Type: "address"},
				{Name: "value", Type: "uint256"},
				{Name: "validBefore", Type: "uint256"},
				{Name: "nonce", Type: "bytes32"},
			},
		},
		PrimaryType: PrimaryType,
		Domain: apitypes.TypedDataDomain{
			Name:              name,
			Version:           version,
			ChainId:           &chainId,
			VerifyingContract: a.Token,
		},
		Message: apitypes.TypedDataMessage{
			"from":        a.From,
			"to":          a.To,
			"value":       value,
			"validBefore": big.NewInt(a.ValidBefore),
			"nonce":       nonce,
		},
	}, nil
}

// SigningDigest computes the final \x19\x01 digest over the typed data.
func SigningDigest(typedData apitypes.TypedData) ([]byte, error) {
	domainSeparator, err := typedData.HashStruct("EIP712Domain", typedData.Domain.Map())
	if err != nil {
		return nil, err
	}
	messageHash, err := typedData.HashStruct(typedData.PrimaryType, typedData.Message)
	if err != nil {
		return nil, err
	}
	rawData := append(append([]byte("\x19\x01"), domainSeparator...), messageHash...)
	return crypto.Keccak256(rawData), nil
}

// RecoverSigner recovers the payer address from the authorization signature.
func (a PaymentAuthorization) RecoverSigner(name, version string) (common.Address, error) {
	typedData, err := a.TypedData(name, version)
	if err != nil {
		return common.Address{}, err
	}
	digest, err := SigningDigest(typedData)
	if err != nil {
		return common.Address{}, err
	}

	sig, err := hex.DecodeString(strings.TrimPrefix(a.Signature, "0x"))
	if err != nil {
		return common.Address{}, ErrBadSignature
	}
	if len(sig) != 65 {
		return common.Address{}, ErrBadSignature
	}
	// normalize v 27/28 to 0/1
	if sig[64] == 27 || sig[64] == 28 {
		sig = append([]byte{}, sig...)
		sig[64] -= 27
	}

	pubkey, err := crypto.Ecrecover(digest, sig)
	if err != nil {
		return common.Address{}, ErrBadSignature
	}
	recovered, err := crypto.UnmarshalPubkey(pubkey)
	if err != nil {
		return common.Address{}, ErrBadSignature
	}
	return crypto.PubkeyToAddress(*recovered), nil
}

// Sign fills Signature with the payer's EIP-712 signature over the
// authorization fields.
func (a *PaymentAuthorization) Sign(name, version string, prv *ecdsa.PrivateKey) error {
	typedData, err := a.TypedData(name, version)
	if err != nil {
		return err
	}
	digest, err := SigningDigest(typedData)
	if err != nil {
		return err
	}
	sig, err := crypto.Sign(digest, prv)
	if err != nil {
		return err
	}
	sig = append([]byte{}, sig...)
	sig[64] += 27
	a.Signature = "0x" + hex.EncodeToString(sig)
	return nil
}
