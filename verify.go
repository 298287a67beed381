package payrail

import (
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/payrail-labs/payrail/schema"
	"github.com/shopspring/decimal"
)

// Verifier validates payment authorizations against their requirements.
// Check order is fixed: structural field checks run before signature
// recovery, and recovery before the replay-store write, so the contended
// critical section only ever sees well-formed, correctly signed payments.
type Verifier struct {
	replay *ReplayStore
	clock  func() time.Time
	wdb    *Wdb        // optional receipt bookkeeping
	events *Dispatcher // optional outbound notifications
}

func NewVerifier(replay *ReplayStore, wdb *Wdb, events *Dispatcher) *Verifier {
	return &Verifier{
		replay: replay,
		clock:  time.Now,
		wdb:    wdb,
		events: events,
	}
}

// Verify runs the authorization state machine. The first failing check wins;
// an expired authorization is rejected regardless of every other field.
// On success the nonce is consumed and the decision is final.
func (v *Verifier) Verify(auth schema.PaymentAuthorization, req schema.PaymentRequirement) (schema.Receipt, error) {
	now := v.clock()

	if auth.ValidBefore < now.Unix() || req.ExpiresAt < now.Unix() {
		return v.reject(auth, req, ErrExpired)
	}
	if !sameAddress(auth.To, req.Recipient) {
		return v.reject(auth, req, ErrRecipientMismatch)
	}
	if !sameAddress(auth.Token, req.Token) {
		return v.reject(auth, req, ErrTokenMismatch)
	}
	if auth.ChainId != req.ChainId {
		return v.reject(auth, req, ErrChainMismatch)
	}

	if err := checkAmount(auth, req); err != nil {
		return v.reject(auth, req, err)
	}

	recovered, err := auth.RecoverSigner(req.TokenName(), req.TokenVersion())
	if err != nil || recovered != common.HexToAddress(auth.From) {
		return v.reject(auth, req, ErrSignatureInvalid)
	}

	if !v.replay.TryInsert(auth.Nonce) {
		return v.reject(auth, req, ErrNonceReplayed)
	}

	receipt := schema.Receipt{
		Confirmation: uuid.NewString(),
		Payer:        recovered.Hex(),
		Recipient:    req.Recipient,
		Token:        req.Token,
		Amount:       auth.Value,
		Nonce:        auth.Nonce,
		Timestamp:    now.Unix(),
	}

	if v.wdb != nil {
		record := schema.PaymentRecord{
			Confirmation: receipt.Confirmation,
			Nonce:        receipt.Nonce,
			Payer:        receipt.Payer,
			Recipient:    receipt.Recipient,
			Token:        receipt.Token,
			ChainId:      req.ChainId,
			Amount:       receipt.Amount,
			Scheme:       req.Scheme,
			Status:       schema.StatusVerified,
		}
		// bookkeeping must not undo a consumed nonce
		if err := v.wdb.InsertPayment(record); err != nil {
			log.Error("insert payment record", "err", err, "confirmation", receipt.Confirmation)
		}
	}

	v.emit(schema.PaymentEvent{
		Type:         schema.EventPaymentVerified,
		Confirmation: receipt.Confirmation,
		Payer:        receipt.Payer,
		Recipient:    receipt.Recipient,
		Token:        receipt.Token,
		Amount:       receipt.Amount,
		Nonce:        receipt.Nonce,
		Timestamp:    receipt.Timestamp,
	})
	metricVerify("verified")
	return receipt, nil
}

func (v *Verifier) reject(auth schema.PaymentAuthorization, req schema.PaymentRequirement, reason error) (schema.Receipt, error) {
	v.emit(schema.PaymentEvent{
		Type:      schema.EventPaymentRejected,
		Payer:     auth.From,
		Recipient: req.Recipient,
		Token:     req.Token,
		Amount:    auth.Value,
		Nonce:     auth.Nonce,
		Reason:    reason.Error(),
		Timestamp: v.clock().Unix(),
	})
	metricVerify(reason.Error())
	return schema.Receipt{}, reason
}

func (v *Verifier) emit(evt schema.PaymentEvent) {
	if v.events != nil {
		v.events.Dispatch(evt)
	}
}

// checkAmount enforces the requirement scheme: Exact demands equality in
// minor units, UpTo treats the requirement amount as a ceiling.
func checkAmount(auth schema.PaymentAuthorization, req schema.PaymentRequirement) error {
	value, err := decimal.NewFromString(auth.Value)
	if err != nil || !value.Equal(value.Truncate(0)) || value.IsNegative() {
		return ErrAmountMismatch
	}
	required, err := req.MinorAmount()
	if err != nil {
		return ErrAmountMismatch
	}

	switch req.Scheme {
	case schema.SchemeUpTo:
		if value.GreaterThan(required) {
			return ErrAmountMismatch
		}
	default: // exact
		if !value.Equal(required) {
			return ErrAmountMismatch
		}
	}
	return nil
}

// sameAddress compares checksum-insensitively for valid hex addresses.
// Anything malformed falls back to case folding so that two distinct
// garbage strings can never collapse onto the same parsed address.
func sameAddress(a, b string) bool {
	if common.IsHexAddress(a) && common.IsHexAddress(b) {
		return common.HexToAddress(a) == common.HexToAddress(b)
	}
	return strings.EqualFold(a, b)
}
