package payrail

import (
	"errors"
)

var (
	// verifier outcomes, first failing check wins
	ErrExpired                = errors.New("payment_expired")
	ErrRecipientMismatch      = errors.New("recipient_mismatch")
	ErrTokenMismatch          = errors.New("token_mismatch")
	ErrChainMismatch          = errors.New("chain_mismatch")
	ErrAmountMismatch         = errors.New("amount_mismatch")
	ErrSignatureInvalid       = errors.New("signature_invalid")
	ErrNonceReplayed          = errors.New("nonce_replayed")
	ErrMalformedAuthorization = errors.New("malformed_authorization")
	ErrRequirementUnknown     = errors.New("requirement_not_found")

	// spend controller outcomes
	ErrPerRequestExceeded = errors.New("per_request_limit_exceeded")
	ErrHourlyExceeded     = errors.New("hourly_limit_exceeded")
	ErrDailyExceeded      = errors.New("daily_limit_exceeded")
	ErrDomainBlocked      = errors.New("domain_blocked")
	ErrApprovalDenied     = errors.New("approval_denied")
)
