package schema

import (
	"errors"
)

var (
	ErrNotExist     = errors.New("not_exist_record")
	ErrNotFound     = errors.New("not_found")
	ErrNotImplement = errors.New("not_implement")

	ErrAmountPrecision = errors.New("amount_precision_overflow")
	ErrBadNonce        = errors.New("bad_nonce")
	ErrBadSignature    = errors.New("bad_signature")
	ErrBadValue        = errors.New("bad_value")
)
