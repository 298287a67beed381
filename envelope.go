package payrail

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/payrail-labs/payrail/schema"
)

// Wire encode/decode for the 402 requirement body, the X-Payment request
// header and the receipt response headers. Serialization fidelity only;
// amounts stay decimal strings end to end.

func EncodeRequirement(req schema.PaymentRequirement) ([]byte, error) {
	return json.Marshal(req)
}

func DecodeRequirement(data []byte) (schema.PaymentRequirement, error) {
	req := schema.PaymentRequirement{}
	if err := json.Unmarshal(data, &req); err != nil {
		return req, fmt.Errorf("decode requirement: %w", err)
	}
	if req.Amount == "" || req.Recipient == "" || req.Nonce == "" || req.Scheme == "" {
		return req, fmt.Errorf("decode requirement: missing fields")
	}
	return req, nil
}

// RequirementFromResponse extracts the requirement from a 402 response.
// The X-Payment-Required header takes precedence over the JSON body.
func RequirementFromResponse(header string, body []byte) (schema.PaymentRequirement, error) {
	if header != "" {
		return DecodeRequirement([]byte(header))
	}
	return DecodeRequirement(body)
}

func EncodeAuthorization(auth schema.PaymentAuthorization) (string, error) {
	by, err := json.Marshal(auth)
	if err != nil {
		return "", err
	}
	return string(by), nil
}

// DecodeAuthorization parses an X-Payment header value. Any decode failure
// or missing field surfaces as ErrMalformedAuthorization before business
// checks run.
func DecodeAuthorization(header string) (schema.PaymentAuthorization, error) {
	auth := schema.PaymentAuthorization{}
	if header == "" {
		return auth, fmt.Errorf("%w: empty header", ErrMalformedAuthorization)
	}
	if err := json.Unmarshal([]byte(header), &auth); err != nil {
		return auth, fmt.Errorf("%w: %v", ErrMalformedAuthorization, err)
	}
	switch {
	case auth.From == "":
		return auth, fmt.Errorf("%w: missing from", ErrMalformedAuthorization)
	case auth.To == "":
		return auth, fmt.Errorf("%w: missing to", ErrMalformedAuthorization)
	case auth.Value == "":
		return auth, fmt.Errorf("%w: missing value", ErrMalformedAuthorization)
	case auth.Token == "":
		return auth, fmt.Errorf("%w: missing token", ErrMalformedAuthorization)
	case auth.Nonce == "":
		return auth, fmt.Errorf("%w: missing nonce", ErrMalformedAuthorization)
	case auth.ValidBefore <= 0:
		return auth, fmt.Errorf("%w: missing validBefore", ErrMalformedAuthorization)
	case auth.Signature == "":
		return auth, fmt.Errorf("%w: missing signature", ErrMalformedAuthorization)
	}
	return auth, nil
}

// writeRequirement emits the 402 response: JSON body mirrored into the
// X-Payment-Required header.
func writeRequirement(c *gin.Context, req schema.PaymentRequirement, reason error) {
	by, err := EncodeRequirement(req)
	if err != nil {
		internalErrorResponse(c, err.Error())
		return
	}
	c.Header(schema.HeaderPaymentRequired, string(by))
	body := gin.H{"paymentRequired": req}
	if reason != nil {
		body["error"] = reason.Error()
	}
	c.JSON(402, body)
}

// writeReceiptHeaders restates the confirmation, amount and timestamp for
// client-side bookkeeping.
func writeReceiptHeaders(c *gin.Context, receipt schema.Receipt) {
	c.Header(schema.HeaderPaymentReceipt, receipt.Confirmation)
	c.Header(schema.HeaderPaymentConfirmation, receipt.Confirmation)
	c.Header(schema.HeaderPaymentAmount, receipt.Amount)
	c.Header(schema.HeaderPaymentTimestamp, strconv.FormatInt(receipt.Timestamp, 10))
}
