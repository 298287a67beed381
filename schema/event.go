package schema

const (
	EventPaymentVerified = "payment_verified"
	EventPaymentRejected = "payment_rejected"
)

// PaymentEvent is the outbound notification emitted after verification,
// delivered off the request path by the event dispatcher.
type PaymentEvent struct {
	Type         string `json:"type"`
	Confirmation string `json:"confirmation,omitempty"`
	Payer        string `json:"payer,omitempty"`
	Recipient    string `json:"recipient"`
	Token        string `json:"token"`
	Amount       string `json:"amount"` // minor units
	Nonce        string `json:"nonce"`
	Route        string `json:"route,omitempty"`
	Reason       string `json:"reason,omitempty"`
	Timestamp    int64  `json:"timestamp"`
}
