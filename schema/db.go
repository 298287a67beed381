package schema

import (
	"time"

	"gorm.io/datatypes"
)

const (
	// payment record status
	StatusVerified = "verified"
	StatusArchived = "archived"
)

// PaymentRecord is the durable bookkeeping row for a verified authorization.
type PaymentRecord struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Confirmation string `gorm:"uniqueIndex" json:"confirmation"`
	Nonce        string `gorm:"uniqueIndex" json:"nonce"`
	Payer        string `gorm:"index:idx_payer" json:"payer"`
	Recipient    string `json:"recipient"`
	Token        string `json:"token"`
	ChainId      int64  `json:"chainId"`
	Amount       string `json:"amount"` // minor units
	Scheme       string `json:"scheme"`
	Route        string `json:"route"`
	Status       string `json:"status"`

	Metadata datatypes.JSON `json:"metadata"`
}

// PayerStat is the per-payer rollup used by the analytics endpoint.
type PayerStat struct {
	Address    string    `gorm:"primarykey" json:"address"`
	Token      string    `gorm:"primarykey" json:"token"`
	Total      string    `json:"total"` // minor units
	Count      int64     `json:"count"`
	LastPaidAt time.Time `json:"lastPaidAt"`
}
