package schema

import (
	"time"
)

// RoutePrice prices one protected route. Amount is a decimal string in
// token units; Token is the accepted token symbol.
type RoutePrice struct {
	Route       string    `gorm:"primarykey" json:"route"`
	Amount      string    `json:"amount"`
	Token       string    `json:"token"`
	Scheme      string    `json:"scheme"`
	Description string    `json:"description"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
