package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceSample is a single timestamped price observation for an (asset, venue) key.
// Immutable once appended to the history buffer.
type PriceSample struct {
	Timestamp time.Time       `json:"ts"`
	Price     decimal.Decimal `json:"price"`
}
