package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Side represents the direction of a trade leg.
type Side int

const (
	SideBuy Side = iota
	SideSell
)

const (
	sideStringBuy  = "buy"
	sideStringSell = "sell"
)

// String returns the string representation of the side.
func (s Side) String() string {
	switch s {
	case SideBuy:
		return sideStringBuy
	case SideSell:
		return sideStringSell
	default:
		return "unknown"
	}
}

// SideFromString parses a persisted side string.
func SideFromString(s string) (Side, error) {
	switch s {
	case sideStringBuy:
		return SideBuy, nil
	case sideStringSell:
		return SideSell, nil
	}
	return 0, fmt.Errorf("unknown trade side: %s", s)
}

// MarshalJSON persists the side as its string form.
func (s Side) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON restores the side from its string form.
func (s *Side) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	side, err := SideFromString(raw)
	if err != nil {
		return err
	}
	*s = side
	return nil
}

// TradeRecord is an immutable record of one executed hedge leg.
// Amount is signed: positive means bought, negative means sold.
type TradeRecord struct {
	Timestamp   time.Time       `json:"ts"`
	Asset       string          `json:"asset"`
	Side        Side            `json:"side"`
	Amount      decimal.Decimal `json:"amount"`
	Price       decimal.Decimal `json:"price"`
	Venue       Venue           `json:"venue"`
	NotionalUSD decimal.Decimal `json:"notional_usd"`
}

// String returns a human-readable representation.
func (t *TradeRecord) String() string {
	return fmt.Sprintf("%s %s %s @ %s on %s (notional %s USD)",
		t.Side.String(), t.Amount.Abs().String(), t.Asset, t.Price.String(), t.Venue, t.NotionalUSD.String())
}
