package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// VenueBalance is the immutable balance view of a single venue inside a snapshot.
type VenueBalance struct {
	CashUSD  decimal.Decimal            `json:"cash_usd"`
	Holdings map[string]decimal.Decimal `json:"holdings"`
}

// LedgerSnapshot is an immutable copy of all venue cash and holding amounts,
// taken after a cycle for persistence and streaming.
type LedgerSnapshot struct {
	Timestamp time.Time              `json:"ts"`
	Venues    map[Venue]VenueBalance `json:"venues"`
}

// TotalCashUSD sums cash across all venues.
func (s LedgerSnapshot) TotalCashUSD() decimal.Decimal {
	total := decimal.Zero
	for _, vb := range s.Venues {
		total = total.Add(vb.CashUSD)
	}
	return total
}

// Holding returns the holding amount for the asset at the venue, zero if absent.
func (s LedgerSnapshot) Holding(venue Venue, asset string) decimal.Decimal {
	vb, ok := s.Venues[venue]
	if !ok {
		return decimal.Zero
	}
	return vb.Holdings[asset]
}
