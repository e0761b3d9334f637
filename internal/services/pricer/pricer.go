// Package pricer provides current-price lookups against exchange venues.
package pricer

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/hedger/internal/domain"
)

// Pricer fetches the current price of a pair at a single venue.
type Pricer interface {
	GetPrice(ctx context.Context, pair domain.Pair) (decimal.Decimal, error)
}
