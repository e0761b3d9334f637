// Package sizer converts a volatility reading into a USD trade notional.
package sizer

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Sizer holds the sizing policy parameters.
type Sizer struct {
	minUSD      decimal.Decimal
	scaleFactor decimal.Decimal
}

// New validates the policy parameters. minUSD is the minimum trade threshold
// the caller compares notionals against; scaleFactor scales volatility into
// trade size.
func New(minUSD, scaleFactor decimal.Decimal) (Sizer, error) {
	if !minUSD.IsPositive() {
		return Sizer{}, fmt.Errorf("minUSD must be positive, got %s", minUSD.String())
	}
	if !scaleFactor.IsPositive() {
		return Sizer{}, fmt.Errorf("scaleFactor must be positive, got %s", scaleFactor.String())
	}
	return Sizer{minUSD: minUSD, scaleFactor: scaleFactor}, nil
}

// Notional computes the USD trade size for the given volatility and reference
// price: scaleFactor * max(minUSD/scaleFactor, volatility/referencePrice).
// With zero volatility this floors at exactly minUSD. The caller decides
// whether the result clears the minimum trade threshold; that is policy, not
// an error. A non-positive reference price yields zero because the sizer must
// not be consulted for an asset whose price lookup failed.
func (s Sizer) Notional(volatility, referencePrice decimal.Decimal) decimal.Decimal {
	if referencePrice.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}

	sizeFactor := s.minUSD.Div(s.scaleFactor)
	if ratio := volatility.Div(referencePrice); ratio.GreaterThan(sizeFactor) {
		sizeFactor = ratio
	}

	return s.scaleFactor.Mul(sizeFactor)
}

// MinNotional returns the minimum trade threshold.
func (s Sizer) MinNotional() decimal.Decimal {
	return s.minUSD
}
