// Package volatility computes the true-range trade-sizing signal from price
// history. The moving average goes through the cinar/indicator channel
// pipeline.
package volatility

import (
	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/hedger/internal/domain"
)

// RecentReader exposes the most recent price samples for an (asset, venue) key.
type RecentReader interface {
	Recent(asset string, venue domain.Venue, count int) []domain.PriceSample
}

// Estimator derives a simplified true-range average from single-tick history.
// With only one price per tick the true range degenerates to the absolute
// price delta between consecutive samples; the estimate is a simple moving
// average of the most recent period deltas. Pure reader, no internal state.
type Estimator struct {
	history RecentReader
}

// NewEstimator creates an estimator over the given history reader.
func NewEstimator(history RecentReader) *Estimator {
	return &Estimator{history: history}
}

// TrueRangeAverage returns the average absolute price change over the most
// recent period deltas. Fails with domain.ErrInsufficientHistory when fewer
// than period+1 samples exist.
func (e *Estimator) TrueRangeAverage(asset string, venue domain.Venue, period int) (decimal.Decimal, error) {
	if period < 1 {
		return decimal.Zero, errors.Wrapf(domain.ErrInvalidAmount, "period %d", period)
	}

	samples := e.history.Recent(asset, venue, period+1)
	if len(samples) < period+1 {
		return decimal.Zero, errors.Wrapf(domain.ErrInsufficientHistory,
			"need %d samples for %s on %s, have %d", period+1, asset, venue, len(samples))
	}

	deltas := make([]float64, 0, period)
	for i := 1; i < len(samples); i++ {
		delta := samples[i].Price.Sub(samples[i-1].Price).Abs()
		deltas = append(deltas, delta.InexactFloat64())
	}

	sma := trend.NewSmaWithPeriod[float64](period)
	averages := helper.ChanToSlice(sma.Compute(helper.SliceToChan(deltas)))
	if len(averages) == 0 {
		return decimal.Zero, errors.Wrapf(domain.ErrInsufficientHistory,
			"moving average produced no value for %s on %s", asset, venue)
	}

	return decimal.NewFromFloat(averages[len(averages)-1]), nil
}
