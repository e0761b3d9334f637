package pricer

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/hedger/internal/domain"
	"github.com/vadiminshakov/hedger/pkg/retrier"
	"go.uber.org/zap"
)

// Feed routes price lookups to the pricer of the requested venue.
// Unavailability is a first-class result, not an error: a failed lookup is
// logged and reported as not-ok so the engine can skip the asset for the cycle.
type Feed struct {
	pricers map[domain.Venue]Pricer
	retry   *retrier.Retrier
	logger  *zap.Logger
}

// NewFeed builds a feed over the given venue pricers.
func NewFeed(pricers map[domain.Venue]Pricer, logger *zap.Logger) (*Feed, error) {
	if len(pricers) == 0 {
		return nil, errors.New("feed requires at least one venue pricer")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Feed{
		pricers: pricers,
		retry:   retrier.New(),
		logger:  logger,
	}, nil
}

// CurrentPrice returns the venue's current price for the pair. The boolean is
// false when the venue is unknown, the lookup failed after bounded retries,
// or the venue reported a non-positive price.
func (f *Feed) CurrentPrice(ctx context.Context, pair domain.Pair, venue domain.Venue) (decimal.Decimal, bool) {
	p, ok := f.pricers[venue]
	if !ok {
		f.logger.Error("price requested for unknown venue", zap.String("venue", string(venue)))
		return decimal.Zero, false
	}

	price, err := retrier.DoWithData(f.retry, ctx, func(ctx context.Context) (decimal.Decimal, error) {
		return p.GetPrice(ctx, pair)
	})
	if err != nil {
		f.logger.Error("price lookup failed",
			zap.String("pair", pair.String()),
			zap.String("venue", string(venue)),
			zap.Error(err))
		return decimal.Zero, false
	}

	if !price.IsPositive() {
		f.logger.Error("venue returned non-positive price",
			zap.String("pair", pair.String()),
			zap.String("venue", string(venue)),
			zap.String("price", price.String()))
		return decimal.Zero, false
	}

	return price, true
}

// Venues returns the venues this feed can serve.
func (f *Feed) Venues() []domain.Venue {
	venues := make([]domain.Venue, 0, len(f.pricers))
	for v := range f.pricers {
		venues = append(venues, v)
	}
	return venues
}
