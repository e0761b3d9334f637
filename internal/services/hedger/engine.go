// Package hedger implements the dual-venue arbitrage decision cycle.
package hedger

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/hedger/internal/domain"
	"github.com/vadiminshakov/hedger/internal/services/history"
	"github.com/vadiminshakov/hedger/internal/services/ledger"
	"github.com/vadiminshakov/hedger/internal/services/sizer"
	"github.com/vadiminshakov/hedger/internal/services/volatility"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// PriceFeed supplies current venue prices. Unavailability is reported through
// the boolean, never through a panic or a fatal error.
type PriceFeed interface {
	CurrentPrice(ctx context.Context, pair domain.Pair, venue domain.Venue) (decimal.Decimal, bool)
}

// HistoryAppender durably records observed price samples.
type HistoryAppender interface {
	Append(asset string, venue domain.Venue, sample domain.PriceSample) error
}

// Config holds the engine's trading parameters.
type Config struct {
	// VenueA is the reference venue: volatility and the sizing reference
	// price are taken from its history.
	VenueA domain.Venue
	// VenueB is the second venue of every hedge.
	VenueB domain.Venue
	// TakerFeeRate is the proportional fee applied to the funding leg.
	TakerFeeRate decimal.Decimal
	// TrueRangePeriod is the volatility estimator lookback.
	TrueRangePeriod int
}

// CycleResult is the outcome of one full decision cycle.
type CycleResult struct {
	Snapshot domain.LedgerSnapshot
	Trades   []domain.TradeRecord
	// Quotes holds the prices observed during the cycle, per asset and venue.
	Quotes map[string]map[domain.Venue]decimal.Decimal
}

// Engine runs one decision cycle at a time over the tracked pairs. It owns no
// goroutines between cycles; the caller drives the cadence.
type Engine struct {
	cfg          Config
	feed         PriceFeed
	buffer       *history.Buffer
	estimator    *volatility.Estimator
	sizer        sizer.Sizer
	ledger       *ledger.Ledger
	historyStore HistoryAppender
	logger       *zap.Logger
}

// New wires the engine. historyStore may be nil when durable history is not
// wanted (tests, dry runs).
func New(cfg Config, feed PriceFeed, buffer *history.Buffer, ldg *ledger.Ledger,
	szr sizer.Sizer, historyStore HistoryAppender, logger *zap.Logger) (*Engine, error) {

	if cfg.VenueA == "" || cfg.VenueB == "" || cfg.VenueA == cfg.VenueB {
		return nil, errors.Errorf("engine requires two distinct venues, got %q and %q", cfg.VenueA, cfg.VenueB)
	}
	if cfg.TakerFeeRate.IsNegative() {
		return nil, errors.Errorf("taker fee rate must not be negative, got %s", cfg.TakerFeeRate.String())
	}
	if cfg.TrueRangePeriod < 1 {
		return nil, errors.Errorf("true range period must be at least 1, got %d", cfg.TrueRangePeriod)
	}
	if feed == nil || buffer == nil || ldg == nil {
		return nil, errors.New("engine requires feed, buffer and ledger")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Engine{
		cfg:          cfg,
		feed:         feed,
		buffer:       buffer,
		estimator:    volatility.NewEstimator(buffer),
		sizer:        szr,
		ledger:       ldg,
		historyStore: historyStore,
		logger:       logger,
	}, nil
}

// Ledger exposes the engine's ledger for startup logging and valuation.
func (e *Engine) Ledger() *ledger.Ledger {
	return e.ledger
}

type quoteKey struct {
	asset string
	venue domain.Venue
}

// RunCycle executes one full pass over the tracked pairs: fetch both venue
// prices, record them, size a hedge from venue-A volatility and, when the
// venues disagree and the funding venue can pay, execute the buy and sell
// legs against the ledger. Failures are isolated per asset; only a ledger
// contract violation aborts the cycle.
func (e *Engine) RunCycle(ctx context.Context, pairs []domain.Pair) (CycleResult, error) {
	quotes := e.fetchPrices(ctx, pairs)
	e.recordSamples(pairs, quotes)

	result := CycleResult{
		Trades: make([]domain.TradeRecord, 0, 2*len(pairs)),
		Quotes: make(map[string]map[domain.Venue]decimal.Decimal, len(pairs)),
	}

	for _, pair := range pairs {
		priceA, okA := quotes[quoteKey{pair.From, e.cfg.VenueA}]
		priceB, okB := quotes[quoteKey{pair.From, e.cfg.VenueB}]

		assetQuotes := make(map[domain.Venue]decimal.Decimal, 2)
		if okA {
			assetQuotes[e.cfg.VenueA] = priceA
		}
		if okB {
			assetQuotes[e.cfg.VenueB] = priceB
		}
		result.Quotes[pair.From] = assetQuotes

		if !okA || !okB {
			e.logger.Info("skipping asset, price unavailable",
				zap.String("asset", pair.From),
				zap.Bool("venue_a_priced", okA),
				zap.Bool("venue_b_priced", okB))
			continue
		}

		trades, err := e.hedgeAsset(pair.From, priceA, priceB)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidAmount) {
				return result, errors.Wrapf(err, "ledger contract violated for %s", pair.From)
			}
			e.logger.Error("hedge attempt abandoned for this cycle",
				zap.String("asset", pair.From), zap.Error(err))
			continue
		}
		result.Trades = append(result.Trades, trades...)
	}

	result.Snapshot = e.ledger.Snapshot()
	return result, nil
}

// fetchPrices looks up every (pair, venue) price concurrently. A failed
// lookup never cancels its siblings; missing keys in the result mark the
// asset unavailable on that venue this cycle.
func (e *Engine) fetchPrices(ctx context.Context, pairs []domain.Pair) map[quoteKey]decimal.Decimal {
	var mu sync.Mutex
	quotes := make(map[quoteKey]decimal.Decimal, 2*len(pairs))

	g, gctx := errgroup.WithContext(ctx)
	for _, pair := range pairs {
		for _, venue := range []domain.Venue{e.cfg.VenueA, e.cfg.VenueB} {
			g.Go(func() error {
				price, ok := e.feed.CurrentPrice(gctx, pair, venue)
				if !ok {
					return nil
				}
				mu.Lock()
				quotes[quoteKey{pair.From, venue}] = price
				mu.Unlock()
				return nil
			})
		}
	}
	// goroutines report unavailability via absence, never via error
	_ = g.Wait()

	return quotes
}

// recordSamples appends the fetched prices to the rolling buffer and the
// durable history store.
func (e *Engine) recordSamples(pairs []domain.Pair, quotes map[quoteKey]decimal.Decimal) {
	now := time.Now().UTC()
	for _, pair := range pairs {
		for _, venue := range []domain.Venue{e.cfg.VenueA, e.cfg.VenueB} {
			price, ok := quotes[quoteKey{pair.From, venue}]
			if !ok {
				continue
			}
			sample := domain.PriceSample{Timestamp: now, Price: price}
			if err := e.buffer.Append(pair.From, venue, sample); err != nil {
				e.logger.Error("failed to buffer price sample",
					zap.String("asset", pair.From), zap.String("venue", string(venue)), zap.Error(err))
				continue
			}
			if e.historyStore != nil {
				if err := e.historyStore.Append(pair.From, venue, sample); err != nil {
					e.logger.Error("failed to persist price sample",
						zap.String("asset", pair.From), zap.String("venue", string(venue)), zap.Error(err))
				}
			}
		}
	}
}

// hedgeAsset sizes and, when profitable and funded, executes one hedge for
// the asset. Returns the emitted trade legs.
func (e *Engine) hedgeAsset(asset string, priceA, priceB decimal.Decimal) ([]domain.TradeRecord, error) {
	vol, err := e.estimator.TrueRangeAverage(asset, e.cfg.VenueA, e.cfg.TrueRangePeriod)
	if err != nil {
		if !errors.Is(err, domain.ErrInsufficientHistory) {
			return nil, err
		}
		// fail-open: not enough history yet, size from the floor
		e.logger.Debug("insufficient history, using zero volatility", zap.String("asset", asset))
		vol = decimal.Zero
	}

	notional := e.sizer.Notional(vol, priceA)
	if notional.LessThan(e.sizer.MinNotional()) {
		e.logger.Debug("notional below minimum trade threshold",
			zap.String("asset", asset), zap.String("notional", notional.String()))
		return nil, nil
	}

	funding, counter := e.cfg.VenueA, e.cfg.VenueB
	fundingPrice, counterPrice := priceA, priceB
	if !priceA.LessThan(priceB) {
		funding, counter = e.cfg.VenueB, e.cfg.VenueA
		fundingPrice, counterPrice = priceB, priceA
	}

	// the sufficiency check covers both legs: nothing is applied if it fails
	if e.ledger.CashUSD(funding).LessThan(notional) {
		e.logger.Info("skipping hedge, funding venue cash below notional",
			zap.String("asset", asset),
			zap.String("venue", string(funding)),
			zap.String("cash", e.ledger.CashUSD(funding).String()),
			zap.String("notional", notional.String()))
		return nil, nil
	}

	cryptoAmount := notional.Div(fundingPrice)
	fee := notional.Mul(e.cfg.TakerFeeRate)
	netSpend := notional.Sub(fee)
	now := time.Now().UTC()

	if err := e.ledger.DebitCash(funding, netSpend); err != nil {
		return nil, errors.Wrapf(err, "buy leg debit on %s", funding)
	}
	if err := e.ledger.AdjustHolding(funding, asset, cryptoAmount); err != nil {
		return nil, errors.Wrapf(err, "buy leg holding on %s", funding)
	}

	buy := domain.TradeRecord{
		Timestamp:   now,
		Asset:       asset,
		Side:        domain.SideBuy,
		Amount:      cryptoAmount,
		Price:       fundingPrice,
		Venue:       funding,
		NotionalUSD: notional,
	}

	// the counter leg is cash-settled immediately: proceeds are credited
	// without the asset ever being held on the counter venue
	proceeds := cryptoAmount.Mul(counterPrice)
	if err := e.ledger.CreditCash(counter, proceeds); err != nil {
		return nil, errors.Wrapf(err, "sell leg credit on %s", counter)
	}

	sell := domain.TradeRecord{
		Timestamp:   now,
		Asset:       asset,
		Side:        domain.SideSell,
		Amount:      cryptoAmount.Neg(),
		Price:       counterPrice,
		Venue:       counter,
		NotionalUSD: proceeds,
	}

	e.logger.Info("hedge executed",
		zap.String("asset", asset),
		zap.String("amount", cryptoAmount.String()),
		zap.String("buy_venue", string(funding)),
		zap.String("buy_price", fundingPrice.String()),
		zap.String("sell_venue", string(counter)),
		zap.String("sell_price", counterPrice.String()),
		zap.String("fee", fee.String()),
		zap.String("net_spend", netSpend.String()),
		zap.String("proceeds", proceeds.String()))

	return []domain.TradeRecord{buy, sell}, nil
}
