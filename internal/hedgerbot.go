package internal

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/hedger/config"
	"github.com/vadiminshakov/hedger/internal/domain"
	"github.com/vadiminshakov/hedger/internal/services/hedger"
	"github.com/vadiminshakov/hedger/internal/services/history"
	"github.com/vadiminshakov/hedger/internal/services/ledger"
	"github.com/vadiminshakov/hedger/internal/services/sizer"
	"go.uber.org/zap"
)

// HistoryStore persists price samples and replays them at startup.
type HistoryStore interface {
	Append(asset string, venue domain.Venue, sample domain.PriceSample) error
	Replay(fn func(asset string, venue domain.Venue, sample domain.PriceSample) error) error
}

// BalanceStore persists ledger snapshots across restarts.
type BalanceStore interface {
	Save(snapshot domain.LedgerSnapshot) error
	Load() (domain.LedgerSnapshot, bool, error)
}

// TradeLog records executed trade legs.
type TradeLog interface {
	Append(record domain.TradeRecord) error
}

// HedgerBot owns the trading loop: it rehydrates state, seeds missing price
// history, drives the engine on a ticker and persists every cycle's outcome.
type HedgerBot struct {
	cfg          config.Config
	engine       *hedger.Engine
	feed         hedger.PriceFeed
	buffer       *history.Buffer
	ledger       *ledger.Ledger
	historyStore HistoryStore
	balanceStore BalanceStore
	tradeLog     TradeLog
	logger       *zap.Logger
}

// NewHedgerBot assembles the bot. The ledger is restored from the balance
// store when a snapshot exists, otherwise bootstrapped with the configured
// starting cash on both venues. The price buffer is rehydrated from the
// history store.
func NewHedgerBot(cfg config.Config, feed hedger.PriceFeed, historyStore HistoryStore,
	balanceStore BalanceStore, tradeLog TradeLog, logger *zap.Logger) (*HedgerBot, error) {

	if logger == nil {
		logger = zap.NewNop()
	}

	venueA, venueB := domain.Venue(cfg.VenueA), domain.Venue(cfg.VenueB)

	ldg, err := restoreLedger(cfg, balanceStore, venueA, venueB, logger)
	if err != nil {
		return nil, err
	}

	buffer := history.NewBuffer(cfg.HistoryCapacity)
	if historyStore != nil {
		restored := 0
		err := historyStore.Replay(func(asset string, venue domain.Venue, sample domain.PriceSample) error {
			if err := buffer.Append(asset, venue, sample); err != nil {
				return errors.Wrapf(err, "rehydrate %s on %s", asset, venue)
			}
			restored++
			return nil
		})
		if err != nil {
			return nil, errors.Wrap(err, "replay price history")
		}
		logger.Info("price history rehydrated", zap.Int("samples", restored))
	}

	szr, err := sizer.New(cfg.MinTradeUSD, cfg.TradeSizeFactor)
	if err != nil {
		return nil, err
	}

	var appender hedger.HistoryAppender
	if historyStore != nil {
		appender = historyStore
	}

	engine, err := hedger.New(hedger.Config{
		VenueA:          venueA,
		VenueB:          venueB,
		TakerFeeRate:    cfg.TakerFeeRate,
		TrueRangePeriod: cfg.TrueRangePeriod,
	}, feed, buffer, ldg, szr, appender, logger)
	if err != nil {
		return nil, err
	}

	return &HedgerBot{
		cfg:          cfg,
		engine:       engine,
		feed:         feed,
		buffer:       buffer,
		ledger:       ldg,
		historyStore: historyStore,
		balanceStore: balanceStore,
		tradeLog:     tradeLog,
		logger:       logger,
	}, nil
}

func restoreLedger(cfg config.Config, store BalanceStore, venueA, venueB domain.Venue,
	logger *zap.Logger) (*ledger.Ledger, error) {

	if store != nil {
		snapshot, found, err := store.Load()
		if err != nil {
			return nil, errors.Wrap(err, "load ledger snapshot")
		}
		if found {
			logger.Info("ledger restored from snapshot",
				zap.Time("taken_at", snapshot.Timestamp),
				zap.String("total_cash_usd", snapshot.TotalCashUSD().String()))
			return ledger.FromSnapshot(snapshot)
		}
	}

	ldg, err := ledger.New(venueA, venueB)
	if err != nil {
		return nil, err
	}
	for _, venue := range []domain.Venue{venueA, venueB} {
		if err := ldg.CreditCash(venue, cfg.StartingCashUSD); err != nil {
			return nil, errors.Wrapf(err, "bootstrap cash on %s", venue)
		}
		// zero-amount entries for the whole asset universe, so the persisted
		// snapshot lists every asset from day one
		for _, asset := range cfg.Assets {
			if err := ldg.AdjustHolding(venue, asset, decimal.Zero); err != nil {
				return nil, errors.Wrapf(err, "bootstrap holding %s on %s", asset, venue)
			}
		}
	}
	logger.Info("ledger bootstrapped with starting cash",
		zap.String("cash_per_venue_usd", cfg.StartingCashUSD.String()))

	if store != nil {
		if err := store.Save(ldg.Snapshot()); err != nil {
			return nil, errors.Wrap(err, "persist bootstrap snapshot")
		}
	}
	return ldg, nil
}

// Ledger exposes the bot's ledger, mainly for startup reporting.
func (b *HedgerBot) Ledger() *ledger.Ledger {
	return b.ledger
}

// Run drives the trading loop until ctx is cancelled. Cancellation is
// observed only between cycles; an in-flight cycle always completes and
// persists its outcome first.
func (b *HedgerBot) Run(ctx context.Context) error {
	pairs := b.cfg.TrackedPairs()

	if err := b.seedHistory(ctx, pairs); err != nil {
		return err
	}

	b.logger.Info("starting hedge loop",
		zap.String("venue_a", b.cfg.VenueA),
		zap.String("venue_b", b.cfg.VenueB),
		zap.Int("tracked_assets", len(pairs)),
		zap.Duration("poll_interval", b.cfg.PollPriceInterval))

	ticker := time.NewTicker(b.cfg.PollPriceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("stop requested, hedge loop exiting")
			return ctx.Err()
		case <-ticker.C:
			result, err := b.engine.RunCycle(context.WithoutCancel(ctx), pairs)
			if err != nil {
				return errors.Wrap(err, "hedge cycle")
			}
			b.persist(result)
			b.logValuation(result)
		}
	}
}

// seedHistory primes the buffer with live samples for tracked assets that
// have no history yet, so the volatility estimator has data from the start.
func (b *HedgerBot) seedHistory(ctx context.Context, pairs []domain.Pair) error {
	if b.cfg.SeedSamples <= 0 {
		return nil
	}

	venueA, venueB := domain.Venue(b.cfg.VenueA), domain.Venue(b.cfg.VenueB)

	unseeded := make([]domain.Pair, 0, len(pairs))
	for _, pair := range pairs {
		if b.buffer.Len(pair.From, venueA) == 0 || b.buffer.Len(pair.From, venueB) == 0 {
			unseeded = append(unseeded, pair)
		}
	}
	if len(unseeded) == 0 {
		return nil
	}

	b.logger.Info("seeding price history",
		zap.Int("assets", len(unseeded)), zap.Int("samples", b.cfg.SeedSamples))

	for i := 0; i < b.cfg.SeedSamples; i++ {
		for _, pair := range unseeded {
			for _, venue := range []domain.Venue{venueA, venueB} {
				price, ok := b.feed.CurrentPrice(ctx, pair, venue)
				if !ok {
					continue
				}
				sample := domain.PriceSample{Timestamp: time.Now().UTC(), Price: price}
				if err := b.buffer.Append(pair.From, venue, sample); err != nil {
					b.logger.Error("failed to buffer seed sample",
						zap.String("asset", pair.From), zap.Error(err))
					continue
				}
				if b.historyStore != nil {
					if err := b.historyStore.Append(pair.From, venue, sample); err != nil {
						b.logger.Error("failed to persist seed sample",
							zap.String("asset", pair.From), zap.Error(err))
					}
				}
			}
		}

		if i == b.cfg.SeedSamples-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(b.cfg.SeedInterval):
		}
	}
	return nil
}

func (b *HedgerBot) persist(result hedger.CycleResult) {
	if b.balanceStore != nil {
		if err := b.balanceStore.Save(result.Snapshot); err != nil {
			b.logger.Error("failed to persist ledger snapshot", zap.Error(err))
		}
	}
	if b.tradeLog != nil {
		for _, record := range result.Trades {
			if err := b.tradeLog.Append(record); err != nil {
				b.logger.Error("failed to persist trade record",
					zap.String("asset", record.Asset), zap.Error(err))
			}
		}
	}
}

// logValuation reports total portfolio worth: venue cash plus every holding
// valued at the best price observed this cycle.
func (b *HedgerBot) logValuation(result hedger.CycleResult) {
	total := result.Snapshot.TotalCashUSD()

	for _, balance := range result.Snapshot.Venues {
		for asset, amount := range balance.Holdings {
			if amount.IsZero() {
				continue
			}
			best := decimal.Zero
			for _, price := range result.Quotes[asset] {
				if price.GreaterThan(best) {
					best = price
				}
			}
			total = total.Add(amount.Mul(best))
		}
	}

	b.logger.Info("cycle complete",
		zap.Int("trades", len(result.Trades)),
		zap.String("portfolio_usd", total.String()))
}
