package internal

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/hedger/config"
	"github.com/vadiminshakov/hedger/internal/domain"
)

type stubFeed struct {
	mu     sync.Mutex
	prices map[string]decimal.Decimal
}

func newStubFeed() *stubFeed {
	return &stubFeed{prices: make(map[string]decimal.Decimal)}
}

func (f *stubFeed) set(asset string, venue domain.Venue, price int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prices[asset+"/"+string(venue)] = decimal.NewFromInt(price)
}

func (f *stubFeed) CurrentPrice(_ context.Context, pair domain.Pair, venue domain.Venue) (decimal.Decimal, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	price, ok := f.prices[pair.From+"/"+string(venue)]
	return price, ok
}

type memHistoryStore struct {
	mu      sync.Mutex
	samples []struct {
		asset  string
		venue  domain.Venue
		sample domain.PriceSample
	}
}

func (s *memHistoryStore) Append(asset string, venue domain.Venue, sample domain.PriceSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples = append(s.samples, struct {
		asset  string
		venue  domain.Venue
		sample domain.PriceSample
	}{asset, venue, sample})
	return nil
}

func (s *memHistoryStore) Replay(fn func(asset string, venue domain.Venue, sample domain.PriceSample) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.samples {
		if err := fn(rec.asset, rec.venue, rec.sample); err != nil {
			return err
		}
	}
	return nil
}

func (s *memHistoryStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.samples)
}

type memBalanceStore struct {
	mu        sync.Mutex
	snapshots []domain.LedgerSnapshot
}

func (s *memBalanceStore) Save(snapshot domain.LedgerSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = append(s.snapshots, snapshot)
	return nil
}

func (s *memBalanceStore) Load() (domain.LedgerSnapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.snapshots) == 0 {
		return domain.LedgerSnapshot{}, false, nil
	}
	return s.snapshots[len(s.snapshots)-1], true, nil
}

func (s *memBalanceStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.snapshots)
}

type memTradeLog struct {
	mu      sync.Mutex
	records []domain.TradeRecord
}

func (l *memTradeLog) Append(record domain.TradeRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, record)
	return nil
}

func (l *memTradeLog) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.TrackedAssets = []string{"XTZ"}
	cfg.PollPriceInterval = 10 * time.Millisecond
	cfg.SeedSamples = 0
	cfg.SeedInterval = time.Millisecond
	return cfg
}

func TestNewHedgerBot_BootstrapsLedger(t *testing.T) {
	balances := &memBalanceStore{}

	bot, err := NewHedgerBot(testConfig(), newStubFeed(), &memHistoryStore{}, balances, &memTradeLog{}, nil)
	require.NoError(t, err)

	require.True(t, decimal.NewFromInt(2000).Equal(bot.Ledger().CashUSD("binance")))
	require.True(t, decimal.NewFromInt(2000).Equal(bot.Ledger().CashUSD("bybit")))
	// bootstrap state is persisted immediately
	require.Equal(t, 1, balances.count())
}

func TestNewHedgerBot_BootstrapRegistersAssetUniverse(t *testing.T) {
	cfg := testConfig()
	balances := &memBalanceStore{}

	_, err := NewHedgerBot(cfg, newStubFeed(), &memHistoryStore{}, balances, &memTradeLog{}, nil)
	require.NoError(t, err)

	snapshot, found, err := balances.Load()
	require.NoError(t, err)
	require.True(t, found)

	// every asset of the universe appears as a zero holding on both venues
	for _, venue := range []domain.Venue{"binance", "bybit"} {
		holdings := snapshot.Venues[venue].Holdings
		require.Len(t, holdings, len(cfg.Assets))
		for _, asset := range cfg.Assets {
			amount, ok := holdings[asset]
			require.True(t, ok, "missing %s on %s", asset, venue)
			require.True(t, amount.IsZero())
		}
	}
}

func TestNewHedgerBot_RestoresLedgerFromSnapshot(t *testing.T) {
	balances := &memBalanceStore{}
	require.NoError(t, balances.Save(domain.LedgerSnapshot{
		Timestamp: time.Now().UTC(),
		Venues: map[domain.Venue]domain.VenueBalance{
			"binance": {CashUSD: decimal.NewFromInt(1234), Holdings: map[string]decimal.Decimal{"XTZ": decimal.NewFromInt(7)}},
			"bybit":   {CashUSD: decimal.NewFromInt(4321), Holdings: map[string]decimal.Decimal{}},
		},
	}))

	bot, err := NewHedgerBot(testConfig(), newStubFeed(), &memHistoryStore{}, balances, &memTradeLog{}, nil)
	require.NoError(t, err)

	require.True(t, decimal.NewFromInt(1234).Equal(bot.Ledger().CashUSD("binance")))
	require.True(t, decimal.NewFromInt(7).Equal(bot.Ledger().Holding("binance", "XTZ")))
	require.True(t, decimal.NewFromInt(4321).Equal(bot.Ledger().CashUSD("bybit")))
	// no extra snapshot written on restore
	require.Equal(t, 1, balances.count())
}

func TestNewHedgerBot_RehydratesHistory(t *testing.T) {
	store := &memHistoryStore{}
	base := time.Now().UTC()
	for i := 0; i < 3; i++ {
		require.NoError(t, store.Append("XTZ", "binance", domain.PriceSample{
			Timestamp: base.Add(time.Duration(i) * time.Second),
			Price:     decimal.NewFromInt(int64(100 + i)),
		}))
	}

	bot, err := NewHedgerBot(testConfig(), newStubFeed(), store, &memBalanceStore{}, &memTradeLog{}, nil)
	require.NoError(t, err)

	require.Equal(t, 3, bot.buffer.Len("XTZ", "binance"))
}

func TestSeedHistory(t *testing.T) {
	cfg := testConfig()
	cfg.SeedSamples = 5

	feed := newStubFeed()
	feed.set("XTZ", "binance", 100)
	feed.set("XTZ", "bybit", 101)

	store := &memHistoryStore{}
	bot, err := NewHedgerBot(cfg, feed, store, &memBalanceStore{}, &memTradeLog{}, nil)
	require.NoError(t, err)

	require.NoError(t, bot.seedHistory(context.Background(), cfg.TrackedPairs()))

	require.Equal(t, 5, bot.buffer.Len("XTZ", "binance"))
	require.Equal(t, 5, bot.buffer.Len("XTZ", "bybit"))
	require.Equal(t, 10, store.count())

	// a second call finds history in place and does nothing
	require.NoError(t, bot.seedHistory(context.Background(), cfg.TrackedPairs()))
	require.Equal(t, 5, bot.buffer.Len("XTZ", "binance"))
}

func TestSeedHistory_SeedsWhenCounterVenueIsEmpty(t *testing.T) {
	cfg := testConfig()
	cfg.SeedSamples = 4

	// persisted history exists for venue A only, e.g. after the counter venue
	// was reconfigured between runs
	store := &memHistoryStore{}
	base := time.Now().UTC()
	for i := 0; i < 3; i++ {
		require.NoError(t, store.Append("XTZ", "binance", domain.PriceSample{
			Timestamp: base.Add(time.Duration(i) * time.Second),
			Price:     decimal.NewFromInt(100),
		}))
	}

	feed := newStubFeed()
	feed.set("XTZ", "binance", 100)
	feed.set("XTZ", "bybit", 101)

	bot, err := NewHedgerBot(cfg, feed, store, &memBalanceStore{}, &memTradeLog{}, nil)
	require.NoError(t, err)
	require.Equal(t, 0, bot.buffer.Len("XTZ", "bybit"))

	require.NoError(t, bot.seedHistory(context.Background(), cfg.TrackedPairs()))
	require.Equal(t, 4, bot.buffer.Len("XTZ", "bybit"))
}

func TestRun_PersistsCycles(t *testing.T) {
	feed := newStubFeed()
	feed.set("XTZ", "binance", 100)
	feed.set("XTZ", "bybit", 110)

	balances := &memBalanceStore{}
	trades := &memTradeLog{}
	bot, err := NewHedgerBot(testConfig(), feed, &memHistoryStore{}, balances, trades, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err = bot.Run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// bootstrap snapshot plus at least one cycle snapshot
	require.GreaterOrEqual(t, balances.count(), 2)
	// zero volatility sizes at the floor, so hedges still execute
	require.GreaterOrEqual(t, trades.count(), 2)
}
