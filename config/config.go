package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/hedger/internal/domain"
	"gopkg.in/yaml.v3"
)

// Config holds all runtime parameters of the hedger.
type Config struct {
	// VenueA is the reference venue platform ("binance", "bybit", "hyperliquid").
	VenueA string
	// VenueB is the counter venue platform.
	VenueB string
	// Assets is the full asset universe the ledger bootstraps holdings for.
	Assets []string
	// TrackedAssets is the subset actively hedged every cycle.
	TrackedAssets []string
	// TakerFeeRate is the proportional fee charged on the funding leg.
	TakerFeeRate decimal.Decimal
	// MinTradeUSD is the smallest notional worth executing.
	MinTradeUSD decimal.Decimal
	// TradeSizeFactor scales relative volatility into a USD notional.
	TradeSizeFactor decimal.Decimal
	// TrueRangePeriod is the volatility estimator lookback.
	TrueRangePeriod int
	// PollPriceInterval is the cycle cadence.
	PollPriceInterval time.Duration
	// StartingCashUSD is the per-venue cash used when no snapshot exists yet.
	StartingCashUSD decimal.Decimal
	// SeedSamples is how many live samples to collect per tracked asset before
	// the first trading cycle when persisted history is missing.
	SeedSamples int
	// SeedInterval is the pause between seeding polls.
	SeedInterval time.Duration
	// HistoryCapacity bounds the in-memory price buffer per (asset, venue).
	// Zero means unbounded.
	HistoryCapacity int
	// DataDir is the root directory for the WAL stores.
	DataDir string
	// WebAddr enables the SSE dashboard when non-empty, e.g. ":8080".
	WebAddr string
	// Setup requests the interactive configuration wizard.
	Setup bool
}

// ConfigTmp mirrors Config with yaml-friendly string fields.
type ConfigTmp struct {
	VenueA             string        `yaml:"venue_a"`
	VenueB             string        `yaml:"venue_b"`
	Assets             []string      `yaml:"assets,omitempty"`
	TrackedAssets      []string      `yaml:"tracked_assets,omitempty"`
	TakerFeeRateStr    string        `yaml:"taker_fee_rate,omitempty"`
	MinTradeUSDStr     string        `yaml:"min_trade_usd,omitempty"`
	TradeSizeFactorStr string        `yaml:"trade_size_factor,omitempty"`
	TrueRangePeriodStr string        `yaml:"true_range_period,omitempty"`
	PollPriceInterval  time.Duration `yaml:"poll_price_interval,omitempty"`
	StartingCashStr    string        `yaml:"starting_cash_usd,omitempty"`
	SeedSamplesStr     string        `yaml:"seed_samples,omitempty"`
	SeedInterval       time.Duration `yaml:"seed_interval,omitempty"`
	HistoryCapacityStr string        `yaml:"history_capacity,omitempty"`
	DataDir            string        `yaml:"data_dir,omitempty"`
	WebAddr            string        `yaml:"web_addr,omitempty"`
}

// Default returns the configuration matching the system's stock parameters.
func Default() Config {
	return Config{
		VenueA:            "binance",
		VenueB:            "bybit",
		Assets:            []string{"XTZ", "BTC", "LTC", "BONK", "DOT", "ADA"},
		TrackedAssets:     []string{"XTZ", "BONK", "DOT"},
		TakerFeeRate:      decimal.NewFromFloat(0.001),
		MinTradeUSD:       decimal.NewFromInt(5),
		TradeSizeFactor:   decimal.NewFromInt(500000),
		TrueRangePeriod:   14,
		PollPriceInterval: 15 * time.Second,
		StartingCashUSD:   decimal.NewFromInt(2000),
		SeedSamples:       15,
		SeedInterval:      2 * time.Second,
		HistoryCapacity:   1024,
		DataDir:           "./wal",
	}
}

// Get loads configuration from --config yaml if provided, otherwise from CLI
// flags. --setup returns early with Setup set so the caller can launch the
// wizard.
func Get() (Config, error) {
	configPath := flag.String("config", "", "path to yaml config")
	setup := flag.Bool("setup", false, "run interactive configuration wizard")

	def := Default()
	venueA := flag.String("venue-a", def.VenueA, "reference venue platform, example: binance")
	venueB := flag.String("venue-b", def.VenueB, "counter venue platform, example: bybit")
	tracked := flag.String("tracked", strings.Join(def.TrackedAssets, ","), "comma-separated assets to hedge")
	pollInterval := flag.Duration("pollpriceinterval", def.PollPriceInterval, "poll market price interval")
	dataDir := flag.String("datadir", def.DataDir, "directory for WAL storage")
	webAddr := flag.String("webaddr", "", "dashboard listen address, empty disables")

	flag.Parse()

	if *setup {
		return Config{Setup: true}, nil
	}
	if *configPath != "" {
		return Load(*configPath)
	}

	cfg := def
	cfg.VenueA = *venueA
	cfg.VenueB = *venueB
	cfg.TrackedAssets = splitAssets(*tracked)
	cfg.PollPriceInterval = *pollInterval
	cfg.DataDir = *dataDir
	cfg.WebAddr = *webAddr

	return cfg, cfg.validate()
}

// Load reads and validates a yaml config file.
func Load(path string) (Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var tmp ConfigTmp
	if err := yaml.Unmarshal(f, &tmp); err != nil {
		return Config{}, err
	}

	return tmp.Build()
}

// Build converts the yaml representation into a validated Config, filling
// defaults for omitted fields.
func (t ConfigTmp) Build() (Config, error) {
	cfg := Default()

	if t.VenueA != "" {
		cfg.VenueA = t.VenueA
	}
	if t.VenueB != "" {
		cfg.VenueB = t.VenueB
	}
	if len(t.Assets) > 0 {
		cfg.Assets = t.Assets
	}
	if len(t.TrackedAssets) > 0 {
		cfg.TrackedAssets = t.TrackedAssets
	}
	if t.PollPriceInterval > 0 {
		cfg.PollPriceInterval = t.PollPriceInterval
	}
	if t.SeedInterval > 0 {
		cfg.SeedInterval = t.SeedInterval
	}
	if t.DataDir != "" {
		cfg.DataDir = t.DataDir
	}
	cfg.WebAddr = t.WebAddr

	var err error
	if cfg.TakerFeeRate, err = decimalOrDefault(t.TakerFeeRateStr, cfg.TakerFeeRate, "taker_fee_rate"); err != nil {
		return Config{}, err
	}
	if cfg.MinTradeUSD, err = decimalOrDefault(t.MinTradeUSDStr, cfg.MinTradeUSD, "min_trade_usd"); err != nil {
		return Config{}, err
	}
	if cfg.TradeSizeFactor, err = decimalOrDefault(t.TradeSizeFactorStr, cfg.TradeSizeFactor, "trade_size_factor"); err != nil {
		return Config{}, err
	}
	if cfg.StartingCashUSD, err = decimalOrDefault(t.StartingCashStr, cfg.StartingCashUSD, "starting_cash_usd"); err != nil {
		return Config{}, err
	}
	if cfg.TrueRangePeriod, err = intOrDefault(t.TrueRangePeriodStr, cfg.TrueRangePeriod, "true_range_period"); err != nil {
		return Config{}, err
	}
	if cfg.SeedSamples, err = intOrDefault(t.SeedSamplesStr, cfg.SeedSamples, "seed_samples"); err != nil {
		return Config{}, err
	}
	if cfg.HistoryCapacity, err = intOrDefault(t.HistoryCapacityStr, cfg.HistoryCapacity, "history_capacity"); err != nil {
		return Config{}, err
	}

	return cfg, cfg.validate()
}

// TrackedPairs maps the tracked assets to USD-quoted pairs.
func (c Config) TrackedPairs() []domain.Pair {
	pairs := make([]domain.Pair, 0, len(c.TrackedAssets))
	for _, asset := range c.TrackedAssets {
		pairs = append(pairs, domain.Pair{From: asset, To: "USD"})
	}
	return pairs
}

func (c Config) validate() error {
	if c.VenueA == "" || c.VenueB == "" {
		return fmt.Errorf("both venues must be set, got venue_a=%q venue_b=%q", c.VenueA, c.VenueB)
	}
	if c.VenueA == c.VenueB {
		return fmt.Errorf("venues must differ, got %q twice", c.VenueA)
	}
	if len(c.TrackedAssets) == 0 {
		return fmt.Errorf("at least one tracked asset is required")
	}
	if c.TakerFeeRate.IsNegative() {
		return fmt.Errorf("taker_fee_rate must not be negative, got %s", c.TakerFeeRate.String())
	}
	if !c.MinTradeUSD.IsPositive() {
		return fmt.Errorf("min_trade_usd must be positive, got %s", c.MinTradeUSD.String())
	}
	if !c.TradeSizeFactor.IsPositive() {
		return fmt.Errorf("trade_size_factor must be positive, got %s", c.TradeSizeFactor.String())
	}
	if c.TrueRangePeriod < 1 {
		return fmt.Errorf("true_range_period must be at least 1, got %d", c.TrueRangePeriod)
	}
	if c.PollPriceInterval <= 0 {
		return fmt.Errorf("poll_price_interval must be positive, got %s", c.PollPriceInterval)
	}
	if c.StartingCashUSD.IsNegative() {
		return fmt.Errorf("starting_cash_usd must not be negative, got %s", c.StartingCashUSD.String())
	}
	return nil
}

func decimalOrDefault(s string, def decimal.Decimal, field string) (decimal.Decimal, error) {
	if s == "" {
		return def, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("incorrect '%s' param in yaml config (must be a decimal): %w", field, err)
	}
	return d, nil
}

func intOrDefault(s string, def int, field string) (int, error) {
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("incorrect '%s' param in yaml config (must be an integer): %w", field, err)
	}
	return n, nil
}

func splitAssets(s string) []string {
	parts := strings.Split(s, ",")
	assets := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			assets = append(assets, strings.ToUpper(p))
		}
	}
	return assets
}
