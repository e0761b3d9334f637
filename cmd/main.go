// Command hedger runs the cross-venue arbitrage bot. It polls two exchange
// venues for prices, sizes hedges from recent volatility and settles both
// legs against a durable simulated ledger.
//
// Usage:
//
//	hedger --config config.yaml
//	hedger --setup (interactive wizard)
//	hedger (uses CLI arguments)
//
// Environment variables:
//
//	For Binance: BINANCE_API_KEY, BINANCE_API_SECRET (optional, tickers are public)
//	For Bybit: BYBIT_API_KEY, BYBIT_API_SECRET (optional, tickers are public)
//	For Hyperliquid: HYPERLIQUID_PRIVATE_KEY, HYPERLIQUID_BASE_URL (optional)
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/hedger/config"
	"github.com/vadiminshakov/hedger/internal"
	"github.com/vadiminshakov/hedger/internal/setup"
	"github.com/vadiminshakov/hedger/internal/storage/balances"
	historystore "github.com/vadiminshakov/hedger/internal/storage/history"
	"github.com/vadiminshakov/hedger/internal/storage/trades"
	"github.com/vadiminshakov/hedger/internal/web"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}

	if cfg.Setup {
		if err := setup.RunTUI(); err != nil {
			log.Fatal(err)
		}
		cfg, err = config.Load(setup.GeneratedConfigFile)
		if err != nil {
			log.Fatal(err)
		}
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	feed, err := internal.BuildFeed(cfg, logger)
	if err != nil {
		logger.Fatal("failed to build price feed", zap.Error(err))
	}

	historyStore, err := historystore.NewWALStore(filepath.Join(cfg.DataDir, "history"))
	if err != nil {
		logger.Fatal("failed to open history store", zap.Error(err))
	}
	defer historyStore.Close()

	balanceStore, err := balances.NewWALStore(filepath.Join(cfg.DataDir, "balances"))
	if err != nil {
		logger.Fatal("failed to open balance store", zap.Error(err))
	}
	defer balanceStore.Close()

	tradeLog, err := trades.NewWALStore(filepath.Join(cfg.DataDir, "trades"))
	if err != nil {
		logger.Fatal("failed to open trade log", zap.Error(err))
	}
	defer tradeLog.Close()

	bot, err := internal.NewHedgerBot(cfg, feed, historyStore, balanceStore, tradeLog, logger)
	if err != nil {
		logger.Fatal("failed to assemble bot", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.WebAddr != "" {
		srv := web.NewServer(cfg.WebAddr, balanceStore, tradeLog)
		go func() {
			if err := srv.Start(ctx); err != nil {
				logger.Error("dashboard server stopped", zap.Error(err))
			}
		}()
		logger.Info("dashboard listening", zap.String("addr", cfg.WebAddr))
	}

	if err := bot.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("bot stopped with error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
