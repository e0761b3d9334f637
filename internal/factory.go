package internal

import (
	"fmt"
	"os"

	"github.com/vadiminshakov/hedger/config"
	"github.com/vadiminshakov/hedger/internal/clients"
	"github.com/vadiminshakov/hedger/internal/domain"
	"github.com/vadiminshakov/hedger/internal/services/pricer"
	"go.uber.org/zap"
)

const defaultHyperliquidURL = "https://api.hyperliquid.xyz"

// newPricer creates the platform's price source. Credentials come from the
// environment; binance and bybit ticker endpoints are public, so empty keys
// are acceptable there.
func newPricer(platform string) (pricer.Pricer, error) {
	switch platform {
	case "binance":
		client := clients.NewBinanceClient(os.Getenv("BINANCE_API_KEY"), os.Getenv("BINANCE_API_SECRET"))
		return pricer.NewBinancePricer(client), nil
	case "bybit":
		client := clients.NewBybitClient(os.Getenv("BYBIT_API_KEY"), os.Getenv("BYBIT_API_SECRET"))
		return pricer.NewBybitPricer(client), nil
	case "hyperliquid":
		key := os.Getenv("HYPERLIQUID_PRIVATE_KEY")
		if key == "" {
			return nil, fmt.Errorf("HYPERLIQUID_PRIVATE_KEY environment variable must be set")
		}
		baseURL := os.Getenv("HYPERLIQUID_BASE_URL")
		if baseURL == "" {
			baseURL = defaultHyperliquidURL
		}
		client, err := clients.NewHyperliquidClient(key, baseURL)
		if err != nil {
			return nil, err
		}
		return pricer.NewHyperliquidPricer(client.Exchange().Info()), nil
	default:
		return nil, fmt.Errorf("unsupported platform: %s", platform)
	}
}

// BuildFeed wires one pricer per configured venue into a Feed.
func BuildFeed(cfg config.Config, logger *zap.Logger) (*pricer.Feed, error) {
	pricers := make(map[domain.Venue]pricer.Pricer, 2)
	for _, platform := range []string{cfg.VenueA, cfg.VenueB} {
		p, err := newPricer(platform)
		if err != nil {
			return nil, err
		}
		pricers[domain.Venue(platform)] = p
	}

	return pricer.NewFeed(pricers, logger)
}
