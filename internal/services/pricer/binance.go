package pricer

import (
	"context"
	"fmt"

	"github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/hedger/internal/domain"
)

// BinancePricer fetches spot prices from the Binance public API.
type BinancePricer struct {
	client *binance.Client
}

func NewBinancePricer(client *binance.Client) *BinancePricer {
	return &BinancePricer{client: client}
}

func (p *BinancePricer) GetPrice(ctx context.Context, pair domain.Pair) (decimal.Decimal, error) {
	symbol := venueSymbol(pair)

	prices, err := p.client.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if len(prices) == 0 {
		return decimal.Decimal{}, fmt.Errorf("binance API returned empty prices for %s", pair.String())
	}

	return decimal.NewFromString(prices[0].Price)
}

// venueSymbol maps a USD-quoted tracked pair to the USDT symbol exchanges list.
func venueSymbol(pair domain.Pair) string {
	if pair.To == "USD" {
		return pair.From + "USDT"
	}
	return pair.Symbol()
}
