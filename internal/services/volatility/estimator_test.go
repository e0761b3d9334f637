package volatility

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/hedger/internal/domain"
	"github.com/vadiminshakov/hedger/internal/services/history"
)

const venueA = domain.Venue("binance")

func bufferWithPrices(t *testing.T, prices ...int64) *history.Buffer {
	t.Helper()
	b := history.NewBuffer(0)
	for i, p := range prices {
		err := b.Append("BTC", venueA, domain.PriceSample{
			Timestamp: time.Unix(int64(i), 0),
			Price:     decimal.NewFromInt(p),
		})
		require.NoError(t, err)
	}
	return b
}

func TestTrueRangeAverage(t *testing.T) {
	// deltas: |102-100|=2, |99-102|=3, |103-99|=4 -> avg 3
	b := bufferWithPrices(t, 100, 102, 99, 103)
	e := NewEstimator(b)

	got, err := e.TrueRangeAverage("BTC", venueA, 3)
	require.NoError(t, err)
	require.True(t, decimal.NewFromInt(3).Equal(got), "got %s", got.String())
}

func TestTrueRangeAverage_UsesMostRecentWindow(t *testing.T) {
	// only the last period+1 samples matter: deltas 10, 20 -> avg 15
	b := bufferWithPrices(t, 500, 100, 110, 130)
	e := NewEstimator(b)

	got, err := e.TrueRangeAverage("BTC", venueA, 2)
	require.NoError(t, err)
	require.True(t, decimal.NewFromInt(15).Equal(got), "got %s", got.String())
}

func TestTrueRangeAverage_InsufficientHistory(t *testing.T) {
	b := bufferWithPrices(t, 100, 102, 99)
	e := NewEstimator(b)

	_, err := e.TrueRangeAverage("BTC", venueA, 3)
	require.ErrorIs(t, err, domain.ErrInsufficientHistory)
}

func TestTrueRangeAverage_FlatPricesYieldZero(t *testing.T) {
	b := bufferWithPrices(t, 100, 100, 100, 100)
	e := NewEstimator(b)

	got, err := e.TrueRangeAverage("BTC", venueA, 3)
	require.NoError(t, err)
	require.True(t, got.IsZero())
}

func TestTrueRangeAverage_Idempotent(t *testing.T) {
	b := bufferWithPrices(t, 100, 102, 99, 103)
	e := NewEstimator(b)

	first, err := e.TrueRangeAverage("BTC", venueA, 3)
	require.NoError(t, err)
	second, err := e.TrueRangeAverage("BTC", venueA, 3)
	require.NoError(t, err)
	require.True(t, first.Equal(second))
	require.Equal(t, 4, b.Len("BTC", venueA), "estimator must not mutate the buffer")
}
