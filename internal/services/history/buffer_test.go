package history

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/hedger/internal/domain"
)

const venueA = domain.Venue("binance")

func sample(price int64, sec int) domain.PriceSample {
	return domain.PriceSample{
		Timestamp: time.Unix(int64(sec), 0),
		Price:     decimal.NewFromInt(price),
	}
}

func TestBuffer_AppendAndRecent(t *testing.T) {
	b := NewBuffer(0)

	for i := 1; i <= 5; i++ {
		require.NoError(t, b.Append("BTC", venueA, sample(int64(100+i), i)))
	}

	recent := b.Recent("BTC", venueA, 3)
	require.Len(t, recent, 3)
	require.True(t, decimal.NewFromInt(103).Equal(recent[0].Price), "oldest of the three first")
	require.True(t, decimal.NewFromInt(105).Equal(recent[2].Price), "most recent last")
}

func TestBuffer_RejectsNonPositivePrice(t *testing.T) {
	b := NewBuffer(0)

	err := b.Append("BTC", venueA, sample(0, 1))
	require.ErrorIs(t, err, domain.ErrInvalidPrice)

	err = b.Append("BTC", venueA, domain.PriceSample{Timestamp: time.Now(), Price: decimal.NewFromInt(-5)})
	require.ErrorIs(t, err, domain.ErrInvalidPrice)

	require.Zero(t, b.Len("BTC", venueA))
}

func TestBuffer_RecentReturnsFewerWhenInsufficient(t *testing.T) {
	b := NewBuffer(0)
	require.NoError(t, b.Append("BTC", venueA, sample(100, 1)))

	recent := b.Recent("BTC", venueA, 10)
	require.Len(t, recent, 1)

	require.Empty(t, b.Recent("ETH", venueA, 10))
}

func TestBuffer_CapacityEvictsOldest(t *testing.T) {
	b := NewBuffer(3)

	for i := 1; i <= 5; i++ {
		require.NoError(t, b.Append("BTC", venueA, sample(int64(i), i)))
	}

	require.Equal(t, 3, b.Len("BTC", venueA))
	recent := b.Recent("BTC", venueA, 3)
	require.True(t, decimal.NewFromInt(3).Equal(recent[0].Price))
	require.True(t, decimal.NewFromInt(5).Equal(recent[2].Price))
}

func TestBuffer_KeysAreIndependent(t *testing.T) {
	b := NewBuffer(0)
	venueB := domain.Venue("bybit")

	require.NoError(t, b.Append("BTC", venueA, sample(100, 1)))
	require.NoError(t, b.Append("BTC", venueB, sample(200, 1)))

	require.Equal(t, 1, b.Len("BTC", venueA))
	require.Equal(t, 1, b.Len("BTC", venueB))
	require.True(t, decimal.NewFromInt(200).Equal(b.Recent("BTC", venueB, 1)[0].Price))
}
