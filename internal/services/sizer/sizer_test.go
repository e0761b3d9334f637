package sizer

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newTestSizer(t *testing.T) Sizer {
	t.Helper()
	s, err := New(decimal.NewFromInt(5), decimal.NewFromInt(500000))
	require.NoError(t, err)
	return s
}

func TestNotional_ZeroVolatilityFloorsAtMin(t *testing.T) {
	s := newTestSizer(t)

	got := s.Notional(decimal.Zero, decimal.NewFromInt(100))
	require.True(t, decimal.NewFromInt(5).Equal(got), "got %s", got.String())
}

func TestNotional_VolatilityDriven(t *testing.T) {
	s := newTestSizer(t)

	// volatility/price = 2/100 = 0.02 -> 500000 * 0.02 = 10000
	got := s.Notional(decimal.NewFromInt(2), decimal.NewFromInt(100))
	require.True(t, decimal.NewFromInt(10000).Equal(got), "got %s", got.String())
}

func TestNotional_NeverBelowFloor(t *testing.T) {
	s := newTestSizer(t)

	// tiny volatility ratio stays on the floor
	got := s.Notional(decimal.NewFromFloat(0.000001), decimal.NewFromInt(100000))
	require.True(t, decimal.NewFromInt(5).Equal(got), "got %s", got.String())
}

func TestNotional_NonPositiveReferencePrice(t *testing.T) {
	s := newTestSizer(t)

	require.True(t, s.Notional(decimal.NewFromInt(2), decimal.Zero).IsZero())
	require.True(t, s.Notional(decimal.NewFromInt(2), decimal.NewFromInt(-1)).IsZero())
}

func TestNotional_Idempotent(t *testing.T) {
	s := newTestSizer(t)

	vol := decimal.NewFromFloat(1.5)
	price := decimal.NewFromInt(123)
	require.True(t, s.Notional(vol, price).Equal(s.Notional(vol, price)))
}

func TestNew_RejectsNonPositiveParams(t *testing.T) {
	_, err := New(decimal.Zero, decimal.NewFromInt(500000))
	require.Error(t, err)

	_, err = New(decimal.NewFromInt(5), decimal.Zero)
	require.Error(t, err)
}
