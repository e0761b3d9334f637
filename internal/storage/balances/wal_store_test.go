package balances

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/hedger/internal/domain"
)

func snapshotFixture(ts time.Time) domain.LedgerSnapshot {
	return domain.LedgerSnapshot{
		Timestamp: ts,
		Venues: map[domain.Venue]domain.VenueBalance{
			"binance": {
				CashUSD:  decimal.NewFromFloat(1001.5),
				Holdings: map[string]decimal.Decimal{"XTZ": decimal.NewFromFloat(10.25)},
			},
			"bybit": {
				CashUSD:  decimal.NewFromInt(3100),
				Holdings: map[string]decimal.Decimal{},
			},
		},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	ts := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	saved := snapshotFixture(ts)
	require.NoError(t, store.Save(saved))

	loaded, found, err := store.Load()
	require.NoError(t, err)
	require.True(t, found)

	require.True(t, loaded.Timestamp.Equal(ts))
	require.Len(t, loaded.Venues, 2)
	require.True(t, saved.Venues["binance"].CashUSD.Equal(loaded.Venues["binance"].CashUSD))
	require.True(t, saved.Venues["binance"].Holdings["XTZ"].Equal(loaded.Venues["binance"].Holdings["XTZ"]))
	require.True(t, saved.Venues["bybit"].CashUSD.Equal(loaded.Venues["bybit"].CashUSD))
}

func TestLoadReturnsLatestSnapshot(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	first := snapshotFixture(time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC))
	second := snapshotFixture(time.Date(2026, 8, 24, 12, 0, 15, 0, time.UTC))
	second.Venues["binance"] = domain.VenueBalance{
		CashUSD:  decimal.NewFromInt(42),
		Holdings: map[string]decimal.Decimal{},
	}

	require.NoError(t, store.Save(first))
	require.NoError(t, store.Save(second))

	loaded, found, err := store.Load()
	require.NoError(t, err)
	require.True(t, found)
	require.True(t, decimal.NewFromInt(42).Equal(loaded.Venues["binance"].CashUSD))
}

func TestLoadEmptyStore(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	_, found, err := store.Load()
	require.NoError(t, err)
	require.False(t, found)
}

func TestSnapshotsAfter(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Save(snapshotFixture(time.Now().UTC())))
	}

	records, err := store.SnapshotsAfter(0)
	require.NoError(t, err)
	require.Len(t, records, 3)

	tail, err := store.SnapshotsAfter(records[1].Index)
	require.NoError(t, err)
	require.Len(t, tail, 1)
	require.Equal(t, records[2].Index, tail[0].Index)

	none, err := store.SnapshotsAfter(store.CurrentIndex())
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestSaveRejectsEmptySnapshot(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	require.Error(t, store.Save(domain.LedgerSnapshot{Timestamp: time.Now().UTC()}))
}
