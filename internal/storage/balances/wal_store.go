// Package balances persists ledger snapshots in a WAL. The latest snapshot is
// the authoritative ledger state across restarts.
package balances

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"
	"github.com/vadiminshakov/hedger/internal/domain"
)

const (
	defaultBalancesDir   = "./wal/balances"
	snapshotSegmentLimit = 1000
	snapshotMaxSegments  = 100
	snapshotKey          = "ledger_snapshot"
)

// SnapshotRecord bundles a snapshot with the WAL index it originated from.
type SnapshotRecord struct {
	Index    uint64
	Snapshot domain.LedgerSnapshot
}

// WALStore is the durable BalanceStore collaborator.
type WALStore struct {
	wal *gowal.Wal
	mu  sync.RWMutex
}

// NewWALStore initializes a WAL-backed ledger snapshot store under dir.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = defaultBalancesDir
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "snapshot_",
		SegmentThreshold: snapshotSegmentLimit,
		MaxSegments:      snapshotMaxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init ledger snapshot WAL")
	}

	return &WALStore{wal: wal}, nil
}

// Save writes the snapshot to WAL. Called after every cycle.
func (s *WALStore) Save(snapshot domain.LedgerSnapshot) error {
	if s == nil || s.wal == nil {
		return errors.New("ledger snapshot store is not initialized")
	}
	if len(snapshot.Venues) == 0 {
		return errors.New("ledger snapshot contains no venues")
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return errors.Wrap(err, "marshal ledger snapshot")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	nextIndex := s.wal.CurrentIndex() + 1
	return s.wal.Write(nextIndex, snapshotKey, payload)
}

// Load returns the most recent persisted snapshot. The boolean is false when
// no snapshot has ever been saved; the caller then bootstraps default
// balances.
func (s *WALStore) Load() (domain.LedgerSnapshot, bool, error) {
	if s == nil || s.wal == nil {
		return domain.LedgerSnapshot{}, false, errors.New("ledger snapshot store is not initialized")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		latest domain.LedgerSnapshot
		found  bool
	)
	for msg := range s.wal.Iterator() {
		if !strings.HasPrefix(msg.Key, snapshotKey) {
			continue
		}
		var snapshot domain.LedgerSnapshot
		if err := json.Unmarshal(msg.Value, &snapshot); err != nil {
			return domain.LedgerSnapshot{}, false, errors.Wrap(err, "decode ledger snapshot")
		}
		latest = snapshot
		found = true
	}

	return latest, found, nil
}

// SnapshotsAfter returns all snapshots written after the provided WAL index.
func (s *WALStore) SnapshotsAfter(index uint64) ([]SnapshotRecord, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("ledger snapshot store is not initialized")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	current := s.wal.CurrentIndex()
	if current <= index {
		return nil, nil
	}

	records := make([]SnapshotRecord, 0, current-index)
	for idx := index + 1; idx <= current; idx++ {
		key, payload, err := s.wal.Get(idx)
		if err != nil || !strings.HasPrefix(key, snapshotKey) {
			continue
		}
		var snapshot domain.LedgerSnapshot
		if err := json.Unmarshal(payload, &snapshot); err != nil {
			return nil, errors.Wrap(err, "decode ledger snapshot")
		}
		records = append(records, SnapshotRecord{Index: idx, Snapshot: snapshot})
	}

	return records, nil
}

// CurrentIndex returns the latest WAL index stored.
func (s *WALStore) CurrentIndex() uint64 {
	if s == nil || s.wal == nil {
		return 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.wal.CurrentIndex()
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	if s == nil || s.wal == nil {
		return errors.New("ledger snapshot store is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}
