// Package trades persists executed trade records in a WAL. Append-only from
// the core's perspective; records are only read back by the web layer.
package trades

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"
	"github.com/vadiminshakov/hedger/internal/domain"
)

const (
	defaultTradesDir   = "./wal/trades"
	tradesSegmentLimit = 1000
	tradesMaxSegments  = 100
	tradeKeyPrefix     = "trade_"
)

// TradeRecordEntry bundles a trade record with its WAL index.
type TradeRecordEntry struct {
	Index  uint64
	Record domain.TradeRecord
}

// WALStore is the durable TradeLog collaborator.
type WALStore struct {
	wal *gowal.Wal
	mu  sync.RWMutex
}

// NewWALStore initializes a WAL-backed trade log under dir.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = defaultTradesDir
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "trade_",
		SegmentThreshold: tradesSegmentLimit,
		MaxSegments:      tradesMaxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init trade log WAL")
	}

	return &WALStore{wal: wal}, nil
}

// Append writes one executed trade leg to the log.
func (s *WALStore) Append(record domain.TradeRecord) error {
	if s == nil || s.wal == nil {
		return errors.New("trade log is not initialized")
	}
	if record.Asset == "" {
		return fmt.Errorf("trade record asset is required")
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return errors.Wrap(err, "marshal trade record")
	}

	key := fmt.Sprintf("%s%s", tradeKeyPrefix, record.Asset)

	s.mu.Lock()
	defer s.mu.Unlock()

	nextIndex := s.wal.CurrentIndex() + 1
	return s.wal.Write(nextIndex, key, payload)
}

// RecordsAfter returns all trade records written after the provided WAL index.
func (s *WALStore) RecordsAfter(index uint64) ([]TradeRecordEntry, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("trade log is not initialized")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	current := s.wal.CurrentIndex()
	if current <= index {
		return nil, nil
	}

	entries := make([]TradeRecordEntry, 0, current-index)
	for idx := index + 1; idx <= current; idx++ {
		key, payload, err := s.wal.Get(idx)
		if err != nil || !strings.HasPrefix(key, tradeKeyPrefix) {
			continue
		}
		var record domain.TradeRecord
		if err := json.Unmarshal(payload, &record); err != nil {
			return nil, errors.Wrap(err, "decode trade record")
		}
		entries = append(entries, TradeRecordEntry{Index: idx, Record: record})
	}

	return entries, nil
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
		return errors.New("trade log is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}
