// Package history persists price samples per (asset, venue) in a WAL so the
// rolling buffer can be rehydrated at startup.
package history

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
	defaultHistoryDir  = "./wal/history"
	historySegmentSize = 1000
	historyMaxSegments = 100
	priceKeyPrefix     = "price_"
)

// sampleRecord is the persisted form of one price observation.
type sampleRecord struct {
	Asset  string             `json:"asset"`
	Venue  domain.Venue       `json:"venue"`
	Sample domain.PriceSample `json:"sample"`
}

// WALStore is the durable HistoryStore collaborator.
type WALStore struct {
	wal *gowal.Wal
	mu  sync.RWMutex
}

// NewWALStore initializes a WAL-backed price history store under dir.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = defaultHistoryDir
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "history_",
		SegmentThreshold: historySegmentSize,
		MaxSegments:      historyMaxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init price history WAL")
	}

	return &WALStore{wal: wal}, nil
}

// Append durably records one price sample.
func (s *WALStore) Append(asset string, venue domain.Venue, sample domain.PriceSample) error {
	if s == nil || s.wal == nil {
		return errors.New("price history store is not initialized")
	}
	if asset == "" || venue == "" {
		return fmt.Errorf("price sample requires asset and venue")
	}

	payload, err := json.Marshal(sampleRecord{Asset: asset, Venue: venue, Sample: sample})
	if err != nil {
		return errors.Wrap(err, "marshal price sample")
	}

	key := fmt.Sprintf("%s%s_%s", priceKeyPrefix, asset, venue)

	s.mu.Lock()
	defer s.mu.Unlock()

	nextIndex := s.wal.CurrentIndex() + 1
	return s.wal.Write(nextIndex, key, payload)
}

// Replay feeds every persisted sample to fn in write order. Used to rehydrate
// the in-memory buffer at startup.
func (s *WALStore) Replay(fn func(asset string, venue domain.Venue, sample domain.PriceSample) error) error {
	if s == nil || s.wal == nil {
		return errors.New("price history store is not initialized")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for msg := range s.wal.Iterator() {
		if !strings.HasPrefix(msg.Key, priceKeyPrefix) {
			continue
		}
		var record sampleRecord
		if err := json.Unmarshal(msg.Value, &record); err != nil {
			return errors.Wrap(err, "decode price sample")
		}
		if err := fn(record.Asset, record.Venue, record.Sample); err != nil {
			return err
		}
	}

	return nil
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	if s == nil || s.wal == nil {
		return errors.New("price history store is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}
