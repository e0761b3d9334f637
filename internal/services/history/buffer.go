// Package history keeps the in-memory rolling price history per (asset, venue).
package history

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/hedger/internal/domain"
)

// DefaultCapacity bounds each (asset, venue) sequence. It comfortably exceeds
// any supported volatility period+1 so eviction never changes estimator results.
const DefaultCapacity = 1024

type key struct {
	asset string
	venue domain.Venue
}

// Buffer is an append-only sequence of price samples per (asset, venue) key.
// Samples arrive with non-decreasing timestamps because callers append them
// at observation time. A capacity of 0 disables eviction.
type Buffer struct {
	mu       sync.RWMutex
	capacity int
	samples  map[key][]domain.PriceSample
}

// NewBuffer creates a buffer with the given per-key capacity.
func NewBuffer(capacity int) *Buffer {
	if capacity < 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{
		capacity: capacity,
		samples:  make(map[key][]domain.PriceSample),
	}
}

// Append adds a sample for the (asset, venue) key. Non-positive prices are
// rejected with domain.ErrInvalidPrice.
func (b *Buffer) Append(asset string, venue domain.Venue, sample domain.PriceSample) error {
	if !sample.Price.IsPositive() {
		return errors.Wrapf(domain.ErrInvalidPrice, "price %s for %s on %s", sample.Price.String(), asset, venue)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	k := key{asset: asset, venue: venue}
	seq := append(b.samples[k], sample)
	if b.capacity > 0 && len(seq) > b.capacity {
		seq = seq[len(seq)-b.capacity:]
	}
	b.samples[k] = seq

	return nil
}

// Recent returns up to count most recent samples in chronological order.
// The returned slice is a copy and safe to retain.
func (b *Buffer) Recent(asset string, venue domain.Venue, count int) []domain.PriceSample {
	if count <= 0 {
		return nil
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	seq := b.samples[key{asset: asset, venue: venue}]
	if len(seq) > count {
		seq = seq[len(seq)-count:]
	}

	out := make([]domain.PriceSample, len(seq))
	copy(out, seq)
	return out
}

// Len returns the number of samples stored for the key.
func (b *Buffer) Len(asset string, venue domain.Venue) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.samples[key{asset: asset, venue: venue}])
}
