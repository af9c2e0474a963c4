package services

import (
	"context"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/custodia-labs/sercha-intel/internal/core/domain"
	"github.com/custodia-labs/sercha-intel/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-intel/internal/metrics"
)

// Ensure Deduplicator implements the interface.
var _ driven.RecordSink = (*Deduplicator)(nil)

// Deduplicator is a RecordSink that drops records whose provider/key
// identity was already delivered, then forwards the rest to next.
//
// Feeds re-pull overlapping windows, so the same IOC arrives repeatedly.
// Memory is bounded by an LRU of identities; an evicted identity is
// delivered again, which downstream sinks must tolerate anyway. Dropped
// repeats never reach next, so per-record delivery counters kept by a
// store only see repeats from outside the window.
type Deduplicator struct {
	next driven.RecordSink

	mu   sync.Mutex
	seen *lru.Cache[string, struct{}]
}

// NewDeduplicator wraps next with an LRU window of size identities.
func NewDeduplicator(next driven.RecordSink, size int) (*Deduplicator, error) {
	if next == nil {
		return nil, fmt.Errorf("%w: nil record sink", domain.ErrInvalidInput)
	}
	cache, err := lru.New[string, struct{}](size)
	if err != nil {
		return nil, fmt.Errorf("%w: dedup size %d: %w", domain.ErrInvalidInput, size, err)
	}
	return &Deduplicator{next: next, seen: cache}, nil
}

// Put forwards unseen records.
func (d *Deduplicator) Put(ctx context.Context, records []domain.Record) error {
	_, err := d.Deliver(ctx, records)
	return err
}

// Deliver forwards unseen records and returns how many were forwarded.
// Identities are remembered only once next accepts them, so a failed
// delivery is retried in full next time.
func (d *Deduplicator) Deliver(ctx context.Context, records []domain.Record) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	fresh := make([]domain.Record, 0, len(records))
	batch := make(map[string]struct{}, len(records))
	for _, r := range records {
		id := r.Identity()
		if _, dup := batch[id]; dup || d.seen.Contains(id) {
			metrics.DedupDropped.WithLabelValues(r.Provider).Inc()
			continue
		}
		batch[id] = struct{}{}
		fresh = append(fresh, r)
	}

	if len(fresh) == 0 {
		return 0, nil
	}
	if err := d.next.Put(ctx, fresh); err != nil {
		return 0, err
	}
	for id := range batch {
		d.seen.Add(id, struct{}{})
	}
	return len(fresh), nil
}

// Len returns the number of remembered identities.
func (d *Deduplicator) Len() int {
	return d.seen.Len()
}
