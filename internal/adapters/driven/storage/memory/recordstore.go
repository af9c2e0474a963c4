package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/sercha-intel/internal/core/domain"
	"github.com/custodia-labs/sercha-intel/internal/core/ports/driven"
)

// Ensure RecordStore implements the interface.
var _ driven.RecordStore = (*RecordStore)(nil)

type storedRecord struct {
	record domain.Record
	seq    uint64
}

// RecordStore is an in-memory implementation of driven.RecordStore.
// A repeated provider/key replaces the stored record.
type RecordStore struct {
	mu      sync.RWMutex
	records map[string]storedRecord
	seq     uint64
}

// NewRecordStore creates a new in-memory record store.
func NewRecordStore() *RecordStore {
	return &RecordStore{
		records: make(map[string]storedRecord),
	}
}

// Put stores records, replacing any with the same identity.
func (s *RecordStore) Put(_ context.Context, records []domain.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		s.seq++
		s.records[r.Identity()] = storedRecord{record: cloneRecord(r), seq: s.seq}
	}
	return nil
}

// Get returns the stored record for a provider and key.
func (s *RecordStore) Get(_ context.Context, provider, key string) (*domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	probe := domain.Record{Provider: provider, Key: key}
	stored, ok := s.records[probe.Identity()]
	if !ok {
		return nil, domain.ErrNotFound
	}
	rec := cloneRecord(stored.record)
	return &rec, nil
}

// List returns stored records for a provider, most recently stored first.
func (s *RecordStore) List(_ context.Context, provider string, limit int) ([]domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []storedRecord
	for _, stored := range s.records {
		if stored.record.Provider == provider {
			matched = append(matched, stored)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].seq > matched[j].seq })
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}

	out := make([]domain.Record, 0, len(matched))
	for _, stored := range matched {
		out = append(out, cloneRecord(stored.record))
	}
	return out, nil
}

// Count returns the number of stored records for a provider.
func (s *RecordStore) Count(_ context.Context, provider string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, stored := range s.records {
		if stored.record.Provider == provider {
			n++
		}
	}
	return n, nil
}

// cloneRecord copies the slices and map so callers cannot mutate stored state.
func cloneRecord(r domain.Record) domain.Record {
	out := r
	if r.RiskScore != nil {
		score := *r.RiskScore
		out.RiskScore = &score
	}
	if r.Tags != nil {
		out.Tags = append([]string(nil), r.Tags...)
	}
	out.Data = make(map[string]any, len(r.Data))
	for k, v := range r.Data {
		out.Data[k] = v
	}
	return out
}
