package driven

import (
	"context"

	"github.com/custodia-labs/sercha-intel/internal/core/domain"
)

// RecordSink is the downstream consumer of normalised records.
//
// Sinks must treat Provider+Key as the natural identity, treat a missing
// risk score or tags as "no opinion", and tolerate the same key arriving
// more than once from a data connector.
type RecordSink interface {
	Put(ctx context.Context, records []domain.Record) error
}

// RecordStore is a RecordSink that can also be queried.
type RecordStore interface {
	RecordSink

	// Get returns the stored record for a provider and key.
	// Returns domain.ErrNotFound if absent.
	Get(ctx context.Context, provider, key string) (*domain.Record, error)

	// List returns stored records for a provider, newest first.
	// A non-positive limit returns all records.
	List(ctx context.Context, provider string, limit int) ([]domain.Record, error)

	// Count returns the number of stored records for a provider.
	Count(ctx context.Context, provider string) (int, error)
}
