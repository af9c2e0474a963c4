package driving

import (
	"context"

	"github.com/custodia-labs/sercha-intel/internal/core/domain"
)

// RecordService reads records delivered by feed syncs.
type RecordService interface {
	// List returns up to limit records for provider, newest first, and the
	// total number stored. A non-positive limit returns all records.
	List(ctx context.Context, provider string, limit int) ([]domain.Record, int, error)

	// Get returns the stored record for provider and key.
	// Returns domain.ErrNotFound if absent.
	Get(ctx context.Context, provider, key string) (*domain.Record, error)
}
