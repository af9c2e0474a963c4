package driven

import (
	"context"

	"github.com/custodia-labs/sercha-intel/internal/core/domain"
)

// WatermarkStore persists feed progress per provider.
// Save must be atomic per provider.
type WatermarkStore interface {
	// Save stores or replaces the sync state for state.Provider.
	Save(ctx context.Context, state domain.SyncState) error

	// Get retrieves sync state for a provider.
	// Returns domain.ErrNotFound if the provider has never synced.
	Get(ctx context.Context, provider string) (*domain.SyncState, error)

	// Delete removes sync state, forcing the next pull to bootstrap.
	Delete(ctx context.Context, provider string) error
}
