package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/sercha-intel/internal/core/domain"
)

// FeedSyncOrchestrator drives data connectors and persists their watermarks.
type FeedSyncOrchestrator interface {
	// Sync pulls one provider's feed. The watermark is persisted only after
	// the pull and delivery both succeed.
	Sync(ctx context.Context, provider string) (*SyncReport, error)

	// SyncAll pulls every registered data connector.
	// Failures are joined; successful reports are still returned.
	SyncAll(ctx context.Context) ([]SyncReport, error)

	// Status returns the live status for a provider.
	Status(ctx context.Context, provider string) (*SyncStatus, error)

	// Reset deletes the persisted watermark so the next sync bootstraps.
	// Returns domain.ErrSyncInProgress while a sync for provider is running.
	Reset(ctx context.Context, provider string) error
}

// SyncReport summarises a completed feed pull.
type SyncReport struct {
	// RunID uniquely identifies the pull.
	RunID string
	// Provider is the data connector.
	Provider string
	// Bootstrap is true when no prior watermark existed.
	Bootstrap bool
	// Previous is the watermark the pull started from.
	Previous domain.Watermark
	// Watermark is the watermark persisted after the pull.
	Watermark domain.Watermark
	// Records is the number of records the connector returned.
	Records int
	// Delivered is the number of records handed to the sink after dedup.
	Delivered int
	// StartedAt and EndedAt bound the pull.
	StartedAt time.Time
	EndedAt   time.Time
}

// SyncStatus represents the current state of a feed pull.
type SyncStatus struct {
	// Provider identifies the data connector.
	Provider string

	// Running indicates if a pull is currently in progress.
	Running bool

	// LastSync is when the last successful pull finished.
	LastSync time.Time

	// Watermark is the persisted watermark.
	Watermark domain.Watermark
}
