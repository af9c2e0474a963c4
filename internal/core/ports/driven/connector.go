package driven

import (
	"context"

	"github.com/custodia-labs/sercha-intel/internal/core/domain"
)

// Connector is the behaviour shared by every provider integration.
type Connector interface {
	// Descriptor returns the provider's registry metadata.
	Descriptor() domain.ProviderDescriptor
}

// AgentConnector maps one artifact to one normalised record.
//
// Implementations must:
//   - return exactly one record per successful call, even when the provider
//     reports the artifact as unknown (data.found = false, no score or tags)
//   - return a classified *domain.IntegrationError for any other non-success
//   - keep no state between calls and never retain credentials
type AgentConnector interface {
	Connector

	// Enrich looks up a single artifact.
	Enrich(ctx context.Context, artifact domain.Artifact, creds domain.Credentials) (domain.Record, error)
}

// DataConnector pulls a batch of IOC records from a bulk feed.
//
// Implementations must:
//   - use a wide bootstrap window when last is empty and a narrow,
//     overlapping window otherwise
//   - return a fresh watermark on every successful call, including when
//     the batch is empty
//   - return no watermark alongside an error, so the caller re-pulls the
//     same window next time
type DataConnector interface {
	Connector

	// Pull fetches the feed window implied by last.
	Pull(ctx context.Context, last domain.Watermark, creds domain.Credentials) (domain.FeedBatch, error)
}
