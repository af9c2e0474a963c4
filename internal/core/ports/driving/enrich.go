package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/sercha-intel/internal/core/domain"
)

// EnrichmentService runs agent lookups for an artifact.
type EnrichmentService interface {
	// Enrich queries the named providers, or every provider supporting the
	// artifact type when none are named. Exactly one Outcome is returned per
	// provider, in request order; provider failures are reported on the
	// Outcome rather than as the returned error.
	Enrich(ctx context.Context, artifact domain.Artifact, providers ...string) ([]Outcome, error)
}

// Outcome is the result of one provider lookup.
type Outcome struct {
	// Provider is the connector that was asked.
	Provider string
	// Record is set when the lookup produced a record (found or not).
	Record *domain.Record
	// Err is set when enrichment was unavailable for this provider.
	Err error
	// Attempts is how many calls were made, including retries.
	Attempts int
	// Duration is the wall time spent on this provider.
	Duration time.Duration
}

// Unavailable reports whether the provider could not be asked.
func (o Outcome) Unavailable() bool {
	return o.Err != nil
}
