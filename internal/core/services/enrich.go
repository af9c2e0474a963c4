package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sercha-intel/internal/core/domain"
	"github.com/custodia-labs/sercha-intel/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-intel/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-intel/internal/logger"
	"github.com/custodia-labs/sercha-intel/internal/metrics"
)

// Ensure EnrichmentService implements the interface.
var _ driving.EnrichmentService = (*EnrichmentService)(nil)

// EnrichmentService fans an artifact out to agent connectors.
type EnrichmentService struct {
	registry    driving.ConnectorRegistry
	credentials driven.CredentialStore
	retry       RetryPolicy
	timeout     time.Duration
	concurrency int
}

// EnrichmentOption customises an EnrichmentService.
type EnrichmentOption func(*EnrichmentService)

// WithRetryPolicy sets the transient-failure retry policy.
func WithRetryPolicy(p RetryPolicy) EnrichmentOption {
	return func(s *EnrichmentService) { s.retry = p }
}

// WithCallTimeout bounds each connector call. Zero disables the bound.
func WithCallTimeout(d time.Duration) EnrichmentOption {
	return func(s *EnrichmentService) { s.timeout = d }
}

// WithConcurrency bounds parallel provider calls per lookup.
func WithConcurrency(n int) EnrichmentOption {
	return func(s *EnrichmentService) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// NewEnrichmentService creates an enrichment service.
func NewEnrichmentService(
	registry driving.ConnectorRegistry,
	credentials driven.CredentialStore,
	opts ...EnrichmentOption,
) *EnrichmentService {
	s := &EnrichmentService{
		registry:    registry,
		credentials: credentials,
		retry:       NoRetry,
		concurrency: 4,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enrich queries providers for artifact. Provider failures are reported on
// each Outcome; the returned error covers invalid requests only.
func (s *EnrichmentService) Enrich(
	ctx context.Context,
	artifact domain.Artifact,
	providers ...string,
) ([]driving.Outcome, error) {
	if _, err := domain.NewArtifact(artifact.Value, artifact.Type); err != nil {
		return nil, err
	}

	connectors, err := s.resolve(artifact.Type, providers)
	if err != nil {
		return nil, err
	}

	outcomes := make([]driving.Outcome, len(connectors))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, c := range connectors {
		g.Go(func() error {
			outcomes[i] = s.enrichOne(gctx, c, artifact)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes, nil
}

// resolve maps requested names to connectors, or selects every agent that
// supports t when no names are given.
func (s *EnrichmentService) resolve(t domain.ArtifactType, providers []string) ([]driven.AgentConnector, error) {
	if len(providers) == 0 {
		agents := s.registry.AgentsFor(t)
		if len(agents) == 0 {
			return nil, fmt.Errorf("%w: no provider supports %s", domain.ErrUnsupportedType, t)
		}
		return agents, nil
	}

	out := make([]driven.AgentConnector, 0, len(providers))
	for _, name := range providers {
		c, err := s.registry.Agent(name)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *EnrichmentService) enrichOne(ctx context.Context, c driven.AgentConnector, artifact domain.Artifact) driving.Outcome {
	desc := c.Descriptor()
	start := time.Now()
	out := driving.Outcome{Provider: desc.Name}
	log := logger.With("provider", desc.Name, "type", artifact.Type)

	defer func() {
		out.Duration = time.Since(start)
		metrics.ObserveLookup(desc.Name, lookupOutcome(out), out.Duration)
	}()

	if !desc.Supports(artifact.Type) {
		out.Err = domain.NewPermanent(desc.Name, 0, "",
			fmt.Errorf("%w: %s does not accept %s", domain.ErrUnsupportedType, desc.Name, artifact.Type))
		return out
	}

	creds, err := s.credentials.Credentials(ctx, desc.Name)
	if err != nil {
		out.Err = domain.NewPermanent(desc.Name, 0, "", fmt.Errorf("load credentials: %w", err))
		return out
	}

	var rec domain.Record
	out.Attempts, out.Err = s.retry.Do(ctx, desc.Name, func(ctx context.Context) error {
		callCtx, cancel := s.callContext(ctx)
		defer cancel()
		var callErr error
		rec, callErr = c.Enrich(callCtx, artifact, creds)
		return callErr
	})
	if out.Err != nil {
		log.Debugw("enrichment unavailable", "attempts", out.Attempts, "error", out.Err)
		return out
	}

	out.Record = &rec
	log.Debugw("enriched", "found", rec.Found(), "attempts", out.Attempts)
	return out
}

func (s *EnrichmentService) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func lookupOutcome(o driving.Outcome) string {
	switch {
	case o.Err == nil && o.Record != nil && !o.Record.Found():
		return metrics.OutcomeNotFound
	case o.Err == nil:
		return metrics.OutcomeFound
	case errors.Is(o.Err, domain.ErrTransient):
		return metrics.OutcomeTransient
	default:
		return metrics.OutcomePermanent
	}
}
