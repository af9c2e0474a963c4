package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-intel/internal/core/domain"
	"github.com/custodia-labs/sercha-intel/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-intel/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-intel/internal/logger"
	"github.com/custodia-labs/sercha-intel/internal/metrics"
)

// Ensure FeedSyncOrchestrator implements the interface.
var _ driving.FeedSyncOrchestrator = (*FeedSyncOrchestrator)(nil)

// deliverer is a sink that reports how many records it forwarded.
type deliverer interface {
	Deliver(ctx context.Context, records []domain.Record) (int, error)
}

// FeedSyncOrchestrator runs the watermark protocol for data connectors.
//
// For each provider: read the persisted watermark (absent means bootstrap),
// pull, hand the batch to the sink, and only then persist the new
// watermark. Any failure leaves the old watermark in place so the next
// run re-pulls the same window. Delivery is at-least-once.
type FeedSyncOrchestrator struct {
	registry    driving.ConnectorRegistry
	watermarks  driven.WatermarkStore
	sink        driven.RecordSink
	credentials driven.CredentialStore
	retry       RetryPolicy
	timeout     time.Duration
	now         func() time.Time

	mu      sync.Mutex
	running map[string]bool
}

// FeedSyncOption customises a FeedSyncOrchestrator.
type FeedSyncOption func(*FeedSyncOrchestrator)

// WithFeedRetryPolicy sets the transient-failure retry policy for pulls.
func WithFeedRetryPolicy(p RetryPolicy) FeedSyncOption {
	return func(o *FeedSyncOrchestrator) { o.retry = p }
}

// WithFeedTimeout bounds each pull attempt. Zero disables the bound.
func WithFeedTimeout(d time.Duration) FeedSyncOption {
	return func(o *FeedSyncOrchestrator) { o.timeout = d }
}

// WithFeedClock overrides the clock used for sync timestamps.
func WithFeedClock(now func() time.Time) FeedSyncOption {
	return func(o *FeedSyncOrchestrator) { o.now = now }
}

// NewFeedSyncOrchestrator creates a feed sync orchestrator.
func NewFeedSyncOrchestrator(
	registry driving.ConnectorRegistry,
	watermarks driven.WatermarkStore,
	sink driven.RecordSink,
	credentials driven.CredentialStore,
	opts ...FeedSyncOption,
) *FeedSyncOrchestrator {
	o := &FeedSyncOrchestrator{
		registry:    registry,
		watermarks:  watermarks,
		sink:        sink,
		credentials: credentials,
		retry:       NoRetry,
		now:         time.Now,
		running:     make(map[string]bool),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Sync pulls one provider's feed.
//
//nolint:gocyclo // Orchestration function with necessary sequential steps
func (o *FeedSyncOrchestrator) Sync(ctx context.Context, provider string) (*driving.SyncReport, error) {
	// 1. Resolve connector
	connector, err := o.registry.Data(provider)
	if err != nil {
		return nil, err
	}

	// 2. One pull per provider at a time
	if !o.begin(provider) {
		return nil, fmt.Errorf("%w: %s", domain.ErrSyncInProgress, provider)
	}
	defer o.end(provider)

	report := &driving.SyncReport{
		RunID:     uuid.NewString(),
		Provider:  provider,
		StartedAt: o.now(),
	}
	log := logger.With("provider", provider, "run_id", report.RunID)

	// 3. Read watermark; absent means bootstrap
	state, err := o.watermarks.Get(ctx, provider)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		report.Bootstrap = true
	case err != nil:
		return nil, fmt.Errorf("get watermark: %w", err)
	default:
		report.Previous = state.Watermark
		report.Bootstrap = state.Watermark.IsZero()
	}

	creds, err := o.credentials.Credentials(ctx, provider)
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}

	// 4. Pull, retrying transient failures
	var batch domain.FeedBatch
	_, err = o.retry.Do(ctx, provider, func(ctx context.Context) error {
		callCtx, cancel := o.callContext(ctx)
		defer cancel()
		var pullErr error
		batch, pullErr = connector.Pull(callCtx, report.Previous, creds)
		return pullErr
	})
	if err != nil {
		metrics.ObserveFeedSync(provider, metrics.OutcomeError, 0, o.now().Sub(report.StartedAt))
		log.Warnw("feed pull failed, watermark unchanged", "error", err)
		return nil, fmt.Errorf("pull %s: %w", provider, err)
	}
	report.Records = len(batch.Records)

	// 5. Deliver before advancing the watermark
	report.Delivered, err = o.deliver(ctx, batch.Records)
	if err != nil {
		metrics.ObserveFeedSync(provider, metrics.OutcomeError, report.Records, o.now().Sub(report.StartedAt))
		log.Warnw("record delivery failed, watermark unchanged", "error", err)
		return nil, fmt.Errorf("deliver %s: %w", provider, err)
	}

	// 6. Persist watermark
	report.Watermark = batch.Watermark
	if report.Watermark.IsZero() {
		log.Warnw("connector returned no watermark, keeping previous")
		report.Watermark = report.Previous
	}
	report.EndedAt = o.now()
	newState := domain.SyncState{
		Provider:    provider,
		Watermark:   report.Watermark,
		LastSync:    report.EndedAt,
		RecordCount: report.Delivered,
	}
	if err := o.watermarks.Save(ctx, newState); err != nil {
		return nil, fmt.Errorf("save watermark: %w", err)
	}

	metrics.ObserveFeedSync(provider, metrics.OutcomeSuccess, report.Records, report.EndedAt.Sub(report.StartedAt))
	log.Infow("feed synced",
		"bootstrap", report.Bootstrap,
		"records", report.Records,
		"delivered", report.Delivered,
		"watermark", report.Watermark.String())
	return report, nil
}

// SyncAll pulls every registered data connector in name order.
func (o *FeedSyncOrchestrator) SyncAll(ctx context.Context) ([]driving.SyncReport, error) {
	var (
		reports []driving.SyncReport
		errs    []error
	)
	for _, c := range o.registry.DataConnectors() {
		name := c.Descriptor().Name
		report, err := o.Sync(ctx, name)
		if err != nil {
			errs = append(errs, fmt.Errorf("sync %s: %w", name, err))
			continue
		}
		reports = append(reports, *report)
	}

	if len(errs) > 0 {
		return reports, errors.Join(errs...)
	}
	return reports, nil
}

// Status returns the live status for a provider.
func (o *FeedSyncOrchestrator) Status(ctx context.Context, provider string) (*driving.SyncStatus, error) {
	if _, err := o.registry.Data(provider); err != nil {
		return nil, err
	}

	o.mu.Lock()
	status := &driving.SyncStatus{Provider: provider, Running: o.running[provider]}
	o.mu.Unlock()

	state, err := o.watermarks.Get(ctx, provider)
	switch {
	case errors.Is(err, domain.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("get watermark: %w", err)
	default:
		status.LastSync = state.LastSync
		status.Watermark = state.Watermark
	}
	return status, nil
}

// Reset deletes the watermark for provider. A missing watermark is not an error.
func (o *FeedSyncOrchestrator) Reset(ctx context.Context, provider string) error {
	if _, err := o.registry.Data(provider); err != nil {
		return err
	}
	if !o.begin(provider) {
		return fmt.Errorf("%w: %s", domain.ErrSyncInProgress, provider)
	}
	defer o.end(provider)

	if err := o.watermarks.Delete(ctx, provider); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("delete watermark: %w", err)
	}
	logger.With("provider", provider).Infow("watermark reset, next sync bootstraps")
	return nil
}

func (o *FeedSyncOrchestrator) deliver(ctx context.Context, records []domain.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	if d, ok := o.sink.(deliverer); ok {
		return d.Deliver(ctx, records)
	}
	if err := o.sink.Put(ctx, records); err != nil {
		return 0, err
	}
	return len(records), nil
}

func (o *FeedSyncOrchestrator) begin(provider string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running[provider] {
		return false
	}
	o.running[provider] = true
	return true
}

func (o *FeedSyncOrchestrator) end(provider string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.running, provider)
}

func (o *FeedSyncOrchestrator) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, o.timeout)
}
