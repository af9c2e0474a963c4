package cli

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/sercha-intel/internal/core/domain"
	"github.com/custodia-labs/sercha-intel/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-intel/internal/core/ports/driving"
)

// mockRegistry implements driving.ConnectorRegistry for testing.
type mockRegistry struct {
	descriptors []domain.ProviderDescriptor
}

func (m *mockRegistry) RegisterAgent(driven.AgentConnector) error { return nil }
func (m *mockRegistry) RegisterData(driven.DataConnector) error   { return nil }

func (m *mockRegistry) Lookup(name string) (domain.ProviderDescriptor, error) {
	for _, d := range m.descriptors {
		if d.Name == name {
			return d, nil
		}
	}
	return domain.ProviderDescriptor{}, domain.ErrUnknownProvider
}

func (m *mockRegistry) Agent(string) (driven.AgentConnector, error) {
	return nil, domain.ErrUnknownProvider
}

func (m *mockRegistry) Data(string) (driven.DataConnector, error) {
	return nil, domain.ErrUnknownProvider
}

func (m *mockRegistry) AgentsFor(domain.ArtifactType) []driven.AgentConnector { return nil }
func (m *mockRegistry) DataConnectors() []driven.DataConnector                { return nil }

func (m *mockRegistry) Descriptors() []domain.ProviderDescriptor {
	return m.descriptors
}

// mockEnrichment implements driving.EnrichmentService for testing.
type mockEnrichment struct {
	outcomes  []driving.Outcome
	err       error
	artifact  domain.Artifact
	providers []string
}

func (m *mockEnrichment) Enrich(_ context.Context, a domain.Artifact, providers ...string) ([]driving.Outcome, error) {
	m.artifact = a
	m.providers = providers
	return m.outcomes, m.err
}

// mockFeedSync implements driving.FeedSyncOrchestrator for testing.
type mockFeedSync struct {
	reports  []driving.SyncReport
	syncErr  error
	status   *driving.SyncStatus
	resetErr error
	synced   []string
	reset    []string
}

func (m *mockFeedSync) Sync(_ context.Context, provider string) (*driving.SyncReport, error) {
	m.synced = append(m.synced, provider)
	if m.syncErr != nil {
		return nil, m.syncErr
	}
	return &driving.SyncReport{Provider: provider, Records: 3, Delivered: 2, Watermark: "w1", Bootstrap: true}, nil
}

func (m *mockFeedSync) SyncAll(_ context.Context) ([]driving.SyncReport, error) {
	return m.reports, m.syncErr
}

func (m *mockFeedSync) Status(_ context.Context, provider string) (*driving.SyncStatus, error) {
	if m.status == nil {
		return nil, domain.ErrUnknownProvider
	}
	s := *m.status
	s.Provider = provider
	return &s, nil
}

func (m *mockFeedSync) Reset(_ context.Context, provider string) error {
	m.reset = append(m.reset, provider)
	return m.resetErr
}

// mockScheduler implements driving.Scheduler for testing.
type mockScheduler struct {
	mu      sync.Mutex
	started bool
	stopped bool
	err     error
}

func (m *mockScheduler) Start(ctx context.Context) error {
	m.mu.Lock()
	m.started = true
	m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	<-ctx.Done()
	return ctx.Err()
}

func (m *mockScheduler) wasStarted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started
}

func (m *mockScheduler) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
	return nil
}

// mockSettings implements driving.SettingsService for testing.
type mockSettings struct {
	settings *domain.AppSettings
	err      error
}

func (m *mockSettings) Get() (*domain.AppSettings, error) {
	return m.settings, m.err
}

func (m *mockSettings) Save(*domain.AppSettings) error { return nil }

// mockRecords implements driving.RecordService for testing.
type mockRecords struct {
	records []domain.Record
	total   int
	err     error
	limit   int
}

func (m *mockRecords) List(_ context.Context, _ string, limit int) ([]domain.Record, int, error) {
	m.limit = limit
	if m.err != nil {
		return nil, 0, m.err
	}
	return m.records, m.total, nil
}

func (m *mockRecords) Get(_ context.Context, provider, key string) (*domain.Record, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.records {
		if m.records[i].Provider == provider && domain.NormalizeKey(m.records[i].Key) == domain.NormalizeKey(key) {
			return &m.records[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

// mockCredentials implements CredentialInspector for testing.
type mockCredentials struct {
	configured map[string]bool
}

func (m *mockCredentials) Configured(_ context.Context, provider string) bool {
	return m.configured[provider]
}

func (m *mockCredentials) APIKeyVar(provider string) string {
	return "SERCHA_INTEL_" + provider + "_API_KEY"
}

// setServices installs services for one test and restores the previous ones.
func setServices(t *testing.T, s *Services) {
	t.Helper()
	old := Services{
		Registry:    registry,
		Enrichment:  enrichService,
		FeedSync:    feedSync,
		Scheduler:   scheduler,
		Settings:    settingsService,
		Records:     recordService,
		Credentials: credentials,
	}
	oldBootstrap := bootstrap
	registry, enrichService, feedSync, scheduler = nil, nil, nil, nil
	settingsService, recordService, credentials = nil, nil, nil
	bootstrap = nil
	SetServices(s)
	t.Cleanup(func() {
		SetServices(&old)
		closer = nil
		bootstrap = oldBootstrap
	})
}

// execute runs rootCmd with args and returns combined output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeContext(t, context.Background(), args...)
}

func executeContext(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.ExecuteContext(ctx)
	return buf.String(), err
}

// resetFlags restores every flag to its default between executions.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}
