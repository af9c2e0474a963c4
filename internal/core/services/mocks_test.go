package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/custodia-labs/sercha-intel/internal/core/domain"
	"github.com/custodia-labs/sercha-intel/internal/core/ports/driven"
)

// --- Connector mocks ---

// mockAgent is a scripted agent connector. Each call pops the next result;
// the last result repeats.
type mockAgent struct {
	desc    domain.ProviderDescriptor
	mu      sync.Mutex
	results []agentResult
	calls   atomic.Int32
	creds   []domain.Credentials
	block   chan struct{}
}

type agentResult struct {
	rec domain.Record
	err error
}

func newMockAgent(name string, types ...domain.ArtifactType) *mockAgent {
	return &mockAgent{desc: domain.ProviderDescriptor{
		Name:          name,
		DisplayName:   name,
		Kind:          domain.KindAgent,
		ArtifactTypes: types,
	}}
}

func (m *mockAgent) returns(results ...agentResult) *mockAgent {
	m.results = results
	return m
}

func (m *mockAgent) Descriptor() domain.ProviderDescriptor { return m.desc }

func (m *mockAgent) Enrich(ctx context.Context, a domain.Artifact, creds domain.Credentials) (domain.Record, error) {
	m.calls.Add(1)
	if m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			return domain.Record{}, domain.NewTransient(m.desc.Name, 0, "", ctx.Err())
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds = append(m.creds, creds)
	if len(m.results) == 0 {
		rec := domain.NewRecord(m.desc.Name, a.Value, a.Type)
		rec.SetRiskScore(10)
		return rec, nil
	}
	r := m.results[0]
	if len(m.results) > 1 {
		m.results = m.results[1:]
	}
	return r.rec, r.err
}

// mockFeed is a scripted data connector.
type mockFeed struct {
	desc    domain.ProviderDescriptor
	mu      sync.Mutex
	results []feedResult
	seen    []domain.Watermark
	block   chan struct{}
	started chan struct{}
}

type feedResult struct {
	batch domain.FeedBatch
	err   error
}

func newMockFeed(name string) *mockFeed {
	return &mockFeed{desc: domain.ProviderDescriptor{
		Name:        name,
		DisplayName: name,
		Kind:        domain.KindData,
	}}
}

func (m *mockFeed) returns(results ...feedResult) *mockFeed {
	m.results = results
	return m
}

func (m *mockFeed) Descriptor() domain.ProviderDescriptor { return m.desc }

func (m *mockFeed) Pull(ctx context.Context, last domain.Watermark, _ domain.Credentials) (domain.FeedBatch, error) {
	m.mu.Lock()
	m.seen = append(m.seen, last)
	started, block := m.started, m.block
	m.mu.Unlock()

	if started != nil {
		close(started)
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return domain.FeedBatch{}, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.results) == 0 {
		return domain.FeedBatch{Records: []domain.Record{}, Watermark: "wm"}, nil
	}
	r := m.results[0]
	if len(m.results) > 1 {
		m.results = m.results[1:]
	}
	return r.batch, r.err
}

func (m *mockFeed) watermarksSeen() []domain.Watermark {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Watermark(nil), m.seen...)
}

func feedRecord(provider, key string) domain.Record {
	rec := domain.NewRecord(provider, key, domain.ArtifactIP)
	rec.SetRiskScore(40)
	return rec
}

// --- Driven port mocks ---

type mockCredentials struct {
	creds map[string]domain.Credentials
	err   error
}

func (m *mockCredentials) Credentials(_ context.Context, provider string) (domain.Credentials, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.creds[provider], nil
}

type mockWatermarkStore struct {
	mu      sync.Mutex
	states  map[string]domain.SyncState
	saveErr error
	getErr  error
	saves   int
}

func newMockWatermarkStore() *mockWatermarkStore {
	return &mockWatermarkStore{states: make(map[string]domain.SyncState)}
}

func (m *mockWatermarkStore) Save(_ context.Context, state domain.SyncState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.states[state.Provider] = state
	return nil
}

func (m *mockWatermarkStore) Get(_ context.Context, provider string) (*domain.SyncState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	s, ok := m.states[provider]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &s, nil
}

func (m *mockWatermarkStore) Delete(_ context.Context, provider string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, provider)
	return nil
}

func (m *mockWatermarkStore) watermark(provider string) domain.Watermark {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[provider].Watermark
}

type mockSink struct {
	mu      sync.Mutex
	batches [][]domain.Record
	err     error
}

func (m *mockSink) Put(_ context.Context, records []domain.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.batches = append(m.batches, append([]domain.Record(nil), records...))
	return nil
}

func (m *mockSink) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for _, b := range m.batches {
		for _, r := range b {
			keys = append(keys, r.Key)
		}
	}
	return keys
}

// mockSchedulerStore implements driven.SchedulerStore for testing.
type mockSchedulerStore struct {
	mu       sync.RWMutex
	tasks    map[string]*domain.ScheduledTask
	results  map[string][]domain.TaskResult
	saveErr  error
	listErr  error
	pruneErr error
}

func newMockSchedulerStore() *mockSchedulerStore {
	return &mockSchedulerStore{
		tasks:   make(map[string]*domain.ScheduledTask),
		results: make(map[string][]domain.TaskResult),
	}
}

func (m *mockSchedulerStore) GetTask(_ context.Context, taskID string) (*domain.ScheduledTask, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	task, exists := m.tasks[taskID]
	if !exists {
		return nil, domain.ErrNotFound
	}
	taskCopy := *task
	return &taskCopy, nil
}

func (m *mockSchedulerStore) ListTasks(_ context.Context) ([]domain.ScheduledTask, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	tasks := make([]domain.ScheduledTask, 0, len(m.tasks))
	for _, t := range m.tasks {
		tasks = append(tasks, *t)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks, nil
}

func (m *mockSchedulerStore) SaveTask(_ context.Context, task *domain.ScheduledTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	if task == nil {
		return domain.ErrInvalidInput
	}
	taskCopy := *task
	m.tasks[task.ID] = &taskCopy
	return nil
}

func (m *mockSchedulerStore) DeleteTask(_ context.Context, taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tasks, taskID)
	return nil
}

func (m *mockSchedulerStore) RecordResult(_ context.Context, result *domain.TaskResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if result == nil {
		return domain.ErrInvalidInput
	}
	m.results[result.TaskID] = append(m.results[result.TaskID], *result)
	return nil
}

func (m *mockSchedulerStore) GetTaskHistory(_ context.Context, taskID string, limit int) ([]domain.TaskResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	results := m.results[taskID]
	if len(results) > limit {
		results = results[len(results)-limit:]
	}
	return append([]domain.TaskResult(nil), results...), nil
}

func (m *mockSchedulerStore) PruneHistory(_ context.Context, _ int) error {
	return m.pruneErr
}

var errBoom = errors.New("boom")

// Ensure mocks implement interfaces
var (
	_ driven.AgentConnector  = (*mockAgent)(nil)
	_ driven.DataConnector   = (*mockFeed)(nil)
	_ driven.CredentialStore = (*mockCredentials)(nil)
	_ driven.WatermarkStore  = (*mockWatermarkStore)(nil)
	_ driven.RecordSink      = (*mockSink)(nil)
	_ driven.SchedulerStore  = (*mockSchedulerStore)(nil)
)
