package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-intel/internal/core/domain"
	"github.com/custodia-labs/sercha-intel/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-intel/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-intel/internal/logger"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

// historyKeep is how many results are retained per task.
const historyKeep = 100

// defaultTick is how often the scheduler checks for due tasks.
const defaultTick = 1 * time.Minute

// Scheduler runs one periodic pull task per registered data connector.
// It is a pure core service with no external control API.
type Scheduler struct {
	config   domain.SchedulerConfig
	store    driven.SchedulerStore
	registry driving.ConnectorRegistry
	feedSync driving.FeedSyncOrchestrator
	tick     time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler with configuration.
func NewScheduler(
	config domain.SchedulerConfig,
	store driven.SchedulerStore,
	registry driving.ConnectorRegistry,
	feedSync driving.FeedSyncOrchestrator,
) *Scheduler {
	return &Scheduler{
		config:   config,
		store:    store,
		registry: registry,
		feedSync: feedSync,
		tick:     defaultTick,
	}
}

// SetTick overrides how often due tasks are checked. Must be called before Start.
func (s *Scheduler) SetTick(d time.Duration) {
	if d > 0 {
		s.tick = d
	}
}

// Start begins the scheduler loop. This method blocks until Stop is called
// or ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil // Already running
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	if !s.config.Enabled {
		logger.Info("scheduler: disabled by configuration")
	} else if err := s.initialiseTasks(ctx); err != nil {
		logger.Warn("scheduler: failed to initialise tasks: %v", err)
	}

	return s.run(ctx)
}

// Stop gracefully shuts down the scheduler and waits for running tasks.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()

	return nil
}

// initialiseTasks ensures a task exists for every data connector and
// disables stored tasks whose provider is no longer registered.
func (s *Scheduler) initialiseTasks(ctx context.Context) error {
	var errs []error
	if err := s.disableStaleTasks(ctx); err != nil {
		errs = append(errs, err)
	}
	for _, c := range s.registry.DataConnectors() {
		d := c.Descriptor()
		id := domain.FeedTaskID(d.Name)
		if !s.configured(id) {
			continue
		}
		taskCfg := s.config.GetTaskConfig(id)
		if err := s.ensureTask(ctx, id, d.DisplayName+" feed pull", taskCfg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// disableStaleTasks turns off enabled tasks that no registered data
// connector backs, e.g. after a provider left providers.enabled, and
// tasks whose interval configuration now disables them.
func (s *Scheduler) disableStaleTasks(ctx context.Context) error {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		return err
	}
	var errs []error
	for i := range tasks {
		task := tasks[i]
		if !task.Enabled || s.backed(task.ID) && s.configured(task.ID) {
			continue
		}
		task.Enabled = false
		logger.Info("scheduler: disabling %s, provider not registered or not configured", task.ID)
		if err := s.store.SaveTask(ctx, &task); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// backed reports whether taskID names a feed task of a registered data connector.
func (s *Scheduler) backed(taskID string) bool {
	provider, ok := domain.FeedProvider(taskID)
	if !ok {
		return false
	}
	_, err := s.registry.Data(provider)
	return err == nil
}

// configured reports whether the configuration enables taskID.
func (s *Scheduler) configured(taskID string) bool {
	cfg := s.config.GetTaskConfig(taskID)
	return cfg.Enabled && cfg.Interval > 0
}

// ensureTask creates or updates a task in the store.
func (s *Scheduler) ensureTask(ctx context.Context, id, name string, cfg domain.TaskConfig) error {
	task, err := s.store.GetTask(ctx, id)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	if task == nil {
		// First run is immediate so a fresh install bootstraps at startup.
		task = &domain.ScheduledTask{
			ID:       id,
			Name:     name,
			Interval: cfg.Interval,
			Enabled:  cfg.Enabled,
		}
	} else {
		if task.Interval != cfg.Interval {
			task.Interval = cfg.Interval
			task.NextRun = time.Now().Add(cfg.Interval)
		}
		task.Enabled = cfg.Enabled
	}

	return s.store.SaveTask(ctx, task)
}

// run is the main scheduler loop.
func (s *Scheduler) run(ctx context.Context) error {
	s.checkAndRunDueTasks(ctx)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
			return ctx.Err()
		case <-s.stopCh:
			return nil
		case <-ticker.C:
			s.checkAndRunDueTasks(ctx)
		}
	}
}

// checkAndRunDueTasks finds and executes tasks that are due.
func (s *Scheduler) checkAndRunDueTasks(ctx context.Context) {
	if !s.config.Enabled {
		return
	}
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		logger.Warn("scheduler: failed to list tasks: %v", err)
		return
	}

	now := time.Now()
	for i := range tasks {
		task := tasks[i]
		if !task.Enabled {
			continue
		}
		if task.NextRun.IsZero() || !task.NextRun.After(now) {
			s.runTask(ctx, &task)
		}
	}
}

// runTask executes a single task in the background.
func (s *Scheduler) runTask(ctx context.Context, task *domain.ScheduledTask) {
	provider, ok := domain.FeedProvider(task.ID)
	if !ok {
		logger.Warn("scheduler: unknown task ID: %s", task.ID)
		return
	}
	if !s.backed(task.ID) {
		logger.Warn("scheduler: skipping %s, provider not registered", task.ID)
		return
	}

	// Claim the slot before the goroutine starts so the next tick does not
	// launch a duplicate pull.
	task.NextRun = time.Now().Add(task.Interval)
	if err := s.store.SaveTask(ctx, task); err != nil {
		logger.Warn("scheduler: failed to save task %s: %v", task.ID, err)
	}

	// Bookkeeping outlives ctx so a pull cut short by shutdown still
	// leaves its result behind.
	storeCtx := context.WithoutCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		result := &domain.TaskResult{
			RunID:     uuid.NewString(),
			TaskID:    task.ID,
			StartedAt: time.Now(),
		}

		report, err := s.feedSync.Sync(ctx, provider)
		if report != nil {
			result.RunID = report.RunID
			result.ItemsProcessed = report.Delivered
			result.Bootstrap = report.Bootstrap
			if err == nil {
				result.Watermark = report.Watermark
			}
		}

		result.EndedAt = time.Now()
		if err != nil {
			result.Success = false
			result.Error = err.Error()
			task.LastError = err.Error()
		} else {
			result.Success = true
			task.LastError = ""
			task.LastSuccess = result.EndedAt
		}

		task.LastRun = result.StartedAt
		task.NextRun = result.EndedAt.Add(task.Interval)

		if saveErr := s.store.SaveTask(storeCtx, task); saveErr != nil {
			logger.Warn("scheduler: failed to save task %s: %v", task.ID, saveErr)
		}

		if recordErr := s.store.RecordResult(storeCtx, result); recordErr != nil {
			logger.Warn("scheduler: failed to record result for %s: %v", task.ID, recordErr)
		}

		if pruneErr := s.store.PruneHistory(storeCtx, historyKeep); pruneErr != nil {
			logger.Warn("scheduler: failed to prune history: %v", pruneErr)
		}
	}()
}
