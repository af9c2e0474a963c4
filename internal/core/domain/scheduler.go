package domain

import (
	"strings"
	"time"
)

// ScheduledTask represents a recurring background task.
type ScheduledTask struct {
	// ID is the unique identifier for the task.
	ID string

	// Name is a human-readable name for the task.
	Name string

	// Interval defines how often the task should run.
	Interval time.Duration

	// LastRun is when the task last ran.
	LastRun time.Time

	// NextRun is when the task should run next.
	NextRun time.Time

	// LastError contains the last error message, if any.
	LastError string

	// LastSuccess is when the task last completed successfully.
	LastSuccess time.Time

	// Enabled indicates whether the task is active.
	Enabled bool
}

// TaskResult represents the outcome of a task execution.
type TaskResult struct {
	// RunID uniquely identifies this execution.
	RunID string

	// TaskID identifies which task was run.
	TaskID string

	// StartedAt is when the task started.
	StartedAt time.Time

	// EndedAt is when the task completed.
	EndedAt time.Time

	// Success indicates whether the task completed without error.
	Success bool

	// Error contains the error message if Success is false.
	Error string

	// ItemsProcessed is a count of items handled (e.g., feed records delivered).
	ItemsProcessed int

	// Watermark is the feed position persisted by the run, empty on failure.
	Watermark Watermark

	// Bootstrap is true when the run started without a prior watermark.
	Bootstrap bool
}

// SchedulerConfig holds scheduler configuration.
type SchedulerConfig struct {
	// Enabled is the master switch for the scheduler.
	Enabled bool

	// DefaultInterval applies to feed tasks without an explicit TaskConfig.
	DefaultInterval time.Duration

	// TaskConfigs holds per-task configuration.
	TaskConfigs map[string]TaskConfig
}

// TaskConfig holds configuration for a single task.
type TaskConfig struct {
	// Enabled indicates whether this task should run.
	Enabled bool

	// Interval defines how often the task should run.
	Interval time.Duration
}

// GetTaskConfig returns the configuration for a specific task.
// Feed tasks without explicit configuration inherit DefaultInterval
// and are enabled when DefaultInterval is positive.
func (c *SchedulerConfig) GetTaskConfig(taskID string) TaskConfig {
	if c.TaskConfigs != nil {
		if cfg, ok := c.TaskConfigs[taskID]; ok {
			return cfg
		}
	}
	if IsFeedTaskID(taskID) && c.DefaultInterval > 0 {
		return TaskConfig{Enabled: true, Interval: c.DefaultInterval}
	}
	return TaskConfig{}
}

// DefaultFeedInterval is how often data connectors are pulled by default.
const DefaultFeedInterval = 1 * time.Hour

// DefaultSchedulerConfig returns sensible defaults for the scheduler.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled:         true,
		DefaultInterval: DefaultFeedInterval,
		TaskConfigs:     map[string]TaskConfig{},
	}
}

// feedTaskPrefix namespaces per-provider feed pull tasks.
const feedTaskPrefix = "feed-sync:"

// FeedTaskID returns the task ID for a data connector's periodic pull.
func FeedTaskID(provider string) string {
	return feedTaskPrefix + provider
}

// IsFeedTaskID reports whether taskID names a feed pull task.
func IsFeedTaskID(taskID string) bool {
	return strings.HasPrefix(taskID, feedTaskPrefix) && len(taskID) > len(feedTaskPrefix)
}

// FeedProvider extracts the provider name from a feed task ID.
func FeedProvider(taskID string) (string, bool) {
	if !IsFeedTaskID(taskID) {
		return "", false
	}
	return strings.TrimPrefix(taskID, feedTaskPrefix), true
}
