package domain

import "time"

// StorageBackend selects where watermarks and records are persisted.
type StorageBackend string

// Available storage backends.
const (
	// StorageMemory keeps state in process; watermarks are lost on exit.
	StorageMemory StorageBackend = "memory"

	// StorageSQLite persists watermarks, records and scheduler state locally.
	StorageSQLite StorageBackend = "sqlite"

	// StorageRedis persists watermarks in Redis; records stay local.
	StorageRedis StorageBackend = "redis"
)

// IsValid returns true if the backend is recognised.
func (b StorageBackend) IsValid() bool {
	switch b {
	case StorageMemory, StorageSQLite, StorageRedis:
		return true
	default:
		return false
	}
}

// AppSettings holds runtime configuration loaded from config.toml.
// Credentials are deliberately absent; they come from the credential store.
type AppSettings struct {
	HTTP      HTTPSettings
	Retry     RetrySettings
	Storage   StorageSettings
	Scheduler SchedulerSettings
	Dedup     DedupSettings

	// Providers restricts which connectors are registered. Empty means all.
	Providers []string `validate:"dive,required,lowercase"`
}

// HTTPSettings configures outbound provider calls.
type HTTPSettings struct {
	// Timeout bounds each provider call.
	Timeout time.Duration `validate:"gt=0"`
	// RatePerSecond is the default per-provider request rate.
	RatePerSecond float64 `validate:"gt=0"`
	// Burst is the token bucket size.
	Burst int `validate:"gte=1"`
	// UserAgent is sent on every request.
	UserAgent string `validate:"required"`
	// Concurrency bounds parallel provider calls per lookup.
	Concurrency int `validate:"gte=1,lte=64"`
	// ProviderRates overrides RatePerSecond for named providers.
	ProviderRates map[string]float64 `validate:"dive,keys,required,endkeys,gt=0"`
}

// RetrySettings configures the transient-failure retry policy.
type RetrySettings struct {
	MaxAttempts     int           `validate:"gte=1,lte=10"`
	InitialInterval time.Duration `validate:"gt=0"`
	MaxInterval     time.Duration `validate:"gtefield=InitialInterval"`
}

// StorageSettings configures persistence.
type StorageSettings struct {
	Backend   StorageBackend `validate:"required,oneof=memory sqlite redis"`
	DataDir   string
	RedisAddr string `validate:"required_if=Backend redis"`
	RedisDB   int    `validate:"gte=0"`
}

// SchedulerSettings configures periodic feed pulls.
type SchedulerSettings struct {
	Enabled  bool
	Interval time.Duration `validate:"gte=1m"`
	// FeedIntervals overrides Interval for named data providers.
	FeedIntervals map[string]time.Duration `validate:"dive,keys,required,endkeys,gte=1m"`
}

// SchedulerConfig builds the scheduler configuration, one feed task per
// entry in FeedIntervals and DefaultInterval for the rest.
func (s SchedulerSettings) SchedulerConfig() SchedulerConfig {
	cfg := SchedulerConfig{
		Enabled:         s.Enabled,
		DefaultInterval: s.Interval,
		TaskConfigs:     make(map[string]TaskConfig, len(s.FeedIntervals)),
	}
	for provider, interval := range s.FeedIntervals {
		cfg.TaskConfigs[FeedTaskID(provider)] = TaskConfig{Enabled: true, Interval: interval}
	}
	return cfg
}

// DedupSettings configures downstream record deduplication.
type DedupSettings struct {
	Enabled bool
	// Size bounds the number of remembered provider/key identities.
	Size int `validate:"gte=1"`
}

// DefaultAppSettings returns sensible defaults.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		HTTP: HTTPSettings{
			Timeout:       30 * time.Second,
			RatePerSecond: 1,
			Burst:         1,
			UserAgent:     "sercha-intel",
			Concurrency:   4,
		},
		Retry: RetrySettings{
			MaxAttempts:     3,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     10 * time.Second,
		},
		Storage: StorageSettings{
			Backend: StorageSQLite,
		},
		Scheduler: SchedulerSettings{
			Enabled:  true,
			Interval: DefaultFeedInterval,
		},
		Dedup: DedupSettings{
			Enabled: true,
			Size:    100_000,
		},
	}
}
