package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/custodia-labs/sercha-intel/internal/core/domain"
	"github.com/custodia-labs/sercha-intel/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-intel/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
const (
	keyHTTPTimeout     = "http.timeout"
	keyHTTPRate        = "http.rate_per_second"
	keyHTTPBurst       = "http.burst"
	keyHTTPUserAgent   = "http.user_agent"
	keyHTTPConcurrency = "http.concurrency"
	keyRetryAttempts   = "retry.max_attempts"
	keyRetryInitial    = "retry.initial_interval"
	keyRetryMax        = "retry.max_interval"
	keyStorageBackend  = "storage.backend"
	keyStorageDataDir  = "storage.data_dir"
	keyStorageRedis    = "storage.redis_addr"
	keyStorageRedisDB  = "storage.redis_db"
	keySchedEnabled    = "scheduler.enabled"
	keySchedInterval   = "scheduler.interval"
	keyDedupEnabled    = "dedup.enabled"
	keyDedupSize       = "dedup.size"
	keyProviders       = "providers.enabled"

	// Per-provider tables: http.provider_rates.<name>, scheduler.intervals.<name>.
	prefixProviderRates = "http.provider_rates."
	prefixFeedIntervals = "scheduler.intervals."
)

// setting is one key/value written by Save.
type setting struct {
	key   string
	value any
}

// SettingsService loads application settings from the config store,
// filling defaults and validating the result.
type SettingsService struct {
	configStore driven.ConfigStore
	validate    *validator.Validate
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	d := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		HTTP: domain.HTTPSettings{
			Timeout:       s.getDuration(keyHTTPTimeout, d.HTTP.Timeout),
			RatePerSecond: s.getFloat(keyHTTPRate, d.HTTP.RatePerSecond),
			Burst:         s.getInt(keyHTTPBurst, d.HTTP.Burst),
			UserAgent:     s.getString(keyHTTPUserAgent, d.HTTP.UserAgent),
			Concurrency:   s.getInt(keyHTTPConcurrency, d.HTTP.Concurrency),
			ProviderRates: s.floatTable(prefixProviderRates),
		},
		Retry: domain.RetrySettings{
			MaxAttempts:     s.getInt(keyRetryAttempts, d.Retry.MaxAttempts),
			InitialInterval: s.getDuration(keyRetryInitial, d.Retry.InitialInterval),
			MaxInterval:     s.getDuration(keyRetryMax, d.Retry.MaxInterval),
		},
		Storage: domain.StorageSettings{
			Backend:   domain.StorageBackend(s.getString(keyStorageBackend, string(d.Storage.Backend))),
			DataDir:   s.configStore.GetString(keyStorageDataDir),
			RedisAddr: s.configStore.GetString(keyStorageRedis),
			RedisDB:   s.getInt(keyStorageRedisDB, d.Storage.RedisDB),
		},
		Scheduler: domain.SchedulerSettings{
			Enabled:       s.getBool(keySchedEnabled, d.Scheduler.Enabled),
			Interval:      s.getDuration(keySchedInterval, d.Scheduler.Interval),
			FeedIntervals: s.durationTable(prefixFeedIntervals),
		},
		Dedup: domain.DedupSettings{
			Enabled: s.getBool(keyDedupEnabled, d.Dedup.Enabled),
			Size:    s.getInt(keyDedupSize, d.Dedup.Size),
		},
		Providers: s.configStore.GetStringSlice(keyProviders),
	}

	if err := s.Validate(settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// Save validates and persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	if err := s.Validate(settings); err != nil {
		return err
	}

	values := []setting{
		{keyHTTPTimeout, settings.HTTP.Timeout.String()},
		{keyHTTPRate, settings.HTTP.RatePerSecond},
		{keyHTTPBurst, settings.HTTP.Burst},
		{keyHTTPUserAgent, settings.HTTP.UserAgent},
		{keyHTTPConcurrency, settings.HTTP.Concurrency},
		{keyRetryAttempts, settings.Retry.MaxAttempts},
		{keyRetryInitial, settings.Retry.InitialInterval.String()},
		{keyRetryMax, settings.Retry.MaxInterval.String()},
		{keyStorageBackend, string(settings.Storage.Backend)},
		{keyStorageDataDir, settings.Storage.DataDir},
		{keyStorageRedis, settings.Storage.RedisAddr},
		{keyStorageRedisDB, settings.Storage.RedisDB},
		{keySchedEnabled, settings.Scheduler.Enabled},
		{keySchedInterval, settings.Scheduler.Interval.String()},
		{keyDedupEnabled, settings.Dedup.Enabled},
		{keyDedupSize, settings.Dedup.Size},
		{keyProviders, settings.Providers},
	}
	for name, rate := range settings.HTTP.ProviderRates {
		values = append(values, setting{prefixProviderRates + name, rate})
	}
	for name, interval := range settings.Scheduler.FeedIntervals {
		values = append(values, setting{prefixFeedIntervals + name, interval.String()})
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}
	return nil
}

// Validate checks settings against their struct constraints.
func (s *SettingsService) Validate(settings *domain.AppSettings) error {
	if settings == nil {
		return fmt.Errorf("%w: nil settings", domain.ErrInvalidInput)
	}
	err := s.validate.Struct(settings)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", domain.ErrInvalidInput, strings.Join(msgs, "; "))
}

func (s *SettingsService) getString(key, def string) string {
	if v := s.configStore.GetString(key); v != "" {
		return v
	}
	return def
}

func (s *SettingsService) getInt(key string, def int) int {
	if _, ok := s.configStore.Get(key); !ok {
		return def
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getBool(key string, def bool) bool {
	if _, ok := s.configStore.Get(key); !ok {
		return def
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getFloat(key string, def float64) float64 {
	v, ok := s.configStore.Get(key)
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	default:
		return def
	}
}

// getDuration accepts Go duration strings ("30s") or integer seconds.
func (s *SettingsService) getDuration(key string, def time.Duration) time.Duration {
	v, ok := s.configStore.Get(key)
	if !ok {
		return def
	}
	switch d := v.(type) {
	case string:
		parsed, err := time.ParseDuration(d)
		if err != nil {
			return def
		}
		return parsed
	case int64:
		return time.Duration(d) * time.Second
	case int:
		return time.Duration(d) * time.Second
	default:
		return def
	}
}

// tableKeys returns the suffixes of every key under prefix.
func (s *SettingsService) tableKeys(prefix string) []string {
	var names []string
	for _, key := range s.configStore.Keys() {
		if name, ok := strings.CutPrefix(key, prefix); ok && name != "" {
			names = append(names, name)
		}
	}
	return names
}

// floatTable reads a per-provider number table. Entries of the wrong type are
// kept as 0 so validation reports them.
func (s *SettingsService) floatTable(prefix string) map[string]float64 {
	names := s.tableKeys(prefix)
	if len(names) == 0 {
		return nil
	}
	table := make(map[string]float64, len(names))
	for _, name := range names {
		table[name] = s.getFloat(prefix+name, 0)
	}
	return table
}

// durationTable reads a per-provider duration table. Unparseable entries are
// kept as 0 so validation reports them.
func (s *SettingsService) durationTable(prefix string) map[string]time.Duration {
	names := s.tableKeys(prefix)
	if len(names) == 0 {
		return nil
	}
	table := make(map[string]time.Duration, len(names))
	for _, name := range names {
		table[name] = s.getDuration(prefix+name, 0)
	}
	return table
}
