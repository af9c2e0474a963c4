package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-intel/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-intel/internal/core/domain"
)

func TestNewSettingsService(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore())

	require.NotNil(t, service)
}

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore())

	settings, err := service.Get()

	require.NoError(t, err)
	defaults := domain.DefaultAppSettings()
	assert.Equal(t, defaults.HTTP, settings.HTTP)
	assert.Equal(t, defaults.Retry, settings.Retry)
	assert.Equal(t, defaults.Storage.Backend, settings.Storage.Backend)
	assert.Equal(t, defaults.Scheduler, settings.Scheduler)
	assert.Equal(t, defaults.Dedup, settings.Dedup)
	assert.Empty(t, settings.Providers)
}

func TestSettingsService_Get_ReturnsStoredValues(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("http.timeout", "5s")
	_ = store.Set("http.rate_per_second", 4.5)
	_ = store.Set("http.burst", int64(3))
	_ = store.Set("retry.max_attempts", int64(5))
	_ = store.Set("retry.initial_interval", int64(1))
	_ = store.Set("retry.max_interval", "30s")
	_ = store.Set("storage.backend", "redis")
	_ = store.Set("storage.redis_addr", "localhost:6379")
	_ = store.Set("scheduler.enabled", false)
	_ = store.Set("scheduler.interval", "2h")
	_ = store.Set("dedup.size", int64(10))
	_ = store.Set("providers.enabled", []any{"virustotal", "torexit"})

	settings, err := NewSettingsService(store).Get()

	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, settings.HTTP.Timeout)
	assert.InDelta(t, 4.5, settings.HTTP.RatePerSecond, 0.001)
	assert.Equal(t, 3, settings.HTTP.Burst)
	assert.Equal(t, 5, settings.Retry.MaxAttempts)
	assert.Equal(t, time.Second, settings.Retry.InitialInterval)
	assert.Equal(t, 30*time.Second, settings.Retry.MaxInterval)
	assert.Equal(t, domain.StorageRedis, settings.Storage.Backend)
	assert.Equal(t, "localhost:6379", settings.Storage.RedisAddr)
	assert.False(t, settings.Scheduler.Enabled)
	assert.Equal(t, 2*time.Hour, settings.Scheduler.Interval)
	assert.Equal(t, 10, settings.Dedup.Size)
	assert.Equal(t, []string{"virustotal", "torexit"}, settings.Providers)
}

func TestSettingsService_Get_UnparseableDurationUsesDefault(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("http.timeout", "soon")

	settings, err := NewSettingsService(store).Get()

	require.NoError(t, err)
	assert.Equal(t, domain.DefaultAppSettings().HTTP.Timeout, settings.HTTP.Timeout)
}

func TestSettingsService_Get_InvalidStoredValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value any
	}{
		{"unknown backend", "storage.backend", "postgres"},
		{"redis without address", "storage.backend", "redis"},
		{"too many attempts", "retry.max_attempts", int64(50)},
		{"scheduler too eager", "scheduler.interval", "10s"},
		{"uppercase provider", "providers.enabled", []string{"VirusTotal"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewConfigStore()
			_ = store.Set(tt.key, tt.value)

			_, err := NewSettingsService(store).Get()

			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestSettingsService_Save(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store)

	settings := domain.DefaultAppSettings()
	settings.HTTP.Timeout = 10 * time.Second
	settings.Storage.Backend = domain.StorageMemory
	settings.Providers = []string{"threatfox"}

	require.NoError(t, service.Save(&settings))

	assert.Equal(t, "10s", store.GetString("http.timeout"))
	assert.Equal(t, "memory", store.GetString("storage.backend"))
	assert.Equal(t, []string{"threatfox"}, store.GetStringSlice("providers.enabled"))

	loaded, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, settings.HTTP, loaded.HTTP)
	assert.Equal(t, settings.Retry, loaded.Retry)
	assert.Equal(t, settings.Storage.Backend, loaded.Storage.Backend)
	assert.Equal(t, settings.Providers, loaded.Providers)
}

func TestSettingsService_Save_RejectsInvalid(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store)

	settings := domain.DefaultAppSettings()
	settings.Retry.MaxInterval = time.Millisecond

	err := service.Save(&settings)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "MaxInterval")
	_, ok := store.Get("retry.max_interval")
	assert.False(t, ok)
}

func TestSettingsService_Validate_Nil(t *testing.T) {
	err := NewSettingsService(memory.NewConfigStore()).Validate(nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSettingsService_Get_ProviderTables(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("http.provider_rates.virustotal", 0.066)
	_ = store.Set("http.provider_rates.otx", int64(5))
	_ = store.Set("scheduler.intervals.threatfox", "30m")
	_ = store.Set("scheduler.intervals.torexit", int64(7200))

	settings, err := NewSettingsService(store).Get()

	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"virustotal": 0.066, "otx": 5}, settings.HTTP.ProviderRates)
	assert.Equal(t, map[string]time.Duration{
		"threatfox": 30 * time.Minute,
		"torexit":   2 * time.Hour,
	}, settings.Scheduler.FeedIntervals)
}

func TestSettingsService_Get_InvalidProviderTables(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value any
	}{
		{"zero rate", "http.provider_rates.otx", 0.0},
		{"non-numeric rate", "http.provider_rates.otx", "fast"},
		{"interval below a minute", "scheduler.intervals.torexit", "30s"},
		{"unparseable interval", "scheduler.intervals.torexit", "hourly"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewConfigStore()
			_ = store.Set(tt.key, tt.value)

			_, err := NewSettingsService(store).Get()

			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestSettingsService_Save_ProviderTables(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store)

	settings := domain.DefaultAppSettings()
	settings.HTTP.ProviderRates = map[string]float64{"virustotal": 0.25}
	settings.Scheduler.FeedIntervals = map[string]time.Duration{"threatfox": 45 * time.Minute}

	require.NoError(t, service.Save(&settings))
	assert.Equal(t, "45m0s", store.GetString("scheduler.intervals.threatfox"))

	loaded, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, settings.HTTP.ProviderRates, loaded.HTTP.ProviderRates)
	assert.Equal(t, settings.Scheduler.FeedIntervals, loaded.Scheduler.FeedIntervals)
}
