package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/custodia-labs/sercha-intel/internal/adapters/driven/auth"
	"github.com/custodia-labs/sercha-intel/internal/adapters/driven/config/file"
	"github.com/custodia-labs/sercha-intel/internal/adapters/driven/httpfetch"
	"github.com/custodia-labs/sercha-intel/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-intel/internal/adapters/driven/storage/redis"
	"github.com/custodia-labs/sercha-intel/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/sercha-intel/internal/adapters/driving/cli"
	"github.com/custodia-labs/sercha-intel/internal/core/domain"
	"github.com/custodia-labs/sercha-intel/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-intel/internal/core/services"
	"github.com/custodia-labs/sercha-intel/internal/logger"
)

const (
	// feedPullTimeout bounds one data connector pull; feeds are larger than lookups.
	feedPullTimeout = 5 * time.Minute

	// redisPingTimeout bounds the startup connectivity check.
	redisPingTimeout = 5 * time.Second

	// redisCredentialName is read as SERCHA_INTEL_REDIS_PASSWORD.
	redisCredentialName = "redis"
	redisPasswordKey    = "PASSWORD"
)

// stores holds the persistence adapters selected by the storage backend.
type stores struct {
	watermarks driven.WatermarkStore
	records    driven.RecordStore
	scheduler  driven.SchedulerStore
	closers    []func() error
}

func (s *stores) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// buildServices wires every adapter and service from the config directory.
func buildServices(opts cli.Options) (*cli.Services, error) {
	configStore, err := file.NewConfigStore(opts.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore)
	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("load settings from %s: %w", configStore.Path(), err)
	}

	creds := auth.NewEnvCredentialStore("")

	st, err := openStores(settings.Storage, filepath.Dir(configStore.Path()), creds)
	if err != nil {
		return nil, err
	}

	fetcher := httpfetch.New(nil, httpfetch.Config{
		Timeout:       settings.HTTP.Timeout,
		RatePerSecond: settings.HTTP.RatePerSecond,
		Burst:         settings.HTTP.Burst,
		ProviderRates: settings.HTTP.ProviderRates,
		UserAgent:     settings.HTTP.UserAgent,
	})

	registry := services.NewConnectorRegistry()
	if err := services.RegisterBuiltinConnectors(registry, fetcher, settings.Providers); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("register connectors: %w", err)
	}

	retry := services.NewRetryPolicy(settings.Retry)
	enrichment := services.NewEnrichmentService(registry, creds,
		services.WithRetryPolicy(retry),
		services.WithCallTimeout(settings.HTTP.Timeout),
		services.WithConcurrency(settings.HTTP.Concurrency),
	)

	var sink driven.RecordSink = st.records
	if settings.Dedup.Enabled {
		dedup, err := services.NewDeduplicator(sink, settings.Dedup.Size)
		if err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("create deduplicator: %w", err)
		}
		sink = dedup
	}

	feedSync := services.NewFeedSyncOrchestrator(registry, st.watermarks, sink, creds,
		services.WithFeedRetryPolicy(retry),
		services.WithFeedTimeout(feedPullTimeout),
	)
	scheduler := services.NewScheduler(settings.Scheduler.SchedulerConfig(), st.scheduler, registry, feedSync)

	logger.Debug("wired %d providers, storage %s", len(registry.Descriptors()), settings.Storage.Backend)

	return &cli.Services{
		Registry:    registry,
		Enrichment:  enrichment,
		FeedSync:    feedSync,
		Scheduler:   scheduler,
		Settings:    settingsService,
		Records:     services.NewRecordService(registry, st.records),
		Credentials: creds,
		Close:       st.Close,
	}, nil
}

// openStores selects persistence. The redis backend keeps watermarks in
// Redis and records plus scheduler state in the local SQLite database.
func openStores(cfg domain.StorageSettings, configDir string, creds *auth.EnvCredentialStore) (*stores, error) {
	switch cfg.Backend {
	case domain.StorageMemory:
		return &stores{
			watermarks: memory.NewWatermarkStore(),
			records:    memory.NewRecordStore(),
			scheduler:  memory.NewSchedulerStore(),
		}, nil

	case domain.StorageSQLite, domain.StorageRedis:
		dataDir := cfg.DataDir
		if dataDir == "" {
			dataDir = filepath.Join(configDir, "data")
		}
		db, err := sqlite.NewStore(dataDir)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		st := &stores{
			watermarks: db.WatermarkStore(),
			records:    db.RecordStore(),
			scheduler:  db.SchedulerStore(),
			closers:    []func() error{db.Close},
		}
		if cfg.Backend == domain.StorageSQLite {
			return st, nil
		}

		wm, err := openRedis(cfg, creds)
		if err != nil {
			_ = st.Close()
			return nil, err
		}
		st.watermarks = wm
		st.closers = append(st.closers, wm.Close)
		return st, nil

	default:
		return nil, fmt.Errorf("%w: storage backend %q", domain.ErrInvalidInput, cfg.Backend)
	}
}

func openRedis(cfg domain.StorageSettings, creds *auth.EnvCredentialStore) (*redis.WatermarkStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()

	secrets, err := creds.Credentials(ctx, redisCredentialName)
	if err != nil {
		return nil, fmt.Errorf("redis credentials: %w", err)
	}
	wm := redis.NewWatermarkStore(redis.NewClient(cfg.RedisAddr, secrets.Get(redisPasswordKey), cfg.RedisDB), "")
	if err := wm.Ping(ctx); err != nil {
		_ = wm.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
	}
	return wm, nil
}
