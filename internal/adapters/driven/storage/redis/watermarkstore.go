// Package redis persists feed watermarks in Redis so several processes
// pulling the same feeds share progress.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/sercha-intel/internal/core/domain"
	"github.com/custodia-labs/sercha-intel/internal/core/ports/driven"
)

// DefaultPrefix namespaces every key this package writes.
const DefaultPrefix = "sercha-intel"

const (
	fieldWatermark   = "watermark"
	fieldLastSync    = "last_sync"
	fieldRecordCount = "record_count"
)

// Ensure WatermarkStore implements the interface.
var _ driven.WatermarkStore = (*WatermarkStore)(nil)

// WatermarkStore keeps one hash per provider at <prefix>:watermark:<provider>.
// Each Save is a single HSET, so readers never see a half-written state.
type WatermarkStore struct {
	client *redis.Client
	prefix string
}

// NewClient creates a Redis client for addr and database db.
func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// NewWatermarkStore creates a store using client. An empty prefix uses DefaultPrefix.
func NewWatermarkStore(client *redis.Client, prefix string) *WatermarkStore {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &WatermarkStore{client: client, prefix: prefix}
}

// Ping tests the Redis connection.
func (s *WatermarkStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *WatermarkStore) Close() error {
	return s.client.Close()
}

func (s *WatermarkStore) key(provider string) string {
	return s.prefix + ":watermark:" + provider
}

// Save stores or replaces the sync state for state.Provider.
func (s *WatermarkStore) Save(ctx context.Context, state domain.SyncState) error {
	if state.Provider == "" {
		return fmt.Errorf("%w: empty provider", domain.ErrInvalidInput)
	}

	lastSync := ""
	if !state.LastSync.IsZero() {
		lastSync = state.LastSync.UTC().Format(time.RFC3339Nano)
	}
	err := s.client.HSet(ctx, s.key(state.Provider),
		fieldWatermark, state.Watermark.String(),
		fieldLastSync, lastSync,
		fieldRecordCount, state.RecordCount,
	).Err()
	if err != nil {
		return fmt.Errorf("saving watermark: %w", err)
	}
	return nil
}

// Get retrieves sync state for a provider.
func (s *WatermarkStore) Get(ctx context.Context, provider string) (*domain.SyncState, error) {
	fields, err := s.client.HGetAll(ctx, s.key(provider)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("reading watermark: %w", err)
	}
	if len(fields) == 0 {
		return nil, domain.ErrNotFound
	}

	state := &domain.SyncState{
		Provider:  provider,
		Watermark: domain.Watermark(fields[fieldWatermark]),
	}
	if v := fields[fieldLastSync]; v != "" {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil, fmt.Errorf("%w: last_sync %q: %w", domain.ErrInvalidWatermark, v, err)
		}
		state.LastSync = t
	}
	if v := fields[fieldRecordCount]; v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("%w: record_count %q: %w", domain.ErrInvalidWatermark, v, err)
		}
		state.RecordCount = n
	}
	return state, nil
}

// Delete removes sync state, forcing the next pull to bootstrap.
func (s *WatermarkStore) Delete(ctx context.Context, provider string) error {
	if err := s.client.Del(ctx, s.key(provider)).Err(); err != nil {
		return fmt.Errorf("deleting watermark: %w", err)
	}
	return nil
}
