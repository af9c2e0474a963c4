package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/sercha-intel/internal/core/domain"
	"github.com/custodia-labs/sercha-intel/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-intel/internal/core/ports/driving"
)

// Ensure RecordService implements the interface.
var _ driving.RecordService = (*RecordService)(nil)

// RecordService queries the record store for registered data providers.
type RecordService struct {
	registry driving.ConnectorRegistry
	store    driven.RecordStore
}

// NewRecordService creates a record query service.
func NewRecordService(registry driving.ConnectorRegistry, store driven.RecordStore) *RecordService {
	return &RecordService{registry: registry, store: store}
}

// List returns stored records for a data provider.
func (s *RecordService) List(ctx context.Context, provider string, limit int) ([]domain.Record, int, error) {
	if _, err := s.registry.Data(provider); err != nil {
		return nil, 0, err
	}
	total, err := s.store.Count(ctx, provider)
	if err != nil {
		return nil, 0, fmt.Errorf("count records: %w", err)
	}
	records, err := s.store.List(ctx, provider, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list records: %w", err)
	}
	return records, total, nil
}

// Get returns one stored record. The key is matched case-insensitively.
func (s *RecordService) Get(ctx context.Context, provider, key string) (*domain.Record, error) {
	if _, err := s.registry.Data(provider); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, provider, key)
}
