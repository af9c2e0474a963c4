package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/sercha-intel/internal/core/domain"
	"github.com/custodia-labs/sercha-intel/internal/core/ports/driven"
)

// Ensure WatermarkStore implements the interface.
var _ driven.WatermarkStore = (*WatermarkStore)(nil)

// WatermarkStore is an in-memory implementation of driven.WatermarkStore.
// State is lost on exit, so every process starts with a bootstrap pull.
type WatermarkStore struct {
	mu     sync.RWMutex
	states map[string]domain.SyncState
}

// NewWatermarkStore creates a new in-memory watermark store.
func NewWatermarkStore() *WatermarkStore {
	return &WatermarkStore{
		states: make(map[string]domain.SyncState),
	}
}

// Save stores or updates sync state.
func (s *WatermarkStore) Save(_ context.Context, state domain.SyncState) error {
	if state.Provider == "" {
		return fmt.Errorf("%w: empty provider", domain.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.Provider] = state
	return nil
}

// Get retrieves sync state for a provider.
func (s *WatermarkStore) Get(_ context.Context, provider string) (*domain.SyncState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[provider]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &state, nil
}

// Delete removes sync state for a provider.
func (s *WatermarkStore) Delete(_ context.Context, provider string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, provider)
	return nil
}
