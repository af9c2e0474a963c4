package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-intel/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-intel/internal/core/domain"
)

func newRecordFixture(t *testing.T) (*RecordService, *memory.RecordStore) {
	t.Helper()
	reg := NewConnectorRegistry()
	require.NoError(t, reg.RegisterData(newMockFeed("tor")))
	require.NoError(t, reg.RegisterAgent(newMockAgent("vt", domain.ArtifactIP)))
	store := memory.NewRecordStore()
	return NewRecordService(reg, store), store
}

func TestRecordService_List(t *testing.T) {
	svc, store := newRecordFixture(t)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, []domain.Record{
		feedRecord("tor", "1.1.1.1"),
		feedRecord("tor", "2.2.2.2"),
		feedRecord("tor", "3.3.3.3"),
	}))

	records, total, err := svc.List(ctx, "tor", 2)

	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, records, 2)
	assert.Equal(t, "3.3.3.3", records[0].Key)
}

func TestRecordService_Get(t *testing.T) {
	svc, store := newRecordFixture(t)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, []domain.Record{feedRecord("tor", "Evil.Example")}))

	rec, err := svc.Get(ctx, "tor", " evil.example ")
	require.NoError(t, err)
	assert.Equal(t, "Evil.Example", rec.Key)

	_, err = svc.Get(ctx, "tor", "missing.example")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRecordService_RejectsNonFeedProviders(t *testing.T) {
	svc, _ := newRecordFixture(t)
	ctx := context.Background()

	_, _, err := svc.List(ctx, "ghost", 0)
	assert.ErrorIs(t, err, domain.ErrUnknownProvider)

	_, err = svc.Get(ctx, "vt", "1.1.1.1")
	assert.ErrorIs(t, err, domain.ErrKindMismatch)
}
