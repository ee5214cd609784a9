//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Apurer/go-retail-ops/internal/domains/inbound/domain"
	"github.com/Apurer/go-retail-ops/internal/domains/inbound/ports"
	"github.com/Apurer/go-retail-ops/internal/platform/postgres/pgtest"
)

func newRecord(t *testing.T, id string) *domain.Record {
	t.Helper()
	record, err := domain.NewRecord(id, domain.NewRecordParams{
		SourceType:      domain.SourceSupplier,
		SourceReference: "PO-7",
		Items:           []domain.Item{{ProductID: "A", Quantity: 3}, {ProductID: "B", Quantity: 2}},
		TotalItems:      5,
		CreatedBy:       "clerk",
	}, time.Now().UTC())
	require.NoError(t, err)
	return record
}

func TestRepository_CreateAndGetByID(t *testing.T) {
	repo := NewRepository(pgtest.Start(t))
	ctx := context.Background()

	created, err := repo.Create(ctx, newRecord(t, "rec-1"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.Metadata.Version)

	fetched, err := repo.GetByID(ctx, "rec-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPendingApproval, fetched.Entity.Status)
	require.Len(t, fetched.Entity.Items, 2)
	assert.Equal(t, "A", fetched.Entity.Items[0].ProductID)
	assert.Equal(t, "B", fetched.Entity.Items[1].ProductID)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestRepository_UpdateChecksVersion(t *testing.T) {
	repo := NewRepository(pgtest.Start(t))
	ctx := context.Background()
	_, err := repo.Create(ctx, newRecord(t, "rec-1"))
	require.NoError(t, err)

	loaded, err := repo.GetByID(ctx, "rec-1")
	require.NoError(t, err)
	record := loaded.Entity.Clone()
	require.NoError(t, record.Approve("boss", time.Now().UTC()))

	updated, err := repo.Update(ctx, record, loaded.Metadata.Version)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Metadata.Version)

	_, err = repo.Update(ctx, record, loaded.Metadata.Version)
	assert.ErrorIs(t, err, ports.ErrVersionConflict)

	ghost := newRecord(t, "ghost")
	_, err = repo.Update(ctx, ghost, 1)
	assert.ErrorIs(t, err, ports.ErrNotFound)

	fetched, err := repo.GetByID(ctx, "rec-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, fetched.Entity.Status)
	assert.Equal(t, "boss", fetched.Entity.ApprovedBy)
}

func TestRepository_ListByStatus(t *testing.T) {
	repo := NewRepository(pgtest.Start(t))
	ctx := context.Background()
	for _, id := range []string{"rec-1", "rec-2"} {
		_, err := repo.Create(ctx, newRecord(t, id))
		require.NoError(t, err)
	}

	all, err := repo.List(ctx, ports.RecordFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	approved, err := repo.List(ctx, ports.RecordFilter{Status: domain.StatusApproved})
	require.NoError(t, err)
	assert.Empty(t, approved)
}
