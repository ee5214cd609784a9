//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Apurer/go-retail-ops/internal/domains/aftersales/domain"
	"github.com/Apurer/go-retail-ops/internal/domains/aftersales/ports"
	"github.com/Apurer/go-retail-ops/internal/platform/postgres/pgtest"
)

func newTicket(t *testing.T, id string, ticketType domain.TicketType) *domain.Ticket {
	t.Helper()
	ticket, err := domain.NewTicket(id, domain.NewTicketParams{
		OrderID:    "ord-1",
		CustomerID: "cust-1",
		Type:       ticketType,
		Reason:     "broken on arrival",
	}, time.Now().UTC())
	require.NoError(t, err)
	return ticket
}

func TestRepository_RoundTripsAttachmentsAndRefund(t *testing.T) {
	repo := NewRepository(pgtest.Start(t))
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	_, err := repo.Create(ctx, newTicket(t, "t-1", domain.TypeRefund))
	require.NoError(t, err)

	loaded, err := repo.GetByID(ctx, "t-1")
	require.NoError(t, err)
	assert.Nil(t, loaded.Entity.RefundAmount)

	ticket := loaded.Entity.Clone()
	require.NoError(t, ticket.AttachEvidence(domain.Attachment{ID: "att-1", FileName: "a.jpg", URL: "https://files/a.jpg", UploadedBy: "cust-1", UploadedAt: now}))
	refund := decimal.RequireFromString("12.50")
	require.NoError(t, ticket.Resolve(domain.ResolveParams{StaffID: "staff-1", RefundAmount: &refund}, now))
	updated, err := repo.Update(ctx, ticket, loaded.Metadata.Version)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Metadata.Version)

	fetched, err := repo.GetByID(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusResolved, fetched.Entity.Status)
	require.NotNil(t, fetched.Entity.RefundAmount)
	assert.True(t, fetched.Entity.RefundAmount.Equal(refund))
	require.Len(t, fetched.Entity.Attachments, 1)
	assert.Equal(t, "att-1", fetched.Entity.Attachments[0].ID)
}

func TestRepository_UpdateChecksVersion(t *testing.T) {
	repo := NewRepository(pgtest.Start(t))
	ctx := context.Background()
	created, err := repo.Create(ctx, newTicket(t, "t-2", domain.TypeReturn))
	require.NoError(t, err)

	ticket := created.Entity.Clone()
	require.NoError(t, ticket.Assign("staff-1", time.Now()))
	_, err = repo.Update(ctx, ticket, created.Metadata.Version)
	require.NoError(t, err)

	_, err = repo.Update(ctx, ticket, created.Metadata.Version)
	assert.ErrorIs(t, err, ports.ErrVersionConflict)

	_, err = repo.Update(ctx, newTicket(t, "ghost", domain.TypeReturn), 1)
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestRepository_ListFilters(t *testing.T) {
	repo := NewRepository(pgtest.Start(t))
	ctx := context.Background()
	first, err := repo.Create(ctx, newTicket(t, "t-a", domain.TypeReturn))
	require.NoError(t, err)
	_, err = repo.Create(ctx, newTicket(t, "t-b", domain.TypeWarranty))
	require.NoError(t, err)
	ticket := first.Entity.Clone()
	require.NoError(t, ticket.Assign("staff-7", time.Now()))
	_, err = repo.Update(ctx, ticket, 1)
	require.NoError(t, err)

	assigned, err := repo.List(ctx, ports.TicketFilter{AssignedTo: "staff-7"})
	require.NoError(t, err)
	require.Len(t, assigned, 1)
	assert.Equal(t, "t-a", assigned[0].Entity.ID)

	pending, err := repo.List(ctx, ports.TicketFilter{Status: domain.StatusPending})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "t-b", pending[0].Entity.ID)

	all, err := repo.List(ctx, ports.TicketFilter{OrderID: "ord-1"})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
