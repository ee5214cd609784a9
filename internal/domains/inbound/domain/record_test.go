package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var createdAt = time.Date(2025, 4, 2, 8, 30, 0, 0, time.UTC)

func validParams() NewRecordParams {
	return NewRecordParams{
		SourceType:      SourceSupplier,
		SourceReference: "PO-1001",
		Items:           []Item{{ProductID: "A", Quantity: 3}, {ProductID: "B", Quantity: 2}},
		TotalItems:      5,
		CreatedBy:       "clerk-1",
	}
}

func TestNewRecord_PendingApproval(t *testing.T) {
	record, err := NewRecord("rec-1", validParams(), createdAt)

	require.NoError(t, err)
	assert.Equal(t, StatusPendingApproval, record.Status)
	assert.Equal(t, int64(5), record.TotalItems)
	assert.Equal(t, createdAt, record.CreatedAt)
	require.Len(t, record.Events(), 1)
	assert.Equal(t, "inbound.record.created", record.Events()[0].EventName())
}

func TestNewRecord_Validation(t *testing.T) {
	cases := map[string]struct {
		mutate func(*NewRecordParams)
		want   error
	}{
		"no items":           {func(p *NewRecordParams) { p.Items = nil; p.TotalItems = 0 }, ErrNoItems},
		"zero quantity":      {func(p *NewRecordParams) { p.Items[1].Quantity = 0; p.TotalItems = 3 }, ErrInvalidQuantity},
		"negative quantity":  {func(p *NewRecordParams) { p.Items[0].Quantity = -1; p.TotalItems = 1 }, ErrInvalidQuantity},
		"empty product":      {func(p *NewRecordParams) { p.Items[0].ProductID = " " }, ErrEmptyProduct},
		"total mismatch":     {func(p *NewRecordParams) { p.TotalItems = 6 }, ErrTotalMismatch},
		"unknown source":     {func(p *NewRecordParams) { p.SourceType = "" }, ErrUnknownSourceType},
		"missing reference":  {func(p *NewRecordParams) { p.SourceReference = "" }, ErrMissingSourceReference},
		"missing creator":    {func(p *NewRecordParams) { p.CreatedBy = "" }, ErrMissingActor},
		"return needs a ref": {func(p *NewRecordParams) { p.SourceType = SourceReturn; p.SourceReference = "" }, ErrMissingSourceReference},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			params := validParams()
			tc.mutate(&params)
			_, err := NewRecord("rec-1", params, createdAt)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestNewRecord_AdjustmentSkipsReference(t *testing.T) {
	params := validParams()
	params.SourceType = SourceAdjustment
	params.SourceReference = ""

	record, err := NewRecord("rec-1", params, createdAt)

	require.NoError(t, err)
	assert.Equal(t, SourceAdjustment, record.SourceType)
}

func TestRecord_ApproveOnce(t *testing.T) {
	record, err := NewRecord("rec-1", validParams(), createdAt)
	require.NoError(t, err)
	approvedAt := createdAt.Add(time.Hour)

	require.NoError(t, record.Approve("manager-1", approvedAt))
	assert.Equal(t, StatusApproved, record.Status)
	require.NotNil(t, record.ApprovedAt)
	assert.Equal(t, approvedAt, *record.ApprovedAt)
	assert.Equal(t, "manager-1", record.ApprovedBy)

	before := record.Clone()
	assert.ErrorIs(t, record.Approve("manager-2", approvedAt.Add(time.Minute)), ErrFinalized)
	assert.ErrorIs(t, record.Reject("manager-2", "late", approvedAt.Add(time.Minute)), ErrFinalized)
	assert.Equal(t, before, record.Clone())
}

func TestRecord_RejectRequiresReason(t *testing.T) {
	record, err := NewRecord("rec-1", validParams(), createdAt)
	require.NoError(t, err)

	assert.ErrorIs(t, record.Reject("manager-1", "  ", createdAt), ErrMissingReason)
	assert.Equal(t, StatusPendingApproval, record.Status)

	require.NoError(t, record.Reject("manager-1", "damaged pallet", createdAt))
	assert.Equal(t, StatusRejected, record.Status)
	assert.Equal(t, "damaged pallet", record.RejectionReason)
	assert.ErrorIs(t, record.Approve("manager-1", createdAt), ErrFinalized)
}

func TestParseSourceType(t *testing.T) {
	st, err := ParseSourceType(" Supplier ")
	require.NoError(t, err)
	assert.Equal(t, SourceSupplier, st)

	_, err = ParseSourceType("unknown")
	assert.ErrorIs(t, err, ErrUnknownSourceType)
}
