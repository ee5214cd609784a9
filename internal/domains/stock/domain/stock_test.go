package domain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntry_ApplyRejectsNegativeResult(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	entry, err := NewEntry("sku-1", 2, now)
	require.NoError(t, err)

	err = entry.Apply(-3, now.Add(time.Minute))

	require.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, int64(2), entry.Quantity)
	assert.Equal(t, now, entry.UpdatedAt)

	require.NoError(t, entry.Apply(-2, now.Add(time.Minute)))
	assert.Zero(t, entry.Quantity)
}

func TestNewEntry_Validation(t *testing.T) {
	_, err := NewEntry("  ", 1, time.Now())
	assert.ErrorIs(t, err, ErrEmptyProduct)

	_, err = NewEntry("sku", -1, time.Now())
	assert.ErrorIs(t, err, ErrNegativeQuantity)
}

func TestDelta_Validate(t *testing.T) {
	valid := Delta{ProductID: "sku", Quantity: 3, Reason: ReasonInboundApproved, CorrelationID: "rec-1"}
	require.NoError(t, valid.Validate())

	cases := map[string]struct {
		mutate func(*Delta)
		want   error
	}{
		"empty product":  {func(d *Delta) { d.ProductID = "" }, ErrEmptyProduct},
		"zero quantity":  {func(d *Delta) { d.Quantity = 0 }, ErrZeroDelta},
		"no correlation": {func(d *Delta) { d.CorrelationID = " " }, ErrMissingCorrelation},
		"bad reason":     {func(d *Delta) { d.Reason = "gift" }, ErrUnknownReason},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			d := valid
			tc.mutate(&d)
			assert.ErrorIs(t, d.Validate(), tc.want)
		})
	}
}

func TestNewMovement_CapturesResultingQuantity(t *testing.T) {
	now := time.Now().UTC()
	entry := &Entry{ProductID: "sku", Quantity: 10, UpdatedAt: now}
	delta := Delta{ProductID: "sku", Quantity: 4, Reason: ReasonTicketResolved, CorrelationID: "t-1", Line: 2}

	m := NewMovement("mv-1", delta, entry)

	assert.Equal(t, int64(10), m.ResultingQuantity)
	assert.Equal(t, MovementKey{CorrelationID: "t-1", ProductID: "sku", Line: 2}, delta.Key())
	assert.Equal(t, now, m.CreatedAt)
	assert.False(t, m.Replayed)
}

func TestEntry_ApplyRejectsOverflow(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	entry, err := NewEntry("sku-1", math.MaxInt64-1, now)
	require.NoError(t, err)

	err = entry.Apply(2, now.Add(time.Minute))

	require.ErrorIs(t, err, ErrQuantityOverflow)
	assert.Equal(t, int64(math.MaxInt64-1), entry.Quantity)
	assert.Equal(t, now, entry.UpdatedAt)

	require.NoError(t, entry.Apply(1, now.Add(time.Minute)))
	assert.Equal(t, int64(math.MaxInt64), entry.Quantity)
}
