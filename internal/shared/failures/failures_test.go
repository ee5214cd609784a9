package failures

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUnknownProduct = errors.New("product unknown")

func TestPartialFailureError_UnwrapsCategoryAndCause(t *testing.T) {
	err := &PartialFailureError{Step: "credit stock", ProductID: "sku-1", Line: 2, Err: Wrap(ErrNotFound, errUnknownProduct)}

	require.ErrorIs(t, err, ErrPartialFailure)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, err, errUnknownProduct)
	assert.Equal(t, ErrPartialFailure, Kind(err))
	assert.True(t, Retryable(err))
	assert.Contains(t, err.Error(), "sku-1")
}

func TestKind(t *testing.T) {
	cases := map[string]struct {
		err  error
		want error
	}{
		"nil":            {err: nil, want: nil},
		"infrastructure": {err: errors.New("connection reset"), want: nil},
		"validation":     {err: fmt.Errorf("%w: %w", ErrValidation, errors.New("no items")), want: ErrValidation},
		"finalized":      {err: ErrAlreadyFinalized, want: ErrAlreadyFinalized},
		"conflict":       {err: fmt.Errorf("approve: %w", ErrConflict), want: ErrConflict},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, Kind(tc.err))
		})
	}
}

func TestWrap_KeepsExistingCategory(t *testing.T) {
	original := Wrap(ErrInsufficientStock, errors.New("would go negative"))
	wrapped := Wrap(ErrValidation, original)

	assert.Equal(t, original, wrapped)
	assert.Equal(t, ErrInsufficientStock, Kind(wrapped))
	assert.False(t, Retryable(wrapped))
	assert.Nil(t, Wrap(ErrValidation, nil))
}
