package application

import (
	"errors"

	"github.com/Apurer/go-retail-ops/internal/domains/stock/domain"
	"github.com/Apurer/go-retail-ops/internal/domains/stock/ports"
	"github.com/Apurer/go-retail-ops/internal/shared/failures"
)

func mapError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ports.ErrNotFound):
		return failures.Wrap(failures.ErrNotFound, err)
	case errors.Is(err, domain.ErrInsufficientStock):
		return failures.Wrap(failures.ErrInsufficientStock, err)
	case errors.Is(err, ports.ErrDuplicateMovement),
		errors.Is(err, ports.ErrReplayMismatch):
		return failures.Wrap(failures.ErrConflict, err)
	case errors.Is(err, domain.ErrEmptyProduct),
		errors.Is(err, domain.ErrZeroDelta),
		errors.Is(err, domain.ErrMissingCorrelation),
		errors.Is(err, domain.ErrUnknownReason),
		errors.Is(err, domain.ErrNegativeQuantity),
		errors.Is(err, domain.ErrQuantityOverflow),
		errors.Is(err, ports.ErrDuplicateProduct):
		return failures.Wrap(failures.ErrValidation, err)
	}
	return err
}
