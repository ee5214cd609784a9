package application

import (
	"errors"

	"github.com/Apurer/go-retail-ops/internal/domains/orders/domain"
	"github.com/Apurer/go-retail-ops/internal/domains/orders/ports"
	"github.com/Apurer/go-retail-ops/internal/shared/failures"
)

func mapError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ports.ErrNotFound), errors.Is(err, ports.ErrItemNotFound):
		return failures.Wrap(failures.ErrNotFound, err)
	case errors.Is(err, domain.ErrEmptyID),
		errors.Is(err, domain.ErrEmptyCustomer),
		errors.Is(err, domain.ErrNoItems),
		errors.Is(err, domain.ErrEmptyItemID),
		errors.Is(err, domain.ErrDuplicateItemID),
		errors.Is(err, domain.ErrEmptyProduct),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrNegativeUnitPrice),
		errors.Is(err, domain.ErrInvalidStatus):
		return failures.Wrap(failures.ErrValidation, err)
	}
	return err
}
