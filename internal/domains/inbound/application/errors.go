package application

import (
	"errors"

	"github.com/Apurer/go-retail-ops/internal/domains/inbound/domain"
	"github.com/Apurer/go-retail-ops/internal/domains/inbound/ports"
	"github.com/Apurer/go-retail-ops/internal/shared/failures"
)

func mapError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, domain.ErrFinalized):
		return failures.Wrap(failures.ErrAlreadyFinalized, err)
	case errors.Is(err, ports.ErrVersionConflict):
		return failures.Wrap(failures.ErrConflict, err)
	case errors.Is(err, ports.ErrNotFound):
		return failures.Wrap(failures.ErrNotFound, err)
	case errors.Is(err, domain.ErrNoItems),
		errors.Is(err, domain.ErrEmptyProduct),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrTotalMismatch),
		errors.Is(err, domain.ErrTotalOverflow),
		errors.Is(err, domain.ErrUnknownSourceType),
		errors.Is(err, domain.ErrUnknownStatus),
		errors.Is(err, domain.ErrMissingSourceReference),
		errors.Is(err, domain.ErrMissingActor),
		errors.Is(err, domain.ErrMissingReason):
		return failures.Wrap(failures.ErrValidation, err)
	}
	return err
}
