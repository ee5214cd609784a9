package application

import (
	"errors"

	"github.com/Apurer/go-retail-ops/internal/domains/aftersales/domain"
	"github.com/Apurer/go-retail-ops/internal/domains/aftersales/ports"
	"github.com/Apurer/go-retail-ops/internal/shared/failures"
)

var (
	// ErrRefundExceedsOrderValue is returned when a refund is larger than what was paid.
	ErrRefundExceedsOrderValue = errors.New("refund amount exceeds the order value")
	// ErrCustomerMismatch is returned when the customer did not place the order.
	ErrCustomerMismatch = errors.New("customer did not place this order")
)

func mapError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, domain.ErrAlreadyInState):
		return failures.Wrap(failures.ErrAlreadyFinalized, err)
	case errors.Is(err, domain.ErrInvalidTransition):
		return failures.Wrap(failures.ErrInvalidTransition, err)
	case errors.Is(err, domain.ErrInvalidState):
		return failures.Wrap(failures.ErrInvalidState, err)
	case errors.Is(err, domain.ErrEvidenceRequired):
		return failures.Wrap(failures.ErrEvidenceRequired, err)
	case errors.Is(err, ports.ErrVersionConflict):
		return failures.Wrap(failures.ErrConflict, err)
	case errors.Is(err, ports.ErrNotFound):
		return failures.Wrap(failures.ErrNotFound, err)
	case errors.Is(err, domain.ErrEmptyOrder),
		errors.Is(err, domain.ErrEmptyCustomer),
		errors.Is(err, domain.ErrUnknownType),
		errors.Is(err, domain.ErrUnknownStatus),
		errors.Is(err, domain.ErrEmptyReason),
		errors.Is(err, domain.ErrMissingActor),
		errors.Is(err, domain.ErrMissingRefundAmount),
		errors.Is(err, domain.ErrNegativeRefund),
		errors.Is(err, domain.ErrEmptyAttachment),
		errors.Is(err, ErrRefundExceedsOrderValue),
		errors.Is(err, ErrCustomerMismatch):
		return failures.Wrap(failures.ErrValidation, err)
	}
	return err
}
