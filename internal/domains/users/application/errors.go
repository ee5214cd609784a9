package application

import (
	"errors"

	"github.com/Apurer/go-retail-ops/internal/domains/users/domain"
	"github.com/Apurer/go-retail-ops/internal/domains/users/ports"
	"github.com/Apurer/go-retail-ops/internal/shared/failures"
)

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrEmptyID) ||
		errors.Is(err, domain.ErrEmptyName) ||
		errors.Is(err, domain.ErrInvalidEmail) ||
		errors.Is(err, domain.ErrUnknownRole) {
		return failures.Wrap(failures.ErrValidation, err)
	}
	if errors.Is(err, ports.ErrNotFound) {
		return failures.Wrap(failures.ErrNotFound, err)
	}
	return err
}
