package service

import (
	"errors"

	"github.com/R3E-Network/vybe_engagement/internal/app/storage"
	apperrors "github.com/R3E-Network/vybe_engagement/internal/errors"
)

// Page size bounds shared by list operations.
const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// ClampLimit maps a caller-supplied page size into [1, MaxLimit].
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	}
	return limit
}

// TranslateStoreError maps storage sentinels onto the service error
// taxonomy. Errors already carrying a ServiceError pass through.
func TranslateStoreError(err error) error {
	if err == nil || apperrors.GetServiceError(err) != nil {
		return err
	}
	switch {
	case errors.Is(err, storage.ErrUnavailable):
		return apperrors.StoreUnavailable(err)
	case errors.Is(err, storage.ErrInsufficientFunds):
		return apperrors.ErrInsufficientFunds.Wrap(err)
	case errors.Is(err, storage.ErrOutOfRange):
		return apperrors.ErrInvalidAmount.Wrap(err)
	case errors.Is(err, storage.ErrNotFound):
		return apperrors.ErrNotFound.Wrap(err)
	}
	return err
}
