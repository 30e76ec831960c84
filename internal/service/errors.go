package service

import (
	"errors"

	"github.com/spec-kit/maintenance-portal/internal/domain"
	"github.com/spec-kit/maintenance-portal/internal/repository"
	apperrors "github.com/spec-kit/maintenance-portal/pkg/util"
)

func mapTicketStoreError(err error, id string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound("ticket", map[string]any{"id": id})
	}
	return apperrors.NewPersistenceError(err)
}

func planValidationError(err error) error {
	var fields domain.FieldErrors
	if !errors.As(err, &fields) {
		return apperrors.NewValidationError(err.Error(), nil)
	}
	details := make(map[string]any, len(fields))
	for k, v := range fields {
		details[k] = v
	}
	return apperrors.NewValidationError("plan is incomplete", details)
}
