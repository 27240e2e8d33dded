package repository

import (
	"context"
	"errors"
	"fmt"

	"go-stock-ledger/internal/model"

	"gorm.io/gorm"
)

// translate maps GORM errors onto the model error taxonomy. what names the
// entity for not-found and duplicate messages.
func translate(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: %s", model.ErrNotFound, what)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %s", model.ErrDuplicate, what)
	case isTaxonomy(err):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return fmt.Errorf("%w: %w", model.ErrStorage, err)
}

func isTaxonomy(err error) bool {
	for _, target := range []error{
		model.ErrNotFound,
		model.ErrInvalidArgument,
		model.ErrInsufficientStock,
		model.ErrConflict,
		model.ErrDuplicate,
		model.ErrStorage,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
