package service

import (
	"errors"
	"strings"

	"go-stock-ledger/internal/model"
	"go-stock-ledger/pkg/validator"
)

// fieldErrors collects per-field failures across struct tags and the
// parsing done by the services themselves.
type fieldErrors map[string]string

func validateRequest(req interface{}) fieldErrors {
	fields := fieldErrors{}
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		for k, v := range validator.Fields(errs) {
			fields[k] = v
		}
	}
	return fields
}

// merge copies the fields of a *model.ValidationError into f.
func (f fieldErrors) merge(err error) {
	var verr *model.ValidationError
	if errors.As(err, &verr) {
		for k, v := range verr.Fields {
			f[k] = v
		}
	}
}

func (f fieldErrors) has(field string) bool {
	_, ok := f[field]
	return ok
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return model.NewValidationError(f)
}

// optionalNote trims a note and maps blank to nil.
func optionalNote(note *string) *string {
	if note == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*note)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
