package common

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateStruct runs validator tags over a request DTO and wraps failures
// as ErrValidation so handlers can map them to 400s.
func ValidateStruct(s interface{}) error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%s: %w", err.Error(), ErrValidation)
	}
	return nil
}
