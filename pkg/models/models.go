// Package models holds the value records exchanged with the SwiftRush API:
// locations, contacts, items, quotes, vehicles and waypoints. Records are
// validated at construction and carry no lifecycle of their own.
package models

import (
	"github.com/go-playground/validator/v10"

	"github.com/swiftrush/rush-go/pkg/validation"
)

var validate = validator.New()

// checkStruct runs struct validation and converts the result into a
// field-level validation error.
func checkStruct(v interface{}) error {
	if err := validate.Struct(v); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok {
			return validation.NewValidationError(errs)
		}
		return err
	}
	return nil
}
