package models

import (
	"github.com/go-playground/validator/v10"
)

// validate is shared by every record check in this package. Initialized in
// init() with the isodate tag.
var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	_ = validate.RegisterValidation("isodate", validateISODate)
}

// validateISODate accepts strings carrying a parseable yyyy-mm-dd prefix.
// Empty strings pass; combine with required when the field is mandatory.
func validateISODate(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}
	if !isoPrefix.MatchString(s) {
		return false
	}
	_, ok := ParseDate(s)
	return ok
}

// Validate checks a record against its validate struct tags.
func Validate(v any) error {
	return validate.Struct(v)
}

// Validator exposes the shared instance for packages that declare their own
// tagged structs (configuration, file formats).
func Validator() *validator.Validate {
	return validate
}
