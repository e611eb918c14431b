package validator

import (
	"errors"
	"strings"

	val "github.com/go-playground/validator/v10"
)

var messages = map[string]string{
	"required": "{field} is required",
	"gte":      "{field} must be greater than or equal to {param}",
	"lte":      "{field} must be less than or equal to {param}",
	"gt":       "{field} must be greater than {param}",
	"oneof":    "{field} must be one of {param}",
	"max":      "{field} must be at most {param} characters",
	"min":      "{field} must be at least {param} characters",
	"email":    "{field} must be a valid email address",
	"alphanum": "{field} must contain only letters and digits",
	"uuid":     "{field} must be a valid UUID",
}

// message renders every field failure, joined with "; ", in declaration order.
func message(err error) string {
	var valErrors val.ValidationErrors
	if !errors.As(err, &valErrors) {
		return err.Error()
	}

	parts := make([]string, 0, len(valErrors))
	for _, fieldErr := range valErrors {
		parts = append(parts, describe(fieldErr))
	}

	return strings.Join(parts, "; ")
}

func describe(fieldErr val.FieldError) string {
	tmpl, ok := messages[fieldErr.Tag()]
	if !ok {
		return fieldErr.Field() + " is invalid"
	}

	return strings.NewReplacer("{field}", fieldErr.Field(), "{param}", fieldErr.Param()).Replace(tmpl)
}
