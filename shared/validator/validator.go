package validator

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"strings"

	val "github.com/go-playground/validator/v10"

	"medsys/shared/failure"
)

var validate *val.Validate

func init() {
	validate = val.New(val.WithRequiredStructEnabled())

	err := validate.RegisterValidation("empty", func(fl val.FieldLevel) bool {
		return fl.Field().IsZero()
	})
	if err != nil {
		panic(err)
	}

	validate.RegisterTagNameFunc(jsonName)
}

// jsonName reports fields by their JSON key so messages match the request body.
func jsonName(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")

	switch name {
	case "-":
		return ""
	case "":
		return field.Name
	default:
		return name
	}
}

// Validate decodes a JSON body into data and validates it. Both decode and
// rule failures come back as 400 failures.
func Validate[T any](r io.Reader, data *T) error {
	decoder := json.NewDecoder(r)
	err := decoder.Decode(data)

	if err != nil {
		return failure.BadRequest(fmt.Errorf("failed to decode request body: %w", err)) //nolint:wrapcheck
	}

	return ValidateStruct(data)
}

func ValidateStruct[T any](data *T) error {
	err := validate.Struct(data)

	if err != nil {
		msg := message(err)

		return failure.BadRequestFromString(msg) //nolint:wrapcheck
	}

	return nil
}

func ValidateVar(field any, tag string) error {
	err := validate.Var(field, tag)

	if err != nil {
		msg := message(err)

		return failure.BadRequestFromString(msg) //nolint:wrapcheck
	}

	return nil
}
