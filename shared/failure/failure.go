package failure

import (
	"errors"
	"net/http"
)

// Failure is a business error carrying the HTTP status it maps to.
// Anything that is not a Failure surfaces as 500.
type Failure struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ForbiddenError is returned by the RBAC layer when the caller's role is not allowed on a route.
var ForbiddenError = &Failure{Code: http.StatusForbidden, Message: "You don't have the required permissions"}

func (e *Failure) Error() string {
	return e.Message
}

func newFailure(code int, msg string) error {
	return &Failure{Code: code, Message: msg}
}

// BadRequest converts a decoding or validation error into a 400. A nil error stays nil.
func BadRequest(err error) error {
	if err == nil {
		return nil
	}

	return newFailure(http.StatusBadRequest, err.Error())
}

func BadRequestFromString(msg string) error {
	return newFailure(http.StatusBadRequest, msg)
}

// Unauthorized means the caller is not identified.
func Unauthorized(msg string) error {
	return newFailure(http.StatusUnauthorized, msg)
}

// Forbidden means the caller is identified but may not act on the resource.
func Forbidden(msg string) error {
	return newFailure(http.StatusForbidden, msg)
}

func NotFound(msg string) error {
	return newFailure(http.StatusNotFound, msg)
}

// Conflict covers booking rule violations and lost compare-and-set races.
func Conflict(msg string) error {
	return newFailure(http.StatusConflict, msg)
}

// GetCode returns the HTTP status carried by err, or 500.
func GetCode(err error) int {
	var fail *Failure
	if errors.As(err, &fail) {
		return fail.Code
	}

	return http.StatusInternalServerError
}

// HasCode reports whether err is a Failure with the given status.
func HasCode(err error, code int) bool {
	var fail *Failure

	return errors.As(err, &fail) && fail.Code == code
}
