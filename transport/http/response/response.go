package response

import (
	"encoding/json"
	"medsys/shared/constant"
	"medsys/shared/failure"
	"medsys/shared/logger"
	"net/http"
)

const messageInternalError = "Internal server error."

type Data[T any] struct {
	Data *T `json:"data,omitempty"`
}

type Error struct {
	Error *string `json:"error,omitempty"`
}

type Message struct {
	Message *string `json:"message,omitempty"`
}

func WithMessage(writer http.ResponseWriter, code int, message string) {
	write(writer, code, Message{Message: &message})
}

func WithJSON(writer http.ResponseWriter, code int, jsonPayload any) {
	write(writer, code, Data[any]{Data: &jsonPayload})
}

// WithError writes {"error": message}. Failures keep their message; anything
// else becomes a generic 500 and the cause is only logged.
func WithError(writer http.ResponseWriter, err error) {
	code := failure.GetCode(err)
	errMsg := err.Error()

	if code >= http.StatusInternalServerError {
		logger.ErrorWithStack(err)

		errMsg = messageInternalError
	}

	write(writer, code, Error{Error: &errMsg})
}

func WithRequestLimitExceeded(writer http.ResponseWriter) {
	WithMessage(writer, http.StatusTooManyRequests, constant.ResponseErrorRequestLimitExceeded)
}

// WithPreparingShutdown answers health probes during the shutdown grace period.
func WithPreparingShutdown(writer http.ResponseWriter) {
	WithMessage(writer, http.StatusServiceUnavailable, constant.ResponseErrorPrepareShutdown)
}

func write(writer http.ResponseWriter, code int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		logger.ErrorWithStack(err)
		writer.WriteHeader(http.StatusInternalServerError)

		return
	}

	writer.Header().Set(constant.RequestHeaderContentType, constant.ContentTypeJSON)
	writer.WriteHeader(code)

	if _, err = writer.Write(body); err != nil {
		logger.ErrorWithStack(err)
	}
}
