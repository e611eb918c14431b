package response_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"medsys/shared/failure"
	"medsys/transport/http/response"
)

func TestWithError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{
			name:     "failure keeps its message",
			err:      failure.Conflict("Only pending appointments can be changed."),
			wantCode: http.StatusConflict,
			wantBody: `{"error":"Only pending appointments can be changed."}`,
		},
		{
			name:     "infrastructure error is hidden",
			err:      errors.New("failed to load appointment: pq: connection refused"),
			wantCode: http.StatusInternalServerError,
			wantBody: `{"error":"Internal server error."}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()

			response.WithError(rec, tt.err)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestWithJSON(t *testing.T) {
	rec := httptest.NewRecorder()

	response.WithJSON(rec, http.StatusCreated, map[string]string{"id": "appt-1"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"data":{"id":"appt-1"}}`, rec.Body.String())
}

func TestWithPreparingShutdown(t *testing.T) {
	rec := httptest.NewRecorder()

	response.WithPreparingShutdown(rec)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
