package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medsys/config"
	otelMocks "medsys/infras/otel/mocks"
	"medsys/transport/http/middleware"
)

func TestTracing(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		target     string
		wantSpan   string
		wantRoute  string
		wantErrors int
	}{
		{
			name:      "records route pattern and status",
			status:    http.StatusOK,
			target:    "/v1/appointments/abc",
			wantSpan:  "GET /v1/appointments/abc",
			wantRoute: "/v1/appointments/{id}",
		},
		{
			name:       "server errors are traced",
			status:     http.StatusInternalServerError,
			target:     "/v1/appointments/xyz",
			wantSpan:   "GET /v1/appointments/xyz",
			wantRoute:  "/v1/appointments/{id}",
			wantErrors: 1,
		},
		{
			name:      "client errors are not",
			status:    http.StatusNotFound,
			target:    "/v1/appointments/missing",
			wantSpan:  "GET /v1/appointments/missing",
			wantRoute: "/v1/appointments/{id}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{}
			cfg.App.Name = "medsys"

			recorder := otelMocks.NewRecorder()
			app := middleware.NewAppMiddleware(recorder, cfg, nil)

			router := chi.NewRouter()
			router.Use(app.Tracing)
			router.Get("/v1/appointments/{id}", func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			})

			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			req.Header.Set("User-Agent", "tests")
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			scope := recorder.Scope(tt.wantSpan)
			require.NotNil(t, scope)
			assert.True(t, scope.Ended)
			assert.Equal(t, tt.wantRoute, scope.Attributes["http.route"])
			assert.Equal(t, tt.status, scope.Attributes["http.status_code"])
			assert.Equal(t, "tests", scope.Attributes["http.user_agent"])
			assert.Equal(t, "medsys", scope.Attributes["app.name"])
			assert.Len(t, scope.Errors, tt.wantErrors)
		})
	}
}
