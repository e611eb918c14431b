package middleware

import (
	"fmt"
	"medsys/config"
	"medsys/infras/otel"
	"medsys/shared/cache"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

const (
	otelHTTPScopeName = "http"
)

type AppMiddleware interface {
	Tracing(next http.Handler) http.Handler
	RateLimit() func(http.Handler) http.Handler
}

type appMiddleware struct {
	otel   otel.Otel
	config *config.Config
	cache  cache.RedisCache
}

func NewAppMiddleware(otel otel.Otel, config *config.Config, cache cache.RedisCache) AppMiddleware {
	return &appMiddleware{
		otel:   otel,
		config: config,
		cache:  cache,
	}
}

// Tracing opens one span per request and records the final status code.
func (a *appMiddleware) Tracing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, scope := a.otel.NewScope(r.Context(), otelHTTPScopeName, fmt.Sprintf("%s %s", r.Method, r.URL.Path))
		defer scope.End()

		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r.WithContext(ctx))

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}

		scope.SetAttributes(map[string]any{
			"app.name":         a.config.App.Name,
			"http.path":        r.URL.Path,
			"http.route":       route,
			"http.method":      r.Method,
			"http.user_agent":  a.getUA(r),
			"http.host":        r.Host,
			"http.source":      a.getClientIP(r),
			"http.status_code": ww.Status(),
		})

		if ww.Status() >= http.StatusInternalServerError {
			scope.TraceError(fmt.Errorf("request failed with status %d", ww.Status()))
		}
	})
}
