package middleware

import (
	"errors"
	"medsys/shared"
	"medsys/shared/cache"
	"medsys/shared/constant"
	"medsys/transport/http/response"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	cacheKeyRateLimit = "limiter"
	headerRetryAfter  = "Retry-After"
	pathHealth        = "/health"
	unknownUserAgent  = "unknown"
)

// RateLimit counts requests per client IP and user agent in fixed windows.
// Redis errors fail open.
func (a *appMiddleware) RateLimit() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limiter := a.config.App.RateLimiter
			if !limiter.Enable || limiter.WindowSeconds <= 0 || r.URL.Path == pathHealth {
				next.ServeHTTP(w, r)

				return
			}

			now := time.Now().Unix()
			window := int64(limiter.WindowSeconds)
			bucket := now / window
			cacheKey := shared.BuildCacheKey(cacheKeyRateLimit, a.getClientIP(r), a.getUA(r), strconv.FormatInt(bucket, 10))

			var count int

			err := a.cache.Get(r.Context(), cacheKey, &count)
			if err != nil && !errors.Is(err, cache.Nil) {
				log.Warn().Err(err).Msg("rate limiter unavailable, allowing request")
				next.ServeHTTP(w, r)

				return
			}

			count++

			w.Header().Set(constant.RequestHeaderRateLimit, strconv.Itoa(limiter.MaxRequests))
			w.Header().Set(constant.RequestHeaderRateLimitRemaining, strconv.Itoa(max(0, limiter.MaxRequests-count)))
			w.Header().Set(constant.RequestHeaderRateLimitWindow, strconv.Itoa(limiter.WindowSeconds))

			if count > limiter.MaxRequests {
				w.Header().Set(headerRetryAfter, strconv.FormatInt((bucket+1)*window-now, 10))
				response.WithRequestLimitExceeded(w)

				return
			}

			if err := a.cache.Save(r.Context(), cacheKey, count, limiter.WindowSeconds); err != nil {
				log.Warn().Err(err).Msg("failed to store rate limit counter")
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (a *appMiddleware) getUA(r *http.Request) string {
	if ua := r.Header.Get(constant.RequestHeaderUserAgent); ua != "" {
		return ua
	}

	return unknownUserAgent
}

// getClientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the socket address without port.
func (a *appMiddleware) getClientIP(r *http.Request) string {
	if xff := r.Header.Get(constant.RequestHeaderForwardedFor); xff != "" {
		first, _, _ := strings.Cut(xff, ",")

		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get(constant.RequestHeaderRealIP); xri != "" {
		return strings.TrimSpace(xri)
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}

	return r.RemoteAddr
}
