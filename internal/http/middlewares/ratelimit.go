package middlewares

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	apperrors "github.com/dropDatabas3/socialgate/internal/http/errors"
	"github.com/dropDatabas3/socialgate/internal/observability/logger"
	"github.com/dropDatabas3/socialgate/internal/rate"
)

// WithRateLimit enforces a per-client request budget. The limiter is
// keyed by client IP; X-Forwarded-For takes precedence so the limiter
// works behind a reverse proxy.
func WithRateLimit(limiter rate.Limiter, max int64) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientIP(r)

			res, err := limiter.Allow(r.Context(), key)
			if err != nil {
				// A broken limiter backend must not take the login
				// flow down with it.
				logger.From(r.Context()).Warn("rate limiter unavailable, allowing request",
					logger.Err(err),
				)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(max, 10))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))

			if !res.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds())+1))
				logger.From(r.Context()).Warn("rate limit exceeded",
					logger.ClientIP(key),
				)
				apperrors.WriteError(w, apperrors.ErrTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
