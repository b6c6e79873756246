package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/yenharbor/payment-core/internal/application"
	"github.com/yenharbor/payment-core/internal/interfaces/rest"
	"github.com/yenharbor/payment-core/internal/metrics"
)

// RateLimit gates deliveries per source IP through the injected limiter.
func RateLimit(limiter application.RateLimiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			key := ClientIP(r)
			decision := limiter.Allow(r.Context(), key)
			if !decision.Allowed {
				metrics.RateLimited.Inc()
				logger.Warn("rate limit exceeded", "source", key)
				retryAfter := int(decision.RetryAfter.Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				rest.WriteError(w, application.NewRateLimitedError(), logger)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP identifies the delivery source: first value of the trusted
// forwarded header when present, otherwise the direct peer address.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
