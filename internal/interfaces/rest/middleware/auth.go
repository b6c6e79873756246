package middleware

import (
	"log/slog"
	"net/http"

	"github.com/yenharbor/payment-core/internal/application"
	"github.com/yenharbor/payment-core/internal/infrastructure/paygate"
	"github.com/yenharbor/payment-core/internal/interfaces/rest"
)

// APIKeyAuth authenticates webhook deliveries against the shared secret.
// An empty configured secret fails closed with a 500: silently accepting
// unauthenticated payment notifications is the one misconfiguration this
// layer must never allow.
func APIKeyAuth(secret string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			if secret == "" {
				logger.Error("webhook secret not configured, rejecting delivery")
				rest.WriteError(w, application.NewMisconfiguredError(), logger)
				return
			}

			cred := ExtractCredential(r)
			if cred.Status != CredentialFound {
				rest.WriteError(w, application.NewUnauthorizedError(), logger)
				return
			}

			if !paygate.ConstantTimeEquals(cred.Token, secret) {
				logger.Warn("webhook delivery with invalid credential",
					"remote", r.RemoteAddr,
				)
				rest.WriteError(w, application.NewUnauthorizedError(), logger)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
