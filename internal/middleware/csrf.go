package middleware

import (
	"net/http"

	"github.com/gorilla/csrf"
)

// CSRFConfig configures form protection for the studio.
type CSRFConfig struct {
	Secret []byte
	// Secure is set in production, where the studio is served over HTTPS.
	Secure bool
	// TrustedOrigins are hosts (host[:port]) whose Origin or Referer is
	// accepted besides the request's own host.
	TrustedOrigins []string
}

// CSRF protects unsafe methods with gorilla/csrf. csrf assumes HTTPS and
// rejects a same-origin http:// Origin, so outside Secure mode every request
// is marked as plaintext before the check.
func CSRF(cfg CSRFConfig) func(http.Handler) http.Handler {
	protect := csrf.Protect(
		cfg.Secret,
		csrf.Secure(cfg.Secure),
		csrf.Path("/"),
		csrf.TrustedOrigins(cfg.TrustedOrigins),
	)
	if cfg.Secure {
		return protect
	}
	return func(next http.Handler) http.Handler {
		protected := protect(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			protected.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
		})
	}
}
