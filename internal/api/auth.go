package api

import (
	"crypto/subtle"
	"fmt"
	"net/http"

	"github.com/FocuswithJustin/versetrack/internal/logging"
)

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	Enabled bool
	APIKey  string
}

// AuthMiddleware requires an X-API-Key header matching the configured key when
// auth is enabled. WebSocket clients that cannot set headers may pass api_key
// as a query parameter. /health is always public.
func AuthMiddleware(authCfg AuthConfig, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !authCfg.Enabled || r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		apiKey := r.Header.Get("X-API-Key")
		if apiKey == "" {
			apiKey = r.URL.Query().Get("api_key")
		}
		if apiKey == "" {
			logging.SecurityEvent(r.Context(), "unauthorized_request", "auth",
				"path", r.URL.Path,
				"reason", "missing API key")
			respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing X-API-Key header")
			return
		}

		if !constantTimeCompare(apiKey, authCfg.APIKey) {
			logging.SecurityEvent(r.Context(), "unauthorized_request", "auth",
				"path", r.URL.Path,
				"reason", "invalid API key")
			respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ValidateAuthConfig validates the authentication configuration.
func ValidateAuthConfig(cfg AuthConfig) error {
	if cfg.Enabled && cfg.APIKey == "" {
		return fmt.Errorf("API key is required when authentication is enabled")
	}
	if cfg.Enabled && len(cfg.APIKey) < 16 {
		return fmt.Errorf("API key must be at least 16 characters (got %d)", len(cfg.APIKey))
	}
	return nil
}

func constantTimeCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
