package middle

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/mstgnz/gmopay/infra/logger"
	"github.com/mstgnz/gmopay/infra/response"
)

// APIKeyHeader is accepted as an alternative to a bearer token
const APIKeyHeader = "X-API-Key"

// AuthMiddleware guards the gateway API with a single shared key sent as
// "Authorization: Bearer <key>" or in the X-API-Key header.
func AuthMiddleware(expectedAPIKey string) func(http.Handler) http.Handler {
	expected := []byte(expectedAPIKey)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(expected) == 0 {
				response.Error(w, http.StatusInternalServerError, "API key not configured", nil)
				return
			}

			apiKey, problem := apiKeyFrom(r)
			if problem == "" && subtle.ConstantTimeCompare([]byte(apiKey), expected) != 1 {
				problem = "Invalid API key"
			}
			if problem != "" {
				logger.Warn("Rejected API request", logger.LogContext{
					RequestID: GetRequestID(r.Context()),
					Fields: map[string]any{
						"reason":    problem,
						"path":      r.URL.Path,
						"client_ip": GetClientIP(r),
					},
				})
				response.Error(w, http.StatusUnauthorized, problem, nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// apiKeyFrom returns the presented key, or a client-facing reason it is missing
func apiKeyFrom(r *http.Request) (string, string) {
	if key := strings.TrimSpace(r.Header.Get(APIKeyHeader)); key != "" {
		return key, ""
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", "Authorization header required"
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", "Invalid authorization format. Use: Bearer <api_key>"
	}

	key := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if key == "" {
		return "", "API key required"
	}
	return key, ""
}
