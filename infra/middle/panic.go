package middle

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/mstgnz/gmopay/infra/logger"
	"github.com/mstgnz/gmopay/infra/response"
)

// PanicRecoveryMiddleware handles panics and converts them to HTTP 500 errors
func PanicRecoveryMiddleware() func(http.Handler) http.Handler {
	return PanicRecoveryWithCustomHandler(func(w http.ResponseWriter, r *http.Request, recovered any) {
		requestID := GetRequestID(r.Context())
		if requestID == "" {
			requestID = "unknown"
		}

		logger.Error("Panic recovered", fmt.Errorf("%v", recovered), logger.LogContext{
			RequestID: requestID,
			Fields: map[string]any{
				"method": r.Method,
				"path":   r.URL.Path,
				"stack":  string(debug.Stack()),
			},
		})

		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		response.Error(w, http.StatusInternalServerError, "Internal server error", errors.New("an unexpected error occurred"))
	})
}

// PanicRecoveryWithCustomHandler allows custom panic handling.
// http.ErrAbortHandler is re-panicked so the server can abort the response.
func PanicRecoveryWithCustomHandler(handler func(http.ResponseWriter, *http.Request, any)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}
					handler(w, r, err)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
