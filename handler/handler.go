package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mstgnz/gmopay/infra/response"
)

const (
	// defaultRequestTimeout applies until SetRequestTimeout is called
	defaultRequestTimeout = 30 * time.Second

	// searchTimeout bounds call log queries
	searchTimeout = 30 * time.Second
)

var requestTimeout atomic.Int64

// SetRequestTimeout sets the deadline for the gateway work done on behalf of
// one inbound request. It should cover a token exchange and a call, each
// with every transport retry.
func SetRequestTimeout(d time.Duration) {
	requestTimeout.Store(int64(d))
}

func gatewayTimeout() time.Duration {
	if d := time.Duration(requestTimeout.Load()); d > 0 {
		return d
	}
	return defaultRequestTimeout
}

// decodeAndValidate reads a JSON body into req and validates it.
// It writes a 400 response and returns false on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v *validator.Validate, req any) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("request body is empty")
		}
		response.Error(w, http.StatusBadRequest, "Invalid request format", err)
		return false
	}

	if err := v.Struct(req); err != nil {
		response.Error(w, http.StatusBadRequest, "Validation error", err)
		return false
	}
	return true
}

// operation describes one JSON-in, gateway-result-out endpoint
type operation[T any] struct {
	call    func(ctx context.Context, req T) (map[string]any, error)
	status  int
	success string
	failure string
}

// serve decodes T, runs op.call under the gateway timeout and renders the outcome
func serve[T any](w http.ResponseWriter, r *http.Request, v *validator.Validate, op operation[T]) {
	ctx, cancel := context.WithTimeout(r.Context(), gatewayTimeout())
	defer cancel()

	var req T
	if !decodeAndValidate(w, r, v, &req) {
		return
	}

	result, err := op.call(ctx, req)
	if err != nil {
		response.GatewayFailure(w, op.failure, err)
		return
	}

	status := op.status
	if status == 0 {
		status = http.StatusOK
	}
	response.Success(w, status, op.success, result)
}
