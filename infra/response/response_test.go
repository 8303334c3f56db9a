package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mstgnz/gmopay/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuccessResponse(t *testing.T) {
	w := httptest.NewRecorder()

	Success(w, http.StatusOK, "Test successful", map[string]string{"key": "value"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, map[string]any{"key": "value"}, body["data"])
}

func TestErrorResponse(t *testing.T) {
	w := httptest.NewRecorder()

	Error(w, http.StatusBadRequest, "Test error", errors.New("bad input"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "bad input", body["error"])
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind   provider.ErrorKind
		status int
	}{
		{provider.KindValidation, http.StatusBadRequest},
		{provider.KindNotAuthenticated, http.StatusUnauthorized},
		{provider.KindAuthentication, http.StatusBadGateway},
		{provider.KindPermission, http.StatusForbidden},
		{provider.KindNotFound, http.StatusNotFound},
		{provider.KindConnection, http.StatusServiceUnavailable},
		{provider.KindConfiguration, http.StatusInternalServerError},
		{provider.KindGateway, http.StatusBadGateway},
		{"", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.status, StatusFor(tt.kind))
		})
	}
}

func TestGatewayFailure(t *testing.T) {
	w := httptest.NewRecorder()
	err := fmt.Errorf("create transaction: %w", &provider.GatewayError{
		Kind:        provider.KindGateway,
		StatusCode:  200,
		Code:        "G12",
		Message:     "gateway rejected the request (info: G12000001) - The card was rejected by the payment processor",
		RawResponse: "ErrCode=G12",
	})

	GatewayFailure(w, "Failed to create transaction", err)

	assert.Equal(t, http.StatusBadGateway, w.Code)

	var body struct {
		Success bool        `json:"success"`
		Message string      `json:"message"`
		Error   ErrorDetail `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "Failed to create transaction", body.Message)
	assert.Equal(t, provider.KindGateway, body.Error.Kind)
	assert.Equal(t, "G12", body.Error.Code)
	assert.Contains(t, body.Error.Message, "rejected by the payment processor")
	assert.NotContains(t, w.Body.String(), "ErrCode=G12")
}

func TestGatewayFailureForeignError(t *testing.T) {
	w := httptest.NewRecorder()

	GatewayFailure(w, "Failed", errors.New("dial tcp 10.0.0.1:443: secret detail"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "secret detail")
}

func BenchmarkSuccessResponse(b *testing.B) {
	data := map[string]string{"test": "data"}

	for i := 0; i < b.N; i++ {
		w := httptest.NewRecorder()
		Success(w, http.StatusOK, "Benchmark test", data)
	}
}
