package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mstgnz/gmopay/provider"
)

// Response is a standardized API response structure
type Response struct {
	Code    int    `json:"code"`
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   any    `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// ErrorDetail is the error body rendered for typed gateway failures
type ErrorDetail struct {
	Kind     provider.ErrorKind `json:"kind"`
	Code     string             `json:"code,omitempty"`
	Message  string             `json:"message"`
	Status   int                `json:"gateway_status,omitempty"`
	Instance string             `json:"instance,omitempty"`
}

// WriteJSON encodes v with the given status
func WriteJSON(w http.ResponseWriter, statusCode int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(v)
}

// Success writes a successful response with data
func Success(w http.ResponseWriter, statusCode int, message string, data any) {
	resp := Response{
		Code:    statusCode,
		Success: true,
		Message: message,
		Data:    data,
	}
	_ = WriteJSON(w, statusCode, resp)
}

// Error writes an error response
func Error(w http.ResponseWriter, statusCode int, message string, err error) {
	resp := Response{
		Code:    statusCode,
		Success: false,
		Message: message,
	}

	if err != nil {
		resp.Error = err.Error()
	}

	_ = WriteJSON(w, statusCode, resp)
}

// GatewayFailure renders err with the HTTP status of its kind.
// Errors that are not gateway errors are reported as 500 without their text.
func GatewayFailure(w http.ResponseWriter, message string, err error) {
	var gwErr *provider.GatewayError
	if !errors.As(err, &gwErr) {
		Error(w, http.StatusInternalServerError, message, errors.New("internal error"))
		return
	}

	statusCode := StatusFor(gwErr.Kind)
	resp := Response{
		Code:    statusCode,
		Success: false,
		Message: message,
		Error: ErrorDetail{
			Kind:     gwErr.Kind,
			Code:     gwErr.Code,
			Message:  gwErr.Message,
			Status:   gwErr.StatusCode,
			Instance: gwErr.Instance,
		},
	}
	_ = WriteJSON(w, statusCode, resp)
}

// StatusFor returns the HTTP status used to render an error kind.
// A failed credential exchange is an upstream problem and renders as 502.
func StatusFor(kind provider.ErrorKind) int {
	switch kind {
	case provider.KindValidation:
		return http.StatusBadRequest
	case provider.KindNotAuthenticated:
		return http.StatusUnauthorized
	case provider.KindPermission:
		return http.StatusForbidden
	case provider.KindNotFound:
		return http.StatusNotFound
	case provider.KindConnection:
		return http.StatusServiceUnavailable
	case provider.KindConfiguration:
		return http.StatusInternalServerError
	case provider.KindAuthentication, provider.KindGateway:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
