package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/mstgnz/gmopay/infra/opensearch"
	"github.com/mstgnz/gmopay/infra/response"
)

// maxLogHours caps the lookback window of log queries (7 days)
const maxLogHours = 168

// CallLogSearcher defines the gateway call log queries used by LogsHandler
type CallLogSearcher interface {
	IsEnabled() bool
	SearchGatewayCalls(ctx context.Context, query map[string]any, size int) ([]opensearch.GatewayCallLog, error)
	GetCallsByRequestID(ctx context.Context, requestID string) ([]opensearch.GatewayCallLog, error)
	GetRecentErrorCalls(ctx context.Context, hours int) ([]opensearch.GatewayCallLog, error)
}

// LogsHandler serves the indexed gateway call logs
type LogsHandler struct {
	logs CallLogSearcher
}

// NewLogsHandler creates a new logs handler
func NewLogsHandler(logs CallLogSearcher) *LogsHandler {
	return &LogsHandler{logs: logs}
}

func (h *LogsHandler) available(w http.ResponseWriter) bool {
	if h.logs == nil || !h.logs.IsEnabled() {
		response.Error(w, http.StatusServiceUnavailable, "Logging service not available", nil)
		return false
	}
	return true
}

// ListLogs lists gateway calls filtered by endpoint, status code and errors
func (h *LogsHandler) ListLogs(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), searchTimeout)
	defer cancel()

	q := r.URL.Query()
	hours := parseHours(q.Get("hours"))
	must := []map[string]any{
		{"range": map[string]any{"timestamp": map[string]any{"gte": fmt.Sprintf("now-%dh", hours)}}},
	}

	if endpoint := q.Get("endpoint"); endpoint != "" {
		must = append(must, map[string]any{"term": map[string]any{"endpoint": endpoint}})
	}
	if status := q.Get("status"); status != "" {
		code, err := strconv.Atoi(status)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "status must be a number", err)
			return
		}
		must = append(must, map[string]any{"term": map[string]any{"response.status_code": code}})
	}
	if q.Get("errorsOnly") == "true" {
		must = append(must, map[string]any{"exists": map[string]any{"field": "error.kind"}})
	}

	limit, _ := strconv.Atoi(q.Get("limit"))
	logs, err := h.logs.SearchGatewayCalls(ctx, map[string]any{"bool": map[string]any{"must": must}}, limit)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "Failed to search logs", err)
		return
	}

	response.Success(w, http.StatusOK, "Logs retrieved successfully", map[string]any{
		"filters": map[string]any{
			"hours":      hours,
			"endpoint":   q.Get("endpoint"),
			"status":     q.Get("status"),
			"errorsOnly": q.Get("errorsOnly") == "true",
		},
		"count": len(logs),
		"logs":  logs,
	})
}

// GetRequestLogs returns every gateway attempt made for one request id
func (h *LogsHandler) GetRequestLogs(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}

	requestID := chi.URLParam(r, "requestID")
	if requestID == "" {
		response.Error(w, http.StatusBadRequest, "requestID parameter is required", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), searchTimeout)
	defer cancel()

	logs, err := h.logs.GetCallsByRequestID(ctx, requestID)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "Failed to retrieve logs", err)
		return
	}

	response.Success(w, http.StatusOK, "Logs retrieved successfully", map[string]any{
		"request_id": requestID,
		"count":      len(logs),
		"logs":       logs,
	})
}

// GetErrorLogs returns failed gateway calls from the recent window
func (h *LogsHandler) GetErrorLogs(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), searchTimeout)
	defer cancel()

	hours := parseHours(r.URL.Query().Get("hours"))
	logs, err := h.logs.GetRecentErrorCalls(ctx, hours)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "Failed to get error logs", err)
		return
	}

	response.Success(w, http.StatusOK, "Error logs retrieved successfully", map[string]any{
		"hours": hours,
		"count": len(logs),
		"logs":  logs,
	})
}

// parseHours reads a lookback window, defaulting to 24 and capped at maxLogHours
func parseHours(raw string) int {
	hours, err := strconv.Atoi(raw)
	if err != nil || hours <= 0 || hours > maxLogHours {
		return 24
	}
	return hours
}
