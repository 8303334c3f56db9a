package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/mstgnz/gmopay/infra/opensearch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockCallLogSearcher struct {
	enabled   bool
	err       error
	lastQuery map[string]any
	lastSize  int
	lastID    string
	lastHours int
}

func (m *mockCallLogSearcher) IsEnabled() bool { return m.enabled }

func (m *mockCallLogSearcher) SearchGatewayCalls(ctx context.Context, query map[string]any, size int) ([]opensearch.GatewayCallLog, error) {
	m.lastQuery, m.lastSize = query, size
	return m.result()
}

func (m *mockCallLogSearcher) GetCallsByRequestID(ctx context.Context, requestID string) ([]opensearch.GatewayCallLog, error) {
	m.lastID = requestID
	return m.result()
}

func (m *mockCallLogSearcher) GetRecentErrorCalls(ctx context.Context, hours int) ([]opensearch.GatewayCallLog, error) {
	m.lastHours = hours
	return m.result()
}

func (m *mockCallLogSearcher) result() ([]opensearch.GatewayCallLog, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []opensearch.GatewayCallLog{
		{Endpoint: "/credit/v1/orders", RequestID: "req-1", Response: opensearch.ResponseLog{StatusCode: 502}},
	}, nil
}

func serveLogs(t *testing.T, h http.HandlerFunc, target string, params map[string]string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if params != nil {
		rctx := chi.NewRouteContext()
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}
	w := httptest.NewRecorder()
	h(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w.Code, env
}

func TestLogsHandler_Unavailable(t *testing.T) {
	for name, h := range map[string]*LogsHandler{
		"nil searcher":    NewLogsHandler(nil),
		"disabled search": NewLogsHandler(&mockCallLogSearcher{}),
	} {
		t.Run(name, func(t *testing.T) {
			code, env := serveLogs(t, h.GetErrorLogs, "/v1/logs/errors", nil)
			assert.Equal(t, http.StatusServiceUnavailable, code)
			assert.Equal(t, "Logging service not available", env.Message)
		})
	}
}

func TestLogsHandler_ListLogs(t *testing.T) {
	searcher := &mockCallLogSearcher{enabled: true}
	h := NewLogsHandler(searcher)

	code, env := serveLogs(t, h.ListLogs, "/v1/logs?endpoint=/credit/v1/orders&status=502&errorsOnly=true&hours=6&limit=20", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), env.Data["count"])
	assert.Equal(t, 20, searcher.lastSize)

	must := searcher.lastQuery["bool"].(map[string]any)["must"].([]map[string]any)
	require.Len(t, must, 4)
	assert.Equal(t, map[string]any{"gte": "now-6h"}, must[0]["range"].(map[string]any)["timestamp"])
	assert.Equal(t, "/credit/v1/orders", must[1]["term"].(map[string]any)["endpoint"])
	assert.Equal(t, 502, must[2]["term"].(map[string]any)["response.status_code"])
	assert.Contains(t, must[3], "exists")
}

func TestLogsHandler_ListLogsBadStatus(t *testing.T) {
	h := NewLogsHandler(&mockCallLogSearcher{enabled: true})
	code, _ := serveLogs(t, h.ListLogs, "/v1/logs?status=bad", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestLogsHandler_GetRequestLogs(t *testing.T) {
	searcher := &mockCallLogSearcher{enabled: true}
	h := NewLogsHandler(searcher)

	code, env := serveLogs(t, h.GetRequestLogs, "/v1/logs/requests/req-1", map[string]string{"requestID": "req-1"})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "req-1", searcher.lastID)
	assert.Equal(t, "req-1", env.Data["request_id"])

	code, _ = serveLogs(t, h.GetRequestLogs, "/v1/logs/requests/", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestLogsHandler_GetErrorLogs(t *testing.T) {
	tests := []struct {
		query     string
		wantHours int
	}{
		{"", 24},
		{"?hours=12", 12},
		{"?hours=0", 24},
		{"?hours=500", 24},
		{"?hours=abc", 24},
	}

	for _, tt := range tests {
		t.Run("hours"+tt.query, func(t *testing.T) {
			searcher := &mockCallLogSearcher{enabled: true}
			h := NewLogsHandler(searcher)

			code, env := serveLogs(t, h.GetErrorLogs, "/v1/logs/errors"+tt.query, nil)
			assert.Equal(t, http.StatusOK, code)
			assert.Equal(t, tt.wantHours, searcher.lastHours)
			assert.Equal(t, float64(tt.wantHours), env.Data["hours"])
		})
	}
}

func TestLogsHandler_SearchError(t *testing.T) {
	h := NewLogsHandler(&mockCallLogSearcher{enabled: true, err: errors.New("cluster down")})
	code, env := serveLogs(t, h.GetErrorLogs, "/v1/logs/errors", nil)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "Failed to get error logs", env.Message)
}
