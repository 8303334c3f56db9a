package provider

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHTTPClient(baseURL string, retries int) *ProviderHTTPClient {
	return NewProviderHTTPClient(&HTTPClientConfig{
		BaseURL:        baseURL,
		Timeout:        time.Second,
		DefaultHeaders: map[string]string{"User-Agent": "gmopay-test"},
		Retry: RetryPolicy{
			MaxRetries:    retries,
			BackoffFactor: time.Millisecond,
			MaxBackoff:    5 * time.Millisecond,
		},
	})
}

func TestProviderHTTPClient_SendJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/credit/charge", r.URL.Path)
		assert.Equal(t, ContentTypeJSON, r.Header.Get("Content-Type"))
		assert.Equal(t, "gmopay-test", r.Header.Get("User-Agent"))
		assert.Equal(t, "Bearer abc", r.Header.Get("Authorization"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ORD-1", body["orderId"])

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := newTestHTTPClient(server.URL+"/api/", 0)
	resp, err := client.SendJSON(context.Background(), &HTTPRequest{
		Method:   http.MethodPost,
		Endpoint: "/credit/charge",
		Headers:  map[string]string{"Authorization": "Bearer abc"},
		Body:     map[string]any{"orderId": "ORD-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.True(t, resp.IsSuccess())
	assert.Equal(t, `{"ok":true}`, resp.RawBody)
}

func TestProviderHTTPClient_SendFormWithQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, ContentTypeForm, r.Header.Get("Content-Type"))
		assert.Equal(t, "1", r.URL.Query().Get("v"))
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "ORD 1", r.PostForm.Get("OrderID"))
		_, _ = w.Write([]byte("AccessID=a1"))
	}))
	defer server.Close()

	client := newTestHTTPClient(server.URL, 0)
	resp, err := client.SendForm(context.Background(), &HTTPRequest{
		Method:      http.MethodPost,
		Endpoint:    "EntryTran.idPass",
		FormData:    map[string]string{"OrderID": "ORD 1"},
		QueryParams: map[string]string{"v": "1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "AccessID=a1", resp.RawBody)
}

func TestProviderHTTPClient_AbsoluteEndpointIgnoresBaseURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/oauth/token", r.URL.Path)
	}))
	defer server.Close()

	client := newTestHTTPClient("http://unused.invalid/api", 0)
	_, err := client.SendForm(context.Background(), &HTTPRequest{
		Method:   http.MethodPost,
		Endpoint: server.URL + "/oauth/token",
	})
	require.NoError(t, err)
}

func TestProviderHTTPClient_ErrorStatusIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"title":"G30"}`))
	}))
	defer server.Close()

	resp, err := newTestHTTPClient(server.URL, 3).SendJSON(context.Background(), &HTTPRequest{Method: http.MethodGet, Endpoint: "order"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.False(t, resp.IsSuccess())
}

func TestProviderHTTPClient_RetriesRetryableStatuses(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, `{"n":1}`, string(body), "body is replayed on every attempt")
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	resp, err := newTestHTTPClient(server.URL, 3).SendJSON(context.Background(), &HTTPRequest{
		Method: http.MethodPost, Endpoint: "x", Body: map[string]int{"n": 1},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), calls.Load())
}

func TestProviderHTTPClient_DoesNotRetryInternalServerError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	resp, err := newTestHTTPClient(server.URL, 3).SendJSON(context.Background(), &HTTPRequest{Method: http.MethodGet, Endpoint: "x"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestProviderHTTPClient_RetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := newTestHTTPClient(server.URL, 2).SendJSON(context.Background(), &HTTPRequest{Method: http.MethodGet, Endpoint: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnection)

	var gwErr *GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, http.StatusServiceUnavailable, gwErr.StatusCode)
	assert.Contains(t, err.Error(), "giving up after 3 attempt(s)")
	assert.Equal(t, int32(3), calls.Load())
}

func TestProviderHTTPClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()
	defer close(release)

	client := NewProviderHTTPClient(&HTTPClientConfig{BaseURL: server.URL, Timeout: 30 * time.Millisecond})
	_, err := client.SendJSON(context.Background(), &HTTPRequest{Method: http.MethodGet, Endpoint: "slow"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnection)
	assert.Contains(t, err.Error(), "request timed out after 30ms")
	assert.Equal(t, 30*time.Millisecond, client.Timeout())
}

func TestProviderHTTPClient_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestHTTPClient(server.URL, 0).SendJSON(ctx, &HTTPRequest{Method: http.MethodGet, Endpoint: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnection)
	assert.Contains(t, err.Error(), "request cancelled")
}

func TestProviderHTTPClient_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := newTestHTTPClient(url, 0).SendJSON(context.Background(), &HTTPRequest{Method: http.MethodGet, Endpoint: "x"})
	assert.ErrorIs(t, err, ErrConnection)
	assert.True(t, IsRetryable(err))
}

func TestProviderHTTPClient_CircuitBreakerOpens(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewProviderHTTPClient(&HTTPClientConfig{
		BaseURL: server.URL,
		Timeout: time.Second,
		Retry:   RetryPolicy{MaxRetries: 0, BackoffFactor: time.Millisecond},
		Breaker: BreakerConfig{Enabled: true, Name: "test", MaxFailures: 2, OpenTimeout: time.Minute},
	})

	for i := 0; i < 2; i++ {
		_, err := client.SendJSON(context.Background(), &HTTPRequest{Method: http.MethodGet, Endpoint: "x"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "gateway unavailable")
	}

	_, err := client.SendJSON(context.Background(), &HTTPRequest{Method: http.MethodGet, Endpoint: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnection)
	assert.Contains(t, err.Error(), "circuit breaker is open")
	assert.Equal(t, int32(2), calls.Load())
}

func TestProviderHTTPClient_UnsupportedBody(t *testing.T) {
	client := newTestHTTPClient("http://unused.invalid", 0)
	_, err := client.SendRaw(context.Background(), &HTTPRequest{Method: http.MethodPost, Endpoint: "x", Body: 42})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRetryPolicy_IsRetryableStatus(t *testing.T) {
	p := DefaultRetryPolicy()
	assert.True(t, p.IsRetryableStatus(http.StatusBadGateway))
	assert.True(t, p.IsRetryableStatus(http.StatusServiceUnavailable))
	assert.True(t, p.IsRetryableStatus(http.StatusGatewayTimeout))
	assert.False(t, p.IsRetryableStatus(http.StatusInternalServerError))
	assert.False(t, p.IsRetryableStatus(http.StatusTooManyRequests))
}

func TestRetryPolicy_Budget(t *testing.T) {
	tests := []struct {
		name   string
		policy RetryPolicy
		want   time.Duration
	}{
		{"no retries", RetryPolicy{BackoffFactor: time.Second}, 30 * time.Second},
		{"default policy", DefaultRetryPolicy(), 120*time.Second + 3500*time.Millisecond},
		{"capped backoff", RetryPolicy{MaxRetries: 3, BackoffFactor: 2 * time.Second, MaxBackoff: 3 * time.Second}, 120*time.Second + 8*time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.policy.Budget(30*time.Second))
		})
	}
}

func TestProviderHTTPClient_CallBudget(t *testing.T) {
	c := NewProviderHTTPClient(&HTTPClientConfig{Timeout: time.Second, Retry: RetryPolicy{MaxRetries: 2, BackoffFactor: 100 * time.Millisecond}})
	assert.Equal(t, 3*time.Second+300*time.Millisecond, c.CallBudget())
}

func TestJoinURL(t *testing.T) {
	assert.Equal(t, "https://api/x", joinURL("https://api", "x"))
	assert.Equal(t, "https://api/x", joinURL("https://api/", "/x"))
	assert.Equal(t, "https://api/x", joinURL("https://api/", "x"))
	assert.Equal(t, "https://api/x", joinURL("https://api", "/x"))
}
