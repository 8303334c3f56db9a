package middle

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mstgnz/gmopay/infra/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("success"))
	})
}

func TestAuthMiddleware(t *testing.T) {
	handler := AuthMiddleware("test-api-key")(okHandler())

	tests := []struct {
		name           string
		authHeader     string
		expectedStatus int
	}{
		{"Valid API key", "Bearer test-api-key", http.StatusOK},
		{"Invalid API key", "Bearer wrong-key", http.StatusUnauthorized},
		{"Missing Authorization header", "", http.StatusUnauthorized},
		{"Invalid format", "Basic test-api-key", http.StatusUnauthorized},
		{"Empty Bearer token", "Bearer ", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}

			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			assert.Equal(t, tt.expectedStatus, rr.Code)
		})
	}
}

func TestAuthMiddleware_APIKeyHeader(t *testing.T) {
	handler := AuthMiddleware("test-api-key")(okHandler())

	for key, want := range map[string]int{
		"test-api-key": http.StatusOK,
		"wrong-key":    http.StatusUnauthorized,
	} {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(APIKeyHeader, key)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, want, rr.Code, key)
	}
}

func TestAuthMiddleware_NotConfigured(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer anything")

	AuthMiddleware("")(okHandler()).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	defer rl.Stop()

	now := time.Unix(1_700_000_000, 0)
	rl.now = func() time.Time { return now }

	clientIP := "192.168.1.1"
	assert.True(t, rl.Allow(clientIP), "first request should be allowed")
	assert.True(t, rl.Allow(clientIP), "second request should be allowed")
	assert.False(t, rl.Allow(clientIP), "third request should be blocked")
	assert.True(t, rl.Allow("192.168.1.2"), "other clients have their own bucket")

	now = now.Add(time.Second)
	assert.True(t, rl.Allow(clientIP), "a token refills after a second")
}

func TestRateLimiter_Evict(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	defer rl.Stop()

	now := time.Unix(1_700_000_000, 0)
	rl.now = func() time.Time { return now }
	rl.Allow("10.0.0.1")

	now = now.Add(visitorTTL + time.Second)
	rl.Allow("10.0.0.2")
	rl.evict()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.NotContains(t, rl.visitors, "10.0.0.1")
	assert.Contains(t, rl.visitors, "10.0.0.2")
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	defer rl.Stop()
	handler := RateLimitMiddleware(rl)(okHandler())

	req1 := httptest.NewRequest(http.MethodGet, "/test", nil)
	req1.RemoteAddr = "192.168.1.1:12345"
	rr1 := httptest.NewRecorder()
	handler.ServeHTTP(rr1, req1)
	assert.Equal(t, http.StatusOK, rr1.Code)

	req2 := httptest.NewRequest(http.MethodGet, "/test", nil)
	req2.RemoteAddr = "192.168.1.1:12346"
	rr2 := httptest.NewRecorder()
	handler.ServeHTTP(rr2, req2)
	assert.Equal(t, http.StatusTooManyRequests, rr2.Code)
	assert.Equal(t, "1", rr2.Header().Get("Retry-After"))
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		expected   string
	}{
		{"forwarded_for_first", map[string]string{"X-Forwarded-For": "203.0.113.1, 10.0.0.1"}, "10.0.0.2:1", "203.0.113.1"},
		{"real_ip", map[string]string{"X-Real-IP": " 203.0.113.9 "}, "10.0.0.2:1", "203.0.113.9"},
		{"remote_addr", nil, "192.168.1.5:4321", "192.168.1.5"},
		{"ipv6_localhost", nil, "[::1]:4321", "127.0.0.1"},
		{"no_port", nil, "192.168.1.6", "192.168.1.6"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.expected, GetClientIP(req))
		})
	}
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	rr := httptest.NewRecorder()
	SecurityHeadersMiddleware()(okHandler()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/test", nil))

	expectedHeaders := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "no-referrer",
		"Cache-Control":          "no-store",
	}
	for header, expectedValue := range expectedHeaders {
		assert.Equal(t, expectedValue, rr.Header().Get(header), header)
	}
	assert.Contains(t, rr.Header().Get("Content-Security-Policy"), "default-src 'none'")
}

func TestIPWhitelistMiddleware(t *testing.T) {
	handler := IPWhitelistMiddleware([]string{"127.0.0.1", "192.168.1.100"})(okHandler())

	tests := []struct {
		name           string
		clientIP       string
		expectedStatus int
	}{
		{"Whitelisted IP", "127.0.0.1", http.StatusOK},
		{"Another whitelisted IP", "192.168.1.100", http.StatusOK},
		{"Non-whitelisted IP", "192.168.1.99", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.RemoteAddr = tt.clientIP + ":12345"

			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			assert.Equal(t, tt.expectedStatus, rr.Code)
		})
	}

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.RemoteAddr = "8.8.8.8:1"
	IPWhitelistMiddleware(nil)(okHandler()).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code, "an empty whitelist allows everyone")
}

func TestRequestValidationMiddleware(t *testing.T) {
	handler := RequestValidationMiddleware()(okHandler())

	tests := []struct {
		name           string
		method         string
		contentType    string
		contentLength  int64
		expectedStatus int
	}{
		{"Valid JSON POST", http.MethodPost, "application/json; charset=utf-8", 9, http.StatusOK},
		{"Form POST rejected", http.MethodPost, "application/x-www-form-urlencoded", 9, http.StatusUnsupportedMediaType},
		{"Missing content type", http.MethodPost, "", 9, http.StatusBadRequest},
		{"GET request without content type", http.MethodGet, "", 0, http.StatusOK},
		{"Request too large", http.MethodPost, "application/json", 2 << 20, http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/test", strings.NewReader("test body"))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			req.ContentLength = tt.contentLength

			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			assert.Equal(t, tt.expectedStatus, rr.Code)
		})
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	handler := RequestIDMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	handler.ServeHTTP(rr, req)
	assert.Equal(t, "req-123", seen)
	assert.Equal(t, "req-123", rr.Header().Get(RequestIDHeader))

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, seen, 36)
	assert.Equal(t, seen, rr.Header().Get(RequestIDHeader))
}

func TestRequestLoggingMiddleware(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	sl := logger.NewSystemLoggerWithZap(zap.New(core), nil, logger.SystemLoggerConfig{
		EnableConsole: true,
		MinLevel:      logger.LevelDebug,
		Service:       "test",
	})

	handler := RequestIDMiddleware()(RequestLoggingMiddleware(sl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})))

	req := httptest.NewRequest(http.MethodPost, "/v1/members/inquiry", strings.NewReader(`{"member_id":"MEM-1"}`))
	req.Header.Set(RequestIDHeader, "req-9")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "POST /v1/members/inquiry 404", entries[0].Message)

	fields := entries[0].ContextMap()
	assert.EqualValues(t, 404, fields["status"])
	assert.NotContains(t, entries[0].Message, "MEM-1")
}
