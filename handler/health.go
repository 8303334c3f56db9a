package handler

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/mstgnz/gmopay/infra/response"
	"github.com/mstgnz/gmopay/provider/gmo"
)

// GatewayStatus exposes the gateway client state reported by the health check
type GatewayStatus interface {
	State() gmo.AuthState
	Environment() gmo.Environment
}

// HealthOptions configures the optional parts of the health report
type HealthOptions struct {
	// DB is the token cache database, nil when the cache is in memory
	DB *sql.DB
	// CacheBackend names the token cache backend (memory, sqlite, postgres)
	CacheBackend string
	// SearchEnabled reports whether gateway calls are indexed to OpenSearch
	SearchEnabled bool
	Version       string
}

// HealthHandler handles health check requests
type HealthHandler struct {
	gateway   GatewayStatus
	opts      HealthOptions
	startTime time.Time
}

// HealthStatus represents overall service health
type HealthStatus struct {
	Status     string         `json:"status"`
	Version    string         `json:"version"`
	Timestamp  time.Time      `json:"timestamp"`
	Uptime     string         `json:"uptime"`
	Gateway    *GatewayHealth `json:"gateway"`
	TokenCache *CacheHealth   `json:"token_cache"`
	Search     *ServiceHealth `json:"search"`
	System     *SystemHealth  `json:"system"`
}

// GatewayHealth reports the gateway client's credentials state
type GatewayHealth struct {
	Status      string `json:"status"`
	AuthState   string `json:"auth_state"`
	Environment string `json:"environment"`
}

// CacheHealth reports the token cache backend
type CacheHealth struct {
	Status       string `json:"status"`
	Backend      string `json:"backend"`
	ResponseTime string `json:"response_time,omitempty"`
	OpenConns    int    `json:"open_connections,omitempty"`
	Error        string `json:"error,omitempty"`
}

// ServiceHealth represents an optional supporting service
type ServiceHealth struct {
	Status      string `json:"status"`
	Enabled     bool   `json:"enabled"`
	Description string `json:"description,omitempty"`
}

// SystemHealth represents process resource usage
type SystemHealth struct {
	Alloc      string `json:"alloc"`
	Sys        string `json:"sys"`
	GCRuns     uint32 `json:"gc_runs"`
	GoRoutines int    `json:"goroutines"`
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(gateway GatewayStatus, opts HealthOptions) *HealthHandler {
	if opts.CacheBackend == "" {
		opts.CacheBackend = "memory"
	}
	if opts.Version == "" {
		opts.Version = "1.0.0"
	}
	return &HealthHandler{
		gateway:   gateway,
		opts:      opts,
		startTime: time.Now(),
	}
}

// CheckHealth reports gateway, token cache and process health
func (h *HealthHandler) CheckHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	health := &HealthStatus{
		Version:    h.opts.Version,
		Timestamp:  time.Now().UTC(),
		Uptime:     time.Since(h.startTime).Round(time.Second).String(),
		Gateway:    h.checkGateway(),
		TokenCache: h.checkTokenCache(ctx),
		Search:     h.checkSearch(),
		System:     checkSystem(),
	}
	health.Status = determineOverallStatus(health)

	statusCode := http.StatusOK
	if health.Status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	_ = response.WriteJSON(w, statusCode, response.Response{
		Success: health.Status != "unhealthy",
		Message: fmt.Sprintf("Service is %s", health.Status),
		Data:    health,
	})
}

func (h *HealthHandler) checkGateway() *GatewayHealth {
	if h.gateway == nil {
		return &GatewayHealth{Status: "not_configured", AuthState: gmo.StateUnauthenticated.String()}
	}
	// tokens are fetched lazily, so unauthenticated is still healthy
	return &GatewayHealth{
		Status:      "healthy",
		AuthState:   h.gateway.State().String(),
		Environment: string(h.gateway.Environment()),
	}
}

func (h *HealthHandler) checkTokenCache(ctx context.Context) *CacheHealth {
	cache := &CacheHealth{Backend: h.opts.CacheBackend, Status: "healthy"}
	if h.opts.DB == nil {
		return cache
	}

	start := time.Now()
	if err := h.opts.DB.PingContext(ctx); err != nil {
		cache.Status = "unhealthy"
		cache.Error = err.Error()
		return cache
	}
	elapsed := time.Since(start)
	cache.ResponseTime = fmt.Sprintf("%.0fms", float64(elapsed.Nanoseconds())/1e6)
	cache.OpenConns = h.opts.DB.Stats().OpenConnections
	if elapsed > time.Second {
		cache.Status = "degraded"
	}
	return cache
}

func (h *HealthHandler) checkSearch() *ServiceHealth {
	if !h.opts.SearchEnabled {
		return &ServiceHealth{Status: "not_configured", Description: "Gateway call indexing disabled"}
	}
	return &ServiceHealth{Status: "healthy", Enabled: true, Description: "Gateway calls indexed to OpenSearch"}
}

func checkSystem() *SystemHealth {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	return &SystemHealth{
		Alloc:      formatBytes(memStats.Alloc),
		Sys:        formatBytes(memStats.Sys),
		GCRuns:     memStats.NumGC,
		GoRoutines: runtime.NumGoroutine(),
	}
}

func determineOverallStatus(health *HealthStatus) string {
	if health.Gateway.Status != "healthy" || health.TokenCache.Status == "unhealthy" {
		return "unhealthy"
	}
	if health.TokenCache.Status == "degraded" {
		return "degraded"
	}
	return "healthy"
}

func formatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
