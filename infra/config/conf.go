package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Token cache backends
const (
	CacheMemory   = "memory"
	CacheSQLite   = "sqlite"
	CachePostgres = "postgres"
)

// AppConfig represents the application configuration
type AppConfig struct {
	Port           string
	Env            string
	APIKey         string
	LogLevel       string
	OpenSearchURL  string
	OpenSearchUser string
	OpenSearchPass string
	EnableLogging  bool

	RateLimitRPS   float64
	RateLimitBurst int
	AllowedIPs     []string

	TokenCache    string
	TokenCacheDSN string

	// SQLCallLog persists gateway calls next to the SQL token cache
	SQLCallLog   bool
	CallLogHours int
}

var appConfigInstance *AppConfig

// GetAppConfig returns the application configuration
func GetAppConfig() *AppConfig {
	if appConfigInstance == nil {
		appConfigInstance = &AppConfig{
			Port:           GetEnv("APP_PORT", "9999"),
			Env:            GetEnv("APP_ENV", "development"),
			APIKey:         GetEnv("API_KEY", ""),
			LogLevel:       GetEnv("LOG_LEVEL", "info"),
			OpenSearchURL:  GetEnv("OPENSEARCH_URL", "http://localhost:9200"),
			OpenSearchUser: GetEnv("OPENSEARCH_USER", ""),
			OpenSearchPass: GetEnv("OPENSEARCH_PASSWORD", ""),
			EnableLogging:  GetBoolEnv("ENABLE_OPENSEARCH_LOGGING", false),
			RateLimitRPS:   GetFloatEnv("RATE_LIMIT_RPS", 10),
			RateLimitBurst: GetIntEnv("RATE_LIMIT_BURST", 20),
			AllowedIPs:     GetListEnv("ALLOWED_IPS"),
			TokenCache:     strings.ToLower(GetEnv("GMO_TOKEN_CACHE", CacheMemory)),
			TokenCacheDSN:  GetEnv("GMO_TOKEN_CACHE_DSN", ""),
			SQLCallLog:     GetBoolEnv("GMO_SQL_CALL_LOG", false),
			CallLogHours:   GetIntEnv("GMO_CALL_LOG_HOURS", 168),
		}
	}
	return appConfigInstance
}

// IsProduction reports whether APP_ENV names a production deployment
func (c *AppConfig) IsProduction() bool {
	env := strings.ToLower(c.Env)
	return env == "production" || env == "prod"
}

// GetEnv returns the value of an environment variable or a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetBoolEnv returns the boolean value of an environment variable or a default value
func GetBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// GetIntEnv returns the integer value of an environment variable or a default value
func GetIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// GetFloatEnv returns the float value of an environment variable or a default value
func GetFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// GetDurationEnv reads a Go duration ("30s") or a plain number of seconds
func GetDurationEnv(key string, defaultValue time.Duration) time.Duration {
	return durationValue(os.Getenv(key), defaultValue)
}

// GetListEnv splits a comma separated variable, dropping blanks
func GetListEnv(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
