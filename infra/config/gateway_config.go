package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mstgnz/gmopay/provider"
	"github.com/mstgnz/gmopay/provider/gmo"
)

// ConfigField describes one gateway environment variable
type ConfigField struct {
	Key         string `json:"key"`
	Required    bool   `json:"required"`
	Type        string `json:"type"` // "string", "number", "url", "duration", "boolean"
	Description string `json:"description"`
}

// GatewayFields lists every GMO_* variable read by LoadGatewayConfig
var GatewayFields = []ConfigField{
	{Key: "GMO_SHOP_ID", Required: true, Type: "string", Description: "Shop ID issued by GMO"},
	{Key: "GMO_SHOP_SECRET", Required: true, Type: "string", Description: "Shop password"},
	{Key: "GMO_SITE_ID", Required: true, Type: "string", Description: "Site ID for member operations"},
	{Key: "GMO_SITE_SECRET", Required: true, Type: "string", Description: "Site password"},
	{Key: "GMO_ENVIRONMENT", Type: "string", Description: "test or production"},
	{Key: "GMO_PROD_API_URL", Required: true, Type: "url", Description: "Production API base URL"},
	{Key: "GMO_TEST_API_URL", Required: true, Type: "url", Description: "Test API base URL"},
	{Key: "GMO_PROD_OAUTH_URL", Required: true, Type: "url", Description: "Production OAuth token URL"},
	{Key: "GMO_TEST_OAUTH_URL", Required: true, Type: "url", Description: "Test OAuth token URL"},
	{Key: "GMO_PROD_TOKEN_URL", Type: "url", Description: "Production card token service URL"},
	{Key: "GMO_TEST_TOKEN_URL", Type: "url", Description: "Test card token service URL"},
	{Key: "GMO_PROD_TOKEN_PUBLIC_KEY", Required: true, Type: "string", Description: "Production token service public key"},
	{Key: "GMO_TEST_TOKEN_PUBLIC_KEY", Required: true, Type: "string", Description: "Test token service public key"},
	{Key: "GMO_PROD_TOKEN_API_KEY", Required: true, Type: "string", Description: "Production token service API key"},
	{Key: "GMO_TEST_TOKEN_API_KEY", Required: true, Type: "string", Description: "Test token service API key"},
	{Key: "GMO_TIMEOUT", Type: "duration", Description: "Per-attempt request timeout"},
	{Key: "GMO_MAX_RETRIES", Type: "number", Description: "Transport retries"},
	{Key: "GMO_BACKOFF_FACTOR", Type: "duration", Description: "First retry wait"},
	{Key: "GMO_API_DIALECT", Type: "string", Description: "rest or idpass"},
	{Key: "GMO_BREAKER_ENABLED", Type: "boolean", Description: "Enable the circuit breaker"},
	{Key: "GMO_BREAKER_MAX_FAILURES", Type: "number", Description: "Consecutive failures that open the breaker"},
	{Key: "GMO_BREAKER_OPEN_TIMEOUT", Type: "duration", Description: "How long the breaker stays open"},
	{Key: "GMO_STATUS_OVERRIDES", Type: "string", Description: "status:kind pairs, e.g. 409:validation_error"},
}

const (
	defaultGatewayTimeout = 30 * time.Second
	defaultMaxRetries     = 3
	defaultBackoffFactor  = 500 * time.Millisecond
	defaultBreakerFailure = 5
	defaultBreakerOpen    = 30 * time.Second
)

// ValidateConfigFields checks values against fields and returns every problem found
func ValidateConfigFields(values map[string]string, fields []ConfigField) []string {
	var problems []string
	for _, field := range fields {
		value := strings.TrimSpace(values[field.Key])
		if value == "" {
			if field.Required {
				problems = append(problems, fmt.Sprintf("%s is required", field.Key))
			}
			continue
		}
		if err := validateFieldType(field, value); err != nil {
			problems = append(problems, err.Error())
		}
	}
	return problems
}

func validateFieldType(field ConfigField, value string) error {
	switch field.Type {
	case "number":
		if _, err := strconv.Atoi(value); err != nil {
			return fmt.Errorf("%s must be a number", field.Key)
		}
	case "boolean":
		if _, err := strconv.ParseBool(value); err != nil {
			return fmt.Errorf("%s must be a boolean", field.Key)
		}
	case "duration":
		if _, err := parseDuration(value); err != nil {
			return fmt.Errorf("%s must be a duration", field.Key)
		}
	case "url":
		u, err := url.Parse(value)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s must be an absolute URL", field.Key)
		}
	}
	return nil
}

// LoadGatewayConfig builds the gateway configuration from the environment.
// Every missing or malformed variable is reported in one configuration error.
func LoadGatewayConfig() (gmo.Config, error) {
	values := make(map[string]string, len(GatewayFields))
	for _, field := range GatewayFields {
		values[field.Key] = os.Getenv(field.Key)
	}
	return GatewayConfigFromValues(values)
}

// GatewayConfigFromValues builds the gateway configuration from a key/value set
func GatewayConfigFromValues(values map[string]string) (gmo.Config, error) {
	problems := ValidateConfigFields(values, GatewayFields)

	env, err := gmo.ParseEnvironment(values["GMO_ENVIRONMENT"])
	if err != nil {
		problems = append(problems, fmt.Sprintf("GMO_ENVIRONMENT %q is invalid", values["GMO_ENVIRONMENT"]))
	}

	overrides, err := provider.ParseStatusOverrides(values["GMO_STATUS_OVERRIDES"])
	if err != nil {
		problems = append(problems, fmt.Sprintf("GMO_STATUS_OVERRIDES: %v", err))
	}

	if len(problems) > 0 {
		return gmo.Config{}, provider.NewConfigurationError(strings.Join(problems, "; "))
	}

	get := func(key string) string { return strings.TrimSpace(values[key]) }
	cfg := gmo.Config{
		Credentials: gmo.Credentials{
			ShopID:     get("GMO_SHOP_ID"),
			ShopSecret: get("GMO_SHOP_SECRET"),
			SiteID:     get("GMO_SITE_ID"),
			SiteSecret: get("GMO_SITE_SECRET"),
		},
		Environment: env,
		Production: gmo.EnvironmentSettings{
			URLs: gmo.EndpointURLs{
				APIBaseURL:      get("GMO_PROD_API_URL"),
				OAuthURL:        get("GMO_PROD_OAUTH_URL"),
				TokenServiceURL: get("GMO_PROD_TOKEN_URL"),
			},
			TokenService: gmo.TokenService{
				PublicKey: get("GMO_PROD_TOKEN_PUBLIC_KEY"),
				APIKey:    get("GMO_PROD_TOKEN_API_KEY"),
			},
		},
		Test: gmo.EnvironmentSettings{
			URLs: gmo.EndpointURLs{
				APIBaseURL:      get("GMO_TEST_API_URL"),
				OAuthURL:        get("GMO_TEST_OAUTH_URL"),
				TokenServiceURL: get("GMO_TEST_TOKEN_URL"),
			},
			TokenService: gmo.TokenService{
				PublicKey: get("GMO_TEST_TOKEN_PUBLIC_KEY"),
				APIKey:    get("GMO_TEST_TOKEN_API_KEY"),
			},
		},
		Timeout:         durationValue(get("GMO_TIMEOUT"), defaultGatewayTimeout),
		MaxRetries:      intValue(get("GMO_MAX_RETRIES"), defaultMaxRetries),
		BackoffFactor:   durationValue(get("GMO_BACKOFF_FACTOR"), defaultBackoffFactor),
		Dialect:         strings.ToLower(get("GMO_API_DIALECT")),
		StatusOverrides: overrides,
		Breaker: provider.BreakerConfig{
			Enabled:     get("GMO_BREAKER_ENABLED") != "" && boolValue(get("GMO_BREAKER_ENABLED")),
			Name:        "gmo",
			MaxFailures: uint32(intValue(get("GMO_BREAKER_MAX_FAILURES"), defaultBreakerFailure)),
			OpenTimeout: durationValue(get("GMO_BREAKER_OPEN_TIMEOUT"), defaultBreakerOpen),
		},
	}

	if err := cfg.Validate(); err != nil {
		return gmo.Config{}, err
	}
	return cfg, nil
}

// parseDuration accepts a Go duration or a plain number of seconds
func parseDuration(value string) (time.Duration, error) {
	if d, err := time.ParseDuration(value); err == nil {
		return d, nil
	}
	seconds, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, err
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

func durationValue(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := parseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

func intValue(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}

func boolValue(value string) bool {
	b, _ := strconv.ParseBool(value)
	return b
}
