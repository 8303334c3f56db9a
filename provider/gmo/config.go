package gmo

import (
	"fmt"
	"strings"
	"time"

	"github.com/mstgnz/gmopay/provider"
)

// Environment selects the gateway URL set and token cache namespace
type Environment string

const (
	EnvironmentTest       Environment = "TEST"
	EnvironmentProduction Environment = "PRODUCTION"
)

// ParseEnvironment accepts test/sandbox and production/prod in any case
func ParseEnvironment(s string) (Environment, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TEST", "SANDBOX", "":
		return EnvironmentTest, nil
	case "PRODUCTION", "PROD":
		return EnvironmentProduction, nil
	}
	return "", provider.NewConfigurationError(fmt.Sprintf("unknown environment %q", s))
}

// Credentials identify the shop and site to the gateway
type Credentials struct {
	ShopID     string
	ShopSecret string
	SiteID     string
	SiteSecret string
}

// String never reveals secrets
func (c Credentials) String() string {
	return fmt.Sprintf("shop=%s site=%s shop_secret=%s site_secret=%s",
		c.ShopID, c.SiteID, provider.MaskValue(c.ShopSecret), provider.MaskValue(c.SiteSecret))
}

// EndpointURLs are the resolved URLs for one environment
type EndpointURLs struct {
	APIBaseURL      string
	OAuthURL        string
	TokenServiceURL string
}

// TokenService holds the card tokenization credentials for one environment
type TokenService struct {
	PublicKey string
	APIKey    string
}

// EnvironmentSettings are the URLs and token service settings for one environment
type EnvironmentSettings struct {
	URLs         EndpointURLs
	TokenService TokenService
}

// Config is everything the client needs; all fields are fixed at construction
type Config struct {
	Credentials Credentials
	Environment Environment
	Production  EnvironmentSettings
	Test        EnvironmentSettings

	Timeout    time.Duration
	MaxRetries int
	// BackoffFactor is the first retry wait; later waits double
	BackoffFactor     time.Duration
	RetryableStatuses []int

	// Dialect is the body encoding for endpoints that do not imply one
	Dialect string

	Breaker provider.BreakerConfig

	// StatusOverrides remaps individual HTTP statuses to error kinds
	StatusOverrides map[int]provider.ErrorKind

	InsecureSkipVerify bool
}

// Active returns the settings for the configured environment
func (c Config) Active() EnvironmentSettings {
	if c.Environment == EnvironmentProduction {
		return c.Production
	}
	return c.Test
}

// Validate reports every missing or invalid field as one configuration error
func (c Config) Validate() error {
	var problems []string
	required := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			problems = append(problems, name+" is required")
		}
	}

	required("shop id", c.Credentials.ShopID)
	required("shop secret", c.Credentials.ShopSecret)
	required("site id", c.Credentials.SiteID)
	required("site secret", c.Credentials.SiteSecret)

	required("production api url", c.Production.URLs.APIBaseURL)
	required("production oauth url", c.Production.URLs.OAuthURL)
	required("production token service public key", c.Production.TokenService.PublicKey)
	required("production token service api key", c.Production.TokenService.APIKey)
	required("test api url", c.Test.URLs.APIBaseURL)
	required("test oauth url", c.Test.URLs.OAuthURL)
	required("test token service public key", c.Test.TokenService.PublicKey)
	required("test token service api key", c.Test.TokenService.APIKey)

	if c.Environment != EnvironmentTest && c.Environment != EnvironmentProduction {
		problems = append(problems, fmt.Sprintf("environment %q is invalid", c.Environment))
	}
	if c.Timeout <= 0 {
		problems = append(problems, "timeout must be positive")
	}
	if c.MaxRetries < 0 {
		problems = append(problems, "max retries must not be negative")
	}
	if _, err := NewDialect(c.Dialect); err != nil {
		problems = append(problems, fmt.Sprintf("dialect %q is invalid", c.Dialect))
	}

	if len(problems) > 0 {
		return provider.NewConfigurationError(strings.Join(problems, "; "))
	}
	return nil
}
