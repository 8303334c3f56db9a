package provider

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sony/gobreaker"
)

const (
	ContentTypeJSON = "application/json"
	ContentTypeForm = "application/x-www-form-urlencoded"
)

// RetryPolicy configures transport-level retries
type RetryPolicy struct {
	MaxRetries        int
	BackoffFactor     time.Duration
	MaxBackoff        time.Duration
	RetryableStatuses []int
}

// DefaultRetryPolicy retries gateway-side unavailability three times starting at 500ms
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:        3,
		BackoffFactor:     500 * time.Millisecond,
		MaxBackoff:        30 * time.Second,
		RetryableStatuses: []int{http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout},
	}
}

// IsRetryableStatus reports whether status is in the retryable set
func (p RetryPolicy) IsRetryableStatus(status int) bool {
	return slices.Contains(p.RetryableStatuses, status)
}

// Budget is the longest one call can take when every attempt runs to
// perAttempt and every backoff wait is taken
func (p RetryPolicy) Budget(perAttempt time.Duration) time.Duration {
	total := perAttempt * time.Duration(p.MaxRetries+1)
	wait := p.BackoffFactor
	for i := 0; i < p.MaxRetries; i++ {
		if p.MaxBackoff > 0 && wait > p.MaxBackoff {
			wait = p.MaxBackoff
		}
		total += wait
		wait *= 2
	}
	return total
}

// BreakerConfig configures the optional circuit breaker around the transport
type BreakerConfig struct {
	Enabled     bool
	Name        string
	MaxFailures uint32
	OpenTimeout time.Duration
}

// HTTPClientConfig represents configuration for HTTP client
type HTTPClientConfig struct {
	BaseURL            string
	Timeout            time.Duration
	InsecureSkipVerify bool
	DefaultHeaders     map[string]string
	Retry              RetryPolicy
	Breaker            BreakerConfig
	// Logger receives transport retry logs; nil disables them
	Logger retryablehttp.LeveledLogger
}

// HTTPRequest represents a standardized HTTP request
type HTTPRequest struct {
	Method      string
	Endpoint    string
	Headers     map[string]string
	Body        any
	FormData    map[string]string
	QueryParams map[string]string
}

// HTTPResponse represents a standardized HTTP response
type HTTPResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	RawBody    string
	Duration   time.Duration
}

// IsSuccess reports a 2xx status
func (r *HTTPResponse) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// ProviderHTTPClient sends gateway requests through a retrying transport.
// Non-2xx statuses are returned as responses; only transport failures are errors.
type ProviderHTTPClient struct {
	config  *HTTPClientConfig
	client  *retryablehttp.Client
	breaker *gobreaker.CircuitBreaker
}

// retriesExhaustedError is returned when the retry policy gives up
type retriesExhaustedError struct {
	attempts int
	status   int
	err      error
}

func (e *retriesExhaustedError) Error() string {
	if e.status != 0 {
		return fmt.Sprintf("giving up after %d attempt(s): last status %d", e.attempts, e.status)
	}
	return fmt.Sprintf("giving up after %d attempt(s): %v", e.attempts, e.err)
}

func (e *retriesExhaustedError) Unwrap() error {
	return e.err
}

// NewProviderHTTPClient creates a new provider HTTP client
func NewProviderHTTPClient(config *HTTPClientConfig) *ProviderHTTPClient {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.Retry.BackoffFactor <= 0 {
		config.Retry.BackoffFactor = DefaultRetryPolicy().BackoffFactor
	}
	if config.Retry.MaxBackoff <= 0 {
		config.Retry.MaxBackoff = DefaultRetryPolicy().MaxBackoff
	}
	if config.Retry.RetryableStatuses == nil {
		config.Retry.RetryableStatuses = DefaultRetryPolicy().RetryableStatuses
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: config.InsecureSkipVerify,
		},
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	client := retryablehttp.NewClient()
	client.HTTPClient = &http.Client{
		Timeout:   config.Timeout,
		Transport: transport,
	}
	client.RetryMax = config.Retry.MaxRetries
	client.RetryWaitMin = config.Retry.BackoffFactor
	client.RetryWaitMax = config.Retry.MaxBackoff
	client.Backoff = retryablehttp.DefaultBackoff
	client.CheckRetry = config.Retry.checkRetry
	client.ErrorHandler = giveUp
	client.Logger = nil
	if config.Logger != nil {
		client.Logger = config.Logger
	}

	c := &ProviderHTTPClient{
		config: config,
		client: client,
	}

	if config.Breaker.Enabled {
		c.breaker = newBreaker(config.Breaker, config.Logger)
	}

	return c
}

func newBreaker(cfg BreakerConfig, log retryablehttp.LeveledLogger) *gobreaker.CircuitBreaker {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	openTimeout := cfg.OpenTimeout
	if openTimeout <= 0 {
		openTimeout = 30 * time.Second
	}
	name := cfg.Name
	if name == "" {
		name = "gateway"
	}

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if log != nil {
				log.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			}
		},
	})
}

// checkRetry retries transport errors and the configured statuses
func (p RetryPolicy) checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}
	return p.IsRetryableStatus(resp.StatusCode), nil
}

// giveUp closes the final response and reports how the retry loop ended
func giveUp(resp *http.Response, err error, numTries int) (*http.Response, error) {
	if resp != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		if err == nil {
			return nil, &retriesExhaustedError{attempts: numTries, status: resp.StatusCode}
		}
	}
	return nil, &retriesExhaustedError{attempts: numTries, err: err}
}

// SendJSON sends a JSON request and returns the response
func (c *ProviderHTTPClient) SendJSON(ctx context.Context, req *HTTPRequest) (*HTTPResponse, error) {
	return c.sendRequest(ctx, req, ContentTypeJSON)
}

// SendForm sends a form-encoded request and returns the response
func (c *ProviderHTTPClient) SendForm(ctx context.Context, req *HTTPRequest) (*HTTPResponse, error) {
	return c.sendRequest(ctx, req, ContentTypeForm)
}

// SendRaw sends a raw request and returns the response
func (c *ProviderHTTPClient) SendRaw(ctx context.Context, req *HTTPRequest) (*HTTPResponse, error) {
	return c.sendRequest(ctx, req, "")
}

// Timeout returns the per-attempt timeout
func (c *ProviderHTTPClient) Timeout() time.Duration {
	return c.config.Timeout
}

// CallBudget returns the retry policy budget for one send
func (c *ProviderHTTPClient) CallBudget() time.Duration {
	return c.config.Retry.Budget(c.config.Timeout)
}

// sendRequest is the internal method that handles all HTTP requests
func (c *ProviderHTTPClient) sendRequest(ctx context.Context, req *HTTPRequest, contentType string) (*HTTPResponse, error) {
	fullURL := c.buildURL(req.Endpoint, req.QueryParams)

	body, err := encodeBody(req, contentType)
	if err != nil {
		return nil, NewValidationError(err.Error())
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, req.Method, fullURL, body)
	if err != nil {
		return nil, NewConnectionError("failed to create HTTP request", err)
	}

	for key, value := range c.config.DefaultHeaders {
		httpReq.Header.Set(key, value)
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}
	if contentType != "" && body != nil {
		httpReq.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := c.do(httpReq)
	if err != nil {
		return nil, c.transportError(ctx, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.transportError(ctx, fmt.Errorf("failed to read response body: %w", err))
	}

	return &HTTPResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       respBody,
		RawBody:    string(respBody),
		Duration:   time.Since(start),
	}, nil
}

func (c *ProviderHTTPClient) do(req *retryablehttp.Request) (*http.Response, error) {
	if c.breaker == nil {
		return c.client.Do(req)
	}

	out, err := c.breaker.Execute(func() (any, error) {
		return c.client.Do(req)
	})
	if err != nil {
		return nil, err
	}
	return out.(*http.Response), nil
}

// transportError maps a transport failure to a connection error
func (c *ProviderHTTPClient) transportError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return NewConnectionError("gateway circuit breaker is open", err)
	case isTimeout(err):
		return NewConnectionError(fmt.Sprintf("request timed out after %s", c.config.Timeout), err)
	case errors.Is(err, context.Canceled) || ctx.Err() != nil:
		return NewConnectionError("request cancelled", err)
	}

	var exhausted *retriesExhaustedError
	if errors.As(err, &exhausted) {
		gwErr := NewConnectionError("gateway unavailable", err)
		gwErr.StatusCode = exhausted.status
		return gwErr
	}
	return NewConnectionError("HTTP request failed", err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func encodeBody(req *HTTPRequest, contentType string) ([]byte, error) {
	switch contentType {
	case ContentTypeForm:
		if len(req.FormData) > 0 {
			formData := url.Values{}
			for key, value := range req.FormData {
				formData.Set(key, value)
			}
			return []byte(formData.Encode()), nil
		}
	case ContentTypeJSON:
		if req.Body == nil {
			return nil, nil
		}
		jsonData, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal JSON body: %w", err)
		}
		return jsonData, nil
	}

	switch raw := req.Body.(type) {
	case string:
		return []byte(raw), nil
	case []byte:
		return raw, nil
	case nil:
		return nil, nil
	}
	return nil, fmt.Errorf("unsupported body type %T for content type %q", req.Body, contentType)
}

func joinURL(base, endpoint string) string {
	if strings.HasSuffix(base, "/") && strings.HasPrefix(endpoint, "/") {
		return base + endpoint[1:]
	}
	if !strings.HasSuffix(base, "/") && !strings.HasPrefix(endpoint, "/") {
		return base + "/" + endpoint
	}
	return base + endpoint
}

// buildURL constructs the full URL with query parameters
func (c *ProviderHTTPClient) buildURL(endpoint string, queryParams map[string]string) string {
	fullURL := endpoint
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		fullURL = joinURL(c.config.BaseURL, endpoint)
	}

	if len(queryParams) == 0 {
		return fullURL
	}

	u, err := url.Parse(fullURL)
	if err != nil {
		return fullURL
	}
	q := u.Query()
	for key, value := range queryParams {
		q.Set(key, value)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
