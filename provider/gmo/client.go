package gmo

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mstgnz/gmopay/infra/logger"
	"github.com/mstgnz/gmopay/provider"
	"golang.org/x/sync/singleflight"
)

// DefaultTokenTTL is how long an access token is trusted after issuance
const DefaultTokenTTL = 3600 * time.Second

// AuthState is the client's view of its credentials
type AuthState int

const (
	StateUnauthenticated AuthState = iota
	StateAuthenticated
)

// String returns the state name
func (s AuthState) String() string {
	if s == StateAuthenticated {
		return "authenticated"
	}
	return "unauthenticated"
}

// Client is the single authenticated channel to the GMO Payment Gateway.
// Construct it once and share it; it is safe for concurrent use.
type Client struct {
	cfg      Config
	urls     EndpointURLs
	http     *provider.ProviderHTTPClient
	cache    provider.TokenCache
	cacheKey string
	codes    provider.ErrorCodeTable
	mapper   provider.StatusMapper
	dialect  Dialect
	log      *logger.SystemLogger
	recorder CallRecorder
	tokenTTL time.Duration
	now      func() time.Time
	auth     singleflight.Group

	mu    sync.RWMutex
	token provider.AccessToken
}

// Option configures a Client
type Option func(*Client)

// WithTokenCache shares tokens through cache instead of a private in-memory cache
func WithTokenCache(cache provider.TokenCache) Option {
	return func(c *Client) { c.cache = cache }
}

// WithLogger sets the logger; the global logger is used otherwise
func WithLogger(l *logger.SystemLogger) Option {
	return func(c *Client) { c.log = l }
}

// WithHTTPClient replaces the transport
func WithHTTPClient(hc *provider.ProviderHTTPClient) Option {
	return func(c *Client) { c.http = hc }
}

// WithClock sets the time source used for token expiry
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithCallRecorder audits every gateway attempt
func WithCallRecorder(r CallRecorder) Option {
	return func(c *Client) { c.recorder = r }
}

// WithTokenTTL overrides DefaultTokenTTL
func WithTokenTTL(ttl time.Duration) Option {
	return func(c *Client) {
		if ttl > 0 {
			c.tokenTTL = ttl
		}
	}
}

// WithDialect overrides the configured default dialect
func WithDialect(d Dialect) Option {
	return func(c *Client) { c.dialect = d }
}

// WithStatusMapper overrides the status to error kind mapping
func WithStatusMapper(m provider.StatusMapper) Option {
	return func(c *Client) { c.mapper = m }
}

// NewClient validates cfg and builds a client. No network call is made.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dialect, err := NewDialect(cfg.Dialect)
	if err != nil {
		return nil, err
	}

	urls := cfg.Active().URLs
	c := &Client{
		cfg:      cfg,
		urls:     urls,
		cacheKey: provider.TokenCacheKey(cfg.Credentials.ShopID, string(cfg.Environment)),
		codes:    ErrorCodes,
		mapper:   provider.NewStatusMapper(cfg.StatusOverrides),
		dialect:  dialect,
		tokenTTL: DefaultTokenTTL,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.log == nil {
		c.log = logger.GetGlobalLogger()
	}
	if c.cache == nil {
		c.cache = provider.NewInMemoryTokenCache(time.Minute)
	}
	if c.http == nil {
		c.http = provider.NewProviderHTTPClient(&provider.HTTPClientConfig{
			BaseURL:            urls.APIBaseURL,
			Timeout:            cfg.Timeout,
			InsecureSkipVerify: cfg.InsecureSkipVerify,
			DefaultHeaders: map[string]string{
				"Accept":     "application/json",
				"User-Agent": "gmopay/1.0",
			},
			Retry: provider.RetryPolicy{
				MaxRetries:        cfg.MaxRetries,
				BackoffFactor:     cfg.BackoffFactor,
				RetryableStatuses: cfg.RetryableStatuses,
			},
			Breaker: cfg.Breaker,
			Logger:  c.log.Leveled(providerName),
		})
	}

	return c, nil
}

// Credentials returns the configured credentials
func (c *Client) Credentials() Credentials {
	return c.cfg.Credentials
}

// Environment returns the active environment
func (c *Client) Environment() Environment {
	return c.cfg.Environment
}

// URLs returns the resolved endpoint URLs
func (c *Client) URLs() EndpointURLs {
	return c.urls
}

// TokenService returns the card tokenization settings for the active environment
func (c *Client) TokenService() TokenService {
	return c.cfg.Active().TokenService
}

// State reports whether a non-expired token is currently held
func (c *Client) State() AuthState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.token.Expired(c.now()) {
		return StateUnauthenticated
	}
	return StateAuthenticated
}

// Authenticate performs the client-credentials exchange and caches the token.
// Concurrent callers share a single exchange.
// The shared exchange is not tied to any one caller's context; a caller
// whose context ends stops waiting without failing the others.
func (c *Client) Authenticate(ctx context.Context) (provider.AccessToken, error) {
	ch := c.auth.DoChan(c.cacheKey, func() (any, error) {
		exchangeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.http.CallBudget())
		defer cancel()
		return c.exchangeToken(exchangeCtx)
	})

	select {
	case <-ctx.Done():
		return provider.AccessToken{}, provider.NewConnectionError("request cancelled while waiting for access token", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return provider.AccessToken{}, res.Err
		}
		return res.Val.(provider.AccessToken), nil
	}
}

// CallBudget is the longest one gateway call can take with every retry
func (c *Client) CallBudget() time.Duration {
	return c.http.CallBudget()
}

func (c *Client) exchangeToken(ctx context.Context) (provider.AccessToken, error) {
	id := requestID(ctx)
	logCtx := logger.LogContext{
		Provider:  providerName,
		RequestID: id,
		Fields:    map[string]any{"url": c.urls.OAuthURL, "environment": string(c.cfg.Environment)},
	}
	c.log.Debug("Requesting gateway access token", logCtx)

	creds := c.cfg.Credentials
	basic := base64.StdEncoding.EncodeToString([]byte(creds.ShopID + ":" + creds.ShopSecret))

	resp, err := c.http.SendForm(ctx, &provider.HTTPRequest{
		Method:   http.MethodPost,
		Endpoint: c.urls.OAuthURL,
		Headers: map[string]string{
			"Authorization": "Basic " + basic,
			"Accept":        "application/json",
		},
		FormData: map[string]string{
			"grant_type": "client_credentials",
			"scope":      "openapi",
		},
	})
	if err != nil {
		c.log.Error("Gateway token request failed", err, logCtx)
		return provider.AccessToken{}, provider.NewAuthenticationError("token request failed", err)
	}

	if !resp.IsSuccess() {
		gwErr := provider.NewAuthenticationError(fmt.Sprintf("token request rejected with status %d", resp.StatusCode), nil)
		gwErr.StatusCode = resp.StatusCode
		gwErr.RawResponse = resp.RawBody
		c.log.Error("Gateway rejected token request", gwErr, logCtx)
		return provider.AccessToken{}, gwErr
	}

	body, err := provider.ParseJSONObject(resp.Body)
	if err != nil {
		return provider.AccessToken{}, provider.NewAuthenticationError("token response is not a JSON object", err)
	}

	value, _ := body["access_token"].(string)
	if value == "" {
		return provider.AccessToken{}, provider.NewAuthenticationError("token response has no access_token", nil)
	}

	ttl := c.tokenTTL
	if expiresIn := secondsField(body, "expires_in"); expiresIn > 0 && expiresIn < ttl {
		ttl = expiresIn
	}

	token, err := c.cache.Set(ctx, c.cacheKey, value, ttl)
	if err != nil {
		c.log.Warn("Failed to cache gateway access token", withField(logCtx, "error", err.Error()))
		token = provider.AccessToken{Value: value, ExpiresAt: c.now().Add(ttl)}
	}
	c.setToken(token)

	c.log.Info("Obtained gateway access token", withField(withField(logCtx, "token", token.Masked()), "expires_at", token.ExpiresAt))
	return token, nil
}

// Request sends an authenticated call and returns the parsed body.
// A 401 invalidates the token and the call is retried once with a fresh one.
func (c *Client) Request(ctx context.Context, method, endpoint string, query map[string]string, body map[string]any) (map[string]any, error) {
	rc := requestContext{
		id:       requestID(ctx),
		method:   method,
		endpoint: endpoint,
		dialect:  DialectFor(endpoint, c.dialect),
		query:    query,
		body:     body,
	}

	token, err := c.ensureToken(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := c.send(ctx, rc, token)
	if err != nil {
		c.record(ctx, rc, 1, nil, nil, err)
		return nil, err
	}

	attempt := 1
	if resp.StatusCode == http.StatusUnauthorized {
		c.record(ctx, rc, attempt, resp, nil, provider.NewNotAuthenticatedError("access token rejected"))
		c.log.Warn("Gateway rejected access token, re-authenticating", rc.logContext())

		c.invalidate(ctx)
		token, err = c.Authenticate(ctx)
		if err != nil {
			return nil, err
		}

		attempt = 2
		resp, err = c.send(ctx, rc, token)
		if err != nil {
			c.record(ctx, rc, attempt, nil, nil, err)
			return nil, err
		}
		if resp.StatusCode == http.StatusUnauthorized {
			c.invalidate(ctx)
			gwErr := provider.NewAuthenticationError("gateway rejected a freshly issued access token", nil)
			gwErr.StatusCode = resp.StatusCode
			gwErr.RawResponse = resp.RawBody
			c.record(ctx, rc, attempt, resp, nil, gwErr)
			c.log.Error("Re-authentication did not help", gwErr, rc.logContext())
			return nil, gwErr
		}
	}

	result, err := c.handleResponse(rc, resp)
	c.record(ctx, rc, attempt, resp, result, err)
	return result, err
}

// Get sends a GET request
func (c *Client) Get(ctx context.Context, endpoint string, params map[string]string) (map[string]any, error) {
	return c.Request(ctx, http.MethodGet, endpoint, params, nil)
}

// Post sends a POST request
func (c *Client) Post(ctx context.Context, endpoint string, body map[string]any) (map[string]any, error) {
	return c.Request(ctx, http.MethodPost, endpoint, nil, body)
}

// Put sends a PUT request
func (c *Client) Put(ctx context.Context, endpoint string, body map[string]any) (map[string]any, error) {
	return c.Request(ctx, http.MethodPut, endpoint, nil, body)
}

// Delete sends a DELETE request
func (c *Client) Delete(ctx context.Context, endpoint string, params map[string]string) (map[string]any, error) {
	return c.Request(ctx, http.MethodDelete, endpoint, params, nil)
}

// TokenizeCard posts an encrypted card blob to the token service.
// The token service authenticates with its API key, not the bearer token.
func (c *Client) TokenizeCard(ctx context.Context, payload map[string]any) (map[string]any, error) {
	ts := c.TokenService()
	if c.urls.TokenServiceURL == "" {
		return nil, provider.NewConfigurationError("token service url is not configured")
	}

	rc := requestContext{
		id:       requestID(ctx),
		method:   http.MethodPost,
		endpoint: c.urls.TokenServiceURL,
		dialect:  RESTDialect{},
		body:     payload,
	}
	c.log.Debug("Gateway token service request", rc.logContext())

	resp, err := c.http.SendJSON(ctx, &provider.HTTPRequest{
		Method:   http.MethodPost,
		Endpoint: c.urls.TokenServiceURL,
		Headers:  map[string]string{"X-API-Key": ts.APIKey},
		Body:     payload,
	})
	if err != nil {
		c.record(ctx, rc, 1, nil, nil, err)
		return nil, err
	}

	result, err := c.handleResponse(rc, resp)
	c.record(ctx, rc, 1, resp, result, err)
	return result, err
}

func (c *Client) ensureToken(ctx context.Context) (provider.AccessToken, error) {
	token, ok, err := c.cache.Get(ctx, c.cacheKey)
	if err != nil {
		c.log.Warn("Token cache read failed, re-authenticating", logger.LogContext{
			Provider: providerName,
			Fields:   map[string]any{"error": err.Error()},
		})
	}
	if ok {
		c.setToken(token)
		return token, nil
	}
	return c.Authenticate(ctx)
}

func (c *Client) invalidate(ctx context.Context) {
	if err := c.cache.Invalidate(ctx, c.cacheKey); err != nil {
		c.log.Warn("Failed to invalidate cached access token", logger.LogContext{
			Provider: providerName,
			Fields:   map[string]any{"error": err.Error()},
		})
	}
	c.setToken(provider.AccessToken{})
}

func (c *Client) setToken(token provider.AccessToken) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// send dispatches one attempt. A request is never sent without a live token.
func (c *Client) send(ctx context.Context, rc requestContext, token provider.AccessToken) (*provider.HTTPResponse, error) {
	if token.Expired(c.now()) {
		return nil, provider.NewNotAuthenticatedError("no valid access token for gateway request")
	}

	c.log.Debug("Gateway request", rc.logContext())

	req := &provider.HTTPRequest{
		Method:      rc.method,
		Endpoint:    rc.endpoint,
		Headers:     map[string]string{"Authorization": "Bearer " + token.Value},
		QueryParams: rc.query,
	}
	resp, err := rc.dialect.Send(ctx, c.http, req, rc.body)
	if err != nil {
		c.log.Error("Gateway request failed", err, rc.logContext())
		return nil, err
	}

	c.log.Debug("Gateway response received", withField(withField(rc.logContext(), "status", resp.StatusCode), "duration_ms", resp.Duration.Milliseconds()))
	return resp, nil
}

func (c *Client) handleResponse(rc requestContext, resp *provider.HTTPResponse) (map[string]any, error) {
	if !resp.IsSuccess() {
		gwErr := c.mapper.FromResponse(resp.StatusCode, resp.Body, c.codes)
		c.log.Warn("Gateway returned an error status", withField(withField(withField(rc.logContext(),
			"status", resp.StatusCode), "kind", string(gwErr.Kind)), "code", gwErr.Code))
		return nil, gwErr
	}

	if provider.IsEmptyBody(resp.Body) {
		c.log.Warn("Empty response body from gateway, returning empty result", withField(rc.logContext(), "status", resp.StatusCode))
	}
	result, err := provider.ParseResponseBody(resp.Body)
	if err != nil {
		c.log.Error("Failed to parse gateway response", err, rc.logContext())
		return nil, err
	}

	if err := rc.dialect.CheckResult(result, c.codes); err != nil {
		c.log.Warn("Gateway reported an error in a successful response", withField(rc.logContext(), "error", err.Error()))
		return nil, err
	}

	c.log.Debug("Gateway response body", withField(rc.logContext(), "response", provider.MaskSensitive(result)))
	return result, nil
}

func (c *Client) record(ctx context.Context, rc requestContext, attempt int, resp *provider.HTTPResponse, result map[string]any, err error) {
	if c.recorder == nil {
		return
	}
	call := Call{
		RequestID:   rc.id,
		Environment: c.cfg.Environment,
		Dialect:     rc.dialect.Name(),
		Method:      rc.method,
		Endpoint:    rc.endpoint,
		Attempt:     attempt,
		Params:      provider.MaskStrings(rc.query),
		Request:     provider.MaskSensitive(rc.body),
		Response:    provider.MaskSensitive(result),
		Err:         err,
	}
	if resp != nil {
		call.StatusCode = resp.StatusCode
		call.Duration = resp.Duration
	}
	c.recorder.RecordCall(ctx, call)
}

// requestContext carries per-call data used for log correlation
type requestContext struct {
	id       string
	method   string
	endpoint string
	dialect  Dialect
	query    map[string]string
	body     map[string]any
}

func (rc requestContext) logContext() logger.LogContext {
	fields := map[string]any{
		"method":   rc.method,
		"endpoint": rc.endpoint,
		"dialect":  rc.dialect.Name(),
	}
	if len(rc.query) > 0 {
		fields["params"] = provider.MaskStrings(rc.query)
	}
	if len(rc.body) > 0 {
		fields["payload"] = provider.MaskSensitive(rc.body)
	}
	return logger.LogContext{Provider: providerName, RequestID: rc.id, Fields: fields}
}

func withField(ctx logger.LogContext, key string, value any) logger.LogContext {
	fields := make(map[string]any, len(ctx.Fields)+1)
	for k, v := range ctx.Fields {
		fields[k] = v
	}
	fields[key] = value
	ctx.Fields = fields
	return ctx
}

// requestID reuses the inbound correlation id when ctx carries one
func requestID(ctx context.Context) string {
	if id := provider.RequestIDFromContext(ctx); id != "" {
		return id
	}
	return uuid.New().String()[:8]
}

// secondsField reads a numeric seconds value that may arrive as a number or a string
func secondsField(m map[string]any, key string) time.Duration {
	var seconds int64
	switch v := m[key].(type) {
	case json.Number:
		seconds, _ = v.Int64()
	case float64:
		seconds = int64(v)
	case string:
		seconds, _ = strconv.ParseInt(v, 10, 64)
	}
	return time.Duration(seconds) * time.Second
}
