package provider

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// TokenCachePrefix namespaces access token entries
const TokenCachePrefix = "gmo_token"

// AccessToken is an opaque bearer token with its expiry instant
type AccessToken struct {
	Value     string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the token is no longer usable at now
func (t AccessToken) Expired(now time.Time) bool {
	return t.Value == "" || !now.Before(t.ExpiresAt)
}

// Masked returns a loggable form of the token
func (t AccessToken) Masked() string {
	return MaskValue(t.Value)
}

// String never reveals the raw token
func (t AccessToken) String() string {
	return t.Masked()
}

// TokenCache stores one access token per key with an expiry.
// Entries past their expiry must read as absent.
type TokenCache interface {
	// Get returns the token for key, or false if missing or stale
	Get(ctx context.Context, key string) (AccessToken, bool, error)

	// Set stores value under key until now+ttl and returns the stored token
	Set(ctx context.Context, key string, value string, ttl time.Duration) (AccessToken, error)

	// Invalidate removes the entry for key
	Invalidate(ctx context.Context, key string) error
}

// TokenCacheKey builds the cache key for a shop and environment
func TokenCacheKey(shopID, environment string) string {
	return GenerateKey(TokenCachePrefix, shopID, strings.ToLower(environment))
}

// GenerateKey joins a prefix and parts into a cache key
func GenerateKey(prefix string, parts ...any) string {
	key := prefix
	for _, part := range parts {
		key += ":" + fmt.Sprint(part)
	}
	return key
}

// CacheStats represents cache performance metrics
type CacheStats struct {
	Size          int     `json:"size"`
	Hits          int64   `json:"hits"`
	Misses        int64   `json:"misses"`
	Sets          int64   `json:"sets"`
	Invalidations int64   `json:"invalidations"`
	HitRatio      float64 `json:"hit_ratio"`
}

// InMemoryTokenCache is a process-local TokenCache
type InMemoryTokenCache struct {
	cache *gocache.Cache
	now   func() time.Time

	hits          atomic.Int64
	misses        atomic.Int64
	sets          atomic.Int64
	invalidations atomic.Int64
}

// NewInMemoryTokenCache creates a token cache whose janitor runs every cleanupInterval
func NewInMemoryTokenCache(cleanupInterval time.Duration) *InMemoryTokenCache {
	return &InMemoryTokenCache{
		cache: gocache.New(gocache.NoExpiration, cleanupInterval),
		now:   time.Now,
	}
}

// WithClock replaces the time source used for expiry checks
func (c *InMemoryTokenCache) WithClock(now func() time.Time) *InMemoryTokenCache {
	c.now = now
	return c
}

// Get retrieves a token, treating stale entries as absent
func (c *InMemoryTokenCache) Get(_ context.Context, key string) (AccessToken, bool, error) {
	item, found := c.cache.Get(key)
	if !found {
		c.misses.Add(1)
		return AccessToken{}, false, nil
	}

	token, ok := item.(AccessToken)
	if !ok || token.Expired(c.now()) {
		c.cache.Delete(key)
		c.misses.Add(1)
		return AccessToken{}, false, nil
	}

	c.hits.Add(1)
	return token, true, nil
}

// Set stores a token; the whole value is replaced so readers never see a partial write
func (c *InMemoryTokenCache) Set(_ context.Context, key string, value string, ttl time.Duration) (AccessToken, error) {
	if ttl <= 0 {
		return AccessToken{}, fmt.Errorf("token ttl must be positive, got %s", ttl)
	}
	token := AccessToken{Value: value, ExpiresAt: c.now().Add(ttl)}
	c.cache.Set(key, token, ttl)
	c.sets.Add(1)
	return token, nil
}

// Invalidate removes a token
func (c *InMemoryTokenCache) Invalidate(_ context.Context, key string) error {
	c.cache.Delete(key)
	c.invalidations.Add(1)
	return nil
}

// Cleanup removes expired entries
func (c *InMemoryTokenCache) Cleanup() {
	c.cache.DeleteExpired()
}

// Stats returns cache statistics
func (c *InMemoryTokenCache) Stats() CacheStats {
	hits := c.hits.Load()
	misses := c.misses.Load()

	var hitRatio float64
	if total := hits + misses; total > 0 {
		hitRatio = float64(hits) / float64(total)
	}

	return CacheStats{
		Size:          c.cache.ItemCount(),
		Hits:          hits,
		Misses:        misses,
		Sets:          c.sets.Load(),
		Invalidations: c.invalidations.Load(),
		HitRatio:      hitRatio,
	}
}
