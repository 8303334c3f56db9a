// Package provider holds the gateway-independent building blocks used by
// the GMO client in provider/gmo.
//
// # Core Concepts
//
//   - GatewayError: the single typed failure, with an ErrorKind, the upstream
//     status, the gateway error code and the instance path
//   - TokenCache: access token storage keyed by shop and environment, backed
//     by memory (InMemoryTokenCache) or SQL (SQLTokenCache)
//   - ProviderHTTPClient: JSON and form transport with retries and an
//     optional circuit breaker
//   - SQLCallLog: persisted record of every gateway attempt
//
// # Errors
//
// Callers branch on the kind with errors.Is against the sentinel errors:
//
//	if errors.Is(err, provider.ErrNotAuthenticated) {
//	    // token rejected twice
//	}
//
// StatusMapper turns an HTTP status into a kind. 400 maps to validation,
// 401 to not authenticated, 403 to permission and 404 to not found.
// Transport failures are connection errors and anything else is a gateway
// error.
//
// # Token Cache
//
//	cache := provider.NewInMemoryTokenCache(10 * time.Minute)
//	key := provider.TokenCacheKey("shop-1", "TEST")
//	tok, _ := cache.Set(ctx, key, "access-token", time.Hour)
//	log.Println(tok) // prints the masked token
//
// Entries are stale once their expiry passes. A cache read error is
// treated as a miss by the client.
//
// # Masking
//
// MaskSensitive and MaskStrings replace card numbers, security codes,
// passwords and tokens before payloads are logged or recorded.
package provider
