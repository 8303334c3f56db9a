// Package gmopay is an HTTP gateway in front of the GMO Payment Gateway.
//
// It exposes members, merchants, payment methods and transactions as JSON
// endpoints, keeps a shared OAuth access token for the configured shop, and
// turns every gateway failure into one typed error.
//
// # Architecture
//
//	┌─────────────────┐    ┌─────────────────┐    ┌─────────────────┐
//	│                 │    │                 │    │                 │
//	│   Your Apps     │◄──►│     gmopay      │◄──►│   GMO Payment   │
//	│                 │    │   (/v1/...)     │    │    Gateway      │
//	│                 │    │                 │    │                 │
//	└─────────────────┘    └─────────────────┘    └─────────────────┘
//
// Requests flow through these layers:
//
//   - router: chi routes under /v1, guarded by the API key middleware
//   - handler: JSON decoding, validation and response rendering
//   - service: builds gateway payloads for each operation
//   - provider/gmo: authentication, token caching, retries and error mapping
//   - provider: token caches, typed errors, masking and the HTTP client
//
// # Quick Start
//
// Using the gateway client directly:
//
//	package main
//
//	import (
//	    "context"
//	    "log"
//
//	    "github.com/mstgnz/gmopay/infra/config"
//	    "github.com/mstgnz/gmopay/provider/gmo"
//	    "github.com/mstgnz/gmopay/service"
//	)
//
//	func main() {
//	    cfg, err := config.LoadGatewayConfig()
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    client, err := gmo.NewClient(cfg)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    services := service.New(client, service.NewRSACardEncrypter())
//	    result, err := services.Transactions.Create(context.Background(), service.ChargeRequest{
//	        OrderID:   "order-1",
//	        Amount:    1000,
//	        CardToken: "token-from-browser",
//	    })
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    log.Println(result["accessId"])
//	}
//
// # Configuration
//
// Gateway credentials and URLs come from GMO_* environment variables
// (GMO_SHOP_ID, GMO_SHOP_SECRET, GMO_SITE_ID, GMO_SITE_SECRET,
// GMO_ENVIRONMENT and the per-environment URLs). The server reads
// APP_PORT, API_KEY, LOG_LEVEL, GMO_TOKEN_CACHE and the OpenSearch
// settings. A .env file is loaded when present.
//
// # Token Cache
//
// Access tokens are cached per shop and environment in memory, SQLite or
// PostgreSQL. SQL backends let several instances share one token. With
// GMO_SQL_CALL_LOG enabled every gateway attempt is also stored in the same
// database.
//
// # Error Handling
//
// Every failure is a *provider.GatewayError carrying a kind, the upstream
// status and the GMO error code:
//
//	result, err := services.Members.Inquiry(ctx, "member-1")
//	if errors.Is(err, provider.ErrNotFound) {
//	    // no such member
//	}
//
// Secrets, card data and tokens are masked before they reach any log.
package gmopay
