// Package handler provides the HTTP handlers of the GMO payment gateway API.
//
// Every gateway operation is exposed as a JSON POST endpoint. A handler
// decodes the body into the service request type, validates it with the
// custom tags from infra/validate, calls the service under a 30 second
// timeout and renders the result with infra/response.
//
// # Handlers
//
//   - MemberHandler: customer members (create, inquiry, delete)
//   - MerchantHandler: merchant accounts (create, inquiry, delete)
//   - PaymentMethodHandler: card tokens, stored cards, Google Pay, Apple Pay
//   - TransactionHandler: REST charges and orders plus the legacy entry, exec and alter flow
//   - HealthHandler: gateway auth state, token cache and process health
//   - LogsHandler: gateway call logs indexed in OpenSearch
//
// # Responses
//
// Success responses carry the gateway payload under "data":
//
//	{
//	  "code": 201,
//	  "success": true,
//	  "message": "Transaction created",
//	  "data": {"orderId": "order-1", "accessId": "..."}
//	}
//
// Gateway failures carry the error kind and the upstream status. The raw
// gateway body is never returned to the caller:
//
//	{
//	  "code": 404,
//	  "success": false,
//	  "message": "Failed to retrieve member",
//	  "error": {"kind": "not_found", "message": "...", "gateway_status": 404}
//	}
//
// # HTTP Status Codes
//
//   - 400 Bad Request: malformed body, failed validation or a gateway validation error
//   - 401 Unauthorized: missing API key or a gateway not_authenticated error
//   - 403 Forbidden: gateway permission error
//   - 404 Not Found: gateway not_found error
//   - 502 Bad Gateway: credential exchange or other gateway failure
//   - 503 Service Unavailable: gateway unreachable, or log search disabled
//
// # Testing
//
// Handlers depend on small interfaces (MemberServiceInterface and friends)
// so tests drive them with func-field mocks and httptest.
package handler
