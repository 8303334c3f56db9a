// Package service builds gateway payloads for members, merchants, payment methods and transactions.
package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/mstgnz/gmopay/infra/logger"
	"github.com/mstgnz/gmopay/provider/gmo"
)

const providerName = "gmo"

// GatewayClient is the part of *gmo.Client the services use
type GatewayClient interface {
	Post(ctx context.Context, endpoint string, body map[string]any) (map[string]any, error)
	TokenizeCard(ctx context.Context, payload map[string]any) (map[string]any, error)
	Credentials() gmo.Credentials
	TokenService() gmo.TokenService
}

// Services groups every domain service over one client
type Services struct {
	Members        *MemberService
	Merchants      *MerchantService
	PaymentMethods *PaymentMethodService
	Transactions   *TransactionService
}

// New wires all services to client
func New(client GatewayClient, encrypter CardEncrypter) *Services {
	return &Services{
		Members:        NewMemberService(client),
		Merchants:      NewMerchantService(client),
		PaymentMethods: NewPaymentMethodService(client, encrypter),
		Transactions:   NewTransactionService(client),
	}
}

// post sends payload and logs the outcome of operation
func post(ctx context.Context, client GatewayClient, operation, endpoint string, payload map[string]any, fields map[string]any) (map[string]any, error) {
	logCtx := logger.LogContext{Provider: providerName, Fields: fields}

	result, err := client.Post(ctx, endpoint, payload)
	if err != nil {
		logger.Error(fmt.Sprintf("Failed to %s", operation), err, logCtx)
		return nil, fmt.Errorf("%s: %w", operation, err)
	}

	logger.Info(fmt.Sprintf("Successfully completed %s", operation), logCtx)
	return result, nil
}

// siteAuth returns the site credentials used by member-scoped legacy calls
func siteAuth(client GatewayClient) map[string]any {
	creds := client.Credentials()
	return map[string]any{
		"SiteID":   creds.SiteID,
		"SitePass": creds.SiteSecret,
	}
}

// shopAuth returns the shop credentials used by transaction-scoped legacy calls
func shopAuth(client GatewayClient) map[string]any {
	creds := client.Credentials()
	return map[string]any{
		"ShopID":   creds.ShopID,
		"ShopPass": creds.ShopSecret,
	}
}

func formatAmount(amount int64) string {
	return strconv.FormatInt(amount, 10)
}
