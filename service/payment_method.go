package service

import (
	"context"
	"strings"

	"github.com/mstgnz/gmopay/infra/logger"
	"github.com/mstgnz/gmopay/provider"
	"github.com/mstgnz/gmopay/provider/gmo"
)

// Card reference types
const (
	TokenTypeMP    = "MP_TOKEN"
	CardTypeCredit = "CREDIT_CARD"
)

// CardTokenRequest stores or verifies a tokenized card
type CardTokenRequest struct {
	MemberID  string `json:"member_id" validate:"omitempty,gmo_member_id"`
	CardToken string `json:"card_token" validate:"required"`
}

// CardDetailsRequest looks a card up either by token or by on-file reference
type CardDetailsRequest struct {
	CardToken string `json:"card_token" validate:"required_without=MemberID"`
	MemberID  string `json:"member_id" validate:"omitempty,gmo_member_id"`
	CardType  string `json:"card_type" validate:"required_with=MemberID"`
	CardID    string `json:"card_id" validate:"required_with=MemberID"`
}

// CardSearchRequest lists a member's stored cards
type CardSearchRequest struct {
	MemberID string `json:"member_id" validate:"required,gmo_member_id"`
}

// CardDeleteRequest removes one stored card
type CardDeleteRequest struct {
	MemberID string `json:"member_id" validate:"required,gmo_member_id"`
	CardSeq  string `json:"card_seq" validate:"required,numeric"`
}

// WalletRequest executes a wallet payment for an entered order
type WalletRequest struct {
	OrderID string `json:"order_id" validate:"required,max=27"`
	Token   string `json:"token" validate:"required"`
}

// PaymentMethodService tokenizes, verifies and stores cards
type PaymentMethodService struct {
	client    GatewayClient
	encrypter CardEncrypter
}

// NewPaymentMethodService creates a new payment method service
func NewPaymentMethodService(client GatewayClient, encrypter CardEncrypter) *PaymentMethodService {
	if encrypter == nil {
		encrypter = NewRSACardEncrypter()
	}
	return &PaymentMethodService{client: client, encrypter: encrypter}
}

// CreateToken encrypts card and exchanges it for a card token
func (s *PaymentMethodService) CreateToken(ctx context.Context, card CardData) (map[string]any, error) {
	if strings.TrimSpace(card.CardNumber) == "" {
		return nil, provider.NewValidationError("card number is required")
	}

	ts := s.client.TokenService()
	encrypted, err := s.encrypter.Encrypt(card, ts.PublicKey)
	if err != nil {
		logger.Error("Failed to encrypt card for tokenization", err, logger.LogContext{Provider: providerName})
		return nil, provider.NewConfigurationError("card encryption failed: " + err.Error())
	}

	payload := map[string]any{
		"encrypted": encrypted.Blob,
		"shopId":    s.client.Credentials().ShopID,
		"keyHash":   encrypted.KeyHash,
	}

	logCtx := logger.LogContext{Provider: providerName}
	result, err := s.client.TokenizeCard(ctx, payload)
	if err != nil {
		logger.Error("Failed to create card token", err, logCtx)
		return nil, err
	}
	logger.Info("Successfully completed create card token", logCtx)
	return result, nil
}

// VerifyCard checks a tokenized card, optionally storing it against a member
func (s *PaymentMethodService) VerifyCard(ctx context.Context, req CardTokenRequest) (map[string]any, error) {
	if strings.TrimSpace(req.CardToken) == "" {
		return nil, provider.NewValidationError("card token is required")
	}

	payload := map[string]any{
		"creditVerificationInformation": map[string]any{
			"tokenizedCard": tokenizedCard(req.CardToken),
		},
	}
	if req.MemberID != "" {
		payload["creditStoringInformation"] = map[string]any{
			"onfileCard": map[string]any{"memberId": req.MemberID},
		}
	}

	return post(ctx, s.client, "verify card", gmo.EndpointCardVerify, payload,
		map[string]any{"member_id": req.MemberID})
}

// StoreCard stores a tokenized card against a member
func (s *PaymentMethodService) StoreCard(ctx context.Context, req CardTokenRequest) (map[string]any, error) {
	if strings.TrimSpace(req.MemberID) == "" {
		return nil, provider.NewValidationError("member id is required")
	}
	if strings.TrimSpace(req.CardToken) == "" {
		return nil, provider.NewValidationError("card token is required")
	}

	payload := map[string]any{
		"creditStoringInformation": map[string]any{
			"tokenizedCard": tokenizedCard(req.CardToken),
			"onfileCard":    map[string]any{"memberId": req.MemberID},
		},
	}

	return post(ctx, s.client, "store card", gmo.EndpointCardStore, payload,
		map[string]any{"member_id": req.MemberID})
}

// CardDetailsByToken returns brand and masked number for a card token
func (s *PaymentMethodService) CardDetailsByToken(ctx context.Context, cardToken string) (map[string]any, error) {
	if strings.TrimSpace(cardToken) == "" {
		return nil, provider.NewValidationError("card token is required")
	}

	return post(ctx, s.client, "get card details by token", gmo.EndpointCardDetails,
		map[string]any{"tokenizedCard": tokenizedCard(cardToken)}, nil)
}

// CardDetailsByMember returns details for an on-file card
func (s *PaymentMethodService) CardDetailsByMember(ctx context.Context, memberID, cardType, cardID string) (map[string]any, error) {
	switch {
	case strings.TrimSpace(memberID) == "":
		return nil, provider.NewValidationError("member id is required")
	case strings.TrimSpace(cardType) == "":
		return nil, provider.NewValidationError("card type is required")
	case strings.TrimSpace(cardID) == "":
		return nil, provider.NewValidationError("card id is required")
	}

	return post(ctx, s.client, "get card details by member", gmo.EndpointCardDetails,
		map[string]any{"onfileCard": onfileCard(memberID, cardType, cardID)},
		map[string]any{"member_id": memberID, "card_id": cardID})
}

// CardDetails dispatches on whichever reference req carries
func (s *PaymentMethodService) CardDetails(ctx context.Context, req CardDetailsRequest) (map[string]any, error) {
	if req.CardToken != "" {
		return s.CardDetailsByToken(ctx, req.CardToken)
	}
	return s.CardDetailsByMember(ctx, req.MemberID, req.CardType, req.CardID)
}

// SearchCards lists stored cards through the legacy API
func (s *PaymentMethodService) SearchCards(ctx context.Context, memberID string) (map[string]any, error) {
	if strings.TrimSpace(memberID) == "" {
		return nil, provider.NewValidationError("member id is required")
	}

	payload := siteAuth(s.client)
	payload["MemberID"] = memberID

	return post(ctx, s.client, "search cards", gmo.EndpointSearchCard, payload,
		map[string]any{"member_id": memberID})
}

// DeleteCard removes a stored card through the legacy API
func (s *PaymentMethodService) DeleteCard(ctx context.Context, memberID, cardSeq string) (map[string]any, error) {
	if strings.TrimSpace(memberID) == "" {
		return nil, provider.NewValidationError("member id is required")
	}
	if strings.TrimSpace(cardSeq) == "" {
		return nil, provider.NewValidationError("card sequence is required")
	}

	payload := siteAuth(s.client)
	payload["MemberID"] = memberID
	payload["CardSeq"] = cardSeq

	return post(ctx, s.client, "delete card", gmo.EndpointDeleteCard, payload,
		map[string]any{"member_id": memberID, "card_seq": cardSeq})
}

// GooglePay executes a Google Pay payment
func (s *PaymentMethodService) GooglePay(ctx context.Context, req WalletRequest) (map[string]any, error) {
	return s.wallet(ctx, "process Google Pay payment", gmo.EndpointExecTranGooglePay, req)
}

// ApplePay executes an Apple Pay payment
func (s *PaymentMethodService) ApplePay(ctx context.Context, req WalletRequest) (map[string]any, error) {
	return s.wallet(ctx, "process Apple Pay payment", gmo.EndpointExecTranApplePay, req)
}

func (s *PaymentMethodService) wallet(ctx context.Context, operation, endpoint string, req WalletRequest) (map[string]any, error) {
	if strings.TrimSpace(req.OrderID) == "" {
		return nil, provider.NewValidationError("order id is required")
	}
	if strings.TrimSpace(req.Token) == "" {
		return nil, provider.NewValidationError("wallet token is required")
	}

	payload := shopAuth(s.client)
	payload["OrderID"] = req.OrderID
	payload["Token"] = req.Token

	return post(ctx, s.client, operation, endpoint, payload,
		map[string]any{"order_id": req.OrderID})
}

func tokenizedCard(token string) map[string]any {
	return map[string]any{"type": TokenTypeMP, "token": token}
}

func onfileCard(memberID, cardType, cardID string) map[string]any {
	if cardType == "" {
		cardType = CardTypeCredit
	}
	return map[string]any{"type": cardType, "memberId": memberID, "cardId": cardID}
}
