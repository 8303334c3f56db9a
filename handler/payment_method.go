package handler

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/mstgnz/gmopay/service"
)

// PaymentMethodServiceInterface defines the card and wallet operations used by PaymentMethodHandler
type PaymentMethodServiceInterface interface {
	CreateToken(ctx context.Context, card service.CardData) (map[string]any, error)
	VerifyCard(ctx context.Context, req service.CardTokenRequest) (map[string]any, error)
	StoreCard(ctx context.Context, req service.CardTokenRequest) (map[string]any, error)
	CardDetails(ctx context.Context, req service.CardDetailsRequest) (map[string]any, error)
	SearchCards(ctx context.Context, memberID string) (map[string]any, error)
	DeleteCard(ctx context.Context, memberID, cardSeq string) (map[string]any, error)
	GooglePay(ctx context.Context, req service.WalletRequest) (map[string]any, error)
	ApplePay(ctx context.Context, req service.WalletRequest) (map[string]any, error)
}

// PaymentMethodHandler handles card tokenization, stored cards and wallets
type PaymentMethodHandler struct {
	methods  PaymentMethodServiceInterface
	validate *validator.Validate
}

// NewPaymentMethodHandler creates a new payment method handler
func NewPaymentMethodHandler(methods PaymentMethodServiceInterface, validate *validator.Validate) *PaymentMethodHandler {
	return &PaymentMethodHandler{methods: methods, validate: validate}
}

// CreateToken encrypts raw card data and exchanges it for a card token
func (h *PaymentMethodHandler) CreateToken(w http.ResponseWriter, r *http.Request) {
	serve(w, r, h.validate, operation[service.CardData]{
		call:    h.methods.CreateToken,
		status:  http.StatusCreated,
		success: "Card token created",
		failure: "Failed to create card token",
	})
}

// VerifyCard checks a tokenized card
func (h *PaymentMethodHandler) VerifyCard(w http.ResponseWriter, r *http.Request) {
	serve(w, r, h.validate, operation[service.CardTokenRequest]{
		call:    h.methods.VerifyCard,
		success: "Card verified",
		failure: "Failed to verify card",
	})
}

// StoreCard saves a tokenized card on a member
func (h *PaymentMethodHandler) StoreCard(w http.ResponseWriter, r *http.Request) {
	serve(w, r, h.validate, operation[service.CardTokenRequest]{
		call:    h.methods.StoreCard,
		status:  http.StatusCreated,
		success: "Card stored",
		failure: "Failed to store card",
	})
}

// CardDetails looks a card up by token or by member and card id
func (h *PaymentMethodHandler) CardDetails(w http.ResponseWriter, r *http.Request) {
	serve(w, r, h.validate, operation[service.CardDetailsRequest]{
		call:    h.methods.CardDetails,
		success: "Card details retrieved",
		failure: "Failed to retrieve card details",
	})
}

// SearchCards lists the cards stored on a member
func (h *PaymentMethodHandler) SearchCards(w http.ResponseWriter, r *http.Request) {
	serve(w, r, h.validate, operation[service.CardSearchRequest]{
		call: func(ctx context.Context, req service.CardSearchRequest) (map[string]any, error) {
			return h.methods.SearchCards(ctx, req.MemberID)
		},
		success: "Cards retrieved",
		failure: "Failed to search cards",
	})
}

// DeleteCard removes a stored card
func (h *PaymentMethodHandler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	serve(w, r, h.validate, operation[service.CardDeleteRequest]{
		call: func(ctx context.Context, req service.CardDeleteRequest) (map[string]any, error) {
			return h.methods.DeleteCard(ctx, req.MemberID, req.CardSeq)
		},
		success: "Card deleted",
		failure: "Failed to delete card",
	})
}

// GooglePay executes a Google Pay payment
func (h *PaymentMethodHandler) GooglePay(w http.ResponseWriter, r *http.Request) {
	serve(w, r, h.validate, operation[service.WalletRequest]{
		call:    h.methods.GooglePay,
		success: "Google Pay payment executed",
		failure: "Failed to execute Google Pay payment",
	})
}

// ApplePay executes an Apple Pay payment
func (h *PaymentMethodHandler) ApplePay(w http.ResponseWriter, r *http.Request) {
	serve(w, r, h.validate, operation[service.WalletRequest]{
		call:    h.methods.ApplePay,
		success: "Apple Pay payment executed",
		failure: "Failed to execute Apple Pay payment",
	})
}
