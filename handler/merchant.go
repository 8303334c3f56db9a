package handler

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/mstgnz/gmopay/infra/response"
	"github.com/mstgnz/gmopay/service"
)

// MerchantServiceInterface defines the merchant operations used by MerchantHandler
type MerchantServiceInterface interface {
	Create(ctx context.Context, req service.MerchantRequest) (map[string]any, error)
	Get(ctx context.Context, merchantID string) (map[string]any, error)
	Delete(ctx context.Context, merchantID string) (map[string]any, error)
}

// MerchantHandler handles merchant account requests
type MerchantHandler struct {
	merchants MerchantServiceInterface
	validate  *validator.Validate
}

// NewMerchantHandler creates a new merchant handler
func NewMerchantHandler(merchants MerchantServiceInterface, validate *validator.Validate) *MerchantHandler {
	return &MerchantHandler{merchants: merchants, validate: validate}
}

// Create registers a merchant
func (h *MerchantHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), gatewayTimeout())
	defer cancel()

	var req service.MerchantRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	result, err := h.merchants.Create(ctx, req)
	if err != nil {
		response.GatewayFailure(w, "Failed to create merchant", err)
		return
	}

	response.Success(w, http.StatusCreated, "Merchant created", result)
}

// Inquiry retrieves a merchant
func (h *MerchantHandler) Inquiry(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), gatewayTimeout())
	defer cancel()

	var req service.MerchantIDRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	result, err := h.merchants.Get(ctx, req.MerchantID)
	if err != nil {
		response.GatewayFailure(w, "Failed to retrieve merchant", err)
		return
	}

	response.Success(w, http.StatusOK, "Merchant retrieved", result)
}

// Delete removes a merchant
func (h *MerchantHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), gatewayTimeout())
	defer cancel()

	var req service.MerchantIDRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	result, err := h.merchants.Delete(ctx, req.MerchantID)
	if err != nil {
		response.GatewayFailure(w, "Failed to delete merchant", err)
		return
	}

	response.Success(w, http.StatusOK, "Merchant deleted", result)
}
